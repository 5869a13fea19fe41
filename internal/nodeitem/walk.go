package nodeitem

import (
	"errors"
	"fmt"
	"sort"

	"github.com/metaschema-go/metaschema/internal/metapath/item"
	"github.com/metaschema-go/metaschema/internal/model"
)

// SkipChildren is returned by a WalkFunc to skip the flags and children of
// the current node
var SkipChildren = errors.New("skip children")

// WalkFunc is called for every node visited by Walk
type WalkFunc func(node *Node) error

// Walk visits root and its descendants depth-first in document order, flags
// before model children. Cycled nodes are visited but not descended into.
func Walk(root *Node, fn WalkFunc) error {
	err := fn(root)
	if errors.Is(err, SkipChildren) {
		return nil
	}
	if err != nil {
		return err
	}
	if root.IsCycled() {
		return nil
	}
	for _, flag := range root.Flags() {
		if err := Walk(flag, fn); err != nil {
			return err
		}
	}
	for _, child := range root.Children() {
		if err := Walk(child, fn); err != nil {
			return err
		}
	}
	return nil
}

// Check walks a value-bearing tree and reports every shape problem of its
// instance data: values that do not parse, unknown properties and
// occurrence counts outside an instance's bounds. Problems are joined into
// one error of *ValueError values.
func Check(root *Node) error {
	var errs []error
	_ = Walk(root, func(node *Node) error {
		if !node.valued {
			return nil
		}
		switch node.kind {
		case item.FlagNode:
			if _, err := node.Atomize(); err != nil {
				errs = append(errs, err)
			}
		case item.FieldNode:
			if _, err := node.Atomize(); err != nil {
				errs = append(errs, err)
			}
			errs = append(errs, checkProperties(node)...)
			errs = append(errs, checkFlags(node)...)
		case item.AssemblyNode:
			errs = append(errs, checkProperties(node)...)
			errs = append(errs, checkFlags(node)...)
			errs = append(errs, checkOccurrences(node)...)
		}
		// Children are built by now.
		errs = append(errs, node.Err()...)
		return nil
	})
	return errors.Join(errs...)
}

func checkProperties(node *Node) []error {
	object, ok := node.value.(map[string]any)
	if !ok {
		if node.kind == item.AssemblyNode {
			return []error{&ValueError{Path: node.Path(), Err: fmt.Errorf("assembly value must be an object: %w", model.ErrInvalidValue)}}
		}
		return nil
	}

	known := make(map[string]bool)
	for _, inst := range node.def.FlagInstances() {
		known[inst.JSONName()] = true
	}
	for _, inst := range node.def.ModelInstances() {
		known[inst.JSONName()] = true
	}
	if node.kind == item.FieldNode {
		known[node.def.JSONValueKey()] = true
	}

	var unknown []string
	for key := range object {
		if !known[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)

	errs := make([]error, 0, len(unknown))
	for _, key := range unknown {
		errs = append(errs, &ValueError{Path: node.Path(), Err: fmt.Errorf("unknown property %q: %w", key, model.ErrInvalidValue)})
	}
	return errs
}

func checkFlags(node *Node) []error {
	var errs []error
	for _, inst := range node.def.FlagInstances() {
		if inst.IsRequired() && node.Flag(inst.EffectiveName()) == nil {
			errs = append(errs, &ValueError{Path: node.Path(), Err: fmt.Errorf("missing required flag %q: %w", inst.EffectiveName(), model.ErrInvalidValue)})
		}
	}
	return errs
}

func checkOccurrences(node *Node) []error {
	counts := make(map[*model.Instance]int)
	for _, child := range node.Children() {
		counts[child.instance]++
	}

	var errs []error
	for _, inst := range node.def.ModelInstances() {
		count := counts[inst]
		if count < inst.MinOccurs() {
			errs = append(errs, &ValueError{Path: node.Path(), Err: fmt.Errorf("%q occurs %d times, at least %d required: %w",
				inst.EffectiveName(), count, inst.MinOccurs(), model.ErrInvalidValue)})
		}
		if inst.MaxOccurs() != model.Unbounded && count > inst.MaxOccurs() {
			errs = append(errs, &ValueError{Path: node.Path(), Err: fmt.Errorf("%q occurs %d times, at most %d allowed: %w",
				inst.EffectiveName(), count, inst.MaxOccurs(), model.ErrInvalidValue)})
		}
	}
	return errs
}

// Descendants returns root and every node below it in document order
func Descendants(root *Node) []*Node {
	var nodes []*Node
	_ = Walk(root, func(node *Node) error {
		nodes = append(nodes, node)
		return nil
	})
	return nodes
}

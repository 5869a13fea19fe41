// Package nodeitem builds the navigable node-item trees that Metapath
// expressions and constraints are evaluated over. Trees are either
// definition-shaped (one node per instance, recursion cut by cycled nodes)
// or value-bearing (one node per occurrence in an instance document).
package nodeitem

import (
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"github.com/metaschema-go/metaschema/internal/metapath/item"
	"github.com/metaschema-go/metaschema/internal/model"
)

// Node is a document, assembly, field or flag node. Flags, model children
// and the atomic value are computed on first access and memoized; first
// access may happen concurrently.
type Node struct {
	item.NodeBase

	kind     item.NodeKind
	def      *model.Definition
	instance *model.Instance
	parent   *Node
	name     string
	position int
	multiple bool

	// valued is set on every node of a value-bearing tree
	valued   bool
	value    any
	hasValue bool
	baseURI  *url.URL

	// cycledTo is the ancestor this node stands in for. Only set on
	// assemblies of definition-shaped trees.
	cycledTo *Node

	flagsOnce sync.Once
	flags     []*Node

	modelOnce sync.Once
	model     []*Node

	atomOnce sync.Once
	atom     item.AtomicItem
	atomErr  error

	errsMu sync.Mutex
	errs   []error
}

func (n *Node) NodeKind() item.NodeKind { return n.kind }
func (n *Node) Name() string            { return n.name }

// Definition returns the definition of the node. For documents it is the
// root assembly definition.
func (n *Node) Definition() *model.Definition { return n.def }

// Instance returns the instance the node occurs as, nil for documents,
// document roots and orphaned nodes
func (n *Node) Instance() *model.Instance { return n.instance }

// Parent returns nil for documents and orphaned nodes
func (n *Node) Parent() *Node { return n.parent }

// Position returns the 1-based position among siblings of the same instance
func (n *Node) Position() int { return n.position }

// Value returns the raw instance value and whether the node bears one
func (n *Node) Value() (any, bool) { return n.value, n.hasValue }

// IsCycled reports whether the node stands in for an ancestor of the same
// definition
func (n *Node) IsCycled() bool { return n.cycledTo != nil }

// CycledTo returns the ancestor a cycled node delegates to, or nil
func (n *Node) CycledTo() *Node { return n.cycledTo }

func (n *Node) ParentItem() item.Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

// Flags returns the flag nodes in declaration order
func (n *Node) Flags() []*Node {
	if n.cycledTo != nil {
		return n.cycledTo.Flags()
	}
	n.flagsOnce.Do(n.buildFlags)
	return n.flags
}

// Flag returns the flag with the given name, or nil
func (n *Node) Flag(name string) *Node {
	for _, flag := range n.Flags() {
		if flag.name == name {
			return flag
		}
	}
	return nil
}

// Children returns the model children in declaration order. A document's
// only child is its root assembly.
func (n *Node) Children() []*Node {
	if n.cycledTo != nil {
		return n.cycledTo.Children()
	}
	n.modelOnce.Do(n.buildModel)
	return n.model
}

func (n *Node) FlagItems() []item.Node {
	return toItems(n.Flags())
}

func (n *Node) FlagItem(name string) item.Node {
	if flag := n.Flag(name); flag != nil {
		return flag
	}
	return nil
}

func (n *Node) ModelItems() []item.Node {
	return toItems(n.Children())
}

func (n *Node) ModelItemsNamed(name string) []item.Node {
	var result []item.Node
	for _, child := range n.Children() {
		if child.name == name {
			result = append(result, child)
		}
	}
	return result
}

// Atomize returns the typed value of a field or flag node. Nodes without a
// value fail with a *StructuralError; values that do not parse as the
// definition's data type fail with a *ValueError.
func (n *Node) Atomize() (item.AtomicItem, error) {
	n.atomOnce.Do(func() {
		n.atom, n.atomErr = n.atomize()
	})
	return n.atom, n.atomErr
}

func (n *Node) atomize() (item.AtomicItem, error) {
	if n.kind != item.FieldNode && n.kind != item.FlagNode {
		return nil, &StructuralError{Path: n.Path(), Message: n.kind.String() + " nodes have no atomic value", Err: item.ErrNoValue}
	}
	if !n.hasValue {
		return nil, &StructuralError{Path: n.Path(), Message: "node has no value", Err: item.ErrNoValue}
	}

	raw := n.value
	if n.kind == item.FieldNode {
		v, ok := n.def.FieldValue(raw)
		if !ok {
			return nil, &ValueError{Path: n.Path(), Err: fmt.Errorf("missing %q value: %w", n.def.JSONValueKey(), model.ErrInvalidValue)}
		}
		raw = v
	}
	atom, err := n.def.DataType().ParseValue(raw)
	if err != nil {
		return nil, &ValueError{Path: n.Path(), Err: err}
	}
	return atom, nil
}

// BaseURI returns the base URI of the enclosing document, if any
func (n *Node) BaseURI() *url.URL {
	for node := n; node != nil; node = node.parent {
		if node.baseURI != nil {
			return node.baseURI
		}
	}
	return nil
}

// Path returns a location such as /catalog/group[2]/control[1]/@id.
// Occurrences of repeatable instances carry their position.
func (n *Node) Path() string {
	if n.kind == item.DocumentNode {
		return "/"
	}
	segment := n.name
	switch {
	case n.kind == item.FlagNode:
		segment = "@" + n.name
	case n.multiple:
		segment += "[" + strconv.Itoa(n.position) + "]"
	}
	if n.parent == nil || n.parent.kind == item.DocumentNode {
		return "/" + segment
	}
	return n.parent.Path() + "/" + segment
}

// String returns the path of the node
func (n *Node) String() string { return n.Path() }

// Err returns the shape errors found while building the node's flags and
// children. It does not force them to be built.
func (n *Node) Err() []error {
	n.errsMu.Lock()
	defer n.errsMu.Unlock()
	return append([]error(nil), n.errs...)
}

func (n *Node) addErr(err error) {
	n.errsMu.Lock()
	defer n.errsMu.Unlock()
	n.errs = append(n.errs, &ValueError{Path: n.Path(), Err: err})
}

// ancestorOf returns the node closest to the root on the chain from n
// upward whose definition is def
func (n *Node) ancestorOf(def *model.Definition) *Node {
	var found *Node
	for node := n; node != nil; node = node.parent {
		if node.kind == item.AssemblyNode && node.def == def {
			found = node
		}
	}
	return found
}

func toItems(nodes []*Node) []item.Node {
	result := make([]item.Node, len(nodes))
	for i, node := range nodes {
		result[i] = node
	}
	return result
}

package validation

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/metaschema-go/metaschema/internal/constraint"
	"github.com/metaschema-go/metaschema/internal/metapath"
	"github.com/metaschema-go/metaschema/internal/metapath/item"
	"github.com/metaschema-go/metaschema/internal/nodeitem"
)

var (
	// ErrValidatorFinalized is returned by Validate after FinalizeValidation
	ErrValidatorFinalized = errors.New("validator is finalized")
	// ErrAlreadyFinalized is returned by a second FinalizeValidation call
	ErrAlreadyFinalized = errors.New("validation already finalized")
)

type state int

const (
	stateIdle state = iota
	stateFinalizing
	stateDone
)

// Option configures a Validator
type Option func(*Validator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(v *Validator) { v.logger = logger }
}

// WithDynamicContext evaluates every expression in dyn
func WithDynamicContext(dyn *metapath.DynamicContext) Option {
	return func(v *Validator) { v.dyn = dyn }
}

// Validator checks nodes against the constraints of their definitions.
// Callers pass nodes to Validate in the order of their choice and must call
// FinalizeValidation exactly once afterwards: allowed-values, unique, index,
// index-has-key and cardinality constraints are only reported then. A Validator is used
// from one goroutine; independent validators share nothing.
type Validator struct {
	dyn     *metapath.DynamicContext
	handler Handler
	logger  *zap.Logger
	state   state

	indexes map[string]*index
	allowed map[item.Node]*allowedTarget
	// deferred holds the cross-node checks in the order they were recorded
	deferred []func()
}

type index struct {
	constraint *constraint.Index
	entries    map[string]item.Node
}

// allowedTarget gathers every allowed-values constraint that selected one
// node, from any definition
type allowedTarget struct {
	target   item.Node
	value    string
	readable bool
	entries  []allowedEntry
}

type allowedEntry struct {
	constraint *constraint.AllowedValues
	context    *nodeitem.Node
}

// New creates a validator reporting to handler
func New(handler Handler, opts ...Option) *Validator {
	v := &Validator{
		handler: handler,
		logger:  zap.NewNop(),
		indexes: make(map[string]*index),
		allowed: make(map[item.Node]*allowedTarget),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.dyn == nil {
		v.dyn = metapath.NewDynamicContext(nil)
	}
	return v
}

// Validate applies the constraints of node's definition. Violations are
// reported to the handler; the returned error is reserved for lifecycle
// misuse and structural errors such as a constraint atomizing an assembly.
func (v *Validator) Validate(node *nodeitem.Node) error {
	if v.state != stateIdle {
		return ErrValidatorFinalized
	}
	if node.NodeKind() == item.DocumentNode || node.IsCycled() {
		return nil
	}

	set := node.Definition().Constraints()
	if set.Len() == 0 {
		return nil
	}
	v.logger.Debug("validating node",
		zap.String("path", node.Path()),
		zap.Int("constraints", set.Len()))

	steps := []func(*nodeitem.Node) error{
		v.validateExpect,
		v.validateAllowedValues,
		v.validateIndexHasKey,
		v.validateMatches,
		v.validateIndex,
		v.validateUnique,
		v.validateCardinality,
	}
	for _, step := range steps {
		if err := step(node); err != nil {
			return err
		}
	}
	return nil
}

// FinalizeValidation runs the deferred cross-node checks
func (v *Validator) FinalizeValidation() error {
	if v.state != stateIdle {
		return ErrAlreadyFinalized
	}
	v.state = stateFinalizing
	v.logger.Debug("finalizing validation",
		zap.Int("deferred", len(v.deferred)),
		zap.Int("indexes", len(v.indexes)))

	for _, check := range v.deferred {
		check()
	}
	v.deferred = nil
	v.state = stateDone
	return nil
}

// targets evaluates the target of c against node. An evaluation error is
// reported as an invalid-constraint finding and yields ok == false; a
// structural error is returned.
func (v *Validator) targets(c constraint.Constraint, node *nodeitem.Node) ([]item.Node, bool, error) {
	nodes, err := c.Meta().TargetExpression().EvaluateNodes(v.dyn, node)
	if err != nil {
		return nil, false, v.evaluationFailed(c, node, node, err)
	}
	return nodes, true, nil
}

// evaluationFailed reports err as an invalid-constraint finding, unless it
// is structural
func (v *Validator) evaluationFailed(c constraint.Constraint, contextNode *nodeitem.Node, target item.Node, err error) error {
	var structural *nodeitem.StructuralError
	if errors.As(err, &structural) {
		return fmt.Errorf("%s on %s: %w", constraint.Describe(c), contextNode.Definition(), err)
	}
	v.logger.Warn("constraint could not be evaluated",
		zap.String("constraint", constraint.Describe(c)),
		zap.String("path", target.Path()),
		zap.Error(err))
	v.report(Finding{
		Constraint: c,
		Kind:       c.Kind(),
		Level:      constraint.LevelInvalidConstraint,
		Target:     target,
		Context:    contextNode,
		Path:       target.Path(),
		Message:    fmt.Sprintf("%s could not be evaluated: %v", constraint.Describe(c), err),
		Cause:      err,
	})
	return nil
}

func (v *Validator) report(f Finding) {
	if v.handler != nil {
		v.handler.HandleFinding(f)
	}
}

func (v *Validator) violation(c constraint.Constraint, contextNode *nodeitem.Node, target item.Node, message string) {
	v.report(Finding{
		Constraint: c,
		Kind:       c.Kind(),
		Level:      c.Meta().Level,
		Target:     target,
		Context:    contextNode,
		Path:       target.Path(),
		Message:    message,
	})
}

// atomize returns the value of target. Unreadable data is reported against
// c and yields ok == false.
func (v *Validator) atomize(c constraint.Constraint, node *nodeitem.Node, target item.Node) (item.AtomicItem, bool, error) {
	value, err := item.Atomize(target)
	if err == nil {
		return value, true, nil
	}
	var structural *nodeitem.StructuralError
	if errors.As(err, &structural) {
		return nil, false, fmt.Errorf("%s on %s: %w", constraint.Describe(c), node.Definition(), err)
	}
	v.violation(c, node, target, fmt.Sprintf("Value at '%s' is invalid: %v", target.Path(), err))
	return nil, false, nil
}

func (v *Validator) validateExpect(node *nodeitem.Node) error {
	for _, c := range node.Definition().Constraints().Expect() {
		targets, ok, err := v.targets(c, node)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		for _, target := range targets {
			passed, err := c.Test.EvaluateBoolean(v.dyn, target)
			if err != nil {
				if err := v.evaluationFailed(c, node, target, err); err != nil {
					return err
				}
				continue
			}
			if passed {
				continue
			}
			v.violation(c, node, target, v.expectMessage(c, target))
		}
	}
	return nil
}

func (v *Validator) expectMessage(c *constraint.Expect, target item.Node) string {
	if c.Message != nil {
		message, err := c.Message.Render(v.dyn, target)
		if err == nil {
			return message
		}
		v.logger.Warn("expect message could not be rendered",
			zap.String("constraint", constraint.Describe(c)),
			zap.Error(err))
	}
	return fmt.Sprintf("Expect constraint '%s' did not match the data at path '%s'", c.Test.Text(), target.Path())
}

// validateAllowedValues records which allowed-values constraints select
// which nodes. The decision is made in FinalizeValidation, once every
// constraint applying to a node is known.
func (v *Validator) validateAllowedValues(node *nodeitem.Node) error {
	for _, c := range node.Definition().Constraints().AllowedValues() {
		targets, ok, err := v.targets(c, node)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		for _, target := range targets {
			t, seen := v.allowed[target]
			if !seen {
				value, readable, err := v.atomize(c, node, target)
				if err != nil {
					return err
				}
				t = &allowedTarget{target: target, readable: readable}
				if readable {
					t.value = value.String()
				}
				v.allowed[target] = t
				v.deferred = append(v.deferred, func() { v.resolveAllowed(t) })
			}
			t.entries = append(t.entries, allowedEntry{constraint: c, context: node})
		}
	}
	return nil
}

// resolveAllowed reports an unmatched value only when none of the
// constraints on the node allows other values. Each node yields at most one
// finding, raised against the most severe closed constraint.
func (v *Validator) resolveAllowed(t *allowedTarget) {
	if !t.readable {
		return
	}
	allowed, allowOthers := false, false
	var restrictive *allowedEntry
	var values []string
	for i := range t.entries {
		e := &t.entries[i]
		allowed = allowed || e.constraint.Allows(t.value)
		allowOthers = allowOthers || e.constraint.AllowOthers
		if !e.constraint.AllowOthers && (restrictive == nil || e.constraint.Level > restrictive.constraint.Level) {
			restrictive = e
		}
		for _, av := range e.constraint.Values {
			values = append(values, "'"+av.Value+"'")
		}
	}
	if allowed || allowOthers {
		return
	}
	v.violation(restrictive.constraint, restrictive.context, t.target, fmt.Sprintf("Value '%s' at '%s' is not allowed. Allowed values are: %s",
		t.value, t.target.Path(), strings.Join(values, ", ")))
}

func (v *Validator) validateMatches(node *nodeitem.Node) error {
	for _, c := range node.Definition().Constraints().Matches() {
		targets, ok, err := v.targets(c, node)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		for _, target := range targets {
			value, ok, err := v.atomize(c, node, target)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}

			lexical := value.String()
			var problems []string
			if c.Pattern != nil && !c.Pattern.MatchString(lexical) {
				problems = append(problems, fmt.Sprintf("does not match the pattern '%s'", c.Pattern))
			}
			if c.DataType != nil && !c.DataType.Valid(lexical) {
				problems = append(problems, fmt.Sprintf("is not a valid %s", c.DataType.Name()))
			}
			if len(problems) > 0 {
				v.violation(c, node, target, fmt.Sprintf("Value '%s' at '%s' %s",
					lexical, target.Path(), strings.Join(problems, " and ")))
			}
		}
	}
	return nil
}

// keys computes the key of every target. Targets with an empty key are
// skipped.
func (v *Validator) keys(c constraint.Constraint, node *nodeitem.Node) ([]item.Node, []constraint.Key, error) {
	targets, ok, err := v.targets(c, node)
	if err != nil || !ok {
		return nil, nil, err
	}
	var keyed []item.Node
	var keys []constraint.Key
	for _, target := range targets {
		key, err := constraint.ComputeKey(v.dyn, target, constraint.KeyFieldsOf(c))
		if err != nil {
			if err := v.evaluationFailed(c, node, target, err); err != nil {
				return nil, nil, err
			}
			continue
		}
		if key.IsEmpty() {
			continue
		}
		keyed = append(keyed, target)
		keys = append(keys, key)
	}
	return keyed, keys, nil
}

func (v *Validator) validateIndex(node *nodeitem.Node) error {
	for _, c := range node.Definition().Constraints().Indexes() {
		c := c
		idx, ok := v.indexes[c.Name]
		if !ok {
			idx = &index{constraint: c, entries: make(map[string]item.Node)}
			v.indexes[c.Name] = idx
		}

		targets, keys, err := v.keys(c, node)
		if err != nil {
			return err
		}
		for i, target := range targets {
			target := target
			key := keys[i]
			if existing, dup := idx.entries[key.Lookup()]; dup {
				message := fmt.Sprintf("Index '%s' has duplicate key %s at '%s', first defined at '%s'",
					c.Name, key, target.Path(), existing.Path())
				v.deferred = append(v.deferred, func() { v.violation(c, node, target, message) })
				continue
			}
			idx.entries[key.Lookup()] = target
		}
	}
	return nil
}

func (v *Validator) validateUnique(node *nodeitem.Node) error {
	for _, c := range node.Definition().Constraints().Unique() {
		c := c
		targets, keys, err := v.keys(c, node)
		if err != nil {
			return err
		}
		seen := make(map[string]item.Node, len(targets))
		for i, target := range targets {
			target := target
			key := keys[i]
			existing, dup := seen[key.Lookup()]
			if !dup {
				seen[key.Lookup()] = target
				continue
			}
			message := fmt.Sprintf("Unique constraint violated: key %s at '%s' duplicates '%s'",
				key, target.Path(), existing.Path())
			v.deferred = append(v.deferred, func() { v.violation(c, node, target, message) })
		}
	}
	return nil
}

// validateIndexHasKey records key references; they are resolved against the
// complete indexes during FinalizeValidation, so forward references work
func (v *Validator) validateIndexHasKey(node *nodeitem.Node) error {
	for _, c := range node.Definition().Constraints().IndexHasKey() {
		c := c
		targets, keys, err := v.keys(c, node)
		if err != nil {
			return err
		}
		for i, target := range targets {
			target := target
			key := keys[i]
			v.deferred = append(v.deferred, func() { v.resolveKey(c, node, target, key) })
		}
	}
	return nil
}

func (v *Validator) resolveKey(c *constraint.IndexHasKey, node *nodeitem.Node, target item.Node, key constraint.Key) {
	idx, ok := v.indexes[c.IndexName]
	if !ok {
		v.report(Finding{
			Constraint: c,
			Kind:       c.Kind(),
			Level:      constraint.LevelInvalidConstraint,
			Target:     target,
			Context:    node,
			Path:       target.Path(),
			Message:    fmt.Sprintf("Index '%s' referenced by %s is not defined", c.IndexName, constraint.Describe(c)),
		})
		return
	}
	if _, found := idx.entries[key.Lookup()]; !found {
		v.violation(c, node, target, fmt.Sprintf("Key %s at '%s' was not found in index '%s'",
			key, target.Path(), c.IndexName))
	}
}

func (v *Validator) validateCardinality(node *nodeitem.Node) error {
	for _, c := range node.Definition().Constraints().Cardinality() {
		targets, ok, err := v.targets(c, node)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		count := len(targets)
		v.deferred = append(v.deferred, func() {
			if c.Allows(count) {
				return
			}
			v.violation(c, node, node, fmt.Sprintf("The cardinality '%d' is outside the required range [%s] for '%s' at '%s'",
				count, bounds(c), c.TargetExpression().Text(), node.Path()))
		})
	}
	return nil
}

func bounds(c *constraint.Cardinality) string {
	if c.MaxOccurs == constraint.Unbounded {
		return fmt.Sprintf("%d, unbounded", c.MinOccurs)
	}
	return fmt.Sprintf("%d, %d", c.MinOccurs, c.MaxOccurs)
}

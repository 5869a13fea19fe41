package metapath

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	cerrors "github.com/metaschema-go/metaschema/compiler/errors"
	"github.com/metaschema-go/metaschema/compiler/parser"
	"github.com/metaschema-go/metaschema/internal/metapath/item"
)

var compareOps = map[parser.CompareOperator]item.CompareOp{
	parser.CompareEqual:        item.OpEqual,
	parser.CompareNotEqual:     item.OpNotEqual,
	parser.CompareLess:         item.OpLess,
	parser.CompareLessEqual:    item.OpLessEqual,
	parser.CompareGreater:      item.OpGreater,
	parser.CompareGreaterEqual: item.OpGreaterEqual,
}

var arithmeticOps = map[parser.ArithmeticOperator]item.ArithmeticOp{
	parser.ArithmeticAdd:      item.OpAdd,
	parser.ArithmeticSubtract: item.OpSubtract,
	parser.ArithmeticMultiply: item.OpMultiply,
	parser.ArithmeticModulo:   item.OpModulo,
}

// Evaluate evaluates the expression against contextItem. A nil
// dynamic context evaluates in a fresh context over the expression's static
// context; a nil contextItem leaves the context item undefined.
func (e *Expression) Evaluate(dyn *DynamicContext, contextItem item.Item) (*item.Sequence, error) {
	if dyn == nil {
		dyn = NewDynamicContext(e.static)
	}
	ev := &evaluator{expr: e, dyn: dyn}
	f := focus{}
	if contextItem != nil {
		f = focus{item: contextItem, position: 1, size: 1}
	}
	return ev.eval(e.ast, f)
}

// EvaluateBoolean evaluates the expression and returns its effective
// boolean value
func (e *Expression) EvaluateBoolean(dyn *DynamicContext, contextItem item.Item) (bool, error) {
	result, err := e.Evaluate(dyn, contextItem)
	if err != nil {
		return false, err
	}
	ebv, err := item.EffectiveBooleanValue(result)
	if err != nil {
		return false, wrapError(e.ast, err)
	}
	return ebv, nil
}

// EvaluateNodes evaluates the expression and requires every result item to
// be a node
func (e *Expression) EvaluateNodes(dyn *DynamicContext, contextItem item.Item) ([]item.Node, error) {
	result, err := e.Evaluate(dyn, contextItem)
	if err != nil {
		return nil, err
	}
	nodes := make([]item.Node, 0, result.Len())
	for _, it := range result.Items() {
		node, ok := it.(item.Node)
		if !ok {
			return nil, newEvaluationError(e.ast, cerrors.ErrTypeMismatch,
				"expression must select nodes, got %s", it.(item.AtomicItem).Type())
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// EvaluateString evaluates the expression and returns the string value of
// its first item, or "" when the result is empty
func (e *Expression) EvaluateString(dyn *DynamicContext, contextItem item.Item) (string, error) {
	result, err := e.Evaluate(dyn, contextItem)
	if err != nil {
		return "", err
	}
	if result.IsEmpty() {
		return "", nil
	}
	a, err := item.Atomize(result.First())
	if err != nil {
		return "", wrapError(e.ast, err)
	}
	return a.String(), nil
}

// EvaluateStrings evaluates the expression and returns the string value of
// every atomized result item
func (e *Expression) EvaluateStrings(dyn *DynamicContext, contextItem item.Item) ([]string, error) {
	result, err := e.Evaluate(dyn, contextItem)
	if err != nil {
		return nil, err
	}
	atomics, err := item.AtomizeSequence(result)
	if err != nil {
		return nil, wrapError(e.ast, err)
	}
	values := make([]string, len(atomics))
	for i, a := range atomics {
		values[i] = a.String()
	}
	return values, nil
}

// focus is the context item with its 1-based position in the sequence being
// processed and that sequence's size
type focus struct {
	item     item.Item
	position int
	size     int
}

type evaluator struct {
	expr *Expression
	dyn  *DynamicContext
}

func (ev *evaluator) eval(expr parser.Expr, f focus) (*item.Sequence, error) {
	switch e := expr.(type) {
	case *parser.ContextItemExpr:
		if f.item == nil {
			return nil, newEvaluationError(e, cerrors.ErrUndefinedFocus, "context item is undefined")
		}
		return item.Singleton(f.item), nil

	case *parser.ParentExpr:
		node, err := contextNode(e, f)
		if err != nil {
			return nil, err
		}
		if parent := node.ParentItem(); parent != nil {
			return item.Singleton(parent), nil
		}
		return item.Empty(), nil

	case *parser.RootExpr:
		node, err := contextNode(e, f)
		if err != nil {
			return nil, err
		}
		for node.ParentItem() != nil {
			node = node.ParentItem()
		}
		return item.Singleton(node), nil

	case *parser.StepExpr:
		node, err := contextNode(e, f)
		if err != nil {
			return nil, err
		}
		return step(e, node), nil

	case *parser.PathExpr:
		return ev.evalPath(e, f)

	case *parser.FilterExpr:
		seq, err := ev.eval(e.Base, f)
		if err != nil {
			return nil, err
		}
		for _, predicate := range e.Predicates {
			if seq, err = ev.filter(predicate, seq); err != nil {
				return nil, err
			}
		}
		return seq, nil

	case *parser.StringLiteral:
		return item.Singleton(item.NewString(e.Value)), nil

	case *parser.IntegerLiteral:
		v, err := item.ParseInteger(e.Value)
		if err != nil {
			return nil, wrapError(e, err)
		}
		return item.Singleton(v), nil

	case *parser.DecimalLiteral:
		v, err := item.ParseNumericLiteral(e.Value)
		if err != nil {
			return nil, wrapError(e, err)
		}
		return item.Singleton(v), nil

	case *parser.SequenceExpr:
		parts := make([]*item.Sequence, 0, len(e.Items))
		for _, it := range e.Items {
			seq, err := ev.eval(it, f)
			if err != nil {
				return nil, err
			}
			parts = append(parts, seq)
		}
		return item.Concat(parts...), nil

	case *parser.ValueComparisonExpr:
		left, right, err := ev.atomicOperands(e, e.Left, e.Right, f)
		if err != nil {
			return nil, err
		}
		if left == nil || right == nil {
			return item.Empty(), nil
		}
		result, err := item.Compare(compareOps[e.Operator], left, right)
		if err != nil {
			return nil, wrapError(e, err)
		}
		return boolean(result), nil

	case *parser.GeneralComparisonExpr:
		return ev.evalGeneralComparison(e, f)

	case *parser.ArithmeticExpr:
		left, right, err := ev.atomicOperands(e, e.Left, e.Right, f)
		if err != nil {
			return nil, err
		}
		if left == nil || right == nil {
			return item.Empty(), nil
		}
		result, err := item.Arithmetic(arithmeticOps[e.Operator], left, right)
		if err != nil {
			return nil, wrapError(e, err)
		}
		return item.Singleton(result), nil

	case *parser.IntegerDivisionExpr:
		left, right, err := ev.atomicOperands(e, e.Left, e.Right, f)
		if err != nil {
			return nil, err
		}
		if left == nil || right == nil {
			return item.Empty(), nil
		}
		result, err := item.IntegerDivide(left, right)
		if err != nil {
			return nil, wrapError(e, err)
		}
		return item.Singleton(result), nil

	case *parser.NegateExpr:
		operand, err := ev.atomicOperand(e, e.Operand, f)
		if err != nil {
			return nil, err
		}
		if operand == nil {
			return item.Empty(), nil
		}
		result, err := item.Negate(operand)
		if err != nil {
			return nil, wrapError(e, err)
		}
		return item.Singleton(result), nil

	case *parser.AndExpr:
		values, err := ev.booleans(e.Operands, f)
		if err != nil {
			return nil, err
		}
		result := true
		for _, v := range values {
			result = result && v
		}
		return boolean(result), nil

	case *parser.OrExpr:
		values, err := ev.booleans(e.Operands, f)
		if err != nil {
			return nil, err
		}
		result := false
		for _, v := range values {
			result = result || v
		}
		return boolean(result), nil

	case *parser.UnionExpr:
		parts := make([]*item.Sequence, 0, len(e.Operands))
		for _, operand := range e.Operands {
			seq, err := ev.eval(operand, f)
			if err != nil {
				return nil, err
			}
			if err := requireNodes(operand, seq); err != nil {
				return nil, err
			}
			parts = append(parts, seq)
		}
		return distinctNodes(item.Concat(parts...)), nil

	case *parser.FunctionCallExpr:
		return ev.evalFunctionCall(e, f)

	case *parser.CastExpr:
		return ev.evalCast(e, f)
	}

	return nil, newEvaluationError(expr, cerrors.ErrTypeMismatch, "unsupported expression %T", expr)
}

// contextNode returns the context item as a node
func contextNode(expr parser.Expr, f focus) (item.Node, error) {
	if f.item == nil {
		return nil, newEvaluationError(expr, cerrors.ErrUndefinedFocus, "context item is undefined")
	}
	node, ok := f.item.(item.Node)
	if !ok {
		return nil, newEvaluationError(expr, cerrors.ErrTypeMismatch,
			"path step requires a node as context item, got %s", f.item.(item.AtomicItem).Type())
	}
	return node, nil
}

// step selects the children of node on the step's axis
func step(e *parser.StepExpr, node item.Node) *item.Sequence {
	if e.Axis == parser.AxisFlag {
		if e.IsWildcard() {
			return item.FromNodes(node.FlagItems())
		}
		if flag := node.FlagItem(e.Name); flag != nil {
			return item.Singleton(flag)
		}
		return item.Empty()
	}
	if e.IsWildcard() {
		return item.FromNodes(node.ModelItems())
	}
	return item.FromNodes(node.ModelItemsNamed(e.Name))
}

func (ev *evaluator) evalPath(e *parser.PathExpr, f focus) (*item.Sequence, error) {
	left, err := ev.eval(e.Left, f)
	if err != nil {
		return nil, err
	}
	if err := requireNodes(e.Left, left); err != nil {
		return nil, err
	}
	if e.Descendant {
		left = descendantsOrSelf(left)
	}

	parts := make([]*item.Sequence, 0, left.Len())
	size := left.Len()
	for i, it := range left.Items() {
		seq, err := ev.eval(e.Right, focus{item: it, position: i + 1, size: size})
		if err != nil {
			return nil, err
		}
		parts = append(parts, seq)
	}
	result := item.Concat(parts...)

	nodes := 0
	for _, it := range result.Items() {
		if _, ok := it.(item.Node); ok {
			nodes++
		}
	}
	switch nodes {
	case 0:
		return result, nil
	case result.Len():
		return distinctNodes(result), nil
	}
	return nil, newEvaluationError(e, cerrors.ErrTypeMismatch, "path result mixes nodes and atomic values")
}

// descendantsOrSelf expands every node to itself followed by its model
// descendants, depth-first. Nodes reachable more than once, as happens below
// cycled nodes, are visited once.
func descendantsOrSelf(seq *item.Sequence) *item.Sequence {
	visited := make(map[item.Node]bool)
	var result []item.Node

	var visit func(node item.Node)
	visit = func(node item.Node) {
		if visited[node] {
			return
		}
		visited[node] = true
		result = append(result, node)
		for _, child := range node.ModelItems() {
			visit(child)
		}
	}
	for _, it := range seq.Items() {
		visit(it.(item.Node))
	}
	return item.FromNodes(result)
}

// distinctNodes removes repeated nodes and returns the rest in document
// order
func distinctNodes(seq *item.Sequence) *item.Sequence {
	if seq.Len() < 2 {
		return seq
	}
	seen := make(map[item.Node]bool, seq.Len())
	nodes := make([]item.Node, 0, seq.Len())
	for _, it := range seq.Items() {
		node := it.(item.Node)
		if !seen[node] {
			seen[node] = true
			nodes = append(nodes, node)
		}
	}
	return item.FromNodes(documentOrder(nodes))
}

func requireNodes(expr parser.Expr, seq *item.Sequence) error {
	for _, it := range seq.Items() {
		if _, ok := it.(item.Node); !ok {
			return newEvaluationError(expr, cerrors.ErrTypeMismatch,
				"expected nodes, got %s", it.(item.AtomicItem).Type())
		}
	}
	return nil
}

// filter keeps the items of seq for which predicate holds. A numeric
// predicate value selects by position, anything else by effective boolean
// value.
func (ev *evaluator) filter(predicate parser.Expr, seq *item.Sequence) (*item.Sequence, error) {
	size := seq.Len()
	kept := make([]item.Item, 0, size)
	for i, it := range seq.Items() {
		result, err := ev.eval(predicate, focus{item: it, position: i + 1, size: size})
		if err != nil {
			return nil, err
		}

		if result.Len() == 1 {
			if a, ok := result.First().(item.AtomicItem); ok {
				if d, ok := item.NumericValue(a); ok {
					if d.Cmp(apd.New(int64(i+1), 0)) == 0 {
						kept = append(kept, it)
					}
					continue
				}
			}
		}

		ebv, err := item.EffectiveBooleanValue(result)
		if err != nil {
			return nil, wrapError(predicate, err)
		}
		if ebv {
			kept = append(kept, it)
		}
	}
	return item.NewSequence(kept...), nil
}

// atomicOperand evaluates expr and atomizes it to at most one item. A nil
// item means the operand was empty.
func (ev *evaluator) atomicOperand(parent, expr parser.Expr, f focus) (item.AtomicItem, error) {
	seq, err := ev.eval(expr, f)
	if err != nil {
		return nil, err
	}
	switch seq.Len() {
	case 0:
		return nil, nil
	case 1:
		a, err := item.Atomize(seq.First())
		if err != nil {
			return nil, wrapError(expr, err)
		}
		return a, nil
	}
	return nil, newEvaluationError(parent, cerrors.ErrCardinality,
		"operand must be a single item, got a sequence of %d", seq.Len())
}

func (ev *evaluator) atomicOperands(parent, left, right parser.Expr, f focus) (item.AtomicItem, item.AtomicItem, error) {
	l, err := ev.atomicOperand(parent, left, f)
	if err != nil {
		return nil, nil, err
	}
	r, err := ev.atomicOperand(parent, right, f)
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

func (ev *evaluator) evalGeneralComparison(e *parser.GeneralComparisonExpr, f focus) (*item.Sequence, error) {
	left, err := ev.atomized(e.Left, f)
	if err != nil {
		return nil, err
	}
	right, err := ev.atomized(e.Right, f)
	if err != nil {
		return nil, err
	}
	if len(left) == 0 || len(right) == 0 {
		return item.Empty(), nil
	}

	op := compareOps[e.Operator]
	for _, l := range left {
		for _, r := range right {
			ok, err := item.Compare(op, l, r)
			if err != nil {
				return nil, wrapError(e, err)
			}
			if ok {
				return boolean(true), nil
			}
		}
	}
	return boolean(false), nil
}

func (ev *evaluator) atomized(expr parser.Expr, f focus) ([]item.AtomicItem, error) {
	seq, err := ev.eval(expr, f)
	if err != nil {
		return nil, err
	}
	atomics, err := item.AtomizeSequence(seq)
	if err != nil {
		return nil, wrapError(expr, err)
	}
	return atomics, nil
}

// booleans evaluates every operand to its effective boolean value. All
// operands are evaluated, so an error in any operand is reported.
func (ev *evaluator) booleans(operands []parser.Expr, f focus) ([]bool, error) {
	values := make([]bool, len(operands))
	for i, operand := range operands {
		seq, err := ev.eval(operand, f)
		if err != nil {
			return nil, err
		}
		if values[i], err = item.EffectiveBooleanValue(seq); err != nil {
			return nil, wrapError(operand, err)
		}
	}
	return values, nil
}

func (ev *evaluator) evalFunctionCall(e *parser.FunctionCallExpr, f focus) (*item.Sequence, error) {
	fn := ev.expr.calls[e]
	args := make([]*item.Sequence, len(e.Arguments))
	for i, argExpr := range e.Arguments {
		seq, err := ev.eval(argExpr, f)
		if err != nil {
			return nil, err
		}
		if args[i], err = convertArgument(e, fn, i, seq); err != nil {
			return nil, err
		}
	}

	call := &Call{Dynamic: ev.dyn, Focus: f.item, Position: f.position, Size: f.size}
	result, err := fn.Handler(call, args)
	if err != nil {
		return nil, wrapError(e, err)
	}
	if result == nil {
		return item.Empty(), nil
	}
	return result, nil
}

// convertArgument applies the declared parameter type and occurrence to an
// argument value
func convertArgument(call *parser.FunctionCallExpr, fn *Function, i int, seq *item.Sequence) (*item.Sequence, error) {
	param := fn.parameter(i)

	if param.Type != AnyItem {
		atomics, err := item.AtomizeSequence(seq)
		if err != nil {
			return nil, wrapError(call.Arguments[i], err)
		}
		for j, a := range atomics {
			switch param.Type {
			case StringArgument:
				if a.Type() != item.TypeString {
					atomics[j] = item.NewString(a.String())
				}
			case NumericArgument:
				if !a.Type().IsNumeric() {
					if !a.Type().IsStringLike() {
						return nil, newEvaluationError(call.Arguments[i], cerrors.ErrTypeMismatch,
							"argument %d of %s() must be numeric, got %s", i+1, fn.Name, a.Type())
					}
					if atomics[j], err = item.Cast(a, item.TypeDecimal); err != nil {
						return nil, wrapError(call.Arguments[i], err)
					}
				}
			}
		}
		seq = item.FromAtomics(atomics)
	}

	if !param.Occurrence.accepts(seq.Len()) {
		return nil, newEvaluationError(call.Arguments[i], cerrors.ErrCardinality,
			"argument %d of %s() accepts %s, got %d items", i+1, fn.Name, describeOccurrence(param.Occurrence), seq.Len())
	}
	return seq, nil
}

func describeOccurrence(o Occurrence) string {
	switch o {
	case One:
		return "exactly one item"
	case ZeroOrOne:
		return "at most one item"
	case OneOrMore:
		return "at least one item"
	default:
		return "any number of items"
	}
}

func (ev *evaluator) evalCast(e *parser.CastExpr, f focus) (*item.Sequence, error) {
	operand, err := ev.atomicOperand(e, e.Operand, f)
	if err != nil {
		return nil, err
	}
	if operand == nil {
		if e.AllowEmpty {
			return item.Empty(), nil
		}
		return nil, newEvaluationError(e, cerrors.ErrCardinality, "cannot cast the empty sequence to %s", e.TypeName)
	}

	target := ev.expr.casts[e]
	result, err := item.Cast(operand, target.atomic)
	if err != nil {
		return nil, wrapError(e, err)
	}
	if target.adapter != nil {
		if result, err = target.adapter.Parse(result.String()); err != nil {
			return nil, wrapError(e, fmt.Errorf("%w: %v", item.ErrInvalidCast, err))
		}
	}
	return item.Singleton(result), nil
}

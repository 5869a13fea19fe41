package item

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// decimalContext carries decimal128 precision for decimal arithmetic
var decimalContext = apd.BaseContext.WithPrecision(34)

// integerContext returns a context wide enough to hold any sum, difference,
// product, remainder or truncated quotient of the operands exactly
func integerContext(operands ...*apd.Decimal) *apd.Context {
	precision := int64(decimalContext.Precision)
	var digits int64 = 1
	for _, d := range operands {
		digits += d.NumDigits()
		if d.Exponent > 0 {
			digits += int64(d.Exponent)
		}
	}
	if digits > precision {
		precision = digits
	}
	return apd.BaseContext.WithPrecision(uint32(precision))
}

// ArithmeticOp is a binary numeric operator
type ArithmeticOp int

const (
	OpAdd ArithmeticOp = iota
	OpSubtract
	OpMultiply
	OpModulo
)

// String returns the operator symbol
func (op ArithmeticOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "*"
	case OpModulo:
		return "mod"
	}
	return "?"
}

// Arithmetic applies op to two numeric items. The result is an integer when
// both operands are integers and a decimal otherwise.
func Arithmetic(op ArithmeticOp, a, b AtomicItem) (AtomicItem, error) {
	da, db, err := numericOperands(a, b)
	if err != nil {
		return nil, err
	}

	integers := a.Type() == TypeInteger && b.Type() == TypeInteger
	ctx := decimalContext
	if integers {
		ctx = integerContext(da, db)
	}

	result := new(apd.Decimal)
	switch op {
	case OpAdd:
		_, err = ctx.Add(result, da, db)
	case OpSubtract:
		_, err = ctx.Sub(result, da, db)
	case OpMultiply:
		_, err = ctx.Mul(result, da, db)
	case OpModulo:
		if db.IsZero() {
			return nil, fmt.Errorf("%w: %s mod %s", ErrDivisionByZero, a, b)
		}
		_, err = ctx.Rem(result, da, db)
	default:
		return nil, fmt.Errorf("unknown arithmetic operator %d", op)
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s %s: %w", a, op, b, err)
	}

	if integers {
		return IntegerItem{value: result}, nil
	}
	return DecimalItem{value: result}, nil
}

// IntegerDivide divides a by b and truncates the quotient toward zero.
func IntegerDivide(a, b AtomicItem) (IntegerItem, error) {
	da, db, err := numericOperands(a, b)
	if err != nil {
		return IntegerItem{}, err
	}
	if db.IsZero() {
		return IntegerItem{}, fmt.Errorf("%w: %s div %s", ErrDivisionByZero, a, b)
	}
	result := new(apd.Decimal)
	if _, err := integerContext(da, db).QuoInteger(result, da, db); err != nil {
		return IntegerItem{}, fmt.Errorf("%s div %s: %w", a, b, err)
	}
	return IntegerItem{value: result}, nil
}

// Negate returns the arithmetic negation of a numeric item
func Negate(a AtomicItem) (AtomicItem, error) {
	d, ok := NumericValue(a)
	if !ok {
		return nil, fmt.Errorf("%w: cannot negate %s", ErrTypeMismatch, a.Type())
	}
	result := new(apd.Decimal).Neg(d)
	if a.Type() == TypeInteger {
		return IntegerItem{value: result}, nil
	}
	return DecimalItem{value: result}, nil
}

// Sum adds numeric items, returning integer 0 for no items
func Sum(items []AtomicItem) (AtomicItem, error) {
	var total AtomicItem = NewInteger(0)
	for _, it := range items {
		var err error
		if total, err = Arithmetic(OpAdd, total, it); err != nil {
			return nil, err
		}
	}
	return total, nil
}

func numericOperands(a, b AtomicItem) (*apd.Decimal, *apd.Decimal, error) {
	da, ok := NumericValue(a)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s is not numeric", ErrTypeMismatch, a.Type())
	}
	db, ok := NumericValue(b)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s is not numeric", ErrTypeMismatch, b.Type())
	}
	return da, db, nil
}

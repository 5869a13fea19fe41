package item

import "errors"

var (
	// ErrTypeMismatch is returned when an operand has the wrong type
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrDivisionByZero is returned by integer division and modulo with a zero divisor
	ErrDivisionByZero = errors.New("division by zero")
	// ErrInvalidCast is returned when a value cannot be converted to the target type
	ErrInvalidCast = errors.New("invalid cast")
	// ErrNotComparable is returned when two values have no defined ordering
	ErrNotComparable = errors.New("values are not comparable")
	// ErrInvalidBooleanValue is returned when a sequence has no effective boolean value
	ErrInvalidBooleanValue = errors.New("sequence has no effective boolean value")
	// ErrNoValue is returned when atomizing a node that carries no value
	ErrNoValue = errors.New("node has no value")
)

package item

import (
	"fmt"
	"strings"
	"time"
)

// CompareOp is a comparison operator shared by value and general comparisons
type CompareOp int

const (
	OpEqual CompareOp = iota
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
)

// Compare applies op to a and b. A string operand compared with a typed
// operand is cast to the other operand's type first.
func Compare(op CompareOp, a, b AtomicItem) (bool, error) {
	cmp, err := compareValues(a, b)
	if err != nil {
		return false, err
	}
	switch op {
	case OpEqual:
		return cmp == 0, nil
	case OpNotEqual:
		return cmp != 0, nil
	case OpLess:
		return cmp < 0, nil
	case OpLessEqual:
		return cmp <= 0, nil
	case OpGreater:
		return cmp > 0, nil
	case OpGreaterEqual:
		return cmp >= 0, nil
	}
	return false, fmt.Errorf("unknown comparison operator %d", op)
}

func compareValues(a, b AtomicItem) (int, error) {
	a, b, err := promote(a, b)
	if err != nil {
		return 0, err
	}

	if da, ok := NumericValue(a); ok {
		if db, ok := NumericValue(b); ok {
			return da.Cmp(db), nil
		}
	}

	at, bt := a.Type(), b.Type()
	switch {
	case at.IsStringLike() && bt.IsStringLike():
		return strings.Compare(a.String(), b.String()), nil
	case at == TypeBoolean && bt == TypeBoolean:
		av, bv := a.(BooleanItem).value, b.(BooleanItem).value
		switch {
		case av == bv:
			return 0, nil
		case !av:
			return -1, nil
		default:
			return 1, nil
		}
	case at.IsTemporal() && bt.IsTemporal():
		return compareInstants(instant(a), instant(b)), nil
	}
	return 0, fmt.Errorf("%w: %s and %s", ErrNotComparable, at, bt)
}

// promote casts a string operand to the type of the other operand.
func promote(a, b AtomicItem) (AtomicItem, AtomicItem, error) {
	at, bt := a.Type(), b.Type()
	if at == bt || (at.IsStringLike() && bt.IsStringLike()) || (at.IsNumeric() && bt.IsNumeric()) {
		return a, b, nil
	}
	var err error
	switch {
	case at == TypeString:
		a, err = Cast(a, bt)
	case bt == TypeString:
		b, err = Cast(b, at)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
	}
	return a, b, nil
}

func instant(a AtomicItem) time.Time {
	switch v := a.(type) {
	case DateItem:
		return v.value
	case DateTimeItem:
		return v.value
	}
	return time.Time{}
}

func compareInstants(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

package item

import "fmt"

// Atomize returns the typed value of it
func Atomize(it Item) (AtomicItem, error) {
	switch v := it.(type) {
	case AtomicItem:
		return v, nil
	case Node:
		return v.Atomize()
	}
	return nil, fmt.Errorf("%w: cannot atomize %T", ErrTypeMismatch, it)
}

// AtomizeSequence atomizes every item of s in order
func AtomizeSequence(s *Sequence) ([]AtomicItem, error) {
	if s.IsEmpty() {
		return nil, nil
	}
	result := make([]AtomicItem, 0, s.Len())
	for _, it := range s.Items() {
		a, err := Atomize(it)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, nil
}

// EffectiveBooleanValue reduces a sequence to a boolean: empty is false, a
// sequence starting with a node is true, and a single atomic item is true
// when it is true, a non-empty string or a non-zero number.
func EffectiveBooleanValue(s *Sequence) (bool, error) {
	if s.IsEmpty() {
		return false, nil
	}
	first := s.First()
	if _, ok := first.(Node); ok {
		return true, nil
	}
	if s.Len() > 1 {
		return false, fmt.Errorf("%w: sequence of %d atomic items", ErrInvalidBooleanValue, s.Len())
	}

	a := first.(AtomicItem)
	if b, ok := a.(BooleanItem); ok {
		return b.value, nil
	}
	if d, ok := NumericValue(a); ok {
		return !d.IsZero(), nil
	}
	if a.Type().IsStringLike() {
		return a.String() != "", nil
	}
	return false, fmt.Errorf("%w: %s", ErrInvalidBooleanValue, a.Type())
}

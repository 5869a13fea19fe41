package constraint

import (
	"fmt"
	"sync"
)

// Set holds the constraints attached to one definition in attachment order.
// Constraints may be added until validation starts; reads are safe from
// several goroutines.
type Set struct {
	constraints []Constraint
	mu          sync.RWMutex
}

// NewSet creates a set containing constraints
func NewSet(constraints ...Constraint) (*Set, error) {
	s := &Set{}
	for _, c := range constraints {
		if err := s.Add(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add validates c and appends it to the set
func (s *Set) Add(c Constraint) error {
	if c == nil {
		return fmt.Errorf("constraint is nil")
	}
	if err := Validate(c); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.constraints = append(s.constraints, c)
	return nil
}

// Len returns the number of constraints
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.constraints)
}

// All returns a copy of the constraints in attachment order
func (s *Set) All() []Constraint {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Constraint, len(s.constraints))
	copy(result, s.constraints)
	return result
}

// OfKind returns the constraints of one kind in attachment order
func (s *Set) OfKind(kind Kind) []Constraint {
	var result []Constraint
	for _, c := range s.All() {
		if c.Kind() == kind {
			result = append(result, c)
		}
	}
	return result
}

// AllowedValues returns the allowed-values constraints
func (s *Set) AllowedValues() []*AllowedValues {
	return ofType[*AllowedValues](s)
}

// Matches returns the matches constraints
func (s *Set) Matches() []*Matches {
	return ofType[*Matches](s)
}

// Unique returns the unique constraints
func (s *Set) Unique() []*Unique {
	return ofType[*Unique](s)
}

// Indexes returns the index constraints
func (s *Set) Indexes() []*Index {
	return ofType[*Index](s)
}

// IndexHasKey returns the index-has-key constraints
func (s *Set) IndexHasKey() []*IndexHasKey {
	return ofType[*IndexHasKey](s)
}

// Cardinality returns the cardinality constraints
func (s *Set) Cardinality() []*Cardinality {
	return ofType[*Cardinality](s)
}

// Expect returns the expect constraints
func (s *Set) Expect() []*Expect {
	return ofType[*Expect](s)
}

func ofType[T Constraint](s *Set) []T {
	var result []T
	for _, c := range s.All() {
		if typed, ok := c.(T); ok {
			result = append(result, typed)
		}
	}
	return result
}

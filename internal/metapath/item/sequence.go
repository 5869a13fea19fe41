package item

// Sequence is an immutable ordered collection of items. A nil *Sequence
// behaves as the empty sequence.
type Sequence struct {
	items []Item
}

var emptySequence = &Sequence{}

// Empty returns the canonical empty sequence
func Empty() *Sequence {
	return emptySequence
}

// NewSequence creates a sequence holding a copy of items
func NewSequence(items ...Item) *Sequence {
	if len(items) == 0 {
		return emptySequence
	}
	copied := make([]Item, len(items))
	copy(copied, items)
	return &Sequence{items: copied}
}

// Singleton creates a sequence holding exactly one item
func Singleton(it Item) *Sequence {
	return &Sequence{items: []Item{it}}
}

// sequenceOf adopts items without copying; callers hand over ownership.
func sequenceOf(items []Item) *Sequence {
	if len(items) == 0 {
		return emptySequence
	}
	return &Sequence{items: items}
}

// FromNodes creates a sequence of node items
func FromNodes(nodes []Node) *Sequence {
	items := make([]Item, len(nodes))
	for i, n := range nodes {
		items[i] = n
	}
	return sequenceOf(items)
}

// FromAtomics creates a sequence of atomic items
func FromAtomics(atomics []AtomicItem) *Sequence {
	items := make([]Item, len(atomics))
	for i, a := range atomics {
		items[i] = a
	}
	return sequenceOf(items)
}

// Concat joins sequences in order
func Concat(seqs ...*Sequence) *Sequence {
	total := 0
	for _, s := range seqs {
		total += s.Len()
	}
	if total == 0 {
		return emptySequence
	}
	items := make([]Item, 0, total)
	for _, s := range seqs {
		if s != nil {
			items = append(items, s.items...)
		}
	}
	return &Sequence{items: items}
}

// Len returns the number of items
func (s *Sequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// IsEmpty reports whether the sequence has no items
func (s *Sequence) IsEmpty() bool {
	return s.Len() == 0
}

// Items returns the items of the sequence. The slice must not be modified.
func (s *Sequence) Items() []Item {
	if s == nil {
		return nil
	}
	return s.items
}

// At returns the item at the zero-based index i
func (s *Sequence) At(i int) Item {
	return s.items[i]
}

// First returns the first item or nil
func (s *Sequence) First() Item {
	if s.IsEmpty() {
		return nil
	}
	return s.items[0]
}

// Equal reports whether both sequences hold equal items in the same order.
// Nodes are equal by identity, atomic items by type and value. All empty
// sequences are equal.
func (s *Sequence) Equal(other *Sequence) bool {
	if s.Len() != other.Len() {
		return false
	}
	for i := 0; i < s.Len(); i++ {
		if !itemsEqual(s.items[i], other.items[i]) {
			return false
		}
	}
	return true
}

func itemsEqual(a, b Item) bool {
	switch av := a.(type) {
	case Node:
		bv, ok := b.(Node)
		return ok && av == bv
	case AtomicItem:
		bv, ok := b.(AtomicItem)
		if !ok || av.Type() != bv.Type() {
			return false
		}
		cmp, err := compareValues(av, bv)
		return err == nil && cmp == 0
	}
	return false
}

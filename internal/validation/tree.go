package validation

import (
	"github.com/metaschema-go/metaschema/internal/nodeitem"
)

// ValidateTree validates root and every node below it depth-first, then
// finalizes the validator
func (v *Validator) ValidateTree(root *nodeitem.Node) error {
	err := nodeitem.Walk(root, func(node *nodeitem.Node) error {
		return v.Validate(node)
	})
	if err != nil {
		return err
	}
	return v.FinalizeValidation()
}

// Run validates a whole tree with a fresh validator and returns the
// collected findings
func Run(root *nodeitem.Node, opts ...Option) (*Collector, error) {
	collector := NewCollector()
	if err := New(collector, opts...).ValidateTree(root); err != nil {
		return nil, err
	}
	return collector, nil
}

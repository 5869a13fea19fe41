package constraint

import (
	"strings"

	"github.com/metaschema-go/metaschema/internal/metapath"
	"github.com/metaschema-go/metaschema/internal/metapath/item"
)

// Key is the ordered list of key components computed for one target. An
// absent component is the empty string.
type Key []string

// Lookup returns a string usable as a map key
func (k Key) Lookup() string {
	return strings.Join(k, "\x00")
}

// String returns the components joined for display
func (k Key) String() string {
	return "{" + strings.Join(k, ", ") + "}"
}

// IsEmpty reports whether every component is absent
func (k Key) IsEmpty() bool {
	for _, component := range k {
		if component != "" {
			return false
		}
	}
	return true
}

// ComputeKey evaluates each key field against target. A field selecting
// nothing, or whose pattern matches none of its values, yields an absent
// component. A field selecting several items yields their values, each
// passed through the pattern, joined by a single space.
func ComputeKey(dyn *metapath.DynamicContext, target item.Item, fields []KeyField) (Key, error) {
	key := make(Key, len(fields))
	for i, field := range fields {
		values, err := field.Target.EvaluateStrings(dyn, target)
		if err != nil {
			return nil, err
		}
		parts := make([]string, 0, len(values))
		for _, value := range values {
			if field.Pattern != nil && value != "" {
				extracted, ok := field.Pattern.extract(value)
				if !ok {
					continue
				}
				value = extracted
			}
			if value != "" {
				parts = append(parts, value)
			}
		}
		key[i] = strings.Join(parts, " ")
	}
	return key, nil
}

// Package validation checks node-item trees against the constraints
// attached to their definitions and reports violations as findings.
package validation

import (
	"encoding/json"
	"fmt"

	"github.com/metaschema-go/metaschema/internal/constraint"
	"github.com/metaschema-go/metaschema/internal/metapath/item"
)

// Finding is one constraint violation, or one constraint that could not be
// evaluated (Level is constraint.LevelInvalidConstraint and Cause is set)
type Finding struct {
	Constraint constraint.Constraint
	Kind       constraint.Kind
	Level      constraint.Level
	// Target is the node the violation is about, Context the node whose
	// definition carries the constraint.
	Target  item.Node
	Context item.Node
	Path    string
	Message string
	Cause   error
}

// ConstraintID returns the id of the violated constraint, or ""
func (f Finding) ConstraintID() string {
	if f.Constraint == nil {
		return ""
	}
	return f.Constraint.Meta().ID
}

// String formats the finding on one line
func (f Finding) String() string {
	return fmt.Sprintf("[%s] %s: %s", f.Level, f.Path, f.Message)
}

// MarshalJSON implements json.Marshaler
func (f Finding) MarshalJSON() ([]byte, error) {
	out := struct {
		Level      string `json:"level"`
		Kind       string `json:"kind"`
		Constraint string `json:"constraint,omitempty"`
		Path       string `json:"path"`
		Message    string `json:"message"`
		Cause      string `json:"cause,omitempty"`
	}{
		Level:      f.Level.String(),
		Kind:       f.Kind.String(),
		Constraint: f.ConstraintID(),
		Path:       f.Path,
		Message:    f.Message,
	}
	if f.Cause != nil {
		out.Cause = f.Cause.Error()
	}
	return json.Marshal(out)
}

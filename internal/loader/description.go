package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// unbounded is the lexical form of an open upper bound
const unbounded = "unbounded"

// Description is the decoded form of a schema description file
type Description struct {
	Name        string                `json:"name"`
	Namespace   string                `json:"namespace,omitempty"`
	Flags       []FlagDescription     `json:"flags,omitempty"`
	Fields      []FieldDescription    `json:"fields,omitempty"`
	Assemblies  []AssemblyDescription `json:"assemblies,omitempty"`
	Constraints []TargetedConstraints `json:"constraints,omitempty"`
}

// DefinitionDescription holds what every definition kind declares
type DefinitionDescription struct {
	Name        string `json:"name"`
	FormalName  string `json:"formal-name,omitempty"`
	Description string `json:"description,omitempty"`
	UseName     string `json:"use-name,omitempty"`
}

// FlagDescription declares a flag definition
type FlagDescription struct {
	DefinitionDescription
	Type        string                  `json:"type,omitempty"`
	Constraints []ConstraintDescription `json:"constraints,omitempty"`
}

// FieldDescription declares a field definition
type FieldDescription struct {
	DefinitionDescription
	Type         string                  `json:"type,omitempty"`
	JSONValueKey string                  `json:"json-value-key,omitempty"`
	Flags        []FlagReference         `json:"flags,omitempty"`
	Constraints  []ConstraintDescription `json:"constraints,omitempty"`
}

// AssemblyDescription declares an assembly definition
type AssemblyDescription struct {
	DefinitionDescription
	RootName    string                  `json:"root-name,omitempty"`
	Flags       []FlagReference         `json:"flags,omitempty"`
	Model       []ModelReference        `json:"model,omitempty"`
	Constraints []ConstraintDescription `json:"constraints,omitempty"`
}

// FlagReference places a flag definition on a field or assembly
type FlagReference struct {
	Ref      string `json:"ref"`
	UseName  string `json:"use-name,omitempty"`
	Required bool   `json:"required,omitempty"`
}

// ModelReference places a field or assembly definition in an assembly's
// model. Exactly one of Assembly and Field is set.
type ModelReference struct {
	Assembly  string              `json:"assembly,omitempty"`
	Field     string              `json:"field,omitempty"`
	UseName   string              `json:"use-name,omitempty"`
	MinOccurs *int                `json:"min-occurs,omitempty"`
	MaxOccurs *Occurs             `json:"max-occurs,omitempty"`
	GroupAs   *GroupAsDescription `json:"group-as,omitempty"`
}

// GroupAsDescription names the JSON property of repeated occurrences
type GroupAsDescription struct {
	Name   string `json:"name"`
	InJSON string `json:"in-json,omitempty"`
}

// KeyFieldDescription declares one component of an index or unique key
type KeyFieldDescription struct {
	Target  string `json:"target"`
	Pattern string `json:"pattern,omitempty"`
	Remarks string `json:"remarks,omitempty"`
}

// AllowedValueDescription is one enumerated value
type AllowedValueDescription struct {
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// ConstraintDescription declares one constraint. Type selects the kind and
// decides which of the remaining properties apply.
type ConstraintDescription struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Level   string `json:"level,omitempty"`
	Target  string `json:"target,omitempty"`
	Remarks string `json:"remarks,omitempty"`

	Values      []AllowedValueDescription `json:"values,omitempty"`
	AllowOthers bool                      `json:"allow-others,omitempty"`

	Pattern  string `json:"pattern,omitempty"`
	DataType string `json:"datatype,omitempty"`

	Name      string                `json:"name,omitempty"`
	Index     string                `json:"index,omitempty"`
	KeyFields []KeyFieldDescription `json:"key-fields,omitempty"`

	MinOccurs *int    `json:"min-occurs,omitempty"`
	MaxOccurs *Occurs `json:"max-occurs,omitempty"`

	Test    string `json:"test,omitempty"`
	Message string `json:"message,omitempty"`
}

// TargetedConstraints attaches constraints to a definition named by kind
// and name
type TargetedConstraints struct {
	Definition  string                  `json:"definition"`
	Kind        string                  `json:"kind,omitempty"`
	Constraints []ConstraintDescription `json:"constraints"`
}

// ConstraintSetDescription is the decoded form of an external constraint
// file
type ConstraintSetDescription struct {
	Name    string                `json:"name,omitempty"`
	Targets []TargetedConstraints `json:"targets"`
}

// Occurs is an occurrence bound. Unbounded is stored as -1.
type Occurs int

// UnmarshalJSON accepts a non-negative integer or "unbounded"
func (o *Occurs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if !strings.EqualFold(s, unbounded) {
			return fmt.Errorf("invalid occurrence bound %q", s)
		}
		*o = -1
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid occurrence bound %s", data)
	}
	*o = Occurs(n)
	return nil
}

// MarshalJSON writes "unbounded" for an open bound
func (o Occurs) MarshalJSON() ([]byte, error) {
	if o < 0 {
		return json.Marshal(unbounded)
	}
	return json.Marshal(int(o))
}

// Package docs generates Markdown reference documentation for a schema:
// an index of its definitions and one page per definition with its flags,
// model, constraints and an example JSON value.
package docs

// Config holds configuration for documentation generation
type Config struct {
	// Title heads the index page. It defaults to the schema name.
	Title string

	// OutputDir receives README.md and the definition pages
	OutputDir string

	// Examples adds an example JSON value to each assembly and field page
	Examples bool
}

// Documentation is the documentation extracted from one schema
type Documentation struct {
	Title       string
	Schema      string
	Namespace   string
	Definitions []*DefinitionDoc
}

// DefinitionDoc documents one definition
type DefinitionDoc struct {
	Kind        string
	Name        string
	FormalName  string
	Description string
	RootName    string

	// DataType is empty for assemblies
	DataType     string
	JSONValueKey string

	Flags       []*InstanceDoc
	Model       []*InstanceDoc
	Constraints []*ConstraintDoc

	// UsedBy lists the pages of definitions with an instance of this one
	UsedBy []string

	// Example is nil unless Config.Examples is set
	Example any
}

// Page returns the file name of the definition's page
func (d *DefinitionDoc) Page() string {
	return pageName(d.Kind, d.Name)
}

// Title returns the formal name, or the name when there is none
func (d *DefinitionDoc) Title() string {
	if d.FormalName != "" {
		return d.FormalName
	}
	return d.Name
}

// InstanceDoc documents a flag or model instance within its parent
type InstanceDoc struct {
	Name       string
	Kind       string
	Definition string
	JSONName   string
	Occurs     string
	Required   bool
	GroupAs    string
}

// Page returns the file name of the instance definition's page
func (i *InstanceDoc) Page() string {
	return pageName(i.Kind, i.Definition)
}

// ConstraintDoc documents one constraint
type ConstraintDoc struct {
	ID     string
	Kind   string
	Level  string
	Source string
	Target string
	// Detail summarizes the kind-specific properties
	Detail  string
	Remarks string
}

func pageName(kind, name string) string {
	return kind + "-" + name + ".md"
}

package docs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/metaschema-go/metaschema/internal/model"
)

// MarkdownGenerator generates Markdown documentation
type MarkdownGenerator struct {
	config *Config
}

// NewMarkdownGenerator creates a new Markdown generator
func NewMarkdownGenerator(config *Config) *MarkdownGenerator {
	return &MarkdownGenerator{
		config: config,
	}
}

// Generate extracts the documentation of schema and writes it to the
// output directory. It returns the files written.
func Generate(schema *model.Schema, config *Config) ([]string, error) {
	doc := NewExtractor(config).Extract(schema, config.Title)
	return NewMarkdownGenerator(config).Generate(doc)
}

// Generate writes README.md and one page per definition. It returns the
// files written.
func (g *MarkdownGenerator) Generate(doc *Documentation) ([]string, error) {
	if err := os.MkdirAll(g.config.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var written []string
	write := func(name, content string) error {
		path := filepath.Join(g.config.OutputDir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
		return nil
	}

	if err := write("README.md", g.RenderIndex(doc)); err != nil {
		return written, err
	}
	for _, def := range doc.Definitions {
		if err := write(def.Page(), g.RenderDefinition(def)); err != nil {
			return written, err
		}
	}
	return written, nil
}

// RenderIndex renders the index page
func (g *MarkdownGenerator) RenderIndex(doc *Documentation) string {
	var buf strings.Builder

	buf.WriteString(fmt.Sprintf("# %s\n\n", doc.Title))
	if doc.Namespace != "" {
		buf.WriteString(fmt.Sprintf("**Namespace:** `%s`\n\n", doc.Namespace))
	}

	var roots []*DefinitionDoc
	for _, def := range doc.Definitions {
		if def.RootName != "" {
			roots = append(roots, def)
		}
	}
	if len(roots) > 0 {
		buf.WriteString("## Document roots\n\n")
		for _, def := range roots {
			buf.WriteString(fmt.Sprintf("- `%s`: [%s](%s)\n", def.RootName, def.Title(), def.Page()))
		}
		buf.WriteString("\n")
	}

	for _, kind := range documentedKinds {
		var defs []*DefinitionDoc
		for _, def := range doc.Definitions {
			if def.Kind == kind.String() {
				defs = append(defs, def)
			}
		}
		if len(defs) == 0 {
			continue
		}

		buf.WriteString(fmt.Sprintf("## %s\n\n", pluralTitle(kind)))
		buf.WriteString("| Name | Formal Name | Constraints |\n")
		buf.WriteString("|------|-------------|-------------|\n")
		for _, def := range defs {
			buf.WriteString(fmt.Sprintf("| [`%s`](%s) | %s | %d |\n",
				def.Name, def.Page(), orDash(def.FormalName), len(def.Constraints)))
		}
		buf.WriteString("\n")
	}

	return buf.String()
}

// RenderDefinition renders the page of one definition
func (g *MarkdownGenerator) RenderDefinition(def *DefinitionDoc) string {
	var buf strings.Builder

	buf.WriteString(fmt.Sprintf("# %s\n\n", def.Title()))
	if def.Description != "" {
		buf.WriteString(fmt.Sprintf("> %s\n\n", def.Description))
	}

	buf.WriteString(fmt.Sprintf("- **Kind:** %s\n", def.Kind))
	buf.WriteString(fmt.Sprintf("- **Name:** `%s`\n", def.Name))
	if def.RootName != "" {
		buf.WriteString(fmt.Sprintf("- **Root name:** `%s`\n", def.RootName))
	}
	if def.DataType != "" {
		buf.WriteString(fmt.Sprintf("- **Data type:** `%s`\n", def.DataType))
	}
	if def.JSONValueKey != "" {
		buf.WriteString(fmt.Sprintf("- **JSON value key:** `%s`\n", def.JSONValueKey))
	}
	buf.WriteString("\n")

	if len(def.Flags) > 0 {
		buf.WriteString("## Flags\n\n")
		writeInstances(&buf, def.Flags, false)
	}
	if len(def.Model) > 0 {
		buf.WriteString("## Model\n\n")
		writeInstances(&buf, def.Model, true)
	}

	if len(def.Constraints) > 0 {
		buf.WriteString("## Constraints\n\n")
		buf.WriteString("| ID | Kind | Level | Target | Details |\n")
		buf.WriteString("|----|------|-------|--------|---------|\n")
		for _, c := range def.Constraints {
			buf.WriteString(fmt.Sprintf("| %s | %s | %s | `%s` | %s |\n",
				orDash(c.ID), c.Kind, c.Level, escapeCell(c.Target), escapeCell(orDash(c.Detail))))
		}
		buf.WriteString("\n")

		for _, c := range def.Constraints {
			if c.Remarks != "" && c.ID != "" {
				buf.WriteString(fmt.Sprintf("**%s:** %s\n\n", c.ID, c.Remarks))
			}
		}
	}

	if def.Example != nil {
		buf.WriteString("## Example\n\n")
		buf.WriteString("```json\n")
		exampleJSON, _ := json.MarshalIndent(def.Example, "", "  ")
		buf.WriteString(string(exampleJSON))
		buf.WriteString("\n```\n\n")
	}

	if len(def.UsedBy) > 0 {
		buf.WriteString("## Used by\n\n")
		for _, page := range def.UsedBy {
			buf.WriteString(fmt.Sprintf("- [%s](%s)\n", strings.TrimSuffix(page, ".md"), page))
		}
		buf.WriteString("\n")
	}

	return buf.String()
}

func writeInstances(buf *strings.Builder, instances []*InstanceDoc, model bool) {
	if model {
		buf.WriteString("| Name | Definition | JSON Name | Occurs | Group As |\n")
		buf.WriteString("|------|------------|-----------|--------|----------|\n")
	} else {
		buf.WriteString("| Name | Definition | Required |\n")
		buf.WriteString("|------|------------|----------|\n")
	}
	for _, inst := range instances {
		link := fmt.Sprintf("[%s %s](%s)", inst.Kind, inst.Definition, inst.Page())
		if model {
			buf.WriteString(fmt.Sprintf("| `%s` | %s | `%s` | %s | %s |\n",
				inst.Name, link, inst.JSONName, inst.Occurs, orDash(inst.GroupAs)))
			continue
		}
		required := "No"
		if inst.Required {
			required = "Yes"
		}
		buf.WriteString(fmt.Sprintf("| `%s` | %s | %s |\n", inst.Name, link, required))
	}
	buf.WriteString("\n")
}

func pluralTitle(kind model.Kind) string {
	name := kind.String()
	return strings.ToUpper(name[:1]) + name[1:] + "s"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// escapeCell keeps pipes in expressions from splitting table cells
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

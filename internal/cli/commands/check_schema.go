package commands

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/metaschema-go/metaschema/internal/cli/config"
	"github.com/metaschema-go/metaschema/internal/cli/ui"
	"github.com/metaschema-go/metaschema/internal/model"
	"github.com/metaschema-go/metaschema/internal/nodeitem"
)

// NewCheckSchemaCommand creates the check-schema command
func NewCheckSchemaCommand(e *env) *cobra.Command {
	var constraintFiles []string

	cmd := &cobra.Command{
		Use:   "check-schema SCHEMA",
		Short: "Load a schema and report its definitions",
		Long: `Load a schema description, apply external constraints and report its
definitions, recursive assembly cycles and definitions no root reaches.

Examples:
  metaschema check-schema catalog.yaml
  metaschema check-schema catalog.yaml -c site-policy.toml -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckSchema(cmd, e, args[0], constraintFiles)
		},
	}

	cmd.Flags().StringSliceVarP(&constraintFiles, "constraints", "c", nil, "External constraint files to apply")
	return cmd
}

type definitionSummary struct {
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	FormalName  string `json:"formal-name,omitempty"`
	Root        string `json:"root-name,omitempty"`
	Constraints int    `json:"constraints"`
	Reachable   bool   `json:"reachable"`
}

type schemaSummary struct {
	Name        string              `json:"name"`
	Namespace   string              `json:"namespace,omitempty"`
	Definitions []definitionSummary `json:"definitions"`
	Cycles      []string            `json:"cycles"`
	CycledPaths []string            `json:"cycled-paths"`
	Unreachable []string            `json:"unreachable"`
}

func runCheckSchema(cmd *cobra.Command, e *env, path string, constraintFiles []string) error {
	schema, err := e.loadSchema(cmd.ErrOrStderr(), e.loader(), path, constraintFiles)
	if err != nil {
		return err
	}

	summary, err := summarizeSchema(schema)
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.LoadError(path, err, e.cfg.NoColor))
		return &ExitError{Code: ExitFailure, Err: err}
	}

	if e.cfg.Output == config.OutputJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	writeSchemaSummary(cmd, e, summary)
	return nil
}

func summarizeSchema(schema *model.Schema) (*schemaSummary, error) {
	reachable := make(map[*model.Definition]bool)
	for _, root := range schema.Roots() {
		for _, def := range schema.Reachable(root) {
			reachable[def] = true
		}
	}

	summary := &schemaSummary{
		Name:        schema.Name,
		Namespace:   schema.Namespace,
		Cycles:      []string{},
		CycledPaths: []string{},
		Unreachable: []string{},
	}
	for _, def := range schema.Definitions() {
		summary.Definitions = append(summary.Definitions, definitionSummary{
			Kind:        def.Kind().String(),
			Name:        def.Name(),
			FormalName:  def.FormalName(),
			Root:        def.RootName(),
			Constraints: def.Constraints().Len(),
			Reachable:   reachable[def],
		})
		if !reachable[def] {
			summary.Unreachable = append(summary.Unreachable, def.String())
		}
	}
	for _, cycle := range schema.DetectCycles() {
		summary.Cycles = append(summary.Cycles, cycle.String())
	}

	factory := nodeitem.NewFactory(schema)
	for _, root := range schema.Roots() {
		node, err := factory.NewDefinitionNode(root)
		if err != nil {
			return nil, err
		}
		err = nodeitem.Walk(node, func(n *nodeitem.Node) error {
			if n.IsCycled() {
				summary.CycledPaths = append(summary.CycledPaths, n.Path()+" -> "+n.CycledTo().Path())
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return summary, nil
}

func writeSchemaSummary(cmd *cobra.Command, e *env, summary *schemaSummary) {
	out := cmd.OutOrStdout()
	noColor := e.cfg.NoColor

	kv := ui.NewKeyValueTable(out, noColor)
	kv.AddRow("Schema", summary.Name)
	if summary.Namespace != "" {
		kv.AddRow("Namespace", summary.Namespace)
	}
	kv.AddRow("Definitions", strconv.Itoa(len(summary.Definitions)))
	kv.Render()
	fmt.Fprintln(out)

	table := ui.NewTable(out, noColor, "KIND", "NAME", "FORMAL NAME", "CONSTRAINTS", "REACHABLE")
	for _, d := range summary.Definitions {
		reachable := "yes"
		if !d.Reachable {
			reachable = "no"
		}
		table.AddRow(d.Kind, d.Name, d.FormalName, strconv.Itoa(d.Constraints), reachable)
	}
	table.Render()

	if len(summary.Cycles) > 0 {
		fmt.Fprintln(out)
		ui.Header(out, "Recursive assemblies", noColor)
		for _, cycle := range summary.Cycles {
			fmt.Fprintf(out, "  %s\n", cycle)
		}
		for _, path := range summary.CycledPaths {
			fmt.Fprintf(out, "  %s\n", path)
		}
	}
	if len(summary.Unreachable) > 0 {
		fmt.Fprintln(out)
		ui.Header(out, "Unreachable definitions", noColor)
		fmt.Fprintf(out, "  %s\n", strings.Join(summary.Unreachable, "\n  "))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, ui.FormatSuccess(summary.Name+": schema loaded", noColor))
}

package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/metaschema-go/metaschema/internal/cli/config"
	"github.com/metaschema-go/metaschema/internal/cli/ui"
	"github.com/metaschema-go/metaschema/internal/docs"
)

type docsFlags struct {
	outDir      string
	title       string
	noExamples  bool
	constraints []string
}

// NewDocsCommand creates the docs command
func NewDocsCommand(e *env) *cobra.Command {
	var flags docsFlags

	cmd := &cobra.Command{
		Use:   "docs SCHEMA",
		Short: "Generate Markdown reference documentation for a schema",
		Long: `Generate Markdown reference documentation for a schema: an index
(README.md) and one page per definition listing its flags, model,
constraints and an example JSON value.

Examples:
  metaschema docs catalog.yaml
  metaschema docs catalog.yaml --out-dir site/reference --title "Catalog Model"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := e.loadSchema(cmd.ErrOrStderr(), e.loader(), args[0], flags.constraints)
			if err != nil {
				return err
			}

			files, err := docs.Generate(schema, &docs.Config{
				Title:     flags.title,
				OutputDir: flags.outDir,
				Examples:  !flags.noExamples,
			})
			if err != nil {
				ui.WriteMessage(cmd.ErrOrStderr(), ui.MessageOptions{Context: "documentation error", Problem: err.Error(), NoColor: e.cfg.NoColor})
				return &ExitError{Code: ExitFailure, Err: err}
			}

			if e.cfg.Output == config.OutputJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"files": files})
			}
			ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("wrote %d files to %s", len(files), flags.outDir), e.cfg.NoColor)
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.outDir, "out-dir", "d", "docs", "Output directory")
	cmd.Flags().StringVar(&flags.title, "title", "", "Index page title (default: the schema name)")
	cmd.Flags().BoolVar(&flags.noExamples, "no-examples", false, "Omit example JSON values")
	cmd.Flags().StringSliceVarP(&flags.constraints, "constraints", "c", nil, "External constraint files to apply")
	return cmd
}

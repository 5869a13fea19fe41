package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	cerrors "github.com/metaschema-go/metaschema/compiler/errors"
	"github.com/metaschema-go/metaschema/internal/cli/config"
	"github.com/metaschema-go/metaschema/internal/cli/ui"
	"github.com/metaschema-go/metaschema/internal/loader"
	"github.com/metaschema-go/metaschema/internal/metapath"
	"github.com/metaschema-go/metaschema/internal/metapath/item"
	"github.com/metaschema-go/metaschema/internal/nodeitem"
)

type evalFlags struct {
	schema      string
	document    string
	definition  string
	kind        string
	constraints []string
}

// NewEvalCommand creates the eval command
func NewEvalCommand(e *env) *cobra.Command {
	var flags evalFlags

	cmd := &cobra.Command{
		Use:   "eval EXPRESSION",
		Short: "Evaluate a Metapath expression",
		Long: `Compile and evaluate a Metapath expression.

Without --schema the expression is evaluated with no context item. With
--schema and --document the context item is the loaded document; with
--definition it is the root of the definition's unbounded tree.

Examples:
  metaschema eval '1 + 2 * 3'
  metaschema eval 'count(//control)' --schema catalog.yaml --document catalog.json
  metaschema eval 'control/@id' --schema catalog.yaml --definition catalog`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, e, flags, args[0])
		},
	}

	cmd.Flags().StringVarP(&flags.schema, "schema", "s", "", "Schema description file")
	cmd.Flags().StringVarP(&flags.document, "document", "d", "", "Instance document used as context item")
	cmd.Flags().StringVar(&flags.definition, "definition", "", "Definition whose tree is used as context item")
	cmd.Flags().StringVar(&flags.kind, "kind", "assembly", "Kind of --definition: assembly, field or flag")
	_ = cmd.RegisterFlagCompletionFunc("kind", fixedValues("assembly", "field", "flag"))
	cmd.Flags().StringSliceVarP(&flags.constraints, "constraints", "c", nil, "External constraint files to apply")
	cmd.MarkFlagsMutuallyExclusive("document", "definition")

	return cmd
}

type evalResult struct {
	Kind  string `json:"kind"`
	Type  string `json:"type,omitempty"`
	Value string `json:"value,omitempty"`
	Path  string `json:"path,omitempty"`
}

func runEval(cmd *cobra.Command, e *env, flags evalFlags, text string) error {
	errOut := cmd.ErrOrStderr()
	if (flags.document != "" || flags.definition != "") && flags.schema == "" {
		err := errors.New("--document and --definition require --schema")
		ui.WriteMessage(errOut, ui.MessageOptions{Context: "usage error", Problem: err.Error(), NoColor: e.cfg.NoColor})
		return &ExitError{Code: ExitFailure, Err: err}
	}

	static := e.static()
	expr, err := metapath.Compile(text, metapath.WithSource("command line"), metapath.WithStaticContext(static))
	if err != nil {
		var compileErr *metapath.CompileError
		detail := err.Error()
		if errors.As(err, &compileErr) {
			if e.cfg.Output == config.OutputJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(cerrors.NewReport(text, compileErr.Errors)); encErr != nil {
					return encErr
				}
				return &ExitError{Code: ExitFailure, Err: err}
			}
			detail = compileErr.FormatForTerminal()
		}
		fmt.Fprint(errOut, ui.CompileError(text, detail, e.cfg.NoColor))
		return &ExitError{Code: ExitFailure, Err: err}
	}

	contextItem, err := evalContext(cmd, e, flags)
	if err != nil {
		return err
	}

	seq, err := expr.Evaluate(metapath.NewDynamicContext(static), contextItem)
	if err != nil {
		ui.WriteMessage(errOut, ui.MessageOptions{Context: "evaluation error", Problem: err.Error(), NoColor: e.cfg.NoColor})
		return &ExitError{Code: ExitFailure, Err: err}
	}

	results := make([]evalResult, 0, seq.Len())
	for _, it := range seq.Items() {
		results = append(results, describeItem(it))
	}

	if e.cfg.Output == config.OutputJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	for _, r := range results {
		if r.Kind == "node" {
			fmt.Fprintln(cmd.OutOrStdout(), r.Path)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), r.Value)
		}
	}
	return nil
}

// evalContext resolves the context item requested by the flags, or nil
func evalContext(cmd *cobra.Command, e *env, flags evalFlags) (item.Item, error) {
	if flags.schema == "" {
		return nil, nil
	}
	errOut := cmd.ErrOrStderr()
	l := e.loader()
	schema, err := e.loadSchema(errOut, l, flags.schema, flags.constraints)
	if err != nil {
		return nil, err
	}

	switch {
	case flags.document != "":
		doc, err := l.LoadDocument(flags.document, schema)
		if err != nil {
			fmt.Fprint(errOut, ui.LoadError(flags.document, err, e.cfg.NoColor))
			return nil, &ExitError{Code: ExitFailure, Err: err}
		}
		return doc, nil
	case flags.definition != "":
		kind, err := loader.ParseKind(flags.kind)
		if err != nil {
			ui.WriteMessage(errOut, ui.MessageOptions{Context: "usage error", Problem: err.Error(), NoColor: e.cfg.NoColor})
			return nil, &ExitError{Code: ExitFailure, Err: err}
		}
		def, ok := schema.Lookup(kind, flags.definition)
		if !ok {
			fmt.Fprint(errOut, ui.UnknownDefinitionError(kind.String(), flags.definition, flags.schema, schema.Names(kind), e.cfg.NoColor))
			err := fmt.Errorf("%w: %s %s", loader.ErrUnknownDefinition, kind, flags.definition)
			return nil, &ExitError{Code: ExitFailure, Err: err}
		}
		node, err := nodeitem.NewFactory(schema).NewDefinitionNode(def)
		if err != nil {
			fmt.Fprint(errOut, ui.LoadError(flags.schema, err, e.cfg.NoColor))
			return nil, &ExitError{Code: ExitFailure, Err: err}
		}
		return node, nil
	}
	return nil, nil
}

func describeItem(it item.Item) evalResult {
	switch v := it.(type) {
	case item.Node:
		return evalResult{Kind: "node", Path: v.Path()}
	case item.AtomicItem:
		return evalResult{Kind: "atomic", Type: v.Type().String(), Value: v.String()}
	default:
		return evalResult{Kind: "unknown", Value: fmt.Sprint(it)}
	}
}

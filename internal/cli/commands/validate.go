package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/metaschema-go/metaschema/internal/cli/config"
	"github.com/metaschema-go/metaschema/internal/cli/ui"
	"github.com/metaschema-go/metaschema/internal/constraint"
	"github.com/metaschema-go/metaschema/internal/loader"
	"github.com/metaschema-go/metaschema/internal/metapath"
	"github.com/metaschema-go/metaschema/internal/model"
	"github.com/metaschema-go/metaschema/internal/report"
	"github.com/metaschema-go/metaschema/internal/utils"
	"github.com/metaschema-go/metaschema/internal/validation"
	"github.com/metaschema-go/metaschema/internal/watch"
)

// documentExtensions are picked up when a directory is given as a document
var documentExtensions = []string{".json", ".yaml", ".yml"}

type validateFlags struct {
	constraints []string
	workers     int
	watch       bool
}

// NewValidateCommand creates the validate command
func NewValidateCommand(e *env) *cobra.Command {
	var flags validateFlags

	cmd := &cobra.Command{
		Use:   "validate SCHEMA DOCUMENT...",
		Short: "Validate instance documents against a schema",
		Long: `Validate one or more JSON or YAML instance documents against the
constraints of a schema description.

Each document gets its own node-item tree and validator; documents are
validated in parallel and reported in argument order. A directory stands
for the JSON and YAML files below it. The command exits with status 1 when
any document has a finding at level error or above.

With --watch the command keeps running and validates again whenever the
schema, a constraint file or a document changes.

Examples:
  metaschema validate catalog.yaml catalog.json
  metaschema validate catalog.yaml a.json b.yaml -c site-policy.toml
  metaschema validate catalog.yaml catalog.json -o json --report-db runs.db
  metaschema validate catalog.yaml documents/ --watch`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			documents, err := utils.FindFiles(args[1:], documentExtensions)
			if err != nil {
				fmt.Fprint(cmd.ErrOrStderr(), ui.LoadError(args[1], err, e.cfg.NoColor))
				return &ExitError{Code: ExitFailure, Err: err}
			}
			if flags.watch {
				return watchValidate(cmd, e, flags, args[0], documents)
			}
			return runValidate(cmd, e, flags, args[0], documents)
		},
	}

	cmd.Flags().StringSliceVarP(&flags.constraints, "constraints", "c", nil, "External constraint files to apply")
	cmd.Flags().IntVar(&flags.workers, "workers", runtime.GOMAXPROCS(0), "Documents validated concurrently")
	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "Validate again when an input file changes")

	return cmd
}

// documentResult is the outcome of validating one document
type documentResult struct {
	Document string               `json:"document"`
	Passing  bool                 `json:"passing"`
	Run      string               `json:"run,omitempty"`
	Error    string               `json:"error,omitempty"`
	Findings []validation.Finding `json:"findings"`

	err error
}

func runValidate(cmd *cobra.Command, e *env, flags validateFlags, schemaPath string, documents []string) error {
	l := e.loader()
	schema, err := e.loadSchema(cmd.ErrOrStderr(), l, schemaPath, flags.constraints)
	if err != nil {
		return err
	}

	var store *report.Store
	if e.cfg.ReportDB != "" {
		store, err = report.Open(contextOf(cmd), e.cfg.ReportDB, report.WithLogger(e.logger))
		if err != nil {
			fmt.Fprint(cmd.ErrOrStderr(), ui.LoadError(e.cfg.ReportDB, err, e.cfg.NoColor))
			return &ExitError{Code: ExitFailure, Err: err}
		}
		defer store.Close()
	}

	results := make([]*documentResult, len(documents))
	g, ctx := errgroup.WithContext(contextOf(cmd))
	g.SetLimit(max(flags.workers, 1))
	for i, document := range documents {
		i, document := i, document
		g.Go(func() error {
			results[i] = validateDocument(ctx, e, l, schema, store, document)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed, broken := false, false
	for _, r := range results {
		if r.err != nil {
			broken = true
		} else if !r.Passing {
			failed = true
		}
	}

	if err := writeResults(cmd, e, results); err != nil {
		return err
	}

	switch {
	case broken:
		return &ExitError{Code: ExitFailure, Err: fmt.Errorf("%w: a document could not be validated", ErrValidationFailed)}
	case failed:
		return &ExitError{Code: ExitFindings, Err: ErrValidationFailed}
	}
	return nil
}

// watchValidate validates once and then again on every change to the
// inputs, until the command context is cancelled
func watchValidate(cmd *cobra.Command, e *env, flags validateFlags, schemaPath string, documents []string) error {
	var mu sync.Mutex
	rerun := func() {
		mu.Lock()
		defer mu.Unlock()
		err := runValidate(cmd, e, flags, schemaPath, documents)
		var exitErr *ExitError
		if err != nil && !errors.As(err, &exitErr) {
			e.logger.Error("validation failed", zap.Error(err))
		}
	}
	rerun()

	inputs := append(append(append([]string{schemaPath}, e.cfg.Constraints...), flags.constraints...), documents...)
	watcher, err := watch.NewFileWatcher(inputs, func(changed []string) error {
		e.logger.Info("inputs changed", zap.Strings("files", changed))
		fmt.Fprintln(cmd.OutOrStdout())
		rerun()
		return nil
	}, watch.WithLogger(e.logger))
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		return err
	}
	defer watcher.Stop()

	ui.WriteMessage(cmd.ErrOrStderr(), ui.MessageOptions{
		Level:   ui.LevelInfo,
		Problem: fmt.Sprintf("Watching %d files. Press Ctrl+C to stop.", len(inputs)),
		NoColor: e.cfg.NoColor,
	})
	<-contextOf(cmd).Done()
	return nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func validateDocument(ctx context.Context, e *env, l *loader.Loader, schema *model.Schema, store *report.Store, document string) *documentResult {
	result := &documentResult{Document: document}
	logger := e.logger.With(zap.String("document", document))

	doc, err := l.LoadDocument(document, schema)
	if err != nil {
		result.err, result.Error = err, err.Error()
		return result
	}

	collector := validation.NewCollector()
	handlers := validation.Handlers{collector}
	if e.cfg.LogLevel == "debug" {
		handlers = append(handlers, validation.LevelFilter{
			Min:  e.cfg.MinimumLevel(),
			Next: validation.NewLoggingHandler(logger),
		})
	}

	v := validation.New(handlers,
		validation.WithLogger(logger),
		validation.WithDynamicContext(metapath.NewDynamicContext(e.static())))
	if err := v.ValidateTree(doc); err != nil {
		result.err, result.Error = err, err.Error()
		return result
	}

	result.Findings = collector.Findings()
	result.Passing = collector.IsPassing()

	if store != nil {
		run, err := store.SaveRun(ctx, document, schema.Name, result.Findings)
		if err != nil {
			logger.Warn("failed to record validation run", zap.Error(err))
		} else {
			result.Run = run.ID.String()
		}
	}
	return result
}

func writeResults(cmd *cobra.Command, e *env, results []*documentResult) error {
	minLevel := e.cfg.MinimumLevel()

	if e.cfg.Output == config.OutputJSON {
		for _, r := range results {
			r.Findings = visibleFindings(r.Findings, minLevel)
			if r.Findings == nil {
				r.Findings = []validation.Finding{}
			}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	out := cmd.OutOrStdout()
	for _, r := range results {
		if r.err != nil {
			fmt.Fprint(cmd.ErrOrStderr(), ui.LoadError(r.Document, r.err, e.cfg.NoColor))
			continue
		}
		ui.WriteFindings(out, r.Document, r.Findings, ui.FindingOptions{NoColor: e.cfg.NoColor, MinLevel: minLevel})
		if r.Run != "" {
			fmt.Fprintf(out, "  recorded as run %s\n", r.Run)
		}
	}
	return nil
}

func visibleFindings(findings []validation.Finding, minLevel constraint.Level) []validation.Finding {
	var visible []validation.Finding
	for _, f := range findings {
		if f.Level >= minLevel {
			visible = append(visible, f)
		}
	}
	return visible
}

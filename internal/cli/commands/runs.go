package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/metaschema-go/metaschema/internal/cli/config"
	"github.com/metaschema-go/metaschema/internal/cli/ui"
	"github.com/metaschema-go/metaschema/internal/report"
)

type runsFlags struct {
	limit  int
	delete bool
}

// NewRunsCommand creates the runs command
func NewRunsCommand(e *env) *cobra.Command {
	var flags runsFlags

	cmd := &cobra.Command{
		Use:   "runs [RUN-ID]",
		Short: "List or inspect recorded validation runs",
		Long: `List the validation runs recorded in the report database, or show the
findings of one run.

Examples:
  metaschema runs --report-db runs.db
  metaschema runs 3f0c2a4e-... --report-db runs.db
  metaschema runs 3f0c2a4e-... --delete --report-db runs.db`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(cmd, e, flags, args)
		},
	}

	cmd.Flags().IntVarP(&flags.limit, "limit", "n", 20, "Number of runs to list (0 for all)")
	cmd.Flags().BoolVar(&flags.delete, "delete", false, "Delete the given run")
	return cmd
}

type runSummary struct {
	ID        string `json:"id"`
	Document  string `json:"document"`
	Schema    string `json:"schema"`
	Passing   bool   `json:"passing"`
	Findings  int    `json:"findings"`
	Highest   string `json:"highest,omitempty"`
	StartedAt string `json:"started-at"`
}

func summarizeRun(run *report.Run) runSummary {
	s := runSummary{
		ID:        run.ID.String(),
		Document:  run.Document,
		Schema:    run.Schema,
		Passing:   run.Passing,
		Findings:  run.Findings,
		StartedAt: run.StartedAt.Format("2006-01-02 15:04:05"),
	}
	if run.Findings > 0 {
		s.Highest = run.Highest.String()
	}
	return s
}

func runRuns(cmd *cobra.Command, e *env, flags runsFlags, args []string) error {
	errOut := cmd.ErrOrStderr()
	if e.cfg.ReportDB == "" {
		err := errors.New("no report database configured")
		ui.WriteMessage(errOut, ui.MessageOptions{
			Context:      "report database",
			Problem:      "No report database is configured.",
			HelpCommands: []string{"Pass --report-db FILE or set report_db in metaschema.yaml"},
			NoColor:      e.cfg.NoColor,
		})
		return &ExitError{Code: ExitFailure, Err: err}
	}
	if flags.delete && len(args) == 0 {
		err := errors.New("--delete requires a run id")
		ui.WriteMessage(errOut, ui.MessageOptions{Context: "usage error", Problem: err.Error(), NoColor: e.cfg.NoColor})
		return &ExitError{Code: ExitFailure, Err: err}
	}

	ctx := contextOf(cmd)
	store, err := report.Open(ctx, e.cfg.ReportDB, report.WithLogger(e.logger))
	if err != nil {
		fmt.Fprint(errOut, ui.LoadError(e.cfg.ReportDB, err, e.cfg.NoColor))
		return &ExitError{Code: ExitFailure, Err: err}
	}
	defer store.Close()

	if len(args) == 0 {
		runs, err := store.Runs(ctx, flags.limit)
		if err != nil {
			return err
		}
		return writeRuns(cmd, e, runs)
	}

	id, err := uuid.Parse(args[0])
	if err != nil {
		ui.WriteMessage(errOut, ui.MessageOptions{Context: "usage error", Problem: fmt.Sprintf("'%s' is not a run id.", args[0]), NoColor: e.cfg.NoColor})
		return &ExitError{Code: ExitFailure, Err: err}
	}

	if flags.delete {
		if err := store.DeleteRun(ctx, id); err != nil {
			ui.WriteMessage(errOut, ui.MessageOptions{Problem: err.Error(), NoColor: e.cfg.NoColor})
			return &ExitError{Code: ExitFailure, Err: err}
		}
		ui.WriteSuccess(cmd.OutOrStdout(), "deleted run "+id.String(), e.cfg.NoColor)
		return nil
	}

	run, err := store.GetRun(ctx, id)
	if err != nil {
		ui.WriteMessage(errOut, ui.MessageOptions{Problem: err.Error(), NoColor: e.cfg.NoColor})
		return &ExitError{Code: ExitFailure, Err: err}
	}
	findings, err := store.Findings(ctx, id)
	if err != nil {
		return err
	}
	return writeRun(cmd, e, run, findings)
}

func writeRuns(cmd *cobra.Command, e *env, runs []*report.Run) error {
	summaries := make([]runSummary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, summarizeRun(run))
	}

	out := cmd.OutOrStdout()
	if e.cfg.Output == config.OutputJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(out, "No validation runs recorded.")
		return nil
	}
	table := ui.NewTable(out, e.cfg.NoColor, "ID", "STARTED", "DOCUMENT", "RESULT", "FINDINGS")
	for _, s := range summaries {
		result := "pass"
		if !s.Passing {
			result = "fail"
		}
		table.AddRow(s.ID, s.StartedAt, s.Document, result, strconv.Itoa(s.Findings))
	}
	table.Render()
	return nil
}

type storedFindingJSON struct {
	Level      string `json:"level"`
	Kind       string `json:"kind"`
	Constraint string `json:"constraint,omitempty"`
	Path       string `json:"path"`
	Message    string `json:"message"`
	Cause      string `json:"cause,omitempty"`
}

func writeRun(cmd *cobra.Command, e *env, run *report.Run, findings []report.StoredFinding) error {
	out := cmd.OutOrStdout()
	minLevel := e.cfg.MinimumLevel()

	if e.cfg.Output == config.OutputJSON {
		payload := struct {
			runSummary
			Details []storedFindingJSON `json:"details"`
		}{runSummary: summarizeRun(run), Details: []storedFindingJSON{}}
		for _, f := range findings {
			if f.Level < minLevel {
				continue
			}
			payload.Details = append(payload.Details, storedFindingJSON{
				Level: f.Level.String(), Kind: f.Kind, Constraint: f.Constraint,
				Path: f.Path, Message: f.Message, Cause: f.Cause,
			})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	s := summarizeRun(run)
	kv := ui.NewKeyValueTable(out, e.cfg.NoColor)
	kv.AddRow("Run", s.ID)
	kv.AddRow("Document", s.Document)
	kv.AddRow("Schema", s.Schema)
	kv.AddRow("Started", s.StartedAt)
	kv.AddRow("Findings", strconv.Itoa(s.Findings))
	kv.Render()

	table := ui.NewTable(out, e.cfg.NoColor, "LEVEL", "KIND", "CONSTRAINT", "PATH", "MESSAGE")
	for _, f := range findings {
		if f.Level < minLevel {
			continue
		}
		table.AddRow(f.Level.String(), f.Kind, f.Constraint, f.Path, f.Message)
	}
	if table.Len() > 0 {
		fmt.Fprintln(out)
		table.Render()
	}
	return nil
}

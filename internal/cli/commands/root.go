package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/metaschema-go/metaschema/internal/cli/config"
	"github.com/metaschema-go/metaschema/internal/cli/ui"
	"github.com/metaschema-go/metaschema/internal/loader"
	"github.com/metaschema-go/metaschema/internal/logging"
	"github.com/metaschema-go/metaschema/internal/metapath"
	"github.com/metaschema-go/metaschema/internal/model"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// Exit codes
const (
	ExitFindings = 1
	ExitFailure  = 2
)

// ExitError carries the process exit code of a failed command. Its cause
// has already been reported to the user.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// ErrValidationFailed is returned when a document has findings at or above
// the error level
var ErrValidationFailed = errors.New("validation failed")

// globalFlags mirror the configuration keys and override them when set
type globalFlags struct {
	configFile string
	logLevel   string
	output     string
	minLevel   string
	noColor    bool
	reportDB   string
	baseURI    string
}

// env carries what every command needs once flags and configuration are
// resolved
type env struct {
	flags  globalFlags
	cfg    *config.Config
	logger *zap.Logger
}

func (e *env) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(e.flags.configFile)
	if err != nil {
		ui.WriteMessage(cmd.ErrOrStderr(), ui.MessageOptions{Context: "configuration error", Problem: err.Error(), NoColor: e.flags.noColor})
		return &ExitError{Code: ExitFailure, Err: err}
	}

	fs := cmd.Flags()
	if fs.Changed("log-level") {
		cfg.LogLevel = e.flags.logLevel
	}
	if fs.Changed("output") {
		cfg.Output = e.flags.output
	}
	if fs.Changed("min-level") {
		cfg.MinLevel = e.flags.minLevel
	}
	if fs.Changed("no-color") {
		cfg.NoColor = e.flags.noColor
	}
	if fs.Changed("report-db") {
		cfg.ReportDB = e.flags.reportDB
	}
	if fs.Changed("base-uri") {
		cfg.BaseURI = e.flags.baseURI
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err.Error(), cfg.NoColor))
		return &ExitError{Code: ExitFailure, Err: err}
	}
	if cfg.NoColor {
		color.NoColor = true
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return &ExitError{Code: ExitFailure, Err: err}
	}
	e.cfg = cfg
	e.logger = logger.Named("metaschema")
	return nil
}

func (e *env) static() *metapath.StaticContext {
	static := metapath.NewStaticContext()
	if baseURI := e.cfg.StaticBaseURI(); baseURI != nil {
		static = static.WithBaseURI(baseURI)
	}
	return static
}

func (e *env) loader() *loader.Loader {
	return loader.New(loader.WithLogger(e.logger), loader.WithStaticContext(e.static()))
}

// loadSchema loads a schema description and applies the configured and
// requested external constraint sets
func (e *env) loadSchema(w io.Writer, l *loader.Loader, path string, constraintFiles []string) (*model.Schema, error) {
	schema, err := l.LoadSchema(path)
	if err != nil {
		fmt.Fprint(w, ui.LoadError(path, err, e.cfg.NoColor))
		return nil, &ExitError{Code: ExitFailure, Err: err}
	}
	files := append(append([]string{}, e.cfg.Constraints...), constraintFiles...)
	for _, file := range files {
		if err := l.LoadConstraints(file, schema); err != nil {
			fmt.Fprint(w, ui.LoadError(file, err, e.cfg.NoColor))
			return nil, &ExitError{Code: ExitFailure, Err: err}
		}
	}
	return schema, nil
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	e := &env{}

	rootCmd := &cobra.Command{
		Use:   "metaschema",
		Short: "Validate documents against Metaschema definitions",
		Long: color.CyanString(`metaschema - Metaschema constraint validation

Loads a schema description (YAML, TOML or JSON), builds node-item trees
for instance documents and evaluates the schema's Metapath constraints:
allowed values, patterns, indexes, uniqueness, cardinality and expectations.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cmd.Name() {
			case "version", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
				return nil
			}
			return e.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.logger != nil {
				_ = e.logger.Sync()
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&e.flags.configFile, "config", "", "Config file (default: ./metaschema.yaml)")
	pf.StringVar(&e.flags.logLevel, "log-level", "info", "Log level: "+fmt.Sprint(logging.Levels))
	pf.StringVarP(&e.flags.output, "output", "o", config.OutputText, "Output format: text or json")
	pf.StringVar(&e.flags.minLevel, "min-level", "informational", "Hide findings below this level")
	pf.BoolVar(&e.flags.noColor, "no-color", false, "Disable colored output")
	pf.StringVar(&e.flags.reportDB, "report-db", "", "SQLite file to record validation runs in")
	pf.StringVar(&e.flags.baseURI, "base-uri", "", "Static base URI for expressions")
	_ = rootCmd.RegisterFlagCompletionFunc("output", fixedValues(config.OutputText, config.OutputJSON))
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", fixedValues(logging.Levels...))
	_ = rootCmd.RegisterFlagCompletionFunc("min-level", fixedValues(constraintLevels()...))

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewValidateCommand(e))
	rootCmd.AddCommand(NewEvalCommand(e))
	rootCmd.AddCommand(NewCheckSchemaCommand(e))
	rootCmd.AddCommand(NewRunsCommand(e))
	rootCmd.AddCommand(NewDocsCommand(e))
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the metaschema tool version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			// Set GoVersion to actual runtime if not set at build time
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			titleColor := color.New(color.FgCyan, color.Bold)
			valueColor := color.New(color.FgWhite)
			out := cmd.OutOrStdout()

			titleColor.Fprint(out, "metaschema version: ")
			valueColor.Fprintln(out, Version)

			titleColor.Fprint(out, "Git commit: ")
			valueColor.Fprintln(out, GitCommit)

			titleColor.Fprint(out, "Build date: ")
			valueColor.Fprintln(out, BuildDate)

			titleColor.Fprint(out, "Go version: ")
			valueColor.Fprintln(out, goVer)
		},
	}
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var exitErr *ExitError
		if !errors.As(err, &exitErr) {
			errorColor := color.New(color.FgRed, color.Bold)
			errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		}
		return err
	}
	return nil
}

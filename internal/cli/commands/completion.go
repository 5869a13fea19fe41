package commands

import (
	"github.com/spf13/cobra"

	"github.com/metaschema-go/metaschema/internal/constraint"
)

// NewCompletionCommand creates the completion command for shell completions
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate a shell completion script for the metaschema CLI.

Completions cover subcommands, flags and the fixed values of --output,
--log-level, --min-level and eval --kind.

  $ source <(metaschema completion bash)
  $ metaschema completion zsh > "${fpath[1]}/_metaschema"
  $ metaschema completion fish | source
  PS> metaschema completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			out := cmd.OutOrStdout()

			switch args[0] {
			case "bash":
				return root.GenBashCompletion(out)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}

	return cmd
}

// fixedValues completes a flag from a closed set of values
func fixedValues(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}

// constraintLevels lists the level names accepted by --min-level
func constraintLevels() []string {
	levels := []constraint.Level{
		constraint.LevelInformational,
		constraint.LevelWarning,
		constraint.LevelError,
		constraint.LevelCritical,
	}
	names := make([]string, len(levels))
	for i, l := range levels {
		names[i] = l.String()
	}
	return names
}

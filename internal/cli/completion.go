package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/panelport/internal/savedobject"
)

func newCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion <shell>",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for panelport. Besides commands and
flags the scripts complete saved-object types, output formats and bundle
files (*.json).

To load completions:

Bash:
  $ source <(panelport completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ panelport completion bash > /etc/bash_completion.d/panelport

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ panelport completion zsh > "${fpath[1]}/_panelport"

Fish:
  $ panelport completion fish > ~/.config/fish/completions/panelport.fish

PowerShell:
  PS> panelport completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> panelport completion powershell > panelport.ps1
  # and source this file from your PowerShell profile.
`,
		// Completion needs no config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Args:              cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs:         []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()

			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(w, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(w)
			case "fish":
				return cmd.Root().GenFishCompletion(w, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(w)
			}

			return nil
		},
	}

	return cmd
}

// completeTypes completes the saved-object type argument of delete.
func completeTypes(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	return typeNames(toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeTypeList completes a comma separated list of types.
func completeTypeList(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	done, last := "", toComplete
	if i := strings.LastIndex(toComplete, ","); i >= 0 {
		done, last = toComplete[:i+1], toComplete[i+1:]
	}

	names := typeNames(last)
	for i := range names {
		names[i] = done + names[i]
	}

	return names, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}

func typeNames(prefix string) []string {
	var names []string

	for _, t := range savedobject.Types {
		if strings.HasPrefix(string(t), prefix) {
			names = append(names, string(t))
		}
	}

	return names
}

// completeBundleFiles limits file completion to JSON bundles.
func completeBundleFiles(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return []string{"json"}, cobra.ShellCompDirectiveFilterFileExt
}

func completeValues(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return cobra.FixedCompletions(values, cobra.ShellCompDirectiveNoFileComp)
}

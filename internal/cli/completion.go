package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/macrorec-project/macrorec/pkg/config"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for macrorec.

To load completions for your shell:

Bash:
  # To load completions for each session, execute once:
  # Linux:
  macrorec completion bash > /etc/bash_completion.d/macrorec
  # macOS:
  macrorec completion bash > /usr/local/etc/bash_completion.d/macrorec

  # Or add to your ~/.bashrc or ~/.bash_profile:
  source <(macrorec completion bash)

Zsh:
  # To load completions for each session, execute once:
  macrorec completion zsh > "${fpath[1]}/_macrorec"

  # Or add to your ~/.zshrc:
  source <(macrorec completion zsh)

  # You may need to force rebuild the completion cache:
  rm -f ~/.zcompdump
  compinit

Fish:
  # To load completions for each session, execute once:
  macrorec completion fish > ~/.config/fish/completions/macrorec.fish

  # Or add to your ~/.config/fish/config.fish:
  macrorec completion fish | source

PowerShell:
  # To load completions for each session, run:
  macrorec completion powershell | Out-String | Invoke-Expression

  # Or add to your PowerShell profile:
  # (Microsoft.PowerShell_profile.ps1 or profile.ps1)
  macrorec completion powershell | Out-String | Invoke-Expression`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		var err error
		switch shell := args[0]; shell {
		case "bash":
			err = cmd.Root().GenBashCompletionV2(os.Stdout, true)
		case "zsh":
			err = cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			err = cmd.Root().GenFishCompletion(os.Stdout, true)
		case "powershell":
			err = cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
		default:
			err = fmt.Errorf("unsupported shell type: %s", shell)
		}

		if err != nil {
			return fmt.Errorf("generate %s completion: %w", args[0], err)
		}
		return nil
	},
}

// completeTimelineFile offers .json files for the optional timeline argument.
func completeTimelineFile(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return []string{"json"}, cobra.ShellCompDirectiveFilterFileExt
}

// completeConfigKey offers the settable config keys for the first argument.
func completeConfigKey(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var keys []string
	for _, k := range config.Keys() {
		if strings.HasPrefix(k, toComplete) {
			keys = append(keys, k)
		}
	}
	return keys, cobra.ShellCompDirectiveNoFileComp
}

func init() {
	for _, c := range []*cobra.Command{runCmd, playCmd, showCmd} {
		c.ValidArgsFunction = completeTimelineFile
	}
	configGetCmd.ValidArgsFunction = completeConfigKey
	configSetCmd.ValidArgsFunction = completeConfigKey
	rootCmd.AddCommand(completionCmd)
}

package cli

import (
	"github.com/spf13/cobra"
)

// completionCommand generates shell completion scripts. Preset names,
// sort keys, interval modes and formats complete dynamically.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a completion script for your shell and print it to stdout.

  bash        source <(pixelsort completion bash)
  zsh         pixelsort completion zsh > "${fpath[1]}/_pixelsort"
  fish        pixelsort completion fish > ~/.config/fish/completions/pixelsort.fish
  powershell  pixelsort completion powershell | Out-String | Invoke-Expression

Flag values such as --preset, --key and --mode complete from the current
config and the built-in lists.`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, out := cmd.Root(), cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(out, true)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			default:
				return root.GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}

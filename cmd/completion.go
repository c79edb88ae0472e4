package cmd

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// completionCmd represents the completion command
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish]",
	Short: "Generate the completion script for the specified shell",
	Long: `To load completions:

Bash:

  $ source <(solbuild completion bash)

Zsh:

  $ solbuild completion zsh > "${fpath[1]}/_solbuild"

Fish:

  $ solbuild completion fish | source`,
	Args:          cobra.ExactArgs(1),
	ValidArgs:     []string{"bash", "zsh", "fish"},
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletionV2(os.Stdout, true)
		case "zsh":
			return cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			return cmd.Root().GenFishCompletion(os.Stdout, true)
		default:
			return errors.Errorf("unsupported shell '%s'", args[0])
		}
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(completionCmd)
}

package cmd

import (
	"fmt"

	"github.com/crytic/solbuild/version"
	"github.com/spf13/cobra"
)

// versionCmd represents the version command that displays build information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and build information",
	Long: `Print the solbuild version, which is embedded into the metadata of compiled contracts and must be
compatible between the dispatcher and its workers, along with the commit and Go version of the binary.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if short, _ := cmd.Flags().GetBool("short"); short {
			fmt.Println(version.Short())
			return
		}
		fmt.Println(version.String())
	},
}

func init() {
	versionCmd.Flags().Bool("short", false, "print only the version")
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = version.Short()
}

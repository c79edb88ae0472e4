package cmd

import (
	"os"

	"github.com/crytic/solbuild/compilation/workers"
	"github.com/spf13/cobra"
)

// workerCmd represents the hidden command a process worker runs as: it compiles the unit read from stdin and writes
// the result to stdout. The optional argument names the contract, so workers can be told apart in process listings.
var workerCmd = &cobra.Command{
	Use:           workers.WorkerCommand,
	Short:         "Compiles a single unit read from stdin",
	Hidden:        true,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		workers.EnsureStackSize()
		return workers.RunWorkerProcess(os.Stdin, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

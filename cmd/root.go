package cmd

import (
	"os"

	"github.com/crytic/solbuild/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "solbuild",
	Short: "An EVM backend build driver",
	Long: `solbuild compiles the EVM assembly of every contract in a project in parallel workers,
assembles dependent objects into one another and links library addresses into the result.`,
}

// cmdLogger is the logger used by the cmd package. It writes to stderr: the stdout of a worker process carries its
// reply to the dispatcher.
var cmdLogger = logging.NewLogger(zerolog.InfoLevel)

func init() {
	cmdLogger.AddWriter(os.Stderr, logging.UNSTRUCTURED, true)
}

// Execute provides an exportable function to invoke the CLI. Returns an error if one was encountered.
func Execute() error {
	return rootCmd.Execute()
}

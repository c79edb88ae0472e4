package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/crytic/solbuild/config"
	"github.com/crytic/solbuild/logging/colors"
	"github.com/spf13/cobra"
)

// initCmd represents the command provider for init
var initCmd = &cobra.Command{
	Use:               "init [project]",
	Short:             "Initializes a project configuration",
	Long:              `Writes a default project configuration, optionally targeting the given project file`,
	Args:              cobra.RangeArgs(0, 1),
	ValidArgsFunction: cmdValidUnusedFlags,
	RunE:              cmdRunInit,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Output path for configuration
	initCmd.Flags().String("out", "", "output path for the new project configuration file")

	// Target project file
	initCmd.Flags().String("target", "", TargetFlagDescription)

	// Overwrite an existing configuration without asking
	initCmd.Flags().BoolP("force", "f", false, "overwrite an existing configuration file")

	// Add the init command and its associated flags to the root command
	rootCmd.AddCommand(initCmd)
}

// cmdRunInit executes the init CLI command and updates the project configuration with any flags
func cmdRunInit(cmd *cobra.Command, args []string) error {
	// Check to see if --out flag was used and store the value of --out flag
	outputPath, err := cmd.Flags().GetString("out")
	if err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}
	// If we weren't provided an output path, we use our working directory
	if outputPath == "" {
		workingDirectory, err := os.Getwd()
		if err != nil {
			cmdLogger.Error("Failed to run the init command", err)
			return err
		}
		outputPath = filepath.Join(workingDirectory, config.DefaultProjectConfigFilename)
	}

	projectConfig := config.GetDefaultProjectConfig()
	if err = updateCompilationTarget(cmd, projectConfig); err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}
	if len(args) == 1 {
		projectConfig.Compilation.Target = args[0]
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}
	if _, err = os.Stat(outputPath); err == nil && !force {
		// Prompt user for overwrite confirmation
		fmt.Print("The file already exists. Overwrite? (y/n): ")
		var response string
		if _, err := fmt.Scan(&response); err != nil {
			cmdLogger.Error("Failed to scan input", err)
			return err
		}

		if response != "y" && response != "Y" {
			fmt.Println("Operation canceled.")
			return nil
		}
	}

	// Write our project configuration
	err = projectConfig.WriteToFile(outputPath)
	if err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}

	// Print a success message
	if absoluteOutputPath, err := filepath.Abs(outputPath); err == nil {
		outputPath = absoluteOutputPath
	}
	cmdLogger.Info("Project configuration successfully output to: ", colors.Bold, outputPath, colors.Reset)
	return nil
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/crytic/solbuild/config"
	"github.com/crytic/solbuild/logging"
	"github.com/crytic/solbuild/logging/colors"
	"github.com/crytic/solbuild/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// updateCompilationTarget will update the compilation target in the projectConfig if the --target flag is used in the
// command
func updateCompilationTarget(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	// If --target was used
	if cmd.Flags().Changed("target") {
		// Get the new target
		newTarget, err := cmd.Flags().GetString("target")
		if err != nil {
			return err
		}
		projectConfig.Compilation.Target = newTarget
	}
	return nil
}

// cmdValidUnusedFlags returns the flags of the command which have not been set yet, for dynamic completion.
func cmdValidUnusedFlags(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var unusedFlags []string
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if !flag.Changed {
			// Include the "--" prefix so the flag is not mistaken for a positional argument.
			unusedFlags = append(unusedFlags, "--"+flag.Name)
		}
	})
	return unusedFlags, cobra.ShellCompDirectiveDefault
}

// loadProjectConfig resolves the project configuration of a command:
// #1: If --config was used, the file must exist and is read.
// #2: Otherwise, solbuild.json is read from the working directory if it exists.
// #3: Otherwise, the default project configuration is used.
// The returned directory is the one the configuration was read from, or empty if none was read.
func loadProjectConfig(cmd *cobra.Command) (*config.ProjectConfig, string, error) {
	configFlagUsed := cmd.Flags().Changed("config")
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, "", err
	}

	if !configFlagUsed {
		workingDirectory, err := os.Getwd()
		if err != nil {
			return nil, "", err
		}
		configPath = filepath.Join(workingDirectory, config.DefaultProjectConfigFilename)
	}

	// Possibility #1 and #2: the file was found
	if _, existenceError := os.Stat(configPath); existenceError == nil {
		cmdLogger.Info("Reading the configuration file at: ", colors.Bold, configPath, colors.Reset)
		projectConfig, err := config.ReadProjectConfigFromFile(configPath)
		if err != nil {
			return nil, "", err
		}
		return projectConfig, filepath.Dir(configPath), nil
	} else if configFlagUsed {
		return nil, "", existenceError
	}

	// Possibility #3: use the defaults
	cmdLogger.Debug(fmt.Sprintf("Unable to find the config file at %v, will use the default project configuration instead", configPath))
	return config.GetDefaultProjectConfig(), "", nil
}

// setupGlobalLogger configures the global logger from the logging configuration: colorized console output on stderr
// and, if a log directory is configured, a structured log file. The returned function closes the log file.
func setupGlobalLogger(loggingConfig config.LoggingConfig) (func(), error) {
	if loggingConfig.NoColor {
		colors.DisableColor()
	}
	cmdLogger.SetLevel(loggingConfig.Level)

	logging.GlobalLogger = logging.NewLogger(loggingConfig.Level)
	logging.GlobalLogger.AddWriter(os.Stderr, logging.UNSTRUCTURED, !loggingConfig.NoColor)

	if loggingConfig.LogDirectory == "" {
		return func() {}, nil
	}
	fileName := fmt.Sprintf("solbuild-%d.log", time.Now().Unix())
	file, err := utils.CreateFile(loggingConfig.LogDirectory, fileName)
	if err != nil {
		return nil, err
	}
	logging.GlobalLogger.AddWriter(file, logging.STRUCTURED, false)
	return func() {
		logging.GlobalLogger.RemoveWriter(file, logging.STRUCTURED, false)
		_ = file.Close()
	}, nil
}

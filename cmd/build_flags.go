package cmd

import (
	"fmt"

	"github.com/crytic/solbuild/compilation/types"
	"github.com/crytic/solbuild/compilation/workers"
	"github.com/crytic/solbuild/config"
	"github.com/spf13/cobra"
)

// addBuildFlags adds the various flags for the build command
func addBuildFlags() error {
	defaultConfig := config.GetDefaultProjectConfig()

	// Prevent alphabetical sorting of usage message
	buildCmd.Flags().SortFlags = false

	// Config file
	buildCmd.Flags().String("config", "", "path to config file")

	// Target
	buildCmd.Flags().String("target", "", TargetFlagDescription)

	// Output file
	buildCmd.Flags().String("out", "", "path to write the standard JSON output to (default is stdout)")

	// Number of workers
	buildCmd.Flags().Int("workers", 0,
		"number of units compiled at once (unless a config file is provided, default is the number of CPUs)")

	// Worker strategy
	buildCmd.Flags().String("worker-strategy", "",
		fmt.Sprintf("run workers as child processes (%q) or threads (%q) (unless a config file is provided, default is %q)",
			workers.StrategyProcess, workers.StrategyThread, defaultConfig.Compilation.WorkerStrategy))

	// Abort on worker failure
	buildCmd.Flags().Bool("abort-on-worker-failure", false,
		fmt.Sprintf("stop compiling once a worker crashes (unless a config file is provided, default is %t)", defaultConfig.Compilation.AbortOnWorkerFailure))

	// Optimizer
	buildCmd.Flags().StringP("optimizer", "O", "",
		fmt.Sprintf("optimization profile, one of 0, 1, 2, 3, s, z (unless a config file is provided, default is %q)", defaultConfig.Compilation.Optimizer))

	// Size fallback
	buildCmd.Flags().Bool("size-fallback", false,
		fmt.Sprintf("recompile code exceeding the size limit optimizing for size (unless a config file is provided, default is %t)", defaultConfig.Compilation.SizeFallback))

	// Metadata hash
	buildCmd.Flags().String("metadata-hash", "",
		fmt.Sprintf("metadata hash appended to runtime code, one of none, ipfs, keccak256 (unless a config file is provided, default is %q)", defaultConfig.Compilation.MetadataHash))

	// CBOR metadata
	buildCmd.Flags().Bool("no-cbor-metadata", false, "do not append CBOR metadata to runtime code")

	// Output selection
	buildCmd.Flags().StringSlice("output-selection", []string{},
		fmt.Sprintf("outputs to produce (unless a config file is provided, default is %v)", defaultConfig.Compilation.OutputSelection))

	// Backend options
	buildCmd.Flags().StringSlice("backend-options", []string{}, "extra options forwarded to the backend")

	// Cache directory
	buildCmd.Flags().String("cache-dir", "", "directory to cache compiled objects in")

	// Debug output
	buildCmd.Flags().String("debug-output-dir", "", "directory to dump lowered objects to")

	// Libraries
	buildCmd.Flags().StringSlice("libraries", []string{}, LibrariesFlagDescription)

	// Require fully linked
	buildCmd.Flags().Bool("require-linked", false, "fail if any library placeholder is left unlinked")

	// Logging
	buildCmd.Flags().String("log-level", "", "log level (trace, debug, info, warn, error)")
	buildCmd.Flags().Bool("no-color", false, "disable colored terminal output")
	return nil
}

// updateProjectConfigWithBuildFlags will update the given projectConfig with any CLI arguments that were provided to
// the build command
func updateProjectConfigWithBuildFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	var err error

	// Update the target
	if err = updateCompilationTarget(cmd, projectConfig); err != nil {
		return err
	}

	// Update the output file
	if cmd.Flags().Changed("out") {
		projectConfig.Compilation.OutputFile, err = cmd.Flags().GetString("out")
		if err != nil {
			return err
		}
	}

	// Update number of workers
	if cmd.Flags().Changed("workers") {
		projectConfig.Compilation.Workers, err = cmd.Flags().GetInt("workers")
		if err != nil {
			return err
		}
	}

	// Update the worker strategy
	if cmd.Flags().Changed("worker-strategy") {
		strategy, err := cmd.Flags().GetString("worker-strategy")
		if err != nil {
			return err
		}
		projectConfig.Compilation.WorkerStrategy = workers.Strategy(strategy)
	}

	// Update the abort policy
	if cmd.Flags().Changed("abort-on-worker-failure") {
		projectConfig.Compilation.AbortOnWorkerFailure, err = cmd.Flags().GetBool("abort-on-worker-failure")
		if err != nil {
			return err
		}
	}

	// Update the optimizer
	if cmd.Flags().Changed("optimizer") {
		mode, err := cmd.Flags().GetString("optimizer")
		if err != nil {
			return err
		}
		projectConfig.Compilation.Optimizer, err = types.ParseOptimizerMode(mode)
		if err != nil {
			return err
		}
	}

	// Update the size fallback
	if cmd.Flags().Changed("size-fallback") {
		projectConfig.Compilation.SizeFallback, err = cmd.Flags().GetBool("size-fallback")
		if err != nil {
			return err
		}
	}

	// Update the metadata hash
	if cmd.Flags().Changed("metadata-hash") {
		hashType, err := cmd.Flags().GetString("metadata-hash")
		if err != nil {
			return err
		}
		projectConfig.Compilation.MetadataHash, err = types.ParseMetadataHashType(hashType)
		if err != nil {
			return err
		}
	}

	// Update CBOR metadata
	if cmd.Flags().Changed("no-cbor-metadata") {
		noCBOR, err := cmd.Flags().GetBool("no-cbor-metadata")
		if err != nil {
			return err
		}
		projectConfig.Compilation.AppendCBOR = !noCBOR
	}

	// Update the output selection
	if cmd.Flags().Changed("output-selection") {
		projectConfig.Compilation.OutputSelection, err = cmd.Flags().GetStringSlice("output-selection")
		if err != nil {
			return err
		}
	}

	// Update the backend options
	if cmd.Flags().Changed("backend-options") {
		projectConfig.Compilation.BackendOptions, err = cmd.Flags().GetStringSlice("backend-options")
		if err != nil {
			return err
		}
	}

	// Update the cache directory
	if cmd.Flags().Changed("cache-dir") {
		projectConfig.Compilation.CacheDirectory, err = cmd.Flags().GetString("cache-dir")
		if err != nil {
			return err
		}
	}

	// Update the debug output directory
	if cmd.Flags().Changed("debug-output-dir") {
		projectConfig.Compilation.DebugOutputDirectory, err = cmd.Flags().GetString("debug-output-dir")
		if err != nil {
			return err
		}
	}

	// Append libraries to those of the config file
	if cmd.Flags().Changed("libraries") {
		libraries, err := cmd.Flags().GetStringSlice("libraries")
		if err != nil {
			return err
		}
		projectConfig.Linking.Libraries = append(projectConfig.Linking.Libraries, libraries...)
	}

	// Update the linking requirement
	if cmd.Flags().Changed("require-linked") {
		projectConfig.Linking.RequireFullyLinked, err = cmd.Flags().GetBool("require-linked")
		if err != nil {
			return err
		}
	}

	return updateLoggingConfig(cmd, &projectConfig.Logging)
}

// updateLoggingConfig updates the logging configuration with the --log-level and --no-color flags.
func updateLoggingConfig(cmd *cobra.Command, loggingConfig *config.LoggingConfig) error {
	if cmd.Flags().Changed("log-level") {
		level, err := cmd.Flags().GetString("log-level")
		if err != nil {
			return err
		}
		if err = loggingConfig.Level.UnmarshalText([]byte(level)); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("no-color") {
		noColor, err := cmd.Flags().GetBool("no-color")
		if err != nil {
			return err
		}
		loggingConfig.NoColor = noColor
	}
	return nil
}

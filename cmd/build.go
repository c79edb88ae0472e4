package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/crytic/solbuild/cmd/exitcodes"
	"github.com/crytic/solbuild/compilation/build"
	"github.com/crytic/solbuild/compilation/cache"
	"github.com/crytic/solbuild/compilation/dispatch"
	"github.com/crytic/solbuild/compilation/project"
	"github.com/crytic/solbuild/compilation/types"
	"github.com/crytic/solbuild/compilation/workers"
	"github.com/crytic/solbuild/config"
	"github.com/crytic/solbuild/logging/colors"
	"github.com/crytic/solbuild/utils"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// buildCmd represents the command provider for building a project
var buildCmd = &cobra.Command{
	Use:               "build [project]",
	Short:             "Compiles, assembles and links a project",
	Long:              `Compiles every contract of a project file, assembles dependent objects and links libraries, writing standard JSON output`,
	Args:              cmdValidateBuildArgs,
	ValidArgsFunction: cmdValidUnusedFlags,
	RunE:              cmdRunBuild,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add all the flags allowed for the build command
	err := addBuildFlags()
	if err != nil {
		cmdLogger.Panic("Failed to initialize the build command", err)
	}

	// Add the build command and its associated flags to the root command
	rootCmd.AddCommand(buildCmd)
}

// cmdValidateBuildArgs makes sure that at most one positional argument, the project file, is provided
func cmdValidateBuildArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.RangeArgs(0, 1)(cmd, args); err != nil {
		err = fmt.Errorf("build accepts at most one positional argument, the project file")
		cmdLogger.Error("Failed to validate args to the build command", err)
		return err
	}
	return nil
}

// cmdRunBuild executes the CLI build command
func cmdRunBuild(cmd *cobra.Command, args []string) error {
	projectConfig, configDirectory, err := loadProjectConfig(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the build command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	// Update the project configuration given whatever flags were set using the CLI. A positional project file takes
	// precedence over --target.
	if err = updateProjectConfigWithBuildFlags(cmd, projectConfig); err != nil {
		cmdLogger.Error("Failed to run the build command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	if len(args) == 1 {
		projectConfig.Compilation.Target = args[0]
	}

	// Relative paths of a configuration file are resolved from its directory.
	if configDirectory != "" {
		resolveConfigPaths(projectConfig, configDirectory, len(args) == 1 || cmd.Flags().Changed("target"))
	}

	if err = projectConfig.Validate(); err != nil {
		cmdLogger.Error("Invalid project configuration", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	closeLogger, err := setupGlobalLogger(projectConfig.Logging)
	if err != nil {
		cmdLogger.Error("Failed to set up logging", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	defer closeLogger()

	// Stop dispatching new units on keyboard interrupts
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := runBuild(ctx, projectConfig)
	if err != nil {
		cmdLogger.Error("Failed to run the build command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	reportDiagnostics(result.TakeWarnings())
	hasErrors := result.HasErrors()
	reportDiagnostics(result.Errors())

	if err = writeStandardJSON(projectConfig.Compilation.OutputFile, result); err != nil {
		cmdLogger.Error("Failed to write the build output", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	if hasErrors {
		return exitcodes.NewErrorWithExitCode(nil, exitcodes.ExitCodeCompilationFailed)
	}
	return nil
}

// resolveConfigPaths makes the relative paths of a configuration file relative to its directory. The target is left
// as is when it was given on the command line.
func resolveConfigPaths(projectConfig *config.ProjectConfig, configDirectory string, targetFromCLI bool) {
	resolve := func(path *string) {
		if *path != "" && !filepath.IsAbs(*path) {
			*path = filepath.Join(configDirectory, *path)
		}
	}
	if !targetFromCLI {
		resolve(&projectConfig.Compilation.Target)
	}
	resolve(&projectConfig.Compilation.CacheDirectory)
	resolve(&projectConfig.Compilation.DebugOutputDirectory)
	resolve(&projectConfig.Logging.LogDirectory)
}

// runBuild reads the project, compiles every unit and links the result.
func runBuild(ctx context.Context, projectConfig *config.ProjectConfig) (*build.Build, error) {
	cmdLogger.Info("Reading the project file at: ", colors.Bold, projectConfig.Compilation.Target, colors.Reset)
	proj, err := project.ReadProjectFromFile(projectConfig.Compilation.Target)
	if err != nil {
		return nil, err
	}

	// Libraries of the project and of the configuration must agree.
	symbols, err := types.ParseLibraries(append(append([]string(nil), proj.Libraries...), projectConfig.Linking.Libraries...))
	if err != nil {
		return nil, err
	}

	worker, err := workers.NewWorker(projectConfig.Compilation.WorkerStrategy)
	if err != nil {
		return nil, err
	}
	defer worker.Close()

	options := dispatch.Options{
		Workers:              projectConfig.Compilation.Workers,
		AbortOnWorkerFailure: projectConfig.Compilation.AbortOnWorkerFailure,
	}
	if projectConfig.Compilation.CacheDirectory != "" {
		objectCache, err := cache.Open(projectConfig.Compilation.CacheDirectory)
		if err != nil {
			return nil, errors.Wrap(err, "could not open the object cache")
		}
		defer objectCache.Close()
		options.Cache = objectCache
	}

	dispatcher := dispatch.NewDispatcher(worker, options)
	result := build.Compile(ctx, dispatcher, proj.Units(projectConfig.Settings()))
	return result.Link(symbols, projectConfig.Linking.RequireFullyLinked), nil
}

// writeStandardJSON writes the standard JSON output of a build to the given file, or to stdout if the path is empty.
func writeStandardJSON(path string, result *build.Build) error {
	b, err := json.MarshalIndent(result.StandardJSON(), "", "\t")
	if err != nil {
		return errors.WithStack(err)
	}
	b = append(b, '\n')

	if path == "" {
		_, err = os.Stdout.Write(b)
		return errors.WithStack(err)
	}
	if err = utils.WriteFile(path, b); err != nil {
		return err
	}
	cmdLogger.Info("Build output written to: ", colors.Bold, path, colors.Reset)
	return nil
}

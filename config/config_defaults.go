package config

import (
	"github.com/crytic/solbuild/compilation/types"
	"github.com/crytic/solbuild/compilation/workers"
	"github.com/rs/zerolog"
)

// GetDefaultProjectConfig obtains a default configuration for a project.
func GetDefaultProjectConfig() *ProjectConfig {
	settings := types.DefaultCompilationSettings()

	// Create a project configuration
	projectConfig := &ProjectConfig{
		Compilation: CompilationConfig{
			Target:               "",
			OutputFile:           "",
			Workers:              0,
			WorkerStrategy:       workers.StrategyProcess,
			AbortOnWorkerFailure: false,
			CacheDirectory:       "",
			Optimizer:            settings.Optimizer.Mode,
			SizeFallback:         false,
			MetadataHash:         settings.MetadataHash,
			AppendCBOR:           settings.AppendCBOR,
			BackendOptions:       []string{},
			DebugOutputDirectory: "",
			OutputSelection:      settings.OutputSelection,
		},
		Linking: LinkingConfig{
			Libraries:          []string{},
			RequireFullyLinked: false,
		},
		Logging: LoggingConfig{
			Level:        zerolog.InfoLevel,
			LogDirectory: "",
			NoColor:      false,
		},
	}

	return projectConfig
}

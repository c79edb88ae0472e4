package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/crytic/solbuild/compilation/types"
	"github.com/crytic/solbuild/compilation/workers"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestConfig returns a default configuration with a compilation target set.
func newTestConfig() *ProjectConfig {
	projectConfig := GetDefaultProjectConfig()
	projectConfig.Compilation.Target = "project.json"
	return projectConfig
}

func TestProjectConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultProjectConfigFilename)

	projectConfig := newTestConfig()
	projectConfig.Compilation.Optimizer = types.OptimizerModeSize
	projectConfig.Compilation.WorkerStrategy = workers.StrategyThread
	projectConfig.Linking.Libraries = []string{"lib.sol:L=0x1111111111111111111111111111111111111111"}
	projectConfig.Logging.Level = zerolog.DebugLevel
	require.NoError(t, projectConfig.WriteToFile(path))

	read, err := ReadProjectConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, projectConfig, read)
	assert.NoError(t, read.Validate())
}

func TestReadProjectConfigFromFile_KeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultProjectConfigFilename)
	require.NoError(t, os.WriteFile(path, []byte(`{"compilation": {"target": "p.json", "optimizer": "z"}}`), 0644))

	projectConfig, err := ReadProjectConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "p.json", projectConfig.Compilation.Target)
	assert.Equal(t, types.OptimizerModeSizeAggressive, projectConfig.Compilation.Optimizer)
	assert.Equal(t, types.MetadataHashIPFS, projectConfig.Compilation.MetadataHash)
	assert.Equal(t, zerolog.InfoLevel, projectConfig.Logging.Level)

	require.NoError(t, os.WriteFile(path, []byte(`{"compilation": {"optimizer": "4"}}`), 0644))
	_, err = ReadProjectConfigFromFile(path)
	assert.Error(t, err)
}

func TestProjectConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := map[string]func(projectConfig *ProjectConfig){
		"target":        func(c *ProjectConfig) { c.Compilation.Target = "" },
		"workers":       func(c *ProjectConfig) { c.Compilation.Workers = -1 },
		"strategy":      func(c *ProjectConfig) { c.Compilation.WorkerStrategy = "fiber" },
		"optimizer":     func(c *ProjectConfig) { c.Compilation.Optimizer = 'x' },
		"metadata hash": func(c *ProjectConfig) { c.Compilation.MetadataHash = "sha1" },
		"library":       func(c *ProjectConfig) { c.Linking.Libraries = []string{"L=0x00"} },
	}
	for name, mutate := range tests {
		projectConfig := newTestConfig()
		mutate(projectConfig)
		assert.Error(t, projectConfig.Validate(), name)
	}
	assert.NoError(t, newTestConfig().Validate())
}

func TestProjectConfig_Settings(t *testing.T) {
	t.Parallel()

	projectConfig := newTestConfig()
	projectConfig.Compilation.SizeFallback = true
	projectConfig.Compilation.DebugOutputDirectory = "debug"

	settings := projectConfig.Settings()
	assert.Equal(t, types.OptimizerModeAggressive, settings.Optimizer.Mode)
	assert.True(t, settings.Optimizer.SizeFallback)
	assert.False(t, settings.Optimizer.IsFallbackToSize)
	assert.Equal(t, "debug", settings.DebugOutputDir)
	assert.True(t, settings.IsSelected(types.OutputSelectionBytecode))
}

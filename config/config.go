package config

import (
	"encoding/json"
	"os"

	"github.com/crytic/solbuild/compilation/types"
	"github.com/crytic/solbuild/compilation/workers"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DefaultProjectConfigFilename describes the default config filename for a given project folder.
const DefaultProjectConfigFilename = "solbuild.json"

type ProjectConfig struct {
	// Compilation describes the configuration used to compile the project.
	Compilation CompilationConfig `json:"compilation"`

	// Linking describes the configuration used to link compiled contracts.
	Linking LinkingConfig `json:"linking"`

	// Logging describes the configuration used for logging to file and console.
	Logging LoggingConfig `json:"logging"`
}

// CompilationConfig describes the configuration options used to compile a project.
type CompilationConfig struct {
	// Target describes the project file holding the IR of every contract.
	Target string `json:"target"`

	// OutputFile describes the file the standard JSON output is written to. If empty, it is written to stdout.
	OutputFile string `json:"outputFile"`

	// Workers describes the maximum number of units compiled at once. Zero uses the available parallelism.
	Workers int `json:"workers"`

	// WorkerStrategy describes whether units are compiled in child processes or on threads of this process.
	WorkerStrategy workers.Strategy `json:"workerStrategy"`

	// AbortOnWorkerFailure describes whether a crashed worker aborts every contract not yet compiled.
	AbortOnWorkerFailure bool `json:"abortOnWorkerFailure"`

	// CacheDirectory describes the directory compiled objects are cached in. If empty, no cache is used.
	CacheDirectory string `json:"cacheDirectory"`

	// Optimizer describes the optimization profile: one of 0, 1, 2, 3, s or z.
	Optimizer types.OptimizerMode `json:"optimizer"`

	// SizeFallback describes whether code exceeding the size limit is recompiled optimizing for size.
	SizeFallback bool `json:"sizeFallback"`

	// MetadataHash describes the hash of the metadata appended to runtime code.
	MetadataHash types.MetadataHashType `json:"metadataHash"`

	// AppendCBOR describes whether CBOR metadata is appended to runtime code.
	AppendCBOR bool `json:"appendCBOR"`

	// BackendOptions describes extra flags forwarded to the backend.
	BackendOptions []string `json:"backendOptions,omitempty"`

	// DebugOutputDirectory describes the directory lowered objects are dumped to. If empty, nothing is dumped.
	DebugOutputDirectory string `json:"debugOutputDirectory"`

	// OutputSelection describes the outputs to produce.
	OutputSelection []string `json:"outputSelection"`
}

// LinkingConfig describes the configuration options used to link a project.
type LinkingConfig struct {
	// Libraries describes deployed libraries of the form `<path>:<Name>=<address>`.
	Libraries []string `json:"libraries"`

	// RequireFullyLinked describes whether bytecode left with library placeholders is an error.
	RequireFullyLinked bool `json:"requireFullyLinked"`
}

// LoggingConfig describes the configuration options used for logging
type LoggingConfig struct {
	// Level describes whether logs of certain severity levels (eg info, warning, etc.) will be emitted or discarded.
	// Increasing level values represent more severe logs
	Level zerolog.Level `json:"level"`

	// LogDirectory describes the directory where structured log _files_ will be outputted. If the string is empty, then
	// no log files are kept
	LogDirectory string `json:"logDirectory"`

	// NoColor indicates whether log messages should be displayed with colored formatting.
	NoColor bool `json:"noColor"`
}

// ReadProjectConfigFromFile reads a JSON-serialized ProjectConfig from a provided file path. Fields missing from the
// file keep their default values.
// Returns the ProjectConfig if it succeeds, or an error if one occurs.
func ReadProjectConfigFromFile(path string) (*ProjectConfig, error) {
	// Read our project configuration file data
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// Parse the project configuration over the defaults
	projectConfig := GetDefaultProjectConfig()
	err = json.Unmarshal(b, projectConfig)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return projectConfig, nil
}

// WriteToFile writes the ProjectConfig to a provided file path in a JSON-serialized format.
// Returns an error if one occurs.
func (p *ProjectConfig) WriteToFile(path string) error {
	// Serialize the configuration
	b, err := json.MarshalIndent(p, "", "\t")
	if err != nil {
		return errors.WithStack(err)
	}

	// Save it to the provided output path and return the result
	err = os.WriteFile(path, b, 0644)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// Validate validates that the ProjectConfig meets certain requirements.
// Returns an error if one occurs.
func (p *ProjectConfig) Validate() error {
	if p.Compilation.Target == "" {
		return errors.Errorf("a project file must be provided as the compilation target")
	}

	if p.Compilation.Workers < 0 {
		return errors.Errorf("worker count cannot be negative")
	}

	switch p.Compilation.WorkerStrategy {
	case workers.StrategyProcess, workers.StrategyThread:
	default:
		return errors.Errorf("unknown worker strategy '%s'", p.Compilation.WorkerStrategy)
	}

	if _, err := types.ParseOptimizerMode(p.Compilation.Optimizer.String()); err != nil {
		return errors.WithStack(err)
	}

	if _, err := types.ParseMetadataHashType(string(p.Compilation.MetadataHash)); err != nil {
		return errors.WithStack(err)
	}

	// Verify that library definitions are well-formed
	if _, err := types.ParseLibraries(p.Linking.Libraries); err != nil {
		return err
	}

	if p.Logging.Level < zerolog.TraceLevel || p.Logging.Level > zerolog.Disabled {
		return errors.Errorf("invalid log level %d", p.Logging.Level)
	}
	return nil
}

// Settings returns the compilation settings shared by every unit of the project.
func (p *ProjectConfig) Settings() types.CompilationSettings {
	return types.CompilationSettings{
		Optimizer: types.OptimizerSettings{
			Mode:         p.Compilation.Optimizer,
			SizeFallback: p.Compilation.SizeFallback,
		},
		MetadataHash:    p.Compilation.MetadataHash,
		AppendCBOR:      p.Compilation.AppendCBOR,
		BackendOptions:  p.Compilation.BackendOptions,
		DebugOutputDir:  p.Compilation.DebugOutputDirectory,
		OutputSelection: p.Compilation.OutputSelection,
	}
}

// LinkerSymbols parses the configured libraries.
func (p *ProjectConfig) LinkerSymbols() (types.LinkerSymbols, error) {
	return types.ParseLibraries(p.Linking.Libraries)
}

package types

import (
	"fmt"
	"strings"
)

// OptimizerMode describes the backend optimization profile, mirroring the LLVM-style levels used by the backend.
type OptimizerMode byte

const (
	// OptimizerModeNone disables peephole optimization.
	OptimizerModeNone OptimizerMode = '0'
	// OptimizerModeBasic enables basic peephole optimization.
	OptimizerModeBasic OptimizerMode = '1'
	// OptimizerModeDefault enables the default peephole optimization.
	OptimizerModeDefault OptimizerMode = '2'
	// OptimizerModeAggressive enables every performance-oriented peephole optimization.
	OptimizerModeAggressive OptimizerMode = '3'
	// OptimizerModeSize optimizes for bytecode size.
	OptimizerModeSize OptimizerMode = 's'
	// OptimizerModeSizeAggressive optimizes aggressively for bytecode size.
	OptimizerModeSizeAggressive OptimizerMode = 'z'
)

// ParseOptimizerMode parses a single-character optimizer mode string.
func ParseOptimizerMode(mode string) (OptimizerMode, error) {
	if len(mode) != 1 || !strings.Contains("0123sz", mode) {
		return 0, fmt.Errorf("invalid optimizer mode '%s', expected one of 0, 1, 2, 3, s, z", mode)
	}
	return OptimizerMode(mode[0]), nil
}

// String returns the mode character.
func (m OptimizerMode) String() string {
	return string(rune(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m OptimizerMode) MarshalText() ([]byte, error) {
	return []byte{byte(m)}, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *OptimizerMode) UnmarshalText(text []byte) error {
	mode, err := ParseOptimizerMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// IsSizeOriented returns a boolean indicating whether the mode prefers smaller bytecode over faster bytecode.
func (m OptimizerMode) IsSizeOriented() bool {
	return m == OptimizerModeSize || m == OptimizerModeSizeAggressive
}

// OptimizerSettings describes the optimizer configuration passed to each worker.
type OptimizerSettings struct {
	// Mode describes the optimization profile.
	Mode OptimizerMode `json:"mode"`

	// SizeFallback describes whether a unit exceeding the EVM code size limit is recompiled with
	// OptimizerModeSizeAggressive.
	SizeFallback bool `json:"size_fallback"`

	// IsFallbackToSize is set once a unit has been recompiled by the size fallback.
	IsFallbackToSize bool `json:"is_fallback_to_size"`
}

// NewOptimizerSettings returns OptimizerSettings for the given mode with no size fallback.
func NewOptimizerSettings(mode OptimizerMode) OptimizerSettings {
	return OptimizerSettings{Mode: mode}
}

// MetadataHashType describes the hash of the contract metadata appended to runtime bytecode.
type MetadataHashType string

const (
	// MetadataHashNone appends no metadata hash.
	MetadataHashNone MetadataHashType = "none"
	// MetadataHashIPFS appends the IPFS (CIDv0 multihash) of the metadata.
	MetadataHashIPFS MetadataHashType = "ipfs"
	// MetadataHashKeccak256 appends the keccak256 hash of the metadata.
	MetadataHashKeccak256 MetadataHashType = "keccak256"
)

// ParseMetadataHashType parses a metadata hash type string.
func ParseMetadataHashType(s string) (MetadataHashType, error) {
	switch MetadataHashType(s) {
	case MetadataHashNone, MetadataHashIPFS, MetadataHashKeccak256:
		return MetadataHashType(s), nil
	default:
		return "", fmt.Errorf("invalid metadata hash type '%s', expected one of none, ipfs, keccak256", s)
	}
}

const (
	// OutputSelectionBytecode selects deploy and runtime bytecode output.
	OutputSelectionBytecode = "evm.bytecode"
	// OutputSelectionAssembly selects the backend text assembly listing.
	OutputSelectionAssembly = "evm.assembly"
	// OutputSelectionMetadata selects contract metadata output.
	OutputSelectionMetadata = "metadata"
)

// CompilationSettings describes the read-only settings shared by every compilation unit of a project.
type CompilationSettings struct {
	// Optimizer describes the optimizer profile.
	Optimizer OptimizerSettings `json:"optimizer"`

	// MetadataHash describes the metadata hash appended to runtime code.
	MetadataHash MetadataHashType `json:"metadata_hash"`

	// AppendCBOR describes whether CBOR-encoded metadata is appended to runtime code.
	AppendCBOR bool `json:"append_cbor"`

	// BackendOptions describes extra flags forwarded verbatim to the backend.
	BackendOptions []string `json:"backend_options,omitempty"`

	// DebugOutputDir describes the directory lowered objects are dumped to. Empty disables dumping.
	DebugOutputDir string `json:"debug_output_dir,omitempty"`

	// OutputSelection describes which outputs the workers should produce.
	OutputSelection []string `json:"output_selection,omitempty"`
}

// DefaultCompilationSettings returns the settings used when no configuration is provided.
func DefaultCompilationSettings() CompilationSettings {
	return CompilationSettings{
		Optimizer:       NewOptimizerSettings(OptimizerModeAggressive),
		MetadataHash:    MetadataHashIPFS,
		AppendCBOR:      true,
		OutputSelection: []string{OutputSelectionBytecode, OutputSelectionMetadata},
	}
}

// IsSelected returns a boolean indicating whether the given output is selected.
func (s CompilationSettings) IsSelected(output string) bool {
	for _, selected := range s.OutputSelection {
		if selected == output || selected == "*" {
			return true
		}
	}
	return false
}

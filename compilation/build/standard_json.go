package build

import (
	"github.com/crytic/solbuild/compilation/diagnostics"
	"github.com/crytic/solbuild/compilation/types"
	"github.com/crytic/solbuild/version"
)

// StandardJSONOutput describes the standard JSON rendering of a Build.
type StandardJSONOutput struct {
	// Contracts maps contract paths and names to their artifacts. It is omitted when the build has errors.
	Contracts map[string]map[string]*ContractOutput `json:"contracts,omitempty"`

	// Errors describes every diagnostic of the build, warnings included.
	Errors []*diagnostics.Diagnostic `json:"errors,omitempty"`

	// Version is the version of the compiler which produced the output.
	Version string `json:"version"`
}

// ContractOutput describes the artifacts of a single contract.
type ContractOutput struct {
	Metadata string    `json:"metadata,omitempty"`
	EVM      EVMOutput `json:"evm"`
}

// EVMOutput describes the deploy and runtime bytecode of a contract.
type EVMOutput struct {
	Assembly         string          `json:"assembly,omitempty"`
	Bytecode         *BytecodeOutput `json:"bytecode,omitempty"`
	DeployedBytecode *BytecodeOutput `json:"deployedBytecode,omitempty"`
}

// BytecodeOutput describes hex bytecode along with the locations of the library placeholders it still contains.
type BytecodeOutput struct {
	// Object is the hex encoded bytecode with `__$<hash>$__` placeholders for unlinked libraries.
	Object string `json:"object"`

	// LinkReferences maps library paths and names to the placeholder locations within Object.
	LinkReferences map[string]map[string][]types.LinkReference `json:"linkReferences"`
}

// newBytecodeOutput renders a contract object.
func newBytecodeOutput(object *types.ContractObject) *BytecodeOutput {
	output := &BytecodeOutput{
		Object:         object.BytecodeHex(),
		LinkReferences: make(map[string]map[string][]types.LinkReference),
	}
	for library, references := range object.LinkReferences() {
		name := types.ParseContractName(library)
		if output.LinkReferences[name.Path] == nil {
			output.LinkReferences[name.Path] = make(map[string][]types.LinkReference)
		}
		output.LinkReferences[name.Path][name.Name] = references
	}
	return output
}

// StandardJSON renders the build. Bytecode artifacts are only rendered when the build has no errors.
func (b *Build) StandardJSON() *StandardJSONOutput {
	output := &StandardJSONOutput{Version: version.Version}

	errs := b.Errors()
	output.Errors = append(output.Errors, errs...)
	output.Errors = append(output.Errors, b.warnings()...)
	if len(errs) > 0 {
		return output
	}

	output.Contracts = make(map[string]map[string]*ContractOutput)
	for _, path := range b.paths() {
		contract := b.Results[path].Contract
		if contract == nil {
			continue
		}
		contractOutput := &ContractOutput{Metadata: contract.Metadata}
		if contract.DeployObject != nil {
			contractOutput.EVM.Bytecode = newBytecodeOutput(contract.DeployObject)
			contractOutput.EVM.Assembly = contract.DeployObject.Assembly
		}
		if contract.RuntimeObject != nil {
			contractOutput.EVM.DeployedBytecode = newBytecodeOutput(contract.RuntimeObject)
		}

		if output.Contracts[contract.Name.Path] == nil {
			output.Contracts[contract.Name.Path] = make(map[string]*ContractOutput)
		}
		output.Contracts[contract.Name.Path][contract.Name.Name] = contractOutput
	}
	return output
}

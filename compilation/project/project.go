package project

import (
	"encoding/json"
	"os"

	"github.com/crytic/solbuild/compilation/types"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// LanguageEVMLA is the only IR language the backend accepts: EVM legacy assembly.
const LanguageEVMLA = "evmla"

// Segment describes the IR of one code segment of a contract.
type Segment struct {
	// Identifier describes the object identifier other objects reference this segment by.
	Identifier string `json:"identifier"`

	// Code describes the IR of the segment.
	Code string `json:"code"`
}

// Contract describes a contract emitted by the front end.
type Contract struct {
	Path     string   `json:"path"`
	Name     string   `json:"name"`
	Deploy   *Segment `json:"deploy,omitempty"`
	Runtime  *Segment `json:"runtime,omitempty"`
	Metadata string   `json:"metadata,omitempty"`
}

// ContractName returns the name of the contract.
func (c *Contract) ContractName() types.ContractName {
	return types.NewContractName(c.Path, c.Name)
}

// Project describes the input of a build: the IR of every contract as produced by the front end, and the libraries
// to link against.
type Project struct {
	// Language describes the language of the contract IR.
	Language string `json:"language"`

	// Contracts maps fully qualified contract names to their IR.
	Contracts map[string]*Contract `json:"contracts"`

	// Libraries describes library definitions of the form `<path>:<Name>=<address>`.
	Libraries []string `json:"libraries,omitempty"`
}

// ReadProjectFromFile reads a JSON project file and validates it.
func ReadProjectFromFile(path string) (*Project, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	project := &Project{}
	if err = json.Unmarshal(b, project); err != nil {
		return nil, errors.Wrapf(err, "could not parse project file '%s'", path)
	}
	if err = project.Validate(); err != nil {
		return nil, err
	}
	return project, nil
}

// Validate checks that the project language is supported, that every contract is keyed by its own name and that
// segment identifiers are unique.
func (p *Project) Validate() error {
	if p.Language == "" {
		p.Language = LanguageEVMLA
	}
	if p.Language != LanguageEVMLA {
		return errors.Errorf("unsupported project language '%s', expected '%s'", p.Language, LanguageEVMLA)
	}

	owners := make(map[string]string)
	for _, fullPath := range p.contractPaths() {
		contract := p.Contracts[fullPath]
		if contract == nil {
			return errors.Errorf("contract '%s' has no definition", fullPath)
		}
		if name := contract.ContractName(); name.FullPath != fullPath {
			return errors.Errorf("contract '%s' is defined with path '%s' and name '%s'", fullPath, contract.Path, contract.Name)
		}
		if contract.Deploy == nil && contract.Runtime == nil {
			return errors.Errorf("contract '%s' has no code", fullPath)
		}
		for _, segment := range []*Segment{contract.Deploy, contract.Runtime} {
			if segment == nil {
				continue
			}
			if segment.Identifier == "" {
				return errors.Errorf("contract '%s' has a segment without identifier", fullPath)
			}
			if owner, exists := owners[segment.Identifier]; exists {
				return errors.Errorf("identifier '%s' is used by both '%s' and '%s'", segment.Identifier, owner, fullPath)
			}
			owners[segment.Identifier] = fullPath
		}
	}

	_, err := types.ParseLibraries(p.Libraries)
	return err
}

// contractPaths returns the sorted contract keys of the project.
func (p *Project) contractPaths() []string {
	paths := maps.Keys(p.Contracts)
	slices.Sort(paths)
	return paths
}

// IdentifierPaths maps every segment identifier of the project to the full path of the contract defining it.
func (p *Project) IdentifierPaths() map[string]string {
	identifierPaths := make(map[string]string)
	for fullPath, contract := range p.Contracts {
		if contract.Deploy != nil {
			identifierPaths[contract.Deploy.Identifier] = fullPath
		}
		if contract.Runtime != nil {
			identifierPaths[contract.Runtime.Identifier] = fullPath
		}
	}
	return identifierPaths
}

// LinkerSymbols parses the project's library definitions.
func (p *Project) LinkerSymbols() (types.LinkerSymbols, error) {
	return types.ParseLibraries(p.Libraries)
}

// Units creates one compilation unit per contract segment, ordered by contract path with deploy code first. The
// contract metadata is attached to runtime units, which embed it.
func (p *Project) Units(settings types.CompilationSettings) []*types.CompilationUnit {
	identifierPaths := p.IdentifierPaths()
	var units []*types.CompilationUnit
	for _, fullPath := range p.contractPaths() {
		contract := p.Contracts[fullPath]
		name := contract.ContractName()
		if contract.Deploy != nil {
			units = append(units, &types.CompilationUnit{
				Name:            name,
				Segment:         types.CodeSegmentDeploy,
				Identifier:      contract.Deploy.Identifier,
				IR:              contract.Deploy.Code,
				IdentifierPaths: identifierPaths,
				MetadataJSON:    contract.Metadata,
				Settings:        settings,
			})
		}
		if contract.Runtime != nil {
			units = append(units, &types.CompilationUnit{
				Name:            name,
				Segment:         types.CodeSegmentRuntime,
				Identifier:      contract.Runtime.Identifier,
				IR:              contract.Runtime.Code,
				IdentifierPaths: identifierPaths,
				MetadataJSON:    contract.Metadata,
				Settings:        settings,
			})
		}
	}
	return units
}

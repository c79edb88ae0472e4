package types

import "strings"

// ContractName uniquely identifies a contract within a project.
type ContractName struct {
	// Path describes the source file path the contract was declared in.
	Path string `json:"path"`

	// Name describes the optional in-file contract name. Yul and LLVM IR sources may only carry a path.
	Name string `json:"name,omitempty"`

	// FullPath describes the derived "path:name" identifier (or just the path if no name is set).
	FullPath string `json:"full_path"`
}

// NewContractName creates a ContractName from a source path and an optional in-file name.
func NewContractName(path string, name string) ContractName {
	fullPath := path
	if name != "" {
		fullPath = path + ":" + name
	}
	return ContractName{
		Path:     path,
		Name:     name,
		FullPath: fullPath,
	}
}

// ParseContractName splits a fully qualified "path:name" string into a ContractName. The last colon separates the
// path from the name, so Windows drive letters and URL-like paths survive.
func ParseContractName(fullPath string) ContractName {
	index := strings.LastIndex(fullPath, ":")
	if index <= 0 || index == len(fullPath)-1 {
		return NewContractName(fullPath, "")
	}
	return NewContractName(fullPath[:index], fullPath[index+1:])
}

// String returns the full path of the contract.
func (c ContractName) String() string {
	return c.FullPath
}

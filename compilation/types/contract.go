package types

// Contract describes the pair of compiled objects produced for a single contract.
type Contract struct {
	// Name describes the contract.
	Name ContractName `json:"name"`

	// DeployObject describes the contract's deploy code object.
	DeployObject *ContractObject `json:"deploy_object"`

	// RuntimeObject describes the contract's runtime code object.
	RuntimeObject *ContractObject `json:"runtime_object"`

	// Metadata describes the contract metadata JSON document.
	Metadata string `json:"metadata,omitempty"`
}

// Objects returns the contract's non-nil objects, runtime first.
func (c *Contract) Objects() []*ContractObject {
	objects := make([]*ContractObject, 0, 2)
	if c.RuntimeObject != nil {
		objects = append(objects, c.RuntimeObject)
	}
	if c.DeployObject != nil {
		objects = append(objects, c.DeployObject)
	}
	return objects
}

// ContractResult describes the outcome of compiling a single contract path: either a Contract or an error.
type ContractResult struct {
	// Contract describes the compiled contract. It is nil if Err is set.
	Contract *Contract

	// Err describes the failure that prevented the contract from being compiled.
	Err error
}

// NewContractResult returns a successful ContractResult.
func NewContractResult(contract *Contract) *ContractResult {
	return &ContractResult{Contract: contract}
}

// NewContractResultError returns a failed ContractResult.
func NewContractResultError(err error) *ContractResult {
	return &ContractResult{Err: err}
}

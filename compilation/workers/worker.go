package workers

import (
	"context"

	"github.com/crytic/solbuild/compilation/types"
	"github.com/pkg/errors"
)

// Strategy describes how workers are isolated from the dispatching process.
type Strategy string

const (
	// StrategyProcess runs every unit in a child process which re-invokes the running executable.
	StrategyProcess Strategy = "process"
	// StrategyThread runs every unit on a dedicated OS thread of the dispatching process.
	StrategyThread Strategy = "thread"
)

// Worker describes an isolated compilation context which turns a unit into a relocatable object or a structured
// error. Implementations must be safe for concurrent use.
type Worker interface {
	// Compile compiles a single unit. Errors describing a failure of the unit itself (stack-too-deep, protocol and
	// internal errors) are returned as is; failures of the isolation boundary are returned as
	// *diagnostics.WorkerFailureError.
	Compile(ctx context.Context, input *Input) (*types.ContractObject, error)

	// Close releases any resources held by the worker.
	Close() error
}

// NewWorker creates a worker for the given strategy.
func NewWorker(strategy Strategy) (Worker, error) {
	switch strategy {
	case StrategyProcess, "":
		return NewProcessWorker()
	case StrategyThread:
		return NewThreadWorker(), nil
	default:
		return nil, errors.Errorf("unknown worker strategy '%s'", strategy)
	}
}

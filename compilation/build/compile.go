package build

import (
	"context"

	"github.com/crytic/solbuild/compilation/dispatch"
	"github.com/crytic/solbuild/compilation/types"
	"github.com/crytic/solbuild/logging"
	"github.com/crytic/solbuild/logging/colors"
)

// Compile dispatches every unit and aggregates the results into a Build. Contracts which failed only because the stack
// was too deep are compiled a second time, with the spill area size each failing segment reported.
func Compile(ctx context.Context, dispatcher *dispatch.Dispatcher, units []*types.CompilationUnit) *Build {
	logger := logging.GlobalLogger.NewSubLogger("module", logging.COMPILATION_SERVICE)
	build := NewBuild(dispatcher.Dispatch(ctx, units), nil)

	stackTooDeep := build.TakeStackTooDeepErrors()
	if len(stackTooDeep) == 0 {
		return build
	}

	spillAreaSizes := make(map[string]uint64, len(stackTooDeep))
	retryPaths := make(map[string]bool)
	for _, err := range stackTooDeep {
		if err.ContractName == nil || err.CodeSegment == nil {
			continue
		}
		unit := types.CompilationUnit{Name: *err.ContractName, Segment: *err.CodeSegment}
		spillAreaSizes[unit.Key()] = err.SpillAreaSize
		retryPaths[err.ContractName.FullPath] = true
	}

	var retry []*types.CompilationUnit
	for _, unit := range units {
		if !retryPaths[unit.Name.FullPath] {
			continue
		}
		if size, ok := spillAreaSizes[unit.Key()]; ok {
			unit = unit.WithSpillAreaSize(size)
		}
		retry = append(retry, unit)
	}

	logger.Info("Recompiling ", colors.Bold, len(retryPaths), colors.Reset, " contracts with spill areas")
	retried := NewBuild(dispatcher.Dispatch(ctx, retry), nil)
	for path, result := range retried.Results {
		build.Results[path] = result
	}
	build.Messages = append(build.Messages, retried.Messages...)
	return build
}

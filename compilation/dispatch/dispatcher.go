package dispatch

import (
	"context"
	stderrors "errors"
	"runtime"
	"strings"
	"time"

	"github.com/crytic/solbuild/compilation/diagnostics"
	"github.com/crytic/solbuild/compilation/types"
	"github.com/crytic/solbuild/compilation/workers"
	"github.com/crytic/solbuild/events"
	"github.com/crytic/solbuild/logging"
	"github.com/crytic/solbuild/logging/colors"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
)

// ObjectCache describes a store of previously compiled objects keyed by worker input.
type ObjectCache interface {
	// Get returns the object cached for the input, if any.
	Get(input any) (*types.ContractObject, bool, error)

	// Put stores the object compiled for the input.
	Put(input any, object *types.ContractObject) error
}

// Options describes how a Dispatcher schedules units.
type Options struct {
	// Workers describes the maximum number of units compiled at once. Zero or less means the number of CPUs.
	Workers int

	// AbortOnWorkerFailure describes whether a worker failure (a crashed process or an unparsable reply) stops the
	// dispatch of units which have not started yet. By default, a worker failure only fails its own contract.
	AbortOnWorkerFailure bool

	// Cache describes an optional object cache consulted before compiling a unit.
	Cache ObjectCache
}

// UnitCompiledEvent describes a unit which finished compiling, successfully or not.
type UnitCompiledEvent struct {
	// Unit describes the compiled unit.
	Unit *types.CompilationUnit

	// Object describes the compiled object. It is nil if Err is set.
	Object *types.ContractObject

	// Err describes the compilation failure, if any.
	Err error

	// Cached describes whether the object was served from the object cache.
	Cached bool

	// Duration describes how long the unit took to compile.
	Duration time.Duration
}

// Dispatcher fans compilation units out over a bounded pool of workers and collects one result per contract.
type Dispatcher struct {
	// worker describes the worker every unit is compiled with.
	worker workers.Worker

	// options describes the scheduling options.
	options Options

	// logger describes the dispatcher's logger.
	logger *logging.Logger

	// UnitCompiled emits an event every time a unit finishes compiling.
	UnitCompiled events.EventEmitter[UnitCompiledEvent]
}

// NewDispatcher creates a Dispatcher compiling units with the given worker.
func NewDispatcher(worker workers.Worker, options Options) *Dispatcher {
	if options.Workers <= 0 {
		options.Workers = runtime.NumCPU()
	}
	return &Dispatcher{
		worker:  worker,
		options: options,
		logger:  logging.GlobalLogger.NewSubLogger("module", logging.COMPILATION_SERVICE),
	}
}

// contractUnits describes the units of a single contract.
type contractUnits struct {
	name    types.ContractName
	deploy  *types.CompilationUnit
	runtime *types.CompilationUnit
}

// partialContract holds the per-segment outcomes of a contract. Each field is written by exactly one task.
type partialContract struct {
	deploy     *types.ContractObject
	runtime    *types.ContractObject
	deployErr  error
	runtimeErr error
}

// Dispatch compiles every unit and returns one result per contract path. A failing unit only fails its own contract,
// unless AbortOnWorkerFailure is set and the failure is a worker failure, in which case contracts not yet started
// fail with *diagnostics.AbortedError. Units already running are never interrupted.
func (d *Dispatcher) Dispatch(ctx context.Context, units []*types.CompilationUnit) map[string]*types.ContractResult {
	logger := d.logger.NewSubLogger("session", uuid.NewString())
	contracts := groupUnits(units)
	logger.Info("Compiling ", colors.Bold, len(units), colors.Reset, " units of ", colors.Bold, len(contracts), colors.Reset, " contracts with ", d.options.Workers, " workers")

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	// Partials are created up front so that tasks never write to a shared map.
	partials := make([]*partialContract, len(contracts))
	group := new(errgroup.Group)
	group.SetLimit(d.options.Workers)
	start := time.Now()

	for i, contract := range contracts {
		partial := &partialContract{}
		partials[i] = partial
		deploy, runtimeUnit := contract.deploy, contract.runtime

		// Deploy code which assigns immutables needs the compiled runtime code, so both segments run in one task.
		if deploy != nil && runtimeUnit != nil && assignsImmutables(deploy) {
			group.Go(func() error {
				partial.runtime, partial.runtimeErr = d.compileUnit(runCtx, cancel, logger, runtimeUnit)
				if partial.runtimeErr == nil {
					partial.deploy, partial.deployErr = d.compileUnit(runCtx, cancel, logger, deploy.WithImmutables(partial.runtime.Immutables))
				}
				return nil
			})
			continue
		}
		if runtimeUnit != nil {
			group.Go(func() error {
				partial.runtime, partial.runtimeErr = d.compileUnit(runCtx, cancel, logger, runtimeUnit)
				return nil
			})
		}
		if deploy != nil {
			group.Go(func() error {
				partial.deploy, partial.deployErr = d.compileUnit(runCtx, cancel, logger, deploy)
				return nil
			})
		}
	}
	_ = group.Wait()

	results := make(map[string]*types.ContractResult, len(contracts))
	failures := 0
	for i, contract := range contracts {
		partial := partials[i]
		if err := stderrors.Join(partial.runtimeErr, partial.deployErr); err != nil {
			failures++
			results[contract.name.FullPath] = types.NewContractResultError(err)
			continue
		}
		result := &types.Contract{
			Name:          contract.name,
			DeployObject:  partial.deploy,
			RuntimeObject: partial.runtime,
		}
		if contract.runtime != nil {
			result.Metadata = contract.runtime.MetadataJSON
		} else if contract.deploy != nil {
			result.Metadata = contract.deploy.MetadataJSON
		}
		results[contract.name.FullPath] = types.NewContractResult(result)
	}

	logger.Info("Compiled ", len(contracts)-failures, "/", len(contracts), " contracts in ", time.Since(start).Round(time.Millisecond))
	return results
}

// compileUnit compiles a single unit, consulting the cache first. Worker failures cancel the run if configured to.
func (d *Dispatcher) compileUnit(ctx context.Context, cancel context.CancelCauseFunc, logger *logging.Logger, unit *types.CompilationUnit) (*types.ContractObject, error) {
	path := unit.Name.FullPath
	if ctx.Err() != nil {
		return nil, &diagnostics.AbortedError{Path: path, Cause: context.Cause(ctx)}
	}

	start := time.Now()
	input := workers.NewInput(unit)
	if d.options.Cache != nil {
		object, found, err := d.options.Cache.Get(input)
		if err != nil {
			logger.Warn("Object cache lookup failed for ", unit.Key(), err)
		} else if found {
			d.publish(logger, UnitCompiledEvent{Unit: unit, Object: object, Cached: true, Duration: time.Since(start)})
			return object, nil
		}
	}

	// Running units are never interrupted, so the worker does not observe cancellation.
	object, err := d.worker.Compile(context.WithoutCancel(ctx), input)
	duration := time.Since(start)
	if err != nil {
		var failure *diagnostics.WorkerFailureError
		if errors.As(err, &failure) {
			logger.Error("Worker failed while compiling ", unit.Key(), err)
			if d.options.AbortOnWorkerFailure {
				cancel(err)
			}
		} else {
			logger.Debug("Failed to compile ", unit.Key(), err)
		}
		d.publish(logger, UnitCompiledEvent{Unit: unit, Err: err, Duration: duration})
		return nil, err
	}

	if d.options.Cache != nil {
		if err := d.options.Cache.Put(input, object); err != nil {
			logger.Warn("Could not cache ", unit.Key(), err)
		}
	}
	logger.Debug("Compiled ", unit.Key(), " in ", duration.Round(time.Millisecond))
	d.publish(logger, UnitCompiledEvent{Unit: unit, Object: object, Duration: duration})
	return object, nil
}

// publish emits a UnitCompiledEvent, logging handler errors.
func (d *Dispatcher) publish(logger *logging.Logger, event UnitCompiledEvent) {
	if err := d.UnitCompiled.Publish(event); err != nil {
		logger.Warn("Unit compiled event handler failed", err)
	}
}

// assignsImmutables returns a boolean indicating whether a deploy unit writes immutables into its runtime code.
func assignsImmutables(unit *types.CompilationUnit) bool {
	return strings.Contains(strings.ToUpper(unit.IR), "ASSIGNIMMUTABLE")
}

// groupUnits groups units by contract, ordered by contract path.
func groupUnits(units []*types.CompilationUnit) []*contractUnits {
	byPath := make(map[string]*contractUnits)
	for _, unit := range units {
		contract, ok := byPath[unit.Name.FullPath]
		if !ok {
			contract = &contractUnits{name: unit.Name}
			byPath[unit.Name.FullPath] = contract
		}
		if unit.Segment == types.CodeSegmentRuntime {
			contract.runtime = unit
		} else {
			contract.deploy = unit
		}
	}

	contracts := make([]*contractUnits, 0, len(byPath))
	for _, contract := range byPath {
		contracts = append(contracts, contract)
	}
	slices.SortFunc(contracts, func(a, b *contractUnits) int {
		return strings.Compare(a.name.FullPath, b.name.FullPath)
	})
	return contracts
}

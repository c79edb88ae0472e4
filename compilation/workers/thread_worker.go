package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/crytic/solbuild/compilation/diagnostics"
	"github.com/crytic/solbuild/compilation/types"
)

// WorkerStackSize is the maximum goroutine stack size guaranteed to workers, in bytes.
const WorkerStackSize = 64 * 1024 * 1024

// ensureStackSizeOnce guards EnsureStackSize.
var ensureStackSizeOnce sync.Once

// EnsureStackSize guarantees a maximum goroutine stack size of at least WorkerStackSize. The Go runtime default (1 GB
// on 64-bit and 250 MB on 32-bit platforms) already exceeds it, so this only changes the limit if it was lowered, e.g.
// by an embedding program.
func EnsureStackSize() {
	ensureStackSizeOnce.Do(func() {
		raiseMaxStack(WorkerStackSize)
	})
}

// raiseMaxStack raises the maximum goroutine stack size to size if it is lower, and returns the resulting limit. The
// runtime has no getter, so the limit is read by setting it and restored if it was higher.
func raiseMaxStack(size int) int {
	previous := debug.SetMaxStack(size)
	if previous > size {
		debug.SetMaxStack(previous)
		return previous
	}
	return size
}

// ThreadWorker compiles every unit on a dedicated OS thread of the running process. Messages are serialized exactly as
// for a ProcessWorker, so that units never share state with the dispatcher.
type ThreadWorker struct{}

// NewThreadWorker creates a ThreadWorker.
func NewThreadWorker() *ThreadWorker {
	EnsureStackSize()
	return &ThreadWorker{}
}

// Compile implements Worker. A running unit is not interrupted when the context is cancelled.
func (w *ThreadWorker) Compile(ctx context.Context, input *Input) (*types.ContractObject, error) {
	path := input.Unit.Name.FullPath
	data, err := json.Marshal(input)
	if err != nil {
		return nil, diagnostics.NewInternalError("could not encode worker input of %s: %v", path, err)
	}

	type reply struct {
		stdout []byte
		err    error
	}
	replies := make(chan reply, 1)
	go func() {
		// The thread is never unlocked, so it is discarded once the goroutine exits.
		runtime.LockOSThread()
		var stdout bytes.Buffer
		err := RunWorkerProcess(bytes.NewReader(data), &stdout)
		replies <- reply{stdout: stdout.Bytes(), err: err}
	}()
	r := <-replies

	if r.err != nil {
		return nil, &diagnostics.WorkerFailureError{Path: path, Stdout: string(r.stdout), Cause: r.err}
	}
	var output Output
	if err := json.Unmarshal(r.stdout, &output); err != nil {
		return nil, &diagnostics.WorkerFailureError{Path: path, Stdout: string(r.stdout), Cause: err}
	}
	return output.Result(input.Unit)
}

// Close implements Worker.
func (w *ThreadWorker) Close() error {
	return nil
}

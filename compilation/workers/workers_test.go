package workers

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"testing"

	"github.com/crytic/solbuild/compilation/diagnostics"
	"github.com/crytic/solbuild/compilation/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHelperProcess is not a real test. It is the body of the worker child processes started by the tests below.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	switch os.Getenv("HELPER_MODE") {
	case "crash":
		fmt.Fprintln(os.Stderr, "panic: stack overflow")
		os.Exit(1)
	case "garbage":
		fmt.Fprint(os.Stdout, "not a worker reply")
		os.Exit(0)
	default:
		if err := RunWorkerProcess(os.Stdin, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		os.Exit(0)
	}
}

// newHelperWorker creates a ProcessWorker which runs TestHelperProcess in the given mode.
func newHelperWorker(mode string) *ProcessWorker {
	return &ProcessWorker{
		Executable: os.Args[0],
		Args:       []string{"-test.run=TestHelperProcess", "--"},
		Env:        []string{"GO_WANT_HELPER_PROCESS=1", "HELPER_MODE=" + mode},
	}
}

// newTestInput creates a worker input for a runtime unit of contract "a.sol:A".
func newTestInput(ir string) *Input {
	settings := types.DefaultCompilationSettings()
	settings.AppendCBOR = false
	return NewInput(&types.CompilationUnit{
		Name:            types.NewContractName("a.sol", "A"),
		Segment:         types.CodeSegmentRuntime,
		Identifier:      "A_deployed",
		IR:              ir,
		IdentifierPaths: map[string]string{"A_deployed": "a.sol:A"},
		Settings:        settings,
	})
}

func TestProcessWorker_Success(t *testing.T) {
	t.Parallel()

	object, err := newHelperWorker("ok").Compile(context.Background(), newTestInput("PUSH 1\nSTOP"))
	require.NoError(t, err)
	assert.Equal(t, "A_deployed", object.Identifier)
	assert.Equal(t, types.ObjectFormatRelocatable, object.Format)
}

func TestProcessWorker_Crash(t *testing.T) {
	t.Parallel()

	_, err := newHelperWorker("crash").Compile(context.Background(), newTestInput("STOP"))

	var failure *diagnostics.WorkerFailureError
	require.True(t, errors.As(err, &failure))
	require.NotNil(t, failure.ExitCode)
	assert.Equal(t, 1, *failure.ExitCode)
	assert.Equal(t, "a.sol:A", failure.Path)
	assert.Contains(t, failure.Stderr, "panic: stack overflow")
	assert.Contains(t, failure.Error(), "subprocess failed with exit code 1")
}

func TestProcessWorker_UnparsableOutput(t *testing.T) {
	t.Parallel()

	_, err := newHelperWorker("garbage").Compile(context.Background(), newTestInput("STOP"))

	var failure *diagnostics.WorkerFailureError
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, "not a worker reply", failure.Stdout)
}

func TestProcessWorker_StructuredError(t *testing.T) {
	t.Parallel()

	_, err := newHelperWorker("ok").Compile(context.Background(), newTestInput("DUP17"))

	var stackTooDeep *diagnostics.StackTooDeepError
	require.True(t, errors.As(err, &stackTooDeep))
	assert.EqualValues(t, 32, stackTooDeep.SpillAreaSize)
	assert.Equal(t, types.CodeSegmentRuntime, *stackTooDeep.CodeSegment)
}

func TestThreadWorker(t *testing.T) {
	t.Parallel()

	worker := NewThreadWorker()
	defer worker.Close()

	object, err := worker.Compile(context.Background(), newTestInput("PUSH 1\nSTOP"))
	require.NoError(t, err)
	assert.Equal(t, "A_deployed", object.Identifier)

	_, err = worker.Compile(context.Background(), newTestInput("NOT_AN_OPCODE"))
	var diagnostic *diagnostics.Diagnostic
	require.True(t, errors.As(err, &diagnostic))
	assert.True(t, diagnostic.IsError())
}

func TestCompile_IncompatibleVersion(t *testing.T) {
	t.Parallel()

	input := newTestInput("STOP")
	input.CompilerVersion = "999.0.0"
	output := compile(input)
	require.NotNil(t, output.Error)
	assert.Equal(t, errorKindDiagnostic, output.Error.Kind)
}

func TestNewWorker(t *testing.T) {
	t.Parallel()

	worker, err := NewWorker(StrategyThread)
	require.NoError(t, err)
	assert.IsType(t, &ThreadWorker{}, worker)

	worker, err = NewWorker(StrategyProcess)
	require.NoError(t, err)
	assert.IsType(t, &ProcessWorker{}, worker)

	_, err = NewWorker("fork")
	assert.Error(t, err)
}

func TestRaiseMaxStack(t *testing.T) {
	original := debug.SetMaxStack(1 << 20)
	defer debug.SetMaxStack(original)

	// A lowered limit is raised
	assert.Equal(t, WorkerStackSize, raiseMaxStack(WorkerStackSize))

	// A higher limit is kept
	debug.SetMaxStack(2 * WorkerStackSize)
	assert.Equal(t, 2*WorkerStackSize, raiseMaxStack(WorkerStackSize))
	assert.Equal(t, 2*WorkerStackSize, debug.SetMaxStack(2*WorkerStackSize))
}

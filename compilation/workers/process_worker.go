package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"

	"github.com/crytic/solbuild/compilation/diagnostics"
	"github.com/crytic/solbuild/compilation/types"
	"github.com/crytic/solbuild/utils"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// WorkerCommand is the subcommand a worker child process is started with.
const WorkerCommand = "worker"

// ProcessWorker compiles every unit in a child process, exchanging JSON messages over its standard streams. A crash
// of the child (e.g. a stack overflow) only fails the unit it was compiling.
type ProcessWorker struct {
	// Executable describes the path of the executable started for every unit.
	Executable string

	// Args describes the arguments preceding the unit path.
	Args []string

	// Env describes additional environment variables of the child process.
	Env []string
}

// NewProcessWorker creates a ProcessWorker which re-invokes the running executable.
func NewProcessWorker() (*ProcessWorker, error) {
	executable, err := os.Executable()
	if err != nil {
		return nil, errors.Wrap(err, "could not resolve the running executable")
	}
	return &ProcessWorker{Executable: executable, Args: []string{WorkerCommand}}, nil
}

// Compile implements Worker.
func (w *ProcessWorker) Compile(ctx context.Context, input *Input) (*types.ContractObject, error) {
	path := input.Unit.Name.FullPath
	data, err := json.Marshal(input)
	if err != nil {
		return nil, diagnostics.NewInternalError("could not encode worker input of %s: %v", path, err)
	}

	command := exec.CommandContext(ctx, w.Executable, append(slices.Clone(w.Args), path)...)
	command.Stdin = bytes.NewReader(data)
	command.Env = append(os.Environ(), w.Env...)

	stdout, stderr, _, err := utils.RunCommandWithOutputAndError(command)
	if command.ProcessState == nil {
		// The process never started.
		return nil, &diagnostics.WorkerFailureError{Path: path, Stdout: string(stdout), Stderr: string(stderr), Cause: err}
	}

	if exitCode := command.ProcessState.ExitCode(); exitCode != 0 {
		failure := &diagnostics.WorkerFailureError{Path: path, Stdout: string(stdout), Stderr: string(stderr)}
		if exitCode >= 0 {
			failure.ExitCode = &exitCode
		} else {
			failure.Signal = signalName(command.ProcessState)
		}
		return nil, failure
	}

	var output Output
	if err := json.Unmarshal(stdout, &output); err != nil {
		exitCode := 0
		return nil, &diagnostics.WorkerFailureError{Path: path, ExitCode: &exitCode, Stdout: string(stdout), Stderr: string(stderr), Cause: err}
	}
	if output.Object == nil && output.Error == nil {
		exitCode := 0
		return nil, &diagnostics.WorkerFailureError{Path: path, ExitCode: &exitCode, Stdout: string(stdout), Stderr: string(stderr), Cause: errors.New("empty worker output")}
	}
	return output.Result(input.Unit)
}

// Close implements Worker.
func (w *ProcessWorker) Close() error {
	return nil
}

package workers

import (
	"encoding/json"
	"io"

	"github.com/crytic/solbuild/compilation/codegen"
	"github.com/crytic/solbuild/compilation/diagnostics"
	"github.com/crytic/solbuild/version"
	"github.com/pkg/errors"
)

// RunWorkerProcess reads a single Input from stdin, compiles it and writes the Output to stdout. It is the entry point
// of a worker child process. Compilation failures are reported in the Output; the returned error only describes
// failures to read or write the messages themselves.
func RunWorkerProcess(stdin io.Reader, stdout io.Writer) error {
	var input Input
	if err := json.NewDecoder(stdin).Decode(&input); err != nil {
		return errors.Wrap(err, "could not decode worker input")
	}
	if input.Unit == nil {
		return errors.New("worker input carries no compilation unit")
	}

	output := compile(&input)
	return errors.WithStack(json.NewEncoder(stdout).Encode(output))
}

// compile compiles an input with a fresh backend context.
func compile(input *Input) *Output {
	if err := checkCompilerVersion(input.CompilerVersion); err != nil {
		return NewErrorOutput(err)
	}

	ctx := codegen.NewContext(version.Version)
	if err := ctx.Start(); err != nil {
		return NewErrorOutput(diagnostics.NewInternalError("%v", err))
	}
	defer ctx.Close()

	object, err := ctx.Compile(input.Unit)
	if err != nil {
		return NewErrorOutput(err)
	}
	return NewOutput(object)
}

// checkCompilerVersion ensures the dispatching compiler is compatible with this worker.
func checkCompilerVersion(dispatcherVersion string) error {
	if err := version.CheckCompatible(dispatcherVersion); err != nil {
		return diagnostics.NewError("", err.Error(), nil)
	}
	return nil
}

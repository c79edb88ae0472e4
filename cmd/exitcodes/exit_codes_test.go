package exitcodes

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestGetInnerErrorAndExitCode(t *testing.T) {
	t.Parallel()

	err, code := GetInnerErrorAndExitCode(nil)
	assert.NoError(t, err)
	assert.Equal(t, ExitCodeSuccess, code)

	generic := errors.New("boom")
	err, code = GetInnerErrorAndExitCode(generic)
	assert.Equal(t, generic, err)
	assert.Equal(t, ExitCodeGeneralError, code)

	err, code = GetInnerErrorAndExitCode(errors.Wrap(NewErrorWithExitCode(generic, ExitCodeHandledError), "build"))
	assert.Equal(t, generic, err)
	assert.Equal(t, ExitCodeHandledError, code)

	// A reported failure carries only its exit code.
	err, code = GetInnerErrorAndExitCode(NewErrorWithExitCode(nil, ExitCodeCompilationFailed))
	assert.NoError(t, err)
	assert.Equal(t, ExitCodeCompilationFailed, code)
}

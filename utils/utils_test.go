package utils

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFile_CreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.json")
	require.NoError(t, WriteFile(path, []byte("first")))
	require.NoError(t, WriteFile(path, []byte("2")))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2", string(content))
}

func TestMakeDirectory_RejectsFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	assert.Error(t, MakeDirectory(path))
	assert.NoError(t, MakeDirectory(filepath.Join(t.TempDir(), "dir")))
}

func TestRunCommandWithOutputAndError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	stdout, stderr, combined, err := RunCommandWithOutputAndError(exec.Command("sh", "-c", "echo out; echo err >&2; exit 3"))

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.ExitCode())
	assert.Equal(t, "out\n", string(stdout))
	assert.Equal(t, "err\n", string(stderr))
	assert.Len(t, combined, 8)
}

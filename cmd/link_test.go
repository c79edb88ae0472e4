package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/solbuild/compilation/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestFile writes content into a temporary file and returns its path.
func writeTestFile(t *testing.T, dir string, name string, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLinkFiles(t *testing.T) {
	dir := t.TempDir()
	placeholderL := types.FormatLibraryPlaceholder("lib.sol:L")
	placeholderM := types.FormatLibraryPlaceholder("lib.sol:M")

	full := writeTestFile(t, dir, "full.hex", "73"+placeholderL+"00")
	partial := writeTestFile(t, dir, "partial.hex", "0x73"+placeholderL+"73"+placeholderM)
	plain := writeTestFile(t, dir, "plain.hex", "6001")
	garbage := writeTestFile(t, dir, "garbage.hex", "not bytecode")

	symbols := types.LinkerSymbols{"lib.sol:L": common.HexToAddress("0x1111111111111111111111111111111111111111")}
	report, err := linkFiles([]string{full, partial, plain, garbage}, symbols)
	require.NoError(t, err)

	assert.Equal(t, []string{full}, report.Linked)
	assert.Equal(t, map[string][]string{partial: {types.LibraryPlaceholder("lib.sol:M")}}, report.Unlinked)
	assert.Equal(t, []string{plain, garbage}, report.Ignored)

	address := strings.Repeat("11", 20)
	content, err := os.ReadFile(full)
	require.NoError(t, err)
	assert.Equal(t, "73"+address+"00", string(content))

	// The unknown library keeps its placeholder.
	content, err = os.ReadFile(partial)
	require.NoError(t, err)
	assert.Equal(t, "73"+address+"73"+placeholderM, string(content))

	// Linking again changes nothing.
	report, err = linkFiles([]string{full, partial}, symbols)
	require.NoError(t, err)
	assert.Equal(t, []string{full}, report.Ignored)
	assert.Contains(t, report.Unlinked, partial)
}

func TestLinkFiles_MissingFile(t *testing.T) {
	_, err := linkFiles([]string{filepath.Join(t.TempDir(), "missing.hex")}, nil)
	assert.Error(t, err)
}

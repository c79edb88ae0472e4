package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckCompatible(t *testing.T) {
	assert.NoError(t, CheckCompatible(Version))

	for _, peer := range []string{"999.0.0", "0.0.1", "not-a-version"} {
		assert.Error(t, CheckCompatible(peer), peer)
	}
}

func TestShort(t *testing.T) {
	assert.True(t, strings.HasPrefix(Short(), Version))
	assert.Contains(t, String(), "solbuild version "+Version)
}

package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfoString(t *testing.T) {
	i := Info{Version: "dev", CommitHash: "abcdef123", BuildTime: "now"}
	assert.Equal(t, "jbind dev (commit abcdef123, built now)", i.String())
	assert.Equal(t, "abcdef1", i.Short())

	i.Version = "1.2.3"
	assert.Equal(t, "jbind 1.2.3 (commit abcdef123, built now)", i.String())
}

func TestSemver(t *testing.T) {
	_, ok := Info{Version: "dev"}.Semver()
	assert.False(t, ok)

	v, ok := Info{Version: "v1.4.0"}.Semver()
	require.True(t, ok)
	assert.Equal(t, uint64(4), v.Minor())
}

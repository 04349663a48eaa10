package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSemVer(t *testing.T) {
	parts := strings.Split(NemPeerSemVer, ".")
	require.Len(t, parts, 3)
	require.True(t, strings.HasPrefix(Version, NemPeerSemVer))
}

package port

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindAvailablePort_SkipsBusyPort(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer busy.Close()
	taken := busy.Addr().(*net.TCPAddr).Port

	got, err := FindAvailablePort(taken, 10)
	require.NoError(t, err)
	assert.Greater(t, got, taken)
}

func TestFindAvailablePort_GivesUp(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer busy.Close()
	taken := busy.Addr().(*net.TCPAddr).Port

	_, err = FindAvailablePort(taken, 1)
	assert.Error(t, err)
}

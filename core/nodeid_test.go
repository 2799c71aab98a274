package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNeighborSharesPrefixAndTail(t *testing.T) {
	require := require.New(t)

	var target, self NodeID
	for i := range target {
		target[i] = byte(0xAA)
		self[i] = byte(0x55)
	}

	for _, n := range []int{0, 1, 2, 5, 20} {
		got := Neighbor(target, self, n)
		require.Equal(target[:n], got.Bytes()[:n], "prefix length %d", n)
		require.Equal(self[n:], got.Bytes()[n:], "tail length %d", n)
	}
}

func TestNeighborClampsPrefixLen(t *testing.T) {
	require := require.New(t)

	var target, self NodeID
	require.Equal(self, Neighbor(target, self, -1))
	require.Equal(target, Neighbor(target, self, 21))
}

func TestNewRandomNodeIDIsNonZero(t *testing.T) {
	require := require.New(t)

	id, err := NewRandomNodeID()
	require.NoError(err)
	require.NotEqual(NodeID{}, id)
}

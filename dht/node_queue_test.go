package dht

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/giuseppechecchia/L-Spider/core"
)

func mustKNode(t *testing.T, ip string, port int) core.KNode {
	t.Helper()
	id, err := core.NewRandomNodeID()
	require.NoError(t, err)
	addr, err := core.NewPeerAddress(ip, port)
	require.NoError(t, err)
	return core.KNode{ID: id, Addr: addr}
}

func TestNodeQueuePopFIFO(t *testing.T) {
	require := require.New(t)

	q := newNodeQueue(10)
	a := mustKNode(t, "1.1.1.1", 1)
	b := mustKNode(t, "2.2.2.2", 2)
	q.push(a)
	q.push(b)

	got, ok := q.pop()
	require.True(ok)
	require.Equal(a, got)

	got, ok = q.pop()
	require.True(ok)
	require.Equal(b, got)

	_, ok = q.pop()
	require.False(ok)
}

func TestNodeQueueEvictsOldestOverCapacity(t *testing.T) {
	require := require.New(t)

	q := newNodeQueue(2)
	a := mustKNode(t, "1.1.1.1", 1)
	b := mustKNode(t, "2.2.2.2", 2)
	c := mustKNode(t, "3.3.3.3", 3)
	q.push(a)
	q.push(b)
	q.push(c)

	require.Equal(2, q.len())
	got, ok := q.pop()
	require.True(ok)
	require.Equal(b, got)
}

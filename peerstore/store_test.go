package peerstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/require"

	"github.com/giuseppechecchia/L-Spider/core"
)

func tempStorePath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "peers.jsonl")
}

func TestNewStoreEmptyWhenFileAbsent(t *testing.T) {
	require := require.New(t)

	clk := clock.NewMock()
	s, err := NewStore(Config{Path: tempStorePath(t)}, clk)
	require.NoError(err)
	require.Equal(0, s.Len())
	require.Empty(s.Sample(5))
}

func TestMarkOkThenSampleReturnsAddress(t *testing.T) {
	require := require.New(t)

	clk := clock.NewMock()
	s, err := NewStore(Config{Path: tempStorePath(t)}, clk)
	require.NoError(err)

	addr, err := core.NewPeerAddress("1.2.3.4", 6881)
	require.NoError(err)
	s.MarkOk(addr)

	require.Equal(1, s.Len())
	require.Equal([]core.PeerAddress{addr}, s.Sample(5))
}

func TestMarkOkPersistsAcrossReload(t *testing.T) {
	require := require.New(t)

	path := tempStorePath(t)
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.NewMock()
	clk.Set(now)

	s1, err := NewStore(Config{Path: path, TTL: time.Hour}, clk)
	require.NoError(err)
	addr, err := core.NewPeerAddress("5.6.7.8", 6882)
	require.NoError(err)
	s1.MarkOk(addr)

	clk.Add(10 * time.Minute)
	s2, err := NewStore(Config{Path: path, TTL: time.Hour}, clk)
	require.NoError(err)
	require.Equal(1, s2.Len())
}

func TestNewStoreDropsExpiredEntries(t *testing.T) {
	require := require.New(t)

	path := tempStorePath(t)
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.NewMock()
	clk.Set(now)

	s1, err := NewStore(Config{Path: path, TTL: time.Minute}, clk)
	require.NoError(err)
	addr, err := core.NewPeerAddress("9.9.9.9", 1)
	require.NoError(err)
	s1.MarkOk(addr)

	clk.Add(time.Hour)
	s2, err := NewStore(Config{Path: path, TTL: time.Minute}, clk)
	require.NoError(err)
	require.Equal(0, s2.Len())
}

func TestMarkOkEvictsOldestOverCapacity(t *testing.T) {
	require := require.New(t)

	clk := clock.NewMock()
	s, err := NewStore(Config{Path: tempStorePath(t), MaxPeers: 2}, clk)
	require.NoError(err)

	a1, _ := core.NewPeerAddress("1.1.1.1", 1)
	a2, _ := core.NewPeerAddress("2.2.2.2", 2)
	a3, _ := core.NewPeerAddress("3.3.3.3", 3)

	s.MarkOk(a1)
	clk.Add(time.Second)
	s.MarkOk(a2)
	clk.Add(time.Second)
	s.MarkOk(a3)

	require.Equal(2, s.Len())
	sample := s.Sample(10)
	require.Len(sample, 2)
	require.NotContains(sample, a1)
}

func TestNewStoreTruncatesFileForNewRun(t *testing.T) {
	require := require.New(t)

	path := tempStorePath(t)
	require.NoError(os.WriteFile(path, []byte("garbage not jsonl\n"), 0644))

	clk := clock.NewMock()
	s, err := NewStore(Config{Path: path}, clk)
	require.NoError(err)
	require.Equal(0, s.Len())

	b, err := os.ReadFile(path)
	require.NoError(err)
	require.Empty(b)
}

func TestSampleReturnsAtMostK(t *testing.T) {
	require := require.New(t)

	clk := clock.NewMock()
	s, err := NewStore(Config{Path: tempStorePath(t)}, clk)
	require.NoError(err)

	for i := 1; i <= 5; i++ {
		addr, err := core.NewPeerAddress("10.0.0.1", i)
		require.NoError(err)
		s.MarkOk(addr)
	}
	require.Len(s.Sample(3), 3)
	require.Len(s.Sample(100), 5)
}

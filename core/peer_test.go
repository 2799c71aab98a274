package core

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func compactNodeEntry(id byte, ip [4]byte, port uint16) []byte {
	b := make([]byte, compactNodeSize)
	for i := range b[:20] {
		b[i] = id
	}
	copy(b[20:24], ip[:])
	binary.BigEndian.PutUint16(b[24:26], port)
	return b
}

func TestDecodeCompactNodes(t *testing.T) {
	require := require.New(t)

	var buf []byte
	buf = append(buf, compactNodeEntry(1, [4]byte{1, 2, 3, 4}, 6881)...)
	buf = append(buf, compactNodeEntry(2, [4]byte{5, 6, 7, 8}, 6882)...)

	nodes := DecodeCompactNodes(buf, "")
	require.Len(nodes, 2)
	require.Equal("1.2.3.4", nodes[0].Addr.IP)
	require.Equal(6881, nodes[0].Addr.Port)
}

func TestDecodeCompactNodesRejectsMisalignedLength(t *testing.T) {
	require := require.New(t)

	buf := compactNodeEntry(1, [4]byte{1, 2, 3, 4}, 6881)
	require.Nil(DecodeCompactNodes(buf[:len(buf)-1], ""))
}

func TestDecodeCompactNodesDropsSelfAndBadPort(t *testing.T) {
	require := require.New(t)

	var buf []byte
	buf = append(buf, compactNodeEntry(1, [4]byte{9, 9, 9, 9}, 6881)...) // self, dropped
	buf = append(buf, compactNodeEntry(2, [4]byte{1, 2, 3, 4}, 0)...)    // bad port, dropped
	buf = append(buf, compactNodeEntry(3, [4]byte{5, 6, 7, 8}, 6882)...) // kept

	nodes := DecodeCompactNodes(buf, "9.9.9.9")
	require.Len(nodes, 1)
	require.Equal("5.6.7.8", nodes[0].Addr.IP)
}

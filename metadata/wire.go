package metadata

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/giuseppechecchia/L-Spider/bencode"
	"github.com/giuseppechecchia/L-Spider/core"
)

const (
	btProtocol       = "BitTorrent protocol"
	btMsgID          = 20
	extHandshakeID   = 0
	extensionBitByte = 5
	extensionBitMask = 0x10
)

// newPeerID returns a random 20-byte BitTorrent peer id presented during
// the handshake.
func newPeerID() ([20]byte, error) {
	var id [20]byte
	if _, err := rand.Read(id[:]); err != nil {
		return id, fmt.Errorf("read random peer id: %s", err)
	}
	return id, nil
}

// buildHandshake returns the 68-byte BT handshake packet: pstrlen, pstr,
// 8 reserved bytes with the extension-protocol bit set, the infohash, and
// peerID.
func buildHandshake(ih core.InfoHash, peerID [20]byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(len(btProtocol)))
	buf.WriteString(btProtocol)
	reserved := make([]byte, 8)
	reserved[extensionBitByte] = extensionBitMask
	buf.Write(reserved)
	buf.Write(ih.Bytes())
	buf.Write(peerID[:])
	return buf.Bytes()
}

// validateHandshakeReply reports whether packet starts with a well-formed BT
// handshake (pstrlen, pstr, reserved bytes) carrying the expected infohash.
// The trailing 20-byte peer id is neither checked nor required.
func validateHandshakeReply(packet []byte, want core.InfoHash) bool {
	if len(packet) < 1 {
		return false
	}
	pstrlen := int(packet[0])
	if pstrlen != len(btProtocol) {
		return false
	}
	if len(packet) < 1+pstrlen+8+20 {
		return false
	}
	if string(packet[1:1+pstrlen]) != btProtocol {
		return false
	}
	gotHash := packet[1+pstrlen+8 : 1+pstrlen+8+20]
	return bytes.Equal(gotHash, want.Bytes())
}

func lengthPrefixed(body []byte) []byte {
	out := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(out, uint32(len(body)))
	copy(out[4:], body)
	return out
}

// buildExtHandshakeMessage returns the length-prefixed BEP-10 extension
// handshake advertising support for ut_metadata=1.
func buildExtHandshakeMessage() ([]byte, error) {
	m := bencode.NewDict()
	m.Set("ut_metadata", bencode.Int(1))
	d := bencode.NewDict()
	d.Set("m", bencode.DictValue(m))

	payload, err := bencode.Marshal(bencode.DictValue(d))
	if err != nil {
		return nil, err
	}
	body := append([]byte{btMsgID, extHandshakeID}, payload...)
	return lengthPrefixed(body), nil
}

// parseExtHandshake parses packet, the length-prefixed ext-handshake
// message read off the wire (4-byte length prefix + body), and returns the
// remote peer's ut_metadata extension id and advertised metadata_size. ok
// is false on any structural mismatch.
func parseExtHandshake(packet []byte) (utMetadataID, metadataSize int, ok bool) {
	if len(packet) < 6 {
		return 0, 0, false
	}
	msgLen := binary.BigEndian.Uint32(packet[:4])
	if msgLen <= 2 || uint64(len(packet)) < 4+uint64(msgLen) {
		return 0, 0, false
	}
	if packet[4] != btMsgID || packet[5] != extHandshakeID {
		return 0, 0, false
	}
	payload := packet[6 : 4+msgLen]

	v, err := bencode.Unmarshal(payload)
	if err != nil {
		return 0, 0, false
	}
	d, ok := v.AsDict()
	if !ok {
		return 0, 0, false
	}
	mDict, ok := d.GetDict("m")
	if !ok {
		return 0, 0, false
	}
	utVal, ok := mDict.GetInt("ut_metadata")
	if !ok || utVal <= 0 {
		return 0, 0, false
	}
	sizeVal, ok := d.GetInt("metadata_size")
	if !ok || sizeVal <= 0 {
		return 0, 0, false
	}
	return int(utVal), int(sizeVal), true
}

// buildMetadataRequestMessage returns the length-prefixed ut_metadata
// piece request for the given extension id and piece index.
func buildMetadataRequestMessage(utMetadataID, piece int) ([]byte, error) {
	d := bencode.NewDict()
	d.Set("msg_type", bencode.Int(0))
	d.Set("piece", bencode.Int(int64(piece)))

	payload, err := bencode.Marshal(bencode.DictValue(d))
	if err != nil {
		return nil, err
	}
	body := append([]byte{btMsgID, byte(utMetadataID)}, payload...)
	return lengthPrefixed(body), nil
}

// extractPiecePayload pulls the raw metadata bytes out of blob, the
// accumulated response to a single piece request. It tries two framing
// strategies in order:
//
//  1. A precise bencode scan: find the first 'd', decode a dict via the
//     tolerant framing scan, and verify it is a {msg_type:1, piece:want}
//     data-message header before trusting whatever follows as payload.
//  2. A cheap fallback: search for the literal substring "ee" (the typical
//     close of a {msg_type,piece,total_size} header) and treat everything
//     after the first occurrence as payload. This is what real-world
//     implementations often do, but it is unsound in general -- an "ee"
//     byte pair can occur earlier in the header (inside a byte string, or
//     where an int closes a nested list or dict) before the outer dict
//     actually closes -- so it is tried only once strategy 1 fails.
func extractPiecePayload(blob []byte, want int) ([]byte, bool) {
	if payload, ok := extractPiecePayloadByScan(blob, want); ok {
		return payload, true
	}
	return extractPiecePayloadByMarker(blob)
}

func extractPiecePayloadByScan(blob []byte, want int) ([]byte, bool) {
	start := bytes.IndexByte(blob, 'd')
	if start < 0 {
		return nil, false
	}
	n, err := bencode.ScanDict(blob[start:])
	if err != nil {
		return nil, false
	}
	end := start + n

	v, err := bencode.Unmarshal(blob[start:end])
	if err != nil {
		return nil, false
	}
	d, ok := v.AsDict()
	if !ok {
		return nil, false
	}
	msgType, ok := d.GetInt("msg_type")
	if !ok || msgType != 1 {
		return nil, false
	}
	pieceNo, ok := d.GetInt("piece")
	if !ok || int(pieceNo) != want {
		return nil, false
	}
	return blob[end:], true
}

func extractPiecePayloadByMarker(blob []byte) ([]byte, bool) {
	const marker = "ee"
	idx := bytes.Index(blob, []byte(marker))
	if idx < 0 {
		return nil, false
	}
	return blob[idx+len(marker):], true
}

package core

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NodeID is the opaque 20-byte Kademlia identifier a DHT participant presents
// of itself. Unlike InfoHash it carries no hash semantics of its own: it is
// either generated randomly at startup, or synthesized per-response to share
// a prefix with a peer's own id (see Neighbor).
type NodeID [20]byte

// NewRandomNodeID generates a fresh random 20-byte id, as done once at
// process startup.
func NewRandomNodeID() (NodeID, error) {
	var id NodeID
	if _, err := rand.Read(id[:]); err != nil {
		return NodeID{}, fmt.Errorf("read random bytes: %s", err)
	}
	return id, nil
}

// NewNodeIDFromBytes interprets b, which must be exactly 20 bytes, as a
// NodeID.
func NewNodeIDFromBytes(b []byte) (NodeID, error) {
	var id NodeID
	if len(b) != 20 {
		return id, fmt.Errorf("invalid node id: expected 20 bytes, got %d", len(b))
	}
	copy(id[:], b)
	return id, nil
}

// Bytes returns the raw 20-byte representation of id.
func (id NodeID) Bytes() []byte {
	return id[:]
}

func (id NodeID) String() string {
	return hex.EncodeToString(id[:])
}

// Neighbor synthesizes an id which shares its first prefixLen bytes with
// target and whose remaining bytes come from self. Presenting Neighbor(peer,
// self, tokenLength) to peer makes peer believe we sit in its own Kademlia
// neighborhood, attracting get_peers/announce_peer traffic addressed to
// infohashes near peer's own id.
//
// prefixLen is clamped to [0, 20]; a target or self shorter than prefixLen
// bytes is a caller bug and panics, since both are always fixed 20-byte ids.
func Neighbor(target, self NodeID, prefixLen int) NodeID {
	if prefixLen < 0 {
		prefixLen = 0
	}
	if prefixLen > 20 {
		prefixLen = 20
	}
	var out NodeID
	copy(out[:prefixLen], target[:prefixLen])
	copy(out[prefixLen:], self[prefixLen:])
	return out
}

// NeighborOfInfoHash is Neighbor with the 20-byte InfoHash treated as the
// target prefix, used when replying to get_peers so our advertised id
// appears to be in the infohash's own neighborhood.
func NeighborOfInfoHash(target InfoHash, self NodeID, prefixLen int) NodeID {
	return Neighbor(NodeID(target), self, prefixLen)
}

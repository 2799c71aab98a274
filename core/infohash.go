// Copyright (c) 2016-2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package core

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
)

// InfoHash is the opaque 20-byte SHA-1 identifier of a torrent's bencoded
// info dict. It is the authoritative identifier used throughout the DHT,
// the wire handshake, and persisted state.
type InfoHash [20]byte

// ZeroInfoHash is the zero-value sentinel used to detect an unset hash.
var ZeroInfoHash InfoHash

// NewInfoHashFromHex converts a 40-character hexadecimal string (either
// case) into an InfoHash.
func NewInfoHashFromHex(s string) (InfoHash, error) {
	if len(s) != 40 {
		return InfoHash{}, fmt.Errorf("invalid infohash: expected 40 hex characters, got %d", len(s))
	}
	var h InfoHash
	n, err := hex.Decode(h[:], []byte(s))
	if err != nil {
		return InfoHash{}, fmt.Errorf("invalid hex: %s", err)
	}
	if n != 20 {
		return InfoHash{}, fmt.Errorf("invariant violation: expected 20 bytes, got %d", n)
	}
	return h, nil
}

// NewInfoHashFromRawBytes interprets b, which must be exactly 20 bytes, as
// an InfoHash directly (no hashing). Used for infohashes observed on the
// wire, e.g. in an announce_peer query.
func NewInfoHashFromRawBytes(b []byte) (InfoHash, error) {
	var h InfoHash
	if len(b) != 20 {
		return h, fmt.Errorf("invalid infohash: expected 20 bytes, got %d", len(b))
	}
	copy(h[:], b)
	return h, nil
}

// NewInfoHashFromBencodedInfo computes the SHA-1 of the bencoded info dict b,
// yielding the InfoHash that identifies it.
func NewInfoHashFromBencodedInfo(b []byte) InfoHash {
	var h InfoHash
	hasher := sha1.New()
	hasher.Write(b)
	copy(h[:], hasher.Sum(nil))
	return h
}

// Bytes converts h to its raw 20-byte representation.
func (h InfoHash) Bytes() []byte {
	return h[:]
}

// Hex converts h into lowercase hexadecimal.
func (h InfoHash) Hex() string {
	return hex.EncodeToString(h[:])
}

// HexUpper converts h into the canonical uppercase hexadecimal text form.
func (h InfoHash) HexUpper() string {
	return strings.ToUpper(h.Hex())
}

func (h InfoHash) String() string {
	return h.HexUpper()
}

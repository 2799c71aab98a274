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

// Package metadata implements opportunistic BitTorrent metadata retrieval:
// given a peer address and an infohash learned from the DHT, it dials the
// peer over TCP, performs the standard BT handshake plus the BEP-10
// extension handshake, then pulls the torrent's info dict piece-by-piece
// via BEP-9 (ut_metadata) and validates it against the infohash.
package metadata

// Status is the terminal outcome of a single Fetch call.
type Status uint8

// The closed set of Fetch outcomes.
const (
	StatusOK Status = iota
	StatusHandshakeFail
	StatusExtFail
	StatusBadPieces
	StatusNoPieces
	StatusSHA1Mismatch
	StatusTimeout
	StatusOSError
	StatusException
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusHandshakeFail:
		return "handshake_fail"
	case StatusExtFail:
		return "ext_fail"
	case StatusBadPieces:
		return "bad_pieces"
	case StatusNoPieces:
		return "no_pieces"
	case StatusSHA1Mismatch:
		return "sha1_mismatch"
	case StatusTimeout:
		return "timeout"
	case StatusOSError:
		return "os_error"
	case StatusException:
		return "exception"
	default:
		return "unknown"
	}
}

// OK reports whether s is the success status.
func (s Status) OK() bool {
	return s == StatusOK
}

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

// Package peerstore implements a persisted reputation store mapping
// core.PeerAddress to the last time it was observed behaving well. Two
// independent instances of Store exist in this program: one tracking DHT
// peers that answered find_node (the bootstrap store), and one tracking
// metadata peers that completed a successful BEP-9 fetch (used to seed
// hint amplification in the dispatcher).
package peerstore

import "time"

// Config defines Store configuration. Both instantiations of Store in this
// program (dht bootstrap, metadata peers) share this shape with different
// values.
type Config struct {
	// Path is the JSONL file the store persists to. Every NewStore call
	// loads it into memory and then truncates it to empty.
	Path string `yaml:"path"`

	// TTL is how long a peer is kept after its last good sighting before it
	// is no longer eligible to be loaded back in on the next run.
	TTL time.Duration `yaml:"ttl"`

	// MaxPeers bounds the in-memory set; the oldest entries by last-seen
	// time are evicted first.
	MaxPeers int `yaml:"max_peers"`
}

func (c *Config) applyDefaults() {
	if c.Path == "" {
		c.Path = "state/peers.jsonl"
	}
	if c.TTL == 0 {
		c.TTL = 72 * time.Hour
	}
	if c.MaxPeers == 0 {
		c.MaxPeers = 1000
	}
}

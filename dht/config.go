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

// Package dht implements a Mainline (Kademlia/BEP-5) DHT node that never
// tries to be a well-behaved participant: it exists purely to attract
// get_peers and announce_peer traffic addressed near its own (and
// synthesized neighbor) ids, and to harvest the infohash/peer pairs that
// traffic carries.
package dht

import (
	"time"

	"github.com/giuseppechecchia/L-Spider/peerstore"
)

// bootstrapHost is a well-known public DHT router used to join the
// network on startup.
type bootstrapHost struct {
	Host string
	Port int
}

// defaultBootstrapHosts are the three hard-coded BitTorrent bootstrap
// routers queried on every (re-)join, in addition to any addresses sampled
// from the persisted bootstrap store.
var defaultBootstrapHosts = []bootstrapHost{
	{"router.bittorrent.com", 6881},
	{"dht.transmissionbt.com", 6881},
	{"router.utorrent.com", 6881},
}

// Config defines Node configuration.
type Config struct {
	// IP is the local address to bind the UDP socket to.
	IP string `yaml:"ip"`

	// Port is the local UDP port to bind to.
	Port int `yaml:"port"`

	// MaxNodeQueueSize bounds the FIFO of KNodes awaiting an outbound
	// find_node; the oldest is evicted once the queue is full.
	MaxNodeQueueSize int `yaml:"max_node_queue_size"`

	// RejoinInterval is how often the re-bootstrap timer fires.
	RejoinInterval time.Duration `yaml:"rejoin_interval"`

	// TokenLength is the number of leading infohash/nodeid bytes used both
	// as the get_peers token and as the neighbor-trick prefix length.
	TokenLength int `yaml:"token_length"`

	// TIDLength is the byte length of generated KRPC transaction ids.
	TIDLength int `yaml:"tid_length"`

	// BootstrapExtraK is how many addresses to sample from the bootstrap
	// store, in addition to the hard-coded routers, on every (re-)join.
	BootstrapExtraK int `yaml:"bootstrap_extra_k"`

	// RecvBufferSize is the maximum UDP datagram size read per recv call.
	RecvBufferSize int `yaml:"recv_buffer_size"`

	// BootstrapStore configures the persisted store of peers that have
	// answered find_node in the past.
	BootstrapStore peerstore.Config `yaml:"bootstrap_store"`
}

func (c *Config) applyDefaults() {
	if c.IP == "" {
		c.IP = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 6882
	}
	if c.MaxNodeQueueSize == 0 {
		c.MaxNodeQueueSize = 200
	}
	if c.RejoinInterval == 0 {
		c.RejoinInterval = 3 * time.Second
	}
	if c.TokenLength == 0 {
		c.TokenLength = 2
	}
	if c.TIDLength == 0 {
		c.TIDLength = 2
	}
	if c.BootstrapExtraK == 0 {
		c.BootstrapExtraK = 50
	}
	if c.RecvBufferSize == 0 {
		c.RecvBufferSize = 65536
	}
	if c.BootstrapStore.Path == "" {
		c.BootstrapStore.Path = "state/dht_bootstrap.jsonl"
	}
	if c.BootstrapStore.MaxPeers == 0 {
		c.BootstrapStore.MaxPeers = 5000
	}
	c.BootstrapStore.TTL = defaultNonZeroDuration(c.BootstrapStore.TTL, 72*time.Hour)
}

func defaultNonZeroDuration(d, def time.Duration) time.Duration {
	if d == 0 {
		return def
	}
	return d
}

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
package peerstore

import (
	"bufio"
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"

	"github.com/giuseppechecchia/L-Spider/core"
	"github.com/giuseppechecchia/L-Spider/utils/log"
)

type record struct {
	IP     string `json:"ip"`
	Port   int    `json:"port"`
	LastOK int64  `json:"last_ok"`
}

type entry struct {
	addr   core.PeerAddress
	lastOK time.Time
}

// Store is a bounded, TTL-expiring, disk-persisted set of peer addresses
// known to have behaved well in the past. On construction it loads
// surviving entries from Path (dropping anything older than TTL or beyond
// MaxPeers), then truncates Path so the file reflects only what this run
// re-persists via MarkOk. This mirrors the "load then reset" lifecycle:
// the file on disk is always a checkpoint of the current run, not an
// ever-growing log.
type Store struct {
	config Config
	clk    clock.Clock

	mu      sync.Mutex
	entries []entry
}

// NewStore loads config.Path and returns a ready Store. A missing or
// unreadable file is not an error: the store simply starts empty.
func NewStore(config Config, clk clock.Clock) (*Store, error) {
	config.applyDefaults()
	s := &Store{config: config, clk: clk}
	s.loadPrevious()
	if err := s.resetFile(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) loadPrevious() {
	f, err := os.Open(s.config.Path)
	if err != nil {
		return
	}
	defer f.Close()

	now := s.clk.Now()
	byAddr := make(map[core.PeerAddress]time.Time)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r record
		if err := json.Unmarshal(line, &r); err != nil {
			continue
		}
		addr, err := core.NewPeerAddress(r.IP, r.Port)
		if err != nil {
			continue
		}
		ts := time.Unix(r.LastOK, 0)
		if now.Sub(ts) > s.config.TTL {
			continue
		}
		if prev, ok := byAddr[addr]; !ok || ts.After(prev) {
			byAddr[addr] = ts
		}
	}
	if err := scanner.Err(); err != nil {
		log.Warnf("peerstore: reading %s: %s", s.config.Path, err)
	}

	entries := make([]entry, 0, len(byAddr))
	for addr, ts := range byAddr {
		entries = append(entries, entry{addr: addr, lastOK: ts})
	}
	sortByRecency(entries)
	if len(entries) > s.config.MaxPeers {
		entries = entries[:s.config.MaxPeers]
	}
	s.entries = entries
}

func (s *Store) resetFile() error {
	if dir := filepath.Dir(s.config.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.Create(s.config.Path)
	if err != nil {
		return err
	}
	return f.Close()
}

func sortByRecency(entries []entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].lastOK.After(entries[j].lastOK)
	})
}

// MarkOk records addr as having behaved well just now, persisting the
// observation to Path and evicting the least-recently-seen entry if the
// store is over MaxPeers.
func (s *Store) MarkOk(addr core.PeerAddress) {
	if addr.Zero() {
		return
	}
	now := s.clk.Now()

	s.mu.Lock()
	found := false
	for i := range s.entries {
		if s.entries[i].addr == addr {
			s.entries[i].lastOK = now
			found = true
			break
		}
	}
	if !found {
		s.entries = append(s.entries, entry{addr: addr, lastOK: now})
	}
	sortByRecency(s.entries)
	if len(s.entries) > s.config.MaxPeers {
		s.entries = s.entries[:s.config.MaxPeers]
	}
	s.mu.Unlock()

	s.appendRecord(addr, now)
}

func (s *Store) appendRecord(addr core.PeerAddress, ts time.Time) {
	f, err := os.OpenFile(s.config.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Warnf("peerstore: append %s: %s", s.config.Path, err)
		return
	}
	defer f.Close()

	b, err := json.Marshal(record{IP: addr.IP, Port: addr.Port, LastOK: ts.Unix()})
	if err != nil {
		return
	}
	b = append(b, '\n')
	if _, err := f.Write(b); err != nil {
		log.Warnf("peerstore: write %s: %s", s.config.Path, err)
	}
}

// Sample returns up to k distinct peer addresses chosen uniformly at
// random from the store's current contents. Used both by the DHT node to
// seed bootstrap find_node queries, and by the dispatcher to amplify a
// freshly logged infohash to other known-good metadata peers.
func (s *Store) Sample(k int) []core.PeerAddress {
	s.mu.Lock()
	pool := make([]core.PeerAddress, len(s.entries))
	for i, e := range s.entries {
		pool[i] = e.addr
	}
	s.mu.Unlock()

	if len(pool) == 0 || k <= 0 {
		return nil
	}
	if k >= len(pool) {
		return pool
	}
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:k]
}

// Len reports the number of addresses currently held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

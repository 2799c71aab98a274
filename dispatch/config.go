package dispatch

import (
	"time"

	"github.com/giuseppechecchia/L-Spider/peerstore"
)

// Config defines Master configuration.
type Config struct {
	// MaxWorkers bounds the number of concurrent metadata fetches.
	MaxWorkers int `yaml:"max_workers"`

	// HintK is how many known-good metadata peers are amplified against
	// per newly observed infohash.
	HintK int `yaml:"hint_k"`

	// SeenCap is the size at which the dedup set is flushed entirely.
	SeenCap int `yaml:"seen_cap"`

	// FailWindow is the sliding window a peer's qualifying failures are
	// counted within.
	FailWindow time.Duration `yaml:"fail_window"`

	// FailThreshold is how many qualifying failures inside FailWindow
	// move a peer into the bad-peer map.
	FailThreshold int `yaml:"fail_threshold"`

	// BadTTL is how long a peer stays quarantined once bad.
	BadTTL time.Duration `yaml:"bad_ttl"`

	// HeartbeatInterval is how often summary stats are logged.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// MetadataPeerStore configures the store of peers metadata has been
	// successfully fetched from, used both for hint amplification and
	// result bookkeeping.
	MetadataPeerStore peerstore.Config `yaml:"metadata_peer_store"`
}

func (c *Config) applyDefaults() {
	if c.MaxWorkers == 0 {
		c.MaxWorkers = 100
	}
	if c.HintK == 0 {
		c.HintK = 5
	}
	if c.SeenCap == 0 {
		c.SeenCap = 60000
	}
	if c.FailWindow == 0 {
		c.FailWindow = 180 * time.Second
	}
	if c.FailThreshold == 0 {
		c.FailThreshold = 3
	}
	if c.BadTTL == 0 {
		c.BadTTL = 300 * time.Second
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = 5 * time.Second
	}
	if c.MetadataPeerStore.Path == "" {
		c.MetadataPeerStore.Path = "state/metadata_peers.jsonl"
	}
}

package metadata

import "time"

// Config defines Fetcher configuration.
type Config struct {
	// DialTimeout bounds the initial TCP connect.
	DialTimeout time.Duration `yaml:"dial_timeout"`

	// IOTimeout bounds every individual blocking read/write, and doubles as
	// the piece-drain idle timeout.
	IOTimeout time.Duration `yaml:"io_timeout"`

	// MaxExtHandshakeSize rejects an implausibly large ext-handshake body
	// before allocating a buffer for it.
	MaxExtHandshakeSize int `yaml:"max_ext_handshake_size"`

	// PieceSize is the fixed ut_metadata piece size (BEP-9 mandates 16KiB
	// except for the final piece).
	PieceSize int `yaml:"piece_size"`

	// MaxPieces caps how many pieces a single torrent's metadata may be
	// split into, guarding against a peer claiming an absurd metadata_size.
	MaxPieces int `yaml:"max_pieces"`

	// DialRetries is how many additional dial attempts are made (with
	// exponential backoff) after the first fails, before giving up.
	DialRetries int `yaml:"dial_retries"`
}

func (c *Config) applyDefaults() {
	if c.DialTimeout == 0 {
		c.DialTimeout = 6 * time.Second
	}
	if c.IOTimeout == 0 {
		c.IOTimeout = 6 * time.Second
	}
	if c.MaxExtHandshakeSize == 0 {
		c.MaxExtHandshakeSize = 2_000_000
	}
	if c.PieceSize == 0 {
		c.PieceSize = 16 * 1024
	}
	if c.MaxPieces == 0 {
		c.MaxPieces = 4096
	}
}

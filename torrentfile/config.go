package torrentfile

// Config controls how a Writer persists discovered torrents.
type Config struct {
	// Dir is the directory .torrent files are written under.
	Dir string `yaml:"dir"`

	// LogPath is the text log discovered infohashes are appended to.
	LogPath string `yaml:"log_path"`

	// WriteTorrents, when false, skips writing .torrent files entirely
	// (the CLI's -b:0 flag).
	WriteTorrents bool `yaml:"write_torrents"`

	// PrintOnly, when true, writes nothing to disk at all: the text log
	// block is written to stdout instead (the CLI's -s flag).
	PrintOnly bool `yaml:"print_only"`

	// MaxLoggedFiles caps how many file entries are rendered per torrent
	// in the text log block.
	MaxLoggedFiles int `yaml:"max_logged_files"`
}

func (c *Config) applyDefaults() {
	if c.Dir == "" {
		c.Dir = "BT"
	}
	if c.LogPath == "" {
		c.LogPath = "hash.log"
	}
	if c.MaxLoggedFiles == 0 {
		c.MaxLoggedFiles = 10
	}
}

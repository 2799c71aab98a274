package metrics

import "time"

// Config configures the metrics scope and its HTTP exposition server.
type Config struct {
	// Prefix is prepended to every metric name.
	Prefix string `yaml:"prefix"`

	// Addr is the listen address for the /metrics and /healthz mux.
	Addr string `yaml:"addr"`

	// ReportInterval is how often buffered metrics are flushed to the
	// reporter.
	ReportInterval time.Duration `yaml:"report_interval"`
}

func (c *Config) applyDefaults() {
	if c.Prefix == "" {
		c.Prefix = "dht_spider"
	}
	if c.Addr == "" {
		c.Addr = "0.0.0.0:7282"
	}
	if c.ReportInterval == 0 {
		c.ReportInterval = time.Second
	}
}

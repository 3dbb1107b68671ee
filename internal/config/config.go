// Package config holds runtime settings for the nestclip protocol core.
// The core is a library: configuration is assembled by the embedding
// application as defaults, optionally overlaid by a JSON file and then by
// environment variables. Later sources take precedence.
package config

import "time"

// Config carries the collaborator settings the protocol core needs.
//
// Units: durations are time.Duration values; in JSON they may be given as
// strings like "10s".
type Config struct {
	// DataDir roots the profile-scoped media layout and the sqlite database.
	DataDir string

	// RelayURLs lists the relay endpoints the transport pool connects to.
	RelayURLs []string

	// PublishTimeout bounds a single relay publish attempt.
	PublishTimeout time.Duration

	// S3 object storage (MinIO-compatible).
	S3BaseEndpoint string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string

	// FollowRateLimit caps outbound follow requests per identity within
	// FollowRateWindow. Advisory local policy.
	FollowRateLimit  int
	FollowRateWindow time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DataDir = "./nestclip-data"
	c.PublishTimeout = 10 * time.Second
	c.S3Region = "us-east-1"
	c.S3Bucket = "nestclip-media"
	c.FollowRateLimit = 20
	c.FollowRateWindow = time.Hour
}

// Load constructs a Config: defaults, then the JSON file at jsonPath (if
// non-empty), then environment variables. Later sources take precedence.
func Load(jsonPath string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, jsonPath); err != nil {
		return nil, err
	}
	parseEnv(cfg)
	return cfg, nil
}

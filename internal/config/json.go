package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// jsonConfig is a DTO used exclusively for JSON unmarshalling. Durations are
// accepted as strings like "10s".
type jsonConfig struct {
	DataDir          string   `json:"data_dir"`
	RelayURLs        []string `json:"relay_urls"`
	PublishTimeout   string   `json:"publish_timeout"`
	S3BaseEndpoint   string   `json:"s3_base_endpoint"`
	S3Region         string   `json:"s3_region"`
	S3Bucket         string   `json:"s3_bucket"`
	S3AccessKey      string   `json:"s3_access_key"`
	S3SecretKey      string   `json:"s3_secret_key"`
	FollowRateLimit  int      `json:"follow_rate_limit"`
	FollowRateWindow string   `json:"follow_rate_window"`
}

// parseJSON overlays cfg with values from the JSON file at path. An empty
// path means no JSON layer. Only fields present in the file override.
func parseJSON(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if len(jc.RelayURLs) > 0 {
		cfg.RelayURLs = jc.RelayURLs
	}
	if jc.PublishTimeout != "" {
		d, err := time.ParseDuration(jc.PublishTimeout)
		if err != nil {
			return fmt.Errorf("parse publish_timeout: %w", err)
		}
		cfg.PublishTimeout = d
	}
	if jc.S3BaseEndpoint != "" {
		cfg.S3BaseEndpoint = jc.S3BaseEndpoint
	}
	if jc.S3Region != "" {
		cfg.S3Region = jc.S3Region
	}
	if jc.S3Bucket != "" {
		cfg.S3Bucket = jc.S3Bucket
	}
	if jc.S3AccessKey != "" {
		cfg.S3AccessKey = jc.S3AccessKey
	}
	if jc.S3SecretKey != "" {
		cfg.S3SecretKey = jc.S3SecretKey
	}
	if jc.FollowRateLimit > 0 {
		cfg.FollowRateLimit = jc.FollowRateLimit
	}
	if jc.FollowRateWindow != "" {
		d, err := time.ParseDuration(jc.FollowRateWindow)
		if err != nil {
			return fmt.Errorf("parse follow_rate_window: %w", err)
		}
		cfg.FollowRateWindow = d
	}
	return nil
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// parseEnv overlays cfg with NESTCLIP_* environment variables. Unset
// variables leave the corresponding field untouched.
func parseEnv(cfg *Config) {
	if v := os.Getenv("NESTCLIP_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("NESTCLIP_RELAY_URLS"); v != "" {
		cfg.RelayURLs = strings.Split(v, ",")
	}
	if v := os.Getenv("NESTCLIP_PUBLISH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.PublishTimeout = d
		}
	}
	if v := os.Getenv("NESTCLIP_S3_BASE_ENDPOINT"); v != "" {
		cfg.S3BaseEndpoint = v
	}
	if v := os.Getenv("NESTCLIP_S3_REGION"); v != "" {
		cfg.S3Region = v
	}
	if v := os.Getenv("NESTCLIP_S3_BUCKET"); v != "" {
		cfg.S3Bucket = v
	}
	if v := os.Getenv("NESTCLIP_S3_ACCESS_KEY"); v != "" {
		cfg.S3AccessKey = v
	}
	if v := os.Getenv("NESTCLIP_S3_SECRET_KEY"); v != "" {
		cfg.S3SecretKey = v
	}
	if v := os.Getenv("NESTCLIP_FOLLOW_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FollowRateLimit = n
		}
	}
	if v := os.Getenv("NESTCLIP_FOLLOW_RATE_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.FollowRateWindow = d
		}
	}
}

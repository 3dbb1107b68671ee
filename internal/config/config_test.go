package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.PublishTimeout)
	assert.Equal(t, 20, cfg.FollowRateLimit)
	assert.Equal(t, time.Hour, cfg.FollowRateWindow)
	assert.Equal(t, "nestclip-media", cfg.S3Bucket)
}

func TestLoad_JSONOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"data_dir": "/tmp/nc",
		"relay_urls": ["wss://relay-1.example", "wss://relay-2.example"],
		"publish_timeout": "3s",
		"follow_rate_limit": 5
	}`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/nc", cfg.DataDir)
	assert.Len(t, cfg.RelayURLs, 2)
	assert.Equal(t, 3*time.Second, cfg.PublishTimeout)
	assert.Equal(t, 5, cfg.FollowRateLimit)
	// untouched field keeps its default
	assert.Equal(t, "us-east-1", cfg.S3Region)
}

func TestLoad_EnvOverridesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"s3_bucket": "from-json"}`), 0o600))

	t.Setenv("NESTCLIP_S3_BUCKET", "from-env")
	t.Setenv("NESTCLIP_PUBLISH_TIMEOUT", "7s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.S3Bucket)
	assert.Equal(t, 7*time.Second, cfg.PublishTimeout)
}

func TestLoad_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"publish_timeout": "not-a-duration"}`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

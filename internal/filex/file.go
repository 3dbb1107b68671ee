// Package filex resolves the profile-scoped directory layout used for
// downloaded media. Plaintext media never leaves these directories.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// Layout roots all media paths under a single data directory:
//
//	<dataDir>/profiles/<profileID>/videos/<videoID>.mp4
//	<dataDir>/profiles/<profileID>/thumbnails/<videoID>.jpg
type Layout struct {
	dataDir string
}

func NewLayout(dataDir string) *Layout {
	return &Layout{dataDir: dataDir}
}

func (l *Layout) ensure(parts ...string) (string, error) {
	dir := filepath.Join(append([]string{l.dataDir}, parts...)...)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return dir, nil
}

// VideoPath returns the target path for a profile's downloaded video,
// creating parent directories as needed.
func (l *Layout) VideoPath(profileID, videoID string) (string, error) {
	dir, err := l.ensure("profiles", profileID, "videos")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, videoID+".mp4"), nil
}

// ThumbnailPath returns the target path for a profile's downloaded thumbnail.
func (l *Layout) ThumbnailPath(profileID, videoID string) (string, error) {
	dir, err := l.ensure("profiles", profileID, "thumbnails")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, videoID+".jpg"), nil
}

// WriteFile writes data to path with owner-only permissions.
func WriteFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

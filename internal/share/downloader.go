package share

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/nestclip/nestclip/internal/blobstore"
	"github.com/nestclip/nestclip/internal/common"
	"github.com/nestclip/nestclip/internal/cryptox"
	"github.com/nestclip/nestclip/internal/filex"
	"github.com/nestclip/nestclip/internal/identity"
	"github.com/nestclip/nestclip/internal/logging"
)

// Downloader fetches, decrypts and persists a shared video for a local
// profile. Downloads are single-flighted per video id: a second concurrent
// caller awaits the in-flight result instead of re-downloading.
type Downloader struct {
	store  blobstore.ObjectStore
	repo   RemoteVideoRepository
	ids    *identity.Store
	layout *filex.Layout
	log    logging.Logger
	flight singleflight.Group
}

func NewDownloader(store blobstore.ObjectStore, repo RemoteVideoRepository, ids *identity.Store, layout *filex.Layout, log logging.Logger) *Downloader {
	if log == nil {
		log = logging.Nop{}
	}
	return &Downloader{store: store, repo: repo, ids: ids, layout: layout, log: log}
}

// Download drives the record for videoID to downloaded, persisting plaintext
// media under profileID's directories. On failure the record is marked failed
// with a reason and the error is returned.
func (d *Downloader) Download(ctx context.Context, videoID, profileID string) (*RemoteVideo, error) {
	result, err, _ := d.flight.Do(videoID, func() (any, error) {
		return d.download(ctx, videoID, profileID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*RemoteVideo), nil
}

func (d *Downloader) download(ctx context.Context, videoID, profileID string) (*RemoteVideo, error) {
	v, err := d.repo.Get(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if v.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s is %s", common.ErrVideoRevoked, videoID, v.Status)
	}
	msg, err := v.Message()
	if err != nil {
		return nil, d.fail(ctx, videoID, fmt.Errorf("%w: stored metadata unreadable: %v", common.ErrInvalidEnvelope, err))
	}

	if _, err := d.repo.ApplyLifecycle(ctx, videoID, StatusDownloading); err != nil {
		return nil, err
	}

	blob, err := d.store.Download(ctx, msg.Media.Key, msg.Media.URL)
	if err != nil {
		return nil, d.fail(ctx, videoID, err)
	}
	// Thumbnail fetch is best-effort; the video is usable without it.
	thumbnail, thumbErr := d.store.Download(ctx, msg.Thumbnail.Key, msg.Thumbnail.URL)
	if thumbErr != nil {
		d.log.Warn(ctx, "thumbnail download failed", "video_id", videoID, "error", thumbErr.Error())
	}

	mediaKey, err := d.resolveKey(msg.Crypto)
	if err != nil {
		return nil, d.fail(ctx, videoID, err)
	}
	defer common.WipeBytes(mediaKey)

	env, err := cryptox.DecodeBlob(blob, len(msg.Crypto.MediaNonce))
	if err != nil {
		return nil, d.fail(ctx, videoID, fmt.Errorf("%w: %v", common.ErrInvalidEnvelope, err))
	}
	plaintext, err := cryptox.DecryptMedia(env, mediaKey)
	if err != nil {
		return nil, d.fail(ctx, videoID, fmt.Errorf("%w: %v", common.ErrMediaDecryptionFailed, err))
	}

	mediaPath, err := d.layout.VideoPath(profileID, videoID)
	if err != nil {
		return nil, d.fail(ctx, videoID, err)
	}
	if err := filex.WriteFile(mediaPath, plaintext); err != nil {
		return nil, d.fail(ctx, videoID, err)
	}

	thumbnailPath := ""
	if thumbErr == nil {
		thumbnailPath, err = d.layout.ThumbnailPath(profileID, videoID)
		if err != nil {
			return nil, d.fail(ctx, videoID, err)
		}
		if err := filex.WriteFile(thumbnailPath, thumbnail); err != nil {
			return nil, d.fail(ctx, videoID, err)
		}
	}

	if err := d.repo.SetPaths(ctx, videoID, mediaPath, thumbnailPath); err != nil {
		return nil, err
	}
	updated, err := d.repo.ApplyLifecycle(ctx, videoID, StatusDownloaded)
	if err != nil {
		return nil, err
	}
	d.log.Info(ctx, "video downloaded", "video_id", videoID, "profile_id", profileID)
	return updated, nil
}

// resolveKey recovers the media key from the crypto section: unwrap when a
// wrap envelope is present, otherwise fall back to an inline 32-byte key.
// Anything else is an invalid envelope, terminal without sender action.
func (d *Downloader) resolveKey(crypto CryptoInfo) ([]byte, error) {
	if crypto.WrappedKey != nil {
		pair, err := d.ids.ParentWrapKeyPair()
		if err != nil {
			return nil, err
		}
		key, err := cryptox.UnwrapMediaKey(crypto.WrappedKey, pair.PrivateKey)
		if err == nil {
			return key, nil
		}
		if len(crypto.DirectKey) != cryptox.KeySize {
			return nil, fmt.Errorf("%w: unwrap failed and no inline key: %v", common.ErrInvalidEnvelope, err)
		}
	}
	if len(crypto.DirectKey) == cryptox.KeySize {
		cp := make([]byte, cryptox.KeySize)
		copy(cp, crypto.DirectKey)
		return cp, nil
	}
	return nil, fmt.Errorf("%w: no usable key material", common.ErrInvalidEnvelope)
}

// fail marks the record failed with a human-readable reason and passes the
// original error through.
func (d *Downloader) fail(ctx context.Context, videoID string, cause error) error {
	if _, err := d.repo.ApplyLifecycle(ctx, videoID, StatusFailed); err != nil {
		d.log.Error(ctx, "mark failed", "video_id", videoID, "error", err.Error())
	}
	if err := d.repo.SetError(ctx, videoID, cause.Error()); err != nil {
		d.log.Error(ctx, "record failure reason", "video_id", videoID, "error", err.Error())
	}
	return cause
}

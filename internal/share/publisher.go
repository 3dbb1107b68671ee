package share

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nestclip/nestclip/internal/blobstore"
	"github.com/nestclip/nestclip/internal/common"
	"github.com/nestclip/nestclip/internal/cryptox"
	"github.com/nestclip/nestclip/internal/identity"
	"github.com/nestclip/nestclip/internal/logging"
)

// LocalVideo is a household's own video, as stored on disk before sharing.
type LocalVideo struct {
	ID            string
	MediaPath     string
	ThumbnailPath string
	Metadata      Metadata
}

// staged is the memoized result of one encrypt+upload sequence.
type staged struct {
	media     BlobRef
	thumbnail BlobRef
	mediaKey  []byte
	nonce     []byte
}

// Publisher turns a local video into a share message: encrypt once, upload
// once, then wrap the media key per recipient. Staging is single-flighted and
// memoized per video id, so concurrent or repeated shares of the same video
// never re-encrypt or re-upload.
type Publisher struct {
	store  blobstore.ObjectStore
	ids    *identity.Store
	log    logging.Logger
	flight singleflight.Group
	cache  sync.Map // video id -> *staged
	now    func() time.Time
}

func NewPublisher(store blobstore.ObjectStore, ids *identity.Store, log logging.Logger) *Publisher {
	if log == nil {
		log = logging.Nop{}
	}
	return &Publisher{store: store, ids: ids, log: log, now: time.Now}
}

// Share publishes video on behalf of ownerID to one recipient. recipientPub
// is the recipient's 32-byte X25519 wrap public key; when it is absent or
// malformed the media key is embedded inline instead, a logged downgrade that
// leaves only the transport layer's encryption protecting the key.
func (p *Publisher) Share(ctx context.Context, video LocalVideo, ownerID string, recipientPub []byte) (*ShareMessage, error) {
	parent, err := p.ids.ParentIdentity()
	if err != nil {
		return nil, err
	}

	st, err := p.stage(ctx, video, ownerID)
	if err != nil {
		return nil, err
	}

	crypto := CryptoInfo{
		Algorithm:  cryptox.AlgorithmMediaAEAD,
		MediaNonce: st.nonce,
	}
	if len(recipientPub) == cryptox.KeySize {
		wrapped, err := cryptox.WrapMediaKey(st.mediaKey, recipientPub)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrInvalidRecipientKey, err)
		}
		crypto.WrappedKey = wrapped
	} else {
		p.log.Warn(ctx, "recipient wrap key absent or malformed, embedding media key inline",
			"video_id", video.ID, "key_len", len(recipientPub))
		crypto.DirectKey = st.mediaKey
	}

	return p.assemble(video, ownerID, st, crypto, parent.PublicKey), nil
}

// PrepareGroupShare builds a share message for delivery inside an encrypted
// group message. The media key rides inline: the group cipher already limits
// the payload to current members, so no per-recipient wrap is needed.
func (p *Publisher) PrepareGroupShare(ctx context.Context, video LocalVideo, ownerID string) (*ShareMessage, error) {
	parent, err := p.ids.ParentIdentity()
	if err != nil {
		return nil, err
	}

	st, err := p.stage(ctx, video, ownerID)
	if err != nil {
		return nil, err
	}

	crypto := CryptoInfo{
		Algorithm:  cryptox.AlgorithmMediaAEAD,
		MediaNonce: st.nonce,
		DirectKey:  st.mediaKey,
	}
	return p.assemble(video, ownerID, st, crypto, parent.PublicKey), nil
}

func (p *Publisher) assemble(video LocalVideo, ownerID string, st *staged, crypto CryptoInfo, publisherKey []byte) *ShareMessage {
	return &ShareMessage{
		VideoID:      video.ID,
		OwnerID:      ownerID,
		Metadata:     video.Metadata,
		Media:        st.media,
		Thumbnail:    st.thumbnail,
		Crypto:       crypto,
		Visibility:   Visibility{Policy: PolicyFollowers},
		PublisherKey: hex.EncodeToString(publisherKey),
		SharedAt:     p.now().UTC(),
	}
}

// stage reads, encrypts and uploads the video exactly once per video id.
// Failed attempts are not memoized, so a later call retries cleanly.
func (p *Publisher) stage(ctx context.Context, video LocalVideo, ownerID string) (*staged, error) {
	if cached, ok := p.cache.Load(video.ID); ok {
		return cached.(*staged), nil
	}

	result, err, _ := p.flight.Do(video.ID, func() (any, error) {
		if cached, ok := p.cache.Load(video.ID); ok {
			return cached.(*staged), nil
		}
		st, err := p.upload(ctx, video, ownerID)
		if err != nil {
			return nil, err
		}
		p.cache.Store(video.ID, st)
		return st, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*staged), nil
}

func (p *Publisher) upload(ctx context.Context, video LocalVideo, ownerID string) (*staged, error) {
	plaintext, err := os.ReadFile(video.MediaPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrFileMissing, video.MediaPath)
	}
	thumbnail, err := os.ReadFile(video.ThumbnailPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrThumbnailMissing, video.ThumbnailPath)
	}

	mediaKey, err := cryptox.GenerateMediaKey()
	if err != nil {
		return nil, err
	}
	env, err := cryptox.EncryptMedia(plaintext, mediaKey)
	if err != nil {
		return nil, err
	}

	prefix := fmt.Sprintf("videos/%s/%s/", ownerID, video.ID)
	mediaStored, err := p.store.Upload(ctx, cryptox.EncodeBlob(env), MIMEEncryptedBlob, prefix+"media.bin")
	if err != nil {
		return nil, err
	}
	thumbStored, err := p.store.Upload(ctx, thumbnail, MIMEThumbnailJPEG, prefix+"thumb.jpg")
	if err != nil {
		return nil, err
	}

	p.log.Info(ctx, "video staged", "video_id", video.ID, "media_key", mediaStored.Key, "bytes", mediaStored.Length)
	return &staged{
		media:     BlobRef{Key: mediaStored.Key, URL: mediaStored.URL, MIME: MIMEVideoMP4, Length: mediaStored.Length},
		thumbnail: BlobRef{Key: thumbStored.Key, URL: thumbStored.URL, MIME: MIMEThumbnailJPEG, Length: thumbStored.Length},
		mediaKey:  mediaKey,
		nonce:     env.Nonce,
	}, nil
}

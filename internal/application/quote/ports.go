package quote

import "context"

// SignatureStore persists signature images in object storage.
// Only the returned key is kept on the quote; payloads never touch the
// relational store.
type SignatureStore interface {
	// Put stores an image under the given key
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Get retrieves an image by key
	Get(ctx context.Context, key string) ([]byte, error)
}

// ProjectionCache caches serialized public quote projections keyed by
// public id. A miss is returned as (nil, nil); cache failures must never
// fail the read path.
type ProjectionCache interface {
	Get(ctx context.Context, publicID string) ([]byte, error)
	Set(ctx context.Context, publicID string, payload []byte) error
	Invalidate(ctx context.Context, publicID string) error
}

package postal

import (
	"context"
	"io"
	"time"
)

// AddressStore persists resolved addresses.
type AddressStore interface {
	// FindAddress returns ErrNotFound when the key has no mapping.
	FindAddress(ctx context.Context, key AddressKey) (Address, error)
	// SaveAddress inserts the address. When a row with the same key already
	// exists the stored row is returned unchanged.
	SaveAddress(ctx context.Context, addr Address) (Address, error)
	ListByCode(ctx context.Context, code string) ([]Address, error)
	ListAddresses(ctx context.Context, limit, offset int) ([]Address, int, error)
}

// CommuneStore holds the commune catalogue queries are checked against.
type CommuneStore interface {
	// FindCommune returns ErrNotFound when no commune has the normalized key.
	FindCommune(ctx context.Context, key string) (Commune, error)
	// SaveCommunes inserts communes whose key is not stored yet.
	SaveCommunes(ctx context.Context, communes []Commune) error
}

// BlobStore writes raw artifacts and returns a URI. Stores that cannot record
// object attributes ignore the options.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader, opts ...ObjectOption) (string, error)
}

// ObjectAttrs are optional attributes attached to a stored object.
type ObjectAttrs struct {
	CacheControl string
	Metadata     map[string]string
}

// ObjectOption sets an ObjectAttrs field.
type ObjectOption func(*ObjectAttrs)

// WithCacheControl sets the Cache-Control header served with the object.
func WithCacheControl(value string) ObjectOption {
	return func(a *ObjectAttrs) { a.CacheControl = value }
}

// WithMetadata adds one custom metadata entry.
func WithMetadata(key, value string) ObjectOption {
	return func(a *ObjectAttrs) {
		if a.Metadata == nil {
			a.Metadata = make(map[string]string)
		}
		a.Metadata[key] = value
	}
}

// ApplyObjectOptions folds opts into an ObjectAttrs.
func ApplyObjectOptions(opts []ObjectOption) ObjectAttrs {
	var attrs ObjectAttrs
	for _, opt := range opts {
		if opt != nil {
			opt(&attrs)
		}
	}
	return attrs
}

// Publisher pushes resolution events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces record IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}

// Package memory keeps addresses, the commune catalogue and diagnostic blobs
// in memory for development and tests.
package memory

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/JakeFAU/cl-postal-codes/internal/postal"
)

// BlobStore stores artifacts in-memory and returns pseudo URIs. A positive
// limit keeps only the most recently written objects.
type BlobStore struct {
	mu    sync.RWMutex
	limit int
	data  map[string][]byte
	attrs map[string]postal.ObjectAttrs
	order []string
}

// NewBlobStore creates an unbounded in-memory blob store.
func NewBlobStore() *BlobStore {
	return NewBoundedBlobStore(0)
}

// NewBoundedBlobStore creates a store holding at most limit objects. A limit
// of zero or less means no bound.
func NewBoundedBlobStore(limit int) *BlobStore {
	return &BlobStore{
		limit: limit,
		data:  make(map[string][]byte),
		attrs: make(map[string]postal.ObjectAttrs),
	}
}

// PutObject persists the content and returns a URI. Rewriting a path makes it
// the newest object.
func (s *BlobStore) PutObject(_ context.Context, path string, _ string, data io.Reader, opts ...postal.ObjectOption) (string, error) {
	byteData, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("failed to read data from reader: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[path]; ok {
		s.order = slices.DeleteFunc(s.order, func(p string) bool { return p == path })
	}
	s.data[path] = append([]byte(nil), byteData...)
	s.attrs[path] = postal.ApplyObjectOptions(opts)
	s.order = append(s.order, path)
	if s.limit > 0 {
		for len(s.order) > s.limit {
			oldest := s.order[0]
			s.order = s.order[1:]
			delete(s.data, oldest)
			delete(s.attrs, oldest)
		}
	}
	return fmt.Sprintf("mem://%s", path), nil
}

// Object returns a copy of the content stored at path.
func (s *BlobStore) Object(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[path]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Attrs returns the attributes recorded for path.
func (s *BlobStore) Attrs(path string) (postal.ObjectAttrs, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attrs, ok := s.attrs[path]
	return attrs, ok
}

// Paths lists the stored object paths, oldest first.
func (s *BlobStore) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

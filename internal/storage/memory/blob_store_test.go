package memory

import (
	"bytes"
	"context"
	"testing"

	"github.com/JakeFAU/cl-postal-codes/internal/postal"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("\x89PNG")
	uri, err := store.PutObject(context.Background(), "diagnostics/2026/10/14/a.png", "image/png", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	if uri != "mem://diagnostics/2026/10/14/a.png" {
		t.Fatalf("unexpected uri %s", uri)
	}
	payload[0] = 'X'
	stored, ok := store.Object("diagnostics/2026/10/14/a.png")
	if !ok || string(stored) != "\x89PNG" {
		t.Fatalf("expected stored copy to be immutable, got %q", stored)
	}
	stored[0] = 'Y'
	again, _ := store.Object("diagnostics/2026/10/14/a.png")
	if again[0] != 0x89 {
		t.Fatal("expected Object() to return a copy")
	}
	if paths := store.Paths(); len(paths) != 1 {
		t.Fatalf("expected 1 path, got %v", paths)
	}
	if _, ok := store.Object("missing"); ok {
		t.Fatal("expected missing object")
	}
}

func TestBoundedBlobStoreEvictsOldest(t *testing.T) {
	t.Parallel()

	store := NewBoundedBlobStore(2)
	for _, path := range []string{"a.png", "b.png", "c.png"} {
		if _, err := store.PutObject(context.Background(), path, "image/png", bytes.NewReader([]byte(path))); err != nil {
			t.Fatalf("PutObject(%s) error = %v", path, err)
		}
	}
	if _, ok := store.Object("a.png"); ok {
		t.Fatal("expected oldest object to be evicted")
	}
	if paths := store.Paths(); len(paths) != 2 || paths[0] != "b.png" || paths[1] != "c.png" {
		t.Fatalf("expected [b.png c.png], got %v", paths)
	}

	// Rewriting b.png makes c.png the oldest.
	if _, err := store.PutObject(context.Background(), "b.png", "image/png", bytes.NewReader([]byte("b2"))); err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	if _, err := store.PutObject(context.Background(), "d.png", "image/png", bytes.NewReader([]byte("d"))); err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	if paths := store.Paths(); len(paths) != 2 || paths[0] != "b.png" || paths[1] != "d.png" {
		t.Fatalf("expected [b.png d.png], got %v", paths)
	}
	if _, ok := store.Attrs("c.png"); ok {
		t.Fatal("expected evicted attributes to be dropped")
	}
	if got, _ := store.Object("b.png"); string(got) != "b2" {
		t.Fatalf("expected rewritten content, got %q", got)
	}
}

func TestBlobStoreRecordsAttributes(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	_, err := store.PutObject(context.Background(), "shot.png", "image/png", bytes.NewReader([]byte("x")),
		postal.WithCacheControl("no-store"), postal.WithMetadata("step", "extract"))
	if err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	attrs, ok := store.Attrs("shot.png")
	if !ok || attrs.CacheControl != "no-store" || attrs.Metadata["step"] != "extract" {
		t.Fatalf("unexpected attributes %+v", attrs)
	}
}

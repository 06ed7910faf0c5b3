package scraper

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/cl-postal-codes/internal/browser"
	"github.com/JakeFAU/cl-postal-codes/internal/postal"
)

const defaultDiagnosticsTimeout = 5 * time.Second

// BlobDiagnostics stores a full-page screenshot of failed sessions in a blob
// store. Each object carries the failed step and capture time as metadata.
type BlobDiagnostics struct {
	blobs   postal.BlobStore
	ids     postal.IDGenerator
	clock   postal.Clock
	prefix  string
	timeout time.Duration
	logger  *zap.Logger
}

// NewBlobDiagnostics wires a screenshot capturer. Objects are written under
// prefix/yyyy/mm/dd/<id>.png.
func NewBlobDiagnostics(
	blobs postal.BlobStore,
	ids postal.IDGenerator,
	clock postal.Clock,
	prefix string,
	timeout time.Duration,
	logger *zap.Logger,
) *BlobDiagnostics {
	if timeout <= 0 {
		timeout = defaultDiagnosticsTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlobDiagnostics{
		blobs:   blobs,
		ids:     ids,
		clock:   clock,
		prefix:  prefix,
		timeout: timeout,
		logger:  logger.Named("diagnostics"),
	}
}

// Capture screenshots the session and uploads it, returning the object URI or
// "" when anything went wrong. It runs on its own deadline so an expired step
// context does not prevent the capture.
func (d *BlobDiagnostics) Capture(ctx context.Context, session browser.Session, step Step) string {
	if d == nil || d.blobs == nil || session == nil {
		return ""
	}
	captureCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	logger := d.logger.With(zap.String("step", string(step)))
	png, err := session.Screenshot(captureCtx)
	if err != nil {
		logger.Warn("screenshot failed", zap.Error(err))
		return ""
	}
	now := d.now()
	key, err := d.objectPath(now)
	if err != nil {
		logger.Warn("diagnostic path failed", zap.Error(err))
		return ""
	}
	uri, err := d.blobs.PutObject(captureCtx, key, "image/png", bytes.NewReader(png),
		postal.WithMetadata("step", string(step)),
		postal.WithMetadata("captured_at", now.UTC().Format(time.RFC3339)),
	)
	if err != nil {
		logger.Warn("diagnostic upload failed", zap.String("path", key), zap.Error(err))
		return ""
	}
	logger.Info("diagnostic screenshot stored", zap.String("uri", uri))
	return uri
}

func (d *BlobDiagnostics) now() time.Time {
	if d.clock != nil {
		return d.clock.Now()
	}
	return time.Now()
}

func (d *BlobDiagnostics) objectPath(now time.Time) (string, error) {
	id := fmt.Sprintf("%d", now.UnixNano())
	if d.ids != nil {
		generated, err := d.ids.NewID()
		if err != nil {
			return "", fmt.Errorf("generate id: %w", err)
		}
		id = generated
	}
	return path.Join(d.prefix, now.UTC().Format("2006/01/02"), id+".png"), nil
}

// Package app_test contains unit tests for the app package.
package app_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/cl-postal-codes/internal/app"
	"github.com/JakeFAU/cl-postal-codes/internal/browser"
	"github.com/JakeFAU/cl-postal-codes/internal/config"
)

type stubLauncher struct {
	err      error
	launches atomic.Int32
	handle   *stubHandle
}

func (l *stubLauncher) Launch(context.Context) (browser.Handle, error) {
	l.launches.Add(1)
	if l.err != nil {
		return nil, l.err
	}
	l.handle = &stubHandle{}
	return l.handle, nil
}

type stubHandle struct {
	sessions atomic.Int32
	closed   atomic.Int32
}

func (h *stubHandle) NewSession(context.Context) (browser.Session, error) {
	h.sessions.Add(1)
	return stubSession{}, nil
}

func (h *stubHandle) Close(context.Context) error {
	h.closed.Add(1)
	return nil
}

// stubSession is never driven through the pipeline in these tests.
type stubSession struct{ browser.Session }

func (stubSession) Close() error { return nil }

func memoryConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestNew_ReadyzOpensBrowserSession(t *testing.T) {
	launcher := &stubLauncher{}
	a, err := app.New(context.Background(), memoryConfig(t), zap.NewNop(), app.WithLauncher(launcher))
	require.NoError(t, err)
	require.NotNil(t, a.Lookup())
	require.Equal(t, browser.StateUninitialized, a.Browsers().State())

	rec := httptest.NewRecorder()
	a.Server().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 1, launcher.launches.Load())
	require.EqualValues(t, 1, launcher.handle.sessions.Load())

	require.NoError(t, a.Close(context.Background()))
	require.EqualValues(t, 1, launcher.handle.closed.Load())
	require.Equal(t, browser.StateUninitialized, a.Browsers().State())
	// Closing twice is harmless.
	require.NoError(t, a.Close(context.Background()))
}

func TestNew_ReadyzReportsLaunchFailure(t *testing.T) {
	launcher := &stubLauncher{err: errors.New("no chrome binary")}
	a, err := app.New(context.Background(), memoryConfig(t), zap.NewNop(), app.WithLauncher(launcher))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	rec := httptest.NewRecorder()
	a.Server().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "browser launch failed")
}

func TestNew_LocalDiagnostics(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Storage.Backend = config.BackendLocal
	cfg.Storage.LocalDir = t.TempDir()
	cfg.PubSub.Backend = config.BackendMemory

	a, err := app.New(context.Background(), cfg, nil, app.WithLauncher(&stubLauncher{}))
	require.NoError(t, err)
	require.NoError(t, a.Close(context.Background()))
}

func TestNew_ConfigErrors(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.DB.Backend = config.BackendPostgres
	cfg.DB.DSN = "postgres://postal@localhost:5432/postal"
	cfg.DB.Table = "addresses; drop table users"

	_, err := app.New(context.Background(), cfg, zap.NewNop(), app.WithLauncher(&stubLauncher{}))
	require.ErrorContains(t, err, "init postgres")
	require.ErrorContains(t, err, "invalid table name")
}

func TestNew_UnknownCommuneIsRejectedBeforeLaunch(t *testing.T) {
	launcher := &stubLauncher{}
	a, err := app.New(context.Background(), memoryConfig(t), zap.NewNop(), app.WithLauncher(launcher))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/postal-codes/search?commune=Atlantis&street=Av&number=1", nil)
	a.Server().Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "commune 'Atlantis'")
	require.Zero(t, launcher.launches.Load())
}

func TestNew_MemoryDiagnosticsAndNoSeed(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Storage.Backend = config.BackendMemory
	cfg.DB.SeedCommunes = false

	a, err := app.New(context.Background(), cfg, zap.NewNop(), app.WithLauncher(&stubLauncher{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	// Without a catalogue every commune is unknown.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/postal-codes/search?commune=Providencia&street=Av&number=1", nil)
	a.Server().Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)

	cfg.Storage.Backend = "s3"
	_, err = app.New(context.Background(), cfg, zap.NewNop(), app.WithLauncher(&stubLauncher{}))
	require.ErrorContains(t, err, "not supported")
}

package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JakeFAU/cl-postal-codes/internal/browser"
	"github.com/JakeFAU/cl-postal-codes/internal/postal"
)

type fakeProvider struct {
	handle *fakeHandle
	err    error
}

func (p *fakeProvider) Acquire(context.Context) (browser.Handle, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.handle, nil
}

type fakeHandle struct {
	session *fakeSession
	err     error
}

func (h *fakeHandle) NewSession(context.Context) (browser.Session, error) {
	if h.err != nil {
		return nil, h.err
	}
	return h.session, nil
}

func (h *fakeHandle) Close(context.Context) error { return nil }

// fakeSession emulates the postal code form. Filled values are echoed back
// unless overridden, the submit control becomes enabled on the enabledOn-th
// check (never when 0), and the result element holds resultText.
type fakeSession struct {
	mu            sync.Mutex
	values        map[string]string
	overrides     map[string]string
	errs          map[string]error
	panicOn       string
	enabledOn     int
	enabledChecks int
	resultText    string
	clicks        map[string]int
	screenshots   int
	screenshotErr error
	closes        atomic.Int32
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		values:    map[string]string{},
		overrides: map[string]string{},
		errs:      map[string]error{},
		clicks:    map[string]int{},
	}
}

func (s *fakeSession) hook(method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panicOn == method {
		panic(fmt.Sprintf("%s exploded", method))
	}
	return s.errs[method]
}

func (s *fakeSession) Navigate(ctx context.Context, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.hook("Navigate")
}

func (s *fakeSession) WaitReady(context.Context, string) error {
	return s.hook("WaitReady")
}

func (s *fakeSession) Click(_ context.Context, selector string) error {
	if err := s.hook("Click"); err != nil {
		return err
	}
	s.mu.Lock()
	s.clicks[selector]++
	s.mu.Unlock()
	return nil
}

func (s *fakeSession) ForceClick(_ context.Context, selector string) error {
	if err := s.hook("ForceClick"); err != nil {
		return err
	}
	s.mu.Lock()
	s.clicks[selector]++
	s.mu.Unlock()
	return nil
}

func (s *fakeSession) Fill(_ context.Context, selector, value string) error {
	if err := s.hook("Fill"); err != nil {
		return err
	}
	s.mu.Lock()
	s.values[selector] = value
	s.mu.Unlock()
	return nil
}

func (s *fakeSession) Press(context.Context, browser.Key) error {
	return s.hook("Press")
}

func (s *fakeSession) Value(_ context.Context, selector string) (string, error) {
	if err := s.hook("Value"); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.overrides[selector]; ok {
		return v, nil
	}
	return s.values[selector], nil
}

func (s *fakeSession) Enabled(context.Context, string) (bool, error) {
	if err := s.hook("Enabled"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabledChecks++
	return s.enabledOn > 0 && s.enabledChecks >= s.enabledOn, nil
}

func (s *fakeSession) WaitVisible(context.Context, string) error {
	return s.hook("WaitVisible")
}

func (s *fakeSession) Text(context.Context, string) (string, error) {
	if err := s.hook("Text"); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resultText, nil
}

func (s *fakeSession) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.hook("Screenshot"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screenshots++
	if s.screenshotErr != nil {
		return nil, s.screenshotErr
	}
	return []byte("\x89PNG fake"), nil
}

func (s *fakeSession) Close() error {
	s.closes.Add(1)
	return nil
}

func (s *fakeSession) clickCount(selector string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clicks[selector]
}

func (s *fakeSession) checks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabledChecks
}

type fakeBlobStore struct {
	mu    sync.Mutex
	paths []string
	types []string
	data  [][]byte
	attrs []postal.ObjectAttrs
	err   error
	panic bool
}

func (b *fakeBlobStore) PutObject(_ context.Context, path, contentType string, r io.Reader, opts ...postal.ObjectOption) (string, error) {
	if b.panic {
		panic("bucket handle is nil")
	}
	if b.err != nil {
		return "", b.err
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paths = append(b.paths, path)
	b.types = append(b.types, contentType)
	b.data = append(b.data, body)
	b.attrs = append(b.attrs, postal.ApplyObjectOptions(opts))
	return "mem://" + path, nil
}

type fakeIDGen struct {
	id  string
	err error
}

func (g fakeIDGen) NewID() (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.id, nil
}

type fakeClock struct {
	now time.Time
}

func (c fakeClock) Now() time.Time { return c.now }

type recordingDiagnostics struct {
	steps []Step
}

func (r *recordingDiagnostics) Capture(_ context.Context, _ browser.Session, step Step) string {
	r.steps = append(r.steps, step)
	return ""
}

var errInjected = errors.New("injected failure")

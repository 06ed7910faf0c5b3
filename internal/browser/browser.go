// Package browser owns the shared headless browser process and the isolated
// sessions opened from it.
package browser

import (
	"context"
	"errors"
)

var (
	// ErrLaunch indicates the browser process could not be started.
	ErrLaunch = errors.New("browser launch failed")
	// ErrLaunchWait indicates a caller waited for another in-flight launch
	// and the browser was still not ready when the wait ended.
	ErrLaunchWait = errors.New("browser instance was not initialized after waiting")
)

// Key names a keyboard key understood by Session.Press.
type Key string

// Keys used by autocomplete controls.
const (
	KeyArrowDown Key = "ArrowDown"
	KeyEnter     Key = "Enter"
)

// Launcher starts a browser process. The context bounds startup only; the
// returned Handle lives until it is closed.
type Launcher interface {
	Launch(ctx context.Context) (Handle, error)
}

// Handle is a running browser process. Callers obtain it from a Manager and
// must not close it themselves.
type Handle interface {
	// NewSession opens an isolated browser context with one page.
	NewSession(ctx context.Context) (Session, error)
	Close(ctx context.Context) error
}

// Session is one isolated page (own cookies, storage, and history). Selectors
// are CSS query selectors.
type Session interface {
	Navigate(ctx context.Context, url string) error
	WaitReady(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	// ForceClick dispatches a click without waiting for the element to be
	// visible or interactable.
	ForceClick(ctx context.Context, selector string) error
	// Fill clears the element and types value into it.
	Fill(ctx context.Context, selector, value string) error
	// Press sends a key to the focused element.
	Press(ctx context.Context, key Key) error
	Value(ctx context.Context, selector string) (string, error)
	// Enabled reports whether the element exists and is not disabled.
	Enabled(ctx context.Context, selector string) (bool, error)
	WaitVisible(ctx context.Context, selector string) error
	Text(ctx context.Context, selector string) (string, error)
	// Screenshot returns a full-page PNG.
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

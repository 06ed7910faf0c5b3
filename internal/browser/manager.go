package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/cl-postal-codes/internal/metrics"
)

// State is the lifecycle state of the shared browser.
type State int

// Lifecycle states.
const (
	StateUninitialized State = iota
	StateLaunching
	StateReady
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLaunching:
		return "launching"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ManagerConfig bounds how long callers wait for a launch started by someone else.
type ManagerConfig struct {
	WaitInterval    time.Duration
	MaxWaitAttempts int
}

const (
	defaultWaitInterval    = 300 * time.Millisecond
	defaultMaxWaitAttempts = 10
)

// Manager owns the single shared Handle. Concurrent first callers of Acquire
// trigger exactly one Launch; the rest wait on the in-flight launch.
type Manager struct {
	launcher Launcher
	cfg      ManagerConfig
	logger   *zap.Logger

	mu         sync.Mutex
	state      State
	handle     Handle
	launchDone chan struct{}
	// lastErr is the cause of the most recent failed launch.
	lastErr error
}

// NewManager creates a Manager in the uninitialized state.
func NewManager(launcher Launcher, cfg ManagerConfig, logger *zap.Logger) *Manager {
	if cfg.WaitInterval <= 0 {
		cfg.WaitInterval = defaultWaitInterval
	}
	if cfg.MaxWaitAttempts <= 0 {
		cfg.MaxWaitAttempts = defaultMaxWaitAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		launcher: launcher,
		cfg:      cfg,
		logger:   logger,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Acquire returns the shared Handle, launching the browser on first use.
func (m *Manager) Acquire(ctx context.Context) (Handle, error) {
	m.mu.Lock()
	switch m.state {
	case StateReady:
		h := m.handle
		m.mu.Unlock()
		return h, nil
	case StateLaunching:
		done := m.launchDone
		m.mu.Unlock()
		m.logger.Debug("browser is currently launching, waiting")
		return m.awaitLaunch(ctx, done)
	}
	done := make(chan struct{})
	m.state = StateLaunching
	m.launchDone = done
	m.mu.Unlock()

	m.logger.Info("launching browser instance")
	handle, err := m.launcher.Launch(ctx)
	metrics.ObserveBrowserLaunch(err == nil)

	m.mu.Lock()
	if err != nil {
		m.state = StateUninitialized
		m.handle = nil
		m.lastErr = err
	} else {
		m.state = StateReady
		m.handle = handle
		m.lastErr = nil
	}
	m.launchDone = nil
	close(done)
	m.mu.Unlock()

	if err != nil {
		m.logger.Error("failed to launch browser", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrLaunch, err)
	}
	m.logger.Info("browser instance is ready")
	return handle, nil
}

func (m *Manager) awaitLaunch(ctx context.Context, done <-chan struct{}) (Handle, error) {
	budget := m.cfg.WaitInterval * time.Duration(m.cfg.MaxWaitAttempts)
	timer := time.NewTimer(budget)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		return nil, fmt.Errorf("%w (waited %s)", ErrLaunchWait, budget)
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for browser launch: %w", ctx.Err())
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateReady || m.handle == nil {
		if m.lastErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrLaunchWait, m.lastErr)
		}
		return nil, ErrLaunchWait
	}
	return m.handle, nil
}

// Shutdown closes the shared browser. It is a no-op when nothing is running.
// The state is reset even when closing fails, so the next Acquire relaunches.
// A launch in flight is awaited (bounded by ctx) and then closed.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateLaunching {
		done := m.launchDone
		m.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return fmt.Errorf("wait for in-flight launch: %w", ctx.Err())
		}
		m.mu.Lock()
	}
	h := m.handle
	if h == nil {
		m.mu.Unlock()
		return nil
	}
	m.handle = nil
	m.state = StateUninitialized
	m.mu.Unlock()

	m.logger.Info("closing browser instance")
	if err := h.Close(ctx); err != nil {
		m.logger.Error("failed to close browser", zap.Error(err))
		return fmt.Errorf("close browser: %w", err)
	}
	m.logger.Info("browser instance closed")
	return nil
}

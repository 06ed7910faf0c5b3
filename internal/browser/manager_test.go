package browser

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestManager_ConcurrentAcquireLaunchesOnce(t *testing.T) {
	t.Parallel()

	launcher := newFakeLauncher()
	launcher.gate = make(chan struct{})
	mgr := NewManager(launcher, ManagerConfig{WaitInterval: 10 * time.Millisecond, MaxWaitAttempts: 500}, zap.NewNop())

	const callers = 16
	handles := make([]Handle, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i], errs[i] = mgr.Acquire(context.Background())
		}(i)
	}

	<-launcher.started
	require.Equal(t, StateLaunching, mgr.State())
	close(launcher.gate)
	wg.Wait()

	require.EqualValues(t, 1, launcher.launches.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Same(t, launcher.lastHandle(), handles[i])
	}
	require.Equal(t, StateReady, mgr.State())
}

func TestManager_ReadyAcquireSkipsLauncher(t *testing.T) {
	t.Parallel()

	launcher := newFakeLauncher()
	mgr := NewManager(launcher, ManagerConfig{}, zap.NewNop())

	first, err := mgr.Acquire(context.Background())
	require.NoError(t, err)
	second, err := mgr.Acquire(context.Background())
	require.NoError(t, err)

	require.Same(t, first, second)
	require.EqualValues(t, 1, launcher.launches.Load())
}

func TestManager_WaiterGivesUpAfterBudget(t *testing.T) {
	t.Parallel()

	launcher := newFakeLauncher()
	launcher.gate = make(chan struct{})
	mgr := NewManager(launcher, ManagerConfig{WaitInterval: 5 * time.Millisecond, MaxWaitAttempts: 4}, zap.NewNop())

	firstDone := make(chan error, 1)
	go func() {
		_, err := mgr.Acquire(context.Background())
		firstDone <- err
	}()
	<-launcher.started

	start := time.Now()
	_, err := mgr.Acquire(context.Background())
	require.ErrorIs(t, err, ErrLaunchWait)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	require.EqualValues(t, 1, launcher.launches.Load())

	close(launcher.gate)
	require.NoError(t, <-firstDone)
	require.EqualValues(t, 1, launcher.launches.Load())
}

func TestManager_WaiterSeesFailedLaunch(t *testing.T) {
	t.Parallel()

	launcher := newFakeLauncher()
	launcher.gate = make(chan struct{})
	cause := errors.New("chrome not found")
	launcher.err = cause
	core, logs := observer.New(zap.DebugLevel)
	mgr := NewManager(launcher, ManagerConfig{WaitInterval: 10 * time.Millisecond, MaxWaitAttempts: 500}, zap.New(core))

	firstDone := make(chan error, 1)
	go func() {
		_, err := mgr.Acquire(context.Background())
		firstDone <- err
	}()
	<-launcher.started

	waiterDone := make(chan error, 1)
	go func() {
		_, err := mgr.Acquire(context.Background())
		waiterDone <- err
	}()
	require.Eventually(t, func() bool {
		return logs.FilterMessage("browser is currently launching, waiting").Len() == 1
	}, time.Second, time.Millisecond)
	close(launcher.gate)

	require.ErrorIs(t, <-firstDone, ErrLaunch)
	waiterErr := <-waiterDone
	require.ErrorIs(t, waiterErr, ErrLaunchWait)
	require.ErrorIs(t, waiterErr, cause)
	require.NotErrorIs(t, waiterErr, ErrLaunch)
	require.Equal(t, "browser instance was not initialized after waiting: chrome not found", waiterErr.Error())
	require.EqualValues(t, 1, launcher.launches.Load())
	require.Equal(t, StateUninitialized, mgr.State())
}

func TestManager_LaunchFailureRevertsAndRetries(t *testing.T) {
	t.Parallel()

	launcher := newFakeLauncher()
	launcher.err = errors.New("exec: chrome: not found")
	mgr := NewManager(launcher, ManagerConfig{}, zap.NewNop())

	_, err := mgr.Acquire(context.Background())
	require.ErrorIs(t, err, ErrLaunch)
	require.Contains(t, err.Error(), "chrome: not found")
	require.Equal(t, StateUninitialized, mgr.State())

	launcher.setErr(nil)
	h, err := mgr.Acquire(context.Background())
	require.NoError(t, err)
	require.NotNil(t, h)
	require.EqualValues(t, 2, launcher.launches.Load())
}

func TestManager_ShutdownThenAcquireRelaunches(t *testing.T) {
	t.Parallel()

	launcher := newFakeLauncher()
	mgr := NewManager(launcher, ManagerConfig{}, zap.NewNop())

	first, err := mgr.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, mgr.Shutdown(context.Background()))
	require.Equal(t, StateUninitialized, mgr.State())
	require.EqualValues(t, 1, first.(*fakeHandle).closes.Load())

	second, err := mgr.Acquire(context.Background())
	require.NoError(t, err)
	require.NotSame(t, first, second)
	require.EqualValues(t, 2, launcher.launches.Load())
}

func TestManager_ShutdownIsIdempotent(t *testing.T) {
	t.Parallel()

	launcher := newFakeLauncher()
	mgr := NewManager(launcher, ManagerConfig{}, zap.NewNop())

	require.NoError(t, mgr.Shutdown(context.Background()))
	require.NoError(t, mgr.Shutdown(context.Background()))
	require.Zero(t, launcher.launches.Load())

	h, err := mgr.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, mgr.Shutdown(context.Background()))
	require.NoError(t, mgr.Shutdown(context.Background()))
	require.EqualValues(t, 1, h.(*fakeHandle).closes.Load())
}

func TestManager_ShutdownCloseErrorStillResets(t *testing.T) {
	t.Parallel()

	launcher := newFakeLauncher()
	launcher.closeErr = errors.New("target closed")
	mgr := NewManager(launcher, ManagerConfig{}, zap.NewNop())

	_, err := mgr.Acquire(context.Background())
	require.NoError(t, err)

	err = mgr.Shutdown(context.Background())
	require.Error(t, err)
	require.Equal(t, StateUninitialized, mgr.State())

	_, err = mgr.Acquire(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, launcher.launches.Load())
}

func TestManager_WaitHonorsContext(t *testing.T) {
	t.Parallel()

	launcher := newFakeLauncher()
	launcher.gate = make(chan struct{})
	defer close(launcher.gate)
	mgr := NewManager(launcher, ManagerConfig{WaitInterval: time.Second, MaxWaitAttempts: 60}, zap.NewNop())

	go func() { _, _ = mgr.Acquire(context.Background()) }()
	<-launcher.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := mgr.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestManager_ShutdownWaitsForInflightLaunch(t *testing.T) {
	t.Parallel()

	launcher := newFakeLauncher()
	launcher.gate = make(chan struct{})
	mgr := NewManager(launcher, ManagerConfig{}, zap.NewNop())

	go func() { _, _ = mgr.Acquire(context.Background()) }()
	<-launcher.started

	shutdownDone := make(chan error, 1)
	go func() { shutdownDone <- mgr.Shutdown(context.Background()) }()
	close(launcher.gate)

	require.NoError(t, <-shutdownDone)
	require.Equal(t, StateUninitialized, mgr.State())
	require.EqualValues(t, 1, launcher.lastHandle().closes.Load())
}

func TestStateString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "uninitialized", StateUninitialized.String())
	require.Equal(t, "launching", StateLaunching.String())
	require.Equal(t, "ready", StateReady.String())
	require.Equal(t, "state(7)", State(7).String())
}

// --- fakes ---

type fakeLauncher struct {
	launches atomic.Int32
	started  chan struct{}
	gate     chan struct{}
	closeErr error

	mu      sync.Mutex
	err     error
	handles []*fakeHandle
	once    sync.Once
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{started: make(chan struct{})}
}

func (l *fakeLauncher) Launch(ctx context.Context) (Handle, error) {
	l.launches.Add(1)
	l.once.Do(func() { close(l.started) })
	if l.gate != nil {
		select {
		case <-l.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	h := &fakeHandle{closeErr: l.closeErr}
	l.handles = append(l.handles, h)
	return h, nil
}

func (l *fakeLauncher) setErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

func (l *fakeLauncher) lastHandle() *fakeHandle {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.handles) == 0 {
		return nil
	}
	return l.handles[len(l.handles)-1]
}

type fakeHandle struct {
	closes   atomic.Int32
	closeErr error
}

func (h *fakeHandle) NewSession(context.Context) (Session, error) {
	return nil, errors.New("fake handle has no sessions")
}

func (h *fakeHandle) Close(context.Context) error {
	h.closes.Add(1)
	return h.closeErr
}

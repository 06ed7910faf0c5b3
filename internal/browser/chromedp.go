package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"
)

// ChromedpConfig controls how the headless Chrome process is started.
type ChromedpConfig struct {
	ExecPath      string
	Headless      bool
	UserAgent     string
	LaunchTimeout time.Duration
	WindowWidth   int
	WindowHeight  int
}

const defaultLaunchTimeout = 30 * time.Second

// hardenedFlags keep the browser lean inside containers.
var hardenedFlags = []string{
	"no-sandbox",
	"disable-setuid-sandbox",
	"disable-dev-shm-usage",
	"disable-gpu",
	"disable-extensions",
	"disable-background-networking",
	"disable-default-apps",
	"disable-sync",
	"metrics-recording-only",
	"mute-audio",
}

// ChromedpLauncher implements Launcher using chromedp and headless Chrome.
type ChromedpLauncher struct {
	cfg    ChromedpConfig
	logger *zap.Logger
}

// NewChromedpLauncher creates a launcher backed by chromedp.
func NewChromedpLauncher(cfg ChromedpConfig, logger *zap.Logger) *ChromedpLauncher {
	if cfg.LaunchTimeout <= 0 {
		cfg.LaunchTimeout = defaultLaunchTimeout
	}
	if cfg.WindowWidth <= 0 || cfg.WindowHeight <= 0 {
		cfg.WindowWidth, cfg.WindowHeight = 1366, 900
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChromedpLauncher{cfg: cfg, logger: logger}
}

func (l *ChromedpLauncher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
	if l.cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	for _, flag := range hardenedFlags {
		opts = append(opts, chromedp.Flag(flag, true))
	}
	opts = append(opts, chromedp.WindowSize(l.cfg.WindowWidth, l.cfg.WindowHeight))
	if l.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.cfg.ExecPath))
	}
	if l.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(l.cfg.UserAgent))
	}
	return opts
}

// Launch starts Chrome and waits for it to accept commands.
func (l *ChromedpLauncher) Launch(ctx context.Context) (Handle, error) {
	// The allocator must outlive ctx; it is torn down by Handle.Close.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), l.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(l.logger.Sugar().Debugf),
		chromedp.WithErrorf(l.logger.Sugar().Warnf),
	)

	if err := startTarget(ctx, browserCtx, l.cfg.LaunchTimeout); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &chromedpHandle{
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		userAgent:     l.cfg.UserAgent,
		width:         int64(l.cfg.WindowWidth),
		height:        int64(l.cfg.WindowHeight),
	}, nil
}

// startTarget runs the first (empty) action on a chromedp context. It must run
// on the context itself rather than a derived one, because chromedp ties the
// allocated browser or tab to the context of its first Run.
func startTarget(ctx, target context.Context, timeout time.Duration) error {
	errc := make(chan error, 1)
	go func() { errc <- chromedp.Run(target) }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-errc:
		return err
	case <-timer.C:
		return fmt.Errorf("timed out after %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

type chromedpHandle struct {
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	userAgent     string
	width         int64
	height        int64
}

// NewSession opens a tab inside a fresh browser context so sessions share no
// cookies or storage.
func (h *chromedpHandle) NewSession(ctx context.Context) (Session, error) {
	if err := h.browserCtx.Err(); err != nil {
		return nil, fmt.Errorf("browser is closed: %w", err)
	}
	tabCtx, tabCancel := chromedp.NewContext(h.browserCtx, chromedp.WithNewBrowserContext())
	if err := startTarget(ctx, tabCtx, defaultLaunchTimeout); err != nil {
		tabCancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	s := &chromedpSession{tabCtx: tabCtx, tabCancel: tabCancel}
	if err := s.run(ctx, h.setupAction()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("configure tab: %w", err)
	}
	return s, nil
}

func (h *chromedpHandle) setupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := emulation.SetDeviceMetricsOverride(h.width, h.height, 1, false).Do(ctx); err != nil {
			return fmt.Errorf("set device metrics: %w", err)
		}
		if h.userAgent != "" {
			if err := emulation.SetUserAgentOverride(h.userAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

// Close shuts the browser down and releases the allocator.
func (h *chromedpHandle) Close(_ context.Context) error {
	err := chromedp.Cancel(h.browserCtx)
	h.browserCancel()
	h.allocCancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("cancel browser: %w", err)
	}
	return nil
}

type chromedpSession struct {
	tabCtx    context.Context
	tabCancel context.CancelFunc
	closeOnce sync.Once
	closeErr  error
}

// run executes actions on the tab, bounded by the deadline and cancellation of ctx.
func (s *chromedpSession) run(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithCancel(s.tabCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		opCtx, cancelDeadline = context.WithDeadline(opCtx, deadline)
		defer cancelDeadline()
	}
	stopForward := forwardCancel(ctx, cancel)
	defer stopForward()

	if err := chromedp.Run(opCtx, actions...); err != nil {
		return fmt.Errorf("chromedp run: %w", err)
	}
	return nil
}

func (s *chromedpSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *chromedpSession) WaitReady(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery))
}

func (s *chromedpSession) Click(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (s *chromedpSession) ForceClick(ctx context.Context, selector string) error {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return fmt.Errorf("quote selector: %w", err)
	}
	var found bool
	script := fmt.Sprintf(`(() => { const el = document.querySelector(%s); if (!el) return false; el.click(); return true; })()`, quoted)
	if err := s.run(ctx, chromedp.Evaluate(script, &found)); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("element %s not found", selector)
	}
	return nil
}

func (s *chromedpSession) Fill(ctx context.Context, selector, value string) error {
	return s.run(ctx,
		chromedp.Focus(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

func (s *chromedpSession) Press(ctx context.Context, key Key) error {
	var code string
	switch key {
	case KeyArrowDown:
		code = kb.ArrowDown
	case KeyEnter:
		code = kb.Enter
	default:
		code = string(key)
	}
	return s.run(ctx, chromedp.KeyEvent(code))
}

func (s *chromedpSession) Value(ctx context.Context, selector string) (string, error) {
	var value string
	if err := s.run(ctx, chromedp.Value(selector, &value, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return value, nil
}

func (s *chromedpSession) Enabled(ctx context.Context, selector string) (bool, error) {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return false, fmt.Errorf("quote selector: %w", err)
	}
	var enabled bool
	script := fmt.Sprintf(`(() => { const el = document.querySelector(%s); return !!el && !el.disabled; })()`, quoted)
	if err := s.run(ctx, chromedp.Evaluate(script, &enabled)); err != nil {
		return false, err
	}
	return enabled, nil
}

func (s *chromedpSession) WaitVisible(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (s *chromedpSession) Text(ctx context.Context, selector string) (string, error) {
	var text string
	if err := s.run(ctx, chromedp.Text(selector, &text, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return text, nil
}

func (s *chromedpSession) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, err
	}
	return buf, nil
}

// Close closes the tab and its browser context. Later calls return the first result.
func (s *chromedpSession) Close() error {
	s.closeOnce.Do(func() {
		err := chromedp.Cancel(s.tabCtx)
		s.tabCancel()
		if err != nil && !errors.Is(err, context.Canceled) {
			s.closeErr = fmt.Errorf("close tab: %w", err)
		}
	})
	return s.closeErr
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil || parent.Done() == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

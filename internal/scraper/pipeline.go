// Package scraper drives the Correos de Chile postal code form through a
// browser session and turns the result into an Outcome.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/cl-postal-codes/internal/browser"
	"github.com/JakeFAU/cl-postal-codes/internal/metrics"
	"github.com/JakeFAU/cl-postal-codes/internal/normalize"
)

var tracer = otel.Tracer("github.com/JakeFAU/cl-postal-codes/internal/scraper")

// HandleProvider hands out the shared browser. *browser.Manager satisfies it.
type HandleProvider interface {
	Acquire(ctx context.Context) (browser.Handle, error)
}

// DiagnosticCapture records the state of a session after a failed step.
// Implementations must not return or panic on their own failures.
type DiagnosticCapture interface {
	Capture(ctx context.Context, session browser.Session, step Step) string
}

// Pipeline resolves addresses by filling in the upstream search form.
type Pipeline struct {
	browsers HandleProvider
	cfg      Config
	diag     DiagnosticCapture
	logger   *zap.Logger
	sem      chan struct{}
	limiter  *rate.Limiter
}

// New builds a pipeline. diag may be nil to skip failure screenshots.
func New(browsers HandleProvider, cfg Config, diag DiagnosticCapture, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		browsers: browsers,
		cfg:      cfg,
		diag:     diag,
		logger:   logger.Named("scraper"),
	}
	if cfg.MaxConcurrent > 0 {
		p.sem = make(chan struct{}, cfg.MaxConcurrent)
	}
	if cfg.RateLimitPerSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), 1)
	}
	return p
}

// Resolve runs the form steps for req in a fresh session. Step failures are
// reported in the Outcome; the returned error is non-nil only when no step
// could run (browser launch, session open, or ctx ending while queued).
func (p *Pipeline) Resolve(ctx context.Context, req Request) (Outcome, error) {
	release, err := p.acquireSlot(ctx)
	if err != nil {
		return Outcome{}, err
	}
	defer release()

	if err := p.waitRateLimit(ctx); err != nil {
		return Outcome{}, err
	}

	ctx, span := tracer.Start(ctx, "scraper.Resolve")
	defer span.End()

	handle, err := p.browsers.Acquire(ctx)
	if err != nil {
		return Outcome{}, err
	}
	session, err := handle.NewSession(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			p.logger.Warn("session close failed", zap.Error(cerr))
		}
	}()

	logger := p.logger.With(
		zap.String("commune", req.Commune),
		zap.String("street", req.Street),
		zap.String("number", req.Number),
	)
	start := time.Now()
	r := &run{session: session, req: req}
	if err := p.execute(ctx, r); err != nil {
		step := StepExtract
		var stepErr *StepError
		if errors.As(err, &stepErr) {
			step = stepErr.Step
		}
		p.captureDiagnostics(ctx, session, step)
		metrics.ObserveScrape(metrics.OutcomeFailure, string(step), time.Since(start))
		span.SetAttributes(attribute.String("scraper.failed_step", string(step)))
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("scrape failed", zap.String("step", string(step)), zap.Error(err))
		return Failure(err), nil
	}

	metrics.ObserveScrape(metrics.OutcomeSuccess, string(StepExtract), time.Since(start))
	logger.Info("scrape succeeded", zap.String("postal_code", r.code), zap.Duration("elapsed", time.Since(start)))
	return Success(r.code), nil
}

// captureDiagnostics never lets a capture failure replace the step error.
func (p *Pipeline) captureDiagnostics(ctx context.Context, session browser.Session, step Step) {
	if p.diag == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Warn("diagnostic capture panicked", zap.String("step", string(step)), zap.Any("panic", rec))
		}
	}()
	p.diag.Capture(ctx, session, step)
}

func (p *Pipeline) waitRateLimit(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	start := time.Now()
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("scrape rate limit: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(waited)
	}
	return nil
}

func (p *Pipeline) acquireSlot(ctx context.Context) (func(), error) {
	if p.sem == nil {
		return func() {}, nil
	}
	select {
	case p.sem <- struct{}{}:
		return func() { <-p.sem }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire scrape slot: %w", ctx.Err())
	}
}

// run carries per-invocation state between steps.
type run struct {
	session browser.Session
	req     Request
	code    string
}

type step struct {
	name Step
	do   func(ctx context.Context, r *run) error
}

func (p *Pipeline) steps() []step {
	return []step{
		{StepNavigate, p.navigate},
		{StepCommune, func(ctx context.Context, r *run) error {
			return p.selectAutocomplete(ctx, r.session, "commune", p.cfg.Selectors.Commune, r.req.Commune)
		}},
		{StepStreet, func(ctx context.Context, r *run) error {
			return p.selectAutocomplete(ctx, r.session, "street", p.cfg.Selectors.Street, r.req.Street)
		}},
		{StepNumber, p.fillNumber},
		{StepAwaitEnabled, p.awaitEnabled},
		{StepSubmit, p.submit},
		{StepAwaitResult, p.awaitResult},
		{StepExtract, p.extract},
	}
}

// execute runs every step in order and stops at the first failure. A panic
// inside a step is reported as that step's failure.
func (p *Pipeline) execute(ctx context.Context, r *run) (err error) {
	current := StepNavigate
	defer func() {
		if rec := recover(); rec != nil {
			err = &StepError{Step: current, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()

	for _, st := range p.steps() {
		current = st.name
		if err := st.do(ctx, r); err != nil {
			return &StepError{Step: st.name, Err: err}
		}
		p.logger.Debug("step done", zap.String("step", string(st.name)))
	}
	return nil
}

func (p *Pipeline) navigate(ctx context.Context, r *run) error {
	navCtx, cancel := context.WithTimeout(ctx, p.cfg.NavigationTimeout)
	defer cancel()
	if err := r.session.Navigate(navCtx, p.cfg.URL); err != nil {
		return fmt.Errorf("%w: %w", ErrNavigation, err)
	}
	if err := r.session.WaitReady(navCtx, p.cfg.Selectors.Commune); err != nil {
		return fmt.Errorf("%w: commune input: %w", ErrNavigation, err)
	}
	return sleep(ctx, p.cfg.Settle.AfterReady)
}

// selectAutocomplete types value into an autocomplete input, picks the first
// suggestion and checks that the input now holds the expected text. Both sides
// are compared normalized, so "Ñuñoa" accepts "NUNOA".
func (p *Pipeline) selectAutocomplete(ctx context.Context, s browser.Session, field, selector, value string) error {
	want := normalize.Text(value)
	if want == "" {
		return &FieldError{Field: field, Expected: value, Err: ErrEmptyField}
	}
	attempts := p.cfg.Autocomplete.MaxAttempts
	var (
		last    string
		lastErr error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		got, err := p.autocompleteOnce(ctx, s, selector, value)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err == nil && strings.Contains(normalize.Text(got), want) {
			return nil
		}
		last, lastErr = got, err
		p.logger.Debug("autocomplete mismatch",
			zap.String("field", field),
			zap.Int("attempt", attempt),
			zap.String("value", got),
			zap.Error(err),
		)
		if attempt < attempts {
			if err := sleep(ctx, p.cfg.Autocomplete.Interval); err != nil {
				return err
			}
		}
	}

	cause := ErrFieldVerification
	if lastErr != nil {
		cause = fmt.Errorf("%w: %w", ErrFieldVerification, lastErr)
	}
	return &FieldError{Field: field, Attempts: attempts, Expected: want, Actual: last, Err: cause}
}

func (p *Pipeline) autocompleteOnce(ctx context.Context, s browser.Session, selector, value string) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, p.cfg.ActionTimeout)
	defer cancel()
	settle := p.cfg.Settle

	if err := s.Click(opCtx, selector); err != nil {
		return "", fmt.Errorf("click: %w", err)
	}
	if err := sleep(opCtx, settle.AfterFocus); err != nil {
		return "", err
	}
	if err := s.Fill(opCtx, selector, strings.TrimSpace(value)); err != nil {
		return "", fmt.Errorf("fill: %w", err)
	}
	if err := sleep(opCtx, settle.AfterType); err != nil {
		return "", err
	}
	if err := s.Press(opCtx, browser.KeyArrowDown); err != nil {
		return "", fmt.Errorf("press arrow down: %w", err)
	}
	if err := sleep(opCtx, settle.AfterArrow); err != nil {
		return "", err
	}
	if err := s.Press(opCtx, browser.KeyEnter); err != nil {
		return "", fmt.Errorf("press enter: %w", err)
	}
	if err := sleep(opCtx, settle.AfterConfirm); err != nil {
		return "", err
	}
	got, err := s.Value(opCtx, selector)
	if err != nil {
		return "", fmt.Errorf("read value: %w", err)
	}
	return strings.TrimSpace(got), nil
}

func (p *Pipeline) fillNumber(ctx context.Context, r *run) error {
	opCtx, cancel := context.WithTimeout(ctx, p.cfg.ActionTimeout)
	defer cancel()
	selector := p.cfg.Selectors.Number
	want := strings.TrimSpace(r.req.Number)

	if err := r.session.Fill(opCtx, selector, want); err != nil {
		return fmt.Errorf("fill number: %w", err)
	}
	if err := sleep(opCtx, p.cfg.Settle.AfterNumber); err != nil {
		return err
	}
	got, err := r.session.Value(opCtx, selector)
	if err != nil {
		return fmt.Errorf("read number: %w", err)
	}
	got = strings.TrimSpace(got)
	if got != want {
		return &FieldError{Field: "number", Attempts: 1, Expected: want, Actual: got, Err: ErrNumberMismatch}
	}
	return nil
}

// awaitEnabled blurs the form so the page validates it, then polls the
// submit control until it is enabled.
func (p *Pipeline) awaitEnabled(ctx context.Context, r *run) error {
	blurCtx, cancel := context.WithTimeout(ctx, p.cfg.ActionTimeout)
	err := r.session.ForceClick(blurCtx, p.cfg.Selectors.BlurLabel)
	cancel()
	if err != nil {
		return fmt.Errorf("blur form: %w", err)
	}
	if err := sleep(ctx, p.cfg.Settle.AfterBlur); err != nil {
		return err
	}

	poll := p.cfg.EnablePoll
	for check := 1; check <= poll.MaxAttempts; check++ {
		enabled, err := p.checkEnabled(ctx, r.session)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err == nil && enabled {
			return nil
		}
		if err != nil {
			p.logger.Debug("enabled check failed", zap.Int("check", check), zap.Error(err))
		}
		if check < poll.MaxAttempts {
			if err := sleep(ctx, poll.Interval); err != nil {
				return err
			}
		}
	}
	return ErrControlNotEnabled
}

func (p *Pipeline) checkEnabled(ctx context.Context, s browser.Session) (bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, p.cfg.ActionTimeout)
	defer cancel()
	return s.Enabled(opCtx, p.cfg.Selectors.Submit)
}

func (p *Pipeline) submit(ctx context.Context, r *run) error {
	opCtx, cancel := context.WithTimeout(ctx, p.cfg.ActionTimeout)
	err := r.session.ForceClick(opCtx, p.cfg.Selectors.Submit)
	cancel()
	if err != nil {
		return fmt.Errorf("click submit: %w", err)
	}
	return sleep(ctx, p.cfg.Settle.AfterSubmit)
}

func (p *Pipeline) awaitResult(ctx context.Context, r *run) error {
	waitCtx, cancel := context.WithTimeout(ctx, p.cfg.ResultTimeout)
	defer cancel()
	if err := r.session.WaitVisible(waitCtx, p.cfg.Selectors.Result); err != nil {
		return fmt.Errorf("%w within %s: %w", ErrResultNotVisible, p.cfg.ResultTimeout, err)
	}
	return nil
}

func (p *Pipeline) extract(ctx context.Context, r *run) error {
	opCtx, cancel := context.WithTimeout(ctx, p.cfg.ActionTimeout)
	defer cancel()
	text, err := r.session.Text(opCtx, p.cfg.Selectors.Result)
	if err != nil {
		return fmt.Errorf("read result: %w", err)
	}
	code := strings.TrimSpace(text)
	if code == "" {
		return ErrEmptyResult
	}
	r.code = code
	return nil
}

// sleep pauses for d or until ctx ends.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

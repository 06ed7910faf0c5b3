// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/cl-postal-codes/internal/api"
	"github.com/JakeFAU/cl-postal-codes/internal/browser"
	"github.com/JakeFAU/cl-postal-codes/internal/catalog"
	"github.com/JakeFAU/cl-postal-codes/internal/clock/system"
	"github.com/JakeFAU/cl-postal-codes/internal/config"
	"github.com/JakeFAU/cl-postal-codes/internal/id/uuid"
	"github.com/JakeFAU/cl-postal-codes/internal/lookup"
	"github.com/JakeFAU/cl-postal-codes/internal/postal"
	memoryPublisher "github.com/JakeFAU/cl-postal-codes/internal/publisher/memory"
	pubsubPublisher "github.com/JakeFAU/cl-postal-codes/internal/publisher/pubsub"
	"github.com/JakeFAU/cl-postal-codes/internal/scraper"
	gcsStorage "github.com/JakeFAU/cl-postal-codes/internal/storage/gcs"
	localStorage "github.com/JakeFAU/cl-postal-codes/internal/storage/local"
	memoryStorage "github.com/JakeFAU/cl-postal-codes/internal/storage/memory"
	postgresStorage "github.com/JakeFAU/cl-postal-codes/internal/storage/postgres"
	"github.com/JakeFAU/cl-postal-codes/internal/telemetry"
)

// App holds the shared, long-lived services of the process. It is built once at
// startup and closed on shutdown.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	browsers *browser.Manager
	pipeline *scraper.Pipeline
	lookup   *lookup.Service
	server   *api.Server
	closers  []namedCloser
}

type namedCloser struct {
	name  string
	close func(ctx context.Context) error
}

// Option customizes New.
type Option func(*options)

type options struct {
	launcher browser.Launcher
}

// WithLauncher replaces the chromedp launcher.
func WithLauncher(l browser.Launcher) Option {
	return func(o *options) { o.launcher = l }
}

// New wires every service described by cfg. It fails fast if a backend cannot
// be initialized and releases whatever was already opened.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			if cerr := a.Close(context.WithoutCancel(ctx)); cerr != nil {
				logger.Warn("cleanup after failed init", zap.Error(cerr))
			}
		}
	}()

	tp, err := telemetry.InitTracerProvider(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.addCloser("tracing", tp.Shutdown)

	ids := uuid.New()
	clock := system.New()

	launcher := o.launcher
	if launcher == nil {
		launcher = browser.NewChromedpLauncher(browser.ChromedpConfig{
			ExecPath:      cfg.Browser.ExecPath,
			Headless:      cfg.Browser.Headless,
			UserAgent:     cfg.Browser.UserAgent,
			LaunchTimeout: cfg.Browser.LaunchTimeout,
			WindowWidth:   cfg.Browser.WindowWidth,
			WindowHeight:  cfg.Browser.WindowHeight,
		}, logger)
	}
	a.browsers = browser.NewManager(launcher, browser.ManagerConfig{
		WaitInterval:    cfg.Browser.WaitInterval,
		MaxWaitAttempts: cfg.Browser.MaxWaitAttempts,
	}, logger)
	a.addCloser("browser", a.browsers.Shutdown)

	blobs, err := a.newBlobStore(ctx)
	if err != nil {
		return nil, err
	}
	var diag scraper.DiagnosticCapture
	if blobs != nil {
		diag = scraper.NewBlobDiagnostics(blobs, ids, clock, cfg.Storage.Prefix, cfg.Scraper.DiagnosticsTimeout, logger)
	}
	a.pipeline = scraper.New(a.browsers, cfg.Scraper, diag, logger)

	store, checks, err := a.newAddressStore(ctx)
	if err != nil {
		return nil, err
	}
	pub, err := a.newPublisher(ctx)
	if err != nil {
		return nil, err
	}

	a.lookup = lookup.New(store, store, a.pipeline, pub, ids, clock, lookup.Config{Topic: cfg.PubSub.TopicName}, logger)

	checks = append([]api.ReadinessCheck{{Name: "browser", Check: a.checkBrowser}}, checks...)
	a.server = api.NewServer(a.lookup, checks, cfg, logger)

	logger.Info("application services initialized",
		zap.String("storage", cfg.Storage.Backend),
		zap.String("db", cfg.DB.Backend),
		zap.String("pubsub", cfg.PubSub.Backend),
	)
	return a, nil
}

func (a *App) newBlobStore(ctx context.Context) (postal.BlobStore, error) {
	switch a.cfg.Storage.Backend {
	case config.BackendNone:
		a.logger.Info("diagnostic screenshots disabled")
		return nil, nil
	case config.BackendLocal:
		store, err := localStorage.New(localStorage.Config{BaseDir: a.cfg.Storage.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("init local storage: %w", err)
		}
		return store, nil
	case config.BackendGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		a.addCloser("gcs", func(context.Context) error { return client.Close() })
		store, err := gcsStorage.New(client, gcsStorage.Config{
			Bucket:       a.cfg.Storage.GCSBucket,
			CacheControl: a.cfg.Storage.CacheControl,
		})
		if err != nil {
			return nil, fmt.Errorf("init gcs storage: %w", err)
		}
		a.logger.Info("using gcs diagnostics", zap.String("bucket", a.cfg.Storage.GCSBucket))
		return store, nil
	case config.BackendMemory:
		a.logger.Info("keeping diagnostic screenshots in memory",
			zap.Int("max_objects", a.cfg.Storage.MemoryMaxObjects))
		return memoryStorage.NewBoundedBlobStore(a.cfg.Storage.MemoryMaxObjects), nil
	default:
		return nil, fmt.Errorf("storage backend %q is not supported", a.cfg.Storage.Backend)
	}
}

// addressStore is implemented by the stores that also hold the commune catalogue.
type addressStore interface {
	postal.AddressStore
	postal.CommuneStore
}

func (a *App) newAddressStore(ctx context.Context) (addressStore, []api.ReadinessCheck, error) {
	if a.cfg.DB.Backend != config.BackendPostgres {
		a.logger.Info("using in-memory address store; results are lost on restart")
		store := memoryStorage.NewAddressStore()
		if err := a.seedCommunes(ctx, store); err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	}
	store, err := postgresStorage.NewAddressStore(ctx, postgresStorage.Config{
		DSN:             a.cfg.DB.DSN,
		Table:           a.cfg.DB.Table,
		MaxConns:        a.cfg.DB.MaxConns,
		MinConns:        a.cfg.DB.MinConns,
		MaxConnLifetime: a.cfg.DB.MaxConnLifetime,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init postgres: %w", err)
	}
	a.addCloser("postgres", func(context.Context) error {
		store.Close()
		return nil
	})
	if a.cfg.DB.AutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
	}
	if err := a.seedCommunes(ctx, store); err != nil {
		return nil, nil, err
	}
	return store, []api.ReadinessCheck{{Name: "db", Check: store.Ping}}, nil
}

func (a *App) seedCommunes(ctx context.Context, store postal.CommuneStore) error {
	if !a.cfg.DB.SeedCommunes {
		return nil
	}
	n, err := catalog.Seed(ctx, store)
	if err != nil {
		return err
	}
	a.logger.Debug("commune catalogue seeded", zap.Int("communes", n))
	return nil
}

func (a *App) newPublisher(ctx context.Context) (postal.Publisher, error) {
	switch a.cfg.PubSub.Backend {
	case config.BackendMemory:
		return memoryPublisher.New(), nil
	case config.BackendPubSub:
		client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("init pubsub client: %w", err)
		}
		pub := pubsubPublisher.New(client)
		a.addCloser("pubsub", func(context.Context) error {
			pub.Close()
			return client.Close()
		})
		a.logger.Info("publishing resolved events", zap.String("topic", a.cfg.PubSub.TopicName))
		return pub, nil
	default:
		return nil, nil
	}
}

// checkBrowser opens and closes one session on the shared browser.
func (a *App) checkBrowser(ctx context.Context) error {
	handle, err := a.browsers.Acquire(ctx)
	if err != nil {
		return err
	}
	session, err := handle.NewSession(ctx)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	if err := session.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

func (a *App) addCloser(name string, fn func(ctx context.Context) error) {
	a.closers = append(a.closers, namedCloser{name: name, close: fn})
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Config returns the configuration the App was built from.
func (a *App) Config() config.Config { return a.cfg }

// Lookup returns the cache-then-scrape lookup service.
func (a *App) Lookup() *lookup.Service { return a.lookup }

// Server returns the HTTP API.
func (a *App) Server() *api.Server { return a.server }

// Browsers returns the shared browser manager.
func (a *App) Browsers() *browser.Manager { return a.browsers }

// Close releases services in reverse order of creation and joins their errors.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(ctx); err != nil {
			a.logger.Warn("close failed", zap.String("service", c.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

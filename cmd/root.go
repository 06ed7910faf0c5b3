// Package cmd defines the CLI commands of the postal code service.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/cl-postal-codes/internal/api"
	"github.com/JakeFAU/cl-postal-codes/internal/app"
	"github.com/JakeFAU/cl-postal-codes/internal/config"
	"github.com/JakeFAU/cl-postal-codes/internal/logging"
	"github.com/JakeFAU/cl-postal-codes/internal/lookup"
	"github.com/JakeFAU/cl-postal-codes/internal/postal"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// Finder resolves one address. *lookup.Service satisfies it.
type Finder interface {
	FindOrScrape(ctx context.Context, q lookup.Query) (postal.Address, error)
}

// App is the application surface commands use. It allows tests to inject a
// fake App.
type App interface {
	Close(ctx context.Context) error
	Logger() *zap.Logger
	Config() config.Config
	Finder() Finder
	Server() *api.Server
}

type appAdapter struct{ *app.App }

func (a appAdapter) Finder() Finder { return a.Lookup() }

// newApp is the application factory; tests replace it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (App, error) {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return appAdapter{a}, nil
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "postal-codes",
		Short: "Chilean postal code lookup backed by Correos de Chile.",
		Long: `postal-codes resolves Chilean addresses to postal codes. Lookups are
answered from the address store and fall back to driving a shared headless
browser through the Correos de Chile search form.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)

			appInstance, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return nil
			}
			cfg := appInstance.Config()
			ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), cfg.Server.ShutdownTimeout)
			defer cancel()
			closeErr := appInstance.Close(ctx)
			// Sync fails on terminals; nothing useful to do about it.
			_ = appInstance.Logger().Sync()
			if closeErr != nil {
				return fmt.Errorf("close application: %w", closeErr)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml or $HOME/.cl-postal-codes/config.yaml)")
	cmd.AddCommand(newServeCmd(), newLookupCmd())
	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

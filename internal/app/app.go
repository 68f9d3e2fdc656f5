package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sophialabs/mockdeck/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/mockdeck/internal/infrastructure/outbound/logging"
	"github.com/sophialabs/mockdeck/internal/infrastructure/wiring"
)

// App is the thin lifecycle manager that delegates dependency construction to wiring.Container.
type App struct {
	cfg        Config
	container  *wiring.Container
	httpServer *http.Server
}

// New constructs the application, logging to stdout.
func New(cfg Config) (*App, error) {
	return NewWithOutput(cfg, os.Stdout)
}

// NewWithOutput constructs the application with logs written to w.
func NewWithOutput(cfg Config, w io.Writer) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.New(slog.New(logging.NewHandler(w, logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)))

	container, err := wiring.New(wiring.Params{
		RootDir:           cfg.RootDir,
		DefinitionGlob:    cfg.DefinitionGlob,
		RoutePrefix:       cfg.RoutePrefix,
		TraceSize:         cfg.TraceSize,
		MaxBodyBytes:      cfg.MaxBodyBytes,
		MaxLoopIterations: cfg.MaxLoopIterations,
		TemplateCacheSize: cfg.TemplateCacheSize,
		AdminRate:         cfg.AdminRate,
		AdminBurst:        cfg.AdminBurst,
		RateLimiterTTL:    cfg.RateLimiterTTL,
		Logger:            logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to wire infrastructure: %w", err)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      container.Server(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		container:  container,
		httpServer: httpServer,
	}, nil
}

// Run executes the full application lifecycle: load the catalog, start the
// watcher, serve HTTP, and shut down gracefully on SIGINT/SIGTERM or
// context cancellation.
func (a *App) Run(ctx context.Context) error {
	defer a.container.Close()

	logger := a.container.Logger()

	if _, err := a.container.Reload(ctx); err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.cfg.Watch {
		if watcher := a.setupWatcher(ctx); watcher != nil {
			defer watcher.Stop()
		}
	}

	ln, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.httpServer.Addr, err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting mockdeck server", "addr", ln.Addr().String(), "root", a.container.RootDir(), "prefix", a.cfg.RoutePrefix)
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func (a *App) setupWatcher(ctx context.Context) *filesystem.Watcher {
	logger := a.container.Logger()

	watcher, err := filesystem.NewWatcher(a.container.RootDir(), filesystem.WatchConfig{
		Debounce: a.cfg.WatcherDebounce,
		Attempts: a.cfg.ReloadAttempts,
	}, logger, func() error {
		catalog, err := a.container.Reload(ctx)
		if err != nil {
			return err
		}
		logger.Info("hot reload complete", "definitions", catalog.Len())
		return nil
	})
	if err != nil {
		logger.Warn("file watcher not available", "error", err)
		return nil
	}

	watcher.Start()
	logger.Info("file watcher started", "root", a.container.RootDir())
	return watcher
}

// Check loads the catalog once without serving and returns the number of
// definitions that compiled. Warnings are logged to w.
func Check(ctx context.Context, cfg Config, w io.Writer) (int, error) {
	a, err := NewWithOutput(cfg, w)
	if err != nil {
		return 0, err
	}
	defer a.container.Close()

	catalog, err := a.container.Reload(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load catalog: %w", err)
	}
	return catalog.Len(), nil
}

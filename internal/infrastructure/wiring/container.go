package wiring

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sophialabs/mockdeck/internal/domain/match"
	"github.com/sophialabs/mockdeck/internal/domain/rules"
	"github.com/sophialabs/mockdeck/internal/domain/sequence"
	"github.com/sophialabs/mockdeck/internal/domain/trace"
	inboundhttp "github.com/sophialabs/mockdeck/internal/infrastructure/inbound/http"
	"github.com/sophialabs/mockdeck/internal/infrastructure/outbound/clock"
	"github.com/sophialabs/mockdeck/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/mockdeck/internal/infrastructure/outbound/metrics"
	"github.com/sophialabs/mockdeck/internal/infrastructure/outbound/ratelimit"
	"github.com/sophialabs/mockdeck/internal/infrastructure/outbound/requestlog"
	"github.com/sophialabs/mockdeck/internal/infrastructure/outbound/template"
	"github.com/sophialabs/mockdeck/internal/infrastructure/ports"
	"github.com/sophialabs/mockdeck/internal/infrastructure/services"
	"github.com/sophialabs/mockdeck/internal/infrastructure/usecases"
)

// Params holds the subset of configuration needed to construct infrastructure components.
type Params struct {
	RootDir        string
	DefinitionGlob string
	RoutePrefix    string
	TraceSize      int
	MaxBodyBytes   int64

	MaxLoopIterations int
	TemplateCacheSize int

	AdminRate      float64
	AdminBurst     int
	RateLimiterTTL time.Duration

	Logger ports.Logger
	// Clock defaults to the real clock.
	Clock ports.Clock
}

// Container owns the construction and lifecycle of all infrastructure components.
type Container struct {
	logger      ports.Logger
	repo        *filesystem.YAMLRepository
	live        *services.LiveCatalog
	server      *inboundhttp.Server
	loadUC      *usecases.LoadCatalogUseCase
	metrics     *metrics.Recorder
	rateLimiter *ratelimit.TokenBucketStore
	traceBuf    *trace.RingBuffer
	closeOnce   sync.Once
}

// New constructs all infrastructure components. Fallible operations run
// before the rate limiter store starts its eviction goroutine.
func New(p Params) (*Container, error) {
	if _, err := os.Stat(p.RootDir); err != nil {
		return nil, fmt.Errorf("failed to access root directory: %w", err)
	}

	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}

	repo, err := filesystem.NewYAMLRepository(p.RootDir, p.DefinitionGlob)
	if err != nil {
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}

	compiler, err := services.NewCompiler(p.RootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create compiler: %w", err)
	}

	engine, err := template.NewEngine(template.Config{
		MaxLoopIterations: p.MaxLoopIterations,
		CacheSize:         p.TemplateCacheSize,
	}, clk, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create template engine: %w", err)
	}

	rateLimiter := ratelimit.NewTokenBucketStore(p.RateLimiterTTL, clk)

	live := services.NewLiveCatalog()
	tracker := sequence.NewTracker()
	traceBuf := trace.NewRingBuffer(p.TraceSize)
	recorder := metrics.NewRecorder()

	loadUC := usecases.NewLoadCatalogUseCase(repo, compiler, live, p.Logger)
	loadUC.SetObserver(recorder)

	resolveUC := usecases.NewResolveRequestUseCase(
		live,
		match.NewMatcher(),
		rules.NewEvaluator(),
		tracker,
		engine,
		requestlog.Fanout{requestlog.NewRingRecorder(traceBuf), recorder},
		clk,
		p.Logger,
	)

	server := inboundhttp.NewServer(inboundhttp.Deps{
		Resolve:   resolveUC,
		Load:      loadUC,
		Save:      usecases.NewSaveDefinitionUseCase(repo, loadUC, p.Logger),
		Delete:    usecases.NewDeleteDefinitionUseCase(repo, loadUC, tracker, p.Logger),
		Sequences: usecases.NewResetSequencesUseCase(tracker, p.Logger),
		Catalog:   live,
		Repo:      repo,
		Trace:     traceBuf,
		Metrics:   recorder.Handler(),
		Limiter:   rateLimiter,
		Logger:    p.Logger,
	}, inboundhttp.Options{
		RoutePrefix:  p.RoutePrefix,
		MaxBodyBytes: p.MaxBodyBytes,
		RootDir:      repo.RootDir(),
		AdminRate:    p.AdminRate,
		AdminBurst:   p.AdminBurst,
	})

	return &Container{
		logger:      p.Logger,
		repo:        repo,
		live:        live,
		server:      server,
		loadUC:      loadUC,
		metrics:     recorder,
		rateLimiter: rateLimiter,
		traceBuf:    traceBuf,
	}, nil
}

// Close releases resources held by the container. It is idempotent.
func (c *Container) Close() {
	c.closeOnce.Do(func() {
		c.rateLimiter.Stop()
	})
}

// Reload loads the catalog from disk and publishes it.
func (c *Container) Reload(ctx context.Context) (*services.Catalog, error) {
	return c.loadUC.Execute(ctx)
}

// Logger returns the logger passed at construction time.
func (c *Container) Logger() ports.Logger {
	return c.logger
}

// Server returns the HTTP server.
func (c *Container) Server() *inboundhttp.Server {
	return c.server
}

// RootDir returns the absolute catalog root.
func (c *Container) RootDir() string {
	return c.repo.RootDir()
}

// Catalog returns the live catalog.
func (c *Container) Catalog() *services.LiveCatalog {
	return c.live
}

// Metrics returns the Prometheus recorder.
func (c *Container) Metrics() *metrics.Recorder {
	return c.metrics
}

// RateLimiterStore returns the token bucket store for the admin API.
func (c *Container) RateLimiterStore() *ratelimit.TokenBucketStore {
	return c.rateLimiter
}

// TraceBuf returns the trace ring buffer.
func (c *Container) TraceBuf() *trace.RingBuffer {
	return c.traceBuf
}

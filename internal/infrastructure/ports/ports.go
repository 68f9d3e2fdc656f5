package ports

import (
	"context"
	"time"

	"github.com/sophialabs/mockdeck/internal/domain/definition"
	"github.com/sophialabs/mockdeck/internal/domain/match"
	"github.com/sophialabs/mockdeck/internal/domain/trace"
)

// Clock provides the current time (for testing).
type Clock interface {
	Now() time.Time
	// SleepContext blocks for d or until ctx is cancelled. Returns ctx.Err() if cancelled.
	SleepContext(ctx context.Context, d time.Duration) error
}

// Logger provides structured logging.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

// RateLimiter checks whether a request is allowed under rate limits.
type RateLimiter interface {
	// Allow checks if a request identified by key is within the rate limit.
	// rate is tokens per second, burst is the max burst size.
	Allow(ctx context.Context, key string, rate float64, burst int) bool
}

// Renderer renders template strings against a request. Bind prepares the
// request data once and returns a function that renders any number of
// sources against it. Rendering never fails: on error the source is
// returned unchanged.
type Renderer interface {
	Bind(rc match.RenderContext) func(source string) string
}

// DefinitionStore is the read side of the definition catalog.
type DefinitionStore interface {
	// ListActiveDefinitions returns active definitions for method whose query
	// filter is empty or equal to rawQuery, in storage order.
	ListActiveDefinitions(ctx context.Context, method, rawQuery string) ([]*definition.Definition, error)
	// LoadDataBuckets returns the data buckets of a collection by name.
	LoadDataBuckets(ctx context.Context, collectionID string) (map[string]any, error)
}

// OutcomeRecorder receives the outcome of every resolved request.
type OutcomeRecorder interface {
	Record(ctx context.Context, e trace.Entry) error
}

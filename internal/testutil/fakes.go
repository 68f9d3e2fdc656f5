package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/sophialabs/mockdeck/internal/domain/definition"
	"github.com/sophialabs/mockdeck/internal/domain/match"
	"github.com/sophialabs/mockdeck/internal/domain/trace"
	"github.com/sophialabs/mockdeck/internal/infrastructure/ports"
)

var _ ports.Logger = (*NoopLogger)(nil)

// NoopLogger discards all log output.
type NoopLogger struct{}

func (l *NoopLogger) Info(string, ...any)  {}
func (l *NoopLogger) Warn(string, ...any)  {}
func (l *NoopLogger) Error(string, ...any) {}
func (l *NoopLogger) Debug(string, ...any) {}

var _ ports.Logger = (*RecordingLogger)(nil)

// RecordingLogger keeps every message with its level.
type RecordingLogger struct {
	mu       sync.Mutex
	Messages []LogLine
}

// LogLine is one message captured by RecordingLogger.
type LogLine struct {
	Level string
	Msg   string
	Args  []any
}

func (l *RecordingLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *RecordingLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *RecordingLogger) Error(msg string, args ...any) { l.add("error", msg, args) }
func (l *RecordingLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }

func (l *RecordingLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = append(l.Messages, LogLine{Level: level, Msg: msg, Args: args})
}

// Count returns how many messages were logged at level.
func (l *RecordingLogger) Count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, m := range l.Messages {
		if m.Level == level {
			n++
		}
	}
	return n
}

var _ ports.Clock = (*FixedClock)(nil)

// FixedClock returns a fixed time and never sleeps. Requested sleeps are
// recorded.
type FixedClock struct {
	T time.Time

	mu     sync.Mutex
	Sleeps []time.Duration
}

func (c *FixedClock) Now() time.Time { return c.T }
func (c *FixedClock) SleepContext(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.Sleeps = append(c.Sleeps, d)
	c.mu.Unlock()
	return ctx.Err()
}

var _ ports.RateLimiter = (*StubRateLimiter)(nil)

// StubRateLimiter returns a configurable Allow result.
type StubRateLimiter struct {
	AllowAll bool
}

func (r *StubRateLimiter) Allow(context.Context, string, float64, int) bool {
	return r.AllowAll
}

var _ ports.Renderer = (*EchoRenderer)(nil)

// EchoRenderer returns template sources unchanged.
type EchoRenderer struct{}

func (EchoRenderer) Bind(match.RenderContext) func(string) string {
	return func(source string) string { return source }
}

var _ ports.DefinitionStore = (*StubStore)(nil)

// StubStore serves a fixed list of definitions, filtered like the catalog.
type StubStore struct {
	Definitions []*definition.Definition
	Buckets     map[string]map[string]any
	Err         error
}

func (s *StubStore) ListActiveDefinitions(_ context.Context, method, rawQuery string) ([]*definition.Definition, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var out []*definition.Definition
	for _, d := range s.Definitions {
		if !d.Active || d.Method != method {
			continue
		}
		if d.Query != "" && d.Query != rawQuery {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *StubStore) LoadDataBuckets(_ context.Context, collectionID string) (map[string]any, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Buckets[collectionID], nil
}

var _ ports.OutcomeRecorder = (*RecordingRecorder)(nil)

// RecordingRecorder keeps recorded outcomes and can be made to fail or panic.
type RecordingRecorder struct {
	mu      sync.Mutex
	Entries []trace.Entry
	Err     error
	Panic   bool
}

func (r *RecordingRecorder) Record(_ context.Context, e trace.Entry) error {
	if r.Panic {
		panic("recorder exploded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Entries = append(r.Entries, e)
	return r.Err
}

// Last returns the most recent outcome.
func (r *RecordingRecorder) Last() (trace.Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Entries) == 0 {
		return trace.Entry{}, false
	}
	return r.Entries[len(r.Entries)-1], true
}

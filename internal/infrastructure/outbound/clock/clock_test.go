package clock_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sophialabs/mockdeck/internal/infrastructure/outbound/clock"
)

func TestRealClock_Now(t *testing.T) {
	clk := clock.New()
	before := time.Now()
	got := clk.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("Now() = %v, want between %v and %v", got, before, after)
	}
}

func TestRealClock_SleepContext(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name       string
		ctx        context.Context
		d          time.Duration
		wantErr    error
		minElapsed time.Duration
		maxElapsed time.Duration
	}{
		{"sleeps", context.Background(), 50 * time.Millisecond, nil, 40 * time.Millisecond, 5 * time.Second},
		{"zero", context.Background(), 0, nil, 0, time.Second},
		{"cancelled", cancelled, 10 * time.Second, context.Canceled, 0, time.Second},
		{"zero cancelled", cancelled, 0, context.Canceled, 0, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			err := clock.New().SleepContext(tt.ctx, tt.d)
			elapsed := time.Since(start)

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
			if elapsed < tt.minElapsed || elapsed > tt.maxElapsed {
				t.Errorf("elapsed %v outside [%v, %v]", elapsed, tt.minElapsed, tt.maxElapsed)
			}
		})
	}
}

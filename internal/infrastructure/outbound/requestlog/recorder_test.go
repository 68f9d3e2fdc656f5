package requestlog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sophialabs/mockdeck/internal/domain/trace"
	"github.com/sophialabs/mockdeck/internal/infrastructure/outbound/requestlog"
	"github.com/sophialabs/mockdeck/internal/testutil"
)

func TestRingRecorder(t *testing.T) {
	buf := trace.NewRingBuffer(2)
	r := requestlog.NewRingRecorder(buf)

	for _, path := range []string{"/a", "/b", "/c"} {
		if err := r.Record(context.Background(), trace.Entry{Path: path}); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	got := buf.Last(10)
	if len(got) != 2 || got[0].Path != "/b" || got[1].Path != "/c" {
		t.Errorf("expected the two newest entries, got %+v", got)
	}
}

func TestFanout(t *testing.T) {
	first := &testutil.RecordingRecorder{Err: errors.New("sink down")}
	second := &testutil.RecordingRecorder{}

	err := requestlog.Fanout{first, second}.Record(context.Background(), trace.Entry{Path: "/x"})

	if err == nil || err.Error() != "sink down" {
		t.Errorf("expected joined sink error, got %v", err)
	}
	if len(first.Entries) != 1 || len(second.Entries) != 1 {
		t.Errorf("expected both recorders to receive the entry, got %d and %d", len(first.Entries), len(second.Entries))
	}
}

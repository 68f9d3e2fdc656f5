package requestlog

import (
	"context"
	"errors"

	"github.com/sophialabs/mockdeck/internal/domain/trace"
	"github.com/sophialabs/mockdeck/internal/infrastructure/ports"
)

var (
	_ ports.OutcomeRecorder = (*RingRecorder)(nil)
	_ ports.OutcomeRecorder = (Fanout)(nil)
)

// RingRecorder keeps the most recent outcomes in a ring buffer for the
// admin API.
type RingRecorder struct {
	buf *trace.RingBuffer
}

// NewRingRecorder creates a recorder backed by buf.
func NewRingRecorder(buf *trace.RingBuffer) *RingRecorder {
	return &RingRecorder{buf: buf}
}

func (r *RingRecorder) Record(_ context.Context, e trace.Entry) error {
	r.buf.Add(e)
	return nil
}

// Fanout hands every outcome to each recorder in turn. A failing recorder
// does not stop the others; their errors are joined.
type Fanout []ports.OutcomeRecorder

func (f Fanout) Record(ctx context.Context, e trace.Entry) error {
	var errs []error
	for _, r := range f {
		if err := r.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

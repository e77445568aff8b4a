package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"codeberg.org/ravlen/aquamon/internal/reading"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu        sync.Mutex
	delivered []reading.AlertRecord
	block     chan struct{}
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Notify(ctx context.Context, alert reading.AlertRecord) error {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered = append(r.delivered, alert)

	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.delivered)
}

func TestDispatcherDeliversToAllNotifiers(t *testing.T) {
	first := &recordingNotifier{}
	second := &recordingNotifier{}
	d := NewDispatcher(first, second)

	d.Offer(reading.AlertRecord{ID: 1, Type: reading.AlertLeakDetected})
	d.Offer(reading.AlertRecord{ID: 2, Type: reading.AlertRecovery})
	d.Close()

	require.Equal(t, 2, first.count())
	require.Equal(t, 2, second.count())
	assert.Equal(t, reading.AlertLeakDetected, first.delivered[0].Type)
	assert.Equal(t, reading.AlertRecovery, first.delivered[1].Type)
}

func TestOfferNeverBlocksOnSlowNotifier(t *testing.T) {
	slow := &recordingNotifier{block: make(chan struct{})}
	d := NewDispatcher(slow)
	defer func() {
		close(slow.block)
		d.Close()
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Well past the queue capacity; excess alerts are dropped.
		for i := 0; i < queueSize*3; i++ {
			d.Offer(reading.AlertRecord{ID: int64(i), Type: reading.AlertLeakDetected})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Offer blocked on a stalled notifier")
	}
}

func TestCloseDrainsQueue(t *testing.T) {
	n := &recordingNotifier{}
	d := NewDispatcher(n)

	for i := 0; i < 5; i++ {
		d.Offer(reading.AlertRecord{ID: int64(i)})
	}
	d.Close()

	assert.Equal(t, 5, n.count(), "Queued alerts are delivered before shutdown")
}

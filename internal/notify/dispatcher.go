package notify

import (
	"context"
	"time"

	"codeberg.org/ravlen/aquamon/internal/logger"
	"codeberg.org/ravlen/aquamon/internal/reading"
)

const (
	queueSize       = 16
	deliveryTimeout = 10 * time.Second
)

// Dispatcher fans alerts out to the configured notifiers from its own
// goroutine, behind a bounded queue. Offer never blocks: when the queue is
// full the alert is dropped from notification (it is already persisted),
// preserving the tick cadence against slow sinks.
type Dispatcher struct {
	notifiers []Notifier
	queue     chan reading.AlertRecord
	quit      chan struct{}
	done      chan struct{}
}

func NewDispatcher(notifiers ...Notifier) *Dispatcher {
	d := &Dispatcher{
		notifiers: notifiers,
		queue:     make(chan reading.AlertRecord, queueSize),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go d.deliver()

	return d
}

// Offer enqueues an alert for delivery without blocking
func (d *Dispatcher) Offer(alert reading.AlertRecord) {
	select {
	case d.queue <- alert:
	case <-d.quit:
	default:
		logger.Warn().
			Str("alert_type", string(alert.Type)).
			Msg("Notification queue full, alert not delivered")
	}
}

// Close stops the dispatcher after draining queued alerts
func (d *Dispatcher) Close() {
	close(d.quit)
	<-d.done
}

func (d *Dispatcher) deliver() {
	defer close(d.done)

	for {
		select {
		case alert := <-d.queue:
			d.send(alert)
		case <-d.quit:
			// Drain what is already queued before exiting.
			for {
				select {
				case alert := <-d.queue:
					d.send(alert)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) send(alert reading.AlertRecord) {
	for _, n := range d.notifiers {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		if err := n.Notify(ctx, alert); err != nil {
			logger.Error().Err(err).
				Str("notifier", n.Name()).
				Str("alert_type", string(alert.Type)).
				Msg("Notification delivery failed")
		}
		cancel()
	}
}

package notify

import (
	"context"

	"codeberg.org/ravlen/aquamon/internal/reading"
)

// Notifier delivers an alert to one external sink. Delivery is best
// effort: a failure is logged by the dispatcher and never propagates back
// into alert persistence or the sampling loop.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert reading.AlertRecord) error
}

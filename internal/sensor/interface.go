package sensor

import (
	"context"

	"codeberg.org/ravlen/aquamon/internal/reading"
)

// Source acquires raw samples from the physical transducers. Raw values are
// the ADS1115's signed 16-bit conversion results at gain 1 (±4.096 V), so
// deployed calibration points must be interpreted against that range.
type Source interface {
	// Read acquires one sample for the channel. The context deadline
	// bounds the acquisition; an expired deadline is a read failure,
	// never a pending read.
	Read(ctx context.Context, ch reading.Channel) (reading.RawSample, error)

	Close() error
}

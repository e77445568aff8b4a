// Package stats computes rolling aggregates over a window of historical
// readings. It is a pure function of the supplied history; callers query
// storage and pass the result in.
package stats

import (
	"math"
	"time"

	"codeberg.org/ravlen/aquamon/internal/reading"
)

// Window is a half-open time interval [Since, Until)
type Window struct {
	Since time.Time
	Until time.Time
}

// Contains reports whether ts falls inside the window
func (w Window) Contains(ts time.Time) bool {
	return !ts.Before(w.Since) && ts.Before(w.Until)
}

// Statistics holds aggregates over a window. Averages and extrema are
// signed: AvgDifference is the mean of signed differences so directional
// drift stays visible, and Max/MinDifference are the signed extrema, not
// extrema of absolute value. With no readings in the window all float
// fields are NaN (test with math.IsNaN) and the counts are zero; an empty
// window is data to render, not a failure.
type Statistics struct {
	AvgReference  float64
	AvgControl    float64
	AvgDifference float64
	MaxDifference float64
	MinDifference float64
	ReadingCount  int
	AlertCount    int
}

// Compute aggregates the readings and alerts that fall inside the window
func Compute(w Window, history []reading.DualReading, alerts []reading.AlertRecord) Statistics {
	stats := Statistics{
		AvgReference:  math.NaN(),
		AvgControl:    math.NaN(),
		AvgDifference: math.NaN(),
		MaxDifference: math.NaN(),
		MinDifference: math.NaN(),
	}

	var sumRef, sumCtrl, sumDiff float64
	for _, r := range history {
		if !w.Contains(r.Timestamp) {
			continue
		}

		if stats.ReadingCount == 0 {
			stats.MaxDifference = r.Difference
			stats.MinDifference = r.Difference
		} else {
			stats.MaxDifference = math.Max(stats.MaxDifference, r.Difference)
			stats.MinDifference = math.Min(stats.MinDifference, r.Difference)
		}

		sumRef += r.Reference.Percentage
		sumCtrl += r.Control.Percentage
		sumDiff += r.Difference
		stats.ReadingCount++
	}

	if stats.ReadingCount > 0 {
		n := float64(stats.ReadingCount)
		stats.AvgReference = sumRef / n
		stats.AvgControl = sumCtrl / n
		stats.AvgDifference = sumDiff / n
	}

	for _, a := range alerts {
		if w.Contains(a.CreatedAt) {
			stats.AlertCount++
		}
	}

	return stats
}

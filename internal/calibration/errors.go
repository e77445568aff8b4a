package calibration

import "codeberg.org/ravlen/aquamon/internal/errors"

const (
	ErrNotCalibrated  = errors.ErrorCode("calibration_missing")
	ErrNoFullPoint    = errors.ErrorCode("calibration_no_full_point")
	ErrEqualEndpoints = errors.ErrorCode("calibration_equal_endpoints")
	ErrUnknownChannel = errors.ErrorCode("calibration_unknown_channel")
)

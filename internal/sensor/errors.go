package sensor

import "codeberg.org/ravlen/aquamon/internal/errors"

const (
	ErrInitFailed     = errors.ErrorCode("sensor_init_failed")
	ErrReadFailed     = errors.ErrorCode("sensor_read_failed")
	ErrUnknownChannel = errors.ErrorCode("sensor_unknown_channel")
)

package store

import "codeberg.org/ravlen/aquamon/internal/errors"

const (
	ErrInvalidDBPath = errors.ErrorCode("store_invalid_db_path")
	ErrStorageInit   = errors.ErrorCode("store_init_failed")
	ErrStorageAccess = errors.ErrorCode("store_access_failed")
	ErrStorageClose  = errors.ErrorCode("store_close_failed")
	ErrAlertNotFound = errors.ErrorCode("store_alert_not_found")
)

package types

import "errors"

// Store errors.
var (
	ErrStoreUnavailable = errors.New("record store unavailable")
	ErrStoreClosed      = errors.New("record store is closed")
	ErrNotFound         = errors.New("record not found")
	ErrInvalidID        = errors.New("invalid record ID")
	ErrInvalidData      = errors.New("invalid record data")
)

// Repository, exchange and controller errors.
var (
	ErrValidation     = errors.New("validation failed")
	ErrParse          = errors.New("malformed import document")
	ErrInvalidSortKey = errors.New("invalid sort key")
	ErrDeclined       = errors.New("declined by user")
	ErrInvalidState   = errors.New("action not available in the current view")
)

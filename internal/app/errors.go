package service

import "errors"

// Sentinel errors returned by the service.
var (
	ErrTrackNotFound = errors.New("track not found")
	ErrInvalidAction = errors.New("action must be 'lock' or 'unlock'")

	// errDuplicate aborts a results update whose submission is already stored.
	errDuplicate = errors.New("duplicate submission")
)

// Validation reasons for non-identifier fields.
const (
	reasonPositiveNumber = "must be a positive number"
	reasonNonNegative    = "must not be negative"
	reasonTooLarge       = "exceeds the size limit"
)

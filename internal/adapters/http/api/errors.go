package api

import "errors"

// Sentinel errors for request decoding.
var (
	ErrMalformedBody   = errors.New("invalid JSON body")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrInvalidLimit    = errors.New("limit must be a positive integer")
	ErrRateLimited     = errors.New("too many requests")
)

// notFoundMessage is the body of every unknown /api route.
const notFoundMessage = "Not found"

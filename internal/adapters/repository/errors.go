package repository

import "errors"

// Sentinel errors for document storage.
var (
	// ErrNotFound is returned by a Backend when a document has never been written.
	ErrNotFound = errors.New("document not found")

	// ErrWrite wraps any failure to persist a document.
	ErrWrite = errors.New("storage write failed")

	// ErrClosed is returned once the store has been closed.
	ErrClosed = errors.New("store closed")

	// ErrUnknownBackend is returned by Open for an unrecognized backend name.
	ErrUnknownBackend = errors.New("unknown store backend")
)

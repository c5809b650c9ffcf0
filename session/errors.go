// Package session implements the share session lifecycle: a
// concurrency-safe store of time-bounded sessions, the access mediator
// that turns capability tokens into permitted operations, and the
// background sweeper that enforces expiry.
package session

import "errors"

var (
	// ErrInvalidManifest rejects creation with an empty file manifest.
	// Nothing is allocated when this is returned.
	ErrInvalidManifest = errors.New("session: file manifest must not be empty")

	// ErrNotFound means a token or session id resolves to no record,
	// including records already garbage-collected.
	ErrNotFound = errors.New("session: not found")

	// ErrAlreadyTerminal means a cancel/expire lost the race against
	// another terminal transition. Absorbed internally, never shown to
	// users.
	ErrAlreadyTerminal = errors.New("session: already in a terminal state")
)

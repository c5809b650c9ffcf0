// Package blob holds file content for share sessions. The session core
// only ever sees opaque references; bytes live here.
package blob

import (
	"errors"
	"io"
)

// ErrNotFound is returned when a content reference does not resolve.
var ErrNotFound = errors.New("blob: content not found")

// Store is the contract the session core requires from content storage.
// Put stages bytes and returns an opaque reference plus a SHA-256 hex
// fingerprint of the content. Release reclaims storage for a reference
// and is idempotent: releasing an unknown ref is not an error.
type Store interface {
	Put(r io.Reader) (ref string, fingerprint string, size int64, err error)
	Open(ref string) (io.ReadSeekCloser, error)
	Release(ref string) error
}

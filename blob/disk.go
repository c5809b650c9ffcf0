package blob

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shareflow/shareflow-go/tool"
)

// DiskStore keeps blobs as flat files under a single directory, one
// file per reference. References are random and never reused.
type DiskStore struct {
	dir string
}

// NewDiskStore creates the storage directory if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %v", err)
	}
	return &DiskStore{dir: dir}, nil
}

func (s *DiskStore) path(ref string) string {
	// refs are generated by us, but never trust them as path components
	return filepath.Join(s.dir, filepath.Base(ref))
}

// Put streams the content to disk, hashing it on the way through.
func (s *DiskStore) Put(r io.Reader) (string, string, int64, error) {
	ref := tool.GenerateSessionID()
	dest := s.path(ref)

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", "", 0, fmt.Errorf("failed to create blob file: %v", err)
	}

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, h), r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dest)
		return "", "", 0, fmt.Errorf("failed to write blob: %v", err)
	}
	return ref, hex.EncodeToString(h.Sum(nil)), n, nil
}

func (s *DiskStore) Open(ref string) (io.ReadSeekCloser, error) {
	f, err := os.Open(s.path(ref))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// Release deletes the blob file. A missing file counts as released so
// sweeper retries converge.
func (s *DiskStore) Release(ref string) error {
	err := os.Remove(s.path(ref))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to release blob %s: %v", ref, err)
	}
	return nil
}

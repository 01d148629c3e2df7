package storage

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

var (
	// ErrInvalidKey is returned for keys that are empty, absolute or escape the root.
	ErrInvalidKey = errors.New("invalid storage key")
	// ErrObjectNotFound is returned when no object exists under a key.
	ErrObjectNotFound = errors.New("object not found")
)

// ObjectInfo describes a stored blob.
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
	ModTime     time.Time
}

// CleanKey normalises a slash separated object key. Keys must be relative and
// may not contain parent references.
func CleanKey(raw string) (string, error) {
	key := strings.ReplaceAll(raw, "\\", "/")
	if key == "" || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, raw)
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." || segment == "." || segment == "" {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, raw)
		}
	}
	return path.Clean(key), nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

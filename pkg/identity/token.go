// Package identity keeps the per-profile reporter token used to deduplicate
// flags. The token is a local pseudo-identifier and carries no authority.
package identity

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const (
	tokenPrefix    = "user_"
	randomSuffixN  = 9
	base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

var tokenPattern = regexp.MustCompile(`^user_\d+_[0-9a-z]{9}$`)

// NewToken formats a reporter token from the clock and a random source.
// intn must return a value in [0, n).
func NewToken(now time.Time, intn func(int) int) string {
	if intn == nil {
		intn = rand.Intn
	}
	var b strings.Builder
	b.WriteString(tokenPrefix)
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	b.WriteByte('_')
	for i := 0; i < randomSuffixN; i++ {
		b.WriteByte(base36Alphabet[intn(len(base36Alphabet))])
	}
	return b.String()
}

// Valid reports whether token has the reporter token shape.
func Valid(token string) bool {
	return tokenPattern.MatchString(token)
}

// FileTokenStore persists the reporter token in a single file. Access is
// serialised across processes with a lock file next to it.
type FileTokenStore struct {
	path string
	now  func() time.Time
	intn func(int) int

	mu     sync.Mutex
	cached string
}

// NewFileTokenStore returns a store rooted at path. An empty path resolves to
// the user config directory.
func NewFileTokenStore(path string) (*FileTokenStore, error) {
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve config dir: %w", err)
		}
		path = filepath.Join(dir, "community-archive", "reporter_token")
	}
	return &FileTokenStore{path: path, now: time.Now, intn: rand.Intn}, nil
}

// Path returns the token file location.
func (s *FileTokenStore) Path() string { return s.path }

// Token returns the stored token, generating and saving one on first use.
func (s *FileTokenStore) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != "" {
		return s.cached, nil
	}

	unlock, err := s.lock()
	if err != nil {
		return "", err
	}
	defer unlock()

	raw, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		if token := strings.TrimSpace(string(raw)); Valid(token) {
			s.cached = token
			return token, nil
		}
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("read reporter token: %w", err)
	}

	token := NewToken(s.now(), s.intn)
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write reporter token: %w", err)
	}
	s.cached = token
	return token, nil
}

// Reset deletes the stored token so the next call to Token mints a new one.
func (s *FileTokenStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	s.cached = ""
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove reporter token: %w", err)
	}
	return nil
}

func (s *FileTokenStore) lock() (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, fmt.Errorf("create token directory: %w", err)
	}
	fileLock := flock.New(s.path + ".lock")
	if err := fileLock.Lock(); err != nil {
		return nil, fmt.Errorf("lock reporter token: %w", err)
	}
	return func() { _ = fileLock.Unlock() }, nil
}

// Package backend provides the two implementations of the journal's
// external contracts: Local runs the identity, entry and reflection
// backends in-process, Remote talks to a `journal serve` instance over
// HTTP. Both persist the current session token with a TokenStore so a
// restarted client resumes where it left off.
package backend

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/peterbourgon/diskv/v3"
)

// TokenStore keeps one session token per profile on disk. A profile names
// the backend the token was issued by, so tokens for different servers
// never mix.
type TokenStore struct {
	d   *diskv.Diskv
	key string
}

// NewTokenStore stores tokens under <dir>/sessions.
func NewTokenStore(dir, profile string) *TokenStore {
	return &TokenStore{
		d: diskv.New(diskv.Options{
			BasePath:     filepath.Join(dir, "sessions"),
			Transform:    func(string) []string { return nil },
			CacheSizeMax: 4 * 1024,
			FilePerm:     0o600,
			PathPerm:     0o700,
		}),
		key: profileKey(profile),
	}
}

// Load returns the stored token, or "" when there is none.
func (s *TokenStore) Load() (string, error) {
	b, err := s.d.Read(s.key)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// Save replaces the stored token.
func (s *TokenStore) Save(token string) error {
	return s.d.Write(s.key, []byte(token))
}

// Clear forgets the stored token. Clearing an empty store is not an error.
func (s *TokenStore) Clear() error {
	if !s.d.Has(s.key) {
		return nil
	}
	return s.d.Erase(s.key)
}

// profileKey turns an arbitrary profile (a server URL, say) into a file name.
func profileKey(profile string) string {
	profile = strings.TrimSpace(profile)
	if profile == "" || profile == "local" {
		return "local"
	}
	sum := sha256.Sum256([]byte(profile))
	return "remote-" + hex.EncodeToString(sum[:8])
}

package backend

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io/fs"
	"strings"

	"github.com/peterbourgon/diskv/v3"
)

const secretKey = "signing-secret"

// LocalSecret returns the token signing secret of the in-process backend,
// creating and persisting a random one under dir on first use.
func LocalSecret(dir string) ([]byte, error) {
	d := diskv.New(diskv.Options{
		BasePath:  dir,
		Transform: func(string) []string { return nil },
		FilePerm:  0o600,
		PathPerm:  0o700,
	})
	b, err := d.Read(secretKey)
	if err == nil {
		if s := strings.TrimSpace(string(b)); s != "" {
			return []byte(s), nil
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	s := hex.EncodeToString(raw)
	if err := d.Write(secretKey, []byte(s)); err != nil {
		return nil, err
	}
	return []byte(s), nil
}

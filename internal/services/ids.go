package services

import (
	"encoding/binary"
	"math/rand/v2"

	"github.com/google/uuid"
)

// randomUUID is the primary id source; tests swap it to exercise the fallback.
var randomUUID = uuid.NewRandom

// NewEntryID returns a random (version 4) UUID string. If the system's
// cryptographic source fails, it falls back to a UUID built from the
// math/rand generator, which is still 122 bits of randomness.
func NewEntryID() string {
	if id, err := randomUUID(); err == nil {
		return id.String()
	}
	return fallbackID()
}

func fallbackID() string {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], rand.Uint64())
	binary.BigEndian.PutUint64(b[8:], rand.Uint64())
	b[6] = (b[6] & 0x0f) | 0x40 // version 4
	b[8] = (b[8] & 0x3f) | 0x80 // RFC 4122 variant
	id, _ := uuid.FromBytes(b[:])
	return id.String()
}

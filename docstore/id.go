package docstore

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
)

// DefaultIDLength is the length of generated alphanumeric ids.
const DefaultIDLength = 15

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// IDGenerator produces ids for documents inserted without one. Collisions
// are not checked.
type IDGenerator func() (string, error)

// AlphanumericID returns a generator of random [A-Za-z0-9] strings of the
// given length.
func AlphanumericID(length int) IDGenerator {
	return func() (string, error) { return RandomString(length) }
}

// UUIDGenerator returns a generator of random (version 4) UUIDs.
func UUIDGenerator() IDGenerator {
	return func() (string, error) {
		id, err := uuid.NewRandom()
		if err != nil {
			return "", err
		}
		return id.String(), nil
	}
}

// RandomString returns a uniformly random alphanumeric string.
func RandomString(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("docstore: random string length must be positive, got %d", length)
	}

	// 248 is the largest multiple of 62 below 256; bytes above it are
	// rejected to keep the distribution uniform.
	const limit = 256 - 256%len(alphanumeric)

	out := make([]byte, 0, length)
	buf := make([]byte, length+length/4+1)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphanumeric[int(b)%len(alphanumeric)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}

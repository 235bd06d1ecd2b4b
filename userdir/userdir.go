// Package userdir holds helpers shared by the UserDirectory implementations
// in its subpackages.
package userdir

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewID returns a new ULID string (26 chars) for a user record.
func NewID(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Normalize canonicalizes a login or email for case-insensitive uniqueness.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

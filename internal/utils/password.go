package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/learning-journal/internal/logger"
)

// dummyHash is compared against when a login names an unknown user so that
// both failure paths cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("journal-timing-equalizer"), bcrypt.DefaultCost)

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.  A stored
// hash that bcrypt cannot parse is a data-integrity problem: it is logged and
// reported as a mismatch.
func VerifyPassword(hash, plain string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if err == nil {
		return true
	}
	if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		logger.Warn("stored password hash is malformed", "error", err)
	}
	return false
}

// BurnPasswordCheck performs a throwaway comparison with the same cost as a
// real one.
func BurnPasswordCheck(plain string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
}

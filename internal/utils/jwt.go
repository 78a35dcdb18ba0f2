package utils // package utils provides helper functions for password hashing and session tokens

import (
	"crypto/rand"   // secure random number generation
	"crypto/sha256" // SHA‑256 hashing for stored session ids
	"encoding/hex"  // hex encoding and decoding functions
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for signing the session cookie
)

// ErrInvalidToken is returned for any session token that fails parsing,
// signature verification or claim checks.
var ErrInvalidToken = errors.New("invalid session token")

// SessionClaims are the claims carried by the signed session cookie.  The
// cookie only proves integrity; whether the session is still alive is decided
// by the server-side record keyed by SessionID.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject claim.
func (c SessionClaims) UserID() (uint64, error) {
	return strconv.ParseUint(c.Subject, 10, 64)
}

// NewSessionID returns a cryptographically secure random session id.
func NewSessionID() (string, error) {
	// 32 bytes -> 64 hex chars
	return randomHex(32)
}

// SignSessionToken builds and signs an HS256 JWT binding a session id to a
// user.  No exp claim is set: expiry slides server-side.
func SignSessionToken(secret []byte, sessionID string, userID uint64, issuedAt time.Time) (string, error) {
	claims := SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  strconv.FormatUint(userID, 10),
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

// ParseSessionToken verifies the signature and returns the claims.
func ParseSessionToken(secret []byte, raw string) (SessionClaims, error) {
	var claims SessionClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		// Reject anything that is not HMAC.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return SessionClaims{}, ErrInvalidToken
	}
	if claims.SessionID == "" {
		return SessionClaims{}, ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return SessionClaims{}, ErrInvalidToken
	}
	return claims, nil
}

// HashToken returns the SHA‑256 hash of a raw session id as a hex string.
// Only the hash is persisted, so a leaked session table cannot be replayed.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomHex returns a hex‑encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

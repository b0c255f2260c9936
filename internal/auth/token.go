// Package auth verifies bearer tokens and carries the caller's id through contexts.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/beatbattle/internal/errs"
)

// Leeway absorbs clock skew between the token issuer and this service.
const Leeway = 30 * time.Second

// Verifier checks HS256 tokens issued by the platform's auth service.
type Verifier struct {
	key []byte
}

// NewVerifier constructs a Verifier for the shared signing key.
func NewVerifier(key []byte) *Verifier { return &Verifier{key: key} }

// Verify validates the signature and time claims and returns the subject as a user id.
// Every failure wraps errs.ErrUnauthorized.
func (v *Verifier) Verify(token string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return v.key, nil
	}, jwt.WithLeeway(Leeway), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return uuid.Nil, fmt.Errorf("%w: invalid token", errs.ErrUnauthorized)
	}

	id, err := uuid.FromString(claims.Subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", errs.ErrUnauthorized)
	}
	return id, nil
}

// Issue signs an HS256 token for userID. The server never calls it; the CLI
// and tests use it to mint development tokens.
func Issue(key []byte, userID uuid.UUID, ttl time.Duration, now time.Time) (string, time.Time, error) {
	exp := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	return signed, exp, err
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, bool) {
	v := strings.TrimSpace(header)
	if len(v) < 7 || !strings.EqualFold(v[:7], "bearer ") {
		return "", false
	}
	t := strings.TrimSpace(v[7:])
	return t, t != ""
}

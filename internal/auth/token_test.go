package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/beatbattle/internal/errs"
)

func makeJWT(t *testing.T, sub string, key []byte, method jwt.SigningMethod, iat time.Time, ttl time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   sub,
		IssuedAt:  jwt.NewNumericDate(iat),
		NotBefore: jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(iat.Add(ttl)),
	}
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return s
}

func TestVerify_Valid(t *testing.T) {
	t.Parallel()

	key := []byte("secret")
	want := uuid.Must(uuid.NewV4())
	tok, exp, err := Issue(key, want, 10*time.Minute, time.Now())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) < 9*time.Minute {
		t.Fatalf("exp too early: %v", exp)
	}

	got, err := NewVerifier(key).Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got != want {
		t.Fatalf("uuid mismatch: %s vs %s", got, want)
	}
}

func TestVerify_Rejects(t *testing.T) {
	t.Parallel()

	key := []byte("secret")
	sub := uuid.Must(uuid.NewV4()).String()
	now := time.Now().UTC()

	cases := map[string]string{
		"garbage":      "abc.def.ghi",
		"wrong key":    makeJWT(t, sub, []byte("other"), jwt.SigningMethodHS256, now, time.Minute),
		"wrong method": makeJWT(t, sub, key, jwt.SigningMethodHS512, now, time.Minute),
		"expired":      makeJWT(t, sub, key, jwt.SigningMethodHS256, now.Add(-2*time.Hour), time.Hour),
		"future":       makeJWT(t, sub, key, jwt.SigningMethodHS256, now.Add(time.Hour), time.Hour),
		"bad subject":  makeJWT(t, "alice", key, jwt.SigningMethodHS256, now, time.Minute),
		"nil subject":  makeJWT(t, uuid.Nil.String(), key, jwt.SigningMethodHS256, now, time.Minute),
	}
	v := NewVerifier(key)
	for name, tok := range cases {
		if _, err := v.Verify(tok); !errors.Is(err, errs.ErrUnauthorized) {
			t.Fatalf("%s: want ErrUnauthorized, got %v", name, err)
		}
	}
}

func TestVerify_WithinLeeway(t *testing.T) {
	t.Parallel()

	key := []byte("secret")
	sub := uuid.Must(uuid.NewV4())
	// expired 10s ago, still inside the 30s leeway
	tok := makeJWT(t, sub.String(), key, jwt.SigningMethodHS256, time.Now().Add(-time.Minute-10*time.Second), time.Minute)
	if _, err := NewVerifier(key).Verify(tok); err != nil {
		t.Fatalf("want accepted within leeway, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	if got, ok := BearerToken("Bearer abc.def.ghi"); !ok || got != "abc.def.ghi" {
		t.Fatalf("ok: got=%q", got)
	}
	if got, ok := BearerToken("  bearer   xyz "); !ok || got != "xyz" {
		t.Fatalf("case-insensitive: got=%q", got)
	}
	for _, h := range []string{"", "Basic foo", "Bearer   ", "Bearer"} {
		if _, ok := BearerToken(h); ok {
			t.Fatalf("want miss on %q", h)
		}
	}
}

func TestWithUserID_And_UserIDFromCtx(t *testing.T) {
	t.Parallel()

	if id, ok := UserIDFromCtx(context.Background()); ok || id != uuid.Nil {
		t.Fatalf("expected no user id in empty ctx")
	}

	want := uuid.Must(uuid.NewV4())
	got, ok := UserIDFromCtx(WithUserID(context.Background(), want))
	if !ok || got != want {
		t.Fatalf("mismatch: got %s, want %s", got, want)
	}

	bad := context.WithValue(context.Background(), userIDKey, "not-uuid")
	if id, ok := UserIDFromCtx(bad); ok || id != uuid.Nil {
		t.Fatalf("expected miss on wrong typed value")
	}
}

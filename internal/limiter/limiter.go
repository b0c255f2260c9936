// Package limiter throttles repeated bad admin key presentations per client.
package limiter

import (
	"context"
	"time"
)

// Limiter tracks failed attempts per client and places temporary lockouts.
type Limiter interface {
	// Allow reports whether the client may try again and, if not, for how long it must wait.
	Allow(ctx context.Context, ipHash []byte) (bool, time.Duration, error)
	// Success clears the failure counter.
	Success(ctx context.Context, ipHash []byte) error
	// Failure records a failed attempt; it may place a lockout.
	Failure(ctx context.Context, ipHash []byte) (bool, time.Duration, error)
}

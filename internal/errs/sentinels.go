// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Domain outcomes. None of them is a defect: callers are expected to branch
// on each one with errors.Is.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientFunds indicates the wallet balance is below the requested debit.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAlreadyMatched indicates the battle's right side has already been claimed.
	ErrAlreadyMatched = errors.New("already matched")

	// ErrAlreadyVoted indicates the user already has a vote on this battle.
	ErrAlreadyVoted = errors.New("already voted")

	// ErrNotOpenForVoting indicates the battle is not matched or its voting window closed.
	ErrNotOpenForVoting = errors.New("battle not open for voting")

	// ErrNotPending indicates the battle request already left the pending state.
	ErrNotPending = errors.New("request not pending")

	// ErrExpired indicates a deadline (request expiry or battle end) has passed.
	ErrExpired = errors.New("expired")

	// ErrNotRecipient indicates the caller is not the challenged user of a request.
	ErrNotRecipient = errors.New("not recipient")

	// ErrSameUser indicates a user tried to oppose themselves.
	ErrSameUser = errors.New("same user as creator")
)

// Transport-level sentinels.
var (
	// ErrValidation wraps malformed input; details follow the colon.
	ErrValidation = errors.New("validation")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")
)

package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// RequestStatus moves from pending to exactly one terminal state.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestDeclined RequestStatus = "declined"
	RequestExpired  RequestStatus = "expired"
)

// Direction selects which side of a challenge a listing is for.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// BattleRequest is a direct challenge from one user to another.
type BattleRequest struct {
	ID           uuid.UUID
	ChallengerID uuid.UUID
	ChallengedID uuid.UUID
	Status       RequestStatus
	BattleType   BattleType
	Genre        string
	Track        Submission // challenger's submission
	Message      string
	BattleID     *uuid.UUID // set once accepted
	CreatedAt    time.Time
	ExpiresAt    time.Time
	RespondedAt  *time.Time
}

// Party reports whether userID is the challenger or the challenged user.
func (r *BattleRequest) Party(userID uuid.UUID) bool {
	return r.ChallengerID == userID || r.ChallengedID == userID
}

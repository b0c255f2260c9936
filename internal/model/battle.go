package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// BattleType is the kind of media competing.
type BattleType string

const (
	BattleTypeBeat BattleType = "beat"
	BattleTypeSong BattleType = "song"
)

// Valid reports whether t is a known battle type.
func (t BattleType) Valid() bool { return t == BattleTypeBeat || t == BattleTypeSong }

// BattleStatus only ever advances: open -> matched -> resolved (or open -> resolved when nobody joined).
type BattleStatus string

const (
	BattleOpen     BattleStatus = "open"
	BattleMatched  BattleStatus = "matched"
	BattleResolved BattleStatus = "resolved"
)

// Valid reports whether s is a known status.
func (s BattleStatus) Valid() bool {
	return s == BattleOpen || s == BattleMatched || s == BattleResolved
}

// Side names one of the two competing slots.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
	// SideNone is the winner of a tie or of a battle nobody joined.
	SideNone Side = "none"
)

// Valid reports whether s can receive a vote.
func (s Side) Valid() bool { return s == SideLeft || s == SideRight }

// BattleSide is a populated slot with its running vote count.
type BattleSide struct {
	Submission
	Votes int64
}

// Battle is a timed two-sided competition.
type Battle struct {
	ID         uuid.UUID
	Type       BattleType
	Genre      string
	Status     BattleStatus
	EntryFee   int64 // debited from each contender of an open battle; 0 for challenge battles
	Reward     int64 // credited to the winner on resolution
	Left       BattleSide
	Right      *BattleSide // nil until joined
	Winner     Side        // empty until resolved
	RequestID  *uuid.UUID  // challenge the battle was born from
	EndsAt     time.Time
	CreatedAt  time.Time
	MatchedAt  *time.Time
	ResolvedAt *time.Time
}

// Due reports whether the battle awaits resolution at now.
func (b *Battle) Due(now time.Time) bool {
	return (b.Status == BattleOpen || b.Status == BattleMatched) && !now.Before(b.EndsAt)
}

// Payout is one credit owed after resolution.
type Payout struct {
	UserID uuid.UUID
	Amount int64
	Reason EntryReason
}

// Payouts lists the credits owed for a resolved battle:
//   - unopposed: the creator gets the entry fee back;
//   - a winner: its owner gets the reward;
//   - a tie: both owners get their entry fee back.
//
// Zero amounts are omitted.
func Payouts(b *Battle) []Payout {
	if b.Status != BattleResolved {
		return nil
	}
	var out []Payout
	add := func(user uuid.UUID, amount int64, reason EntryReason) {
		if amount > 0 {
			out = append(out, Payout{UserID: user, Amount: amount, Reason: reason})
		}
	}
	switch {
	case b.Right == nil:
		add(b.Left.OwnerID, b.EntryFee, ReasonBattleRefund)
	case b.Winner == SideLeft:
		add(b.Left.OwnerID, b.Reward, ReasonBattleReward)
	case b.Winner == SideRight:
		add(b.Right.OwnerID, b.Reward, ReasonBattleReward)
	default:
		add(b.Left.OwnerID, b.EntryFee, ReasonBattleRefund)
		add(b.Right.OwnerID, b.EntryFee, ReasonBattleRefund)
	}
	return out
}

// BattleFilter narrows a battle listing; zero fields match everything.
type BattleFilter struct {
	Status BattleStatus
	Type   BattleType
	Genre  string
	UserID uuid.UUID // either side's owner
}

// BattleTerms are the server-chosen parameters of a battle born from a challenge.
// Both parties stake EntryFee when the challenge is accepted.
type BattleTerms struct {
	BattleID uuid.UUID
	EntryFee int64
	Reward   int64
	EndsAt   time.Time
}

// Vote is a single recorded vote.
type Vote struct {
	BattleID  uuid.UUID
	UserID    uuid.UUID
	Side      Side
	CreatedAt time.Time
}

// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// EntryReason classifies a ledger entry.
type EntryReason string

const (
	ReasonBattleEntry   EntryReason = "battle_entry"
	ReasonBattleReward  EntryReason = "battle_reward"
	ReasonBattleRefund  EntryReason = "battle_refund"
	ReasonAdminCredit   EntryReason = "admin_credit"
	ReasonStartingGrant EntryReason = "starting_grant"
)

// Wallet is a user's coin balance. Coins never go below zero.
type Wallet struct {
	UserID    uuid.UUID
	Coins     int64
	UpdatedAt time.Time
}

// LedgerEntry records one balance change; debits carry a negative amount.
type LedgerEntry struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Amount    int64
	Reason    EntryReason
	RefID     uuid.UUID // battle id; uuid.Nil for admin credits
	CreatedAt time.Time
}

// Submission is the media a contender brings to one side of a battle.
type Submission struct {
	OwnerID     uuid.UUID
	DisplayName string
	TrackName   string
	MediaRef    string // opaque reference into external object storage
}

// Page bounds a list query.
type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps limit to [1, 100] with 50 as default and offset to >= 0.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Package convert maps domain types to and from the JSON wire format.
package convert

import (
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/beatbattle/internal/model"
)

// --- helpers ---

func ts(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func tsPtr(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := ts(*t)
	return &s
}

func idPtr(id *uuid.UUID) *string {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	s := id.String()
	return &s
}

// --- battles (server -> client) ---

type Side struct {
	OwnerID     string `json:"owner_id"`
	DisplayName string `json:"display_name"`
	TrackName   string `json:"track_name"`
	MediaRef    string `json:"media_ref"`
	Votes       int64  `json:"votes"`
}

type Battle struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	Genre      string  `json:"genre"`
	Status     string  `json:"status"`
	EntryFee   int64   `json:"entry_fee"`
	Reward     int64   `json:"reward"`
	Left       Side    `json:"left"`
	Right      *Side   `json:"right,omitempty"`
	Winner     string  `json:"winner,omitempty"`
	RequestID  *string `json:"request_id,omitempty"`
	EndsAt     string  `json:"ends_at"`
	CreatedAt  string  `json:"created_at"`
	MatchedAt  *string `json:"matched_at,omitempty"`
	ResolvedAt *string `json:"resolved_at,omitempty"`
}

func toSide(s model.BattleSide) Side {
	return Side{
		OwnerID:     s.OwnerID.String(),
		DisplayName: s.DisplayName,
		TrackName:   s.TrackName,
		MediaRef:    s.MediaRef,
		Votes:       s.Votes,
	}
}

// ToBattle converts a domain battle; a nil battle gives nil.
func ToBattle(b *model.Battle) *Battle {
	if b == nil {
		return nil
	}
	out := &Battle{
		ID:         b.ID.String(),
		Type:       string(b.Type),
		Genre:      b.Genre,
		Status:     string(b.Status),
		EntryFee:   b.EntryFee,
		Reward:     b.Reward,
		Left:       toSide(b.Left),
		Winner:     string(b.Winner),
		RequestID:  idPtr(b.RequestID),
		EndsAt:     ts(b.EndsAt),
		CreatedAt:  ts(b.CreatedAt),
		MatchedAt:  tsPtr(b.MatchedAt),
		ResolvedAt: tsPtr(b.ResolvedAt),
	}
	if b.Right != nil {
		r := toSide(*b.Right)
		out.Right = &r
	}
	return out
}

func ToBattles(bs []model.Battle) []*Battle {
	out := make([]*Battle, 0, len(bs))
	for i := range bs {
		out = append(out, ToBattle(&bs[i]))
	}
	return out
}

// --- challenges ---

type Challenge struct {
	ID           string  `json:"id"`
	ChallengerID string  `json:"challenger_id"`
	ChallengedID string  `json:"challenged_id"`
	Status       string  `json:"status"`
	Type         string  `json:"type"`
	Genre        string  `json:"genre"`
	DisplayName  string  `json:"display_name"`
	TrackName    string  `json:"track_name"`
	MediaRef     string  `json:"media_ref"`
	Message      string  `json:"message,omitempty"`
	BattleID     *string `json:"battle_id,omitempty"`
	CreatedAt    string  `json:"created_at"`
	ExpiresAt    string  `json:"expires_at"`
	RespondedAt  *string `json:"responded_at,omitempty"`
}

func ToChallenge(r *model.BattleRequest) *Challenge {
	if r == nil {
		return nil
	}
	return &Challenge{
		ID:           r.ID.String(),
		ChallengerID: r.ChallengerID.String(),
		ChallengedID: r.ChallengedID.String(),
		Status:       string(r.Status),
		Type:         string(r.BattleType),
		Genre:        r.Genre,
		DisplayName:  r.Track.DisplayName,
		TrackName:    r.Track.TrackName,
		MediaRef:     r.Track.MediaRef,
		Message:      r.Message,
		BattleID:     idPtr(r.BattleID),
		CreatedAt:    ts(r.CreatedAt),
		ExpiresAt:    ts(r.ExpiresAt),
		RespondedAt:  tsPtr(r.RespondedAt),
	}
}

func ToChallenges(rs []model.BattleRequest) []*Challenge {
	out := make([]*Challenge, 0, len(rs))
	for i := range rs {
		out = append(out, ToChallenge(&rs[i]))
	}
	return out
}

// --- votes, wallet, ledger ---

type Vote struct {
	BattleID  string `json:"battle_id"`
	Side      string `json:"side"`
	CreatedAt string `json:"created_at"`
}

func ToVote(v *model.Vote) *Vote {
	if v == nil {
		return nil
	}
	return &Vote{BattleID: v.BattleID.String(), Side: string(v.Side), CreatedAt: ts(v.CreatedAt)}
}

type Wallet struct {
	UserID    string `json:"user_id"`
	Coins     int64  `json:"coins"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

func ToWallet(w *model.Wallet) *Wallet {
	if w == nil {
		return nil
	}
	return &Wallet{UserID: w.UserID.String(), Coins: w.Coins, UpdatedAt: ts(w.UpdatedAt)}
}

type LedgerEntry struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason"`
	RefID     string `json:"ref_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

func ToLedger(es []model.LedgerEntry) []LedgerEntry {
	out := make([]LedgerEntry, 0, len(es))
	for _, e := range es {
		le := LedgerEntry{
			ID:        e.ID.String(),
			Amount:    e.Amount,
			Reason:    string(e.Reason),
			CreatedAt: ts(e.CreatedAt),
		}
		if e.RefID != uuid.Nil {
			le.RefID = e.RefID.String()
		}
		out = append(out, le)
	}
	return out
}

// Balance is the response of a credit.
type Balance struct {
	UserID string `json:"user_id"`
	Coins  int64  `json:"coins"`
}

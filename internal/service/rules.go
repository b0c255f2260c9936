// Package service contains application services for wallets, battles, votes and challenges.
package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/beatbattle/internal/errs"
	"github.com/and161185/beatbattle/internal/model"
)

// Rules are the economy and timing knobs shared by the services.
type Rules struct {
	StartingCoins   int64
	DefaultEntryFee int64
	WinReward       int64
	BattleDuration  time.Duration
	MinDuration     time.Duration
	MaxDuration     time.Duration
	ChallengeTTL    time.Duration
}

// DefaultRules returns the values used when nothing is configured.
func DefaultRules() Rules {
	return Rules{
		StartingCoins:   1000,
		DefaultEntryFee: 250,
		WinReward:       500,
		BattleDuration:  24 * time.Hour,
		MinDuration:     time.Minute,
		MaxDuration:     7 * 24 * time.Hour,
		ChallengeTTL:    7 * 24 * time.Hour,
	}
}

const (
	maxGenreLen   = 64
	maxNameLen    = 128
	maxRefLen     = 1024
	maxMessageLen = 500
)

// Track is what a client sends for its side of a battle; the owner comes from the token.
type Track struct {
	DisplayName string
	TrackName   string
	MediaRef    string
}

func (t Track) ownedBy(owner uuid.UUID) model.Submission {
	return model.Submission{
		OwnerID:     owner,
		DisplayName: strings.TrimSpace(t.DisplayName),
		TrackName:   strings.TrimSpace(t.TrackName),
		MediaRef:    strings.TrimSpace(t.MediaRef),
	}
}

// rewardFor caps the configured reward at the pot both sides staked.
func (r Rules) rewardFor(fee int64) int64 {
	if pot := 2 * fee; r.WinReward > pot {
		return pot
	}
	return r.WinReward
}

func validateTrack(t Track) error {
	switch {
	case strings.TrimSpace(t.DisplayName) == "":
		return fmt.Errorf("%w: empty display name", errs.ErrValidation)
	case strings.TrimSpace(t.TrackName) == "":
		return fmt.Errorf("%w: empty track name", errs.ErrValidation)
	case strings.TrimSpace(t.MediaRef) == "":
		return fmt.Errorf("%w: empty media ref", errs.ErrValidation)
	case len(t.DisplayName) > maxNameLen || len(t.TrackName) > maxNameLen:
		return fmt.Errorf("%w: name longer than %d bytes", errs.ErrValidation, maxNameLen)
	case len(t.MediaRef) > maxRefLen:
		return fmt.Errorf("%w: media ref longer than %d bytes", errs.ErrValidation, maxRefLen)
	}
	return nil
}

func validateKind(typ model.BattleType, genre string) error {
	if !typ.Valid() {
		return fmt.Errorf("%w: unknown battle type %q", errs.ErrValidation, typ)
	}
	if strings.TrimSpace(genre) == "" {
		return fmt.Errorf("%w: empty genre", errs.ErrValidation)
	}
	if len(genre) > maxGenreLen {
		return fmt.Errorf("%w: genre longer than %d bytes", errs.ErrValidation, maxGenreLen)
	}
	return nil
}

func nowUTC() time.Time { return time.Now().UTC() }

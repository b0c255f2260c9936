package convert

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/beatbattle/internal/errs"
	"github.com/and161185/beatbattle/internal/model"
	"github.com/and161185/beatbattle/internal/service"
)

// --- client -> server ---

// Track is the submission block shared by create, join, challenge and accept.
type Track struct {
	DisplayName string `json:"display_name"`
	TrackName   string `json:"track_name"`
	MediaRef    string `json:"media_ref"`
}

func (t Track) toService() service.Track {
	return service.Track{DisplayName: t.DisplayName, TrackName: t.TrackName, MediaRef: t.MediaRef}
}

type CreateBattleRequest struct {
	Type     string `json:"type"`
	Genre    string `json:"genre"`
	Track    Track  `json:"track"`
	EntryFee int64  `json:"entry_fee,omitempty"`
	// Duration is a Go duration string, e.g. "36h".
	Duration string `json:"duration,omitempty"`
}

// FromCreateBattle builds the service input for creatorID.
func FromCreateBattle(creatorID uuid.UUID, in CreateBattleRequest) (service.CreateBattle, error) {
	var d time.Duration
	if in.Duration != "" {
		var err error
		if d, err = time.ParseDuration(in.Duration); err != nil {
			return service.CreateBattle{}, fmt.Errorf("%w: invalid duration: %v", errs.ErrValidation, err)
		}
	}
	return service.CreateBattle{
		CreatorID: creatorID,
		Type:      model.BattleType(in.Type),
		Genre:     in.Genre,
		Track:     in.Track.toService(),
		EntryFee:  in.EntryFee,
		Duration:  d,
	}, nil
}

type JoinBattleRequest struct {
	Track    Track `json:"track"`
	EntryFee int64 `json:"entry_fee,omitempty"`
}

func FromJoinBattle(battleID, joinerID uuid.UUID, in JoinBattleRequest) service.JoinBattle {
	return service.JoinBattle{
		BattleID: battleID,
		JoinerID: joinerID,
		Track:    in.Track.toService(),
		EntryFee: in.EntryFee,
	}
}

type VoteRequest struct {
	Side string `json:"side"`
}

type CreateChallengeRequest struct {
	ChallengedID string `json:"challenged_id"`
	Type         string `json:"type"`
	Genre        string `json:"genre"`
	Track        Track  `json:"track"`
	Message      string `json:"message,omitempty"`
}

func FromCreateChallenge(challengerID uuid.UUID, in CreateChallengeRequest) (service.CreateChallenge, error) {
	challenged, err := ParseID(in.ChallengedID)
	if err != nil {
		return service.CreateChallenge{}, fmt.Errorf("challenged_id: %w", err)
	}
	return service.CreateChallenge{
		ChallengerID: challengerID,
		ChallengedID: challenged,
		Type:         model.BattleType(in.Type),
		Genre:        in.Genre,
		Track:        in.Track.toService(),
		Message:      in.Message,
	}, nil
}

type AcceptChallengeRequest struct {
	Track Track `json:"track"`
}

func (in AcceptChallengeRequest) ServiceTrack() service.Track { return in.Track.toService() }

type CreditRequest struct {
	Amount int64 `json:"amount"`
}

// ParseID parses a uuid and maps failures to a validation error.
func ParseID(s string) (uuid.UUID, error) {
	id, err := uuid.FromString(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid id %q", errs.ErrValidation, s)
	}
	return id, nil
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/beatbattle/internal/errs"
	"github.com/and161185/beatbattle/internal/model"
	"github.com/and161185/beatbattle/internal/repository"
)

// ChallengeService negotiates direct battle requests between two users.
type ChallengeService interface {
	// Create sends a pending challenge.
	Create(ctx context.Context, in CreateChallenge) (*model.BattleRequest, error)
	// Accept consumes a pending challenge and returns the matched battle it produced.
	Accept(ctx context.Context, requestID, accepterID uuid.UUID, track Track) (*model.Battle, error)
	// Decline refuses a pending challenge.
	Decline(ctx context.Context, requestID, declinerID uuid.UUID) error
	// Get returns a challenge visible to either party.
	Get(ctx context.Context, requestID, userID uuid.UUID) (*model.BattleRequest, error)
	// ListPending lists live challenges sent to or by the user.
	ListPending(ctx context.Context, userID uuid.UUID, dir model.Direction, page model.Page) ([]model.BattleRequest, error)
	// SweepExpired expires every pending challenge past its deadline.
	SweepExpired(ctx context.Context) (int64, error)
}

// CreateChallenge is the input of ChallengeService.Create.
type CreateChallenge struct {
	ChallengerID uuid.UUID
	ChallengedID uuid.UUID
	Type         model.BattleType
	Genre        string
	Track        Track
	Message      string
}

type ChallengeServiceImpl struct {
	requests repository.RequestRepository
	wallets  repository.WalletRepository
	rules    Rules
	now      func() time.Time
}

// NewChallengeService constructs ChallengeService.
func NewChallengeService(
	requests repository.RequestRepository, wallets repository.WalletRepository, rules Rules,
) *ChallengeServiceImpl {
	return &ChallengeServiceImpl{requests: requests, wallets: wallets, rules: rules, now: nowUTC}
}

func (s *ChallengeServiceImpl) Create(ctx context.Context, in CreateChallenge) (*model.BattleRequest, error) {
	if in.ChallengerID == uuid.Nil || in.ChallengedID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty challenger/challenged id", errs.ErrValidation)
	}
	if in.ChallengerID == in.ChallengedID {
		return nil, errs.ErrSameUser
	}
	if err := validateKind(in.Type, in.Genre); err != nil {
		return nil, err
	}
	if err := validateTrack(in.Track); err != nil {
		return nil, err
	}
	msg := strings.TrimSpace(in.Message)
	if len(msg) > maxMessageLen {
		return nil, fmt.Errorf("%w: message longer than %d bytes", errs.ErrValidation, maxMessageLen)
	}

	if _, err := s.wallets.Ensure(ctx, in.ChallengerID, s.rules.StartingCoins); err != nil {
		return nil, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	now := s.now()
	r := &model.BattleRequest{
		ID:           id,
		ChallengerID: in.ChallengerID,
		ChallengedID: in.ChallengedID,
		Status:       model.RequestPending,
		BattleType:   in.Type,
		Genre:        in.Genre,
		Track:        in.Track.ownedBy(in.ChallengerID),
		Message:      msg,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.rules.ChallengeTTL),
	}
	if err := s.requests.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Accept builds the battle terms server-side: both parties stake the default
// entry fee, the reward is capped at that pot and the duration is the default.
// The challenger's wallet exists since Create.
func (s *ChallengeServiceImpl) Accept(ctx context.Context, requestID, accepterID uuid.UUID, track Track) (*model.Battle, error) {
	if requestID == uuid.Nil || accepterID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty request/accepter id", errs.ErrValidation)
	}
	if err := validateTrack(track); err != nil {
		return nil, err
	}
	if _, err := s.wallets.Ensure(ctx, accepterID, s.rules.StartingCoins); err != nil {
		return nil, err
	}
	battleID, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	now := s.now()
	fee := s.rules.DefaultEntryFee
	terms := model.BattleTerms{
		BattleID: battleID,
		EntryFee: fee,
		Reward:   s.rules.rewardFor(fee),
		EndsAt:   now.Add(s.rules.BattleDuration),
	}
	return s.requests.Accept(ctx, requestID, track.ownedBy(accepterID), terms, now)
}

func (s *ChallengeServiceImpl) Decline(ctx context.Context, requestID, declinerID uuid.UUID) error {
	if requestID == uuid.Nil || declinerID == uuid.Nil {
		return fmt.Errorf("%w: empty request/decliner id", errs.ErrValidation)
	}
	return s.requests.Decline(ctx, requestID, declinerID, s.now())
}

// Get hides challenges from anyone but the two parties.
func (s *ChallengeServiceImpl) Get(ctx context.Context, requestID, userID uuid.UUID) (*model.BattleRequest, error) {
	if requestID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty request id", errs.ErrValidation)
	}
	r, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !r.Party(userID) {
		return nil, errs.ErrNotFound
	}
	return r, nil
}

func (s *ChallengeServiceImpl) ListPending(
	ctx context.Context, userID uuid.UUID, dir model.Direction, page model.Page,
) ([]model.BattleRequest, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	switch dir {
	case "":
		dir = model.DirectionIncoming
	case model.DirectionIncoming, model.DirectionOutgoing:
	default:
		return nil, fmt.Errorf("%w: direction must be incoming or outgoing", errs.ErrValidation)
	}
	return s.requests.ListPending(ctx, userID, dir, s.now(), page.Normalize())
}

func (s *ChallengeServiceImpl) SweepExpired(ctx context.Context) (int64, error) {
	return s.requests.SweepExpired(ctx, s.now())
}

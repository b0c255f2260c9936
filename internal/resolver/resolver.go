// Package resolver periodically settles battles whose deadline passed and
// expires stale challenges. Reads already resolve what they touch; the
// resolver covers battles nobody looks at.
package resolver

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/beatbattle/internal/service"
)

type Resolver struct {
	battles    service.BattleService
	challenges service.ChallengeService
	interval   time.Duration
	batch      int
	log        *zap.Logger
}

func New(battles service.BattleService, challenges service.ChallengeService, interval time.Duration, batch int, log *zap.Logger) *Resolver {
	if batch <= 0 {
		batch = 100
	}
	return &Resolver{
		battles:    battles,
		challenges: challenges,
		interval:   interval,
		batch:      batch,
		log:        log,
	}
}

// Run ticks until ctx is cancelled. It always returns nil so that a
// shutdown is not reported as a failure.
func (r *Resolver) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	r.log.Info("resolver started", zap.Duration("interval", r.interval), zap.Int("batch", r.batch))
	for {
		r.Tick(ctx)
		select {
		case <-ctx.Done():
			r.log.Info("resolver stopped")
			return nil
		case <-t.C:
		}
	}
}

// Tick runs a single pass. A full batch is followed immediately by another
// one so a backlog drains without waiting for the next tick.
func (r *Resolver) Tick(ctx context.Context) Result {
	var res Result
	for ctx.Err() == nil {
		n, err := r.battles.ResolveDue(ctx, r.batch)
		res.Battles += n
		if err != nil {
			res.Failed = true
			r.log.Error("resolve due battles", zap.Error(err), zap.Int("resolved", n))
			break
		}
		if n < r.batch {
			break
		}
	}

	expired, err := r.challenges.SweepExpired(ctx)
	res.Challenges = expired
	if err != nil {
		res.Failed = true
		r.log.Error("sweep expired challenges", zap.Error(err))
	}

	if res.Battles > 0 || res.Challenges > 0 {
		r.log.Info("resolver pass",
			zap.Int("battles", res.Battles),
			zap.Int64("challenges", res.Challenges),
		)
	}
	return res
}

// Result summarizes one pass.
type Result struct {
	Battles    int   `json:"battles"`
	Challenges int64 `json:"challenges"`
	Failed     bool  `json:"failed"`
}

// Package httpserver exposes the battle engine as a JSON API over chi.
package httpserver

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/and161185/beatbattle/internal/limiter"
	"github.com/and161185/beatbattle/internal/resolver"
	"github.com/and161185/beatbattle/internal/service"
)

// Pinger reports storage liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ticker runs one resolution pass.
type Ticker interface {
	Tick(ctx context.Context) resolver.Result
}

// Deps are the collaborators NewRouter wires into handlers.
type Deps struct {
	Battles    service.BattleService
	Votes      service.VoteService
	Challenges service.ChallengeService
	Ledger     service.LedgerService
	Resolver   Ticker
	DB         Pinger

	Verifier     TokenVerifier
	AdminKey     string
	AdminLimiter limiter.Limiter // optional

	Log *zap.Logger
}

func NewRouter(d Deps) *chi.Mux {
	h := &handlers{
		battles:    d.Battles,
		votes:      d.Votes,
		challenges: d.Challenges,
		ledger:     d.Ledger,
		resolver:   d.Resolver,
		db:         d.DB,
		log:        d.Log,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(AccessLog(d.Log))
	r.Use(Recover(d.Log))

	r.Get("/healthz", h.health)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(BearerAuth(d.Verifier, d.Log))

			r.Post("/battles", h.createBattle)
			r.Get("/battles", h.listBattles)
			r.Get("/battles/{id}", h.getBattle)
			r.Post("/battles/{id}/join", h.joinBattle)
			r.Post("/battles/{id}/votes", h.castVote)
			r.Get("/battles/{id}/votes/me", h.myVote)

			r.Post("/challenges", h.createChallenge)
			r.Get("/challenges/pending", h.pendingChallenges)
			r.Get("/challenges/{id}", h.getChallenge)
			r.Post("/challenges/{id}/accept", h.acceptChallenge)
			r.Post("/challenges/{id}/decline", h.declineChallenge)

			r.Get("/wallet", h.wallet)
			r.Get("/wallet/ledger", h.walletLedger)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminAuth(d.AdminKey, d.AdminLimiter, d.Log))
			r.Post("/wallets/{user_id}/credit", h.adminCredit)
			r.Post("/resolve", h.adminResolve)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method_not_allowed"})
	})
	return r
}

type handlers struct {
	battles    service.BattleService
	votes      service.VoteService
	challenges service.ChallengeService
	ledger     service.LedgerService
	resolver   Ticker
	db         Pinger
	log        *zap.Logger
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		h.log.Warn("health: db ping failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "db": "down"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "db": "up"})
}

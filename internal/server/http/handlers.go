package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/beatbattle/internal/auth"
	"github.com/and161185/beatbattle/internal/convert"
	"github.com/and161185/beatbattle/internal/errs"
	"github.com/and161185/beatbattle/internal/model"
)

type listResponse[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// caller returns the authenticated user; BearerAuth guarantees one.
func caller(r *http.Request) (uuid.UUID, error) {
	id, ok := auth.UserIDFromCtx(r.Context())
	if !ok {
		return uuid.Nil, errs.ErrUnauthorized
	}
	return id, nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	return convert.ParseID(chi.URLParam(r, name))
}

// --- battles ---

func (h *handlers) createBattle(w http.ResponseWriter, r *http.Request) {
	user, err := caller(r)
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	var body convert.CreateBattleRequest
	if err := decodeJSON(r, &body); err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	in, err := convert.FromCreateBattle(user, body)
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	b, err := h.battles.Create(r.Context(), in)
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, convert.ToBattle(b))
}

func (h *handlers) joinBattle(w http.ResponseWriter, r *http.Request) {
	user, err := caller(r)
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	var body convert.JoinBattleRequest
	if err := decodeJSON(r, &body); err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	b, err := h.battles.Join(r.Context(), convert.FromJoinBattle(id, user, body))
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToBattle(b))
}

func (h *handlers) getBattle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	b, err := h.battles.Get(r.Context(), id)
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToBattle(b))
}

func (h *handlers) listBattles(w http.ResponseWriter, r *http.Request) {
	page, err := ParsePagination(r)
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	q := r.URL.Query()
	f := model.BattleFilter{
		Status: model.BattleStatus(q.Get("status")),
		Type:   model.BattleType(q.Get("type")),
		Genre:  q.Get("genre"),
	}
	if v := q.Get("user_id"); v != "" {
		if f.UserID, err = convert.ParseID(v); err != nil {
			WriteHTTPError(w, r, h.log, err)
			return
		}
	}
	bs, err := h.battles.List(r.Context(), f, page)
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[*convert.Battle]{Items: convert.ToBattles(bs), Limit: page.Limit, Offset: page.Offset})
}

// --- votes ---

func (h *handlers) castVote(w http.ResponseWriter, r *http.Request) {
	user, err := caller(r)
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	var body convert.VoteRequest
	if err := decodeJSON(r, &body); err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	if err := h.votes.Cast(r.Context(), id, user, model.Side(body.Side)); err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true})
}

func (h *handlers) myVote(w http.ResponseWriter, r *http.Request) {
	user, err := caller(r)
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	v, err := h.votes.Mine(r.Context(), id, user)
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToVote(v))
}

// --- challenges ---

func (h *handlers) createChallenge(w http.ResponseWriter, r *http.Request) {
	user, err := caller(r)
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	var body convert.CreateChallengeRequest
	if err := decodeJSON(r, &body); err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	in, err := convert.FromCreateChallenge(user, body)
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	req, err := h.challenges.Create(r.Context(), in)
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, convert.ToChallenge(req))
}

func (h *handlers) acceptChallenge(w http.ResponseWriter, r *http.Request) {
	user, err := caller(r)
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	var body convert.AcceptChallengeRequest
	if err := decodeJSON(r, &body); err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	b, err := h.challenges.Accept(r.Context(), id, user, body.ServiceTrack())
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, convert.ToBattle(b))
}

func (h *handlers) declineChallenge(w http.ResponseWriter, r *http.Request) {
	user, err := caller(r)
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	if err := h.challenges.Decline(r.Context(), id, user); err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *handlers) getChallenge(w http.ResponseWriter, r *http.Request) {
	user, err := caller(r)
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	req, err := h.challenges.Get(r.Context(), id, user)
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToChallenge(req))
}

func (h *handlers) pendingChallenges(w http.ResponseWriter, r *http.Request) {
	user, err := caller(r)
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	page, err := ParsePagination(r)
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	dir := model.Direction(r.URL.Query().Get("direction"))
	rs, err := h.challenges.ListPending(r.Context(), user, dir, page)
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[*convert.Challenge]{Items: convert.ToChallenges(rs), Limit: page.Limit, Offset: page.Offset})
}

// --- wallet ---

func (h *handlers) wallet(w http.ResponseWriter, r *http.Request) {
	user, err := caller(r)
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	wl, err := h.ledger.Balance(r.Context(), user)
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToWallet(wl))
}

func (h *handlers) walletLedger(w http.ResponseWriter, r *http.Request) {
	user, err := caller(r)
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	page, err := ParsePagination(r)
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	es, err := h.ledger.History(r.Context(), user, page)
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[convert.LedgerEntry]{Items: convert.ToLedger(es), Limit: page.Limit, Offset: page.Offset})
}

// --- admin ---

func (h *handlers) adminCredit(w http.ResponseWriter, r *http.Request) {
	user, err := pathID(r, "user_id")
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	var body convert.CreditRequest
	if err := decodeJSON(r, &body); err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	coins, err := h.ledger.Credit(r.Context(), user, body.Amount)
	if err != nil {
		WriteHTTPError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.Balance{UserID: user.String(), Coins: coins})
}

func (h *handlers) adminResolve(w http.ResponseWriter, r *http.Request) {
	res := h.resolver.Tick(r.Context())
	status := http.StatusOK
	if res.Failed {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, res)
}

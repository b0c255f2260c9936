package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/and161185/beatbattle/internal/errs"
	"github.com/and161185/beatbattle/internal/model"
)

const maxBodyBytes = 64 << 10

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// statusFor maps an error onto its HTTP status and stable code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errs.ErrInsufficientFunds):
		return http.StatusPaymentRequired, "insufficient_funds"
	case errors.Is(err, errs.ErrAlreadyMatched):
		return http.StatusConflict, "already_matched"
	case errors.Is(err, errs.ErrAlreadyVoted):
		return http.StatusConflict, "already_voted"
	case errors.Is(err, errs.ErrNotOpenForVoting):
		return http.StatusConflict, "not_open_for_voting"
	case errors.Is(err, errs.ErrNotPending):
		return http.StatusConflict, "not_pending"
	case errors.Is(err, errs.ErrExpired):
		return http.StatusGone, "expired"
	case errors.Is(err, errs.ErrNotRecipient):
		return http.StatusForbidden, "not_recipient"
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, errs.ErrSameUser):
		return http.StatusUnprocessableEntity, "same_user"
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// WriteHTTPError writes the JSON error envelope. Domain outcomes are logged
// at Info; anything unmapped is logged at Error and its text is not exposed.
func WriteHTTPError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status, code := statusFor(err)
	body := errorBody{Error: code, Message: err.Error()}
	fields := []zap.Field{
		zap.String("path", r.URL.Path),
		zap.String("code", code),
		zap.Error(err),
	}
	if status == http.StatusInternalServerError {
		body.Message = ""
		log.Error("request failed", fields...)
	} else {
		log.Info("request rejected", fields...)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a single JSON object, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid json: %v", errs.ErrValidation, err)
	}
	return nil
}

// ParsePagination reads limit/offset. Malformed numbers are a validation
// error; range clamping is left to model.Page.Normalize.
func ParsePagination(r *http.Request) (model.Page, error) {
	var p model.Page
	q := r.URL.Query()
	for key, dst := range map[string]*int{"limit": &p.Limit, "offset": &p.Offset} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return model.Page{}, fmt.Errorf("%w: %s must be an integer", errs.ErrValidation, key)
		}
		*dst = n
	}
	return p.Normalize(), nil
}

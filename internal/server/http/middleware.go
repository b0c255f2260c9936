package httpserver

import (
	"crypto/subtle"
	"fmt"
	"math"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/beatbattle/internal/auth"
	"github.com/and161185/beatbattle/internal/errs"
	"github.com/and161185/beatbattle/internal/limiter"
)

// AccessLog logs one line per request: metadata only, never bodies.
func AccessLog(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.Info("http",
				zap.String("request_id", chimw.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("dur", time.Since(start)),
				zap.String("peer", r.RemoteAddr),
			)
		})
	}
}

// Recover turns a handler panic into a 500 internal_error response.
func Recover(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					if p == http.ErrAbortHandler {
						panic(p)
					}
					log.Error("panic",
						zap.Any("reason", p),
						zap.ByteString("stack", debug.Stack()),
						zap.String("path", r.URL.Path),
					)
					writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal_error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// TokenVerifier resolves a bearer token to the user it was issued for.
type TokenVerifier interface {
	Verify(token string) (uuid.UUID, error)
}

// BearerAuth requires a valid bearer token and stores the user id in the
// request context.
func BearerAuth(v TokenVerifier, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				WriteHTTPError(w, r, log, fmt.Errorf("%w: missing bearer token", errs.ErrUnauthorized))
				return
			}
			userID, err := v.Verify(token)
			if err != nil {
				WriteHTTPError(w, r, log, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	}
}

// AdminAuth checks the X-Admin-Key header. An empty configured key disables
// the admin surface. When lim is set, repeated bad keys from one client
// lock it out for a while.
func AdminAuth(adminKey string, lim limiter.Limiter, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey == "" {
				WriteHTTPError(w, r, log, fmt.Errorf("%w: admin api disabled", errs.ErrUnauthorized))
				return
			}
			ipHash := limiter.HashIP(clientIP(r))
			if lim != nil {
				ok, retry, err := lim.Allow(r.Context(), ipHash)
				if err != nil {
					WriteHTTPError(w, r, log, fmt.Errorf("admin limiter: %w", err))
					return
				}
				if !ok {
					tooManyAttempts(w, retry)
					return
				}
			}

			given := r.Header.Get("X-Admin-Key")
			if subtle.ConstantTimeCompare([]byte(given), []byte(adminKey)) != 1 {
				if lim != nil {
					if blocked, retry, err := lim.Failure(r.Context(), ipHash); err != nil {
						log.Error("admin limiter failure", zap.Error(err))
					} else if blocked {
						log.Warn("admin key lockout", zap.String("peer", clientIP(r)), zap.Duration("for", retry))
					}
				}
				WriteHTTPError(w, r, log, fmt.Errorf("%w: bad admin key", errs.ErrUnauthorized))
				return
			}
			if lim != nil {
				if err := lim.Success(r.Context(), ipHash); err != nil {
					log.Error("admin limiter reset", zap.Error(err))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tooManyAttempts(w http.ResponseWriter, retry time.Duration) {
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "too_many_attempts"})
}

// clientIP strips the port that RemoteAddr carries unless RealIP replaced it.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

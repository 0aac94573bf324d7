package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/model"
	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/usecase"
	"github.com/vasapolrittideah/task-manager-api/shared/response"
)

type contextKey string

const userContextKey contextKey = "user"

// userFromContext returns the user attached by requireSession.
func userFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	return user, ok
}

// requireSession resolves the session cookie to a user and rejects the request
// with 401 when it cannot.
func requireSession(
	authUsecase usecase.AuthUsecase,
	cookieName string,
	logger *zerolog.Logger,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil {
				response.Error(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			user, err := authUsecase.Authenticate(r.Context(), cookie.Value)
			if err != nil {
				if errors.Is(err, usecase.ErrUnauthorized) {
					logger.Debug().Err(err).Msg("rejected session")
					response.Error(w, http.StatusUnauthorized, "Unauthorized")
					return
				}

				logger.Error().Err(err).Msg("failed to authenticate session")
				response.Error(w, http.StatusInternalServerError, "Something went wrong")
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// accessLog logs one line per request once the response has been written.
func accessLog(logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			event := logger.Info()
			if status >= http.StatusInternalServerError {
				event = logger.Warn()
			}

			event.
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote", r.RemoteAddr).
				Int("status", status).
				Int("size", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}

// securityHeaders sets conservative security headers on every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")

		if r.TLS != nil {
			w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

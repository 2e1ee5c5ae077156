package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"clickearn/internal/models"
	"clickearn/internal/service"
	"clickearn/internal/util"
)

// SessionHeader carries the opaque session ID on authenticated calls
const SessionHeader = "X-Session-ID"

type contextKey string

const userContextKey contextKey = "current_user"

// RequireSession resolves the session header to a user and stashes it on
// the request context. Any resolution failure is a 401 with no hint as to
// which check failed beyond the detail text.
func RequireSession(authService *service.AuthService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authService.ResolveSession(r.Context(), r.Header.Get(SessionHeader))
			if err != nil {
				respondWithError(w, logger, err)
				return
			}
			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// currentUser pulls the resolved user off the request context. Only valid
// behind RequireSession.
func currentUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(userContextKey).(*models.User)
	return user
}

// clientMeta captures the request's client identity for the action log
func clientMeta(r *http.Request) service.ClientMeta {
	return service.ClientMeta{
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
}

// LoggerMiddleware creates a middleware that logs HTTP requests
func LoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.Info("HTTP request",
					util.String("method", r.Method),
					util.String("path", r.URL.Path),
					util.String("remote_addr", r.RemoteAddr),
					util.Int("status", ww.Status()),
					util.Duration("duration", time.Since(start)),
					util.String("user_agent", r.UserAgent()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

package api

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/vytor/quests/internal/auth"
	"github.com/vytor/quests/internal/errors"
	"github.com/vytor/quests/internal/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type contextKey string

const userIDContextKey contextKey = "user_id"

func userIDFromContext(ctx context.Context) (primitive.ObjectID, bool) {
	id, ok := ctx.Value(userIDContextKey).(primitive.ObjectID)
	return id, ok
}

// authMiddleware requires a valid bearer token and stores its user id in the context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			handleError(w, r, errors.NewUnauthorizedError("missing bearer token"))
			return
		}

		subject, err := s.Tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			if stderrors.Is(err, auth.ErrExpiredToken) {
				handleError(w, r, errors.NewUnauthorizedError("token expired"))
				return
			}
			log.Debug("rejected token: %v", err)
			handleError(w, r, errors.NewUnauthorizedError("invalid token"))
			return
		}

		userID, err := primitive.ObjectIDFromHex(subject)
		if err != nil {
			handleError(w, r, errors.NewUnauthorizedError("invalid token"))
			return
		}

		ctx := context.WithValue(r.Context(), userIDContextKey, userID)
		ctx = logger.NewContext(ctx, log.WithField("user_id", subject))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware attaches a request-scoped logger carrying the request id
// and logs one line per completed request at a level chosen by its status.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		fields := map[string]any{
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
		}
		if r.RemoteAddr != "" {
			fields["remote_addr"] = r.RemoteAddr
		}
		log := logger.Default().WithFields(fields)

		w.Header().Set("X-Request-ID", requestID)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		log.Debug("request started")
		next.ServeHTTP(ww, r.WithContext(logger.NewContext(r.Context(), log)))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		done := log.WithFields(map[string]any{
			"status":      status,
			"size":        ww.BytesWritten(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		switch {
		case status >= 500:
			done.Error("request completed with server error")
		case status >= 400:
			done.Warn("request completed with client error")
		default:
			done.Info("request completed")
		}
	})
}

// recoveryMiddleware recovers from panics and logs them.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				handleError(w, r, errors.NewInternalError(fmt.Errorf("panic: %v", rec)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// securityHeadersMiddleware adds security headers to responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

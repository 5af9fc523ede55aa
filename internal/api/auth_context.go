package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ippiapp/ippi-server/internal/auth"
	"github.com/ippiapp/ippi-server/internal/logger"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// userIDKey is the context key for the authenticated user ID.
const userIDKey ctxKey = "userID"

// GetUserID returns the authenticated user ID from context.
// Returns 401 error if user is not authenticated.
func GetUserID(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", huma.Error401Unauthorized("Authentication required")
	}
	return userID, nil
}

// setUserID stores the user ID in context and tags the request's log lines with it.
func setUserID(ctx context.Context, userID string) context.Context {
	ctx = logger.WithContextAttrs(ctx, slog.String("user_id", userID))
	return context.WithValue(ctx, userIDKey, userID)
}

// authMiddleware verifies a Bearer access token and, when it is valid, puts
// the user ID on the request context. Requests without a usable token pass
// through anonymously; GetUserID rejects them on protected operations.
func authMiddleware(tokens *auth.TokenService, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if tokens == nil || !ok {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.VerifyAccessToken(token)
			if err != nil {
				log.DebugContext(r.Context(), "access token rejected", "path", r.URL.Path, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(setUserID(r.Context(), claims.UserID)))
		})
	}
}

// bearerToken extracts the credentials of an "Authorization: Bearer" header.
// The scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

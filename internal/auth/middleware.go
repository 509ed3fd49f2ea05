package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-promo/internal/common"
)

var errNoToken = errors.New("auth: token missing")

// TokenParser resolves a bearer token into a user id.
type TokenParser interface {
	ParseAccessToken(token string) (int64, error)
}

// Middleware wires authentication context into HTTP handlers.
type Middleware struct {
	Tokens TokenParser
}

// RequireAuth enforces that a valid token is present before executing the next handler.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := m.authenticateRequest(r)
		if err != nil {
			common.WriteError(w, err, http.StatusUnauthorized, "missing or invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m Middleware) authenticateRequest(r *http.Request) (context.Context, error) {
	if m.Tokens == nil {
		return r.Context(), errors.New("auth: token parser not configured")
	}
	token := bearerToken(r)
	if token == "" {
		return r.Context(), errNoToken
	}
	userID, err := m.Tokens.ParseAccessToken(token)
	if err != nil {
		return r.Context(), err
	}
	// tag the request-scoped logger so the access log carries the caller
	zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Int64("user_id", userID)
	})
	return common.WithUserID(r.Context(), userID), nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

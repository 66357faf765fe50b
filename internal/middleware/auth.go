package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/hongminglow/paygate/internal/auth"
	"github.com/hongminglow/paygate/internal/http/respond"
	"github.com/hongminglow/paygate/internal/models"
	"github.com/hongminglow/paygate/internal/storage"
)

type contextKey string

const userContextKey contextKey = "user"

// WithUser stores the authenticated user on ctx.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the user stored by RequireAuth.
func UserFromContext(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(userContextKey).(models.User)
	return u, ok
}

// Guard authenticates requests with an access token from the Authorization
// header or the token cookie.
type Guard struct {
	tokens *auth.TokenManager
	users  storage.UserStore
	log    *zap.Logger
}

func NewGuard(tokens *auth.TokenManager, users storage.UserStore, log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{tokens: tokens, users: users, log: log}
}

// RequireAuth rejects requests without a valid access token for an existing
// user.
func (g *Guard) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			respond.Error(w, http.StatusUnauthorized, "Not authorized to access this route")
			return
		}
		claims, err := g.tokens.ParseAccess(raw)
		if err != nil {
			rejectToken(w, "Not authorized to access this route")
			return
		}
		user, err := g.users.FindByID(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				rejectToken(w, "User not found")
				return
			}
			g.log.Error("load authenticated user", zap.Int64("user_id", claims.UserID), zap.Error(err))
			respond.Error(w, http.StatusInternalServerError, "Server error")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// Require chains RequireAuth with a capability check.
func (g *Guard) Require(c models.Capability, next http.HandlerFunc) http.Handler {
	return g.RequireAuth(Authorize(c, next))
}

// Authorize allows the request through only when the user's role grants c.
// It must run after RequireAuth.
func Authorize(c models.Capability, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			respond.Error(w, http.StatusUnauthorized, "Not authorized to access this route")
			return
		}
		if !user.Role.Can(c) {
			respond.Error(w, http.StatusForbidden, "User role "+string(user.Role)+" is not authorized to access this route")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func rejectToken(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", auth.InvalidTokenChallenge)
	respond.Error(w, http.StatusUnauthorized, msg)
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(auth.AccessCookie); err == nil {
		return c.Value
	}
	return ""
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hongminglow/paygate/internal/metrics"
	"github.com/hongminglow/paygate/internal/models"
	"github.com/hongminglow/paygate/internal/storage"
)

// ErrInvalidCredentials is returned for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Issued is a freshly minted token pair.
type Issued struct {
	User             models.User
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Sessions authenticates users and rotates refresh tokens. A refresh token is
// redeemable only while its jti is held by the RefreshStore, and redeeming it
// removes the jti, so each token works exactly once.
type Sessions struct {
	users   storage.UserStore
	refresh storage.RefreshStore
	tokens  *TokenManager
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewSessions(users storage.UserStore, refresh storage.RefreshStore, tokens *TokenManager, m *metrics.Metrics, log *zap.Logger) *Sessions {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sessions{users: users, refresh: refresh, tokens: tokens, metrics: m, log: log}
}

// Login checks the password and issues a token pair.
func (s *Sessions) Login(ctx context.Context, email, password string) (Issued, error) {
	issued, err := s.login(ctx, strings.TrimSpace(email), password)
	s.metrics.ObserveLogin(err)
	return issued, err
}

func (s *Sessions) login(ctx context.Context, email, password string) (Issued, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Issued{}, ErrInvalidCredentials
		}
		return Issued{}, fmt.Errorf("find user: %w", err)
	}
	if !CompareSecret(user.PasswordHash, password) {
		return Issued{}, ErrInvalidCredentials
	}
	return s.Issue(ctx, user)
}

// Issue mints a token pair for an already authenticated user and records the
// refresh jti.
func (s *Sessions) Issue(ctx context.Context, user models.User) (Issued, error) {
	access, accessClaims, err := s.tokens.IssueAccess(user)
	if err != nil {
		return Issued{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, refreshClaims, err := s.tokens.IssueRefresh(user)
	if err != nil {
		return Issued{}, fmt.Errorf("sign refresh token: %w", err)
	}
	if err := s.refresh.SaveRefresh(ctx, refreshClaims.JTI, user.ID, refreshClaims.ExpiresAt); err != nil {
		return Issued{}, fmt.Errorf("save refresh session: %w", err)
	}
	return Issued{
		User:             user,
		AccessToken:      access,
		AccessExpiresAt:  accessClaims.ExpiresAt,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshClaims.ExpiresAt,
	}, nil
}

// Refresh redeems a refresh token and returns a new pair. Replaying a token
// that was already redeemed fails with ErrInvalidToken.
func (s *Sessions) Refresh(ctx context.Context, refreshToken string) (Issued, error) {
	issued, err := s.rotate(ctx, refreshToken)
	s.metrics.ObserveRefresh(err)
	return issued, err
}

func (s *Sessions) rotate(ctx context.Context, refreshToken string) (Issued, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return Issued{}, ErrInvalidToken
	}
	owner, err := s.refresh.ConsumeRefresh(ctx, claims.JTI)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.log.Warn("refresh token replayed or revoked", zap.Int64("user_id", claims.UserID), zap.String("jti", claims.JTI))
			return Issued{}, ErrInvalidToken
		}
		return Issued{}, fmt.Errorf("consume refresh session: %w", err)
	}
	if owner != claims.UserID {
		return Issued{}, ErrInvalidToken
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Issued{}, ErrInvalidToken
		}
		return Issued{}, fmt.Errorf("find user: %w", err)
	}
	return s.Issue(ctx, user)
}

// Logout revokes the refresh token when one is presented. Unparseable tokens
// are ignored since there is nothing left to revoke.
func (s *Sessions) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil
	}
	if err := s.refresh.RevokeRefresh(ctx, claims.JTI); err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

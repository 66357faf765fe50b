package auth

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/paygate/internal/models"
	"github.com/hongminglow/paygate/internal/storage/memory"
)

func newSessions(t *testing.T) (*Sessions, models.User) {
	t.Helper()
	store := memory.New()
	hash, err := HashSecret("password123")
	require.NoError(t, err)
	user, err := store.CreateUser(context.Background(), models.User{
		Name:         "Asha",
		Email:        "asha@example.com",
		PasswordHash: hash,
		Balance:      decimal.Zero,
	})
	require.NoError(t, err)
	tm := NewTokenManager("secret", "paygate-test", 30*time.Minute, 7*24*time.Hour)
	return NewSessions(store, store, tm, nil, nil), user
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	sessions, _ := newSessions(t)
	ctx := context.Background()

	_, err := sessions.Login(ctx, "asha@example.com", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = sessions.Login(ctx, "nobody@example.com", "password123")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	issued, err := sessions.Login(ctx, "asha@example.com", "password123")
	require.NoError(t, err)
	require.NotEmpty(t, issued.AccessToken)
	require.NotEmpty(t, issued.RefreshToken)
}

func TestRefreshTokenIsSingleUse(t *testing.T) {
	sessions, user := newSessions(t)
	ctx := context.Background()

	first, err := sessions.Login(ctx, "asha@example.com", "password123")
	require.NoError(t, err)

	second, err := sessions.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, second.User.ID)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = sessions.Refresh(ctx, first.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = sessions.Refresh(ctx, second.RefreshToken)
	require.NoError(t, err)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	sessions, _ := newSessions(t)
	ctx := context.Background()

	issued, err := sessions.Login(ctx, "asha@example.com", "password123")
	require.NoError(t, err)
	require.NoError(t, sessions.Logout(ctx, issued.RefreshToken))

	_, err = sessions.Refresh(ctx, issued.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, sessions.Logout(ctx, "garbage"))
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	sessions, _ := newSessions(t)
	issued, err := sessions.Login(context.Background(), "asha@example.com", "password123")
	require.NoError(t, err)

	_, err = sessions.Refresh(context.Background(), issued.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

// Package otp issues and redeems six-digit step-up codes delivered by email.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hongminglow/paygate/internal/clock"
	"github.com/hongminglow/paygate/internal/metrics"
	"github.com/hongminglow/paygate/internal/notify"
	"github.com/hongminglow/paygate/internal/storage"
)

var (
	// ErrEmailNotVerified is also returned for unknown emails so the unauthenticated
	// send endpoint does not reveal which accounts exist.
	ErrEmailNotVerified = errors.New("email not verified")
	ErrInvalidCode      = errors.New("invalid or expired OTP")
)

// DefaultTTL is how long an issued code stays redeemable.
const DefaultTTL = 5 * time.Minute

type Authenticator struct {
	users   storage.UserStore
	mailer  notify.Mailer
	clock   clock.Clock
	ttl     time.Duration
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewAuthenticator(users storage.UserStore, mailer notify.Mailer, clk clock.Clock, ttl time.Duration, m *metrics.Metrics, log *zap.Logger) *Authenticator {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Authenticator{users: users, mailer: mailer, clock: clk, ttl: ttl, metrics: m, log: log}
}

// Issue stores a fresh code on the user and emails it. A new code replaces any
// outstanding one.
func (a *Authenticator) Issue(ctx context.Context, email string) error {
	err := a.issue(ctx, strings.TrimSpace(email))
	a.metrics.ObserveOTP("issue", err)
	return err
}

func (a *Authenticator) issue(ctx context.Context, email string) error {
	user, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			a.log.Debug("otp requested for unknown email")
			return ErrEmailNotVerified
		}
		return fmt.Errorf("find user: %w", err)
	}
	if !user.IsEmailVerified {
		return ErrEmailNotVerified
	}
	code, err := generateCode()
	if err != nil {
		return err
	}
	expiresAt := a.clock.Now().Add(a.ttl)
	if err := a.users.SetOTP(ctx, user.ID, code, expiresAt); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	msg := notify.Message{
		To:      user.Email,
		Subject: "Your OTP for PayGateway",
		Body: fmt.Sprintf("Hello %s,\n\nYour one-time password is %s. It expires in %d minutes.\n",
			user.Name, code, int(a.ttl/time.Minute)),
	}
	if err := a.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("deliver otp: %w", err)
	}
	a.log.Info("otp issued", zap.Int64("user_id", user.ID), zap.Time("expires_at", expiresAt))
	return nil
}

// Verify redeems code for email. It succeeds at most once per issued code.
func (a *Authenticator) Verify(ctx context.Context, email, code string) error {
	err := a.users.ConsumeOTP(ctx, strings.TrimSpace(email), strings.TrimSpace(code), a.clock.Now())
	if errors.Is(err, storage.ErrNotFound) {
		err = ErrInvalidCode
	} else if err != nil {
		err = fmt.Errorf("consume otp: %w", err)
	}
	a.metrics.ObserveOTP("verify", err)
	return err
}

// generateCode draws uniformly from 100000-999999.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Package upi manages a user's payment handle and PIN and executes
// handle-addressed payments through the ledger.
package upi

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hongminglow/paygate/internal/auth"
	"github.com/hongminglow/paygate/internal/ledger"
	"github.com/hongminglow/paygate/internal/models"
	"github.com/hongminglow/paygate/internal/storage"
)

var (
	ErrPINFormat        = errors.New("UPI PIN must be 4 digits")
	ErrHandleFormat     = errors.New("invalid UPI ID format")
	ErrHandleTaken      = errors.New("UPI ID already taken")
	ErrNotSetUp         = errors.New("UPI not set up")
	ErrInvalidPIN       = errors.New("invalid PIN")
	ErrReceiverNotFound = errors.New("receiver UPI ID not found")
	ErrUserNotFound     = errors.New("user not found")
)

const handleDomain = "paygateway"

var (
	pinPattern    = regexp.MustCompile(`^\d{4}$`)
	handlePattern = regexp.MustCompile(`^[a-zA-Z0-9.\-_]{2,49}@[a-zA-Z]{2,}$`)
)

// Details is the public view of a user's UPI identity.
type Details struct {
	UPIID       string `json:"upiId"`
	HasSetupUPI bool   `json:"hasSetupUpi"`
}

type Service struct {
	users  storage.UserStore
	engine *ledger.Engine
	log    *zap.Logger
}

func NewService(users storage.UserStore, engine *ledger.Engine, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{users: users, engine: engine, log: log}
}

// Setup assigns a handle and PIN. Without customHandle a handle is derived from
// the email local part.
func (s *Service) Setup(ctx context.Context, userID int64, customHandle, pin string) (Details, error) {
	if !pinPattern.MatchString(pin) {
		return Details{}, ErrPINFormat
	}
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return Details{}, err
	}

	handle := strings.TrimSpace(customHandle)
	if handle != "" {
		if !handlePattern.MatchString(handle) {
			return Details{}, ErrHandleFormat
		}
	} else if handle, err = generateHandle(user.Email); err != nil {
		return Details{}, err
	}

	hash, err := auth.HashSecret(pin)
	if err != nil {
		return Details{}, fmt.Errorf("hash pin: %w", err)
	}
	updated, err := s.users.SetUPI(ctx, userID, handle, hash)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return Details{}, ErrHandleTaken
		}
		return Details{}, fmt.Errorf("save upi: %w", err)
	}
	s.log.Info("upi set up", zap.Int64("user_id", userID), zap.String("upi_id", updated.UPIID))
	return Details{UPIID: updated.UPIID, HasSetupUPI: updated.HasSetupUPI}, nil
}

func (s *Service) Details(ctx context.Context, userID int64) (Details, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return Details{}, err
	}
	return Details{UPIID: user.UPIID, HasSetupUPI: user.HasSetupUPI}, nil
}

// VerifyPIN checks pin against the stored hash.
func (s *Service) VerifyPIN(ctx context.Context, userID int64, pin string) error {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	return checkPIN(user, pin)
}

func (s *Service) UpdatePIN(ctx context.Context, userID int64, currentPIN, newPIN string) error {
	if !pinPattern.MatchString(newPIN) {
		return ErrPINFormat
	}
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := checkPIN(user, currentPIN); err != nil {
		return err
	}
	hash, err := auth.HashSecret(newPIN)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}
	if err := s.users.UpdateUPIPIN(ctx, userID, hash); err != nil {
		return fmt.Errorf("update pin: %w", err)
	}
	return nil
}

// Payment is a completed UPI payment together with its counterparty.
type Payment struct {
	Transaction models.Transaction
	Receiver    models.User
}

// Pay authorizes with the PIN and moves amount to the owner of receiverHandle.
// No ledger call is made unless the PIN matches.
func (s *Service) Pay(ctx context.Context, senderID int64, receiverHandle string, amount decimal.Decimal, pin, description string) (Payment, error) {
	sender, err := s.findUser(ctx, senderID)
	if err != nil {
		return Payment{}, err
	}
	if err := checkPIN(sender, pin); err != nil {
		return Payment{}, err
	}
	receiver, err := s.users.FindByUPIID(ctx, strings.TrimSpace(receiverHandle))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Payment{}, ErrReceiverNotFound
		}
		return Payment{}, fmt.Errorf("find receiver: %w", err)
	}
	if strings.TrimSpace(description) == "" {
		description = "UPI Payment"
	}
	tx, err := s.engine.Move(ctx, ledger.Intent{
		Type:        models.TxPayment,
		SenderID:    sender.ID,
		ReceiverID:  receiver.ID,
		Amount:      amount,
		Description: description,
		Metadata: map[string]any{
			"method":        "UPI",
			"senderUpiId":   sender.UPIID,
			"receiverUpiId": receiver.UPIID,
		},
	})
	if err != nil {
		return Payment{}, err
	}
	return Payment{Transaction: tx, Receiver: receiver}, nil
}

func (s *Service) findUser(ctx context.Context, id int64) (models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func checkPIN(user models.User, pin string) error {
	if !user.HasSetupUPI || user.UPIPINHash == "" {
		return ErrNotSetUp
	}
	if !auth.CompareSecret(user.UPIPINHash, pin) {
		return ErrInvalidPIN
	}
	return nil
}

func generateHandle(email string) (string, error) {
	local, _, _ := strings.Cut(email, "@")
	local = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return -1
	}, local)
	if len(local) > 46 {
		local = local[:46]
	}
	for len(local) < 2 {
		local += "x"
	}
	n, err := rand.Int(rand.Reader, big.NewInt(1000))
	if err != nil {
		return "", fmt.Errorf("generate upi id: %w", err)
	}
	return fmt.Sprintf("%s%03d@%s", local, n.Int64(), handleDomain), nil
}

// Package memory is a process-local Store used by tests and STORE_DRIVER=memory.
// One mutex serializes every mutation, which makes each ledger movement atomic.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hongminglow/paygate/internal/models"
	"github.com/hongminglow/paygate/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type refreshEntry struct {
	userID    int64
	expiresAt time.Time
}

type Store struct {
	mu           sync.Mutex
	nextUserID   int64
	users        map[int64]*models.User
	transactions []models.Transaction
	orders       map[string]*models.Order
	orderSeq     []string
	payments     []models.Payment
	refresh      map[string]refreshEntry
	now          func() time.Time
}

func New() *Store {
	return NewWithClock(func() time.Time { return time.Now().UTC() })
}

// NewWithClock lets tests pin the timestamps the store stamps on records.
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		users:   make(map[int64]*models.User),
		orders:  make(map[string]*models.Order),
		refresh: make(map[string]refreshEntry),
		now:     now,
	}
}

func (s *Store) Close() {}

func (s *Store) CreateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return models.User{}, storage.ErrAlreadyExists
		}
		if user.UPIID != "" && u.UPIID == user.UPIID {
			return models.User{}, storage.ErrAlreadyExists
		}
	}
	s.nextUserID++
	user.ID = s.nextUserID
	now := s.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	stored := user
	s.users[user.ID] = &stored
	return stored, nil
}

func (s *Store) FindByID(_ context.Context, id int64) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return *u, nil
}

func (s *Store) findLocked(match func(*models.User) bool) (models.User, error) {
	for _, u := range s.users {
		if match(u) {
			return *u, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (s *Store) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(func(u *models.User) bool { return u.Email == email })
}

func (s *Store) FindByUPIID(_ context.Context, upiID string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if upiID == "" {
		return models.User{}, storage.ErrNotFound
	}
	return s.findLocked(func(u *models.User) bool { return u.UPIID == upiID })
}

func (s *Store) FindByVerificationToken(_ context.Context, token string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token == "" {
		return models.User{}, storage.ErrNotFound
	}
	return s.findLocked(func(u *models.User) bool { return u.VerificationToken == token })
}

func (s *Store) MarkEmailVerified(_ context.Context, id int64) error {
	return s.mutateUser(id, func(u *models.User) error {
		u.IsEmailVerified = true
		u.VerificationToken = ""
		return nil
	})
}

func (s *Store) UpdateProfile(_ context.Context, id int64, update models.AdminUserUpdate) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	if update.Email != nil && *update.Email != u.Email {
		for _, other := range s.users {
			if other.ID != id && other.Email == *update.Email {
				return models.User{}, storage.ErrAlreadyExists
			}
		}
		u.Email = *update.Email
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.Phone != nil {
		u.Phone = *update.Phone
	}
	if update.Address != nil {
		u.Address = *update.Address
	}
	if update.Role != nil {
		u.Role = *update.Role
	}
	if update.IsEmailVerified != nil {
		u.IsEmailVerified = *update.IsEmailVerified
	}
	u.UpdatedAt = s.now()
	return *u, nil
}

func (s *Store) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	return s.mutateUser(id, func(u *models.User) error {
		u.PasswordHash = passwordHash
		return nil
	})
}

func (s *Store) SetUPI(_ context.Context, id int64, upiID, pinHash string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	for _, other := range s.users {
		if other.ID != id && other.UPIID == upiID {
			return models.User{}, storage.ErrAlreadyExists
		}
	}
	u.UPIID = upiID
	u.UPIPINHash = pinHash
	u.HasSetupUPI = true
	u.UpdatedAt = s.now()
	return *u, nil
}

func (s *Store) UpdateUPIPIN(_ context.Context, id int64, pinHash string) error {
	return s.mutateUser(id, func(u *models.User) error {
		u.UPIPINHash = pinHash
		return nil
	})
}

func (s *Store) SetOTP(_ context.Context, id int64, code string, expiresAt time.Time) error {
	return s.mutateUser(id, func(u *models.User) error {
		u.OTP = code
		exp := expiresAt
		u.OTPExpiresAt = &exp
		return nil
	})
}

func (s *Store) ConsumeOTP(_ context.Context, email, code string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email != email {
			continue
		}
		if u.OTP == "" || u.OTP != code || u.OTPExpiresAt == nil || now.After(*u.OTPExpiresAt) {
			return storage.ErrNotFound
		}
		u.OTP = ""
		u.OTPExpiresAt = nil
		return nil
	}
	return storage.ErrNotFound
}

func (s *Store) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return storage.ErrNotFound
	}
	for _, tx := range s.transactions {
		if tx.SenderID == id || tx.ReceiverID == id {
			return storage.ErrConflict
		}
	}
	delete(s.users, id)
	return nil
}

func (s *Store) mutateUser(id int64, fn func(*models.User) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	if err := fn(u); err != nil {
		return err
	}
	u.UpdatedAt = s.now()
	return nil
}

package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Profile is the cached view of the logged-in account.
type Profile struct {
	ID              int64  `yaml:"id" json:"id"`
	Name            string `yaml:"name" json:"name"`
	Email           string `yaml:"email" json:"email"`
	Role            string `yaml:"role" json:"role"`
	UPIID           string `yaml:"upiId,omitempty" json:"upiId,omitempty"`
	HasSetupUPI     bool   `yaml:"hasSetupUpi" json:"hasSetupUpi"`
	IsEmailVerified bool   `yaml:"isEmailVerified" json:"isEmailVerified"`
}

// State is what survives between CLI invocations. SessionExpiry is epoch
// milliseconds, zero when no session deadline is set.
type State struct {
	User          *Profile `yaml:"user,omitempty"`
	AccessToken   string   `yaml:"accessToken,omitempty"`
	RefreshToken  string   `yaml:"refreshToken,omitempty"`
	SessionExpiry int64    `yaml:"sessionExpiry,omitempty"`
}

// LoggedIn reports whether the state carries any credential.
func (s State) LoggedIn() bool {
	return s.AccessToken != "" || s.RefreshToken != ""
}

// Deadline returns SessionExpiry as a time, zero when unset.
func (s State) Deadline() time.Time {
	if s.SessionExpiry == 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.SessionExpiry)
}

type StateStore interface {
	Load() (State, error)
	Save(State) error
	Clear() error
}

// FileStateStore keeps State in a YAML file readable only by the owner. It
// also persists the session deadline for the lifecycle manager.
type FileStateStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStateStore(path string) *FileStateStore {
	return &FileStateStore{path: path}
}

// DefaultStatePath is session.yaml under the user config directory.
func DefaultStatePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "paygate", "session.yaml"), nil
}

func (f *FileStateStore) Path() string { return f.path }

func (f *FileStateStore) Load() (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadLocked()
}

func (f *FileStateStore) loadLocked() (State, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read state: %w", err)
	}
	var st State
	if err := yaml.Unmarshal(raw, &st); err != nil {
		return State{}, fmt.Errorf("parse state %s: %w", f.path, err)
	}
	return st, nil
}

func (f *FileStateStore) Save(st State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveLocked(st)
}

func (f *FileStateStore) saveLocked(st State) error {
	raw, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(f.path, raw, 0o600); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

func (f *FileStateStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove state: %w", err)
	}
	return nil
}

func (f *FileStateStore) SaveDeadline(deadline time.Time) error {
	return f.update(func(st *State) { st.SessionExpiry = deadline.UnixMilli() })
}

func (f *FileStateStore) ClearDeadline() error {
	return f.update(func(st *State) { st.SessionExpiry = 0 })
}

func (f *FileStateStore) update(fn func(*State)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, err := f.loadLocked()
	if err != nil {
		return err
	}
	fn(&st)
	return f.saveLocked(st)
}

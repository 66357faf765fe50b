// Package session tracks the client-side lifetime of a login: it refreshes
// tokens ahead of expiry, warns before the deadline and logs out at it.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hongminglow/paygate/internal/clock"
)

type State int

const (
	Idle State = iota
	Active
	Warning
	Expired
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Warning:
		return "warning"
	case Expired:
		return "expired"
	}
	return "idle"
}

const (
	DefaultTimeout          = 30 * time.Minute
	DefaultRefreshInterval  = 25 * time.Minute
	DefaultWarningThreshold = 2 * time.Minute
	DefaultTick             = time.Second
)

type Config struct {
	Timeout          time.Duration
	RefreshInterval  time.Duration
	WarningThreshold time.Duration
	Tick             time.Duration
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RefreshInterval <= 0 || c.RefreshInterval > c.Timeout {
		c.RefreshInterval = DefaultRefreshInterval
	}
	if c.WarningThreshold <= 0 {
		c.WarningThreshold = DefaultWarningThreshold
	}
	if c.Tick <= 0 {
		c.Tick = DefaultTick
	}
	return c
}

// DeadlineStore persists the session deadline across process restarts.
type DeadlineStore interface {
	SaveDeadline(deadline time.Time) error
	ClearDeadline() error
}

// Hooks are invoked without the manager's lock held. Any of them may be nil.
type Hooks struct {
	// Refresh renews the server-side tokens. A nil error extends the deadline.
	Refresh func(ctx context.Context) error
	// Logout runs once when the deadline passes.
	Logout func()
	// StateChanged reports every transition.
	StateChanged func(State)
	// Countdown reports the remaining time once per tick while warning.
	Countdown func(remaining time.Duration)
}

// Manager is safe for concurrent use. Every Start, Touch, successful refresh
// and Stop begins a new generation; timers armed by an older generation are
// stopped and ignored if they still fire.
type Manager struct {
	cfg   Config
	clock clock.Clock
	store DeadlineStore
	hooks Hooks
	log   *zap.Logger

	mu       sync.Mutex
	gen      uint64
	state    State
	deadline time.Time
	timers   []clock.Timer
}

func NewManager(cfg Config, clk clock.Clock, store DeadlineStore, hooks Hooks, log *zap.Logger) *Manager {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{cfg: cfg.withDefaults(), clock: clk, store: store, hooks: hooks, log: log}
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Deadline returns the current deadline, zero when idle.
func (m *Manager) Deadline() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deadline
}

// Remaining returns the time left before expiry.
func (m *Manager) Remaining() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deadline.IsZero() {
		return 0
	}
	if r := m.deadline.Sub(m.clock.Now()); r > 0 {
		return r
	}
	return 0
}

// Start begins a session. A zero deadline means a full timeout from now; a
// restored deadline already in the past expires the session immediately.
func (m *Manager) Start(deadline time.Time) {
	m.mu.Lock()
	if deadline.IsZero() {
		deadline = m.clock.Now().Add(m.cfg.Timeout)
	}
	notify := m.armLocked(deadline)
	m.mu.Unlock()
	notify()
}

// Touch records user activity and pushes the deadline a full timeout out.
// It is a no-op unless a session is running.
func (m *Manager) Touch() {
	m.mu.Lock()
	if m.state != Active && m.state != Warning {
		m.mu.Unlock()
		return
	}
	notify := m.armLocked(m.clock.Now().Add(m.cfg.Timeout))
	m.mu.Unlock()
	notify()
}

// Stop ends the session and forgets the persisted deadline. Safe to call
// repeatedly and after expiry.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.gen++
	m.stopTimersLocked()
	m.deadline = time.Time{}
	changed := m.setStateLocked(Idle)
	m.clearDeadlineLocked()
	m.mu.Unlock()
	changed()
}

// armLocked starts a new generation with the given deadline and schedules its
// timers. The returned func delivers hooks and must run after unlocking.
func (m *Manager) armLocked(deadline time.Time) func() {
	m.gen++
	gen := m.gen
	m.stopTimersLocked()
	m.deadline = deadline
	if m.store != nil {
		if err := m.store.SaveDeadline(deadline); err != nil {
			m.log.Warn("persist session deadline", zap.Error(err))
		}
	}

	remaining := deadline.Sub(m.clock.Now())
	if remaining <= 0 {
		return m.expireLocked()
	}

	refreshIn := remaining - (m.cfg.Timeout - m.cfg.RefreshInterval)
	if refreshIn < 0 {
		refreshIn = 0
	}
	m.timers = append(m.timers,
		m.clock.AfterFunc(refreshIn, func() { m.refresh(gen) }),
		m.clock.AfterFunc(remaining, func() { m.expire(gen) }),
	)

	if remaining <= m.cfg.WarningThreshold {
		return m.warnLocked(gen)
	}
	m.timers = append(m.timers, m.clock.AfterFunc(remaining-m.cfg.WarningThreshold, func() { m.warn(gen) }))
	return m.setStateLocked(Active)
}

func (m *Manager) refresh(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.hooks.Refresh == nil {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	if err := m.hooks.Refresh(context.Background()); err != nil {
		m.log.Warn("session refresh failed, expiry unchanged", zap.Error(err))
		return
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	notify := m.armLocked(m.clock.Now().Add(m.cfg.Timeout))
	m.mu.Unlock()
	notify()
}

func (m *Manager) warn(gen uint64) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	notify := m.warnLocked(gen)
	m.mu.Unlock()
	notify()
}

func (m *Manager) warnLocked(gen uint64) func() {
	changed := m.setStateLocked(Warning)
	remaining := m.deadline.Sub(m.clock.Now())
	m.scheduleTickLocked(gen)
	countdown := m.hooks.Countdown
	return func() {
		changed()
		if countdown != nil {
			countdown(remaining)
		}
	}
}

func (m *Manager) scheduleTickLocked(gen uint64) {
	m.timers = append(m.timers, m.clock.AfterFunc(m.cfg.Tick, func() { m.tick(gen) }))
}

func (m *Manager) tick(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.state != Warning {
		m.mu.Unlock()
		return
	}
	remaining := m.deadline.Sub(m.clock.Now())
	if remaining > 0 {
		m.scheduleTickLocked(gen)
	}
	countdown := m.hooks.Countdown
	m.mu.Unlock()
	if countdown != nil && remaining > 0 {
		countdown(remaining)
	}
}

func (m *Manager) expire(gen uint64) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	notify := m.expireLocked()
	m.mu.Unlock()
	notify()
}

func (m *Manager) expireLocked() func() {
	m.gen++
	m.stopTimersLocked()
	m.clearDeadlineLocked()
	changed := m.setStateLocked(Expired)
	logout := m.hooks.Logout
	return func() {
		changed()
		if logout != nil {
			logout()
		}
	}
}

func (m *Manager) setStateLocked(s State) func() {
	if m.state == s {
		return func() {}
	}
	m.state = s
	hook := m.hooks.StateChanged
	return func() {
		if hook != nil {
			hook(s)
		}
	}
}

func (m *Manager) stopTimersLocked() {
	for _, t := range m.timers {
		t.Stop()
	}
	m.timers = m.timers[:0]
}

func (m *Manager) clearDeadlineLocked() {
	if m.store == nil {
		return
	}
	if err := m.store.ClearDeadline(); err != nil {
		m.log.Warn("clear session deadline", zap.Error(err))
	}
}

// Package session owns the lifecycle of the automation session: start with
// retries, end, loss detection, and the worker pool remote calls run on.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/rs/zerolog"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/core"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/events"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/logger"
)

// State is the manager's session state.
type State int

const (
	StateAbsent State = iota
	StateStarting
	StateActive
	StateEnding
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateEnding:
		return "ending"
	default:
		return "unknown"
	}
}

// Default start retry budget.
const (
	DefaultStartAttempts = 3
	DefaultStartBackoff  = 2 * time.Second
)

// Options configures a Manager.
type Options struct {
	StartAttempts int              // Total session-create attempts (default 3)
	StartBackoff  time.Duration    // Fixed wait between attempts (default 2s)
	Pool          *Pool            // Worker pool for remote calls (default 4 workers)
	Events        events.Publisher // Live event stream, may be nil
}

// Info is a read-only snapshot of the active session.
type Info struct {
	SessionID    string       `json:"sessionId"`
	Capabilities Capabilities `json:"capabilities"` // negotiated
	Requested    Capabilities `json:"requested"`
	StartedAt    time.Time    `json:"startedAt"`
	State        string       `json:"state"`
}

// EndResult reports what End did.
type EndResult struct {
	Ended   bool   `json:"success"`
	Message string `json:"message"`
}

// Manager holds at most one active session at a time.
type Manager struct {
	remote core.Remote
	opts   Options
	log    zerolog.Logger

	mu      sync.Mutex
	state   State
	current *Session
}

// NewManager creates a manager for the given remote.
func NewManager(remote core.Remote, opts Options) *Manager {
	if opts.StartAttempts <= 0 {
		opts.StartAttempts = DefaultStartAttempts
	}
	if opts.StartBackoff < 0 {
		opts.StartBackoff = 0
	} else if opts.StartBackoff == 0 {
		opts.StartBackoff = DefaultStartBackoff
	}
	if opts.Pool == nil {
		opts.Pool = NewPool(4)
	}
	return &Manager{
		remote: remote,
		opts:   opts,
		log:    logger.With("session"),
	}
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start opens a session, retrying failed attempts with a fixed backoff.
// Exhausting the budget returns the last error and leaves no session.
func (m *Manager) Start(ctx context.Context, caps Capabilities) (*Session, error) {
	m.mu.Lock()
	if m.state != StateAbsent {
		m.mu.Unlock()
		return nil, core.ErrSessionAlreadyActive
	}
	m.state = StateStarting
	m.mu.Unlock()

	requested := caps.WithDefaults()
	handle, err := m.create(ctx, requested)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.state = StateAbsent
		return nil, err
	}

	sessCtx, cancel := context.WithCancelCause(context.Background())
	s := &Session{
		id:           handle.ID,
		requested:    requested,
		capabilities: Capabilities(handle.Capabilities).Clone(),
		startedAt:    time.Now(),
		remote:       m.remote,
		pool:         m.opts.Pool,
		ctx:          sessCtx,
		cancel:       cancel,
		onLost:       m.lost,
	}
	m.current = s
	m.state = StateActive

	m.log.Info().Str("sessionId", s.id).Str("udid", requested.UDID()).Msg("session started")
	events.Logf(m.opts.Events, "Appium session started: %s", s.id)
	return s, nil
}

func (m *Manager) create(ctx context.Context, caps Capabilities) (core.SessionHandle, error) {
	var (
		handle    core.SessionHandle
		lastErr   error
		attempt   int
		permanent bool
	)

	operation := func() error {
		attempt++
		h, err := run(ctx, m.opts.Pool, func(c context.Context) (core.SessionHandle, error) {
			return m.remote.NewSession(c, map[string]interface{}(caps.Clone()))
		})
		if err == nil {
			handle = h
			return nil
		}
		lastErr = err
		m.log.Warn().Err(err).Int("attempt", attempt).Int("of", m.opts.StartAttempts).Msg("session start failed")
		events.Logf(m.opts.Events, "Session start attempt %d/%d failed: %v", attempt, m.opts.StartAttempts, err)
		if core.IsConfigError(err) || ctx.Err() != nil {
			permanent = true
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(m.opts.StartBackoff), uint64(m.opts.StartAttempts-1)),
		ctx,
	)
	if err := backoff.Retry(operation, b); err != nil {
		if lastErr == nil {
			lastErr = err
		}
		m.log.Error().Err(lastErr).Int("attempts", attempt).Msg("giving up on session start")
		events.Logf(m.opts.Events, "Failed to start session after %d attempts: %v", attempt, lastErr)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return core.SessionHandle{}, ctxErr
		}
		// Retry stops early when ctx's deadline falls before the next attempt.
		if !permanent && attempt < m.opts.StartAttempts {
			return core.SessionHandle{}, fmt.Errorf("session start attempt %d: %w before next attempt: %v",
				attempt, context.DeadlineExceeded, lastErr)
		}
		return core.SessionHandle{}, core.ErrSessionStartFailed.
			WithMessage(fmt.Sprintf("failed to start session after %d attempts", attempt)).
			WithCause(lastErr)
	}
	return handle, nil
}

// run runs fn on the pool without a session, for session creation.
func run[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error)) (T, error) {
	return Submit(ctx, p, fn).Await(ctx)
}

// End closes the active session. Without a session it is a no-op that
// reports Ended=false and no error.
func (m *Manager) End(ctx context.Context) (EndResult, error) {
	m.mu.Lock()
	switch m.state {
	case StateAbsent:
		m.mu.Unlock()
		return EndResult{Ended: false, Message: "No active session"}, nil
	case StateStarting, StateEnding:
		state := m.state
		m.mu.Unlock()
		return EndResult{}, core.ErrSessionAlreadyActive.WithMessage("session is " + state.String())
	}
	s := m.current
	m.state = StateEnding
	m.mu.Unlock()

	// In-flight calls on the session fail fast from here on.
	s.cancel(core.ErrSessionLost.WithMessage("session ended"))

	_, err := run(ctx, m.opts.Pool, func(c context.Context) (struct{}, error) {
		return struct{}{}, m.remote.DeleteSession(c, s.id)
	})

	m.mu.Lock()
	m.current = nil
	m.state = StateAbsent
	m.mu.Unlock()

	events.Logf(m.opts.Events, "Appium session ended: %s", s.id)
	if err != nil && !core.IsSessionLost(err) {
		m.log.Warn().Err(err).Str("sessionId", s.id).Msg("session delete failed")
		return EndResult{Ended: true, Message: "Session released, server delete failed"}, err
	}
	m.log.Info().Str("sessionId", s.id).Msg("session ended")
	return EndResult{Ended: true, Message: "Session ended"}, nil
}

// lost clears the dangling state after the server dropped the session.
func (m *Manager) lost(s *Session, cause error) {
	m.mu.Lock()
	if m.current != s || m.state != StateActive {
		m.mu.Unlock()
		return
	}
	m.current = nil
	m.state = StateAbsent
	m.mu.Unlock()

	m.log.Error().Err(cause).Str("sessionId", s.id).Msg("session lost")
	events.Logf(m.opts.Events, "Appium session lost: %s", s.id)
}

// Current returns the active session.
func (m *Manager) Current() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateActive {
		return nil, core.ErrNoActiveSession
	}
	return m.current, nil
}

// Info returns a snapshot of the active session, or nil.
func (m *Manager) Info() *Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	s := m.current
	return &Info{
		SessionID:    s.id,
		Capabilities: s.capabilities.Clone(),
		Requested:    s.requested.Clone(),
		StartedAt:    s.startedAt,
		State:        m.state.String(),
	}
}

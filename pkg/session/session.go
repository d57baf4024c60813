package session

import (
	"context"
	"errors"
	"time"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/core"
)

// Session is a live handle to one automation session. It is created and
// ended only by its Manager; holders may issue calls through Do.
type Session struct {
	id           string
	requested    Capabilities
	capabilities Capabilities // negotiated
	startedAt    time.Time

	remote core.Remote
	pool   *Pool

	ctx    context.Context
	cancel context.CancelCauseFunc
	onLost func(*Session, error)
}

// ID returns the server-assigned session ID.
func (s *Session) ID() string {
	return s.id
}

// Capabilities returns a copy of the negotiated capabilities.
func (s *Session) Capabilities() Capabilities {
	return s.capabilities.Clone()
}

// Context is cancelled when the session ends or is lost.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Alive returns nil while the session can take calls, or the
// session-lost error that ended it.
func (s *Session) Alive() error {
	if s.ctx.Err() == nil {
		return nil
	}
	if cause := context.Cause(s.ctx); core.IsSessionLost(cause) {
		return cause
	}
	return core.ErrSessionLost
}

// markLost ends the session after the server reported it gone.
func (s *Session) markLost(err error) {
	if s.ctx.Err() != nil {
		return
	}
	s.cancel(err)
	if s.onLost != nil {
		s.onLost(s, err)
	}
}

// Call is a remote operation bound to a session.
type Call[T any] func(ctx context.Context, remote core.Remote, sessionID string) (T, error)

// Do runs call on the session's worker pool. It returns early with a
// session-lost error when the session ends or is lost mid-call, and with
// ctx's error when the caller gives up.
func Do[T any](ctx context.Context, s *Session, call Call[T]) (T, error) {
	var zero T
	if err := s.Alive(); err != nil {
		return zero, err
	}

	callCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	stop := context.AfterFunc(s.ctx, func() {
		cancel(context.Cause(s.ctx))
	})
	defer stop()

	fut := Submit(callCtx, s.pool, func(c context.Context) (T, error) {
		return call(c, s.remote, s.id)
	})
	v, err := fut.Await(callCtx)
	if err == nil {
		return v, nil
	}

	if core.IsSessionLost(err) {
		s.markLost(err)
		return zero, err
	}
	if aliveErr := s.Alive(); aliveErr != nil {
		return zero, aliveErr
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return zero, ctxErr
	}
	return zero, err
}

// Exec is Do for calls without a result.
func Exec(ctx context.Context, s *Session, call func(ctx context.Context, remote core.Remote, sessionID string) error) error {
	_, err := Do(ctx, s, func(c context.Context, r core.Remote, id string) (struct{}, error) {
		return struct{}{}, call(c, r, id)
	})
	return err
}

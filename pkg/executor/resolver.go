package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/core"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/flow"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/logger"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/session"
)

// Default locate budget and poll interval.
const (
	DefaultLocateTimeout = 25 * time.Second
	DefaultPollInterval  = 500 * time.Millisecond
)

// LocatorResolver turns a step's locator into an interactable element.
type LocatorResolver struct {
	poll time.Duration
	log  zerolog.Logger
}

// NewLocatorResolver creates a resolver polling every poll (default 500ms).
func NewLocatorResolver(poll time.Duration) *LocatorResolver {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &LocatorResolver{poll: poll, log: logger.With("resolver")}
}

// Resolve polls until the step's element is found, displayed and enabled,
// or timeout elapses. Unsupported strategies fail without a lookup.
// A lost session or a cancelled ctx ends polling at once.
func (r *LocatorResolver) Resolve(ctx context.Context, s *session.Session, step flow.Step, timeout time.Duration) (core.Element, error) {
	loc, err := step.Strategy.Locator(step.Target)
	if err != nil {
		return core.Element{}, err
	}
	if timeout <= 0 {
		timeout = DefaultLocateTimeout
	}

	start := time.Now()
	deadlineCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Burst of one: the first attempt is immediate, then one per tick.
	limiter := rate.NewLimiter(rate.Every(r.poll), 1)

	var lastErr error
	attempts := 0
	for {
		if err := limiter.Wait(deadlineCtx); err != nil {
			// The next tick would pass the deadline.
			<-deadlineCtx.Done()
			break
		}
		attempts++

		id, err := session.Do(deadlineCtx, s, func(c context.Context, remote core.Remote, sid string) (string, error) {
			return attempt(c, remote, sid, loc)
		})
		if err == nil {
			r.log.Debug().Int("step", step.Order).Int("attempts", attempts).
				Dur("elapsed", time.Since(start)).Msg("element resolved")
			return core.Element{ID: id, SessionID: s.ID()}, nil
		}

		switch {
		case core.IsSessionLost(err):
			return core.Element{}, err
		case ctx.Err() != nil:
			return core.Element{}, ctx.Err()
		case core.IsConfigError(err):
			return core.Element{}, err
		case errors.Is(err, context.DeadlineExceeded) && deadlineCtx.Err() != nil:
			// The attempt was cut off by the locate deadline.
		default:
			lastErr = err
		}
		if deadlineCtx.Err() != nil {
			break
		}
	}

	if ctx.Err() != nil {
		return core.Element{}, ctx.Err()
	}
	if err := s.Alive(); err != nil {
		return core.Element{}, err
	}

	r.log.Debug().Int("step", step.Order).Int("attempts", attempts).
		Dur("elapsed", time.Since(start)).AnErr("last", lastErr).Msg("locate timed out")
	timeoutErr := core.ErrLocateTimeout.
		WithMessage(fmt.Sprintf("%s=%s not found and interactable within %s", step.Strategy, step.Target, timeout)).
		WithDetails(map[string]interface{}{"attempts": attempts})
	if lastErr != nil {
		return core.Element{}, timeoutErr.WithCause(lastErr)
	}
	return core.Element{}, timeoutErr
}

// attempt is one poll tick: find the element, then check it is displayed
// and enabled. The calls run back to back on one worker.
func attempt(ctx context.Context, remote core.Remote, sessionID string, loc flow.Locator) (string, error) {
	id, err := remote.FindElement(ctx, sessionID, loc.Using, loc.Value)
	if err != nil {
		return "", err
	}
	displayed, err := remote.IsElementDisplayed(ctx, sessionID, id)
	if err != nil {
		return "", err
	}
	if !displayed {
		return "", core.ErrElementNotInteractable.WithMessage("element not displayed")
	}
	enabled, err := remote.IsElementEnabled(ctx, sessionID, id)
	if err != nil {
		return "", err
	}
	if !enabled {
		return "", core.ErrElementNotInteractable.WithMessage("element not enabled")
	}
	return id, nil
}

package executor

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/core"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/events"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/flow"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/logger"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/session"
)

// StepRunnerConfig configures a StepRunner.
type StepRunnerConfig struct {
	LocateTimeout time.Duration // Default 25s
	PollInterval  time.Duration // Default 500ms
	Artifacts     core.ArtifactConfig
	Parameters    map[string]string
	Script        *ScriptEngine // Created when nil
	Events        events.Publisher
}

// StepRunner executes one step: locate, act, record.
type StepRunner struct {
	resolver   *LocatorResolver
	dispatcher *ActionDispatcher
	script     *ScriptEngine
	params     map[string]string
	timeout    time.Duration
	artifacts  core.ArtifactConfig
	events     events.Publisher
	log        zerolog.Logger
}

// NewStepRunner creates a step runner.
func NewStepRunner(cfg StepRunnerConfig) *StepRunner {
	if cfg.LocateTimeout <= 0 {
		cfg.LocateTimeout = DefaultLocateTimeout
	}
	if cfg.Script == nil {
		cfg.Script = NewScriptEngine()
		cfg.Script.SetVariables(cfg.Parameters)
	}
	return &StepRunner{
		resolver:   NewLocatorResolver(cfg.PollInterval),
		dispatcher: NewActionDispatcher(),
		script:     cfg.Script,
		params:     cfg.Parameters,
		timeout:    cfg.LocateTimeout,
		artifacts:  cfg.Artifacts,
		events:     cfg.Events,
		log:        logger.With("step"),
	}
}

// Run executes step against s and returns its result. Every call yields
// exactly one result. The error is non-nil only when the containing case
// must stop: a *core.CriticalStepError when the element could not be
// located, a session-lost error, a config error, or ctx's error.
// Action failures are reported in the result with a nil error.
func (r *StepRunner) Run(ctx context.Context, s *session.Session, step flow.Step) (core.StepResult, error) {
	result := core.StepResult{Step: step.Ref(), Phase: core.PhasePending}

	events.Logf(r.events, "Executing step %d: %s on %s", step.Order, step.Action, step.Target)
	r.log.Info().Int("step", step.Order).Str("action", string(step.Action)).
		Str("strategy", string(step.Strategy)).Str("target", step.Target).Msg("executing step")

	var input string
	if step.Action == flow.ActionSendKeys {
		var err error
		if input, err = r.script.ResolveInput(step, r.params); err != nil {
			return r.fail(result, err), err
		}
	}

	// locating
	result.Phase = core.PhaseLocating
	el, err := r.resolver.Resolve(ctx, s, step, r.timeout)
	if err != nil {
		result.Phase = core.PhaseLocateFailed
		if core.IsSessionLost(err) || core.IsConfigError(err) || ctx.Err() != nil {
			return r.fail(result, err), err
		}
		critical := &core.CriticalStepError{StepOrder: step.Order, ElementID: step.Target, Cause: err}
		result = r.fail(result, critical)
		result.Attachments = r.capture(ctx, s, false)
		r.log.Warn().Int("step", step.Order).Err(err).Msg("element not located, aborting case")
		return result, critical
	}
	result.Phase = core.PhaseLocated

	// acting: duration covers this phase only
	result.Phase = core.PhaseActing
	result.StartTime = time.Now()
	out, err := r.dispatcher.Perform(ctx, s, el, step.Action, input)
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	if err != nil {
		result.Phase = core.PhaseActFailed
		result.Success = false
		result.Error = err.Error()
		result.ErrorCode, result.Category = errorCode(err)

		if core.IsSessionLost(err) || core.IsConfigError(err) {
			return result, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return result, ctxErr
		}
		result.Attachments = r.capture(ctx, s, false)
		r.log.Warn().Int("step", step.Order).Err(err).Dur("duration", result.Duration).Msg("step action failed")
		return result, nil
	}

	result.Phase = core.PhaseActed
	result.Success = true
	result.Text = out.Text
	result.Displayed = out.Displayed
	result.Attachments = r.capture(ctx, s, true)
	r.log.Info().Int("step", step.Order).Dur("duration", result.Duration).Msg("step passed")
	return result, nil
}

// fail fills in a result that never reached the action phase.
func (r *StepRunner) fail(result core.StepResult, err error) core.StepResult {
	now := time.Now()
	result.Success = false
	result.StartTime = now
	result.EndTime = now
	result.Duration = 0
	result.Error = err.Error()
	result.ErrorCode, result.Category = errorCode(err)
	return result
}

// capture grabs debug artifacts when configured. Failures are logged and
// dropped.
func (r *StepRunner) capture(ctx context.Context, s *session.Session, success bool) []core.Attachment {
	if !r.artifacts.ShouldCapture(success) || ctx.Err() != nil || s.Alive() != nil {
		return nil
	}

	var attachments []core.Attachment
	if r.artifacts.Screenshot {
		data, err := session.Do(ctx, s, func(c context.Context, remote core.Remote, sid string) ([]byte, error) {
			return remote.Screenshot(c, sid)
		})
		if err != nil {
			r.log.Debug().Err(err).Msg("screenshot capture failed")
		} else {
			attachments = append(attachments, core.NewScreenshotAttachment(data))
		}
	}
	if r.artifacts.PageSource {
		src, err := session.Do(ctx, s, func(c context.Context, remote core.Remote, sid string) (string, error) {
			return remote.Source(c, sid)
		})
		if err != nil {
			r.log.Debug().Err(err).Msg("page source capture failed")
		} else {
			attachments = append(attachments, core.NewPageSourceAttachment([]byte(src)))
		}
	}
	return attachments
}

// errorCode returns the machine code and category recorded for err.
func errorCode(err error) (string, core.ErrorCategory) {
	var critical *core.CriticalStepError
	if errors.As(err, &critical) {
		if code, cat := errorCode(critical.Cause); code != "" {
			return code, cat
		}
		return core.ErrLocateTimeout.Code, core.ErrCategoryTimeout
	}
	var execErr *core.ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Code, execErr.Category
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return core.ErrTimeout.Code, core.ErrCategoryTimeout
	}
	return core.ErrActionFailed.Code, core.ErrActionFailed.Category
}

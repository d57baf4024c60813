// Package executor runs batches of test cases against an automation
// session: element resolution, actions, step and case state, and batch
// aggregation.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/core"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/events"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/flow"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/logger"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/session"
)

// SessionPolicy decides how cases of a batch share sessions.
type SessionPolicy string

const (
	// PolicyReuse runs every case on one session. Losing it aborts the batch.
	PolicyReuse SessionPolicy = "reuse"
	// PolicyPerCase opens a fresh session for each case.
	PolicyPerCase SessionPolicy = "per_case"
)

// ParseSessionPolicy validates a policy name. Empty means reuse.
func ParseSessionPolicy(name string) (SessionPolicy, error) {
	switch p := SessionPolicy(strings.ToLower(strings.TrimSpace(name))); p {
	case "":
		return PolicyReuse, nil
	case PolicyReuse, PolicyPerCase:
		return p, nil
	default:
		return "", core.ErrInvalidConfig.WithMessage("unknown session policy: " + name)
	}
}

const endSessionTimeout = 30 * time.Second

// RunnerConfig configures the batch runner.
type RunnerConfig struct {
	Policy        SessionPolicy
	Capabilities  session.Capabilities // Merged under the batch's own capabilities
	LocateTimeout time.Duration
	PollInterval  time.Duration
	Artifacts     core.ArtifactConfig
	ImportEnv     bool   // Expose uppercase env variables to step inputs
	ExecutionID   string // Batch execution ID, generated when empty
	Events        events.Publisher

	// Live progress callbacks
	OnCaseStart    func(caseIdx, totalCases int, tc flow.TestCase)
	OnStepComplete func(tc flow.TestCase, r core.StepResult)
	OnCaseEnd      func(exec *core.CaseExecution)
}

// BatchRunner executes the cases of a batch sequentially.
type BatchRunner struct {
	config  RunnerConfig
	manager *session.Manager
	log     zerolog.Logger
}

// New creates a batch runner that obtains sessions from manager.
func New(manager *session.Manager, cfg RunnerConfig) *BatchRunner {
	if cfg.Policy == "" {
		cfg.Policy = PolicyReuse
	}
	return &BatchRunner{
		config:  cfg,
		manager: manager,
		log:     logger.With("batch"),
	}
}

// Validate checks the batch and every case before any session is opened.
func Validate(b *flow.Batch, cases []flow.TestCase) error {
	if err := b.Validate(); err != nil {
		return err
	}
	for i := range cases {
		if err := cases[i].Validate(b.Parameters); err != nil {
			return err
		}
	}
	return nil
}

// Run executes cases (all of b's cases when nil) and returns the finished
// batch execution. The error is non-nil when the batch is invalid, when
// the shared session could not be started, or when ctx was cancelled; in
// the last two cases the returned execution is still complete.
func (br *BatchRunner) Run(ctx context.Context, b *flow.Batch, cases []flow.TestCase) (*core.BatchExecution, error) {
	if cases == nil {
		cases = b.Cases
	}
	if err := Validate(b, cases); err != nil {
		return nil, err
	}
	if _, err := ParseSessionPolicy(string(br.config.Policy)); err != nil {
		return nil, err
	}

	agg := NewBatchAggregator(br.config.ExecutionID, b.ID, b.Name, len(cases))
	caps := br.config.Capabilities.Merge(b.Capabilities)

	script := NewScriptEngine()
	script.SetVariables(b.Parameters)
	if br.config.ImportEnv {
		script.ImportSystemEnv()
	}
	steps := NewStepRunner(StepRunnerConfig{
		LocateTimeout: br.config.LocateTimeout,
		PollInterval:  br.config.PollInterval,
		Artifacts:     br.config.Artifacts,
		Parameters:    b.Parameters,
		Script:        script,
		Events:        br.config.Events,
	})
	caseRunner := NewCaseRunner(steps)
	caseRunner.OnStepComplete = br.config.OnStepComplete

	br.log.Info().Str("batch", b.ID).Str("execution", agg.Batch().ID).Int("cases", len(cases)).
		Str("policy", string(br.config.Policy)).Msg("batch started")

	var shared *session.Session
	if br.config.Policy == PolicyReuse && len(cases) > 0 {
		s, err := br.manager.Start(ctx, caps)
		if err != nil {
			agg.Abort(err, cases)
			return br.finish(agg), err
		}
		shared = s
		defer br.endSession(ctx)
	}

	for i, tc := range cases {
		if ctx.Err() != nil {
			for _, rest := range cases[i:] {
				_ = agg.Skip(rest, "execution cancelled")
			}
			break
		}
		if br.config.OnCaseStart != nil {
			br.config.OnCaseStart(i, len(cases), tc)
		}

		s := shared
		if br.config.Policy == PolicyPerCase {
			var err error
			if s, err = br.manager.Start(ctx, caps); err != nil {
				if ctx.Err() != nil {
					for _, rest := range cases[i:] {
						_ = agg.Skip(rest, "execution cancelled")
					}
					break
				}
				exec := core.NewCaseExecution(uuid.NewString(), tc.ID, tc.Name)
				exec.Abort(fmt.Errorf("start session: %w", err), len(tc.Steps))
				exec.Finish()
				br.record(agg, exec)
				continue
			}
		}

		negotiated := s.Capabilities()
		script.SetDevice(negotiated.Platform(), negotiated.UDID())

		exec, err := caseRunner.Run(ctx, s, tc)
		if br.config.Policy == PolicyPerCase {
			br.endSession(ctx)
		}
		br.record(agg, exec)

		if err != nil && core.IsSessionLost(err) && br.config.Policy == PolicyReuse {
			br.log.Error().Err(err).Str("case", tc.ID).Msg("session lost, aborting batch")
			agg.Abort(err, cases[i+1:])
			break
		}
	}

	return br.finish(agg), ctx.Err()
}

func (br *BatchRunner) record(agg *BatchAggregator, exec *core.CaseExecution) {
	if err := agg.Fold(exec); err != nil {
		br.log.Error().Err(err).Str("case", exec.CaseID).Msg("case not aggregated")
	}
	if br.config.OnCaseEnd != nil {
		br.config.OnCaseEnd(exec)
	}
}

func (br *BatchRunner) finish(agg *BatchAggregator) *core.BatchExecution {
	b := agg.Finish()
	br.log.Info().Str("batch", b.BatchID).Str("execution", b.ID).Str("status", string(b.Status)).
		Int("total", b.Total).Int("completed", b.Completed).Int("passed", b.Passed).
		Dur("duration", b.EndTime.Sub(b.StartTime)).Msg("batch finished")
	return b
}

// endSession closes the current session even when ctx is already cancelled.
func (br *BatchRunner) endSession(ctx context.Context) {
	endCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), endSessionTimeout)
	defer cancel()
	if _, err := br.manager.End(endCtx); err != nil {
		br.log.Warn().Err(err).Msg("session end failed")
	}
}

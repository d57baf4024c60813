package executor

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/core"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/flow"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/logger"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/session"
)

// CaseRunner executes the steps of one test case in order.
type CaseRunner struct {
	steps *StepRunner
	log   zerolog.Logger

	// OnStepComplete is called after each step result is recorded.
	OnStepComplete func(tc flow.TestCase, r core.StepResult)
}

// NewCaseRunner creates a case runner.
func NewCaseRunner(steps *StepRunner) *CaseRunner {
	return &CaseRunner{steps: steps, log: logger.With("case")}
}

// Run executes tc against s. The returned execution is always terminal.
// The error is the one that stopped the case early, if any.
func (cr *CaseRunner) Run(ctx context.Context, s *session.Session, tc flow.TestCase) (*core.CaseExecution, error) {
	exec := core.NewCaseExecution(uuid.NewString(), tc.ID, tc.Name)
	cr.log.Info().Str("case", tc.ID).Str("execution", exec.ID).Int("steps", len(tc.Steps)).Msg("case started")

	for i, step := range tc.Steps {
		if err := ctx.Err(); err != nil {
			exec.Cancel("execution cancelled", len(tc.Steps)-i)
			cr.log.Warn().Str("case", tc.ID).Msg("case cancelled")
			return exec, err
		}

		result, err := cr.steps.Run(ctx, s, step)
		if err != nil && ctx.Err() != nil {
			// Cancelled mid-step: the partial step is not recorded.
			exec.Cancel("execution cancelled", len(tc.Steps)-i)
			cr.log.Warn().Str("case", tc.ID).Int("step", step.Order).Msg("case cancelled")
			return exec, ctx.Err()
		}

		if recErr := exec.Record(result); recErr != nil {
			cr.log.Error().Err(recErr).Str("case", tc.ID).Msg("step result rejected")
		}
		if cr.OnStepComplete != nil {
			cr.OnStepComplete(tc, result)
		}

		if err != nil {
			exec.Abort(err, len(tc.Steps)-i-1)
			exec.Finish()
			cr.log.Warn().Str("case", tc.ID).Err(err).Int("notRun", exec.NotRun).Msg("case aborted")
			return exec, err
		}
	}

	exec.Finish()
	passed, failed := exec.Counts()
	cr.log.Info().Str("case", tc.ID).Str("status", string(exec.Status)).
		Int("passed", passed).Int("failed", failed).Msg("case finished")
	return exec, nil
}

// Package store persists batch, case and step results.
package store

import (
	"context"
	"time"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/core"
)

// ResultStore is the persistence boundary for execution results.
type ResultStore interface {
	SaveBatch(ctx context.Context, b *core.BatchExecution) error
	SaveCase(ctx context.Context, batchExecutionID string, c *core.CaseExecution) error
	// UpsertStepResult inserts the result or replaces the one already
	// stored for (executionID, step order).
	UpsertStepResult(ctx context.Context, executionID string, r core.StepResult) error
	StepResults(ctx context.Context, executionID string) ([]StoredStep, error)
	Close() error
}

// StoredStep is a step result row as read back from the store.
type StoredStep struct {
	ExecutionID string
	StepOrder   int
	Strategy    string
	Action      string
	Result      core.ResultDescriptor
	Screenshot  string // actual_screenshot path, if any
	StartTime   time.Time
	EndTime     time.Time
	UpdatedAt   time.Time
}

// screenshotPath returns the path of the first written screenshot attachment.
func screenshotPath(r core.StepResult) string {
	for _, a := range r.Attachments {
		if a.ContentType == core.ContentTypePNG && a.Path != "" {
			return a.Path
		}
	}
	return ""
}

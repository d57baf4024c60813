package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/core"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/flow"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/store"
)

// BatchAggregator folds finished case executions into a batch execution,
// keeping passed <= completed <= total after every update.
type BatchAggregator struct {
	mu    sync.Mutex
	batch *core.BatchExecution
}

// NewBatchAggregator starts a batch execution of total cases.
func NewBatchAggregator(id, batchID, name string, total int) *BatchAggregator {
	if id == "" {
		id = uuid.NewString()
	}
	return &BatchAggregator{batch: &core.BatchExecution{
		ID:        id,
		BatchID:   batchID,
		Name:      name,
		Status:    core.BatchInProgress,
		Total:     total,
		StartTime: time.Now(),
	}}
}

// Fold adds a finished case and updates the counters.
func (a *BatchAggregator) Fold(c *core.CaseExecution) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !c.Status.IsTerminal() {
		return fmt.Errorf("case %s is still %s", c.CaseID, c.Status)
	}
	if a.batch.Completed >= a.batch.Total {
		return fmt.Errorf("batch %s already has %d of %d cases", a.batch.ID, a.batch.Completed, a.batch.Total)
	}

	a.batch.Cases = append(a.batch.Cases, c)
	a.batch.Completed++
	if c.Status == core.CasePassed {
		a.batch.Passed++
	}
	a.batch.Status = a.batch.AggregateStatus()
	return nil
}

// Skip records a case that never ran.
func (a *BatchAggregator) Skip(tc flow.TestCase, reason string) error {
	c := core.NewCaseExecution(uuid.NewString(), tc.ID, tc.Name)
	c.NotRun = len(tc.Steps)
	c.Skip(reason)
	return a.Fold(c)
}

// Abort stops the batch: the remaining cases are skipped and the batch
// ends failed.
func (a *BatchAggregator) Abort(err error, remaining []flow.TestCase) {
	reason := "batch aborted"
	if err != nil {
		reason = "batch aborted: " + err.Error()
	}
	for _, tc := range remaining {
		_ = a.Skip(tc, reason)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.batch.Aborted = true
	if err != nil {
		a.batch.Error = err.Error()
	}
}

// Status returns the current batch status.
func (a *BatchAggregator) Status() core.BatchStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.batch.Status
}

// Counters returns total, completed and passed.
func (a *BatchAggregator) Counters() (total, completed, passed int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.batch.Total, a.batch.Completed, a.batch.Passed
}

// Finish assigns the terminal status and returns the batch execution.
func (a *BatchAggregator) Finish() *core.BatchExecution {
	a.mu.Lock()
	defer a.mu.Unlock()

	b := a.batch
	if b.Aborted {
		b.Status = core.BatchFailed
	} else {
		b.Status = b.AggregateStatus()
	}
	b.EndTime = time.Now()
	return b
}

// Batch returns the batch execution being aggregated.
func (a *BatchAggregator) Batch() *core.BatchExecution {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.batch
}

// SaveFailure is one record that could not be persisted. StepOrder is 0
// for batch and case rows.
type SaveFailure struct {
	ExecutionID string
	CaseID      string
	StepOrder   int
	Err         error
}

func (f SaveFailure) Error() string {
	switch {
	case f.CaseID == "":
		return fmt.Sprintf("batch: %v", f.Err)
	case f.StepOrder == 0:
		return fmt.Sprintf("case %s: %v", f.CaseID, f.Err)
	default:
		return fmt.Sprintf("case %s step %d: %v", f.CaseID, f.StepOrder, f.Err)
	}
}

// SaveReport summarizes a save. FailedToSave is set when at least one
// case could not be persisted at all.
type SaveReport struct {
	SavedCases   int
	SavedSteps   int
	Failures     []SaveFailure
	FailedToSave bool
}

// Save writes the aggregated batch to st.
func (a *BatchAggregator) Save(ctx context.Context, st store.ResultStore) SaveReport {
	a.mu.Lock()
	snapshot := *a.batch
	snapshot.Cases = append([]*core.CaseExecution(nil), a.batch.Cases...)
	a.mu.Unlock()
	return Save(ctx, st, &snapshot)
}

// Save writes the batch, every case and every step result to st. One
// failure never stops the remaining writes.
func Save(ctx context.Context, st store.ResultStore, b *core.BatchExecution) SaveReport {
	cases := b.Cases

	var rep SaveReport
	if err := st.SaveBatch(ctx, b); err != nil {
		rep.Failures = append(rep.Failures, SaveFailure{ExecutionID: b.ID, Err: err})
	}

	for _, c := range cases {
		if err := st.SaveCase(ctx, b.ID, c); err != nil {
			rep.Failures = append(rep.Failures, SaveFailure{ExecutionID: c.ID, CaseID: c.CaseID, Err: err})
			rep.FailedToSave = true
			continue
		}
		rep.SavedCases++

		for _, r := range c.Steps {
			if err := st.UpsertStepResult(ctx, c.ID, r); err != nil {
				rep.Failures = append(rep.Failures, SaveFailure{
					ExecutionID: c.ID, CaseID: c.CaseID, StepOrder: r.Step.Order, Err: err,
				})
				continue
			}
			rep.SavedSteps++
		}
	}
	return rep
}

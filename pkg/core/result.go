package core

import (
	"fmt"
	"math"
	"time"
)

// StepRef identifies the step a result belongs to.
type StepRef struct {
	Order     int    `json:"stepOrder"`
	Strategy  string `json:"strategy"`
	ElementID string `json:"elementId"`
	Action    string `json:"action"`
}

// StepResult captures the outcome of one executed step attempt.
// It is created once and not mutated afterwards.
type StepResult struct {
	// Identity
	Step StepRef `json:"step"`

	// Outcome
	Success bool      `json:"success"`
	Phase   StepPhase `json:"-"` // locate_failed, acted or act_failed

	// Timing (duration covers the action phase only)
	StartTime time.Time     `json:"startTime"`
	EndTime   time.Time     `json:"endTime"`
	Duration  time.Duration `json:"duration"`

	// Action output
	Text      *string `json:"text,omitempty"`      // get_text
	Displayed *bool   `json:"displayed,omitempty"` // is_displayed

	// Error Details
	Error     string        `json:"error,omitempty"`
	ErrorCode string        `json:"errorCode,omitempty"`
	Category  ErrorCategory `json:"errorCategory,omitempty"`

	// Debug Artifacts
	Attachments []Attachment `json:"attachments,omitempty"`
}

// ResultDescriptor is the wire shape handed to the persistence/API layer.
type ResultDescriptor struct {
	ActualID  string  `json:"actual_id"`
	Success   bool    `json:"success"`
	Duration  float64 `json:"duration"` // seconds
	Error     *string `json:"error"`
	Text      *string `json:"text,omitempty"`
	Displayed *bool   `json:"displayed,omitempty"`
}

// Descriptor converts the result into its wire descriptor.
func (r StepResult) Descriptor() ResultDescriptor {
	d := ResultDescriptor{
		ActualID:  r.Step.ElementID,
		Success:   r.Success,
		Duration:  math.Round(r.Duration.Seconds()*10000) / 10000,
		Text:      r.Text,
		Displayed: r.Displayed,
	}
	if r.Error != "" {
		msg := r.Error
		d.Error = &msg
	}
	return d
}

// CaseExecution is one run of a test case's ordered steps.
type CaseExecution struct {
	// Identity
	ID     string `json:"id"`     // Execution ID (unique per run)
	CaseID string `json:"caseId"` // Test case reference
	Name   string `json:"name"`

	// Status (derived from Steps, except the initial in_progress)
	Status CaseStatus `json:"status"`

	// Timing
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime,omitempty"`

	// Results in step order
	Steps []StepResult `json:"steps"`

	// Abort info (critical failure, lost session, config error)
	Aborted bool   `json:"aborted,omitempty"`
	Error   string `json:"error,omitempty"`

	// Steps never executed because the case aborted
	NotRun int `json:"notRun,omitempty"`
}

// NewCaseExecution creates a case execution in the in_progress state.
func NewCaseExecution(id, caseID, name string) *CaseExecution {
	return &CaseExecution{
		ID:        id,
		CaseID:    caseID,
		Name:      name,
		Status:    CaseInProgress,
		StartTime: time.Now(),
	}
}

// Record appends a step result. Results must arrive in strictly increasing step order.
func (c *CaseExecution) Record(r StepResult) error {
	if c.Status.IsTerminal() {
		return fmt.Errorf("case %s already finished with status %s", c.ID, c.Status)
	}
	if n := len(c.Steps); n > 0 && r.Step.Order <= c.Steps[n-1].Step.Order {
		return fmt.Errorf("step %d recorded after step %d", r.Step.Order, c.Steps[n-1].Step.Order)
	}
	c.Steps = append(c.Steps, r)
	return nil
}

// Abort marks the case as aborted by a critical error. notRun is the number
// of steps that will not be executed.
func (c *CaseExecution) Abort(err error, notRun int) {
	c.Aborted = true
	c.NotRun = notRun
	if err != nil {
		c.Error = err.Error()
	}
}

// Finish derives the terminal status from the recorded results.
func (c *CaseExecution) Finish() CaseStatus {
	c.Status = DeriveCaseStatus(c.Steps, c.Aborted)
	c.EndTime = time.Now()
	return c.Status
}

// Skip marks a case that never started.
func (c *CaseExecution) Skip(reason string) {
	c.Status = CaseSkipped
	c.Error = reason
	c.EndTime = time.Now()
}

// Cancel ends a case interrupted by run cancellation. It is failed if a
// recorded step failed and skipped otherwise.
func (c *CaseExecution) Cancel(reason string, notRun int) CaseStatus {
	c.NotRun = notRun
	c.Error = reason
	c.Status = CaseSkipped
	for _, s := range c.Steps {
		if !s.Success {
			c.Status = CaseFailed
			break
		}
	}
	c.EndTime = time.Now()
	return c.Status
}

// Counts returns the number of passed and failed step results.
func (c *CaseExecution) Counts() (passed, failed int) {
	for _, s := range c.Steps {
		if s.Success {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}

// DeriveCaseStatus applies the case rule: passed iff every step result
// succeeded, failed if any failed or the case was aborted.
func DeriveCaseStatus(steps []StepResult, aborted bool) CaseStatus {
	if aborted {
		return CaseFailed
	}
	for _, s := range steps {
		if !s.Success {
			return CaseFailed
		}
	}
	return CasePassed
}

// BatchExecution is a set of case executions run as one unit.
type BatchExecution struct {
	// Identity
	ID      string `json:"id"`
	BatchID string `json:"batchId"`
	Name    string `json:"name"`

	// Status
	Status BatchStatus `json:"status"`

	// Counters (passed <= completed <= total)
	Total     int `json:"totaltestcases"`
	Completed int `json:"completedtestcases"`
	Passed    int `json:"passedtestcases"`

	// Timing
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime,omitempty"`

	// Results
	Cases []*CaseExecution `json:"cases"`

	// Abort info
	Aborted bool   `json:"aborted,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ComputeSummary recalculates counters from the Cases slice
func (b *BatchExecution) ComputeSummary() {
	b.Completed = 0
	b.Passed = 0
	for _, c := range b.Cases {
		if c.Status != CaseInProgress {
			b.Completed++
		}
		if c.Status == CasePassed {
			b.Passed++
		}
	}
}

// AggregateStatus determines the batch status from case statuses
// Rules:
// - Any failed case → BatchFailed
// - Every case passed → BatchPassed
// - All cases terminal, some skipped → BatchCompleted
// - Otherwise → BatchInProgress
func (b *BatchExecution) AggregateStatus() BatchStatus {
	if len(b.Cases) == 0 && b.Total == 0 {
		return BatchCompleted
	}
	if len(b.Cases) < b.Total {
		for _, c := range b.Cases {
			if c.Status == CaseFailed {
				return BatchFailed
			}
		}
		return BatchInProgress
	}

	passed, terminal := 0, 0
	for _, c := range b.Cases {
		switch c.Status {
		case CaseFailed:
			return BatchFailed
		case CasePassed:
			passed++
		}
		if c.Status.IsTerminal() {
			terminal++
		}
	}

	switch {
	case passed == len(b.Cases):
		return BatchPassed
	case terminal == len(b.Cases):
		return BatchCompleted
	default:
		return BatchInProgress
	}
}

// Success returns true if every case passed
func (b *BatchExecution) Success() bool {
	return b.Status == BatchPassed
}

// Package report provides JSON-based batch reporting with live updates.
//
// Layout:
//   - report.json: batch index (summary and one entry per case), rewritten as cases finish
//   - cases/<execution-id>.json: step results of one case execution
//   - assets/<execution-id>/: screenshots and page sources captured on failure
package report

import (
	"time"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/core"
)

// Version is the report schema version.
const Version = "1.0.0"

// Status represents a case or batch status in the report.
type Status string

// Status values.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "in_progress"
	StatusPassed    Status = "passed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusCompleted Status = "completed"
)

// IsTerminal returns true if the status is a final state.
func (s Status) IsTerminal() bool {
	return s == StatusPassed || s == StatusFailed || s == StatusSkipped || s == StatusCompleted
}

// ============================================================================
// INDEX (report.json)
// ============================================================================

// Index is the main report file.
type Index struct {
	Version     string      `json:"version"`
	UpdateSeq   uint64      `json:"updateSeq"`
	ExecutionID string      `json:"executionId"`
	BatchID     string      `json:"batchId"`
	Name        string      `json:"name"`
	SourceFile  string      `json:"sourceFile,omitempty"`
	Status      Status      `json:"status"`
	StartTime   time.Time   `json:"startTime"`
	EndTime     *time.Time  `json:"endTime,omitempty"`
	LastUpdated time.Time   `json:"lastUpdated"`
	Device      Device      `json:"device"`
	Runner      RunnerInfo  `json:"runner"`
	Summary     Summary     `json:"summary"`
	Cases       []CaseEntry `json:"cases"`
	Error       string      `json:"error,omitempty"`
}

// Device contains device information.
type Device struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Platform string `json:"platform"` // ios, android
}

// RunnerInfo contains runner information.
type RunnerInfo struct {
	Version string `json:"version"`
	Driver  string `json:"driver"` // appium, mock
	Policy  string `json:"sessionPolicy"`
}

// Summary mirrors the batch counters.
type Summary struct {
	Total     int `json:"totaltestcases"`
	Completed int `json:"completedtestcases"`
	Passed    int `json:"passedtestcases"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Running   int `json:"running"`
	Pending   int `json:"pending"`
}

// CaseEntry is the index entry for a case.
type CaseEntry struct {
	Index       int         `json:"index"`
	CaseID      string      `json:"caseId"`
	Name        string      `json:"name"`
	ExecutionID string      `json:"executionId,omitempty"`
	DataFile    string      `json:"dataFile,omitempty"`
	AssetsDir   string      `json:"assetsDir,omitempty"`
	Status      Status      `json:"status"`
	UpdateSeq   uint64      `json:"updateSeq"`
	StartTime   *time.Time  `json:"startTime,omitempty"`
	EndTime     *time.Time  `json:"endTime,omitempty"`
	Duration    *int64      `json:"duration,omitempty"` // milliseconds
	Steps       StepSummary `json:"steps"`
	Error       *string     `json:"error,omitempty"`
}

// StepSummary contains step counts for a case.
type StepSummary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
	NotRun int `json:"notRun"`
}

// ============================================================================
// CASE DETAIL (cases/<execution-id>.json)
// ============================================================================

// CaseDetail contains the full results of one case execution.
type CaseDetail struct {
	ExecutionID string      `json:"executionId"`
	CaseID      string      `json:"caseId"`
	Name        string      `json:"name"`
	Status      Status      `json:"status"`
	StartTime   time.Time   `json:"startTime"`
	EndTime     *time.Time  `json:"endTime,omitempty"`
	Duration    *int64      `json:"duration,omitempty"` // milliseconds
	Aborted     bool        `json:"aborted,omitempty"`
	Error       string      `json:"error,omitempty"`
	Steps       []StepEntry `json:"steps"`
}

// StepEntry is one recorded step result.
type StepEntry struct {
	Order     int                   `json:"stepOrder"`
	Strategy  string                `json:"elementIdentifierType"`
	ElementID string                `json:"elementId"`
	Action    string                `json:"action"`
	Status    Status                `json:"status"`
	StartTime time.Time             `json:"startTime"`
	EndTime   time.Time             `json:"endTime"`
	Result    core.ResultDescriptor `json:"result"`
	Error     *Error                `json:"error,omitempty"`
	Artifacts StepArtifacts         `json:"artifacts"`
}

// Error contains error details.
type Error struct {
	Type    string `json:"type"` // error category: assertion, timeout, session, ...
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// StepArtifacts contains step-level artifact paths, relative to the report directory.
type StepArtifacts struct {
	Screenshot string `json:"screenshot,omitempty"`
	PageSource string `json:"pageSource,omitempty"`
}

// ============================================================================
// UPDATE TYPES
// ============================================================================

// CaseUpdate contains the fields to update in the index for a case.
type CaseUpdate struct {
	Status      Status
	ExecutionID string
	DataFile    string
	AssetsDir   string
	StartTime   *time.Time
	EndTime     *time.Time
	Duration    *int64
	Steps       StepSummary
	Error       *string
}

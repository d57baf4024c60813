package core

// CaseStatus represents the execution status of a test case.
type CaseStatus string

// CaseStatus values.
const (
	CaseInProgress CaseStatus = "in_progress" // Set at start, the only status assigned directly
	CasePassed     CaseStatus = "passed"      // Every executed step succeeded
	CaseFailed     CaseStatus = "failed"      // At least one step failed or the case aborted
	CaseSkipped    CaseStatus = "skipped"     // Never started (batch aborted or cancelled)
)

// IsTerminal returns true if the status is a final state
func (s CaseStatus) IsTerminal() bool {
	return s == CasePassed || s == CaseFailed || s == CaseSkipped
}

// BatchStatus represents the status of a batch execution.
type BatchStatus string

// BatchStatus values.
const (
	BatchInProgress BatchStatus = "in_progress"
	BatchCompleted  BatchStatus = "completed" // All cases finished, none failed, not all passed
	BatchPassed     BatchStatus = "passed"
	BatchFailed     BatchStatus = "failed"
)

// IsTerminal returns true if the status is a final state
func (s BatchStatus) IsTerminal() bool {
	return s == BatchCompleted || s == BatchPassed || s == BatchFailed
}

// StepPhase is the position of a step in its execution state machine.
type StepPhase int

const (
	PhasePending      StepPhase = iota // Not yet started
	PhaseLocating                      // Resolver polling for the element
	PhaseLocated                       // Element handle obtained
	PhaseLocateFailed                  // Element never resolved (fatal for the case)
	PhaseActing                        // Dispatcher performing the action
	PhaseActed                         // Action returned normally
	PhaseActFailed                     // Action returned an error (recorded, non-fatal)
	PhaseRecorded                      // StepResult finalized
)

// String returns the string representation of StepPhase
func (p StepPhase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseLocating:
		return "locating"
	case PhaseLocated:
		return "located"
	case PhaseLocateFailed:
		return "locate_failed"
	case PhaseActing:
		return "acting"
	case PhaseActed:
		return "acted"
	case PhaseActFailed:
		return "act_failed"
	case PhaseRecorded:
		return "recorded"
	default:
		return "unknown"
	}
}

// ErrorCategory classifies the type of error for better debugging and reporting
type ErrorCategory int

const (
	ErrCategoryNone       ErrorCategory = iota // No error
	ErrCategoryAssertion                       // Element not found, not interactable, action rejected
	ErrCategoryTimeout                         // Operation timed out
	ErrCategoryConnection                      // Device/server connection problems
	ErrCategoryApp                             // App crashed, not responding, not installed
	ErrCategoryConfig                          // Invalid step definition or configuration
	ErrCategorySession                         // Session lifecycle violations and lost sessions
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryAssertion:
		return "assertion"
	case ErrCategoryTimeout:
		return "timeout"
	case ErrCategoryConnection:
		return "connection"
	case ErrCategoryApp:
		return "app"
	case ErrCategoryConfig:
		return "config"
	case ErrCategorySession:
		return "session"
	default:
		return "unknown"
	}
}

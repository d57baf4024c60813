package core

import "testing"

func TestCaseStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status CaseStatus
		want   bool
	}{
		{CaseInProgress, false},
		{CasePassed, true},
		{CaseFailed, true},
		{CaseSkipped, true},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestBatchStatus_IsTerminal(t *testing.T) {
	if BatchInProgress.IsTerminal() {
		t.Error("in_progress should not be terminal")
	}
	for _, s := range []BatchStatus{BatchCompleted, BatchPassed, BatchFailed} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}

func TestStepPhase_String(t *testing.T) {
	tests := []struct {
		phase StepPhase
		want  string
	}{
		{PhasePending, "pending"},
		{PhaseLocating, "locating"},
		{PhaseLocated, "located"},
		{PhaseLocateFailed, "locate_failed"},
		{PhaseActing, "acting"},
		{PhaseActed, "acted"},
		{PhaseActFailed, "act_failed"},
		{PhaseRecorded, "recorded"},
		{StepPhase(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("StepPhase(%d).String() = %q, want %q", tt.phase, got, tt.want)
		}
	}
}

func TestArtifactConfig_ShouldCapture(t *testing.T) {
	def := DefaultArtifactConfig()
	if !def.ShouldCapture(false) {
		t.Error("default config should capture on failure")
	}
	if def.ShouldCapture(true) {
		t.Error("default config should not capture on success")
	}

	none := ArtifactConfig{CaptureOnFailure: true}
	if none.ShouldCapture(false) {
		t.Error("nothing to capture when screenshot and page source are off")
	}
}

package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/core"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/flow"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/store"
)

func finishedCase(id string, results ...bool) *core.CaseExecution {
	c := core.NewCaseExecution("exec-"+id, id, id)
	for i, ok := range results {
		r := core.StepResult{Step: core.StepRef{Order: i + 1}, Success: ok}
		if !ok {
			r.Error = "boom"
		}
		_ = c.Record(r)
	}
	c.Finish()
	return c
}

func TestBatchAggregator_CountersAfterEveryFold(t *testing.T) {
	agg := NewBatchAggregator("", "b", "Batch", 3)
	cases := []*core.CaseExecution{
		finishedCase("TC-1", true, true),
		finishedCase("TC-2", true, false),
		finishedCase("TC-3", true),
	}
	wantStatus := []core.BatchStatus{core.BatchInProgress, core.BatchFailed, core.BatchFailed}

	for i, c := range cases {
		if err := agg.Fold(c); err != nil {
			t.Fatalf("Fold(%s) error = %v", c.CaseID, err)
		}
		total, completed, passed := agg.Counters()
		if passed > completed || completed > total {
			t.Fatalf("counter invariant broken: %d/%d/%d", passed, completed, total)
		}
		if got := agg.Status(); got != wantStatus[i] {
			t.Errorf("after %s status = %s, want %s", c.CaseID, got, wantStatus[i])
		}
	}

	b := agg.Finish()
	if b.Total != 3 || b.Completed != 3 || b.Passed != 2 || b.Status != core.BatchFailed {
		t.Errorf("batch = %d/%d/%d %s", b.Total, b.Completed, b.Passed, b.Status)
	}
	if b.EndTime.IsZero() || b.ID == "" {
		t.Error("finished batch needs an ID and end time")
	}
}

func TestBatchAggregator_Statuses(t *testing.T) {
	tests := []struct {
		name  string
		cases []*core.CaseExecution
		skip  int
		want  core.BatchStatus
	}{
		{"all passed", []*core.CaseExecution{finishedCase("a", true), finishedCase("b", true)}, 0, core.BatchPassed},
		{"passed and skipped", []*core.CaseExecution{finishedCase("a", true)}, 1, core.BatchCompleted},
		{"failed and skipped", []*core.CaseExecution{finishedCase("a", false)}, 1, core.BatchFailed},
		{"empty", nil, 0, core.BatchCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewBatchAggregator("run", "b", "B", len(tt.cases)+tt.skip)
			for _, c := range tt.cases {
				if err := agg.Fold(c); err != nil {
					t.Fatal(err)
				}
			}
			for i := 0; i < tt.skip; i++ {
				if err := agg.Skip(flow.TestCase{ID: "skipped"}, "not run"); err != nil {
					t.Fatal(err)
				}
			}
			if got := agg.Finish().Status; got != tt.want {
				t.Errorf("status = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBatchAggregator_RejectsInvalidFolds(t *testing.T) {
	agg := NewBatchAggregator("run", "b", "B", 1)
	running := core.NewCaseExecution("e", "TC-1", "x")
	if err := agg.Fold(running); err == nil {
		t.Error("folding an in-progress case should fail")
	}
	if err := agg.Fold(finishedCase("TC-1", true)); err != nil {
		t.Fatal(err)
	}
	if err := agg.Fold(finishedCase("TC-2", true)); err == nil {
		t.Error("folding beyond total should fail")
	}
	if _, completed, _ := agg.Counters(); completed != 1 {
		t.Errorf("completed = %d", completed)
	}
}

func TestBatchAggregator_AbortIsFailed(t *testing.T) {
	agg := NewBatchAggregator("run", "b", "B", 3)
	_ = agg.Fold(finishedCase("TC-1", true))
	agg.Abort(core.ErrSessionLost, []flow.TestCase{{ID: "TC-2"}, {ID: "TC-3"}})

	b := agg.Finish()
	if b.Status != core.BatchFailed || !b.Aborted || b.Completed != 3 || b.Passed != 1 {
		t.Errorf("batch = %s aborted %v %d/%d", b.Status, b.Aborted, b.Passed, b.Completed)
	}
}

// flakyStore fails writes for chosen cases and steps.
type flakyStore struct {
	failBatch bool
	failCase  map[string]bool // by case execution ID
	failStep  map[int]bool
	cases     []string
	steps     map[string][]int
}

func (f *flakyStore) SaveBatch(context.Context, *core.BatchExecution) error {
	if f.failBatch {
		return errors.New("batch table locked")
	}
	return nil
}

func (f *flakyStore) SaveCase(_ context.Context, _ string, c *core.CaseExecution) error {
	if f.failCase[c.ID] {
		return errors.New("constraint failed")
	}
	f.cases = append(f.cases, c.ID)
	return nil
}

func (f *flakyStore) UpsertStepResult(_ context.Context, executionID string, r core.StepResult) error {
	if f.failStep[r.Step.Order] {
		return errors.New("disk I/O error")
	}
	if f.steps == nil {
		f.steps = make(map[string][]int)
	}
	f.steps[executionID] = append(f.steps[executionID], r.Step.Order)
	return nil
}

func (f *flakyStore) StepResults(context.Context, string) ([]store.StoredStep, error) { return nil, nil }
func (f *flakyStore) Close() error                                                    { return nil }

func TestBatchAggregator_SaveCollectsFailures(t *testing.T) {
	agg := NewBatchAggregator("run", "b", "B", 3)
	for _, c := range []*core.CaseExecution{
		finishedCase("TC-1", true, true),
		finishedCase("TC-2", true),
		finishedCase("TC-3", true, true, true),
	} {
		_ = agg.Fold(c)
	}
	agg.Finish()

	st := &flakyStore{failCase: map[string]bool{"exec-TC-2": true}, failStep: map[int]bool{3: true}}
	rep := agg.Save(context.Background(), st)

	if !rep.FailedToSave {
		t.Error("a case that was not persisted must set FailedToSave")
	}
	if rep.SavedCases != 2 || len(st.cases) != 2 {
		t.Errorf("saved cases = %d (%v)", rep.SavedCases, st.cases)
	}
	if len(rep.Failures) != 2 {
		t.Fatalf("failures = %v", rep.Failures)
	}
	if rep.Failures[0].CaseID != "TC-2" || rep.Failures[1].StepOrder != 3 {
		t.Errorf("failures = %v", rep.Failures)
	}
	if got := st.steps["exec-TC-3"]; len(got) != 2 {
		t.Errorf("TC-3 steps saved = %v, want 1 and 2", got)
	}
	if rep.SavedSteps != 4 {
		t.Errorf("SavedSteps = %d, want 4", rep.SavedSteps)
	}
}

func TestBatchAggregator_StepFailuresAloneAreNotFailedToSave(t *testing.T) {
	agg := NewBatchAggregator("run", "b", "B", 1)
	_ = agg.Fold(finishedCase("TC-1", true, true))

	rep := agg.Save(context.Background(), &flakyStore{failBatch: true, failStep: map[int]bool{2: true}})
	if rep.FailedToSave {
		t.Error("partial step failures should not mark the batch failed-to-save")
	}
	if len(rep.Failures) != 2 {
		t.Errorf("failures = %v", rep.Failures)
	}
}

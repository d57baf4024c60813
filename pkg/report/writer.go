package report

import (
	"fmt"
	"time"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/core"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/flow"
)

// Writer keeps the report of one batch run up to date while it executes.
type Writer struct {
	outputDir string
	index     *IndexWriter
}

// NewWriter writes the skeleton for cases and returns a live writer.
func NewWriter(b *flow.Batch, cases []flow.TestCase, cfg BuilderConfig) (*Writer, error) {
	index := BuildSkeleton(b, cases, cfg)
	if err := WriteSkeleton(cfg.OutputDir, index); err != nil {
		return nil, err
	}
	iw := NewIndexWriter(cfg.OutputDir, index)
	iw.Start()
	return &Writer{outputDir: cfg.OutputDir, index: iw}, nil
}

// CaseStarted marks the case at position idx as running.
func (w *Writer) CaseStarted(idx int) {
	now := time.Now()
	w.index.UpdateCase(idx, &CaseUpdate{Status: StatusRunning, StartTime: &now})
}

// CaseFinished writes the case detail and updates its index entry.
func (w *Writer) CaseFinished(idx int, exec *core.CaseExecution) error {
	cw := NewCaseWriter(w.outputDir, exec)
	if _, err := cw.Write(); err != nil {
		w.index.UpdateCase(idx, caseUpdate(exec, "", ""))
		return err
	}
	w.index.UpdateCase(idx, caseUpdate(exec, cw.DataFile(), cw.AssetsDir()))
	return nil
}

// Finish records the final batch status and closes the writer.
func (w *Writer) Finish(b *core.BatchExecution) error {
	if err := w.index.End(b); err != nil {
		w.index.Close()
		return fmt.Errorf("write index: %w", err)
	}
	return w.index.Close()
}

// Index returns the current index.
func (w *Writer) Index() *Index {
	return w.index.GetIndex()
}

// WriteBatch writes a complete report for a finished batch execution.
func WriteBatch(dir string, b *core.BatchExecution, cfg BuilderConfig) error {
	cfg.OutputDir = dir
	cases := make([]flow.TestCase, len(b.Cases))
	for i, c := range b.Cases {
		cases[i] = flow.TestCase{ID: c.CaseID, Name: c.Name}
	}

	w, err := NewWriter(&flow.Batch{ID: b.BatchID, Name: b.Name}, cases, cfg)
	if err != nil {
		return err
	}
	var firstErr error
	for i, c := range b.Cases {
		if err := w.CaseFinished(i, c); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	w.index.GetIndex().StartTime = b.StartTime
	if err := w.Finish(b); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

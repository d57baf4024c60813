package report

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/core"
)

// IndexWriter provides thread-safe updates to the report index.
type IndexWriter struct {
	mu        sync.Mutex
	outputDir string
	path      string
	index     *Index

	// Debouncing for progress updates
	pending map[int]*CaseUpdate
	timer   *time.Timer
	err     error // last write error
}

// NewIndexWriter creates a new IndexWriter.
func NewIndexWriter(outputDir string, index *Index) *IndexWriter {
	return &IndexWriter{
		outputDir: outputDir,
		path:      filepath.Join(outputDir, "report.json"),
		index:     index,
		pending:   make(map[int]*CaseUpdate),
	}
}

// Start marks the run as started.
func (w *IndexWriter) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	w.index.Status = StatusRunning
	w.index.StartTime = now
	w.index.LastUpdated = now

	w.flushLocked()
}

// UpdateCase updates the entry at position idx.
// Terminal states flush immediately, progress updates are debounced.
func (w *IndexWriter) UpdateCase(idx int, update *CaseUpdate) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[idx] = update

	if update.Status.IsTerminal() {
		w.flushLocked()
		return
	}

	if w.timer == nil {
		w.timer = time.AfterFunc(100*time.Millisecond, func() {
			w.flush()
		})
	}
}

// End marks the run as complete using the final batch execution.
func (w *IndexWriter) End(b *core.BatchExecution) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.applyPending()
	// Cases that never started (skipped after an abort or cancellation)
	for _, c := range b.Cases {
		for i := range w.index.Cases {
			if w.index.Cases[i].CaseID == c.CaseID && !w.index.Cases[i].Status.IsTerminal() {
				w.applyUpdate(i, caseUpdate(c, "", ""))
			}
		}
	}
	now := time.Now()
	if !b.EndTime.IsZero() {
		now = b.EndTime
	}
	w.index.EndTime = &now
	w.index.ExecutionID = b.ID
	w.index.Status = Status(b.Status)
	w.index.Error = b.Error

	w.flushLocked()
	return w.err
}

// Close stops the debounce timer and flushes pending updates.
func (w *IndexWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) > 0 {
		w.flushLocked()
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	return w.err
}

// GetIndex returns the current index (for reading).
func (w *IndexWriter) GetIndex() *Index {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.index
}

// flush applies pending updates and writes to disk.
func (w *IndexWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushLocked()
}

func (w *IndexWriter) applyPending() {
	for idx, update := range w.pending {
		w.applyUpdate(idx, update)
	}
	w.pending = make(map[int]*CaseUpdate)
}

// flushLocked flushes while holding the lock.
func (w *IndexWriter) flushLocked() {
	w.applyPending()

	w.index.UpdateSeq++
	w.index.LastUpdated = time.Now()
	w.index.Summary = w.computeSummary()

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}

	if err := atomicWriteJSON(w.path, w.index); err != nil {
		w.err = err
	}
}

// applyUpdate applies a CaseUpdate to the index.
func (w *IndexWriter) applyUpdate(idx int, update *CaseUpdate) {
	if idx < 0 || idx >= len(w.index.Cases) {
		return
	}
	c := &w.index.Cases[idx]
	c.Status = update.Status
	if update.ExecutionID != "" {
		c.ExecutionID = update.ExecutionID
	}
	if update.DataFile != "" {
		c.DataFile = update.DataFile
	}
	if update.AssetsDir != "" {
		c.AssetsDir = update.AssetsDir
	}
	if update.StartTime != nil {
		c.StartTime = update.StartTime
	}
	if update.EndTime != nil {
		c.EndTime = update.EndTime
	}
	if update.Duration != nil {
		c.Duration = update.Duration
	}
	c.Steps = update.Steps
	if update.Error != nil {
		c.Error = update.Error
	}
	c.UpdateSeq++
}

// computeSummary calculates the summary from case statuses.
func (w *IndexWriter) computeSummary() Summary {
	var s Summary
	for _, c := range w.index.Cases {
		s.Total++
		if c.Status.IsTerminal() {
			s.Completed++
		}
		switch c.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		case StatusRunning:
			s.Running++
		case StatusPending:
			s.Pending++
		}
	}
	return s
}

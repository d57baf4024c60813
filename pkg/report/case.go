package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/core"
)

// CaseWriter writes the detail file and assets of one case execution.
type CaseWriter struct {
	outputDir string
	exec      *core.CaseExecution
	path      string
	assetsDir string
}

// NewCaseWriter creates a writer for exec.
func NewCaseWriter(outputDir string, exec *core.CaseExecution) *CaseWriter {
	return &CaseWriter{
		outputDir: outputDir,
		exec:      exec,
		path:      filepath.Join(outputDir, "cases", exec.ID+".json"),
		assetsDir: filepath.Join(outputDir, "assets", exec.ID),
	}
}

// DataFile returns the detail file path relative to the report directory.
func (w *CaseWriter) DataFile() string {
	return filepath.Join("cases", w.exec.ID+".json")
}

// AssetsDir returns the assets directory relative to the report directory.
func (w *CaseWriter) AssetsDir() string {
	return filepath.Join("assets", w.exec.ID)
}

// Write saves in-memory attachments under assets/, sets their Path, and
// writes the case detail file.
func (w *CaseWriter) Write() (*CaseDetail, error) {
	for i := range w.exec.Steps {
		if err := w.saveAttachments(&w.exec.Steps[i]); err != nil {
			return nil, err
		}
	}

	detail := BuildCaseDetail(w.exec)
	if err := atomicWriteJSON(w.path, detail); err != nil {
		return nil, fmt.Errorf("write case %s: %w", w.exec.CaseID, err)
	}
	return detail, nil
}

// saveAttachments writes each attachment body once and returns the first error.
func (w *CaseWriter) saveAttachments(r *core.StepResult) error {
	for i := range r.Attachments {
		a := &r.Attachments[i]
		if a.Path != "" || len(a.Body) == 0 {
			continue
		}
		ext := ".bin"
		switch a.ContentType {
		case core.ContentTypePNG:
			ext = ".png"
		case core.ContentTypeXML:
			ext = ".xml"
		}
		if err := ensureDir(w.assetsDir); err != nil {
			return fmt.Errorf("create assets dir: %w", err)
		}
		filename := fmt.Sprintf("step-%03d-%s%s", r.Step.Order, a.Name, ext)
		if err := os.WriteFile(filepath.Join(w.assetsDir, filename), a.Body, 0o644); err != nil {
			return fmt.Errorf("save %s: %w", filename, err)
		}
		a.Path = filepath.Join(w.AssetsDir(), filename)
	}
	return nil
}

// BuildCaseDetail converts a case execution into its report form.
func BuildCaseDetail(exec *core.CaseExecution) *CaseDetail {
	d := &CaseDetail{
		ExecutionID: exec.ID,
		CaseID:      exec.CaseID,
		Name:        exec.Name,
		Status:      Status(exec.Status),
		StartTime:   exec.StartTime,
		Aborted:     exec.Aborted,
		Error:       exec.Error,
		Steps:       make([]StepEntry, 0, len(exec.Steps)),
	}
	if !exec.EndTime.IsZero() {
		end := exec.EndTime
		d.EndTime = &end
		ms := end.Sub(exec.StartTime).Milliseconds()
		d.Duration = &ms
	}

	for _, r := range exec.Steps {
		entry := StepEntry{
			Order:     r.Step.Order,
			Strategy:  r.Step.Strategy,
			ElementID: r.Step.ElementID,
			Action:    r.Step.Action,
			Status:    StatusPassed,
			StartTime: r.StartTime,
			EndTime:   r.EndTime,
			Result:    r.Descriptor(),
		}
		if !r.Success {
			entry.Status = StatusFailed
			entry.Error = &Error{Type: r.Category.String(), Code: r.ErrorCode, Message: r.Error}
		}
		for _, a := range r.Attachments {
			switch a.Name {
			case core.AttachmentScreenshot:
				entry.Artifacts.Screenshot = a.Path
			case core.AttachmentPageSource:
				entry.Artifacts.PageSource = a.Path
			}
		}
		d.Steps = append(d.Steps, entry)
	}
	return d
}

// caseUpdate summarizes exec for the index.
func caseUpdate(exec *core.CaseExecution, dataFile, assetsDir string) *CaseUpdate {
	passed, failed := exec.Counts()
	u := &CaseUpdate{
		Status:      Status(exec.Status),
		ExecutionID: exec.ID,
		DataFile:    dataFile,
		AssetsDir:   assetsDir,
		Steps: StepSummary{
			Total:  len(exec.Steps) + exec.NotRun,
			Passed: passed,
			Failed: failed,
			NotRun: exec.NotRun,
		},
	}
	if !exec.StartTime.IsZero() {
		start := exec.StartTime
		u.StartTime = &start
	}
	if !exec.EndTime.IsZero() {
		end := exec.EndTime
		u.EndTime = &end
		ms := end.Sub(exec.StartTime).Milliseconds()
		u.Duration = &ms
	}
	if exec.Error != "" {
		msg := exec.Error
		u.Error = &msg
	}
	return u
}

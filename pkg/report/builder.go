package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/flow"
)

// BuilderConfig contains run metadata for the report.
type BuilderConfig struct {
	OutputDir     string
	Device        Device
	RunnerVersion string
	DriverName    string
	SessionPolicy string
}

// BuildSkeleton creates the initial index with every case pending.
func BuildSkeleton(b *flow.Batch, cases []flow.TestCase, cfg BuilderConfig) *Index {
	index := &Index{
		Version:    Version,
		BatchID:    b.ID,
		Name:       b.Name,
		SourceFile: b.SourcePath,
		Status:     StatusPending,
		StartTime:  time.Now(),
		Device:     cfg.Device,
		Runner: RunnerInfo{
			Version: cfg.RunnerVersion,
			Driver:  cfg.DriverName,
			Policy:  cfg.SessionPolicy,
		},
		Cases: make([]CaseEntry, len(cases)),
	}
	for i, tc := range cases {
		name := tc.Name
		if name == "" {
			name = tc.ID
		}
		index.Cases[i] = CaseEntry{
			Index:  i,
			CaseID: tc.ID,
			Name:   name,
			Status: StatusPending,
			Steps:  StepSummary{Total: len(tc.Steps)},
		}
	}
	index.Summary = Summary{Total: len(cases), Pending: len(cases)}
	return index
}

// WriteSkeleton writes the initial index and creates the report directories.
func WriteSkeleton(outputDir string, index *Index) error {
	if err := ensureDir(filepath.Join(outputDir, "cases")); err != nil {
		return fmt.Errorf("create cases dir: %w", err)
	}
	if err := ensureDir(filepath.Join(outputDir, "assets")); err != nil {
		return fmt.Errorf("create assets dir: %w", err)
	}
	if err := atomicWriteJSON(filepath.Join(outputDir, "report.json"), index); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// atomicWriteJSON writes v to a temp file and renames it over path, so
// readers polling the file never see a partial write.
func atomicWriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// ReadIndex reads report.json from a report directory.
func ReadIndex(dir string) (*Index, error) {
	data, err := os.ReadFile(filepath.Join(dir, "report.json"))
	if err != nil {
		return nil, err
	}
	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("parse report.json: %w", err)
	}
	return &index, nil
}

// ReadCase reads a case detail file given its path relative to dir.
func ReadCase(dir, dataFile string) (*CaseDetail, error) {
	data, err := os.ReadFile(filepath.Join(dir, dataFile))
	if err != nil {
		return nil, err
	}
	var detail CaseDetail
	if err := json.Unmarshal(data, &detail); err != nil {
		return nil, fmt.Errorf("parse %s: %w", dataFile, err)
	}
	return &detail, nil
}

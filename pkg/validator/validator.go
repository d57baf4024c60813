// Package validator validates batch files before execution.
// It parses every file upfront and reports all problems at once.
package validator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/flow"
)

// ValidationError represents a validation error with context.
type ValidationError struct {
	File    string
	CaseID  string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.CaseID != "" {
		return fmt.Sprintf("%s: case %s: %s", e.File, e.CaseID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Result contains the validation result.
type Result struct {
	// Files is the list of batch file paths in execution order.
	Files []string
	// Batches holds the parsed batches with Cases narrowed to the tag filters.
	Batches []*flow.Batch
	// Errors contains all validation errors found.
	Errors []error
}

// IsValid returns true if there are no validation errors.
func (r *Result) IsValid() bool {
	return len(r.Errors) == 0
}

// Cases returns the number of selected cases across all batches.
func (r *Result) Cases() int {
	n := 0
	for _, b := range r.Batches {
		n += len(b.Cases)
	}
	return n
}

// Steps returns the number of steps in the selected cases.
func (r *Result) Steps() int {
	n := 0
	for _, b := range r.Batches {
		for _, tc := range b.Cases {
			n += len(tc.Steps)
		}
	}
	return n
}

// Validator validates batch files.
type Validator struct {
	includeTags []string
	excludeTags []string
	params      map[string]string
}

// New creates a new Validator. params supplement each batch's own
// parameters when checking dynamic inputs, taking precedence over them.
func New(includeTags, excludeTags []string, params map[string]string) *Validator {
	return &Validator{
		includeTags: includeTags,
		excludeTags: excludeTags,
		params:      params,
	}
}

// Validate validates a file or directory.
func (v *Validator) Validate(path string) *Result {
	result := &Result{}

	info, err := os.Stat(path)
	if err != nil {
		result.Errors = append(result.Errors, &ValidationError{
			File:    path,
			Message: fmt.Sprintf("cannot access: %v", err),
			Err:     err,
		})
		return result
	}

	var files []string
	if info.IsDir() {
		files, err = v.collectBatchFiles(path)
		if err != nil {
			result.Errors = append(result.Errors, &ValidationError{
				File:    path,
				Message: fmt.Sprintf("failed to scan directory: %v", err),
				Err:     err,
			})
			return result
		}
	} else {
		files = []string{path}
	}

	batchIDs := make(map[string]string) // id -> first file
	for _, file := range files {
		b := v.validateFile(file, result)
		if b == nil {
			continue
		}
		if b.ID != "" {
			if first, dup := batchIDs[b.ID]; dup {
				result.Errors = append(result.Errors, &ValidationError{
					File:    file,
					Message: fmt.Sprintf("batch id %q already used by %s", b.ID, first),
				})
			} else {
				batchIDs[b.ID] = file
			}
		}
	}

	return result
}

// collectBatchFiles finds all .yaml/.yml files in a directory.
func (v *Validator) collectBatchFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		// Runner config lives next to batch files
		base := strings.ToLower(info.Name())
		if base == "mbrunner.yaml" || base == "mbrunner.yml" {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

// validateFile parses one batch file and checks every selected case.
func (v *Validator) validateFile(filePath string, result *Result) *flow.Batch {
	b, err := flow.ParseBatchFile(filePath)
	if err != nil {
		result.Errors = append(result.Errors, &ValidationError{
			File:    filePath,
			Message: fmt.Sprintf("parse error: %v", err),
			Err:     err,
		})
		return nil
	}

	params := make(map[string]string, len(b.Parameters)+len(v.params))
	for k, val := range b.Parameters {
		params[k] = val
	}
	for k, val := range v.params {
		params[k] = val
	}
	b.Parameters = params

	seen := make(map[string]bool, len(b.Cases))
	for _, tc := range b.Cases {
		switch {
		case tc.ID == "":
			result.Errors = append(result.Errors, &ValidationError{File: filePath, Message: "test case without id"})
		case seen[tc.ID]:
			result.Errors = append(result.Errors, &ValidationError{File: filePath, CaseID: tc.ID, Message: "duplicate test case id"})
		}
		seen[tc.ID] = true
	}

	b.Cases = b.Filter(v.includeTags, v.excludeTags)
	for i := range b.Cases {
		tc := &b.Cases[i]
		if err := tc.Validate(b.Parameters); err != nil {
			result.Errors = append(result.Errors, &ValidationError{
				File:    filePath,
				CaseID:  tc.ID,
				Message: err.Error(),
				Err:     err,
			})
		}
	}

	result.Files = append(result.Files, filePath)
	result.Batches = append(result.Batches, b)
	return b
}

package flow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseError represents a parsing error with location info.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// CaseError ties a validation error to its test case.
type CaseError struct {
	CaseID string
	Err    error
}

func (e *CaseError) Error() string {
	return fmt.Sprintf("test case %s: %v", e.CaseID, e.Err)
}

func (e *CaseError) Unwrap() error {
	return e.Err
}

// StepDescriptor is the step shape handed over by the persistence/API layer.
type StepDescriptor struct {
	StepOrder             int     `yaml:"step_order" json:"step_order"`
	ElementIdentifierType string  `yaml:"element_identifier_type" json:"element_identifier_type"`
	ElementID             string  `yaml:"element_id" json:"element_id"`
	Action                string  `yaml:"action" json:"action"`
	ActualInput           *string `yaml:"actual_input" json:"actual_input"`
	InputType             string  `yaml:"input_type,omitempty" json:"input_type,omitempty"`
	ParameterName         string  `yaml:"parameter_name,omitempty" json:"parameter_name,omitempty"`
}

// ToStep converts the descriptor into a typed step. Unknown strategies and
// actions are rejected here, before any session exists.
func (d StepDescriptor) ToStep() (Step, error) {
	strategy, err := ParseStrategy(d.ElementIdentifierType)
	if err != nil {
		return Step{}, err
	}
	action, err := ParseAction(d.Action)
	if err != nil {
		return Step{}, err
	}

	inputType := InputStatic
	switch d.InputType {
	case "", string(InputStatic):
	case string(InputDynamic):
		inputType = InputDynamic
	default:
		return Step{}, fmt.Errorf("unknown input_type: %s", d.InputType)
	}

	return Step{
		Order:         d.StepOrder,
		Strategy:      strategy,
		Target:        d.ElementID,
		Action:        action,
		Input:         d.ActualInput,
		InputType:     inputType,
		ParameterName: d.ParameterName,
	}, nil
}

// ParseBatchFile parses a batch file.
func ParseBatchFile(path string) (*Batch, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is user-provided batch file
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseBatch(data, path)
}

type rawCase struct {
	TestCase `yaml:",inline"`
	Steps    []yaml.Node `yaml:"steps"`
}

// ParseBatch parses batch YAML (or JSON) content. Steps are sorted by
// step order; validation is left to Batch.Validate.
func ParseBatch(data []byte, sourcePath string) (*Batch, error) {
	var raw struct {
		Batch `yaml:",inline"`
		Cases []yaml.Node `yaml:"cases"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Path: sourcePath, Message: fmt.Sprintf("invalid batch: %v", err), Err: err}
	}

	batch := raw.Batch
	batch.SourcePath = sourcePath
	if len(raw.Cases) == 0 {
		return nil, &ParseError{Path: sourcePath, Line: 1, Message: "batch has no test cases"}
	}

	for i := range raw.Cases {
		tc, err := parseCase(&raw.Cases[i], sourcePath)
		if err != nil {
			return nil, err
		}
		batch.Cases = append(batch.Cases, tc)
	}
	return &batch, nil
}

func parseCase(node *yaml.Node, sourcePath string) (TestCase, error) {
	var rc rawCase
	if err := node.Decode(&rc); err != nil {
		return TestCase{}, wrapParseError(sourcePath, node.Line, err)
	}

	tc := rc.TestCase
	for i := range rc.Steps {
		step, err := parseStep(&rc.Steps[i], sourcePath)
		if err != nil {
			return TestCase{}, err
		}
		tc.Steps = append(tc.Steps, step)
	}
	SortSteps(tc.Steps)
	return tc, nil
}

func parseStep(node *yaml.Node, sourcePath string) (Step, error) {
	if node.Kind != yaml.MappingNode {
		return Step{}, &ParseError{
			Path:    sourcePath,
			Line:    node.Line,
			Message: "step must be a mapping",
		}
	}

	var d StepDescriptor
	if err := node.Decode(&d); err != nil {
		return Step{}, wrapParseError(sourcePath, node.Line, err)
	}
	step, err := d.ToStep()
	if err != nil {
		return Step{}, wrapParseError(sourcePath, node.Line, err)
	}
	return step, nil
}

func wrapParseError(path string, line int, err error) error {
	return &ParseError{
		Path:    path,
		Line:    line,
		Message: err.Error(),
		Err:     err,
	}
}

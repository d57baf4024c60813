// Package flow handles parsing and representation of test case batches:
// locator strategies, actions, steps and the cases that group them.
package flow

// Batch is a named collection of test cases executed as one unit.
type Batch struct {
	SourcePath   string                 `yaml:"-"`
	ID           string                 `yaml:"id"`
	Name         string                 `yaml:"name"`
	Parameters   map[string]string      `yaml:"parameters"`   // Values for dynamic step inputs
	Capabilities map[string]interface{} `yaml:"capabilities"` // Session capabilities for this batch
	Cases        []TestCase             `yaml:"-"`
}

// TestCase is an ordered list of steps.
type TestCase struct {
	ID    string   `yaml:"id"`
	Name  string   `yaml:"name"`
	Tags  []string `yaml:"tags"`
	Steps []Step   `yaml:"-"`
}

// Validate checks every case of the batch before any session is opened.
func (b *Batch) Validate() error {
	seen := make(map[string]bool, len(b.Cases))
	for _, tc := range b.Cases {
		if tc.ID == "" {
			return &ParseError{Path: b.SourcePath, Message: "test case without id"}
		}
		if seen[tc.ID] {
			return &ParseError{Path: b.SourcePath, Message: "duplicate test case id: " + tc.ID}
		}
		seen[tc.ID] = true
		if err := tc.Validate(b.Parameters); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks step ordering and that dynamic inputs can be resolved.
func (tc *TestCase) Validate(params map[string]string) error {
	if err := ValidateOrder(tc.Steps); err != nil {
		return &CaseError{CaseID: tc.ID, Err: err}
	}
	for _, s := range tc.Steps {
		if err := s.Validate(params); err != nil {
			return &CaseError{CaseID: tc.ID, Err: err}
		}
	}
	return nil
}

// Filter returns the cases that match the tag filters.
func (b *Batch) Filter(includeTags, excludeTags []string) []TestCase {
	cases := make([]TestCase, 0, len(b.Cases))
	for _, tc := range b.Cases {
		if ShouldIncludeCase(tc, includeTags, excludeTags) {
			cases = append(cases, tc)
		}
	}
	return cases
}

// ShouldIncludeCase checks if a test case matches tag filters.
func ShouldIncludeCase(tc TestCase, includeTags, excludeTags []string) bool {
	if len(includeTags) > 0 {
		hasTag := false
		for _, tag := range tc.Tags {
			for _, include := range includeTags {
				if tag == include {
					hasTag = true
					break
				}
			}
		}
		if !hasTag {
			return false
		}
	}

	for _, tag := range tc.Tags {
		for _, exclude := range excludeTags {
			if tag == exclude {
				return false
			}
		}
	}

	return true
}

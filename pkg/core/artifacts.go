// Package core provides the execution model types: step and case results,
// batch counters, the error taxonomy and the remote automation contract.
package core

// Attachment represents a debug artifact captured during step execution
type Attachment struct {
	Name        string `json:"name"`        // Descriptive name: screenshot, page_source
	ContentType string `json:"contentType"` // MIME type: image/png, application/xml
	Path        string `json:"path"`        // File path relative to output directory, set by the report writer
	Body        []byte `json:"-"`           // In-memory content (not serialized to JSON)
}

// Common attachment names
const (
	AttachmentScreenshot = "screenshot"
	AttachmentPageSource = "page_source"
)

// Common content types
const (
	ContentTypePNG = "image/png"
	ContentTypeXML = "application/xml"
)

// NewScreenshotAttachment creates a screenshot attachment
func NewScreenshotAttachment(data []byte) Attachment {
	return Attachment{
		Name:        AttachmentScreenshot,
		ContentType: ContentTypePNG,
		Body:        data,
	}
}

// NewPageSourceAttachment creates a page source attachment
func NewPageSourceAttachment(data []byte) Attachment {
	return Attachment{
		Name:        AttachmentPageSource,
		ContentType: ContentTypeXML,
		Body:        data,
	}
}

// ArtifactConfig controls when and what artifacts are captured
type ArtifactConfig struct {
	// When to capture
	CaptureOnFailure bool `yaml:"captureOnFailure" json:"captureOnFailure"` // Default: true
	CaptureOnSuccess bool `yaml:"captureOnSuccess" json:"captureOnSuccess"` // Default: false

	// What to capture
	Screenshot bool `yaml:"screenshot" json:"screenshot"` // Default: true
	PageSource bool `yaml:"pageSource" json:"pageSource"` // Default: false
}

// DefaultArtifactConfig returns sensible defaults for artifact capture
func DefaultArtifactConfig() ArtifactConfig {
	return ArtifactConfig{
		CaptureOnFailure: true,
		Screenshot:       true,
	}
}

// ShouldCapture returns true if artifacts should be captured for a step outcome
func (c ArtifactConfig) ShouldCapture(success bool) bool {
	if !c.Screenshot && !c.PageSource {
		return false
	}
	if success {
		return c.CaptureOnSuccess
	}
	return c.CaptureOnFailure
}

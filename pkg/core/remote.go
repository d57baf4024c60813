package core

import "context"

// W3C element reference key returned by find-element.
const ElementKey = "element-6066-11e4-a52e-4f735466cecf"

// SessionHandle identifies a session opened on the automation server.
type SessionHandle struct {
	ID           string                 `json:"sessionId"`
	Capabilities map[string]interface{} `json:"capabilities"` // as negotiated by the server
}

// Remote is the WebDriver-style protocol consumed by the engine.
// Every call is a blocking round trip to the automation server.
//
// Implementations classify failures with the core sentinels:
// a missing element is ErrElementNotFound, a dropped session is
// ErrSessionLost and an unreachable server is ErrServerUnreachable.
type Remote interface {
	// Session lifecycle
	NewSession(ctx context.Context, caps map[string]interface{}) (SessionHandle, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Element lookup, returns the element ID
	FindElement(ctx context.Context, sessionID, using, value string) (string, error)

	// Element state
	IsElementDisplayed(ctx context.Context, sessionID, elementID string) (bool, error)
	IsElementEnabled(ctx context.Context, sessionID, elementID string) (bool, error)
	GetElementText(ctx context.Context, sessionID, elementID string) (string, error)

	// Element interaction
	ClickElement(ctx context.Context, sessionID, elementID string) error
	ClearElement(ctx context.Context, sessionID, elementID string) error
	SendKeys(ctx context.Context, sessionID, elementID, text string) error

	// Debug artifacts
	Screenshot(ctx context.Context, sessionID string) ([]byte, error)
	Source(ctx context.Context, sessionID string) (string, error)
}

// Element is a resolved element handle bound to the session that found it.
type Element struct {
	ID        string
	SessionID string
}

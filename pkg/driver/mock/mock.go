// Package mock provides a scriptable core.Remote for tests and dry runs
// without a device or automation server.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/core"
)

// Config configures mock remote behavior.
type Config struct {
	// StartFailures makes the first N NewSession calls fail.
	StartFailures int
	// CallDelay adds artificial latency to session start and find-element calls
	CallDelay time.Duration
	// Strict makes unknown locators behave as missing elements.
	Strict bool
	// Platform info to report
	Platform string
	DeviceID string
}

// Element scripts how one locator behaves.
type Element struct {
	Missing     bool   // Never found
	AppearAfter int    // Find attempts answered "no such element" before it appears
	ReadyAfter  int    // Readiness checks answered "not displayed" before it is ready
	Disabled    bool   // Found and displayed but never enabled
	Hang        bool   // Find blocks until the context ends
	Text        string // Returned by get_text
	Hidden      bool   // Reported by is_displayed after it became ready

	ClickErr    error
	ClearErr    error
	SendKeysErr error
}

type elementState struct {
	cfg    Element
	finds  int
	checks int
	id     string
	typed  string
}

// Remote is a mock implementation of core.Remote.
type Remote struct {
	Config Config

	mu        sync.Mutex
	elements  map[string]*elementState // by locator
	byID      map[string]*elementState
	sessions  map[string]bool // alive
	starts    int
	calls     []string
}

var _ core.Remote = (*Remote)(nil)

// New creates a new mock remote.
func New(cfg Config) *Remote {
	if cfg.Platform == "" {
		cfg.Platform = "mock"
	}
	if cfg.DeviceID == "" {
		cfg.DeviceID = "mock-device"
	}
	return &Remote{
		Config:   cfg,
		elements: make(map[string]*elementState),
		byID:     make(map[string]*elementState),
		sessions: make(map[string]bool),
	}
}

func locatorKey(using, value string) string {
	return using + "=" + value
}

// SetElement scripts the element behind a locator.
func (m *Remote) SetElement(using, value string, el Element) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.elements[locatorKey(using, value)] = &elementState{cfg: el}
}

// DropSession makes the server forget a session, as after a crash.
func (m *Remote) DropSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// ActiveSessions returns the number of live sessions.
func (m *Remote) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StartAttempts returns how many times NewSession was called.
func (m *Remote) StartAttempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}

// FindCount returns how many find-element calls were made for a locator.
func (m *Remote) FindCount(using, value string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.elements[locatorKey(using, value)]; ok {
		return st.finds
	}
	return 0
}

// Typed returns the text sent to the element behind a locator.
func (m *Remote) Typed(using, value string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.elements[locatorKey(using, value)]; ok {
		return st.typed
	}
	return ""
}

// Calls returns the recorded call log ("click e1", "find id=x", ...).
func (m *Remote) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *Remote) delay(ctx context.Context) error {
	if m.Config.CallDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(m.Config.CallDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NewSession simulates creating a session.
func (m *Remote) NewSession(ctx context.Context, caps map[string]interface{}) (core.SessionHandle, error) {
	if err := m.delay(ctx); err != nil {
		return core.SessionHandle{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.starts++
	if m.starts <= m.Config.StartFailures {
		return core.SessionHandle{}, core.ErrSessionStartFailed.WithMessage(fmt.Sprintf("mock start failure %d", m.starts))
	}

	id := "mock-" + uuid.NewString()
	m.sessions[id] = true

	negotiated := make(map[string]interface{}, len(caps)+2)
	for k, v := range caps {
		negotiated[k] = v
	}
	negotiated["platformName"] = m.Config.Platform
	negotiated["deviceUDID"] = m.Config.DeviceID
	return core.SessionHandle{ID: id, Capabilities: negotiated}, nil
}

// DeleteSession simulates closing a session.
func (m *Remote) DeleteSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.sessions[sessionID] {
		return core.ErrSessionLost.WithMessage("invalid session id: " + sessionID)
	}
	delete(m.sessions, sessionID)
	return nil
}

// checkSession must be called with m.mu held.
func (m *Remote) checkSession(sessionID string) error {
	if !m.sessions[sessionID] {
		return core.ErrSessionLost.WithMessage("invalid session id: " + sessionID)
	}
	return nil
}

// FindElement simulates element lookup.
func (m *Remote) FindElement(ctx context.Context, sessionID, using, value string) (string, error) {
	if err := m.delay(ctx); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.calls = append(m.calls, "find "+locatorKey(using, value))
	if err := m.checkSession(sessionID); err != nil {
		m.mu.Unlock()
		return "", err
	}
	st, ok := m.elements[locatorKey(using, value)]
	if !ok {
		if m.Config.Strict {
			st = &elementState{cfg: Element{Missing: true}}
		} else {
			st = &elementState{}
		}
		m.elements[locatorKey(using, value)] = st
	}
	st.finds++
	hang := st.cfg.Hang
	m.mu.Unlock()

	if hang {
		<-ctx.Done()
		return "", ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if st.cfg.Missing || st.finds <= st.cfg.AppearAfter {
		return "", core.ErrElementNotFound.WithMessage(fmt.Sprintf("no such element: %s", locatorKey(using, value)))
	}
	if st.id == "" {
		st.id = fmt.Sprintf("el-%d", len(m.byID)+1)
		m.byID[st.id] = st
	}
	return st.id, nil
}

// element must be called with m.mu held.
func (m *Remote) element(ctx context.Context, sessionID, elementID, call string) (*elementState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.calls = append(m.calls, call+" "+elementID)
	if err := m.checkSession(sessionID); err != nil {
		return nil, err
	}
	st, ok := m.byID[elementID]
	if !ok {
		return nil, fmt.Errorf("stale element reference: %s", elementID)
	}
	return st, nil
}

// IsElementDisplayed reports readiness while the element is settling and
// the scripted visibility afterwards.
func (m *Remote) IsElementDisplayed(ctx context.Context, sessionID, elementID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, err := m.element(ctx, sessionID, elementID, "displayed")
	if err != nil {
		return false, err
	}
	st.checks++
	if st.checks <= st.cfg.ReadyAfter {
		return false, nil
	}
	return !st.cfg.Hidden, nil
}

// IsElementEnabled simulates the enabled check.
func (m *Remote) IsElementEnabled(ctx context.Context, sessionID, elementID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, err := m.element(ctx, sessionID, elementID, "enabled")
	if err != nil {
		return false, err
	}
	return !st.cfg.Disabled, nil
}

// GetElementText returns the scripted text.
func (m *Remote) GetElementText(ctx context.Context, sessionID, elementID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, err := m.element(ctx, sessionID, elementID, "text")
	if err != nil {
		return "", err
	}
	return st.cfg.Text, nil
}

// ClickElement simulates a click.
func (m *Remote) ClickElement(ctx context.Context, sessionID, elementID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, err := m.element(ctx, sessionID, elementID, "click")
	if err != nil {
		return err
	}
	return st.cfg.ClickErr
}

// ClearElement simulates clearing a text field.
func (m *Remote) ClearElement(ctx context.Context, sessionID, elementID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, err := m.element(ctx, sessionID, elementID, "clear")
	if err != nil {
		return err
	}
	if st.cfg.ClearErr != nil {
		return st.cfg.ClearErr
	}
	st.typed = ""
	return nil
}

// SendKeys records typed text.
func (m *Remote) SendKeys(ctx context.Context, sessionID, elementID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, err := m.element(ctx, sessionID, elementID, "send_keys")
	if err != nil {
		return err
	}
	if st.cfg.SendKeysErr != nil {
		return st.cfg.SendKeysErr
	}
	st.typed += text
	return nil
}

// Screenshot returns a mock PNG image.
func (m *Remote) Screenshot(ctx context.Context, sessionID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkSession(sessionID); err != nil {
		return nil, err
	}
	// Minimal valid PNG (1x1 transparent pixel)
	return []byte{
		0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, // PNG signature
		0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52, // IHDR chunk
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4,
		0x89, 0x00, 0x00, 0x00, 0x0A, 0x49, 0x44, 0x41,
		0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00,
		0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00,
		0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE,
		0x42, 0x60, 0x82,
	}, nil
}

// Source returns a mock view hierarchy.
func (m *Remote) Source(ctx context.Context, sessionID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkSession(sessionID); err != nil {
		return "", err
	}
	return `<hierarchy><android.widget.Button resource-id="mock-element" text="Mock Element"/></hierarchy>`, nil
}

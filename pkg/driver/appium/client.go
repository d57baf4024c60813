// Package appium implements core.Remote against an Appium server using the
// W3C WebDriver protocol.
package appium

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/core"
)

// Client handles HTTP communication with Appium server.
// It holds no session state; every session call names its session.
type Client struct {
	serverURL string
	client    *http.Client
}

var _ core.Remote = (*Client)(nil)

// NewClient creates a new Appium client.
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: strings.TrimSuffix(serverURL, "/"),
		client: &http.Client{
			Timeout: 5 * time.Minute, // Long timeout for install/screenshot
		},
	}
}

// WebDriverError is an error payload returned by the server.
type WebDriverError struct {
	Status  int
	Code    string // W3C error code: no such element, invalid session id, ...
	Message string
}

func (e *WebDriverError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Status reports whether the server is ready to create sessions.
func (c *Client) Status(ctx context.Context) (bool, string, error) {
	resp, err := c.get(ctx, "/status")
	if err != nil {
		return false, "", err
	}
	return resp.Get("value.ready").Bool(), resp.Get("value.message").String(), nil
}

// NewSession creates a new session with the given capabilities.
func (c *Client) NewSession(ctx context.Context, caps map[string]interface{}) (core.SessionHandle, error) {
	body := map[string]interface{}{
		"capabilities": map[string]interface{}{
			"alwaysMatch": caps,
		},
	}

	resp, err := c.post(ctx, "/session", body)
	if err != nil {
		return core.SessionHandle{}, err
	}

	id := resp.Get("value.sessionId").String()
	if id == "" {
		// JSONWP servers put the id at the top level
		id = resp.Get("sessionId").String()
	}
	if id == "" {
		return core.SessionHandle{}, core.ErrSessionStartFailed.WithMessage("no session ID in response")
	}

	negotiated, _ := resp.Get("value.capabilities").Value().(map[string]interface{})
	if negotiated == nil {
		negotiated = map[string]interface{}{}
	}

	// The engine does its own polling, so UiAutomator2 must not add an implicit
	// selector wait on top of it. Older servers may reject the call.
	if strings.EqualFold(fmt.Sprint(negotiated["platformName"]), "android") {
		_ = c.SetSettings(ctx, id, map[string]interface{}{"waitForSelectorTimeout": 0})
	}

	return core.SessionHandle{ID: id, Capabilities: negotiated}, nil
}

// DeleteSession closes the session.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := c.delete(ctx, sessionPath(sessionID))
	return err
}

// Element Operations

// FindElement finds a single element and returns its ID.
func (c *Client) FindElement(ctx context.Context, sessionID, using, value string) (string, error) {
	body := map[string]interface{}{
		"using": using,
		"value": value,
	}

	resp, err := c.post(ctx, sessionPath(sessionID)+"/element", body)
	if err != nil {
		return "", err
	}

	id := extractElementID(resp.Get("value"))
	if id == "" {
		return "", core.ErrElementNotFound.WithMessage(fmt.Sprintf("no element reference for %s=%s", using, value))
	}
	return id, nil
}

// ClickElement clicks an element using WebDriver standard endpoint.
func (c *Client) ClickElement(ctx context.Context, sessionID, elementID string) error {
	_, err := c.post(ctx, elementPath(sessionID, elementID)+"/click", map[string]interface{}{})
	return err
}

// ClearElement clears an element's text.
func (c *Client) ClearElement(ctx context.Context, sessionID, elementID string) error {
	_, err := c.post(ctx, elementPath(sessionID, elementID)+"/clear", map[string]interface{}{})
	return err
}

// SendKeys types text into an element.
func (c *Client) SendKeys(ctx context.Context, sessionID, elementID, text string) error {
	_, err := c.post(ctx, elementPath(sessionID, elementID)+"/value", map[string]interface{}{
		"text":  text,
		"value": strings.Split(text, ""), // legacy servers read the char array
	})
	return err
}

// GetElementText returns an element's text.
func (c *Client) GetElementText(ctx context.Context, sessionID, elementID string) (string, error) {
	resp, err := c.get(ctx, elementPath(sessionID, elementID)+"/text")
	if err != nil {
		return "", err
	}
	return resp.Get("value").String(), nil
}

// IsElementDisplayed checks if element is visible.
func (c *Client) IsElementDisplayed(ctx context.Context, sessionID, elementID string) (bool, error) {
	resp, err := c.get(ctx, elementPath(sessionID, elementID)+"/displayed")
	if err != nil {
		return false, err
	}
	return resp.Get("value").Bool(), nil
}

// IsElementEnabled checks if element is enabled.
func (c *Client) IsElementEnabled(ctx context.Context, sessionID, elementID string) (bool, error) {
	resp, err := c.get(ctx, elementPath(sessionID, elementID)+"/enabled")
	if err != nil {
		return false, err
	}
	return resp.Get("value").Bool(), nil
}

// Screen Operations

// Screenshot returns a screenshot as PNG bytes.
func (c *Client) Screenshot(ctx context.Context, sessionID string) ([]byte, error) {
	resp, err := c.get(ctx, sessionPath(sessionID)+"/screenshot")
	if err != nil {
		return nil, err
	}
	encoded := resp.Get("value")
	if encoded.Type != gjson.String {
		return nil, fmt.Errorf("invalid screenshot response")
	}
	return base64.StdEncoding.DecodeString(encoded.String())
}

// Source returns the page source XML.
func (c *Client) Source(ctx context.Context, sessionID string) (string, error) {
	resp, err := c.get(ctx, sessionPath(sessionID)+"/source")
	if err != nil {
		return "", err
	}
	return resp.Get("value").String(), nil
}

// SetSettings updates Appium driver settings.
func (c *Client) SetSettings(ctx context.Context, sessionID string, settings map[string]interface{}) error {
	_, err := c.post(ctx, sessionPath(sessionID)+"/appium/settings", map[string]interface{}{
		"settings": settings,
	})
	return err
}

// HTTP Helpers

func sessionPath(sessionID string) string {
	return "/session/" + sessionID
}

func elementPath(sessionID, elementID string) string {
	return sessionPath(sessionID) + "/element/" + elementID
}

func (c *Client) get(ctx context.Context, path string) (gjson.Result, error) {
	return c.request(ctx, http.MethodGet, path, nil)
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (gjson.Result, error) {
	return c.request(ctx, http.MethodPost, path, body)
}

func (c *Client) delete(ctx context.Context, path string) (gjson.Result, error) {
	return c.request(ctx, http.MethodDelete, path, nil)
}

func (c *Client) request(ctx context.Context, method, path string, body interface{}) (gjson.Result, error) {
	url := c.serverURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return gjson.Result{}, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return gjson.Result{}, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return gjson.Result{}, ctxErr
		}
		return gjson.Result{}, core.ErrServerUnreachable.WithCause(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, err
	}

	if !gjson.ValidBytes(respBody) {
		if resp.StatusCode >= http.StatusBadRequest {
			return gjson.Result{}, classify(&WebDriverError{
				Status:  resp.StatusCode,
				Code:    "unknown error",
				Message: strings.TrimSpace(string(respBody)),
			})
		}
		return gjson.Result{}, fmt.Errorf("failed to parse response: %q", truncate(string(respBody), 200))
	}

	result := gjson.ParseBytes(respBody)

	// Check for WebDriver error
	if code := result.Get("value.error"); code.Exists() && code.String() != "" {
		return result, classify(&WebDriverError{
			Status:  resp.StatusCode,
			Code:    code.String(),
			Message: result.Get("value.message").String(),
		})
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return result, classify(&WebDriverError{
			Status:  resp.StatusCode,
			Code:    "unknown error",
			Message: http.StatusText(resp.StatusCode),
		})
	}

	return result, nil
}

// classify maps a W3C error code onto the core taxonomy, keeping the
// server's error as cause.
func classify(wdErr *WebDriverError) error {
	switch wdErr.Code {
	case "no such element":
		return core.ErrElementNotFound.WithCause(wdErr)
	case "invalid session id":
		return core.ErrSessionLost.WithCause(wdErr)
	case "session not created":
		return core.ErrSessionStartFailed.WithCause(wdErr)
	case "element not interactable":
		return core.ErrElementNotInteractable.WithCause(wdErr)
	case "timeout":
		return core.ErrTimeout.WithCause(wdErr)
	}
	return wdErr
}

// IsWebDriverError reports whether err carries the given W3C error code.
func IsWebDriverError(err error, code string) bool {
	var wdErr *WebDriverError
	return errors.As(err, &wdErr) && wdErr.Code == code
}

func extractElementID(value gjson.Result) string {
	// W3C format
	if id := value.Get(core.ElementKey); id.Exists() {
		return id.String()
	}
	// Legacy format
	return value.Get("ELEMENT").String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package session

import (
	"fmt"
	"strings"
)

// Capabilities is the configuration bag sent at session start.
type Capabilities map[string]interface{}

// Default capability values, applied only when the caller did not set them.
var defaultCapabilities = Capabilities{
	"appium:newCommandTimeout":     3600,
	"appium:appWaitDuration":       30000,
	"appium:androidInstallTimeout": 300000,
	"appium:noReset":               true,
	"appium:fullReset":             false,
}

// Clone returns a shallow copy.
func (c Capabilities) Clone() Capabilities {
	out := make(Capabilities, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Merge returns a copy of c with every key of over applied on top.
func (c Capabilities) Merge(over map[string]interface{}) Capabilities {
	out := c.Clone()
	for k, v := range over {
		out[k] = v
	}
	return out
}

// WithDefaults returns a copy with default timeouts, reset flags and
// automation engine filled in.
func (c Capabilities) WithDefaults() Capabilities {
	out := c.Clone()
	for k, v := range defaultCapabilities {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	if _, ok := out["appium:automationName"]; !ok {
		switch c.Platform() {
		case "", "android":
			out["appium:automationName"] = "UiAutomator2"
		case "ios":
			out["appium:automationName"] = "XCUITest"
		}
	}
	if _, ok := out["platformName"]; !ok {
		out["platformName"] = "Android"
	}
	return out
}

// Platform returns the lower-cased platformName.
func (c Capabilities) Platform() string {
	if p, ok := c["platformName"]; ok {
		return strings.ToLower(fmt.Sprint(p))
	}
	return ""
}

// UDID returns the target device identifier, if any.
func (c Capabilities) UDID() string {
	for _, key := range []string{"appium:udid", "udid"} {
		if v, ok := c[key]; ok {
			return fmt.Sprint(v)
		}
	}
	return ""
}

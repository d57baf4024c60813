package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/core"
)

func TestRemote_StartFailures(t *testing.T) {
	m := New(Config{StartFailures: 2})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := m.NewSession(ctx, nil); !errors.Is(err, core.ErrSessionStartFailed) {
			t.Fatalf("attempt %d: error = %v, want session start failure", i+1, err)
		}
	}
	h, err := m.NewSession(ctx, map[string]interface{}{"appium:udid": "x"})
	if err != nil {
		t.Fatalf("attempt 3: error = %v", err)
	}
	if h.Capabilities["appium:udid"] != "x" || h.Capabilities["platformName"] != "mock" {
		t.Errorf("Capabilities = %v", h.Capabilities)
	}
	if m.StartAttempts() != 3 || m.ActiveSessions() != 1 {
		t.Errorf("StartAttempts = %d, ActiveSessions = %d", m.StartAttempts(), m.ActiveSessions())
	}
}

func TestRemote_ElementAppearsAfterPolls(t *testing.T) {
	m := New(Config{})
	ctx := context.Background()
	h, _ := m.NewSession(ctx, nil)
	m.SetElement("id", "login_btn", Element{AppearAfter: 2, Text: "Login"})

	for i := 0; i < 2; i++ {
		if _, err := m.FindElement(ctx, h.ID, "id", "login_btn"); !errors.Is(err, core.ErrElementNotFound) {
			t.Fatalf("find %d: error = %v, want not found", i+1, err)
		}
	}
	id, err := m.FindElement(ctx, h.ID, "id", "login_btn")
	if err != nil {
		t.Fatalf("find 3: error = %v", err)
	}
	text, err := m.GetElementText(ctx, h.ID, id)
	if err != nil || text != "Login" {
		t.Errorf("GetElementText = %q, %v", text, err)
	}
	if m.FindCount("id", "login_btn") != 3 {
		t.Errorf("FindCount = %d, want 3", m.FindCount("id", "login_btn"))
	}
}

func TestRemote_SendKeysAndClear(t *testing.T) {
	m := New(Config{})
	ctx := context.Background()
	h, _ := m.NewSession(ctx, nil)

	id, err := m.FindElement(ctx, h.ID, "id", "username")
	if err != nil {
		t.Fatalf("FindElement error = %v", err)
	}
	_ = m.SendKeys(ctx, h.ID, id, "alice")
	if got := m.Typed("id", "username"); got != "alice" {
		t.Errorf("Typed = %q, want alice", got)
	}
	_ = m.ClearElement(ctx, h.ID, id)
	if got := m.Typed("id", "username"); got != "" {
		t.Errorf("Typed after clear = %q", got)
	}
}

func TestRemote_DroppedSession(t *testing.T) {
	m := New(Config{})
	ctx := context.Background()
	h, _ := m.NewSession(ctx, nil)
	m.DropSession(h.ID)

	if _, err := m.FindElement(ctx, h.ID, "id", "x"); !errors.Is(err, core.ErrSessionLost) {
		t.Errorf("FindElement error = %v, want session lost", err)
	}
	if err := m.DeleteSession(ctx, h.ID); !errors.Is(err, core.ErrSessionLost) {
		t.Errorf("DeleteSession error = %v, want session lost", err)
	}
}

func TestRemote_Strict(t *testing.T) {
	m := New(Config{Strict: true})
	ctx := context.Background()
	h, _ := m.NewSession(ctx, nil)

	if _, err := m.FindElement(ctx, h.ID, "xpath", "//missing"); !errors.Is(err, core.ErrElementNotFound) {
		t.Errorf("FindElement error = %v, want not found", err)
	}
}

func TestRemote_HangHonoursContext(t *testing.T) {
	m := New(Config{})
	h, _ := m.NewSession(context.Background(), nil)
	m.SetElement("id", "spinner", Element{Hang: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.FindElement(ctx, h.ID, "id", "spinner"); !errors.Is(err, context.Canceled) {
		t.Errorf("FindElement error = %v, want context.Canceled", err)
	}
}

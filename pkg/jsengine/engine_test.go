package jsengine

import (
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	engine := New()
	if engine == nil || engine.runtime == nil {
		t.Fatal("expected runtime to be initialized")
	}
}

func TestEval(t *testing.T) {
	engine := New()

	tests := []struct {
		name     string
		script   string
		expected interface{}
	}{
		{"simple number", "1 + 2", int64(3)},
		{"string concat", "'hello' + ' ' + 'world'", "hello world"},
		{"boolean", "true && false", false},
		{"null coalescing", "null ?? 'default'", "default"},
		{"object property", "({name: 'test'}).name", "test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.Eval(tt.script)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %v (%T), got %v (%T)", tt.expected, tt.expected, result, result)
			}
		})
	}
}

func TestSetVariables(t *testing.T) {
	engine := New()
	engine.SetVariables(map[string]string{"username": "john", "pin": "1234"})

	result, err := engine.EvalString("username + ':' + pin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "john:1234" {
		t.Errorf("expected 'john:1234', got %q", result)
	}
}

func TestExpandVariables(t *testing.T) {
	engine := New()
	engine.SetVariables(map[string]string{"username": "alice", "amount": "250"})

	tests := []struct {
		input    string
		expected string
	}{
		{"no variables", "no variables"},
		{"${username}", "alice"},
		{"user: ${username}!", "user: alice!"},
		{"${Number(amount) * 2}", "500"},
		{"${amount.length}", "3"},
		{"${missing}", "${missing}"},
		{"unterminated ${username", "unterminated ${username"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := engine.ExpandVariables(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestExpandStrict(t *testing.T) {
	engine := New()

	_, err := engine.ExpandStrict("hello ${missing}")
	if err == nil {
		t.Fatal("expected error for undefined variable")
	}
	if !strings.Contains(err.Error(), "missing") {
		t.Errorf("error should name the expression, got %v", err)
	}
}

func TestDeviceObject(t *testing.T) {
	engine := New()
	engine.SetDevice("android", "emulator-5554")

	result, err := engine.EvalString("device.platform + '/' + device.udid")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "android/emulator-5554" {
		t.Errorf("expected 'android/emulator-5554', got %q", result)
	}
}

func TestJSON(t *testing.T) {
	engine := New()

	result, err := engine.EvalString(`json('{"account": {"id": "ACC-1"}}').account.id`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ACC-1" {
		t.Errorf("expected 'ACC-1', got %q", result)
	}
}

func TestConsoleLog(t *testing.T) {
	engine := New()
	if _, err := engine.Eval("console.log('hello', 1); console.warn('w'); console.error('e')"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEvalTimeout(t *testing.T) {
	engine := New()
	engine.SetTimeout(50 * time.Millisecond)

	start := time.Now()
	_, err := engine.Eval("while (true) {}")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("evaluation was not interrupted in time")
	}

	// The runtime stays usable after an interrupt.
	if v, err := engine.EvalString("1 + 1"); err != nil || v != "2" {
		t.Errorf("EvalString after interrupt = %q, %v", v, err)
	}
}

func TestEvalError(t *testing.T) {
	engine := New()

	_, err := engine.Eval("undefined.property")
	if err == nil {
		t.Error("expected error")
	}
	if !strings.Contains(err.Error(), "JS eval error") {
		t.Errorf("unexpected error text: %v", err)
	}
}

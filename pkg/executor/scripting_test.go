package executor

import (
	"errors"
	"testing"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/core"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/flow"
)

func strPtr(s string) *string { return &s }

func TestNewScriptEngine(t *testing.T) {
	se := NewScriptEngine()
	if se == nil {
		t.Fatal("NewScriptEngine() returned nil")
	}
	if se.js == nil {
		t.Error("js engine not initialized")
	}
	if se.variables == nil {
		t.Error("variables map not initialized")
	}
}

func TestScriptEngine_SetVariables(t *testing.T) {
	se := NewScriptEngine()
	se.SetVariables(map[string]string{
		"A": "1",
		"B": "2",
	})

	if got := se.variables["A"]; got != "1" {
		t.Errorf("variables[A] = %q, want %q", got, "1")
	}
	if got := se.variables["B"]; got != "2" {
		t.Errorf("variables[B] = %q, want %q", got, "2")
	}
}

func TestScriptEngine_ExpandVariables(t *testing.T) {
	se := NewScriptEngine()
	se.SetVariables(map[string]string{
		"USER":      "alice",
		"USER_NAME": "Alice Smith",
		"amount":    "250",
	})

	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"${USER}", "alice"},
		{"$USER_NAME", "Alice Smith"},
		{"$USER-1", "alice-1"},
		{"$USERX", "$USERX"},
		{"${Number(amount) * 2}", "500"},
		{"pay ${amount} ETB", "pay 250 ETB"},
	}
	for _, tt := range tests {
		got, err := se.ExpandVariables(tt.in)
		if err != nil {
			t.Errorf("ExpandVariables(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ExpandVariables(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScriptEngine_ExpandVariablesError(t *testing.T) {
	se := NewScriptEngine()
	if _, err := se.ExpandVariables("${undefinedThing.value}"); err == nil {
		t.Error("expected error for unresolvable expression")
	}
}

func TestScriptEngine_ImportSystemEnvKeepsExisting(t *testing.T) {
	t.Setenv("MBR_TEST_ACCOUNT", "from-env")
	t.Setenv("MBR_TEST_PIN", "1234")

	se := NewScriptEngine()
	se.SetVariable("MBR_TEST_ACCOUNT", "from-params")
	se.ImportSystemEnv()

	if got := se.variables["MBR_TEST_ACCOUNT"]; got != "from-params" {
		t.Errorf("existing variable overwritten: %q", got)
	}
	if got := se.variables["MBR_TEST_PIN"]; got != "1234" {
		t.Errorf("env variable not imported: %q", got)
	}
}

func TestScriptEngine_ResolveInput(t *testing.T) {
	se := NewScriptEngine()
	params := map[string]string{"username": "teller01"}
	se.SetVariables(params)

	tests := []struct {
		name    string
		step    flow.Step
		want    string
		wantErr error
	}{
		{
			name: "static",
			step: flow.Step{Order: 1, Action: flow.ActionSendKeys, Input: strPtr("hello")},
			want: "hello",
		},
		{
			name: "missing input defaults to empty",
			step: flow.Step{Order: 1, Action: flow.ActionSendKeys},
			want: "",
		},
		{
			name: "dynamic",
			step: flow.Step{Order: 2, Action: flow.ActionSendKeys, InputType: flow.InputDynamic, ParameterName: "username"},
			want: "teller01",
		},
		{
			name: "expression",
			step: flow.Step{Order: 3, Action: flow.ActionSendKeys, Input: strPtr("${username.toUpperCase()}")},
			want: "TELLER01",
		},
		{
			name:    "missing parameter",
			step:    flow.Step{Order: 4, Action: flow.ActionSendKeys, InputType: flow.InputDynamic, ParameterName: "password"},
			wantErr: core.ErrMissingRequired,
		},
		{
			name:    "broken expression",
			step:    flow.Step{Order: 5, Action: flow.ActionSendKeys, Input: strPtr("${nope(}")},
			wantErr: core.ErrInvalidConfig,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := se.ResolveInput(tt.step, params)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ResolveInput() error = %v, want %v", err, tt.wantErr)
				}
				if !core.IsConfigError(err) {
					t.Errorf("expected config error, got category %s", core.CategoryOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveInput() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveInput() = %q, want %q", got, tt.want)
			}
		})
	}
}

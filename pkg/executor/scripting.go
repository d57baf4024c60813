package executor

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/core"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/flow"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/jsengine"
)

// envVarPattern matches ALL_CAPS identifiers that look like env variables
var envVarPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]{2,}$`)

// ScriptEngine resolves step inputs: batch parameters, $VAR references
// and ${expr} JavaScript expressions.
type ScriptEngine struct {
	js        *jsengine.Engine
	variables map[string]string
}

// NewScriptEngine creates a new script engine.
func NewScriptEngine() *ScriptEngine {
	return &ScriptEngine{
		js:        jsengine.New(),
		variables: make(map[string]string),
	}
}

// SetVariable sets a variable in both Go map and JS engine.
func (se *ScriptEngine) SetVariable(name, value string) {
	se.variables[name] = value
	se.js.SetVariable(name, value)
}

// SetVariables sets multiple variables.
func (se *ScriptEngine) SetVariables(vars map[string]string) {
	for k, v := range vars {
		se.SetVariable(k, v)
	}
}

// ImportSystemEnv imports system environment variables into the script engine.
// Only uppercase names are imported; existing variables are kept.
func (se *ScriptEngine) ImportSystemEnv() {
	for _, env := range os.Environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok || !envVarPattern.MatchString(name) {
			continue
		}
		if _, exists := se.variables[name]; exists {
			continue
		}
		se.SetVariable(name, value)
	}
}

// SetDevice exposes the session's platform and UDID as device.platform
// and device.udid.
func (se *ScriptEngine) SetDevice(platform, udid string) {
	se.js.SetDevice(platform, udid)
}

// ExpandVariables expands ${expr} and $VAR syntax in text. A ${expr}
// that fails to evaluate is an error.
func (se *ScriptEngine) ExpandVariables(text string) (string, error) {
	if !strings.Contains(text, "$") {
		return text, nil
	}
	result, err := se.js.ExpandStrict(text)
	if err != nil {
		return "", err
	}
	return se.expandDollarVars(result), nil
}

// ResolveInput returns the text a send_keys step types.
func (se *ScriptEngine) ResolveInput(step flow.Step, params map[string]string) (string, error) {
	if step.InputType == flow.InputDynamic {
		if _, ok := params[step.ParameterName]; !ok {
			return "", core.ErrMissingRequired.WithMessage(
				fmt.Sprintf("step %d: parameter %q not provided", step.Order, step.ParameterName))
		}
	}
	text, err := se.ExpandVariables(step.RawInput(params))
	if err != nil {
		return "", core.ErrInvalidConfig.WithMessage(fmt.Sprintf("step %d: invalid input", step.Order)).WithCause(err)
	}
	return text, nil
}

// expandDollarVars expands $VAR syntax (without braces) using stored variables.
func (se *ScriptEngine) expandDollarVars(text string) string {
	// Longest first to avoid partial matches
	names := make([]string, 0, len(se.variables))
	for name := range se.variables {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return len(names[i]) > len(names[j])
	})

	for _, name := range names {
		text = expandDollarVar(text, name, se.variables[name])
	}
	return text
}

// expandDollarVar replaces $VAR with value, checking word boundaries.
func expandDollarVar(text, name, value string) string {
	pattern := "$" + name
	idx := 0
	for {
		pos := strings.Index(text[idx:], pattern)
		if pos == -1 {
			break
		}
		pos += idx

		// Followed by an identifier character: a different variable
		endPos := pos + len(pattern)
		if endPos < len(text) {
			next := text[endPos]
			if (next >= 'a' && next <= 'z') || (next >= 'A' && next <= 'Z') ||
				(next >= '0' && next <= '9') || next == '_' {
				idx = endPos
				continue
			}
		}

		text = text[:pos] + value + text[endPos:]
		idx = pos + len(value)
	}
	return text
}

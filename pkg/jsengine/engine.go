// Package jsengine evaluates the JavaScript expressions embedded in step
// inputs, e.g. "${username}" or "${'user' + Date.now()}".
package jsengine

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/logger"
)

// DefaultEvalTimeout bounds a single evaluation.
const DefaultEvalTimeout = 2 * time.Second

// Engine wraps a goja runtime holding the batch parameters as globals.
type Engine struct {
	runtime   *goja.Runtime
	variables map[string]interface{}
	platform  string
	udid      string
	timeout   time.Duration
	mu        sync.Mutex
}

// New creates a new JS engine instance
func New() *Engine {
	e := &Engine{
		runtime:   goja.New(),
		variables: make(map[string]interface{}),
		timeout:   DefaultEvalTimeout,
	}

	e.setupBuiltins()
	return e
}

// setupBuiltins registers all built-in functions and objects
func (e *Engine) setupBuiltins() {
	e.setupConsole()

	// JSON helper
	e.runtime.Set("json", e.jsonFunc())

	// Device object
	e.runtime.Set("device", e.deviceObject())
}

// setupConsole routes console.log, console.error and console.warn to the log.
func (e *Engine) setupConsole() {
	makeConsoleFunc := func(logf func(string, ...interface{})) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			args := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				args[i] = fmt.Sprint(arg.Export())
			}
			logf("js: %s", strings.Join(args, " "))
			return goja.Undefined()
		}
	}

	console := e.runtime.NewObject()
	console.Set("log", makeConsoleFunc(logger.Info))
	console.Set("error", makeConsoleFunc(logger.Error))
	console.Set("warn", makeConsoleFunc(logger.Warn))
	e.runtime.Set("console", console)
}

// jsonFunc returns the json() helper function
func (e *Engine) jsonFunc() func(call goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			panic(e.runtime.NewTypeError("json requires 1 argument"))
		}

		str := call.Arguments[0].String()

		// Parse JSON string and return JS object
		result, err := e.runtime.RunString(fmt.Sprintf("JSON.parse(%q)", str))
		if err != nil {
			panic(e.runtime.NewTypeError(fmt.Sprintf("invalid JSON: %v", err)))
		}

		return result
	}
}

// deviceObject returns the device global object
func (e *Engine) deviceObject() *goja.Object {
	obj := e.runtime.NewObject()

	// device.platform - current platform (android/ios)
	obj.DefineAccessorProperty("platform", e.runtime.ToValue(func() string {
		return e.platform
	}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)

	// device.udid - target device identifier
	obj.DefineAccessorProperty("udid", e.runtime.ToValue(func() string {
		return e.udid
	}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)

	return obj
}

// SetVariable sets a variable accessible in JS as a global
func (e *Engine) SetVariable(name string, value interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.variables[name] = value
	e.runtime.Set(name, value)
}

// SetVariables sets multiple variables
func (e *Engine) SetVariables(vars map[string]string) {
	for k, v := range vars {
		e.SetVariable(k, v)
	}
}

// SetDevice sets the values exposed through the device object
func (e *Engine) SetDevice(platform, udid string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.platform = platform
	e.udid = udid
}

// SetTimeout changes the per-evaluation time limit
func (e *Engine) SetTimeout(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timeout = d
}

// Eval evaluates a JavaScript expression and returns the result
func (e *Engine) Eval(script string) (interface{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.timeout > 0 {
		timer := time.AfterFunc(e.timeout, func() {
			e.runtime.Interrupt("evaluation timed out")
		})
		defer func() {
			timer.Stop()
			e.runtime.ClearInterrupt()
		}()
	}

	result, err := e.runtime.RunString(script)
	if err != nil {
		return nil, fmt.Errorf("JS eval error: %w", err)
	}

	return result.Export(), nil
}

// EvalString evaluates a JavaScript expression and returns string result
func (e *Engine) EvalString(script string) (string, error) {
	result, err := e.Eval(script)
	if err != nil {
		return "", err
	}

	if result == nil {
		return "", nil
	}

	return fmt.Sprintf("%v", result), nil
}

// ExpandVariables expands ${...} expressions in a string using JS
// evaluation. Expressions that fail are left as-is.
func (e *Engine) ExpandVariables(text string) (string, error) {
	return e.expand(text, false)
}

// ExpandStrict is ExpandVariables but fails on the first expression that
// cannot be evaluated.
func (e *Engine) ExpandStrict(text string) (string, error) {
	return e.expand(text, true)
}

func (e *Engine) expand(text string, strict bool) (string, error) {
	result := text
	start := 0

	for {
		// Find ${
		idx := strings.Index(result[start:], "${")
		if idx == -1 {
			break
		}
		idx += start

		// Find matching }
		depth := 1
		end := idx + 2
		for end < len(result) && depth > 0 {
			if result[end] == '{' {
				depth++
			} else if result[end] == '}' {
				depth--
			}
			end++
		}

		if depth != 0 {
			// Unmatched brace, skip
			start = idx + 2
			continue
		}

		expr := result[idx+2 : end-1]

		value, err := e.EvalString(expr)
		if err != nil {
			if strict {
				return "", fmt.Errorf("expanding ${%s}: %w", expr, err)
			}
			start = end
			continue
		}

		result = result[:idx] + value + result[end:]
		start = idx + len(value)
	}

	return result, nil
}

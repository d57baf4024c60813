package flow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/core"
)

// Action is what a step does with its located element.
type Action string

// Supported actions.
const (
	ActionClick       Action = "click"
	ActionSendKeys    Action = "send_keys"
	ActionClear       Action = "clear"
	ActionGetText     Action = "get_text"
	ActionIsDisplayed Action = "is_displayed"
)

// ParseAction validates an action name. Names are case-insensitive.
func ParseAction(name string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(name)))
	if !a.Valid() {
		return "", core.ErrUnsupportedAction.WithMessage("unsupported action: " + name)
	}
	return a, nil
}

// Valid returns true for the closed set of actions.
func (a Action) Valid() bool {
	switch a {
	case ActionClick, ActionSendKeys, ActionClear, ActionGetText, ActionIsDisplayed:
		return true
	}
	return false
}

// InputType tells where a send_keys value comes from.
type InputType string

const (
	InputStatic  InputType = "static"
	InputDynamic InputType = "dynamic" // Looked up in the batch parameters
)

// Step is one locate-then-act instruction.
type Step struct {
	Order         int
	Strategy      Strategy
	Target        string
	Action        Action
	Input         *string
	InputType     InputType
	ParameterName string
}

// Ref returns the identity recorded on a StepResult.
func (s Step) Ref() core.StepRef {
	return core.StepRef{
		Order:     s.Order,
		Strategy:  string(s.Strategy),
		ElementID: s.Target,
		Action:    string(s.Action),
	}
}

// Describe returns a human-readable description.
func (s Step) Describe() string {
	return fmt.Sprintf("step %d: %s on %s=%s", s.Order, s.Action, s.Strategy, s.Target)
}

// RawInput returns the unexpanded input text. Static inputs default to
// empty; dynamic inputs come from params.
func (s Step) RawInput(params map[string]string) string {
	if s.InputType == InputDynamic {
		return params[s.ParameterName]
	}
	if s.Input == nil {
		return ""
	}
	return *s.Input
}

// Validate checks the step definition.
func (s Step) Validate(params map[string]string) error {
	if s.Order <= 0 {
		return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("step order must be positive, got %d", s.Order))
	}
	if !s.Strategy.Valid() {
		return core.ErrUnsupportedStrategy.WithMessage(fmt.Sprintf("step %d: unsupported locator strategy: %s", s.Order, s.Strategy))
	}
	if !s.Action.Valid() {
		return core.ErrUnsupportedAction.WithMessage(fmt.Sprintf("step %d: unsupported action: %s", s.Order, s.Action))
	}
	if s.Target == "" {
		return core.ErrMissingRequired.WithMessage(fmt.Sprintf("step %d: element_id is required", s.Order))
	}
	if s.InputType == InputDynamic {
		if s.ParameterName == "" {
			return core.ErrMissingRequired.WithMessage(fmt.Sprintf("step %d: parameter_name is required for dynamic input", s.Order))
		}
		if _, ok := params[s.ParameterName]; !ok {
			return core.ErrMissingRequired.WithMessage(fmt.Sprintf("step %d: parameter %q not provided", s.Order, s.ParameterName))
		}
	}
	return nil
}

// ValidateOrder checks that orders are unique and contiguous, and that
// steps are listed in increasing order.
func ValidateOrder(steps []Step) error {
	for i := 1; i < len(steps); i++ {
		prev, cur := steps[i-1].Order, steps[i].Order
		if cur == prev {
			return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("duplicate step order %d", cur))
		}
		if cur != prev+1 {
			return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("step order not contiguous: %d follows %d", cur, prev))
		}
	}
	return nil
}

// SortSteps orders steps by their step order.
func SortSteps(steps []Step) {
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Order < steps[j].Order
	})
}

package executor

import (
	"context"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/core"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/flow"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/session"
)

// ActionOutcome holds what an action returned. Only get_text sets Text
// and only is_displayed sets Displayed.
type ActionOutcome struct {
	Text      *string
	Displayed *bool
}

// ActionDispatcher performs step actions on located elements.
type ActionDispatcher struct{}

// NewActionDispatcher creates a dispatcher.
func NewActionDispatcher() *ActionDispatcher {
	return &ActionDispatcher{}
}

// Perform runs action on el through the session's worker pool. Errors
// from the server are returned unchanged.
func (d *ActionDispatcher) Perform(ctx context.Context, s *session.Session, el core.Element, action flow.Action, input string) (ActionOutcome, error) {
	switch action {
	case flow.ActionClick:
		return ActionOutcome{}, session.Exec(ctx, s, func(c context.Context, r core.Remote, sid string) error {
			return r.ClickElement(c, sid, el.ID)
		})

	case flow.ActionSendKeys:
		return ActionOutcome{}, session.Exec(ctx, s, func(c context.Context, r core.Remote, sid string) error {
			return r.SendKeys(c, sid, el.ID, input)
		})

	case flow.ActionClear:
		return ActionOutcome{}, session.Exec(ctx, s, func(c context.Context, r core.Remote, sid string) error {
			return r.ClearElement(c, sid, el.ID)
		})

	case flow.ActionGetText:
		text, err := session.Do(ctx, s, func(c context.Context, r core.Remote, sid string) (string, error) {
			return r.GetElementText(c, sid, el.ID)
		})
		if err != nil {
			return ActionOutcome{}, err
		}
		return ActionOutcome{Text: &text}, nil

	case flow.ActionIsDisplayed:
		displayed, err := session.Do(ctx, s, func(c context.Context, r core.Remote, sid string) (bool, error) {
			return r.IsElementDisplayed(c, sid, el.ID)
		})
		if err != nil {
			return ActionOutcome{}, err
		}
		return ActionOutcome{Displayed: &displayed}, nil

	default:
		return ActionOutcome{}, core.ErrUnsupportedAction.WithMessage("unsupported action: " + string(action))
	}
}

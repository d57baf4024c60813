package flow

import (
	"strings"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/core"
)

// Strategy is a locator strategy.
type Strategy string

// Supported strategies.
const (
	StrategyID                 Strategy = "id"
	StrategyClassName          Strategy = "class_name"
	StrategyXPath              Strategy = "xpath"
	StrategyAccessibilityID    Strategy = "accessibility_id"
	StrategyAndroidUIAutomator Strategy = "android_uiautomator"
)

// wire-level "using" values
var strategyUsing = map[Strategy]string{
	StrategyID:                 "id",
	StrategyClassName:          "class name",
	StrategyXPath:              "xpath",
	StrategyAccessibilityID:    "accessibility id",
	StrategyAndroidUIAutomator: "-android uiautomator",
}

// Locator is the protocol-level locator tuple sent to find-element.
type Locator struct {
	Using string
	Value string
}

// ParseStrategy accepts the strategy name in any case, either as the
// descriptor form (ACCESSIBILITY_ID) or the wire form (accessibility id).
func ParseStrategy(name string) (Strategy, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.TrimPrefix(key, "-")
	key = strings.ReplaceAll(key, " ", "_")
	s := Strategy(key)
	if _, ok := strategyUsing[s]; !ok {
		return "", core.ErrUnsupportedStrategy.WithMessage("unsupported locator strategy: " + name)
	}
	return s, nil
}

// Valid returns true for the closed set of strategies.
func (s Strategy) Valid() bool {
	_, ok := strategyUsing[s]
	return ok
}

// Using returns the wire-level locator kind.
func (s Strategy) Using() string {
	return strategyUsing[s]
}

// Locator maps the strategy and raw target into the locator tuple.
func (s Strategy) Locator(target string) (Locator, error) {
	using, ok := strategyUsing[s]
	if !ok {
		return Locator{}, core.ErrUnsupportedStrategy.WithMessage("unsupported locator strategy: " + string(s))
	}
	return Locator{Using: using, Value: target}, nil
}

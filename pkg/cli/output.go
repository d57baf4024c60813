package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/core"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/flow"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// Steps slower than this are flagged in the live output.
const slowThreshold = 5 * time.Second

var colorsEnabled = true

func init() {
	// Respect NO_COLOR environment variable
	if os.Getenv("NO_COLOR") != "" {
		colorsEnabled = false
		return
	}
	// Check if stdout is a terminal
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		if (fileInfo.Mode() & os.ModeCharDevice) == 0 {
			colorsEnabled = false
		}
	}
}

// color returns the color code if colors are enabled, empty string otherwise
func color(c string) string {
	if colorsEnabled {
		return c
	}
	return ""
}

func onCaseStart(caseIdx, totalCases int, tc flow.TestCase) {
	name := tc.Name
	if name == "" {
		name = tc.ID
	}
	fmt.Printf("\n  %s[%d/%d]%s %s%s%s (%s)\n",
		color(colorCyan), caseIdx+1, totalCases, color(colorReset),
		color(colorBold), name, color(colorReset), tc.ID)
	fmt.Println(strings.Repeat("─", 60))
}

func onStepComplete(_ flow.TestCase, r core.StepResult) {
	desc := describeStep(r.Step)
	durStr := formatDuration(r.Duration)

	if r.Success {
		symbol := "✓"
		symbolColor := color(colorGreen)
		durColor := ""
		if r.Duration >= slowThreshold {
			durColor = color(colorYellow)
			symbol = "⚠"
			symbolColor = color(colorYellow)
		}
		fmt.Printf("    %s%s%s %s %s(%s)%s\n",
			symbolColor, symbol, color(colorReset), desc, durColor, durStr, color(colorReset))
		if r.Text != nil {
			fmt.Printf("      %s╰─%s text: %q\n", color(colorGray), color(colorReset), *r.Text)
		}
		if r.Displayed != nil {
			fmt.Printf("      %s╰─%s displayed: %t\n", color(colorGray), color(colorReset), *r.Displayed)
		}
		return
	}

	fmt.Printf("    %s✗%s %s (%s)\n", color(colorRed), color(colorReset), desc, durStr)
	if r.Error != "" {
		fmt.Printf("      %s╰─%s %s\n", color(colorGray), color(colorReset), r.Error)
	}
}

func onCaseEnd(exec *core.CaseExecution) {
	dur := exec.EndTime.Sub(exec.StartTime)
	switch exec.Status {
	case core.CasePassed:
		fmt.Printf("%s✓ %s%s %s%s%s\n",
			color(colorGreen), color(colorReset), exec.Name, color(colorGray), formatDuration(dur), color(colorReset))
	case core.CaseSkipped:
		fmt.Printf("%s- %s%s %s(skipped)%s\n",
			color(colorCyan), color(colorReset), exec.Name, color(colorGray), color(colorReset))
	default:
		fmt.Printf("%s✗ %s%s %s%s%s\n",
			color(colorRed), color(colorReset), exec.Name, color(colorGray), formatDuration(dur), color(colorReset))
		if exec.Error != "" {
			fmt.Printf("  %s╰─%s %s\n", color(colorGray), color(colorReset), exec.Error)
		}
	}
}

func describeStep(ref core.StepRef) string {
	return fmt.Sprintf("%d. %s %s=%s", ref.Order, ref.Action, ref.Strategy, ref.ElementID)
}

func printSummary(b *core.BatchExecution) {
	totalSteps, passedSteps, failedSteps, notRun := 0, 0, 0, 0
	for _, c := range b.Cases {
		p, f := c.Counts()
		passedSteps += p
		failedSteps += f
		notRun += c.NotRun
		totalSteps += len(c.Steps) + c.NotRun
	}
	dur := b.EndTime.Sub(b.StartTime)

	fmt.Println()
	if passedSteps > 0 {
		fmt.Printf("  %s%d steps passing%s (%s)\n", color(colorGreen), passedSteps, color(colorReset), formatDuration(dur))
	}
	if failedSteps > 0 {
		fmt.Printf("  %s%d steps failing%s\n", color(colorRed), failedSteps, color(colorReset))
	}
	if notRun > 0 {
		fmt.Printf("  %s%d steps not run%s\n", color(colorCyan), notRun, color(colorReset))
	}
	fmt.Println()

	tableWidth := 92
	fmt.Println(strings.Repeat("═", tableWidth))
	fmt.Printf("  %-42s %6s %7s %6s %6s %6s %10s\n", "Case", "Status", "Steps", "Pass", "Fail", "Skip", "Duration")
	fmt.Println(strings.Repeat("─", tableWidth))

	for _, c := range b.Cases {
		var status, statusColor string
		switch c.Status {
		case core.CaseFailed:
			status = "✗ FAIL"
			statusColor = color(colorRed)
		case core.CaseSkipped:
			status = "- SKIP"
			statusColor = color(colorCyan)
		default:
			status = "✓ PASS"
			statusColor = color(colorGreen)
		}

		name := c.Name
		if name == "" {
			name = c.CaseID
		}
		if len(name) > 42 {
			name = name[:39] + "..."
		}

		p, f := c.Counts()
		fmt.Printf("  %-42s %s%6s%s %7d %6d %6d %6d %10s\n",
			name, statusColor, status, color(colorReset),
			len(c.Steps)+c.NotRun, p, f, c.NotRun,
			formatDuration(c.EndTime.Sub(c.StartTime)))
	}

	fmt.Println(strings.Repeat("─", tableWidth))
	statusStr := fmt.Sprintf("%d/%d", b.Passed, b.Total)
	statusColor := color(colorGreen)
	if b.Status == core.BatchFailed {
		statusColor = color(colorRed)
	}
	fmt.Printf("  %s%-42s%s %s%6s%s %7d %6d %6d %6d %10s\n",
		color(colorBold), "TOTAL "+strings.ToUpper(string(b.Status)), color(colorReset),
		statusColor, statusStr, color(colorReset),
		totalSteps, passedSteps, failedSteps, notRun,
		formatDuration(dur))
	fmt.Println(strings.Repeat("═", tableWidth))
}

// formatDuration shows milliseconds below one second, seconds below a
// minute and minutes otherwise.
func formatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	mins := ms / 60000
	secs := (ms % 60000) / 1000
	return fmt.Sprintf("%dm %ds", mins, secs)
}

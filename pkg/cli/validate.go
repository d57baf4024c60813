package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/validator"
)

var validateCommand = &cli.Command{
	Name:      "validate",
	Usage:     "Check batch files without running them",
	ArgsUsage: "<batch-file-or-folder>",
	Description: `Parse every batch file and report all problems at once: unsupported
locator strategies or actions, step ordering, duplicate ids and dynamic
inputs without a parameter value.

Examples:
  mbrunner validate batch.yaml
  mbrunner validate batches/ -e USERNAME=alice`,
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "include-tags",
			Usage: "Only include cases with these tags",
		},
		&cli.StringSliceFlag{
			Name:  "exclude-tags",
			Usage: "Exclude cases with these tags",
		},
		&cli.StringSliceFlag{
			Name:    "env",
			Aliases: []string{"e"},
			Usage:   "Batch parameters (KEY=VALUE)",
		},
	},
	Action: validateBatches,
}

func validateBatches(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one batch file or folder is required")
	}

	settings, err := loadSettings(c)
	if err != nil {
		return err
	}

	params := mergeParameters(settings.Env, parseEnvVars(c.StringSlice("env")))
	result := validator.New(settings.IncludeTags, settings.ExcludeTags, params).Validate(c.Args().First())

	if !result.IsValid() {
		for _, err := range result.Errors {
			fmt.Printf("  %s✗%s %v\n", color(colorRed), color(colorReset), err)
		}
		if len(result.Errors) == 1 {
			return result.Errors[0]
		}
		return cli.Exit(fmt.Sprintf("%d validation errors", len(result.Errors)), 1)
	}

	fmt.Printf("%s✓%s %d files: %d cases, %d steps\n", color(colorGreen), color(colorReset),
		len(result.Files), result.Cases(), result.Steps())
	return nil
}

// Package cli provides the command-line interface for mbrunner.
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/config"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Usage:   "Path to mbrunner.yaml (default: ./mbrunner.yaml if present)",
		EnvVars: []string{"MBRUNNER_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "driver",
		Aliases: []string{"d"},
		Usage:   "Driver to use (appium, mock)",
		Value:   "appium",
		EnvVars: []string{"MBRUNNER_DRIVER"},
	},
	&cli.StringFlag{
		Name:    "appium-url",
		Usage:   "Appium server URL",
		Value:   config.DefaultAppiumURL,
		EnvVars: []string{"APPIUM_URL"},
	},
	&cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level (debug, info, warn, error)",
		EnvVars: []string{"MBRUNNER_LOG_LEVEL"},
	},
	&cli.StringFlag{
		Name:  "log-file",
		Usage: "Log file (default: <output>/mbrunner.log)",
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Print live execution events",
		EnvVars: []string{"MBRUNNER_VERBOSE"},
	},
	&cli.BoolFlag{
		Name:  "no-ansi",
		Usage: "Disable ANSI colors",
	},
}

// NewApp builds the CLI application.
func NewApp() *cli.App {
	return &cli.App{
		Name:    "mbrunner",
		Usage:   "Mobile banking UI test runner",
		Version: Version,
		Description: `mbrunner executes batches of mobile UI test cases against an Appium
server, writes a JSON report and stores step results in SQLite.

Examples:
  mbrunner run batch.yaml
  mbrunner --appium-url http://10.0.0.5:4723 run batch.yaml --caps caps.json
  mbrunner run batch.yaml --session-policy per_case -e USERNAME=alice
  mbrunner devices
  mbrunner validate batch.yaml`,
		Flags: GlobalFlags,
		Before: func(c *cli.Context) error {
			if c.Bool("no-ansi") {
				colorsEnabled = false
			}
			return nil
		},
		Commands: []*cli.Command{
			runCommand,
			devicesCommand,
			validateCommand,
		},
		// Exit codes are handled by Execute so the app can run inside tests.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

// Execute runs the CLI.
func Execute() {
	if err := NewApp().Run(os.Args); err != nil {
		code := 1
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		if msg := err.Error(); msg != "" {
			fmt.Fprintf(os.Stderr, "Error: %v\n", msg)
		}
		os.Exit(code)
	}
}

// loadSettings reads the config file and applies command-line overrides.
func loadSettings(c *cli.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFromDir(".")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if c.IsSet("appium-url") || cfg.AppiumURL == "" {
		cfg.AppiumURL = c.String("appium-url")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-file") {
		cfg.LogFile = c.String("log-file")
	}
	if c.IsSet("session-policy") {
		cfg.SessionPolicy = c.String("session-policy")
	}
	if c.IsSet("timeout") {
		cfg.LocateTimeout = c.Duration("timeout")
	}
	if c.IsSet("poll") {
		cfg.PollInterval = c.Duration("poll")
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("output") {
		cfg.OutputDir = c.String("output")
	}
	if c.IsSet("db") {
		cfg.Database = c.String("db")
	}
	if c.IsSet("include-tags") {
		cfg.IncludeTags = c.StringSlice("include-tags")
	}
	if c.IsSet("exclude-tags") {
		cfg.ExcludeTags = c.StringSlice("exclude-tags")
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveOutputDir returns <base>/<timestamp>, or base itself when flattened.
func resolveOutputDir(base string, flatten bool, now time.Time) string {
	if flatten {
		return filepath.Clean(base)
	}
	return filepath.Join(base, now.Format("2006-01-02_15-04-05"))
}

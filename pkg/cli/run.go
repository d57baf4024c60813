package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/config"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/core"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/device"
	appiumdriver "github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/driver/appium"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/driver/mock"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/events"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/executor"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/flow"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/logger"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/report"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/session"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/store"
)

// Save gets its own budget so a cancelled run still persists what it has.
const saveTimeout = 30 * time.Second

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Run a batch of test cases on a device",
	ArgsUsage: "<batch-file>",
	Description: `Run every test case of a batch file against one automation session
(or one session per case with --session-policy per_case).

Reports are generated in the output directory:
  - Default: ./reports/<timestamp>/
  - With --output: <output>/<timestamp>/
  - With --flatten: no timestamp subfolder

Examples:
  mbrunner run batch.yaml
  mbrunner run batch.yaml --caps caps.json --device emulator-5554
  mbrunner run batch.yaml -e USERNAME=alice -e PASSWORD=secret
  mbrunner run batch.yaml --include-tags smoke --timeout 10s`,
	Flags: []cli.Flag{
		// Session
		&cli.StringFlag{
			Name:  "caps",
			Usage: "Capabilities JSON file",
		},
		&cli.StringFlag{
			Name:    "device",
			Aliases: []string{"udid"},
			Usage:   "Device UDID to target, or \"auto\" for the first attached device",
		},
		&cli.StringFlag{
			Name:  "session-policy",
			Usage: "Session policy (reuse, per_case)",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Remote call worker pool size",
		},

		// Timing
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Locate timeout per step (default: 25s)",
		},
		&cli.DurationFlag{
			Name:  "poll",
			Usage: "Locate poll interval (default: 500ms)",
		},

		// Parameters
		&cli.StringSliceFlag{
			Name:    "env",
			Aliases: []string{"e"},
			Usage:   "Batch parameters (KEY=VALUE)",
		},
		&cli.BoolFlag{
			Name:  "import-env",
			Usage: "Expose uppercase environment variables to step inputs",
		},

		// Tag filtering
		&cli.StringSliceFlag{
			Name:  "include-tags",
			Usage: "Only include cases with these tags",
		},
		&cli.StringSliceFlag{
			Name:  "exclude-tags",
			Usage: "Exclude cases with these tags",
		},

		// Output
		&cli.StringFlag{
			Name:  "output",
			Usage: "Output directory for reports (default: ./reports)",
		},
		&cli.BoolFlag{
			Name:  "flatten",
			Usage: "Don't create timestamp subfolder",
		},
		&cli.StringFlag{
			Name:  "db",
			Usage: "SQLite results database (default: <home>/results.db)",
		},
		&cli.BoolFlag{
			Name:  "no-db",
			Usage: "Don't store results in the database",
		},
	},
	Action: runBatch,
}

// newRemote creates the automation remote for a driver name.
var newRemote = func(driver, appiumURL string) (core.Remote, error) {
	switch strings.ToLower(driver) {
	case "", "appium":
		return appiumdriver.NewClient(appiumURL), nil
	case "mock":
		return mock.New(mock.Config{}), nil
	default:
		return nil, core.ErrInvalidConfig.WithMessage("unknown driver: " + driver)
	}
}

func runBatch(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one batch file is required")
	}

	settings, err := loadSettings(c)
	if err != nil {
		return err
	}
	policy, err := executor.ParseSessionPolicy(settings.SessionPolicy)
	if err != nil {
		return err
	}

	// 1. Parse and validate before touching the device
	batch, err := flow.ParseBatchFile(c.Args().First())
	if err != nil {
		return err
	}
	batch.Parameters = mergeParameters(settings.Env, batch.Parameters, parseEnvVars(c.StringSlice("env")))
	cases := batch.Filter(settings.IncludeTags, settings.ExcludeTags)
	if err := executor.Validate(batch, cases); err != nil {
		return err
	}

	caps, err := buildCapabilities(c.Context, settings, c.String("caps"), c.String("device"))
	if err != nil {
		return err
	}

	// 2. Output directory and logging
	outputDir := resolveOutputDir(settings.OutputDir, c.Bool("flatten"), time.Now())
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	logPath := settings.LogFile
	if logPath == "" {
		logPath = filepath.Join(outputDir, "mbrunner.log")
	}
	if err := logger.Init(logPath); err != nil {
		fmt.Printf("Warning: Failed to initialize logger: %v\n", err)
	}
	defer logger.Close()
	logger.SetLevel(settings.LogLevel)

	driverName := strings.ToLower(c.String("driver"))
	logger.Info("=== Batch execution started ===")
	logger.Info("Batch: %s (%d of %d cases)", batch.ID, len(cases), len(batch.Cases))
	logger.Info("Output directory: %s", outputDir)
	logger.Info("Driver: %s, server: %s, policy: %s", driverName, settings.AppiumURL, policy)

	// 3. Remote, live events and session manager
	remote, err := newRemote(driverName, settings.AppiumURL)
	if err != nil {
		return err
	}
	if client, ok := remote.(*appiumdriver.Client); ok {
		checkServer(c.Context, client)
	}

	stream := events.NewBroadcaster(200)
	sub := stream.Subscribe(64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range sub.C {
			logger.Debug("event: %s", e.Message)
			if c.Bool("verbose") {
				fmt.Printf("      %s%s%s\n", color(colorGray), e.Message, color(colorReset))
			}
		}
	}()
	defer func() {
		sub.Close()
		<-done
	}()

	manager := session.NewManager(remote, session.Options{
		StartAttempts: settings.StartAttempts,
		StartBackoff:  settings.StartBackoff,
		Pool:          session.NewPool(settings.Workers),
		Events:        stream,
	})

	// 4. Live report
	writer, err := report.NewWriter(batch, cases, report.BuilderConfig{
		OutputDir:     outputDir,
		Device:        report.Device{ID: caps.UDID(), Platform: caps.Platform()},
		RunnerVersion: Version,
		DriverName:    driverName,
		SessionPolicy: string(policy),
	})
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}

	current := -1
	runner := executor.New(manager, executor.RunnerConfig{
		Policy:        policy,
		Capabilities:  caps,
		LocateTimeout: settings.LocateTimeout,
		PollInterval:  settings.PollInterval,
		Artifacts:     *settings.Artifacts,
		ImportEnv:     c.Bool("import-env"),
		Events:        stream,
		OnCaseStart: func(caseIdx, totalCases int, tc flow.TestCase) {
			current = caseIdx
			writer.CaseStarted(caseIdx)
			onCaseStart(caseIdx, totalCases, tc)
		},
		OnStepComplete: onStepComplete,
		OnCaseEnd: func(exec *core.CaseExecution) {
			if err := writer.CaseFinished(current, exec); err != nil {
				logger.Warn("Failed to write case report %s: %v", exec.CaseID, err)
			}
			onCaseEnd(exec)
		},
	})

	// 5. Execute, cancelling on Ctrl+C or kill
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, runErr := runner.Run(ctx, batch, cases)
	if result == nil {
		_ = writer.Finish(&core.BatchExecution{Status: core.BatchFailed})
		return runErr
	}
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			fmt.Fprintf(os.Stderr, "\nExecution cancelled, remaining cases skipped\n")
		}
		logger.Error("Batch ended early: %v", runErr)
	}

	if err := writer.Finish(result); err != nil {
		logger.Warn("Failed to write report index: %v", err)
	}

	// 6. Persist
	if !c.Bool("no-db") {
		persist(ctx, settings.Database, result)
	}

	printSummary(result)
	fmt.Printf("\n  Report: %s\n", filepath.Join(outputDir, "report.json"))

	if !result.Success() {
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			return cli.Exit(fmt.Sprintf("batch %s: %v", result.Status, runErr), 1)
		}
		return cli.Exit(fmt.Sprintf("batch %s", result.Status), 1)
	}
	return nil
}

// persist saves the batch to the results database. Failures are reported,
// not fatal.
func persist(ctx context.Context, dbPath string, b *core.BatchExecution) {
	st, err := store.OpenSQLite(dbPath)
	if err != nil {
		logger.Error("Failed to open results database: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: results not saved: %v\n", err)
		return
	}
	defer st.Close()

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()

	rep := executor.Save(saveCtx, st, b)
	for _, f := range rep.Failures {
		logger.Error("Save failed: %v", f)
	}
	if rep.FailedToSave || len(rep.Failures) > 0 {
		fmt.Fprintf(os.Stderr, "Warning: %d records not saved to %s\n", len(rep.Failures), dbPath)
	}
	logger.Info("Saved %d cases, %d steps to %s", rep.SavedCases, rep.SavedSteps, dbPath)
}

// checkServer logs the automation server status. Session start retries
// cover a server that is still coming up.
func checkServer(ctx context.Context, client *appiumdriver.Client) {
	statusCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ready, msg, err := client.Status(statusCtx)
	switch {
	case err != nil:
		logger.Warn("Automation server not reachable: %v", err)
	case !ready:
		logger.Warn("Automation server not ready: %s", msg)
	default:
		logger.Info("Automation server ready: %s", msg)
	}
}

// buildCapabilities merges config capabilities, the caps file and the
// target device, later sources winning.
func buildCapabilities(ctx context.Context, settings *config.Config, capsFile, deviceFlag string) (session.Capabilities, error) {
	caps := session.Capabilities(settings.Capabilities).Clone()
	if capsFile != "" {
		fileCaps, err := loadCapabilities(capsFile)
		if err != nil {
			return nil, err
		}
		caps = caps.Merge(fileCaps)
	}

	switch deviceFlag {
	case "":
	case "auto":
		devices, err := device.ListDevices(ctx)
		if err != nil {
			return nil, fmt.Errorf("device discovery failed: %w", err)
		}
		if len(devices) == 0 {
			return nil, fmt.Errorf("no connected devices found")
		}
		caps = caps.Merge(devices[0].Capabilities())
	default:
		caps = caps.Merge(map[string]interface{}{"appium:udid": deviceFlag})
	}
	return caps, nil
}

// mergeParameters layers parameter maps, later maps winning.
func mergeParameters(layers ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, layer := range layers {
		for k, v := range layer {
			merged[k] = v
		}
	}
	return merged
}

func parseEnvVars(envs []string) map[string]string {
	result := make(map[string]string)
	for _, e := range envs {
		parts := strings.SplitN(e, "=", 2)
		if len(parts) == 2 {
			result[parts[0]] = parts[1]
		}
	}
	return result
}

// loadCapabilities loads capabilities from a JSON file.
func loadCapabilities(capsFile string) (map[string]interface{}, error) {
	data, err := os.ReadFile(capsFile) //#nosec G304 -- user-provided caps file
	if err != nil {
		return nil, fmt.Errorf("failed to read caps file: %w", err)
	}

	var caps map[string]interface{}
	if err := json.Unmarshal(data, &caps); err != nil {
		return nil, fmt.Errorf("failed to parse caps JSON: %w", err)
	}
	return caps, nil
}

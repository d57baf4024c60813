package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/config"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/core"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/device"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/driver/mock"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/report"
	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/store"
)

const transferBatch = `
id: transfer-smoke
name: Transfer smoke
parameters:
  amount: "25"
cases:
  - id: login
    name: Login
    tags: [smoke]
    steps:
      - step_order: 1
        element_identifier_type: ID
        element_id: username
        action: send_keys
        input_type: dynamic
        parameter_name: username
      - step_order: 2
        element_identifier_type: ID
        element_id: login
        action: click
  - id: transfer
    name: Transfer
    steps:
      - step_order: 1
        element_identifier_type: ACCESSIBILITY_ID
        element_id: amount
        action: send_keys
        input_type: dynamic
        parameter_name: amount
      - step_order: 2
        element_identifier_type: XPATH
        element_id: //android.widget.TextView[@resource-id='balance']
        action: get_text
`

func writeBatch(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batch.yaml")
	if err := os.WriteFile(path, []byte(transferBatch), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// captureStdout returns what fn printed to stdout.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	orig := os.Stdout
	os.Stdout = w

	out := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		out <- buf.String()
	}()

	fn()
	os.Stdout = orig
	w.Close()
	return <-out
}

func TestResolveOutputDir_Default(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	dir := resolveOutputDir("reports", false, now)

	want := filepath.Join("reports", "2026-03-14_09-26-53")
	if dir != want {
		t.Errorf("expected %s, got %s", want, dir)
	}
}

func TestResolveOutputDir_Flatten(t *testing.T) {
	dir := resolveOutputDir("./my-reports/", true, time.Now())
	if dir != "my-reports" {
		t.Errorf("expected my-reports, got %s", dir)
	}
}

func TestParseEnvVars_Valid(t *testing.T) {
	result := parseEnvVars([]string{"USER=test", "PASS=a=b", "EMPTY=", "NOEQUALS"})

	if result["USER"] != "test" {
		t.Errorf("expected USER=test, got %s", result["USER"])
	}
	if result["PASS"] != "a=b" {
		t.Errorf("expected PASS=a=b, got %s", result["PASS"])
	}
	if v, ok := result["EMPTY"]; !ok || v != "" {
		t.Errorf("expected EMPTY='', got %q (present=%v)", v, ok)
	}
	if _, ok := result["NOEQUALS"]; ok {
		t.Error("entry without '=' should be ignored")
	}
}

func TestMergeParameters_LaterWins(t *testing.T) {
	got := mergeParameters(
		map[string]string{"a": "config", "b": "config"},
		map[string]string{"b": "batch", "c": "batch"},
		map[string]string{"c": "cli"},
		nil,
	)
	if got["a"] != "config" || got["b"] != "batch" || got["c"] != "cli" {
		t.Errorf("mergeParameters = %v", got)
	}
}

func TestLoadCapabilities(t *testing.T) {
	path := filepath.Join(t.TempDir(), "caps.json")
	os.WriteFile(path, []byte(`{"platformName":"Android","appium:udid":"R58M"}`), 0644)

	caps, err := loadCapabilities(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if caps["platformName"] != "Android" || caps["appium:udid"] != "R58M" {
		t.Errorf("caps = %v", caps)
	}

	os.WriteFile(path, []byte(`{not json`), 0644)
	if _, err := loadCapabilities(path); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if _, err := loadCapabilities(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestBuildCapabilities(t *testing.T) {
	capsFile := filepath.Join(t.TempDir(), "caps.json")
	os.WriteFile(capsFile, []byte(`{"platformName":"Android","appium:udid":"from-file"}`), 0644)
	settings := &config.Config{Capabilities: map[string]interface{}{
		"platformName":   "iOS",
		"appium:noReset": false,
	}}

	caps, err := buildCapabilities(context.Background(), settings, capsFile, "emulator-5554")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if caps.Platform() != "android" {
		t.Errorf("caps file should override config, got platform %s", caps.Platform())
	}
	if caps.UDID() != "emulator-5554" {
		t.Errorf("device flag should win, got udid %s", caps.UDID())
	}
	if caps["appium:noReset"] != false {
		t.Errorf("config capabilities should be kept, got %v", caps)
	}
	if _, ok := settings.Capabilities["appium:udid"]; ok {
		t.Error("config capabilities were mutated")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{150 * time.Millisecond, "150ms"},
		{2500 * time.Millisecond, "2.5s"},
		{90 * time.Second, "1m 30s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%s) = %s, want %s", tt.d, got, tt.want)
		}
	}
}

func TestGlobalFlags_EnvVars(t *testing.T) {
	want := map[string]string{
		"config":     "MBRUNNER_CONFIG",
		"appium-url": "APPIUM_URL",
	}
	for _, f := range GlobalFlags {
		sf, ok := f.(*cli.StringFlag)
		if !ok {
			continue
		}
		if env, ok := want[sf.Name]; ok {
			if len(sf.EnvVars) == 0 || sf.EnvVars[0] != env {
				t.Errorf("flag %s: EnvVars = %v, want %s", sf.Name, sf.EnvVars, env)
			}
			delete(want, sf.Name)
		}
	}
	if len(want) != 0 {
		t.Errorf("missing global flags: %v", want)
	}
}

func TestNewApp_HelpAndVersion(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"mbrunner", "--help"}, "--verbose"},
		{[]string{"mbrunner", "--version"}, Version},
		{[]string{"mbrunner", "-v"}, Version},
		{[]string{"mbrunner", "run", "--help"}, "--session-policy"},
		{[]string{"mbrunner", "devices", "--help"}, "--json"},
		{[]string{"mbrunner", "validate", "--help"}, "--include-tags"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args[1:], " "), func(t *testing.T) {
			var buf bytes.Buffer
			app := NewApp()
			app.Writer = &buf
			if err := app.Run(tt.args); err != nil {
				t.Fatalf("Run(%v) error = %v", tt.args, err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, buf.String())
			}
		})
	}
}

// settingsFor runs loadSettings with the run command's flags.
func settingsFor(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	var (
		got *config.Config
		err error
	)
	app := NewApp()
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "settings",
		Flags: runCommand.Flags,
		Action: func(c *cli.Context) error {
			got, err = loadSettings(c)
			return nil
		},
	})
	if runErr := app.Run(append([]string{"mbrunner"}, args...)); runErr != nil {
		t.Fatalf("app.Run: %v", runErr)
	}
	return got, err
}

func TestLoadSettings_FlagsOverrideConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "mbrunner.yaml")
	os.WriteFile(cfgPath, []byte("appiumUrl: http://from-config:4723\nsessionPolicy: per_case\nlocateTimeout: 5s\n"), 0644)

	cfg, err := settingsFor(t, "--config", cfgPath, "settings", "--timeout", "3s", "--db", "/tmp/r.db")
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if cfg.AppiumURL != "http://from-config:4723" {
		t.Errorf("AppiumURL = %s, config value should survive the flag default", cfg.AppiumURL)
	}
	if cfg.SessionPolicy != "per_case" {
		t.Errorf("SessionPolicy = %s, want per_case", cfg.SessionPolicy)
	}
	if cfg.LocateTimeout != 3*time.Second {
		t.Errorf("LocateTimeout = %s, want 3s", cfg.LocateTimeout)
	}
	if cfg.Database != "/tmp/r.db" {
		t.Errorf("Database = %s", cfg.Database)
	}
	if cfg.PollInterval != config.DefaultPollInterval {
		t.Errorf("PollInterval = %s, want default", cfg.PollInterval)
	}
}

func TestLoadSettings_AppiumURLFlag(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "mbrunner.yaml")
	os.WriteFile(cfgPath, []byte("appiumUrl: http://from-config:4723\n"), 0644)

	cfg, err := settingsFor(t, "--config", cfgPath, "--appium-url", "http://flag:4723", "settings")
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if cfg.AppiumURL != "http://flag:4723" {
		t.Errorf("AppiumURL = %s, want flag value", cfg.AppiumURL)
	}
}

func TestLoadSettings_InvalidPolicy(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "mbrunner.yaml")
	os.WriteFile(cfgPath, []byte("{}\n"), 0644)

	_, err := settingsFor(t, "--config", cfgPath, "settings", "--session-policy", "sometimes")
	if !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestRun_MockBatchPasses(t *testing.T) {
	batchPath := writeBatch(t)
	out := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "results.db")

	var err error
	stdout := captureStdout(t, func() {
		err = NewApp().Run([]string{"mbrunner", "--driver", "mock", "run",
			"--output", out, "--flatten", "--db", dbPath, "-e", "username=alice", batchPath})
	})
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, stdout)
	}
	if !strings.Contains(stdout, "Transfer") {
		t.Errorf("expected live output to mention the case, got:\n%s", stdout)
	}

	idx, err := report.ReadIndex(out)
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	if idx.Status != report.StatusPassed {
		t.Errorf("report status = %s, want passed", idx.Status)
	}
	if idx.Summary.Total != 2 || idx.Summary.Passed != 2 {
		t.Errorf("summary = %+v", idx.Summary)
	}

	st, err := store.OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer st.Close()

	total, completed, passed, status, err := st.BatchCounters(context.Background(), idx.ExecutionID)
	if err != nil {
		t.Fatalf("BatchCounters: %v", err)
	}
	if total != 2 || completed != 2 || passed != 2 || status != core.BatchPassed {
		t.Errorf("stored counters = %d/%d/%d %s", total, completed, passed, status)
	}

	steps, err := st.StepResults(context.Background(), idx.Cases[1].ExecutionID)
	if err != nil {
		t.Fatalf("StepResults: %v", err)
	}
	if len(steps) != 2 || !steps[0].Result.Success || !steps[1].Result.Success {
		t.Errorf("stored steps = %+v", steps)
	}
}

func TestRun_FailedBatchExitsWithCode1(t *testing.T) {
	orig := newRemote
	newRemote = func(driver, appiumURL string) (core.Remote, error) {
		return mock.New(mock.Config{Strict: true}), nil
	}
	t.Cleanup(func() { newRemote = orig })

	batchPath := writeBatch(t)
	out := t.TempDir()

	var err error
	captureStdout(t, func() {
		err = NewApp().Run([]string{"mbrunner", "run",
			"--output", out, "--flatten", "--no-db",
			"--timeout", "300ms", "--poll", "100ms",
			"--include-tags", "smoke", "-e", "username=alice", batchPath})
	})

	var exitErr cli.ExitCoder
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
		t.Fatalf("expected exit code 1, got %v", err)
	}

	idx, err := report.ReadIndex(out)
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	if idx.Status != report.StatusFailed {
		t.Errorf("report status = %s, want failed", idx.Status)
	}
	if len(idx.Cases) != 1 || idx.Cases[0].CaseID != "login" {
		t.Errorf("include-tags should keep only login, got %+v", idx.Cases)
	}
}

func TestRun_InvalidBatchOpensNoSession(t *testing.T) {
	remote := mock.New(mock.Config{})
	orig := newRemote
	newRemote = func(driver, appiumURL string) (core.Remote, error) { return remote, nil }
	t.Cleanup(func() { newRemote = orig })

	// username is a dynamic parameter with no value
	err := NewApp().Run([]string{"mbrunner", "run", "--output", t.TempDir(), "--no-db", writeBatch(t)})
	if !errors.Is(err, core.ErrMissingRequired) {
		t.Fatalf("expected missing parameter error, got %v", err)
	}
	if remote.StartAttempts() != 0 {
		t.Errorf("expected no session start, got %d", remote.StartAttempts())
	}
}

func TestRun_RequiresBatchFile(t *testing.T) {
	if err := NewApp().Run([]string{"mbrunner", "run"}); err == nil {
		t.Error("expected error without batch file")
	}
}

func TestValidate(t *testing.T) {
	batchPath := writeBatch(t)

	var err error
	stdout := captureStdout(t, func() {
		err = NewApp().Run([]string{"mbrunner", "validate", "-e", "username=alice", batchPath})
	})
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !strings.Contains(stdout, "1 files: 2 cases, 4 steps") {
		t.Errorf("unexpected output: %s", stdout)
	}

	captureStdout(t, func() {
		err = NewApp().Run([]string{"mbrunner", "validate", batchPath})
	})
	if !errors.Is(err, core.ErrMissingRequired) {
		t.Errorf("expected missing parameter error, got %v", err)
	}
}

func TestValidate_Directory(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(transferBatch), 0644)
	os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(transferBatch), 0644)

	var err error
	stdout := captureStdout(t, func() {
		err = NewApp().Run([]string{"mbrunner", "validate", dir})
	})

	// Two missing parameters plus a duplicate batch id
	var exitErr cli.ExitCoder
	if !errors.As(err, &exitErr) || !strings.Contains(err.Error(), "3 validation errors") {
		t.Fatalf("expected 3 validation errors, got %v\n%s", err, stdout)
	}
}

func TestDevices_JSON(t *testing.T) {
	orig := listDevicesFunc
	listDevicesFunc = func(ctx context.Context) ([]device.Info, error) {
		return []device.Info{{UUID: "emulator-5554", Name: "Pixel 7", OSVersion: "14", Platform: device.PlatformAndroid}}, nil
	}
	t.Cleanup(func() { listDevicesFunc = orig })

	var err error
	stdout := captureStdout(t, func() {
		err = NewApp().Run([]string{"mbrunner", "devices", "--json"})
	})
	if err != nil {
		t.Fatalf("devices failed: %v", err)
	}
	for _, want := range []string{`"devices"`, `"device_uuid": "emulator-5554"`, `"device_name": "Pixel 7"`, `"os_version": "14"`, `"platform": "Android"`} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %s:\n%s", want, stdout)
		}
	}
}

func TestDevices_Empty(t *testing.T) {
	orig := listDevicesFunc
	listDevicesFunc = func(ctx context.Context) ([]device.Info, error) { return nil, nil }
	t.Cleanup(func() { listDevicesFunc = orig })

	stdout := captureStdout(t, func() {
		if err := NewApp().Run([]string{"mbrunner", "devices"}); err != nil {
			t.Errorf("devices failed: %v", err)
		}
	})
	if !strings.Contains(stdout, "No devices found") {
		t.Errorf("unexpected output: %s", stdout)
	}
}

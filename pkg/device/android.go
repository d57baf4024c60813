// Package device provides connected-device discovery via ADB.
package device

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// commandRunner runs an external command and returns its stdout.
type commandRunner func(ctx context.Context, name string, args ...string) (string, error)

// execRunner runs commands on the host.
func execRunner(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...) //#nosec G204 -- adb path is resolved locally
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		errMsg := stderr.String()
		if errMsg == "" {
			errMsg = stdout.String()
		}
		return "", fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(errMsg))
	}

	return stdout.String(), nil
}

// AndroidDevice is one device reachable through ADB.
type AndroidDevice struct {
	serial  string
	adbPath string
	run     commandRunner
}

// New creates an AndroidDevice for the given serial.
func New(serial string) (*AndroidDevice, error) {
	adbPath, err := findADB()
	if err != nil {
		return nil, err
	}
	return &AndroidDevice{serial: serial, adbPath: adbPath, run: execRunner}, nil
}

// Serial returns the device serial number.
func (d *AndroidDevice) Serial() string {
	return d.serial
}

// Getprop reads a system property.
func (d *AndroidDevice) Getprop(ctx context.Context, name string) (string, error) {
	out, err := d.adb(ctx, "shell", "getprop", name)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// adb executes an ADB command against this device.
func (d *AndroidDevice) adb(ctx context.Context, args ...string) (string, error) {
	cmdArgs := make([]string, 0, len(args)+2)
	if d.serial != "" {
		cmdArgs = append(cmdArgs, "-s", d.serial)
	}
	cmdArgs = append(cmdArgs, args...)
	return d.run(ctx, d.adbPath, cmdArgs...)
}

// findADB locates the ADB binary.
func findADB() (string, error) {
	if path, err := exec.LookPath("adb"); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("adb not found in PATH; ensure Android SDK is installed")
}

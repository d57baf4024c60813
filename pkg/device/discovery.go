package device

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/logger"
)

// Platforms reported by discovery.
const (
	PlatformAndroid = "Android"
	PlatformIOS     = "iOS"
	PlatformUnknown = "Unknown"
)

const unknown = "Unknown"

// maxLookups bounds concurrent getprop calls.
const maxLookups = 4

// Info describes one attached device.
type Info struct {
	UUID      string `json:"device_uuid"`
	Name      string `json:"device_name"`
	OSVersion string `json:"os_version"`
	Platform  string `json:"platform"`
}

// Capabilities returns the session capabilities that target this device.
func (i Info) Capabilities() map[string]interface{} {
	caps := map[string]interface{}{
		"appium:udid": i.UUID,
	}
	if i.Platform == PlatformAndroid || i.Platform == PlatformIOS {
		caps["platformName"] = i.Platform
	}
	if i.OSVersion != "" && i.OSVersion != unknown {
		caps["appium:platformVersion"] = i.OSVersion
	}
	return caps
}

// ListDevices returns every device adb reports in the "device" state.
// A device whose properties cannot be read is still listed with
// placeholder values.
func ListDevices(ctx context.Context) ([]Info, error) {
	adbPath, err := findADB()
	if err != nil {
		return nil, err
	}
	return listDevices(ctx, adbPath, execRunner)
}

func listDevices(ctx context.Context, adbPath string, run commandRunner) ([]Info, error) {
	out, err := run(ctx, adbPath, "devices")
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	serials := parseDevices(out)
	infos := make([]Info, len(serials))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxLookups)
	for i, serial := range serials {
		d := &AndroidDevice{serial: serial, adbPath: adbPath, run: run}
		g.Go(func() error {
			infos[i] = describe(gctx, d)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return infos, nil
}

// describe reads the properties that identify a device.
func describe(ctx context.Context, d *AndroidDevice) Info {
	serial := d.Serial()
	info := Info{UUID: serial}

	version, err := d.Getprop(ctx, "ro.build.version.release")
	if err != nil {
		logger.Warn("Error getting device details for %s: %v", serial, err)
		return Info{
			UUID:      serial,
			Name:      fallbackName(serial),
			OSVersion: unknown,
			Platform:  PlatformUnknown,
		}
	}
	info.OSVersion = orUnknown(version)

	model, err := d.Getprop(ctx, "ro.product.model")
	if err != nil || model == "" {
		info.Name = fallbackName(serial)
	} else {
		info.Name = model
	}

	manufacturer, err := d.Getprop(ctx, "ro.product.manufacturer")
	if err != nil {
		manufacturer = unknown
	}
	info.Platform = detectPlatform(serial, manufacturer)

	return info
}

// parseDevices extracts serials in the "device" state from `adb devices`.
func parseDevices(out string) []string {
	var serials []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of") || strings.HasPrefix(line, "*") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) >= 2 && parts[1] == "device" {
			serials = append(serials, parts[0])
		}
	}
	return serials
}

// detectPlatform treats Apple hardware and 40-char hex UDIDs as iOS.
func detectPlatform(udid, manufacturer string) string {
	if strings.Contains(strings.ToLower(manufacturer), "apple") || isLegacyIOSUDID(udid) {
		return PlatformIOS
	}
	return PlatformAndroid
}

func isLegacyIOSUDID(udid string) bool {
	if len(udid) != 40 {
		return false
	}
	for _, c := range strings.ToLower(udid) {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return false
		}
	}
	return true
}

func fallbackName(serial string) string {
	if len(serial) > 8 {
		serial = serial[:8]
	}
	return "Device " + serial
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}

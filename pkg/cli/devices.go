package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/device"
)

var devicesCommand = &cli.Command{
	Name:  "devices",
	Usage: "List attached devices",
	Description: `List devices reported by adb with their name, OS version and platform.

Examples:
  mbrunner devices
  mbrunner devices --json`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Print devices as JSON",
		},
	},
	Action: listDevices,
}

// listDevicesFunc is replaced in tests.
var listDevicesFunc = device.ListDevices

func listDevices(c *cli.Context) error {
	devices, err := listDevicesFunc(c.Context)
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	if c.Bool("json") {
		if devices == nil {
			devices = []device.Info{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Devices []device.Info `json:"devices"`
		}{devices})
	}

	if len(devices) == 0 {
		fmt.Println("No devices found")
		return nil
	}
	fmt.Printf("%-24s %-28s %-10s %s\n", "UUID", "NAME", "OS", "PLATFORM")
	for _, d := range devices {
		fmt.Printf("%-24s %-28s %-10s %s\n", d.UUID, d.Name, d.OSVersion, d.Platform)
	}
	return nil
}

// Command mbrunner runs mobile UI test batches against an Appium server.
package main

import "github.com/BOA-Test-Automation/MobileBankingAutomationBackEnd/pkg/cli"

func main() {
	cli.Execute()
}

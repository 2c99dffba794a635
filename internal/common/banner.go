package common

import (
	"fmt"
	"strings"

	"github.com/ternarybob/banner"
)

// PrintBanner displays the application startup banner
func PrintBanner(config *Config, mode, logFile string) {
	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorPurple).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(80)

	fmt.Printf("\n")

	b.PrintTopLine()
	b.PrintCenteredText("AKTIS COLLECTOR - MONDAY")
	b.PrintCenteredText("monday.com Ticket Export Service")
	b.PrintSeparatorLine()

	b.PrintKeyValue("Version", GetVersion(), 15)
	b.PrintKeyValue("Build", GetBuild(), 15)
	b.PrintKeyValue("Environment", config.Collector.Environment, 15)
	b.PrintKeyValue("Mode", mode, 15)
	b.PrintKeyValue("Board", valueOrUnset(config.Monday.BoardID), 15)
	b.PrintKeyValue("Target", config.Output.Target, 15)
	b.PrintBottomLine()

	fmt.Printf("\n")

	fmt.Printf("📋 Configuration:\n")
	fmt.Printf("   • Output: %s (%s)\n", config.Output.Path, config.Output.Format)
	if config.Output.Target == OutputTargetGitHub {
		fmt.Printf("   • Repository: %s\n", valueOrUnset(config.GitHub.Repo))
	}
	if config.Monday.RecentLimit > 0 {
		fmt.Printf("   • Bounded: %d most recent tickets\n", config.Monday.RecentLimit)
	}

	if logFile != "" {
		pattern := strings.Replace(logFile, ".log", ".{YYYY-MM-DDTHH-MM-SS}.log", 1)
		fmt.Printf("   • Log File: %s\n", pattern)
	}
	fmt.Printf("\n")
}

func valueOrUnset(value string) string {
	if value == "" {
		return "(unset)"
	}
	return value
}

// PrintColorizedMessage prints a message with specified color
func PrintColorizedMessage(color, message string) {
	fmt.Printf("%s%s%s\n", color, message, banner.ColorReset)
}

// PrintSuccess prints a success message in green
func PrintSuccess(message string) {
	PrintColorizedMessage(banner.ColorGreen, fmt.Sprintf("✓ %s", message))
}

// PrintError prints an error message in red
func PrintError(message string) {
	PrintColorizedMessage(banner.ColorRed, fmt.Sprintf("✗ %s", message))
}

// PrintInfo prints an info message in cyan
func PrintInfo(message string) {
	PrintColorizedMessage(banner.ColorCyan, fmt.Sprintf("ℹ %s", message))
}

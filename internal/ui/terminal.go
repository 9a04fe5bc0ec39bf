// Package ui holds terminal presentation helpers for the CLI.
package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ANSI escape codes used by the CLI tables.
const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
	Dim    = "\033[2m"
)

// ShouldUseColor returns true when ANSI colors should be used on stdout.
// It respects NO_COLOR, CLICOLOR_FORCE, CLICOLOR, and TTY detection.
func ShouldUseColor() bool {
	// https://no-color.org: any non-empty value disables color.
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	// CLICOLOR_FORCE=1 forces color even without a TTY.
	if strings.TrimSpace(os.Getenv("CLICOLOR_FORCE")) == "1" {
		return true
	}
	// CLICOLOR=0 explicitly disables color.
	if strings.TrimSpace(os.Getenv("CLICOLOR")) == "0" {
		return false
	}
	// Default: color if stdout is a terminal.
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Colorize wraps s in the given ANSI code when color is enabled.
func Colorize(code, s string) string {
	if !ShouldUseColor() {
		return s
	}
	return code + s + Reset
}

// StatusColor maps a service health status to an ANSI code.
func StatusColor(status string) string {
	switch status {
	case "healthy":
		return Green
	case "degraded", "starting":
		return Yellow
	case "down":
		return Red
	}
	return ""
}

// SeverityColor maps an anomaly severity to an ANSI code.
func SeverityColor(severity string) string {
	switch severity {
	case "low":
		return Dim
	case "medium":
		return Yellow
	case "high", "critical":
		return Red
	}
	return ""
}

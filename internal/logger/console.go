package logger

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen)
	failureColor = color.New(color.FgRed)
	skipColor    = color.New(color.FgYellow)
)

// PrintStepResult writes a colorized one-line step-completion summary to w,
// matching the original job runner's ANSI_GREEN/ANSI_RED console output
// for completed steps.
func PrintStepResult(w io.Writer, stepKey string, status string, elapsed time.Duration) {
	line := fmt.Sprintf("[%s] %s (%s)\n", stepKey, status, elapsed.Round(time.Millisecond))
	switch status {
	case "SUCCEEDED", "SKIPPED":
		c := successColor
		if status == "SKIPPED" {
			c = skipColor
		}
		c.Fprint(w, line)
	case "FAILED", "CANCELED":
		failureColor.Fprint(w, line)
	default:
		fmt.Fprint(w, line)
	}
}

// PrintRunningSummary writes the periodic "still running" report the
// original job runner prints every running_delay seconds.
func PrintRunningSummary(w io.Writer, running []string, since time.Time) {
	fmt.Fprintf(w, "--- %d step(s) running, elapsed %s ---\n", len(running), time.Since(since).Round(time.Second))
	for _, key := range running {
		fmt.Fprintf(w, "  running: %s\n", key)
	}
}

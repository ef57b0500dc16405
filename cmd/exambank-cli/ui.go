// Package main provides UI helpers for the exam bank CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// Spinner wraps a spinner instance for indeterminate progress display.
type Spinner struct {
	spinner *spinner.Spinner
}

// NewSpinner creates a new spinner with the given message.
func NewSpinner(message string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = os.Stderr
	return &Spinner{spinner: s}
}

// Start starts the spinner animation.
func (s *Spinner) Start() {
	s.spinner.Start()
}

// Stop stops the spinner animation.
func (s *Spinner) Stop() {
	s.spinner.Stop()
}

// NewPageProgressBar creates a progress bar sized for a document's page walk.
func NewPageProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(
		total,
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("pages"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func successf(format string, args ...interface{}) {
	color.New(color.FgGreen).Printf("✓ "+format+"\n", args...)
}

func warnf(format string, args ...interface{}) {
	color.New(color.FgYellow).Printf("⚠ "+format+"\n", args...)
}

func errorf(format string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(os.Stderr, "✗ "+format+"\n", args...)
}

func statusColor(status string) *color.Color {
	switch status {
	case "DONE":
		return color.New(color.FgGreen)
	case "FAILED":
		return color.New(color.FgRed)
	case "PROCESSING":
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgCyan)
	}
}

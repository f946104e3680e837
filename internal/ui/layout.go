package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 80

	// LayoutMaxPanelWidth caps the width of departure panels.
	LayoutMaxPanelWidth = 96
)

// Log display limits.
const (
	// LogBufferLimit is the maximum number of log lines read into the view.
	LogBufferLimit = 2000
)

// Timing constants.
const (
	// DefaultUIInterval is the default UI refresh interval.
	DefaultUIInterval = time.Second

	// FocusCheckDelay is how long after the terminal regains focus the
	// board checks whether a refresh is due.
	FocusCheckDelay = 500 * time.Millisecond

	// DetailPostpone is how far opening a panel's details pushes back the
	// next refresh.
	DetailPostpone = 30 * time.Second

	// FlashDuration is how long status messages stay in the command bar.
	FlashDuration = 4 * time.Second
)

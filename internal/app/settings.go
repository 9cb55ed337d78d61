package app

import "time"

// Settings are the per-process game tunables. Rooms capture them at creation.
type Settings struct {
	// MaxPoints is awarded for an instantaneous correct answer.
	MaxPoints int
	// PreRollDelay is the buffer between announcing a question and opening
	// its answer window, so clients can render before the countdown matters.
	PreRollDelay time.Duration
	// Top5Popup is how long clients keep the fastest-correct popup visible.
	Top5Popup time.Duration
}

// DefaultSettings returns the production defaults.
func DefaultSettings() Settings {
	return Settings{
		MaxPoints:    1000,
		PreRollDelay: 500 * time.Millisecond,
		Top5Popup:    7 * time.Second,
	}
}

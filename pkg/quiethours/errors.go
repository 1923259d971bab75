package quiethours

import "errors"

var (
	// ErrInvalidClock is returned when a time-of-day string is not "HH:MM".
	ErrInvalidClock = errors.New("invalid time of day, expected HH:MM")

	// ErrInvalidTimezone is returned when the configured timezone cannot be loaded.
	ErrInvalidTimezone = errors.New("invalid timezone")

	// ErrNoBoundary is returned when the window never flips (disabled or zero-length).
	ErrNoBoundary = errors.New("quiet hours window has no upcoming boundary")
)

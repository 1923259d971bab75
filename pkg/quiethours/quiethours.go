package quiethours

import (
	"fmt"
	"slices"
	"time"
)

// Boundary identifies which edge of the quiet window an instant represents.
type Boundary string

const (
	// BoundaryStarts marks the instant at which the quiet window opens.
	BoundaryStarts Boundary = "starts"
	// BoundaryEnds marks the first instant after the quiet window closes.
	BoundaryEnds Boundary = "ends"
)

// Config describes a recipient's quiet-hours window. Start and End are local
// wall-clock times in "HH:MM" format, interpreted in Timezone. A window where
// Start is later than End crosses midnight. Start equal to End is a
// zero-length window and never suppresses anything.
//
// HolidayMode is carried through for callers that widen the window on
// holidays; evaluation here only covers the base window.
type Config struct {
	Enabled      bool   `json:"enabled"`
	Start        string `json:"start"`
	End          string `json:"end"`
	Timezone     string `json:"timezone"`
	WeekdaysOnly bool   `json:"weekdays_only"`
	HolidayMode  bool   `json:"holiday_mode"`
}

// Validate checks the clock strings and timezone without evaluating anything.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if _, err := parseClock(c.Start); err != nil {
		return fmt.Errorf("%w: start %q", ErrInvalidClock, c.Start)
	}
	if _, err := parseClock(c.End); err != nil {
		return fmt.Errorf("%w: end %q", ErrInvalidClock, c.End)
	}
	if _, err := loadLocation(c.Timezone); err != nil {
		return err
	}
	return nil
}

// IsQuiet reports whether now falls inside the configured quiet window.
// It is a pure function of the instant and the config.
//
// Both window edges are inclusive: an instant whose local wall clock equals
// Start or End counts as quiet. With WeekdaysOnly set, Saturdays and Sundays
// (in the config's timezone) are never quiet regardless of the clock check.
func IsQuiet(now time.Time, cfg Config) (bool, error) {
	if !cfg.Enabled {
		return false, nil
	}

	start, err := parseClock(cfg.Start)
	if err != nil {
		return false, fmt.Errorf("%w: start %q", ErrInvalidClock, cfg.Start)
	}
	end, err := parseClock(cfg.End)
	if err != nil {
		return false, fmt.Errorf("%w: end %q", ErrInvalidClock, cfg.End)
	}

	// Zero-length window suppresses nothing.
	if start == end {
		return false, nil
	}

	loc, err := loadLocation(cfg.Timezone)
	if err != nil {
		return false, err
	}

	local := now.In(loc)
	if cfg.WeekdaysOnly && isWeekend(local.Weekday()) {
		return false, nil
	}

	minute := local.Hour()*60 + local.Minute()
	if start > end {
		// Window crosses midnight, e.g. 22:00-07:00.
		return minute >= start || minute <= end, nil
	}
	return minute >= start && minute <= end, nil
}

// NextBoundary returns the next instant strictly after now at which IsQuiet
// flips, together with the kind of flip. Callers use it to defer dispatch to
// the end of an active window and to render upcoming suppression state.
//
// ErrNoBoundary is returned for disabled or zero-length windows, where
// IsQuiet never changes.
func NextBoundary(now time.Time, cfg Config) (time.Time, Boundary, error) {
	if err := cfg.Validate(); err != nil {
		return time.Time{}, "", err
	}
	if !cfg.Enabled {
		return time.Time{}, "", ErrNoBoundary
	}

	start, _ := parseClock(cfg.Start)
	end, _ := parseClock(cfg.End)
	if start == end {
		return time.Time{}, "", ErrNoBoundary
	}

	loc, _ := loadLocation(cfg.Timezone)
	local := now.In(loc)

	current, err := IsQuiet(now, cfg)
	if err != nil {
		return time.Time{}, "", err
	}

	// Candidate flip instants over the coming week: the window edges and, for
	// weekday-gated windows, local midnight where the weekday check changes.
	// Eight days covers every weekday transition even from a weekend start.
	// Each candidate is built from the wall clock of its own day so DST
	// transitions do not shift the configured edge.
	candidates := make([]time.Time, 0, 9*3)
	for d := range 9 {
		y, m, day := local.AddDate(0, 0, d).Date()
		candidates = append(candidates,
			time.Date(y, m, day, 0, 0, 0, 0, loc),
			time.Date(y, m, day, start/60, start%60, 0, 0, loc),
			time.Date(y, m, day, (end+1)/60, (end+1)%60, 0, 0, loc),
		)
	}
	slices.SortFunc(candidates, func(a, b time.Time) int { return a.Compare(b) })

	for _, c := range candidates {
		if !c.After(now) {
			continue
		}
		quiet, err := IsQuiet(c, cfg)
		if err != nil {
			return time.Time{}, "", err
		}
		if quiet == current {
			continue
		}
		if quiet {
			return c, BoundaryStarts, nil
		}
		return c, BoundaryEnds, nil
	}

	return time.Time{}, "", ErrNoBoundary
}

func isWeekend(d time.Weekday) bool {
	return d == time.Saturday || d == time.Sunday
}

package digest

import "errors"

var (
	// ErrInvalidFrequency is returned for frequencies other than daily, weekly or monthly.
	ErrInvalidFrequency = errors.New("invalid digest frequency")

	// ErrInvalidDeliveryDay is returned when the delivery day does not fit the frequency.
	ErrInvalidDeliveryDay = errors.New("invalid digest delivery day")

	// ErrInvalidDeliveryTime is returned when the delivery time is not "HH:MM".
	ErrInvalidDeliveryTime = errors.New("invalid digest delivery time, expected HH:MM")

	// ErrInvalidTimezone is returned when the schedule timezone cannot be loaded.
	ErrInvalidTimezone = errors.New("invalid digest timezone")
)

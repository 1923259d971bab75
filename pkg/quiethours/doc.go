// Package quiethours evaluates per-recipient suppression windows for
// outbound notifications.
//
// A quiet-hours window is a local wall-clock range during which non-urgent
// notifications are deferred. Evaluation is a pure function of an instant and
// a Config value, so the package is safe to call from any goroutine with no
// shared state.
//
// # Usage
//
//	cfg := quiethours.Config{
//		Enabled:  true,
//		Start:    "22:00",
//		End:      "07:00",
//		Timezone: "America/New_York",
//	}
//
//	quiet, err := quiethours.IsQuiet(time.Now(), cfg)
//	if err != nil {
//		// malformed clock string or unknown timezone
//	}
//	if quiet {
//		resume, _, _ := quiethours.NextBoundary(time.Now(), cfg)
//		// defer dispatch until resume
//	}
//
// Windows may cross midnight (Start later than End), both edges are
// inclusive, and WeekdaysOnly exempts weekends in the window's own timezone.
package quiethours

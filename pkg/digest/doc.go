// Package digest resolves daily, weekly and monthly digest schedules into
// concrete delivery instants.
//
// A Schedule is owned by the recipient configuration flow; this package only
// interprets it. All arithmetic happens in the schedule's own timezone and
// results are normalized to UTC before they cross back into persistence.
//
// # Usage
//
//	s := digest.Schedule{
//		Frequency:    digest.FrequencyWeekly,
//		DeliveryDay:  "Monday",
//		DeliveryTime: "09:00",
//		Timezone:     "Europe/Berlin",
//		IsActive:     true,
//	}
//	if err := s.Validate(); err != nil {
//		// rejected before anything is persisted
//	}
//	next, err := digest.NextRun(s, time.Now())
//
// NextRun is pure and safe for concurrent use. MarkSent advances a schedule
// after a successful delivery, stamping LastDigestSent and the next run.
package digest

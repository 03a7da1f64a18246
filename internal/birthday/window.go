// Package birthday implements the 7-day birthday window computation used by
// the congratulate endpoint.
package birthday

import (
	"time"

	"gitlab.com/contactkeeper/contacts-service/internal/model"
)

// WindowDays is the number of days after today that still count as an
// upcoming birthday. The window is inclusive on both ends.
const WindowDays = 7

// Upcoming filters a user's contact set down to the contacts whose birthday
// falls within the next seven days, today included. Only the month and day
// of the stored birthday matter: the date is re-anchored to today's year
// before comparison. Contacts without a birthday on file are skipped.
//
// Candidate dates are always built in today's year, so a window that spans
// New Year's Eve does not pick up early-January birthdays. A birthday of
// February 29 is normalized to March 1 in non-leap years.
//
// The result preserves the iteration order of the input; an empty input
// yields an empty result.
func Upcoming(contacts []model.Contact, today time.Time) []model.Contact {
	current := midnight(today)
	result := []model.Contact{}
	for _, contact := range contacts {
		if contact.Birthday == nil {
			continue
		}
		candidate := time.Date(current.Year(), contact.Birthday.Month(), contact.Birthday.Day(),
			0, 0, 0, 0, time.UTC)
		delta := int(candidate.Sub(current).Hours() / 24)
		if delta >= 0 && delta <= WindowDays {
			result = append(result, contact)
		}
	}
	return result
}

// midnight truncates a timestamp to its UTC calendar date.
func midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

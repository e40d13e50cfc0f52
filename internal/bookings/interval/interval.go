// Package interval models the half-open [start, end) span a booking occupies
// on one space and one calendar day.
package interval

import (
	"fmt"

	bookingserrors "venuebook/internal/bookings/errors"
	"venuebook/pkg/model"
)

var ErrInvalidRange = bookingserrors.ErrInvalidTimeRange

type Interval struct {
	SpaceID string
	Date    model.Date
	Start   model.TimeOfDay
	End     model.TimeOfDay
}

func New(spaceID string, date model.Date, start, end model.TimeOfDay) (Interval, error) {
	if start >= end {
		return Interval{}, fmt.Errorf("%w: %s-%s", ErrInvalidRange, start, end)
	}
	return Interval{SpaceID: spaceID, Date: date, Start: start, End: end}, nil
}

// Of returns the interval held by b without validating it.
func Of(b *model.Booking) Interval {
	return Interval{SpaceID: b.SpaceID, Date: b.Date, Start: b.StartTime, End: b.EndTime}
}

// Overlaps reports whether a and b share at least one minute on the same space and day.
// Touching endpoints do not overlap.
func Overlaps(a, b Interval) bool {
	if a.SpaceID != b.SpaceID || a.Date != b.Date {
		return false
	}
	return a.Start < b.End && b.Start < a.End
}

func (i Interval) Overlaps(o Interval) bool {
	return Overlaps(i, o)
}

func (i Interval) Duration() int {
	return int(i.End - i.Start)
}

func (i Interval) String() string {
	return fmt.Sprintf("%s %s %s-%s", i.SpaceID, i.Date, i.Start, i.End)
}

package sanitizer

import (
	"strings"
	"unicode"

	"venuebook/pkg/model"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

func dropControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

var notesPipeline = Pipeline{
	dropControl,
	TrimAndNormalize,
}

func SanitizeNotes(input string) string {
	return notesPipeline.Apply(input)
}

func SanitizeID(input string) string {
	return strings.TrimSpace(input)
}

func SanitizeBookingRequest(req *model.BookingRequest) {
	req.SpaceID = SanitizeID(req.SpaceID)
	req.Date = strings.TrimSpace(req.Date)
	req.StartTime = strings.TrimSpace(req.StartTime)
	req.EndTime = strings.TrimSpace(req.EndTime)
	req.Notes = SanitizeNotes(req.Notes)
}

// SanitizeBookingUpdate only touches fields present in the patch.
func SanitizeBookingUpdate(u *model.BookingUpdate) {
	trim := func(p *string) {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	trim(u.Date)
	trim(u.StartTime)
	trim(u.EndTime)
	if u.Status != nil {
		*u.Status = strings.ToLower(strings.TrimSpace(*u.Status))
	}
	if u.Notes != nil {
		*u.Notes = SanitizeNotes(*u.Notes)
	}
}

// Package conflict decides whether a candidate interval collides with a
// booking that already holds its space.
package conflict

import (
	"context"
	"fmt"
	"sort"

	"venuebook/internal/bookings/interval"
	"venuebook/pkg/model"
)

// CandidateFinder returns the slot-holding bookings of one space and day,
// excluding excludeID when it is non-empty. Implementations may over-return.
type CandidateFinder interface {
	FindOverlapCandidates(ctx context.Context, spaceID string, date model.Date, excludeID string) ([]*model.Booking, error)
}

type Detector struct {
	finder CandidateFinder
}

func NewDetector(finder CandidateFinder) *Detector {
	return &Detector{finder: finder}
}

// FindConflict returns the earliest-starting booking that overlaps candidate,
// or nil when the slot is free. It never mutates anything.
func (d *Detector) FindConflict(ctx context.Context, candidate interval.Interval, excludeID string) (*model.Booking, error) {
	occupied, err := d.occupied(ctx, candidate.SpaceID, candidate.Date, excludeID)
	if err != nil {
		return nil, err
	}

	for _, b := range occupied {
		if interval.Overlaps(candidate, interval.Of(b)) {
			return b, nil
		}
	}
	return nil, nil
}

// Occupied lists the bookings holding the space on date, ordered by start time.
func (d *Detector) Occupied(ctx context.Context, spaceID string, date model.Date) ([]*model.Booking, error) {
	return d.occupied(ctx, spaceID, date, "")
}

func (d *Detector) occupied(ctx context.Context, spaceID string, date model.Date, excludeID string) ([]*model.Booking, error) {
	candidates, err := d.finder.FindOverlapCandidates(ctx, spaceID, date, excludeID)
	if err != nil {
		return nil, fmt.Errorf("find overlap candidates: %w", err)
	}

	held := make([]*model.Booking, 0, len(candidates))
	for _, b := range candidates {
		if b == nil || !b.Status.HoldsSlot() {
			continue
		}
		if excludeID != "" && b.ID == excludeID {
			continue
		}
		if b.SpaceID != spaceID || b.Date != date {
			continue
		}
		held = append(held, b)
	}

	sort.SliceStable(held, func(i, j int) bool {
		if held[i].StartTime != held[j].StartTime {
			return held[i].StartTime < held[j].StartTime
		}
		return held[i].EndTime < held[j].EndTime
	})
	return held, nil
}

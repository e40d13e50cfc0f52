package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"venuebook/internal/bookings/repository"
	"venuebook/internal/bookings/validator"
	"venuebook/pkg/config"
	apperrors "venuebook/pkg/errors"
	"venuebook/pkg/model"
	"venuebook/pkg/sanitizer"
)

// StatsService answers reporting queries over a closed date range. Reads
// take no slot locks.
type StatsService interface {
	CountsByDate(ctx context.Context, filter model.StatsFilter) ([]model.DateCount, error)
	StatsByUser(ctx context.Context, filter model.StatsFilter, status *model.Status) ([]model.UserCount, error)
	StatsBySpace(ctx context.Context, filter model.StatsFilter, status *model.Status) ([]model.SpaceCount, error)
	DetailedStatsByUser(ctx context.Context, filter model.StatsFilter) ([]model.UserBreakdown, error)
	DetailedStatsBySpace(ctx context.Context, filter model.StatsFilter) ([]model.SpaceBreakdown, error)
}

type statsService struct {
	repo      repository.BookingRepository
	validator *validator.BookingValidator
	cache     StatsCache
	cfg       *config.Config
}

func NewStatsService(
	repo repository.BookingRepository,
	validator *validator.BookingValidator,
	cache StatsCache,
	cfg *config.Config,
) StatsService {
	if cache == nil {
		cache = NewNopStatsCache()
	}
	return &statsService{
		repo:      repo,
		validator: validator,
		cache:     cache,
		cfg:       cfg,
	}
}

func (s *statsService) CountsByDate(ctx context.Context, filter model.StatsFilter) ([]model.DateCount, error) {
	return cached(ctx, s, "dates", filter, nil, func(bookings []*model.Booking) []model.DateCount {
		counts := map[model.Date]int{}
		for _, b := range bookings {
			counts[b.Date]++
		}

		out := make([]model.DateCount, 0, len(counts))
		for d, n := range counts {
			out = append(out, model.DateCount{Date: d, Count: n})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
		return out
	})
}

func (s *statsService) StatsByUser(ctx context.Context, filter model.StatsFilter, status *model.Status) ([]model.UserCount, error) {
	return cached(ctx, s, "users", filter, status, func(bookings []*model.Booking) []model.UserCount {
		counts := groupCount(bookings, status, func(b *model.Booking) string { return b.UserID })

		out := make([]model.UserCount, 0, len(counts))
		for id, n := range counts {
			out = append(out, model.UserCount{UserID: id, Count: n})
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Count != out[j].Count {
				return out[i].Count > out[j].Count
			}
			return out[i].UserID < out[j].UserID
		})
		return out
	})
}

func (s *statsService) StatsBySpace(ctx context.Context, filter model.StatsFilter, status *model.Status) ([]model.SpaceCount, error) {
	return cached(ctx, s, "spaces", filter, status, func(bookings []*model.Booking) []model.SpaceCount {
		counts := groupCount(bookings, status, func(b *model.Booking) string { return b.SpaceID })

		out := make([]model.SpaceCount, 0, len(counts))
		for id, n := range counts {
			out = append(out, model.SpaceCount{SpaceID: id, Count: n})
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Count != out[j].Count {
				return out[i].Count > out[j].Count
			}
			return out[i].SpaceID < out[j].SpaceID
		})
		return out
	})
}

func (s *statsService) DetailedStatsByUser(ctx context.Context, filter model.StatsFilter) ([]model.UserBreakdown, error) {
	return cached(ctx, s, "users-detailed", filter, nil, func(bookings []*model.Booking) []model.UserBreakdown {
		groups := groupBreakdown(bookings, func(b *model.Booking) string { return b.UserID })

		out := make([]model.UserBreakdown, 0, len(groups))
		for id, br := range groups {
			out = append(out, model.UserBreakdown{UserID: id, StatusBreakdown: *br, Total: br.Total()})
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Total != out[j].Total {
				return out[i].Total > out[j].Total
			}
			return out[i].UserID < out[j].UserID
		})
		return out
	})
}

func (s *statsService) DetailedStatsBySpace(ctx context.Context, filter model.StatsFilter) ([]model.SpaceBreakdown, error) {
	return cached(ctx, s, "spaces-detailed", filter, nil, func(bookings []*model.Booking) []model.SpaceBreakdown {
		groups := groupBreakdown(bookings, func(b *model.Booking) string { return b.SpaceID })

		out := make([]model.SpaceBreakdown, 0, len(groups))
		for id, br := range groups {
			out = append(out, model.SpaceBreakdown{SpaceID: id, StatusBreakdown: *br, Total: br.Total()})
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Total != out[j].Total {
				return out[i].Total > out[j].Total
			}
			return out[i].SpaceID < out[j].SpaceID
		})
		return out
	})
}

// cached validates the filter, then serves kind from the cache or computes it
// from the bookings in range. The generation is read before the query so a
// write landing mid-computation retires the stored entry.
func cached[T any](
	ctx context.Context,
	s *statsService,
	kind string,
	filter model.StatsFilter,
	status *model.Status,
	compute func([]*model.Booking) []T,
) ([]T, error) {
	filter.UserID = sanitizer.SanitizeID(filter.UserID)
	if err := s.validateFilter(filter, status); err != nil {
		return nil, err
	}

	key := statsKey(kind, filter, status)
	gen, genErr := s.cache.Generation(ctx)
	if genErr != nil {
		s.cfg.Log.Warn("Stats cache unavailable", "error", genErr)
	} else {
		var hit []T
		ok, err := s.cache.Load(ctx, gen, key, &hit)
		if err != nil {
			s.cfg.Log.Warn("Failed to read stats cache", "key", key, "error", err)
		}
		if ok {
			s.cfg.Log.Debug("Stats cache hit", "key", key, "generation", gen)
			return hit, nil
		}
	}

	bookings, err := s.repo.QueryByDateRange(ctx, filter.From, filter.To, filter.UserID)
	if err != nil {
		s.cfg.Log.Error("Failed to query bookings for stats",
			"kind", kind,
			"from", filter.From,
			"to", filter.To,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to compute booking statistics", err)
	}

	result := compute(bookings)
	if genErr == nil {
		if err := s.cache.Store(ctx, gen, key, result); err != nil {
			s.cfg.Log.Warn("Failed to write stats cache", "key", key, "error", err)
		}
	}
	return result, nil
}

func (s *statsService) validateFilter(filter model.StatsFilter, status *model.Status) error {
	if err := s.validator.ValidateDateRange(filter.From, filter.To); err != nil {
		s.cfg.Log.Warn("Stats filter validation failed", "error", err)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return apperrors.Validation("Invalid stats range", verrs.Details())
		}
		return apperrors.Validation("Invalid stats range", map[string]any{"error": err.Error()})
	}
	if status != nil && !status.IsValid() {
		return apperrors.Validation("Invalid stats filter", map[string]any{
			"status": "status must be one of: pending, approved, rejected",
		})
	}
	return nil
}

func statsKey(kind string, filter model.StatsFilter, status *model.Status) string {
	st := "all"
	if status != nil {
		st = string(*status)
	}
	return fmt.Sprintf("%s:%s:%s:%s:%s", kind, filter.From, filter.To, filter.UserID, st)
}

func groupCount(bookings []*model.Booking, status *model.Status, key func(*model.Booking) string) map[string]int {
	counts := map[string]int{}
	for _, b := range bookings {
		if status != nil && b.Status != *status {
			continue
		}
		counts[key(b)]++
	}
	return counts
}

func groupBreakdown(bookings []*model.Booking, key func(*model.Booking) string) map[string]*model.StatusBreakdown {
	groups := map[string]*model.StatusBreakdown{}
	for _, b := range bookings {
		k := key(b)
		br, ok := groups[k]
		if !ok {
			br = &model.StatusBreakdown{}
			groups[k] = br
		}
		br.Add(b.Status)
	}
	return groups
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"venuebook/internal/bookings/conflict"
	bookingserrors "venuebook/internal/bookings/errors"
	"venuebook/internal/bookings/interval"
	"venuebook/internal/bookings/repository"
	"venuebook/internal/bookings/validator"
	"venuebook/pkg/config"
	apperrors "venuebook/pkg/errors"
	"venuebook/pkg/model"
	"venuebook/pkg/sanitizer"

	"github.com/google/uuid"
)

type BookingService interface {
	Create(ctx context.Context, actor model.Actor, req *model.BookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, actor model.Actor, id string) (*model.Booking, error)
	List(ctx context.Context, actor model.Actor, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error)
	Update(ctx context.Context, actor model.Actor, id string, patch *model.BookingUpdate) (*model.Booking, error)
	Delete(ctx context.Context, actor model.Actor, id string) error
	CheckConflict(ctx context.Context, req *model.BookingRequest, excludeID string) (*model.Booking, error)
	Occupied(ctx context.Context, spaceID string, date model.Date) ([]*model.Booking, error)
}

// Notifier hands booking events to whoever tells people about them.
// Delivery problems stay on the notifier's side.
type Notifier interface {
	NotifyAdmins(ctx context.Context, event model.EventType, booking *model.Booking)
	NotifyUser(ctx context.Context, userID string, event model.EventType, booking *model.Booking)
}

type nopNotifier struct{}

func NewNopNotifier() Notifier { return nopNotifier{} }

func (nopNotifier) NotifyAdmins(context.Context, model.EventType, *model.Booking)       {}
func (nopNotifier) NotifyUser(context.Context, string, model.EventType, *model.Booking) {}

type bookingService struct {
	repo      repository.BookingRepository
	locker    repository.SlotLocker
	detector  *conflict.Detector
	validator *validator.BookingValidator
	notifier  Notifier
	stats     StatsCache
	cfg       *config.Config
	now       func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	locker repository.SlotLocker,
	validator *validator.BookingValidator,
	notifier Notifier,
	stats StatsCache,
	cfg *config.Config,
) BookingService {
	if notifier == nil {
		notifier = NewNopNotifier()
	}
	if stats == nil {
		stats = NewNopStatsCache()
	}
	return &bookingService{
		repo:      repo,
		locker:    locker,
		detector:  conflict.NewDetector(repo),
		validator: validator,
		notifier:  notifier,
		stats:     stats,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (s *bookingService) Create(ctx context.Context, actor model.Actor, req *model.BookingRequest) (*model.Booking, error) {
	if actor.ID == "" {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	if req == nil {
		return nil, apperrors.InvalidInput("Booking request cannot be empty")
	}

	sanitizer.SanitizeBookingRequest(req)
	if err := s.validator.ValidateCreate(req); err != nil {
		return nil, s.validationError("Booking validation failed", err)
	}

	now := s.now()
	booking := &model.Booking{
		ID:        uuid.NewString(),
		SpaceID:   req.SpaceID,
		UserID:    actor.ID,
		Date:      model.MustDate(req.Date),
		StartTime: model.MustTimeOfDay(req.StartTime),
		EndTime:   model.MustTimeOfDay(req.EndTime),
		Status:    model.StatusPending,
		Notes:     req.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.withSlot(ctx, booking.SpaceID, booking.Date, func(ctx context.Context) error {
		return s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
			if err := s.ensureFree(ctx, interval.Of(booking), ""); err != nil {
				return err
			}
			if err := s.repo.Insert(ctx, booking); err != nil {
				return apperrors.Internal("Failed to create booking", err)
			}
			return nil
		})
	})
	if err != nil {
		s.logFailure("Failed to create booking", err,
			"space_id", booking.SpaceID,
			"date", booking.Date,
			"start_time", booking.StartTime,
			"end_time", booking.EndTime,
		)
		return nil, err
	}

	s.invalidateStats(ctx)
	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"space_id", booking.SpaceID,
		"user_id", booking.UserID,
		"date", booking.Date,
		"start_time", booking.StartTime,
		"end_time", booking.EndTime,
	)
	s.notifier.NotifyAdmins(ctx, model.EventBookingRequest, booking)
	return booking, nil
}

func (s *bookingService) GetByID(ctx context.Context, actor model.Actor, id string) (*model.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanMutate(booking) {
		return nil, apperrors.Forbidden("You can only view your own bookings")
	}
	return booking, nil
}

func (s *bookingService) List(ctx context.Context, actor model.Actor, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	if !actor.IsAdmin() {
		if filter.UserID != "" && filter.UserID != actor.ID {
			return nil, 0, apperrors.Forbidden("You can only list your own bookings")
		}
		filter.UserID = actor.ID
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, 0, apperrors.Validation("Invalid booking filter", map[string]any{
			"status": "status must be one of: pending, approved, rejected",
		})
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, 0, apperrors.Validation("Invalid booking filter", map[string]any{
			"to": "to must not be before from",
		})
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.List(ctx, filter, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

func (s *bookingService) Update(ctx context.Context, actor model.Actor, id string, patch *model.BookingUpdate) (*model.Booking, error) {
	if patch == nil {
		return nil, apperrors.InvalidInput("Booking update cannot be empty")
	}

	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanMutate(existing) {
		return nil, apperrors.Forbidden("You can only modify your own bookings")
	}

	sanitizer.SanitizeBookingUpdate(patch)
	if err := s.validator.ValidateUpdate(patch); err != nil {
		return nil, s.validationError("Booking update validation failed", err)
	}
	if patch.Status != nil && model.Status(*patch.Status) != existing.Status && !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Only administrators can change booking status")
	}

	merged := mergeBookingUpdate(existing, patch)
	if err := s.validator.ValidateTimeRange(merged.StartTime, merged.EndTime); err != nil {
		return nil, s.validationError("Booking update validation failed", err)
	}
	if err := checkTransition(existing.Status, merged.Status); err != nil {
		s.cfg.Log.Warn("Booking status transition rejected", "id", id, "error", err)
		return nil, err
	}
	merged.UpdatedAt = s.now()

	write := func(ctx context.Context) error {
		return s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
			current, err := s.repo.FindByID(ctx, id)
			if err != nil {
				return s.translateRepoError(err, id, "Failed to reload booking")
			}
			if !current.UpdatedAt.Equal(existing.UpdatedAt) {
				return apperrors.Conflict("Booking was modified by another request. Please try again.")
			}
			if needsConflictCheck(existing, merged, patch) {
				if err := s.ensureFree(ctx, interval.Of(merged), id); err != nil {
					return err
				}
			}
			if err := s.repo.Update(ctx, merged); err != nil {
				return s.translateRepoError(err, id, "Failed to update booking")
			}
			return nil
		})
	}

	if needsConflictCheck(existing, merged, patch) {
		err = s.withSlot(ctx, merged.SpaceID, merged.Date, write)
	} else {
		err = write(ctx)
	}
	if err != nil {
		s.logFailure("Failed to update booking", err, "id", id)
		return nil, err
	}

	s.invalidateStats(ctx)
	s.cfg.Log.Info("Booking updated successfully",
		"id", id,
		"status", merged.Status,
		"date", merged.Date,
		"start_time", merged.StartTime,
		"end_time", merged.EndTime,
	)
	if merged.Status != existing.Status {
		s.notifier.NotifyUser(ctx, merged.UserID, model.EventStatusUpdate, merged)
	}
	return merged, nil
}

func (s *bookingService) Delete(ctx context.Context, actor model.Actor, id string) error {
	existing, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanMutate(existing) {
		return apperrors.Forbidden("You can only delete your own bookings")
	}

	err = s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, id); err != nil {
			return s.translateRepoError(err, id, "Failed to delete booking")
		}
		return nil
	})
	if err != nil {
		s.logFailure("Failed to delete booking", err, "id", id)
		return err
	}

	s.invalidateStats(ctx)
	s.cfg.Log.Info("Booking deleted successfully", "id", id, "deleted_by", actor.ID)
	if !actor.Owns(existing) {
		s.notifier.NotifyUser(ctx, existing.UserID, model.EventBookingDeleted, existing)
	}
	return nil
}

func (s *bookingService) CheckConflict(ctx context.Context, req *model.BookingRequest, excludeID string) (*model.Booking, error) {
	if req == nil {
		return nil, apperrors.InvalidInput("Booking request cannot be empty")
	}

	sanitizer.SanitizeBookingRequest(req)
	if err := s.validator.ValidateCreate(req); err != nil {
		return nil, s.validationError("Booking validation failed", err)
	}

	candidate, err := interval.New(req.SpaceID, model.MustDate(req.Date), model.MustTimeOfDay(req.StartTime), model.MustTimeOfDay(req.EndTime))
	if err != nil {
		return nil, apperrors.Validation("Booking validation failed", map[string]any{"end_time": err.Error()})
	}

	found, err := s.detector.FindConflict(ctx, candidate, sanitizer.SanitizeID(excludeID))
	if err != nil {
		s.cfg.Log.Error("Failed to check booking conflict", "space_id", req.SpaceID, "error", err)
		return nil, apperrors.Internal("Failed to check booking conflict", err)
	}
	return found, nil
}

func (s *bookingService) Occupied(ctx context.Context, spaceID string, date model.Date) ([]*model.Booking, error) {
	spaceID = sanitizer.SanitizeID(spaceID)
	if spaceID == "" {
		return nil, apperrors.InvalidInput("Space ID cannot be empty")
	}
	if date.IsZero() {
		return nil, apperrors.InvalidInput("Date is required")
	}

	bookings, err := s.detector.Occupied(ctx, spaceID, date)
	if err != nil {
		s.cfg.Log.Error("Failed to list occupied slots", "space_id", spaceID, "date", date, "error", err)
		return nil, apperrors.Internal("Failed to list occupied slots", err)
	}
	return bookings, nil
}

// --- Helpers ---

func (s *bookingService) load(ctx context.Context, id string) (*model.Booking, error) {
	id = sanitizer.SanitizeID(id)
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateRepoError(err, id, "Failed to retrieve booking")
	}
	return booking, nil
}

func (s *bookingService) translateRepoError(err error, id, message string) error {
	switch {
	case apperrors.IsAppError(err):
		return err
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format")
	default:
		return apperrors.Internal(message, err)
	}
}

// withSlot runs fn while holding the lock of one space and day.
func (s *bookingService) withSlot(ctx context.Context, spaceID string, date model.Date, fn func(ctx context.Context) error) error {
	key := repository.SlotKey(spaceID, date)

	release, err := s.locker.Acquire(ctx, key)
	if err != nil {
		switch {
		case errors.Is(err, bookingserrors.ErrLockHeld):
			return apperrors.Conflict("This time slot is currently being booked by another request. Please try again.")
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			return apperrors.Timeout("Timed out waiting for the booking slot")
		default:
			return apperrors.Internal("Failed to acquire booking lock", err)
		}
	}
	defer func() {
		if releaseErr := release(context.WithoutCancel(ctx)); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release booking lock", "key", key, "error", releaseErr)
		}
	}()

	return fn(ctx)
}

func (s *bookingService) ensureFree(ctx context.Context, candidate interval.Interval, excludeID string) error {
	found, err := s.detector.FindConflict(ctx, candidate, excludeID)
	if err != nil {
		return apperrors.Internal("Failed to check existing bookings", err)
	}
	if found != nil {
		return conflictError(found)
	}
	return nil
}

func conflictError(b *model.Booking) error {
	return apperrors.Conflict(fmt.Sprintf(
		"Booking time overlaps with existing booking (%s - %s)",
		b.StartTime,
		b.EndTime,
	)).WithDetails(map[string]any{
		"conflicting_booking_id": b.ID,
		"start_time":             b.StartTime.String(),
		"end_time":               b.EndTime.String(),
	})
}

func (s *bookingService) validationError(message string, err error) error {
	s.cfg.Log.Warn(message, "error", err)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Details())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}

// logFailure keeps expected outcomes (conflicts, bad input) at warn level.
func (s *bookingService) logFailure(message string, err error, args ...any) {
	args = append(args, "error", err)
	appErr := apperrors.AsAppError(err)
	if appErr.StatusCode() >= 500 {
		s.cfg.Log.Error(message, args...)
		return
	}
	s.cfg.Log.Warn(message, args...)
}

func (s *bookingService) invalidateStats(ctx context.Context) {
	if err := s.stats.Invalidate(context.WithoutCancel(ctx)); err != nil {
		s.cfg.Log.Warn("Failed to invalidate stats cache", "error", err)
	}
}

// mergeBookingUpdate applies patch over existing. The patch must already be validated.
func mergeBookingUpdate(existing *model.Booking, patch *model.BookingUpdate) *model.Booking {
	merged := *existing

	if patch.Date != nil {
		merged.Date = model.MustDate(*patch.Date)
	}
	if patch.StartTime != nil {
		merged.StartTime = model.MustTimeOfDay(*patch.StartTime)
	}
	if patch.EndTime != nil {
		merged.EndTime = model.MustTimeOfDay(*patch.EndTime)
	}
	if patch.Status != nil {
		merged.Status = model.Status(*patch.Status)
	}
	if patch.Notes != nil {
		merged.Notes = *patch.Notes
	}

	return &merged
}

// needsConflictCheck is true when the result holds the slot and either the
// interval moved or the booking is coming back from rejected.
func needsConflictCheck(existing, merged *model.Booking, patch *model.BookingUpdate) bool {
	if !merged.Status.HoldsSlot() {
		return false
	}
	return patch.TouchesInterval() || !existing.Status.HoldsSlot()
}

var allowedTransitions = map[model.Status][]model.Status{
	model.StatusPending:  {model.StatusApproved, model.StatusRejected},
	model.StatusApproved: {model.StatusRejected},
	model.StatusRejected: {model.StatusApproved},
}

func checkTransition(from, to model.Status) error {
	if from == to {
		return nil
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return nil
		}
	}
	return apperrors.Validation("Invalid status transition", map[string]any{
		"status": fmt.Sprintf("cannot change status from %s to %s", from, to),
	})
}

package repository

import (
	"context"
	"sort"
	"sync"

	bookingserrors "venuebook/internal/bookings/errors"
	mongotx "venuebook/pkg/db/mongo"
	"venuebook/pkg/model"
)

// memoryBookingRepository keeps bookings in process. Transactions are
// serialized and roll back to a snapshot when fn fails.
type memoryBookingRepository struct {
	txMu     sync.Mutex
	mu       sync.RWMutex
	bookings map[string]model.Booking
}

func NewMemoryBookingRepository() BookingRepository {
	return &memoryBookingRepository{bookings: make(map[string]model.Booking)}
}

func (r *memoryBookingRepository) FindOverlapCandidates(_ context.Context, spaceID string, date model.Date, excludeID string) ([]*model.Booking, error) {
	return r.collect(func(b *model.Booking) bool {
		return b.SpaceID == spaceID && b.Date == date && b.Status != model.StatusRejected && b.ID != excludeID
	}, byStart), nil
}

func (r *memoryBookingRepository) Insert(_ context.Context, booking *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[booking.ID] = *booking
	return nil
}

func (r *memoryBookingRepository) FindByID(_ context.Context, id string) (*model.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	return &b, nil
}

func (r *memoryBookingRepository) Update(_ context.Context, booking *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[booking.ID]; !ok {
		return bookingserrors.ErrNotFound
	}
	r.bookings[booking.ID] = *booking
	return nil
}

func (r *memoryBookingRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[id]; !ok {
		return bookingserrors.ErrNotFound
	}
	delete(r.bookings, id)
	return nil
}

func (r *memoryBookingRepository) QueryByDateRange(_ context.Context, from, to model.Date, userID string) ([]*model.Booking, error) {
	return r.collect(func(b *model.Booking) bool {
		if userID != "" && b.UserID != userID {
			return false
		}
		return !b.Date.Before(from) && !b.Date.After(to)
	}, byDateThenStart), nil
}

func (r *memoryBookingRepository) List(_ context.Context, f model.BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
	all := r.collect(matchFilter(f), newestFirst)
	if offset >= int64(len(all)) {
		return []*model.Booking{}, nil
	}
	end := min(int(offset)+limit, len(all))
	return all[offset:end], nil
}

func (r *memoryBookingRepository) Count(_ context.Context, f model.BookingFilter) (int64, error) {
	return int64(len(r.collect(matchFilter(f), nil))), nil
}

func (r *memoryBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.RLock()
	snapshot := make(map[string]model.Booking, len(r.bookings))
	for k, v := range r.bookings {
		snapshot[k] = v
	}
	r.mu.RUnlock()

	if err := fn(ctx); err != nil {
		r.mu.Lock()
		r.bookings = snapshot
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *memoryBookingRepository) collect(match func(*model.Booking) bool, less func(a, b *model.Booking) bool) []*model.Booking {
	r.mu.RLock()
	out := []*model.Booking{}
	for _, b := range r.bookings {
		b := b
		if match(&b) {
			out = append(out, &b)
		}
	}
	r.mu.RUnlock()

	if less != nil {
		sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	}
	return out
}

func matchFilter(f model.BookingFilter) func(*model.Booking) bool {
	return func(b *model.Booking) bool {
		switch {
		case f.SpaceID != "" && b.SpaceID != f.SpaceID:
			return false
		case f.UserID != "" && b.UserID != f.UserID:
			return false
		case f.Status != "" && b.Status != f.Status:
			return false
		case !f.From.IsZero() && b.Date.Before(f.From):
			return false
		case !f.To.IsZero() && b.Date.After(f.To):
			return false
		}
		return true
	}
}

func byStart(a, b *model.Booking) bool {
	if a.StartTime != b.StartTime {
		return a.StartTime < b.StartTime
	}
	return a.ID < b.ID
}

func byDateThenStart(a, b *model.Booking) bool {
	if a.Date != b.Date {
		return a.Date.Before(b.Date)
	}
	return byStart(a, b)
}

func newestFirst(a, b *model.Booking) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}

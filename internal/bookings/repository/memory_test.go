package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	bookingserrors "venuebook/internal/bookings/errors"
	"venuebook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, repo BookingRepository, bookings ...model.Booking) {
	t.Helper()
	for i := range bookings {
		require.NoError(t, repo.Insert(context.Background(), &bookings[i]))
	}
}

func mk(id, space, user, date, start, end string, status model.Status, created time.Time) model.Booking {
	return model.Booking{
		ID:        id,
		SpaceID:   space,
		UserID:    user,
		Date:      model.MustDate(date),
		StartTime: model.MustTimeOfDay(start),
		EndTime:   model.MustTimeOfDay(end),
		Status:    status,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestMemoryRepository_FindOverlapCandidates(t *testing.T) {
	repo := NewMemoryBookingRepository()
	t0 := time.Now()
	seed(t, repo,
		mk("b", "gym", "u1", "2025-01-01", "11:00", "12:00", model.StatusApproved, t0),
		mk("a", "gym", "u1", "2025-01-01", "09:00", "10:00", model.StatusPending, t0),
		mk("r", "gym", "u2", "2025-01-01", "09:00", "10:00", model.StatusRejected, t0),
		mk("x", "gym", "u2", "2025-01-02", "09:00", "10:00", model.StatusApproved, t0),
		mk("y", "pool", "u2", "2025-01-01", "09:00", "10:00", model.StatusApproved, t0),
	)

	got, err := repo.FindOverlapCandidates(context.Background(), "gym", model.MustDate("2025-01-01"), "b")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)

	got, err = repo.FindOverlapCandidates(context.Background(), "gym", model.MustDate("2025-01-01"), "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryBookingRepository()
	seed(t, repo, mk("a", "gym", "u1", "2025-01-01", "09:00", "10:00", model.StatusPending, time.Now()))

	b, err := repo.FindByID(context.Background(), "a")
	require.NoError(t, err)
	b.Status = model.StatusApproved

	again, err := repo.FindByID(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, again.Status)
}

func TestMemoryRepository_NotFound(t *testing.T) {
	repo := NewMemoryBookingRepository()
	ctx := context.Background()

	_, err := repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, bookingserrors.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, &model.Booking{ID: "missing"}), bookingserrors.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "missing"), bookingserrors.ErrNotFound)
}

func TestMemoryRepository_QueryByDateRange(t *testing.T) {
	repo := NewMemoryBookingRepository()
	t0 := time.Now()
	seed(t, repo,
		mk("1", "gym", "u1", "2024-12-31", "09:00", "10:00", model.StatusApproved, t0),
		mk("2", "gym", "u1", "2025-01-01", "09:00", "10:00", model.StatusApproved, t0),
		mk("3", "gym", "u2", "2025-01-15", "09:00", "10:00", model.StatusRejected, t0),
		mk("4", "gym", "u1", "2025-01-31", "09:00", "10:00", model.StatusPending, t0),
		mk("5", "gym", "u1", "2025-02-01", "09:00", "10:00", model.StatusPending, t0),
	)

	got, err := repo.QueryByDateRange(context.Background(), model.MustDate("2025-01-01"), model.MustDate("2025-01-31"), "")
	require.NoError(t, err)
	ids := []string{}
	for _, b := range got {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{"2", "3", "4"}, ids)

	got, err = repo.QueryByDateRange(context.Background(), model.MustDate("2025-01-01"), model.MustDate("2025-01-31"), "u2")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "3", got[0].ID)
}

func TestMemoryRepository_ListAndCount(t *testing.T) {
	repo := NewMemoryBookingRepository()
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	seed(t, repo,
		mk("old", "gym", "u1", "2025-02-01", "09:00", "10:00", model.StatusApproved, t0),
		mk("mid", "gym", "u1", "2025-02-01", "10:00", "11:00", model.StatusPending, t0.Add(time.Hour)),
		mk("new", "pool", "u2", "2025-02-01", "09:00", "10:00", model.StatusPending, t0.Add(2*time.Hour)),
	)
	ctx := context.Background()

	all, err := repo.List(ctx, model.BookingFilter{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "new", all[0].ID)
	assert.Equal(t, "old", all[2].ID)

	page, err := repo.List(ctx, model.BookingFilter{}, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "mid", page[0].ID)

	beyond, err := repo.List(ctx, model.BookingFilter{}, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, beyond)

	n, err := repo.Count(ctx, model.BookingFilter{UserID: "u1", Status: model.StatusPending})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.Count(ctx, model.BookingFilter{SpaceID: "gym"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestMemoryRepository_TransactionRollsBack(t *testing.T) {
	repo := NewMemoryBookingRepository()
	ctx := context.Background()
	seed(t, repo, mk("keep", "gym", "u1", "2025-01-01", "09:00", "10:00", model.StatusPending, time.Now()))

	boom := errors.New("boom")
	err := repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
		b := mk("temp", "gym", "u1", "2025-01-01", "11:00", "12:00", model.StatusPending, time.Now())
		require.NoError(t, repo.Insert(ctx, &b))
		require.NoError(t, repo.Delete(ctx, "keep"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.FindByID(ctx, "keep")
	assert.NoError(t, err)
	_, err = repo.FindByID(ctx, "temp")
	assert.ErrorIs(t, err, bookingserrors.ErrNotFound)
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"venuebook/internal/bookings/repository"
	"venuebook/internal/bookings/validator"
	apperrors "venuebook/pkg/errors"
	"venuebook/pkg/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStats(t *testing.T, repo repository.BookingRepository) {
	t.Helper()
	rows := []struct {
		id, space, user, date string
		status                model.Status
	}{
		{"1", "hall", "alice", "2025-03-01", model.StatusApproved},
		{"2", "hall", "alice", "2025-03-01", model.StatusPending},
		{"3", "studio", "bob", "2025-03-01", model.StatusRejected},
		{"4", "studio", "alice", "2025-03-03", model.StatusApproved},
		{"5", "hall", "carol", "2025-03-03", model.StatusApproved},
		{"6", "hall", "bob", "2025-03-05", model.StatusPending},
		{"7", "hall", "bob", "2025-04-01", model.StatusApproved},
	}
	for _, r := range rows {
		require.NoError(t, repo.Insert(context.Background(), &model.Booking{
			ID:        r.id,
			SpaceID:   r.space,
			UserID:    r.user,
			Date:      model.MustDate(r.date),
			StartTime: model.MustTimeOfDay("09:00"),
			EndTime:   model.MustTimeOfDay("10:00"),
			Status:    r.status,
			CreatedAt: time.Now(),
		}))
	}
}

func newStats(t *testing.T, cache StatsCache) (StatsService, repository.BookingRepository) {
	t.Helper()
	cfg := testConfig()
	repo := repository.NewMemoryBookingRepository()
	seedStats(t, repo)
	return NewStatsService(repo, validator.NewBookingValidator(cfg.Log), cache, cfg), repo
}

func march() model.StatsFilter {
	return model.StatsFilter{From: model.MustDate("2025-03-01"), To: model.MustDate("2025-03-31")}
}

func TestCountsByDate(t *testing.T) {
	svc, _ := newStats(t, nil)
	ctx := context.Background()

	got, err := svc.CountsByDate(ctx, march())
	require.NoError(t, err)
	assert.Equal(t, []model.DateCount{
		{Date: model.MustDate("2025-03-01"), Count: 3},
		{Date: model.MustDate("2025-03-03"), Count: 2},
		{Date: model.MustDate("2025-03-05"), Count: 1},
	}, got)

	f := march()
	f.UserID = "alice"
	got, err = svc.CountsByDate(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, []model.DateCount{
		{Date: model.MustDate("2025-03-01"), Count: 2},
		{Date: model.MustDate("2025-03-03"), Count: 1},
	}, got)
}

func TestStats_EmptyRange(t *testing.T) {
	svc, _ := newStats(t, nil)
	ctx := context.Background()
	empty := model.StatsFilter{From: model.MustDate("2026-01-01"), To: model.MustDate("2026-01-31")}

	dates, err := svc.CountsByDate(ctx, empty)
	require.NoError(t, err)
	assert.Empty(t, dates)

	users, err := svc.StatsByUser(ctx, empty, nil)
	require.NoError(t, err)
	assert.Empty(t, users)

	spaces, err := svc.DetailedStatsBySpace(ctx, empty)
	require.NoError(t, err)
	assert.Empty(t, spaces)
}

func TestStatsByUserAndSpace(t *testing.T) {
	svc, _ := newStats(t, nil)
	ctx := context.Background()

	users, err := svc.StatsByUser(ctx, march(), nil)
	require.NoError(t, err)
	assert.Equal(t, []model.UserCount{
		{UserID: "alice", Count: 3},
		{UserID: "bob", Count: 2},
		{UserID: "carol", Count: 1},
	}, users)

	approved := model.StatusApproved
	users, err = svc.StatsByUser(ctx, march(), &approved)
	require.NoError(t, err)
	assert.Equal(t, []model.UserCount{
		{UserID: "alice", Count: 2},
		{UserID: "carol", Count: 1},
	}, users)

	spaces, err := svc.StatsBySpace(ctx, march(), nil)
	require.NoError(t, err)
	assert.Equal(t, []model.SpaceCount{
		{SpaceID: "hall", Count: 4},
		{SpaceID: "studio", Count: 2},
	}, spaces)

	bogus := model.Status("cancelled")
	_, err = svc.StatsBySpace(ctx, march(), &bogus)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestDetailedStats_SumsMatchFlatCounts(t *testing.T) {
	svc, _ := newStats(t, nil)
	ctx := context.Background()

	detailed, err := svc.DetailedStatsByUser(ctx, march())
	require.NoError(t, err)
	flat, err := svc.StatsByUser(ctx, march(), nil)
	require.NoError(t, err)

	flatByUser := map[string]int{}
	for _, c := range flat {
		flatByUser[c.UserID] = c.Count
	}
	require.Len(t, detailed, len(flat))
	for _, d := range detailed {
		assert.Equal(t, flatByUser[d.UserID], d.Approved+d.Pending+d.Rejected, d.UserID)
		assert.Equal(t, flatByUser[d.UserID], d.Total, d.UserID)
	}
	assert.Equal(t, model.UserBreakdown{
		UserID:          "alice",
		StatusBreakdown: model.StatusBreakdown{Approved: 2, Pending: 1},
		Total:           3,
	}, detailed[0])

	spaces, err := svc.DetailedStatsBySpace(ctx, march())
	require.NoError(t, err)
	assert.Equal(t, []model.SpaceBreakdown{
		{SpaceID: "hall", StatusBreakdown: model.StatusBreakdown{Approved: 2, Pending: 2}, Total: 4},
		{SpaceID: "studio", StatusBreakdown: model.StatusBreakdown{Approved: 1, Rejected: 1}, Total: 2},
	}, spaces)
}

func TestStats_RangeValidation(t *testing.T) {
	svc, _ := newStats(t, nil)
	ctx := context.Background()

	_, err := svc.CountsByDate(ctx, model.StatsFilter{From: model.MustDate("2025-03-02"), To: model.MustDate("2025-03-01")})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, err = svc.CountsByDate(ctx, model.StatsFilter{From: model.MustDate("2024-01-01"), To: model.MustDate("2025-06-01")})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, err = svc.StatsByUser(ctx, model.StatsFilter{}, nil)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func newRedisCache(t *testing.T) (*miniredis.Miniredis, StatsCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewRedisStatsCache(rdb, time.Minute)
}

func TestRedisStatsCache_RoundTrip(t *testing.T) {
	mr, cache := newRedisCache(t)
	ctx := context.Background()

	gen, err := cache.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	var miss []model.UserCount
	ok, err := cache.Load(ctx, gen, "users", &miss)
	require.NoError(t, err)
	assert.False(t, ok)

	want := []model.UserCount{{UserID: "alice", Count: 2}}
	require.NoError(t, cache.Store(ctx, gen, "users", want))
	assert.Equal(t, time.Minute, mr.TTL("stats:0:users"))

	var got []model.UserCount
	ok, err = cache.Load(ctx, gen, "users", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, cache.Invalidate(ctx))
	gen, err = cache.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)

	ok, err = cache.Load(ctx, gen, "users", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStats_CacheServesUntilWriteCommits(t *testing.T) {
	_, cache := newRedisCache(t)
	cfg := testConfig()
	repo := repository.NewMemoryBookingRepository()
	seedStats(t, repo)
	v := validator.NewBookingValidator(cfg.Log)
	stats := NewStatsService(repo, v, cache, cfg)
	bookings := NewBookingService(repo, repository.NewMemorySlotLocker(time.Second), v, nil, cache, cfg)
	ctx := context.Background()

	first, err := stats.CountsByDate(ctx, march())
	require.NoError(t, err)
	require.Len(t, first, 3)

	// a row written behind the service's back is not visible until a write invalidates
	require.NoError(t, repo.Insert(ctx, &model.Booking{
		ID: "hidden", SpaceID: "hall", UserID: "dave", Date: model.MustDate("2025-03-20"),
		StartTime: model.MustTimeOfDay("09:00"), EndTime: model.MustTimeOfDay("10:00"), Status: model.StatusPending,
	}))
	cachedResult, err := stats.CountsByDate(ctx, march())
	require.NoError(t, err)
	assert.Equal(t, first, cachedResult)

	_, err = bookings.Create(ctx, alice, request("studio", "2025-03-21", "09:00", "10:00"))
	require.NoError(t, err)

	fresh, err := stats.CountsByDate(ctx, march())
	require.NoError(t, err)
	assert.Len(t, fresh, 5)
}

type failingCache struct{ StatsCache }

func (failingCache) Generation(context.Context) (int64, error) {
	return 0, errors.New("redis down")
}

func TestStats_CacheFailureFallsBackToStore(t *testing.T) {
	svc, _ := newStats(t, failingCache{NewNopStatsCache()})

	got, err := svc.CountsByDate(context.Background(), march())
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

package client_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"venuebook/internal/bookings/handler"
	"venuebook/internal/bookings/repository"
	"venuebook/internal/bookings/service"
	"venuebook/internal/bookings/validator"
	"venuebook/pkg/app"
	"venuebook/pkg/auth"
	"venuebook/pkg/client"
	"venuebook/pkg/config"
	apperrors "venuebook/pkg/errors"
	"venuebook/pkg/logger"
	"venuebook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "client-test-secret-0123456789"

func startServer(t *testing.T) string {
	t.Helper()
	cfg := &config.Config{
		Port:              "0",
		Log:               logger.Discard(),
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    5 * time.Second,
		IdempotencyTTL:    time.Hour,
		MaxRequestSize:    config.DefaultMaxRequestSize,
		ShutdownTimeout:   time.Second,
	}

	repo := repository.NewMemoryBookingRepository()
	v := validator.NewBookingValidator(cfg.Log)
	bookings := service.NewBookingService(repo, repository.NewMemorySlotLocker(time.Second), v, nil, nil, cfg)
	stats := service.NewStatsService(repo, v, nil, cfg)

	a := app.NewApplication()
	a.SetApp(cfg,
		handler.NewHealthHandler(cfg.Log),
		handler.NewBookingHandler(bookings, stats, cfg.Log),
		auth.NewAuthenticator(secret, "venuebook"),
		nil,
	)

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

func clientFor(t *testing.T, baseURL string, actor model.Actor) *client.BookingClient {
	t.Helper()
	token, err := auth.NewAuthenticator(secret, "venuebook").Issue(actor, time.Hour)
	require.NoError(t, err)
	return client.NewBookingClient(baseURL, token)
}

func TestBookingClient_Lifecycle(t *testing.T) {
	baseURL := startServer(t)
	ctx := context.Background()

	require.NoError(t, client.NewHttpClient(baseURL).WaitForHealthy(ctx, 2*time.Second))

	alice := clientFor(t, baseURL, model.Actor{ID: "alice", Role: model.RoleUser})
	bob := clientFor(t, baseURL, model.Actor{ID: "bob", Role: model.RoleUser})
	admin := clientFor(t, baseURL, model.Actor{ID: "root", Role: model.RoleAdmin})

	created, err := alice.Create(ctx, &model.BookingRequest{
		SpaceID: "hall", Date: "2025-03-01", StartTime: "09:00", EndTime: "10:00", Notes: "standup",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", created.UserID)
	assert.Equal(t, model.StatusPending, created.Status)

	_, err = bob.Create(ctx, &model.BookingRequest{
		SpaceID: "hall", Date: "2025-03-01", StartTime: "09:30", EndTime: "11:00",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	_, err = bob.GetByID(ctx, created.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	status := string(model.StatusApproved)
	_, err = alice.Update(ctx, created.ID, &model.BookingUpdate{Status: &status})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	approved, err := admin.Update(ctx, created.ID, &model.BookingUpdate{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, approved.Status)

	slots, err := bob.Occupied(ctx, "hall", model.MustDate("2025-03-01"))
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, created.ID, slots[0].BookingID)

	list, meta, err := admin.List(ctx, client.ListOptions{Filter: model.BookingFilter{SpaceID: "hall"}, Limit: 5})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, int64(1), meta.TotalCount)
	assert.Equal(t, 5, meta.Limit)

	counts, err := alice.CountsByDate(ctx, model.MustDate("2025-03-01"), model.MustDate("2025-03-31"), "")
	require.NoError(t, err)
	assert.Equal(t, []model.DateCount{{Date: model.MustDate("2025-03-01"), Count: 1}}, counts)

	require.NoError(t, alice.Delete(ctx, created.ID))
	_, err = alice.GetByID(ctx, created.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestBookingClient_IdempotentCreate(t *testing.T) {
	baseURL := startServer(t)
	ctx := context.Background()
	alice := clientFor(t, baseURL, model.Actor{ID: "alice", Role: model.RoleUser})

	req := &model.BookingRequest{SpaceID: "studio", Date: "2025-03-02", StartTime: "14:00", EndTime: "15:00"}
	first, err := alice.CreateIdempotent(ctx, "retry-1", req)
	require.NoError(t, err)

	again, err := alice.CreateIdempotent(ctx, "retry-1", req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	_, err = alice.CreateIdempotent(ctx, "retry-2", req)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
}

func TestBookingClient_RejectsBadToken(t *testing.T) {
	baseURL := startServer(t)

	_, _, err := client.NewBookingClient(baseURL, "not-a-jwt").List(context.Background(), client.ListOptions{})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
}

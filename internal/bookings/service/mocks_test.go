package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"venuebook/internal/bookings/repository"
	"venuebook/internal/bookings/validator"
	"venuebook/pkg/config"
	"venuebook/pkg/logger"
	"venuebook/pkg/model"

	"github.com/stretchr/testify/require"
)

type sentEvent struct {
	Recipient string
	Type      model.EventType
	BookingID string
	Status    model.Status
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (n *recordingNotifier) NotifyAdmins(_ context.Context, event model.EventType, b *model.Booking) {
	n.record(model.RecipientAdmins, event, b)
}

func (n *recordingNotifier) NotifyUser(_ context.Context, userID string, event model.EventType, b *model.Booking) {
	n.record(userID, event, b)
}

func (n *recordingNotifier) record(recipient string, event model.EventType, b *model.Booking) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{Recipient: recipient, Type: event, BookingID: b.ID, Status: b.Status})
}

func (n *recordingNotifier) Events() []sentEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentEvent(nil), n.events...)
}

type mockLocker struct {
	acquireFunc func(ctx context.Context, key string) (repository.ReleaseFunc, error)
	calls       []string
}

func (m *mockLocker) Acquire(ctx context.Context, key string) (repository.ReleaseFunc, error) {
	m.calls = append(m.calls, key)
	return m.acquireFunc(ctx, key)
}

type countingCache struct {
	StatsCache
	mu          sync.Mutex
	invalidated int
}

func (c *countingCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	c.invalidated++
	c.mu.Unlock()
	return c.StatsCache.Invalidate(ctx)
}

func testConfig() *config.Config {
	return &config.Config{Log: logger.Discard()}
}

type fixture struct {
	repo     repository.BookingRepository
	notifier *recordingNotifier
	cache    *countingCache
	svc      BookingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithLocker(t, repository.NewMemorySlotLocker(2*time.Second))
}

func newFixtureWithLocker(t *testing.T, locker repository.SlotLocker) *fixture {
	t.Helper()
	cfg := testConfig()
	repo := repository.NewMemoryBookingRepository()
	notifier := &recordingNotifier{}
	cache := &countingCache{StatsCache: NewNopStatsCache()}
	svc := NewBookingService(repo, locker, validator.NewBookingValidator(cfg.Log), notifier, cache, cfg)
	return &fixture{repo: repo, notifier: notifier, cache: cache, svc: svc}
}

var (
	alice = model.Actor{ID: "alice", Role: model.RoleUser}
	bob   = model.Actor{ID: "bob", Role: model.RoleUser}
	admin = model.Actor{ID: "root", Role: model.RoleAdmin}
)

func request(space, date, start, end string) *model.BookingRequest {
	return &model.BookingRequest{SpaceID: space, Date: date, StartTime: start, EndTime: end}
}

func (f *fixture) mustCreate(t *testing.T, actor model.Actor, space, date, start, end string) *model.Booking {
	t.Helper()
	b, err := f.svc.Create(context.Background(), actor, request(space, date, start, end))
	require.NoError(t, err)
	return b
}

func (f *fixture) setStatus(t *testing.T, id string, status model.Status) {
	t.Helper()
	s := string(status)
	_, err := f.svc.Update(context.Background(), admin, id, &model.BookingUpdate{Status: &s})
	require.NoError(t, err)
}

func strPtr(s string) *string { return &s }

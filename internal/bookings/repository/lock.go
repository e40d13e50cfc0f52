package repository

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	bookingserrors "venuebook/internal/bookings/errors"
	"venuebook/pkg/config"
	"venuebook/pkg/logger"
	"venuebook/pkg/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	LockCollectionName = "Booking_locks"

	redisLockPrefix = "lock:"
	minLockBackoff  = 10 * time.Millisecond
	maxLockBackoff  = 200 * time.Millisecond
)

// ReleaseFunc gives a held slot back. It is safe to call once.
type ReleaseFunc func(ctx context.Context) error

// SlotLocker serializes check-then-write sequences on one (space, date) slot.
// Acquire blocks until the slot is free, ctx ends, or the locker's wait budget
// runs out, in which case it returns ErrLockHeld.
type SlotLocker interface {
	Acquire(ctx context.Context, key string) (ReleaseFunc, error)
}

func SlotKey(spaceID string, date model.Date) string {
	return fmt.Sprintf("slot:%s:%s", spaceID, date)
}

// NewSlotLocker picks the backend named by cfg.LockBackend.
func NewSlotLocker(cfg *config.Config) (SlotLocker, error) {
	switch cfg.LockBackend {
	case config.LockBackendMongo:
		coll := cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(LockCollectionName)
		return NewMongoSlotLocker(coll, cfg.LockTTL, cfg.LockWaitTimeout, cfg.Log), nil
	case config.LockBackendRedis:
		return NewRedisSlotLocker(cfg.Client.Redis, cfg.LockTTL, cfg.LockWaitTimeout), nil
	case config.LockBackendMemory:
		return NewMemorySlotLocker(cfg.LockWaitTimeout), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.LockBackend)
	}
}

// retryAcquire calls try until it reports success, backing off with jitter
// between attempts. try returns (acquired, error).
func retryAcquire(ctx context.Context, wait time.Duration, try func(ctx context.Context) (bool, error)) error {
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	backoff := minLockBackoff
	for {
		ok, err := try(waitCtx)
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if ok {
			return nil
		}

		sleep := backoff/2 + rand.N(backoff/2+1)
		timer := time.NewTimer(sleep)
		select {
		case <-waitCtx.Done():
			timer.Stop()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return bookingserrors.ErrLockHeld
		case <-timer.C:
		}
		backoff = min(backoff*2, maxLockBackoff)
	}
}

type mongoSlotLocker struct {
	collection *mongo.Collection
	ttl        time.Duration
	wait       time.Duration
	log        *logger.Logger
}

// NewMongoSlotLocker uses one document per held slot. The unique _id makes a
// second insert fail with a duplicate key; expires_at backs a TTL index.
func NewMongoSlotLocker(collection *mongo.Collection, ttl, wait time.Duration, log *logger.Logger) SlotLocker {
	return &mongoSlotLocker{collection: collection, ttl: ttl, wait: wait, log: log}
}

func (l *mongoSlotLocker) Acquire(ctx context.Context, key string) (ReleaseFunc, error) {
	token := uuid.NewString()

	err := retryAcquire(ctx, l.wait, func(ctx context.Context) (bool, error) {
		now := time.Now().UTC()
		lock := model.SlotLock{
			ID:        key,
			Token:     token,
			ExpiresAt: now.Add(l.ttl),
			CreatedAt: now,
		}

		_, err := l.collection.InsertOne(ctx, lock)
		if err == nil {
			return true, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return false, fmt.Errorf("failed to acquire slot lock: %w", err)
		}

		// The TTL monitor runs about once a minute; reclaim expired holders eagerly.
		res, delErr := l.collection.DeleteOne(ctx, bson.M{"_id": key, "expires_at": bson.M{"$lt": now}})
		if delErr == nil && res.DeletedCount > 0 {
			l.log.Warn("Reclaimed expired slot lock", "key", key)
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	return onceRelease(func(ctx context.Context) error {
		res, err := l.collection.DeleteOne(ctx, bson.M{"_id": key, "token": token})
		if err != nil {
			return fmt.Errorf("failed to release slot lock: %w", err)
		}
		if res.DeletedCount == 0 {
			return bookingserrors.ErrLockLost
		}
		return nil
	}), nil
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisSlotLocker struct {
	rdb  redis.UniversalClient
	ttl  time.Duration
	wait time.Duration
}

func NewRedisSlotLocker(rdb redis.UniversalClient, ttl, wait time.Duration) SlotLocker {
	return &redisSlotLocker{rdb: rdb, ttl: ttl, wait: wait}
}

func (l *redisSlotLocker) Acquire(ctx context.Context, key string) (ReleaseFunc, error) {
	token := uuid.NewString()
	redisKey := redisLockPrefix + key

	err := retryAcquire(ctx, l.wait, func(ctx context.Context) (bool, error) {
		ok, err := l.rdb.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return false, fmt.Errorf("failed to acquire slot lock: %w", err)
		}
		return ok, nil
	})
	if err != nil {
		return nil, err
	}

	return onceRelease(func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, l.rdb, []string{redisKey}, token).Int()
		if err != nil {
			return fmt.Errorf("failed to release slot lock: %w", err)
		}
		if n == 0 {
			return bookingserrors.ErrLockLost
		}
		return nil
	}), nil
}

type memorySlot struct {
	ch   chan struct{}
	refs int
}

type memorySlotLocker struct {
	mu    sync.Mutex
	slots map[string]*memorySlot
	wait  time.Duration
}

// NewMemorySlotLocker is a keyed mutex for single-instance deployments and tests.
func NewMemorySlotLocker(wait time.Duration) SlotLocker {
	return &memorySlotLocker{slots: make(map[string]*memorySlot), wait: wait}
}

func (l *memorySlotLocker) Acquire(ctx context.Context, key string) (ReleaseFunc, error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &memorySlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	l.mu.Unlock()

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case slot.ch <- struct{}{}:
		return onceRelease(func(context.Context) error {
			<-slot.ch
			l.unref(key, slot)
			return nil
		}), nil
	case <-ctx.Done():
		l.unref(key, slot)
		return nil, ctx.Err()
	case <-timer.C:
		l.unref(key, slot)
		return nil, bookingserrors.ErrLockHeld
	}
}

func (l *memorySlotLocker) unref(key string, slot *memorySlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
}

func onceRelease(fn ReleaseFunc) ReleaseFunc {
	var once sync.Once
	var err error
	return func(ctx context.Context) error {
		once.Do(func() { err = fn(ctx) })
		return err
	}
}

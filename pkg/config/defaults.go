package config

import "time"

const (
	ServiceBookings = "bookings"
	ServiceNotifier = "notifier"
	JobMigrate      = "mongo-migration"

	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "venuebook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisURL = "redis://localhost:6379/0"

	DefaultPort     = "8080"
	DefaultLogLevel = "info"
	DefaultEnvFile  = ".env"

	DefaultJWTIssuer = "venuebook"

	LockBackendMongo  = "mongo"
	LockBackendRedis  = "redis"
	LockBackendMemory = "memory"

	DefaultLockBackend     = LockBackendMongo
	DefaultLockTTL         = 10 * time.Second
	DefaultLockWaitTimeout = 3 * time.Second

	DefaultStatsCacheEnabled = true
	DefaultStatsCacheTTL     = 5 * time.Minute

	DefaultNotifyEnabled   = true
	DefaultNotifyTopic     = "booking-events"
	DefaultNotifyDLQTopic  = "booking-events-dlq"
	DefaultNotifyQueueSize = 256
	DefaultNotifyWorkers   = 2
	DefaultInboxSize       = 100

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100
	MinJWTSecretLength     = 16
)

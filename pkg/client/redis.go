package client

import (
	"context"
	"time"

	"venuebook/pkg/logger"

	"github.com/redis/go-redis/v9"
)

func connectRedis(log *logger.Logger, redisURL string, connTimeout time.Duration) *redis.Client {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatal("Failed to parse Redis URL", "error", err)
	}
	opt.DialTimeout = connTimeout

	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), connTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to ping Redis", "error", err, "addr", opt.Addr)
	}

	log.Info("Successfully connected to Redis", "addr", opt.Addr, "db", opt.DB)
	return rdb
}

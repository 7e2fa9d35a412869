package helpers

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// NewRedisClient builds the client behind the rate limiter and pings it once.
// An unreachable server is only logged: the limiter fails open until it recovers.
func NewRedisClient(ctx context.Context, addr, password string, db int, logger *logrus.Logger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})

	c, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(c).Err(); err != nil && logger != nil {
		LogWarn(logger, "redis unreachable; rate limiting disabled until it recovers", err, logrus.Fields{"addr": addr})
	}
	return rdb
}

package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/synaptica-ai/genomics/pkg/common/config"
	"github.com/synaptica-ai/genomics/pkg/common/logger"
)

var (
	redisClient *redis.Client
	redisErr    error
	redisOnce   sync.Once
)

// NewRedis builds a client and verifies it with a bounded ping. The client is
// returned even when the ping fails so callers can degrade instead of exit.
func NewRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return client, fmt.Errorf("pinging redis at %s:%s: %w", cfg.RedisHost, cfg.RedisPort, err)
	}
	return client, nil
}

// GetRedis returns the shared client used for the incident alert gate.
func GetRedis() (*redis.Client, error) {
	redisOnce.Do(func() {
		redisClient, redisErr = NewRedis(context.Background(), config.Load())
		if redisErr != nil {
			logger.Log.WithError(redisErr).Warn("Redis unavailable, alert de-duplication disabled")
			return
		}
		logger.Log.Info("Connected to Redis")
	})

	return redisClient, redisErr
}

func CloseRedis() error {
	if redisClient != nil {
		return redisClient.Close()
	}
	return nil
}

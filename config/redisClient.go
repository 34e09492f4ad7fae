package config

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis builds a client for REDIS_ADDRESS and checks it answers.
func ConnectRedis(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}
	return client, nil
}

package database

import (
	"fmt"
	"log/slog"

	"office-chat/config"

	"github.com/redis/go-redis/v9"
)

// RedisConnect returns nil when REDIS_HOST is not configured.
func RedisConnect() *redis.Client {
	if config.Config("REDIS_HOST") == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf(
			"%s:%s",
			config.Config("REDIS_HOST"),
			config.ConfigOr("REDIS_PORT", "6379"),
		),
		Password: config.Config("REDIS_PASSWORD"),
		DB:       config.ConfigInt("REDIS_DB", 0),
	})

	slog.Info("connection opened to Redis", "addr", client.Options().Addr)
	return client
}

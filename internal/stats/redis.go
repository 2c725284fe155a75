// internal/stats/redis.go
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gridclash/arena/internal/models"
)

// profileKeyPrefix namespaces profile entries in Redis.
const profileKeyPrefix = "arena:profile:"

// Redis is a Provider backed by a Redis instance that an external profile
// service keeps populated with JSON-encoded profiles.
type Redis struct {
	client *redis.Client
}

// ConnectRedis initializes a Redis-backed provider from environment
// variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() (*Redis, error) {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return &Redis{client: client}, nil
}

// Lookup fetches and decodes the stored profile for a nickname.
func (r *Redis) Lookup(ctx context.Context, nickname string) (models.Profile, bool, error) {
	data, err := r.client.Get(ctx, profileKeyPrefix+nickname).Bytes()
	if err == redis.Nil {
		return models.Profile{}, false, nil
	}
	if err != nil {
		return models.Profile{}, false, fmt.Errorf("profile lookup for %q: %w", nickname, err)
	}

	var p models.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return models.Profile{}, false, fmt.Errorf("decode profile for %q: %w", nickname, err)
	}
	return p, true, nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

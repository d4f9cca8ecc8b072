package data

import (
	"log"

	"github.com/redis/go-redis/v9"
)

// MustRedis connects to redis or aborts. Callers pass the resulting client to
// the anti-sybil wallet cache; a nil client there falls back to in-memory.
func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}

package antisybil

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const cachePrefix = "dow:wallet:"

// infoCache is a TTL cache over wallet lookups. With a redis client it is
// shared across processes; without one it degrades to a per-process map.
type infoCache struct {
	rdb *redis.Client
	ttl time.Duration

	mu  sync.Mutex
	mem map[string]memEntry
}

type memEntry struct {
	info    WalletInfo
	expires time.Time
}

func newInfoCache(rdb *redis.Client, ttl time.Duration) *infoCache {
	return &infoCache{
		rdb: rdb,
		ttl: ttl,
		mem: make(map[string]memEntry),
	}
}

func (c *infoCache) get(ctx context.Context, address string) (*WalletInfo, bool) {
	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, cachePrefix+address).Bytes()
		if err != nil {
			return nil, false
		}
		var info WalletInfo
		if json.Unmarshal(raw, &info) != nil {
			return nil, false
		}
		return &info, true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.mem[address]
	if !ok || time.Now().After(e.expires) {
		delete(c.mem, address)
		return nil, false
	}
	info := e.info
	return &info, true
}

func (c *infoCache) set(ctx context.Context, info *WalletInfo) {
	if c.rdb != nil {
		if raw, err := json.Marshal(info); err == nil {
			// Best effort; a cache write failure only costs a re-fetch.
			_ = c.rdb.Set(ctx, cachePrefix+info.Address, raw, c.ttl).Err()
		}
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.mem[info.Address] = memEntry{info: *info, expires: time.Now().Add(c.ttl)}
}

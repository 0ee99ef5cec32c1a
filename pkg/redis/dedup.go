package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	rd "github.com/redis/go-redis/v9"
)

// luaReleaseIfMatch deletes the key only while it still holds our token, so a
// late release never drops a claim taken by someone else after expiry.
const luaReleaseIfMatch = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`

// Dedup claims keys once within a TTL.
type Dedup struct {
	rdb *rd.Client
}

func NewDedup(rdb *rd.Client) *Dedup { return &Dedup{rdb: rdb} }

// Claim returns ok=true for the first caller. The token is needed to Release.
func (d *Dedup) Claim(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := d.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Release gives a claim back, typically after processing failed and a retry should go through.
func (d *Dedup) Release(ctx context.Context, key, token string) error {
	return d.rdb.Eval(ctx, luaReleaseIfMatch, []string{key}, token).Err()
}

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	rd "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*rd.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := rd.NewClient(&rd.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

func TestDedup_ClaimOnce(t *testing.T) {
	rdb, mr := newRedis(t)
	d := NewDedup(rdb)
	ctx := context.Background()
	key := WebhookDedupKey("ORDER-1-1700000000000", "settlement", "200")

	token, ok, err := d.Claim(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = d.Claim(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Hour)
	_, ok, err = d.Claim(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDedup_ReleaseOnlyOwnClaim(t *testing.T) {
	rdb, _ := newRedis(t)
	d := NewDedup(rdb)
	ctx := context.Background()
	key := WebhookDedupKey("ORDER-2-1", "pending", "201")

	token, ok, err := d.Claim(ctx, key, time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, d.Release(ctx, key, "someone-else"))
	_, ok, err = d.Claim(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.Release(ctx, key, token))
	_, ok, err = d.Claim(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPaymentStates(t *testing.T) {
	rdb, mr := newRedis(t)
	s := NewPaymentStates(rdb, 24*time.Hour)
	ctx := context.Background()

	_, found, err := s.Get(ctx, "ORDER-7-1")
	require.NoError(t, err)
	assert.False(t, found)

	in := PaymentState{OrderID: "ORDER-7-1", UserID: 7, OrderIDs: []uint{3, 5}, Amount: 1250, Status: PaymentPending}
	require.NoError(t, s.Put(ctx, in))

	got, found, err := s.Get(ctx, "ORDER-7-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, in, got)
	assert.Equal(t, 24*time.Hour, mr.TTL(PaymentStateKey("ORDER-7-1")))
}

func TestParseIDs(t *testing.T) {
	assert.Equal(t, []uint{1, 2, 3}, parseIDs("1, 2,3"))
	assert.Nil(t, parseIDs(""))
	assert.Equal(t, []uint{4}, parseIDs("x,4,0"))
}

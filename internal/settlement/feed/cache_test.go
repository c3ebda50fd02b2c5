package feed

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/sports-bet-settlement/internal/settlement/domain"
)

func TestRedisFinalCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	c := NewRedisFinalCache(rdb, time.Hour)
	ctx := context.Background()

	m := domain.Match{ID: "m1", Sport: "soccer", HomeScore: 2, AwayScore: 1, Status: domain.MatchCompleted, RawStatus: "FT"}
	require.NoError(t, c.Put(ctx, m))
	assert.True(t, mr.Exists("settlement:match:soccer:m1"))
	assert.Equal(t, time.Hour, mr.TTL("settlement:match:soccer:m1"))

	// primeira gravação prevalece
	other := m
	other.HomeScore = 9
	require.NoError(t, c.Put(ctx, other))

	got, err := c.Get(ctx, "soccer", []string{"m1", "m2"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, m, got["m1"])

	// outro esporte, mesma id, outra chave
	got, err = c.Get(ctx, "hockey", []string{"m1"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisFinalCacheUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	mr.Close()

	c := NewRedisFinalCache(rdb, time.Hour)
	_, err := c.Get(context.Background(), "soccer", []string{"m1"})
	assert.Error(t, err)
}

func TestMemoryFinalCacheFirstWriteWins(t *testing.T) {
	c := NewMemoryFinalCache()
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, domain.Match{ID: "m1", Sport: "soccer", HomeScore: 1}))
	require.NoError(t, c.Put(ctx, domain.Match{ID: "m1", Sport: "soccer", HomeScore: 4}))

	got, err := c.Get(ctx, "soccer", []string{"m1"})
	require.NoError(t, err)
	assert.Equal(t, 1, got["m1"].HomeScore)
}

package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/sports-bet-settlement/internal/settlement/domain"
)

// FinalCache guarda partidas já observadas como finalizadas/canceladas.
// Uma vez no cache o placar é considerado definitivo e o feed não é mais consultado para ela.
type FinalCache interface {
	Get(ctx context.Context, sport string, ids []string) (map[string]domain.Match, error)
	Put(ctx context.Context, m domain.Match) error
}

// RedisFinalCache implementa FinalCache no Redis com TTL (padrão 7 dias)
type RedisFinalCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisFinalCache(c *redis.Client, ttl time.Duration) *RedisFinalCache {
	return &RedisFinalCache{Client: c, TTL: ttl}
}

// key gera a chave Redis de uma partida finalizada
func key(sport, matchID string) string { return "settlement:match:" + sport + ":" + matchID }

func (r *RedisFinalCache) Get(ctx context.Context, sport string, ids []string) (map[string]domain.Match, error) {
	out := make(map[string]domain.Match)
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = key(sport, id)
	}

	vals, err := r.Client.MGet(ctx, keys...).Result()
	if err != nil {
		return out, fmt.Errorf("redis mget: %w", err)
	}
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue // redis.Nil vem como nil
		}
		var m domain.Match
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			continue
		}
		out[m.ID] = m
	}
	return out, nil
}

func (r *RedisFinalCache) Put(ctx context.Context, m domain.Match) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	// SETNX: o primeiro placar final observado prevalece
	return r.Client.SetNX(ctx, key(m.Sport, m.ID), b, r.TTL).Err()
}

// MemoryFinalCache é a versão em processo (ambiente local e testes)
type MemoryFinalCache struct {
	mu      sync.RWMutex
	matches map[string]domain.Match
}

func NewMemoryFinalCache() *MemoryFinalCache {
	return &MemoryFinalCache{matches: make(map[string]domain.Match)}
}

func (c *MemoryFinalCache) Get(_ context.Context, sport string, ids []string) (map[string]domain.Match, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]domain.Match)
	for _, id := range ids {
		if m, ok := c.matches[key(sport, id)]; ok {
			out[id] = m
		}
	}
	return out, nil
}

func (c *MemoryFinalCache) Put(_ context.Context, m domain.Match) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(m.Sport, m.ID)
	if _, ok := c.matches[k]; !ok {
		c.matches[k] = m
	}
	return nil
}

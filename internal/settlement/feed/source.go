package feed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/radieske/sports-bet-settlement/internal/settlement/domain"
)

// Fetcher é o contrato mínimo consumido do fornecedor (implementado por Client)
type Fetcher interface {
	Current(ctx context.Context, sport string) (Response, error)
	History(ctx context.Context, sport string, daysBack int) (Response, error)
}

// Source resolve ids de partidas para registros do feed:
// cache de finais -> feed do dia -> histórico (até HistoryDays dias)
type Source struct {
	log         *zap.Logger
	fetcher     Fetcher
	cache       FinalCache
	historyDays int
}

func NewSource(log *zap.Logger, f Fetcher, cache FinalCache, historyDays int) *Source {
	if cache == nil {
		cache = NewMemoryFinalCache()
	}
	return &Source{log: log, fetcher: f, cache: cache, historyDays: historyDays}
}

// Lookup devolve as partidas encontradas; ids ausentes simplesmente não aparecem no mapa.
// Só a falha do feed do dia é erro; falhas no histórico apenas encerram a busca.
func (s *Source) Lookup(ctx context.Context, sport string, ids []string) (map[string]domain.Match, error) {
	found := make(map[string]domain.Match, len(ids))
	remaining := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" || domain.IsPlaceholderMatchID(id) {
			continue
		}
		remaining[id] = struct{}{}
	}
	if len(remaining) == 0 {
		return found, nil
	}

	cached, err := s.cache.Get(ctx, sport, keys(remaining))
	if err != nil {
		s.log.Warn("final cache read failed", zap.String("sport", sport), zap.Error(err))
	}
	for id, m := range cached {
		found[id] = m
		delete(remaining, id)
	}
	if len(remaining) == 0 {
		return found, nil
	}

	cur, err := s.fetcher.Current(ctx, sport)
	if err != nil {
		return found, fmt.Errorf("current feed %s: %w", sport, err)
	}
	s.collect(ctx, sport, cur, found, remaining)

	for d := 1; d <= s.historyDays && len(remaining) > 0; d++ {
		hist, err := s.fetcher.History(ctx, sport, d)
		if err != nil {
			s.log.Warn("history feed failed", zap.String("sport", sport), zap.Int("days_back", d), zap.Error(err))
			break
		}
		s.collect(ctx, sport, hist, found, remaining)
	}

	if len(remaining) > 0 {
		s.log.Debug("matches not found in feed", zap.String("sport", sport), zap.Strings("ids", keys(remaining)))
	}
	return found, nil
}

func (s *Source) collect(ctx context.Context, sport string, r Response, found map[string]domain.Match, remaining map[string]struct{}) {
	for id, m := range r.Matches(sport) {
		if _, want := remaining[id]; !want {
			continue
		}
		found[id] = m
		delete(remaining, id)
		if m.IsFinal() {
			if err := s.cache.Put(ctx, m); err != nil {
				s.log.Warn("final cache write failed", zap.String("match_id", id), zap.Error(err))
			}
		}
	}
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

package feed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/sports-bet-settlement/internal/settlement/domain"
)

// fakeFetcher devolve respostas fixas e conta as chamadas por endpoint
type fakeFetcher struct {
	current    Response
	currentErr error
	history    map[int]Response
	historyErr error

	currentCalls int
	historyCalls []int
}

func (f *fakeFetcher) Current(_ context.Context, _ string) (Response, error) {
	f.currentCalls++
	return f.current, f.currentErr
}

func (f *fakeFetcher) History(_ context.Context, _ string, d int) (Response, error) {
	f.historyCalls = append(f.historyCalls, d)
	if f.historyErr != nil {
		return Response{}, f.historyErr
	}
	return f.history[d], nil
}

func resp(entries ...Entry) Response {
	return Response{Categories: []Category{{ID: "c", Matches: entries}}}
}

func entry(id, status, home, away string) Entry {
	return Entry{ID: id, Status: status, LocalTeam: Team{Goals: home}, VisitorTeam: Team{Goals: away}}
}

func TestLookupCurrentOnly(t *testing.T) {
	f := &fakeFetcher{current: resp(entry("m1", "FT", "2", "0"), entry("m2", "55", "1", "0"))}
	s := NewSource(zap.NewNop(), f, nil, 7)

	got, err := s.Lookup(context.Background(), "soccer", []string{"m1", "m2"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, domain.MatchCompleted, got["m1"].Status)
	assert.Equal(t, domain.MatchLive, got["m2"].Status)
	assert.Equal(t, 1, f.currentCalls)
	assert.Empty(t, f.historyCalls, "history must not be fetched when everything is in the current feed")
}

func TestLookupFallsBackToHistory(t *testing.T) {
	f := &fakeFetcher{
		current: resp(entry("m1", "FT", "1", "0")),
		history: map[int]Response{
			2: resp(entry("old", "FT", "3", "3")),
		},
	}
	s := NewSource(zap.NewNop(), f, nil, 7)

	got, err := s.Lookup(context.Background(), "soccer", []string{"m1", "old"})
	require.NoError(t, err)
	require.Contains(t, got, "old")
	assert.Equal(t, 3, got["old"].HomeScore)
	assert.Equal(t, []int{1, 2}, f.historyCalls)
}

func TestLookupMissingMatchIsAbsent(t *testing.T) {
	f := &fakeFetcher{current: resp(), history: map[int]Response{}}
	s := NewSource(zap.NewNop(), f, nil, 3)

	got, err := s.Lookup(context.Background(), "soccer", []string{"ghost"})
	require.NoError(t, err)
	assert.NotContains(t, got, "ghost")
	assert.Equal(t, []int{1, 2, 3}, f.historyCalls)
}

func TestLookupCurrentFailureIsError(t *testing.T) {
	f := &fakeFetcher{currentErr: errors.New("timeout")}
	s := NewSource(zap.NewNop(), f, nil, 7)

	_, err := s.Lookup(context.Background(), "soccer", []string{"m1"})
	assert.Error(t, err)
}

func TestLookupHistoryFailureKeepsPartialResult(t *testing.T) {
	f := &fakeFetcher{current: resp(entry("m1", "FT", "1", "0")), historyErr: errors.New("502")}
	s := NewSource(zap.NewNop(), f, nil, 7)

	got, err := s.Lookup(context.Background(), "soccer", []string{"m1", "m9"})
	require.NoError(t, err)
	assert.Contains(t, got, "m1")
	assert.Equal(t, []int{1}, f.historyCalls)
}

func TestLookupUsesFinalCache(t *testing.T) {
	cache := NewMemoryFinalCache()
	f := &fakeFetcher{current: resp(entry("m1", "FT", "2", "1"))}
	s := NewSource(zap.NewNop(), f, cache, 7)

	_, err := s.Lookup(context.Background(), "soccer", []string{"m1"})
	require.NoError(t, err)

	// o feed "corrige" o placar depois; o resultado final já observado prevalece
	f.current = resp(entry("m1", "FT", "0", "5"))
	got, err := s.Lookup(context.Background(), "soccer", []string{"m1"})
	require.NoError(t, err)
	assert.Equal(t, 2, got["m1"].HomeScore)
	assert.Equal(t, 1, f.currentCalls)
}

func TestLookupDoesNotCacheLiveMatches(t *testing.T) {
	cache := NewMemoryFinalCache()
	f := &fakeFetcher{current: resp(entry("m1", "80", "0", "0"))}
	s := NewSource(zap.NewNop(), f, cache, 0)

	_, err := s.Lookup(context.Background(), "soccer", []string{"m1"})
	require.NoError(t, err)

	cached, _ := cache.Get(context.Background(), "soccer", []string{"m1"})
	assert.Empty(t, cached)
}

func TestLookupSkipsPlaceholders(t *testing.T) {
	f := &fakeFetcher{}
	s := NewSource(zap.NewNop(), f, nil, 7)

	got, err := s.Lookup(context.Background(), "soccer", []string{"combo_1", "match_2", ""})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, f.currentCalls)
}

package outcome

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/radieske/sports-bet-settlement/internal/settlement/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		market string
		want   MarketKind
	}{
		{"1X2", MarketThreeWay},
		{"Match Result", MarketThreeWay},
		{"Match Winner", MarketThreeWay},
		{"3-Way Result", MarketThreeWay},
		{"Moneyline", MarketTwoWay},
		{"Money Line", MarketTwoWay},
		{"Over/Under 2.5", MarketTotals},
		{"Total Goals (3.5)", MarketTotals},
		{"over/under +2,5", MarketTotals},
		{"Over/Under 2.5 Goals", MarketTotals},
		{"Over 2.5 Goals", MarketTotals},
		{"Total Points Over/Under 200.5", MarketTotals},
		{"O/U 5.5", MarketTotals},
		{"Match Result - Full Time", MarketThreeWay},
		{"1X2 Full Time", MarketThreeWay},
		{"Moneyline (Incl. OT)", MarketTwoWay},
		{"Head to Head", MarketTwoWay},
		{"Asian Handicap -1.5", MarketUnknown},
		{"Asian Handicap Line -1.5", MarketUnknown},
		{"Point Spread", MarketUnknown},
		{"Turnovers", MarketUnknown},
		{"Correct Score", MarketUnknown},
		{"", MarketUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.market, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.market))
		})
	}
}

func TestResolveThreeWay(t *testing.T) {
	r := NewResolver(zap.NewNop(), PushLoses)

	tests := []struct {
		name       string
		selection  string
		home, away int
		want       domain.Result
	}{
		{"home wins", "1", 2, 0, domain.ResultWon},
		{"home by name", "Home", 2, 0, domain.ResultWon},
		{"home loses", "1", 0, 1, domain.ResultLost},
		{"draw", "X", 1, 1, domain.ResultWon},
		{"draw by name", "draw", 1, 1, domain.ResultWon},
		{"draw loses", "x", 2, 1, domain.ResultLost},
		{"away wins", "2", 0, 3, domain.ResultWon},
		{"away by name", "AWAY", 0, 3, domain.ResultWon},
		{"away on draw", "2", 0, 0, domain.ResultLost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.selection, "Match Result", tt.home, tt.away))
		})
	}
}

func TestResolveTwoWayDrawLosesBothSides(t *testing.T) {
	r := NewResolver(zap.NewNop(), PushLoses)

	assert.Equal(t, domain.ResultWon, r.Resolve("1", "Moneyline", 101, 99))
	assert.Equal(t, domain.ResultWon, r.Resolve("away", "Moneyline", 99, 101))
	assert.Equal(t, domain.ResultLost, r.Resolve("home", "Moneyline", 99, 101))
	assert.Equal(t, domain.ResultLost, r.Resolve("1", "Moneyline", 2, 2))
	assert.Equal(t, domain.ResultLost, r.Resolve("2", "Moneyline", 2, 2))
	// moneyline não aceita empate como seleção
	assert.Equal(t, domain.ResultLost, r.Resolve("X", "Moneyline", 2, 2))
}

func TestResolveTotals(t *testing.T) {
	r := NewResolver(zap.NewNop(), PushLoses)

	assert.Equal(t, domain.ResultWon, r.Resolve("Over", "Over/Under 2.5", 2, 1))
	assert.Equal(t, domain.ResultLost, r.Resolve("Under", "Over/Under 2.5", 2, 1))
	assert.Equal(t, domain.ResultWon, r.Resolve("Under 2.5", "Over/Under 2.5", 1, 0))
	assert.Equal(t, domain.ResultLost, r.Resolve("Over", "Over/Under 2.5", 1, 0))
}

func TestResolveMarketNamesWithExtraWords(t *testing.T) {
	r := NewResolver(zap.NewNop(), PushLoses)

	assert.Equal(t, domain.ResultWon, r.Resolve("Over", "Over/Under 2.5 Goals", 3, 1))
	assert.Equal(t, domain.ResultLost, r.Resolve("Under", "Over/Under 2.5 Goals", 3, 1))
	assert.Equal(t, domain.ResultWon, r.Resolve("Under", "Total Points Over/Under 200.5", 99, 100))
	assert.Equal(t, domain.ResultWon, r.Resolve("X", "Match Result - Full Time", 1, 1))
	assert.Equal(t, domain.ResultWon, r.Resolve("2", "1X2 Full Time", 0, 2))
	assert.Equal(t, domain.ResultWon, r.Resolve("Home", "Moneyline (Incl. OT)", 4, 3))
}

func TestTotalsLinePrefersStandaloneNumber(t *testing.T) {
	r := NewResolver(zap.NewNop(), PushLoses)

	// "1st" não é a linha
	assert.Equal(t, domain.ResultWon, r.Resolve("over", "1st Half Over 0.5", 1, 0))
	assert.Equal(t, domain.ResultWon, r.Resolve("under", "Total Goals 3.5", 2, 1))
}

func TestResolveTotalsPush(t *testing.T) {
	t.Run("push loses both sides by default", func(t *testing.T) {
		r := NewResolver(zap.NewNop(), PushLoses)
		assert.Equal(t, domain.ResultLost, r.Resolve("over", "Total Goals 3", 2, 1))
		assert.Equal(t, domain.ResultLost, r.Resolve("under", "Total Goals 3", 2, 1))
	})

	t.Run("push voids when configured", func(t *testing.T) {
		r := NewResolver(zap.NewNop(), PushVoids)
		assert.Equal(t, domain.ResultVoid, r.Resolve("over", "Total Goals 3", 2, 1))
		assert.Equal(t, domain.ResultVoid, r.Resolve("under", "Total Goals 3", 2, 1))
	})
}

func TestResolveFailsClosed(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r := NewResolver(zap.New(core), PushLoses)

	assert.Equal(t, domain.ResultLost, r.Resolve("1", "Correct Score", 2, 0))
	assert.Equal(t, domain.ResultLost, r.Resolve("Flamengo", "Match Result", 2, 0))
	assert.Equal(t, domain.ResultLost, r.Resolve("over", "Total Goals", 5, 0))
	assert.Equal(t, domain.ResultLost, r.Resolve("", "1x2", 2, 0))

	require.Equal(t, 4, logs.Len())
	assert.Equal(t, "unrecognized market, resolving as lost", logs.All()[0].Message)
	assert.Equal(t, "totals market without line, resolving as lost", logs.All()[2].Message)
}

func TestParsePushPolicy(t *testing.T) {
	p, err := ParsePushPolicy("void")
	require.NoError(t, err)
	assert.Equal(t, PushVoids, p)

	p, err = ParsePushPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PushLoses, p)

	_, err = ParsePushPolicy("split")
	assert.Error(t, err)
}

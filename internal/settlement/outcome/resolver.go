package outcome

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/sports-bet-settlement/internal/settlement/domain"
)

// PushPolicy define o que acontece quando o total do placar é igual à linha
type PushPolicy int

const (
	// PushLoses mantém o comportamento histórico: over e under perdem
	PushLoses PushPolicy = iota
	// PushVoids devolve o valor apostado (push tradicional)
	PushVoids
)

// ParsePushPolicy aceita "lose" ou "void" (SETTLEMENT_PUSH_POLICY)
func ParsePushPolicy(s string) (PushPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lose", "lost":
		return PushLoses, nil
	case "void", "refund":
		return PushVoids, nil
	}
	return PushLoses, fmt.Errorf("unknown push policy %q", s)
}

// Resolver decide won/lost/void de uma seleção a partir do placar final.
// Sem I/O: qualquer coisa não interpretável resolve como perdida.
type Resolver struct {
	log  *zap.Logger
	push PushPolicy
}

func NewResolver(log *zap.Logger, push PushPolicy) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{log: log, push: push}
}

// Resolve aplica a estratégia do mercado à seleção
func (r *Resolver) Resolve(selection, market string, home, away int) domain.Result {
	kind := Classify(market)
	if kind == MarketUnknown {
		r.log.Warn("unrecognized market, resolving as lost",
			zap.String("market", market), zap.String("selection", selection))
		return domain.ResultLost
	}

	p := parsePick(kind, selection)
	if p == pickUnknown {
		r.log.Warn("unrecognized selection, resolving as lost",
			zap.String("market", market), zap.String("selection", selection), zap.Stringer("kind", kind))
		return domain.ResultLost
	}

	switch kind {
	case MarketThreeWay:
		return threeWay(p, home, away)
	case MarketTwoWay:
		return twoWay(p, home, away)
	case MarketTotals:
		return r.totals(p, market, home, away)
	}
	return domain.ResultLost
}

func threeWay(p pick, home, away int) domain.Result {
	switch {
	case p == pickHome && home > away,
		p == pickDraw && home == away,
		p == pickAway && away > home:
		return domain.ResultWon
	}
	return domain.ResultLost
}

// twoWay não tem empate: placar empatado perde para os dois lados
func twoWay(p pick, home, away int) domain.Result {
	switch {
	case p == pickHome && home > away,
		p == pickAway && away > home:
		return domain.ResultWon
	}
	return domain.ResultLost
}

func (r *Resolver) totals(p pick, market string, home, away int) domain.Result {
	raw, ok := line(market)
	if !ok {
		r.log.Warn("totals market without line, resolving as lost", zap.String("market", market))
		return domain.ResultLost
	}
	ln, err := decimal.NewFromString(raw)
	if err != nil {
		r.log.Warn("unparsable totals line, resolving as lost", zap.String("market", market), zap.Error(err))
		return domain.ResultLost
	}

	total := decimal.NewFromInt(int64(home + away))
	if total.Equal(ln) {
		if r.push == PushVoids {
			return domain.ResultVoid
		}
		return domain.ResultLost
	}

	switch {
	case p == pickOver && total.GreaterThan(ln),
		p == pickUnder && total.LessThan(ln):
		return domain.ResultWon
	}
	return domain.ResultLost
}

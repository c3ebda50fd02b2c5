package engine

import (
	"time"

	"github.com/radieske/sports-bet-settlement/internal/settlement/domain"
	"github.com/radieske/sports-bet-settlement/internal/settlement/outcome"
)

// ComboTracker acompanha as pernas de uma combinada e decide quando a aposta pode ser finalizada
type ComboTracker struct {
	resolver *outcome.Resolver
}

func NewComboTracker(r *outcome.Resolver) *ComboTracker {
	return &ComboTracker{resolver: r}
}

// ResolveLeg resolve as pernas ainda abertas que dependem da partida m.
// Devolve uma cópia das pernas e quantas foram resolvidas; perna já resolvida nunca muda.
func (c *ComboTracker) ResolveLeg(legs []domain.Leg, m domain.Match) ([]domain.Leg, int) {
	out := make([]domain.Leg, len(legs))
	copy(out, legs)
	if !m.IsFinal() {
		return out, 0
	}

	n := 0
	for i := range out {
		l := &out[i]
		if l.Settled || l.MatchID != m.ID {
			continue
		}
		if l.Sport != "" && m.Sport != "" && l.Sport != m.Sport {
			continue
		}
		if m.Status == domain.MatchCancelled {
			l.Result = domain.ResultVoid
		} else {
			l.Result = c.resolver.Resolve(l.Pick, l.Market, m.HomeScore, m.AwayScore)
		}
		l.Settled = true
		n++
	}
	return out, n
}

// IsFullySettled indica que todas as pernas têm resultado
func (c *ComboTracker) IsFullySettled(legs []domain.Leg) bool {
	for _, l := range legs {
		if !l.Settled {
			return false
		}
	}
	return len(legs) > 0
}

// Finalize calcula o estado final da combinada, se já houver um.
// Uma perna void anula a combinada inteira na hora, com devolução integral.
func (c *ComboTracker) Finalize(b domain.Bet, legs []domain.Leg, at time.Time) (domain.Settlement, bool) {
	s := domain.Settlement{
		BetID:     b.ID,
		UserID:    b.UserID,
		Legs:      legs,
		SettledAt: at,
	}

	for _, l := range legs {
		if l.Settled && l.Result == domain.ResultVoid {
			s.State = domain.StateVoid
			s.Payout = b.Stake
			s.Credit = b.Stake
			s.TxType = domain.TxVoidRefund
			return s, true
		}
	}

	if !c.IsFullySettled(legs) {
		return domain.Settlement{}, false
	}

	for _, l := range legs {
		if l.Result != domain.ResultWon {
			s.State = domain.StateLost
			return s, true
		}
	}

	payout := potentialPayout(b)
	s.State = domain.StateWon
	s.Payout = payout
	s.Credit = payout
	s.TxType = domain.TxComboWin
	return s, true
}

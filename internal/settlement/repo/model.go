package repo

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/sports-bet-settlement/internal/settlement/domain"
)

// betRow é a linha de bets como lida do Postgres
type betRow struct {
	ID              string
	UserID          string
	Sport           string
	MatchID         sql.NullString
	Market          sql.NullString
	Selection       sql.NullString
	Stake           decimal.Decimal
	Odds            decimal.Decimal
	PotentialPayout decimal.Decimal
	ActualPayout    decimal.Decimal
	Status          string
	IsCombo         bool
	ComboLegs       []byte
	SettledAt       sql.NullTime
	CreatedAt       time.Time
}

// toBet monta o Bet com o slip correto.
// Pernas ilegíveis viram slip nil, rejeitado depois por Bet.Validate.
func (r betRow) toBet() domain.Bet {
	b := domain.Bet{
		ID:              r.ID,
		UserID:          r.UserID,
		Sport:           r.Sport,
		Stake:           r.Stake,
		Odds:            r.Odds,
		PotentialPayout: r.PotentialPayout,
		ActualPayout:    r.ActualPayout,
		State:           domain.BetState(r.Status),
		CreatedAt:       r.CreatedAt,
	}
	if r.SettledAt.Valid {
		t := r.SettledAt.Time
		b.SettledAt = &t
	}

	if !r.IsCombo {
		b.Slip = domain.SingleSlip{Selection: domain.Selection{
			MatchID: r.MatchID.String,
			Sport:   r.Sport,
			Pick:    r.Selection.String,
			Market:  r.Market.String,
		}}
		return b
	}

	var legs []domain.Leg
	if err := json.Unmarshal(r.ComboLegs, &legs); err != nil {
		return b
	}
	for i := range legs {
		// pernas antigas sem esporte herdam o da aposta
		if legs[i].Sport == "" {
			legs[i].Sport = r.Sport
		}
	}
	b.Slip = domain.ComboSlip{Legs: legs}
	return b
}

// encodeLegs devolve NULL (nil) quando não há pernas para gravar
func encodeLegs(legs []domain.Leg) (any, error) {
	if legs == nil {
		return nil, nil
	}
	b, err := json.Marshal(legs)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

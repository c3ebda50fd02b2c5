package events

import "time"

// Evento emitido pelo settlement-worker após liquidar uma aposta (commit já realizado).
type BetSettled struct {
	BetID     string    `json:"betId"`
	UserID    string    `json:"userId"`
	State     string    `json:"state"` // "won" | "lost" | "void"
	Stake     string    `json:"stake"`
	Payout    string    `json:"payout"`
	Sport     string    `json:"sport"`
	MatchIDs  []string  `json:"matchIds"`
	Combo     bool      `json:"combo"`
	SettledAt time.Time `json:"settledAt"`
}

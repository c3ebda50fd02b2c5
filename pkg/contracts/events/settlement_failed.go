package events

import "time"

// Evento enviado para a DLQ quando a liquidação de uma aposta falha.
// A aposta continua pendente e será tentada de novo no próximo ciclo.
type SettlementFailed struct {
	BetID  string    `json:"betId"`
	Stage  string    `json:"stage"` // "persist" | "validate"
	Reason string    `json:"reason"`
	Ts     time.Time `json:"ts"`
}

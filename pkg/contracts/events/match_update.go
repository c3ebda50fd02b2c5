package events

import "time"

// Mensagem publicada pelo feed via WebSocket ("/ws") a cada mudança de status de partida
type MatchUpdate struct {
	Type      string    `json:"type"` // "match_update"
	Sport     string    `json:"sport"`
	MatchID   string    `json:"matchId"`
	Status    string    `json:"status"` // status bruto do fornecedor: "FT", "Postp.", "67"...
	HomeScore string    `json:"homeScore"`
	AwayScore string    `json:"awayScore"`
	Ts        time.Time `json:"ts"`
}

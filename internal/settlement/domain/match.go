package domain

import (
	"strconv"
	"strings"
)

// MatchStatus é derivado uma única vez na ingestão do feed
type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchLive      MatchStatus = "live"
	MatchCompleted MatchStatus = "completed"
	MatchCancelled MatchStatus = "cancelled"
)

// Match é o registro somente-leitura vindo da fonte de resultados
type Match struct {
	ID        string      `json:"id"`
	Sport     string      `json:"sport"`
	HomeTeam  string      `json:"homeTeam"`
	AwayTeam  string      `json:"awayTeam"`
	HomeScore int         `json:"homeScore"`
	AwayScore int         `json:"awayScore"`
	Status    MatchStatus `json:"status"`
	RawStatus string      `json:"rawStatus"`
}

// IsFinal indica que a partida já pode ser liquidada (placar final ou cancelada)
func (m Match) IsFinal() bool {
	return m.Status == MatchCompleted || m.Status == MatchCancelled
}

var cancelledStatuses = map[string]struct{}{
	"cancl.":  {},
	"postp.":  {},
	"wo":      {},
	"w.o.":    {},
	"aban.":   {},
	"awarded": {},
}

var completedStatuses = map[string]struct{}{
	"ft":   {},
	"aet":  {},
	"pen.": {},
}

var liveStatuses = map[string]struct{}{
	"ht":    {},
	"break": {},
	"et":    {},
}

// ParseMatchStatus traduz o status bruto do fornecedor
// "FT" ou minuto > 90 => completed; "Cancl."/"Postp."/"WO" => cancelled
func ParseMatchStatus(raw string) MatchStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := completedStatuses[s]; ok {
		return MatchCompleted
	}
	if _, ok := cancelledStatuses[s]; ok {
		return MatchCancelled
	}
	if _, ok := liveStatuses[s]; ok {
		return MatchLive
	}
	// minuto de jogo, ex: "67" ou "90+3"
	if minute, ok := parseMinute(s); ok {
		if minute > 90 {
			return MatchCompleted
		}
		if minute > 0 {
			return MatchLive
		}
	}
	return MatchScheduled
}

func parseMinute(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	total := 0
	for _, part := range strings.Split(s, "+") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return 0, false
		}
		total += n
	}
	return total, true
}

// ParseScore converte o placar textual; "?" ou vazio vale 0
func ParseScore(raw string) int {
	s := strings.TrimSpace(raw)
	if s == "" || s == "?" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

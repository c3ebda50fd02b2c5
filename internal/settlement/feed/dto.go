package feed

import (
	"strings"

	"github.com/radieske/sports-bet-settlement/internal/settlement/domain"
)

// Formato consumido do fornecedor: categorias (ligas) -> partidas
type Response struct {
	Sport      string     `json:"sport"`
	Categories []Category `json:"categories"`
}

type Category struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Matches []Entry `json:"matches"`
}

type Entry struct {
	ID          string `json:"id"`
	Status      string `json:"status"` // "FT", "67", "Postp.", "15:30"...
	Date        string `json:"date,omitempty"`
	LocalTeam   Team   `json:"localteam"`
	VisitorTeam Team   `json:"visitorteam"`
}

type Team struct {
	Name  string `json:"name"`
	Goals string `json:"goals"` // pode vir "?" quando desconhecido
}

// ToMatch converte a entrada do feed; o status é derivado aqui, uma única vez
func (e Entry) ToMatch(sport string) domain.Match {
	return domain.Match{
		ID:        strings.TrimSpace(e.ID),
		Sport:     sport,
		HomeTeam:  e.LocalTeam.Name,
		AwayTeam:  e.VisitorTeam.Name,
		HomeScore: domain.ParseScore(e.LocalTeam.Goals),
		AwayScore: domain.ParseScore(e.VisitorTeam.Goals),
		Status:    domain.ParseMatchStatus(e.Status),
		RawStatus: e.Status,
	}
}

// Matches achata as categorias em partidas indexadas por id
func (r Response) Matches(sport string) map[string]domain.Match {
	out := make(map[string]domain.Match)
	for _, c := range r.Categories {
		for _, e := range c.Matches {
			m := e.ToMatch(sport)
			if m.ID == "" {
				continue
			}
			out[m.ID] = m
		}
	}
	return out
}

package feedsim

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/radieske/sports-bet-settlement/internal/settlement/feed"
	"github.com/radieske/sports-bet-settlement/pkg/contracts/events"
)

// Times por esporte usados para montar as partidas simuladas
var teams = map[string][]string{
	"soccer":     {"Flamengo", "Palmeiras", "Grêmio", "Internacional", "Corinthians", "Santos", "São Paulo", "Vasco"},
	"basketball": {"Flamengo Basquete", "Franca", "Minas", "Pinheiros", "Paulistano", "Bauru"},
	"hockey":     {"Toronto", "Montreal", "Boston", "Detroit", "Chicago", "New York"},
}

// scoring: chance de ponto por tick e quantos pontos vale
var scoring = map[string]struct {
	chance float64
	points int
}{
	"soccer":     {0.08, 1},
	"basketball": {0.9, 2},
	"hockey":     {0.1, 1},
}

type plan int

const (
	planFinish plan = iota
	planPostpone
	planCancel
)

type simMatch struct {
	entry  feed.Entry
	minute int
	home   int
	away   int
	delay  int // ticks até o apito inicial
	plan   plan
	final  bool
}

type book struct {
	today   []*simMatch
	history [][]feed.Entry // history[0] = d-1
}

// Catalog mantém as partidas simuladas por esporte e as avança a cada Tick
type Catalog struct {
	mu       sync.RWMutex
	books    map[string]*book
	rnd      *rand.Rand
	perDay   int
	days     int
	step     int // minutos por tick
	seq      int
	category string
}

func NewCatalog(sports []string, perDay, historyDays int, seed int64) *Catalog {
	c := &Catalog{
		books:    make(map[string]*book, len(sports)),
		rnd:      rand.New(rand.NewSource(seed)),
		perDay:   perDay,
		days:     historyDays,
		step:     5,
		category: "Simulated League",
	}
	for _, s := range sports {
		if _, ok := teams[s]; !ok {
			continue
		}
		b := &book{}
		for d := 0; d < historyDays; d++ {
			b.history = append(b.history, c.finishedDay(s))
		}
		b.today = c.newDay(s)
		c.books[s] = b
	}
	return c
}

func (c *Catalog) Sports() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.books))
	for s := range c.books {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Current devolve as partidas do dia no formato do fornecedor
func (c *Catalog) Current(sport string) (feed.Response, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.books[sport]
	if !ok {
		return feed.Response{}, false
	}
	entries := make([]feed.Entry, 0, len(b.today))
	for _, m := range b.today {
		entries = append(entries, m.entry)
	}
	return c.response(sport, entries), true
}

// History devolve as partidas de daysBack dias atrás (todas encerradas)
func (c *Catalog) History(sport string, daysBack int) (feed.Response, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.books[sport]
	if !ok {
		return feed.Response{}, false
	}
	if daysBack < 1 || daysBack > len(b.history) {
		return c.response(sport, nil), true
	}
	return c.response(sport, b.history[daysBack-1]), true
}

// Tick avança o relógio das partidas e devolve as mudanças de status/placar.
// Quando todas as partidas do dia terminam, o dia vira histórico.
func (c *Catalog) Tick(now time.Time) []events.MatchUpdate {
	c.mu.Lock()
	defer c.mu.Unlock()

	var updates []events.MatchUpdate
	for sport, b := range c.books {
		done := true
		for _, m := range b.today {
			if c.advance(sport, m) {
				updates = append(updates, update(sport, m, now))
			}
			done = done && m.final
		}
		if done {
			c.rollover(sport, b)
		}
	}
	return updates
}

func (c *Catalog) advance(sport string, m *simMatch) bool {
	if m.final {
		return false
	}
	if m.delay > 0 {
		m.delay--
		return false
	}

	switch {
	case m.plan == planPostpone:
		m.entry.Status = "Postp."
		m.final = true
		return true
	case m.plan == planCancel && m.minute >= 45:
		m.entry.Status = "Cancl."
		m.final = true
		return true
	}

	m.minute += c.step
	sc := scoring[sport]
	if c.rnd.Float64() < sc.chance {
		m.home += sc.points
	}
	if c.rnd.Float64() < sc.chance {
		m.away += sc.points
	}

	if m.minute >= 90 {
		m.entry.Status = "FT"
		m.final = true
	} else {
		m.entry.Status = strconv.Itoa(m.minute)
	}
	m.entry.LocalTeam.Goals = strconv.Itoa(m.home)
	m.entry.VisitorTeam.Goals = strconv.Itoa(m.away)
	return true
}

func (c *Catalog) rollover(sport string, b *book) {
	finished := make([]feed.Entry, 0, len(b.today))
	for _, m := range b.today {
		finished = append(finished, m.entry)
	}
	b.history = append([][]feed.Entry{finished}, b.history...)
	if len(b.history) > c.days {
		b.history = b.history[:c.days]
	}
	b.today = c.newDay(sport)
}

func (c *Catalog) newDay(sport string) []*simMatch {
	out := make([]*simMatch, 0, c.perDay)
	for i := 0; i < c.perDay; i++ {
		home, away := c.pair(sport)
		m := &simMatch{
			entry: feed.Entry{
				ID:          c.nextID(sport),
				Status:      fmt.Sprintf("%02d:%02d", 13+i%9, (i*15)%60),
				LocalTeam:   feed.Team{Name: home, Goals: "?"},
				VisitorTeam: feed.Team{Name: away, Goals: "?"},
			},
			delay: c.rnd.Intn(6),
		}
		switch r := c.rnd.Float64(); {
		case r < 0.05:
			m.plan = planPostpone
		case r < 0.1:
			m.plan = planCancel
		}
		out = append(out, m)
	}
	return out
}

// finishedDay gera um dia já encerrado para o histórico inicial
func (c *Catalog) finishedDay(sport string) []feed.Entry {
	out := make([]feed.Entry, 0, c.perDay)
	sc := scoring[sport]
	for i := 0; i < c.perDay; i++ {
		home, away := c.pair(sport)
		hs, as := 0, 0
		for t := 0; t < 90/c.step; t++ {
			if c.rnd.Float64() < sc.chance {
				hs += sc.points
			}
			if c.rnd.Float64() < sc.chance {
				as += sc.points
			}
		}
		out = append(out, feed.Entry{
			ID:          c.nextID(sport),
			Status:      "FT",
			LocalTeam:   feed.Team{Name: home, Goals: strconv.Itoa(hs)},
			VisitorTeam: feed.Team{Name: away, Goals: strconv.Itoa(as)},
		})
	}
	return out
}

func (c *Catalog) pair(sport string) (string, string) {
	names := teams[sport]
	i := c.rnd.Intn(len(names))
	j := (i + 1 + c.rnd.Intn(len(names)-1)) % len(names)
	return names[i], names[j]
}

func (c *Catalog) nextID(sport string) string {
	c.seq++
	return fmt.Sprintf("%s-%06d", sport[:3], c.seq)
}

func (c *Catalog) response(sport string, entries []feed.Entry) feed.Response {
	return feed.Response{
		Sport:      sport,
		Categories: []feed.Category{{ID: sport + "-1", Name: c.category, Matches: entries}},
	}
}

func update(sport string, m *simMatch, now time.Time) events.MatchUpdate {
	return events.MatchUpdate{
		Type:      "match_update",
		Sport:     sport,
		MatchID:   m.entry.ID,
		Status:    m.entry.Status,
		HomeScore: m.entry.LocalTeam.Goals,
		AwayScore: m.entry.VisitorTeam.Goals,
		Ts:        now.UTC(),
	}
}

package engine

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/sports-bet-settlement/internal/settlement/domain"
	"github.com/radieske/sports-bet-settlement/internal/settlement/repo"
	"github.com/radieske/sports-bet-settlement/pkg/contracts/events"
)

// memStore reproduz o contrato do ledger Postgres: liquidação atômica, pending -> terminal uma única vez
type memStore struct {
	mu       sync.Mutex
	order    []string
	bets     map[string]*domain.Bet
	balances map[string]decimal.Decimal
	ledger   []domain.Transaction

	listErr    error
	settleErr  map[string]error
	staleList  bool // devolve também apostas já liquidadas (simula outro worker)
	saveCalls  int
	settleCall int
}

func newMemStore(bets ...domain.Bet) *memStore {
	s := &memStore{
		bets:      make(map[string]*domain.Bet),
		balances:  make(map[string]decimal.Decimal),
		settleErr: make(map[string]error),
	}
	for _, b := range bets {
		s.add(b)
	}
	return s
}

func (s *memStore) add(b domain.Bet) {
	s.order = append(s.order, b.ID)
	s.bets[b.ID] = &b
	if _, ok := s.balances[b.UserID]; !ok {
		s.balances[b.UserID] = decimal.Zero
	}
}

func (s *memStore) ListPending(_ context.Context) ([]domain.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.Bet
	for _, id := range s.order {
		b := s.bets[id]
		if b.State == domain.StatePending || s.staleList {
			cp := *b
			cp.State = domain.StatePending
			if c, ok := b.Slip.(domain.ComboSlip); ok {
				cp.Slip = domain.ComboSlip{Legs: append([]domain.Leg(nil), c.Legs...)}
			}
			out = append(out, cp)
		}
	}
	return out, nil
}

func (s *memStore) Settle(_ context.Context, st domain.Settlement) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settleCall++
	if err := s.settleErr[st.BetID]; err != nil {
		return nil, err
	}
	b, ok := s.bets[st.BetID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	if b.State != domain.StatePending {
		return nil, repo.ErrAlreadySettled
	}

	b.State = st.State
	b.ActualPayout = st.Payout
	at := st.SettledAt
	b.SettledAt = &at
	if st.Legs != nil {
		b.Slip = domain.ComboSlip{Legs: st.Legs}
	}
	if !st.HasCredit() {
		return nil, nil
	}

	before := s.balances[b.UserID]
	tx := domain.Transaction{
		ID: "tx-" + b.ID, UserID: b.UserID, BetID: b.ID, Amount: st.Credit, Type: st.TxType,
		BalanceBefore: before, BalanceAfter: before.Add(st.Credit), CreatedAt: st.SettledAt,
	}
	s.balances[b.UserID] = tx.BalanceAfter
	s.ledger = append(s.ledger, tx)
	return &tx, nil
}

func (s *memStore) SaveLegs(_ context.Context, betID string, legs []domain.Leg) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCalls++
	b := s.bets[betID]
	if b == nil || b.State != domain.StatePending {
		return repo.ErrAlreadySettled
	}
	b.Slip = domain.ComboSlip{Legs: append([]domain.Leg(nil), legs...)}
	return nil
}

func (s *memStore) bet(id string) domain.Bet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.bets[id]
}

func (s *memStore) balance(user string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[user]
}

func (s *memStore) ledgerFor(betID string) []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Transaction
	for _, t := range s.ledger {
		if t.BetID == betID {
			out = append(out, t)
		}
	}
	return out
}

// memSource é um feed por esporte com falhas injetáveis
type memSource struct {
	mu      sync.Mutex
	matches map[string]map[string]domain.Match
	errs    map[string]error
	asked   map[string][]string

	block   chan struct{} // se não nil, Lookup espera até ser fechado
	started chan struct{}
	once    sync.Once
}

func newMemSource() *memSource {
	return &memSource{
		matches: make(map[string]map[string]domain.Match),
		errs:    make(map[string]error),
		asked:   make(map[string][]string),
	}
}

func (f *memSource) set(sport, id, status string, home, away int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.matches[sport] == nil {
		f.matches[sport] = make(map[string]domain.Match)
	}
	f.matches[sport][id] = domain.Match{
		ID: id, Sport: sport, HomeScore: home, AwayScore: away,
		Status: domain.ParseMatchStatus(status), RawStatus: status,
	}
}

func (f *memSource) Lookup(ctx context.Context, sport string, ids []string) (map[string]domain.Match, error) {
	if f.block != nil {
		f.once.Do(func() {
			if f.started != nil {
				close(f.started)
			}
		})
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.asked[sport] = append(f.asked[sport], ids...)
	if err := f.errs[sport]; err != nil {
		return nil, err
	}
	out := make(map[string]domain.Match)
	for _, id := range ids {
		if m, ok := f.matches[sport][id]; ok {
			out[id] = m
		}
	}
	return out, nil
}

type memPublisher struct {
	mu     sync.Mutex
	events []events.BetSettled
	failed []events.SettlementFailed
	err    error
}

func (p *memPublisher) PublishSettled(_ context.Context, e events.BetSettled) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *memPublisher) PublishFailed(_ context.Context, e events.SettlementFailed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, e)
	return nil
}

type heldLocker struct{ err error }

func (l heldLocker) Acquire(context.Context, string, time.Duration) (func(context.Context) error, error) {
	if l.err != nil {
		return nil, l.err
	}
	return func(context.Context) error { return nil }, nil
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func single(id, user, sport, matchID, pick, market, stake, odds string) domain.Bet {
	return domain.Bet{
		ID: id, UserID: user, Sport: sport,
		Stake: d(stake), Odds: d(odds), PotentialPayout: d(stake).Mul(d(odds)),
		State: domain.StatePending,
		Slip:  domain.SingleSlip{Selection: domain.Selection{MatchID: matchID, Sport: sport, Pick: pick, Market: market}},
	}
}

func combo(id, user, sport, stake, odds string, legs ...domain.Leg) domain.Bet {
	return domain.Bet{
		ID: id, UserID: user, Sport: sport,
		Stake: d(stake), Odds: d(odds), PotentialPayout: d(stake).Mul(d(odds)),
		State: domain.StatePending,
		Slip:  domain.ComboSlip{Legs: legs},
	}
}

func leg(sport, matchID, pick, market string) domain.Leg {
	return domain.Leg{Selection: domain.Selection{MatchID: matchID, Sport: sport, Pick: pick, Market: market}}
}

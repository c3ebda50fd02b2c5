package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/sports-bet-settlement/internal/settlement/domain"
	"github.com/radieske/sports-bet-settlement/internal/settlement/lock"
	"github.com/radieske/sports-bet-settlement/internal/settlement/outcome"
	"github.com/radieske/sports-bet-settlement/internal/settlement/repo"
	"github.com/radieske/sports-bet-settlement/pkg/contracts/events"
)

// ErrPassInProgress: já existe um ciclo rodando (neste processo ou em outro worker)
var ErrPassInProgress = errors.New("settlement pass already in progress")

// Store é o ledger de apostas/saldos (implementado por repo.Postgres)
type Store interface {
	ListPending(ctx context.Context) ([]domain.Bet, error)
	Settle(ctx context.Context, s domain.Settlement) (*domain.Transaction, error)
	SaveLegs(ctx context.Context, betID string, legs []domain.Leg) error
}

// MatchSource resolve ids de partidas de um esporte (implementado por feed.Source)
type MatchSource interface {
	Lookup(ctx context.Context, sport string, ids []string) (map[string]domain.Match, error)
}

// Locker garante um único ciclo entre processos (implementado por lock.RedisLocker).
// Acquire devolve lock.ErrHeld quando outro processo já tem o lock.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

type Publisher interface {
	PublishSettled(ctx context.Context, e events.BetSettled) error
}

type FailureSink interface {
	PublishFailed(ctx context.Context, e events.SettlementFailed) error
}

// Hooks são callbacks de métricas; todos opcionais
type Hooks struct {
	OnPass        func(r Report, d time.Duration, err error)
	OnSettled     func(state domain.BetState)
	OnError       func(stage string) // "lock" | "load" | "validate" | "fetch" | "persist" | "publish"
	OnPlaceholder func(n int)
}

// Report resume um ciclo
type Report struct {
	Checked      int      `json:"checked"`
	Settled      int      `json:"settled"`
	Won          int      `json:"won"`
	Lost         int      `json:"lost"`
	Void         int      `json:"void"`
	Skipped      int      `json:"skipped"`
	Errors       int      `json:"errors"`
	FailedSports []string `json:"failedSports,omitempty"`
}

type Engine struct {
	log      *zap.Logger
	store    Store
	source   MatchSource
	resolver *outcome.Resolver
	combos   *ComboTracker

	locker       Locker
	lockTTL      time.Duration
	publisher    Publisher
	failures     FailureSink
	hooks        Hooks
	fetchTimeout time.Duration
	sports       map[string]struct{} // vazio = todos
	now          func() time.Time

	mu       sync.Mutex          // single-flight do ciclo
	reported map[string]struct{} // apostas inválidas já enviadas à DLQ; protegido por mu
}

type Option func(*Engine)

func WithLocker(l Locker, ttl time.Duration) Option {
	return func(e *Engine) { e.locker, e.lockTTL = l, ttl }
}

func WithPublisher(p Publisher) Option { return func(e *Engine) { e.publisher = p } }

func WithFailureSink(f FailureSink) Option { return func(e *Engine) { e.failures = f } }

func WithHooks(h Hooks) Option { return func(e *Engine) { e.hooks = h } }

// WithFetchTimeout limita cada consulta de esporte ao feed
func WithFetchTimeout(d time.Duration) Option { return func(e *Engine) { e.fetchTimeout = d } }

// WithSports restringe os esportes consultados no feed; apostas de outros esportes ficam pendentes
func WithSports(sports ...string) Option {
	return func(e *Engine) {
		e.sports = make(map[string]struct{}, len(sports))
		for _, s := range sports {
			e.sports[s] = struct{}{}
		}
	}
}

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func New(log *zap.Logger, store Store, source MatchSource, resolver *outcome.Resolver, opts ...Option) *Engine {
	e := &Engine{
		log:          log,
		store:        store,
		source:       source,
		resolver:     resolver,
		combos:       NewComboTracker(resolver),
		reported:     make(map[string]struct{}),
		lockTTL:      2 * time.Minute,
		fetchTimeout: 5 * time.Second,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunPass executa um ciclo completo sobre todas as apostas pendentes
func (e *Engine) RunPass(ctx context.Context) (Report, error) {
	return e.guarded(ctx, "pass", nil)
}

// SettleMatch força a liquidação das apostas que dependem de uma partida
func (e *Engine) SettleMatch(ctx context.Context, sport, matchID string) (Report, error) {
	filter := func(b domain.Bet) bool {
		for _, id := range b.MatchIDs() {
			if id == matchID {
				return sport == "" || b.Sport == sport || legSport(b, id) == sport
			}
		}
		return false
	}
	return e.guarded(ctx, "match:"+sport+":"+matchID, filter)
}

func (e *Engine) guarded(ctx context.Context, what string, filter func(domain.Bet) bool) (Report, error) {
	if !e.mu.TryLock() {
		return Report{}, ErrPassInProgress
	}
	defer e.mu.Unlock()

	if e.locker != nil {
		release, err := e.locker.Acquire(ctx, "pass", e.lockTTL)
		if errors.Is(err, lock.ErrHeld) {
			e.log.Debug("settlement lock held elsewhere", zap.String("run", what))
			return Report{}, fmt.Errorf("%w: %v", ErrPassInProgress, err)
		}
		if err != nil {
			// lock indisponível (ex: Redis fora) é falha do ciclo, não ciclo concorrente
			e.log.Error("settlement lock unavailable", zap.String("run", what), zap.Error(err))
			e.onError("lock")
			return Report{}, fmt.Errorf("acquire settlement lock: %w", err)
		}
		defer func() {
			// liberação independe do ctx do ciclo (pode já estar cancelado)
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := release(rctx); err != nil {
				e.log.Warn("settlement lock release failed", zap.Error(err))
			}
		}()
	}

	start := time.Now()
	r, err := e.run(ctx, filter)
	d := time.Since(start)

	if e.hooks.OnPass != nil {
		e.hooks.OnPass(r, d, err)
	}
	e.log.Info("settlement pass finished",
		zap.String("run", what),
		zap.Int("checked", r.Checked),
		zap.Int("settled", r.Settled),
		zap.Int("won", r.Won),
		zap.Int("lost", r.Lost),
		zap.Int("void", r.Void),
		zap.Int("skipped", r.Skipped),
		zap.Int("errors", r.Errors),
		zap.Duration("duration", d),
	)
	return r, err
}

func (e *Engine) run(ctx context.Context, filter func(domain.Bet) bool) (Report, error) {
	var r Report

	bets, err := e.store.ListPending(ctx)
	if err != nil {
		e.onError("load")
		return r, fmt.Errorf("load pending bets: %w", err)
	}

	var (
		errs    []error
		pending []domain.Bet
	)
	for _, b := range bets {
		if filter != nil && !filter(b) {
			continue
		}
		if err := b.Validate(); err != nil {
			if _, seen := e.reported[b.ID]; seen {
				e.log.Debug("invalid pending bet still pending", zap.String("bet_id", b.ID), zap.Error(err))
			} else {
				e.reported[b.ID] = struct{}{}
				e.log.Error("invalid pending bet", zap.String("bet_id", b.ID), zap.Error(err))
				e.onError("validate")
				e.fail(ctx, b.ID, "validate", err)
			}
			r.Errors++
			errs = append(errs, err)
			continue
		}
		pending = append(pending, b)
	}
	r.Checked = len(pending)
	if len(pending) == 0 {
		return r, errors.Join(errs...)
	}

	wanted, placeholders := e.collectMatchIDs(pending)
	if e.hooks.OnPlaceholder != nil {
		e.hooks.OnPlaceholder(placeholders)
	}

	matches, failed, fetchErrs := e.fetch(ctx, wanted)
	r.FailedSports = failed
	errs = append(errs, fetchErrs...)

	for _, b := range pending {
		if err := e.settleBet(ctx, b, matches, &r); err != nil {
			r.Errors++
			errs = append(errs, err)
		}
	}
	return r, errors.Join(errs...)
}

// collectMatchIDs agrupa por esporte as partidas de que as apostas dependem.
// Ids sintéticos (placeholder) nunca são consultados.
func (e *Engine) collectMatchIDs(bets []domain.Bet) (map[string][]string, int) {
	seen := make(map[string]map[string]struct{})
	add := func(sport, id string) {
		if len(e.sports) > 0 {
			if _, ok := e.sports[sport]; !ok {
				return
			}
		}
		if seen[sport] == nil {
			seen[sport] = make(map[string]struct{})
		}
		seen[sport][id] = struct{}{}
	}

	placeholders := 0
	for _, b := range bets {
		if sel, ok := b.Single(); ok {
			if domain.IsPlaceholderMatchID(sel.MatchID) {
				placeholders++
				continue
			}
			add(b.Sport, sel.MatchID)
			continue
		}
		for _, l := range b.Legs() {
			if l.Settled {
				continue
			}
			if domain.IsPlaceholderMatchID(l.MatchID) {
				placeholders++
				e.log.Warn("combo leg with placeholder match id can never settle",
					zap.String("bet_id", b.ID), zap.String("match_id", l.MatchID))
				continue
			}
			add(sportOf(b, l), l.MatchID)
		}
	}

	out := make(map[string][]string, len(seen))
	for sport, ids := range seen {
		for id := range ids {
			out[sport] = append(out[sport], id)
		}
	}
	return out, placeholders
}

// fetch consulta os esportes em paralelo; cada um com seu timeout e isolado dos demais
func (e *Engine) fetch(ctx context.Context, wanted map[string][]string) (map[string]map[string]domain.Match, []string, []error) {
	var (
		mu      sync.Mutex
		g       errgroup.Group
		matches = make(map[string]map[string]domain.Match, len(wanted))
		failed  []string
		errs    []error
	)

	for sport, ids := range wanted {
		sport, ids := sport, ids
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
			defer cancel()

			found, err := e.source.Lookup(fctx, sport, ids)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				e.log.Warn("match fetch failed, skipping sport this pass", zap.String("sport", sport), zap.Error(err))
				e.onError("fetch")
				failed = append(failed, sport)
				errs = append(errs, fmt.Errorf("fetch %s: %w", sport, err))
				return nil
			}
			matches[sport] = found
			return nil
		})
	}
	_ = g.Wait()
	return matches, failed, errs
}

func (e *Engine) settleBet(ctx context.Context, b domain.Bet, matches map[string]map[string]domain.Match, r *Report) error {
	if sel, ok := b.Single(); ok {
		m, found := matches[b.Sport][sel.MatchID]
		if !found || !m.IsFinal() {
			r.Skipped++
			return nil
		}
		return e.commit(ctx, b, e.settleSingle(b, sel, m), r)
	}

	legs := b.Legs()
	changed := 0
	for _, l := range legs {
		if l.Settled {
			continue
		}
		m, found := matches[sportOf(b, l)][l.MatchID]
		if !found {
			continue
		}
		var n int
		legs, n = e.combos.ResolveLeg(legs, m)
		changed += n
	}

	if s, final := e.combos.Finalize(b, legs, e.now()); final {
		return e.commit(ctx, b, s, r)
	}

	r.Skipped++
	if changed == 0 {
		return nil
	}
	if err := e.store.SaveLegs(ctx, b.ID, legs); err != nil {
		if errors.Is(err, repo.ErrAlreadySettled) {
			return nil
		}
		e.log.Error("failed to persist combo legs", zap.String("bet_id", b.ID), zap.Error(err))
		e.onError("persist")
		return fmt.Errorf("save legs %s: %w", b.ID, err)
	}
	e.log.Debug("combo progress saved", zap.String("bet_id", b.ID), zap.Int("legs_resolved", changed))
	return nil
}

func (e *Engine) settleSingle(b domain.Bet, sel domain.Selection, m domain.Match) domain.Settlement {
	s := domain.Settlement{BetID: b.ID, UserID: b.UserID, SettledAt: e.now()}

	result := domain.ResultVoid
	if m.Status != domain.MatchCancelled {
		result = e.resolver.Resolve(sel.Pick, sel.Market, m.HomeScore, m.AwayScore)
	}

	s.State = result.State()
	switch result {
	case domain.ResultWon:
		s.Payout = potentialPayout(b)
		s.Credit = s.Payout
		s.TxType = domain.TxWin
	case domain.ResultVoid:
		s.Payout = b.Stake
		s.Credit = b.Stake
		s.TxType = domain.TxVoidRefund
	}
	return s
}

// commit grava a liquidação; ErrAlreadySettled (outro worker chegou antes) é no-op
func (e *Engine) commit(ctx context.Context, b domain.Bet, s domain.Settlement, r *Report) error {
	tx, err := e.store.Settle(ctx, s)
	if errors.Is(err, repo.ErrAlreadySettled) {
		e.log.Info("bet already settled, skipping", zap.String("bet_id", b.ID))
		r.Skipped++
		return nil
	}
	if err != nil {
		e.log.Error("failed to settle bet, leaving pending", zap.String("bet_id", b.ID), zap.Error(err))
		e.onError("persist")
		e.fail(ctx, b.ID, "persist", err)
		return fmt.Errorf("settle %s: %w", b.ID, err)
	}

	r.Settled++
	switch s.State {
	case domain.StateWon:
		r.Won++
	case domain.StateLost:
		r.Lost++
	case domain.StateVoid:
		r.Void++
	}
	if e.hooks.OnSettled != nil {
		e.hooks.OnSettled(s.State)
	}

	fields := []zap.Field{
		zap.String("bet_id", b.ID),
		zap.String("state", string(s.State)),
		zap.String("payout", s.Payout.StringFixed(2)),
	}
	if tx != nil {
		fields = append(fields, zap.String("tx_id", tx.ID), zap.String("balance_after", tx.BalanceAfter.StringFixed(2)))
	}
	e.log.Info("bet settled", fields...)

	e.publish(ctx, b, s)
	return nil
}

// publish é best effort: o commit já aconteceu
func (e *Engine) publish(ctx context.Context, b domain.Bet, s domain.Settlement) {
	if e.publisher == nil {
		return
	}
	ev := events.BetSettled{
		BetID:     b.ID,
		UserID:    b.UserID,
		State:     string(s.State),
		Stake:     b.Stake.StringFixed(2),
		Payout:    s.Payout.StringFixed(2),
		Sport:     b.Sport,
		MatchIDs:  b.MatchIDs(),
		Combo:     b.IsCombo(),
		SettledAt: s.SettledAt,
	}
	if err := e.publisher.PublishSettled(ctx, ev); err != nil {
		e.log.Warn("failed to publish settled event", zap.String("bet_id", b.ID), zap.Error(err))
		e.onError("publish")
	}
}

func (e *Engine) fail(ctx context.Context, betID, stage string, cause error) {
	if e.failures == nil {
		return
	}
	ev := events.SettlementFailed{BetID: betID, Stage: stage, Reason: cause.Error(), Ts: e.now()}
	if err := e.failures.PublishFailed(ctx, ev); err != nil {
		e.log.Warn("failed to publish settlement failure", zap.String("bet_id", betID), zap.Error(err))
	}
}

func (e *Engine) onError(stage string) {
	if e.hooks.OnError != nil {
		e.hooks.OnError(stage)
	}
}

// potentialPayout usa o valor gravado na colocação; sem ele, stake × odds
func potentialPayout(b domain.Bet) decimal.Decimal {
	if b.PotentialPayout.IsPositive() {
		return b.PotentialPayout
	}
	return b.Stake.Mul(b.Odds).Round(2)
}

func sportOf(b domain.Bet, l domain.Leg) string {
	if l.Sport != "" {
		return l.Sport
	}
	return b.Sport
}

func legSport(b domain.Bet, matchID string) string {
	for _, l := range b.Legs() {
		if l.MatchID == matchID {
			return sportOf(b, l)
		}
	}
	return b.Sport
}

package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/radieske/sports-bet-settlement/internal/settlement/domain"
)

var (
	// ErrAlreadySettled: a aposta já saiu de pending; liquidar de novo é no-op
	ErrAlreadySettled = errors.New("bet already settled")
	ErrNotFound       = errors.New("not found")
)

// Postgres implementa o ledger de apostas, saldos e lançamentos
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// ListPending carrega todas as apostas pendentes em uma única leitura, em ordem estável
func (p *Postgres) ListPending(ctx context.Context) ([]domain.Bet, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, sport, match_id, market, selection,
		       stake, odds, potential_payout, actual_payout, status,
		       is_combo, combo_legs, settled_at, created_at
		FROM bets
		WHERE status = 'pending'
		ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	var out []domain.Bet
	for rows.Next() {
		var r betRow
		if err := rows.Scan(
			&r.ID, &r.UserID, &r.Sport, &r.MatchID, &r.Market, &r.Selection,
			&r.Stake, &r.Odds, &r.PotentialPayout, &r.ActualPayout, &r.Status,
			&r.IsCombo, &r.ComboLegs, &r.SettledAt, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan bet: %w", err)
		}
		out = append(out, r.toBet())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	return out, nil
}

// Settle aplica estado final, crédito e lançamento da aposta numa única transação.
// Lock pessimista na aposta e no usuário; qualquer falha desfaz tudo.
func (p *Postgres) Settle(ctx context.Context, s domain.Settlement) (*domain.Transaction, error) {
	if !s.State.IsTerminal() {
		return nil, fmt.Errorf("settle %s: non-terminal state %q", s.BetID, s.State)
	}
	legs, err := encodeLegs(s.Legs)
	if err != nil {
		return nil, fmt.Errorf("settle %s: encode legs: %w", s.BetID, err)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var status, userID string
	err = tx.QueryRowContext(ctx, `SELECT status, user_id FROM bets WHERE id=$1 FOR UPDATE`, s.BetID).Scan(&status, &userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bet %s: %w", s.BetID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if status != string(domain.StatePending) {
		return nil, fmt.Errorf("bet %s is %s: %w", s.BetID, status, ErrAlreadySettled)
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE bets
		SET status=$2, actual_payout=$3, settled_at=$4, combo_legs=COALESCE($5::jsonb, combo_legs)
		WHERE id=$1`,
		s.BetID, string(s.State), s.Payout, s.SettledAt, legs); err != nil {
		return nil, fmt.Errorf("update bet %s: %w", s.BetID, err)
	}

	var ledger *domain.Transaction
	if s.HasCredit() {
		if ledger, err = credit(ctx, tx, userID, s); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return ledger, nil
}

// credit soma ao saldo do usuário e grava o lançamento com saldo antes/depois
func credit(ctx context.Context, tx *sql.Tx, userID string, s domain.Settlement) (*domain.Transaction, error) {
	t := &domain.Transaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		BetID:     s.BetID,
		Amount:    s.Credit,
		Type:      s.TxType,
		CreatedAt: s.SettledAt,
	}

	err := tx.QueryRowContext(ctx, `SELECT balance FROM users WHERE id=$1 FOR UPDATE`, userID).Scan(&t.BalanceBefore)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	t.BalanceAfter = t.BalanceBefore.Add(t.Amount)

	if _, err = tx.ExecContext(ctx, `UPDATE users SET balance=$1, updated_at=now() WHERE id=$2`, t.BalanceAfter, userID); err != nil {
		return nil, fmt.Errorf("update balance %s: %w", userID, err)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO bet_transactions(id, user_id, bet_id, amount, type, balance_before, balance_after, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		t.ID, t.UserID, t.BetID, t.Amount, string(t.Type), t.BalanceBefore, t.BalanceAfter, t.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert transaction %s: %w", s.BetID, err)
	}
	return t, nil
}

// SaveLegs persiste o progresso parcial de uma combinada que continua pendente
func (p *Postgres) SaveLegs(ctx context.Context, betID string, legs []domain.Leg) error {
	b, err := encodeLegs(legs)
	if err != nil {
		return fmt.Errorf("save legs %s: %w", betID, err)
	}
	res, err := p.db.ExecContext(ctx, `UPDATE bets SET combo_legs=$2 WHERE id=$1 AND status='pending'`, betID, b)
	if err != nil {
		return fmt.Errorf("save legs %s: %w", betID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("save legs %s: %w", betID, ErrAlreadySettled)
	}
	return nil
}

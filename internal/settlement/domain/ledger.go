package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType é a etiqueta do lançamento no ledger; aposta perdida não gera lançamento
type TransactionType string

const (
	TxWin        TransactionType = "win"
	TxComboWin   TransactionType = "combo-win"
	TxVoidRefund TransactionType = "void-refund"
)

// Transaction é uma linha append-only do ledger
// BalanceAfter = BalanceBefore + Amount
type Transaction struct {
	ID            string
	UserID        string
	BetID         string
	Amount        decimal.Decimal
	Type          TransactionType
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	CreatedAt     time.Time
}

// Settlement é a unidade atômica entregue ao store: estado da aposta + crédito + lançamento
type Settlement struct {
	BetID     string
	UserID    string
	State     BetState
	Payout    decimal.Decimal // actual_payout gravado na aposta
	Credit    decimal.Decimal // valor somado ao saldo (zero para perdida)
	TxType    TransactionType // ignorado quando Credit é zero
	Legs      []Leg           // estado final das pernas (combinadas)
	SettledAt time.Time
}

// HasCredit indica se a liquidação movimenta saldo
func (s Settlement) HasCredit() bool {
	return s.Credit.IsPositive()
}

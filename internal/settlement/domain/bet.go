package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// BetState é o estado persistido da aposta; pending -> {won, lost, void} é de mão única
type BetState string

const (
	StatePending BetState = "pending"
	StateWon     BetState = "won"
	StateLost    BetState = "lost"
	StateVoid    BetState = "void"
)

func (s BetState) IsTerminal() bool {
	return s == StateWon || s == StateLost || s == StateVoid
}

// Result é o desfecho de uma seleção (aposta simples ou perna de combinada)
type Result string

const (
	ResultWon  Result = "won"
	ResultLost Result = "lost"
	ResultVoid Result = "void"
)

// State converte o desfecho no estado terminal equivalente da aposta
func (r Result) State() BetState {
	switch r {
	case ResultWon:
		return StateWon
	case ResultVoid:
		return StateVoid
	default:
		return StateLost
	}
}

// Selection identifica o que foi apostado em uma partida
type Selection struct {
	MatchID string `json:"match_id" validate:"required"`
	Sport   string `json:"sport"`
	Pick    string `json:"selection" validate:"required"`
	Market  string `json:"market" validate:"required"`
}

// Leg é uma perna de aposta combinada; Result só é definido uma vez (Settled=true)
type Leg struct {
	Selection
	Settled bool   `json:"settled"`
	Result  Result `json:"result,omitempty"`
}

// Slip é o conteúdo da aposta: SingleSlip ou ComboSlip
type Slip interface {
	isSlip()
}

type SingleSlip struct {
	Selection Selection `validate:"required"`
}

type ComboSlip struct {
	Legs []Leg `validate:"min=2,dive"`
}

func (SingleSlip) isSlip() {}
func (ComboSlip) isSlip()  {}

// Bet é a aposta como lida do ledger
// Sport é gravado na colocação e nunca re-derivado dos nomes dos times
type Bet struct {
	ID              string          `validate:"required"`
	UserID          string          `validate:"required"`
	Sport           string          `validate:"required"`
	Stake           decimal.Decimal `validate:"gt=0"`
	Odds            decimal.Decimal `validate:"gt=1"`
	PotentialPayout decimal.Decimal
	ActualPayout    decimal.Decimal
	State           BetState
	Slip            Slip `validate:"-"`
	SettledAt       *time.Time
	CreatedAt       time.Time
}

// Single devolve a seleção de uma aposta simples
func (b Bet) Single() (Selection, bool) {
	s, ok := b.Slip.(SingleSlip)
	if !ok {
		return Selection{}, false
	}
	return s.Selection, true
}

// Legs devolve as pernas de uma combinada (nil para aposta simples)
func (b Bet) Legs() []Leg {
	c, ok := b.Slip.(ComboSlip)
	if !ok {
		return nil
	}
	return c.Legs
}

func (b Bet) IsCombo() bool {
	_, ok := b.Slip.(ComboSlip)
	return ok
}

// MatchIDs lista as partidas de que a aposta depende, na ordem das pernas
func (b Bet) MatchIDs() []string {
	switch s := b.Slip.(type) {
	case SingleSlip:
		return []string{s.Selection.MatchID}
	case ComboSlip:
		ids := make([]string, 0, len(s.Legs))
		for _, l := range s.Legs {
			ids = append(ids, l.MatchID)
		}
		return ids
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// decimal.Decimal validado como float64 (gt=0, gt=1)
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

var ErrInvalidBet = errors.New("invalid bet")

// Validate checa os invariantes de colocação antes de qualquer liquidação
func (b Bet) Validate() error {
	if err := validate.Struct(b); err != nil {
		return fmt.Errorf("%w %s: %v", ErrInvalidBet, b.ID, err)
	}
	if b.State != StatePending && !b.State.IsTerminal() {
		return fmt.Errorf("%w %s: unknown state %q", ErrInvalidBet, b.ID, b.State)
	}
	switch s := b.Slip.(type) {
	case SingleSlip:
		if err := validate.Struct(s); err != nil {
			return fmt.Errorf("%w %s: %v", ErrInvalidBet, b.ID, err)
		}
	case ComboSlip:
		if err := validate.Struct(s); err != nil {
			return fmt.Errorf("%w %s: %v", ErrInvalidBet, b.ID, err)
		}
	default:
		return fmt.Errorf("%w %s: missing slip", ErrInvalidBet, b.ID)
	}
	return nil
}

// IsPlaceholderMatchID indica ids sintéticos ("combo_", "match_") sem partida real no feed
func IsPlaceholderMatchID(id string) bool {
	return strings.HasPrefix(id, "combo_") || strings.HasPrefix(id, "match_")
}

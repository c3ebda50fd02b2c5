package notify

import (
	"context"
	"errors"

	"github.com/radieske/sports-bet-settlement/pkg/contracts/events"
)

type SettledPublisher interface {
	PublishSettled(ctx context.Context, e events.BetSettled) error
}

// Multi entrega o evento para todos os destinos; um destino com erro não impede os demais
type Multi []SettledPublisher

func (m Multi) PublishSettled(ctx context.Context, e events.BetSettled) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.PublishSettled(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

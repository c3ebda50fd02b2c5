package notify

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/radieske/sports-bet-settlement/internal/shared/kafka"
	"github.com/radieske/sports-bet-settlement/pkg/contracts/events"
)

// KafkaPublisher publica bet_settled e, em caso de falha de liquidação, a DLQ.
// Mensagens são chaveadas pelo betId.
type KafkaPublisher struct {
	settled kafka.MessageWriter
	dlq     kafka.MessageWriter
	log     *zap.Logger
}

func NewKafkaPublisher(settled, dlq kafka.MessageWriter, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{settled: settled, dlq: dlq, log: log}
}

func (p *KafkaPublisher) PublishSettled(ctx context.Context, e events.BetSettled) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := kafka.WriteJSON(ctx, p.settled, e.BetID, b); err != nil {
		p.log.Error("failed to publish bet_settled", zap.String("bet_id", e.BetID), zap.Error(err))
		return err
	}
	p.log.Debug("published bet_settled", zap.String("bet_id", e.BetID), zap.String("state", e.State))
	return nil
}

func (p *KafkaPublisher) PublishFailed(ctx context.Context, e events.SettlementFailed) error {
	if p.dlq == nil {
		return nil
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := kafka.WriteJSON(ctx, p.dlq, e.BetID, b); err != nil {
		p.log.Error("failed to publish to settlement DLQ", zap.String("bet_id", e.BetID), zap.Error(err))
		return err
	}
	return nil
}

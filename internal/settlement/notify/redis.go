package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/sports-bet-settlement/pkg/contracts/events"
)

// RedisBroadcaster repassa liquidações para o canal pub/sub consumido pelo WS de front
type RedisBroadcaster struct {
	r       *redis.Client
	channel string
}

func NewRedisBroadcaster(r *redis.Client, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{r: r, channel: channel}
}

// WSUpdate é o envelope publicado no canal
type WSUpdate struct {
	Type    string            `json:"type"` // "bet_settled"
	UserID  string            `json:"userId"`
	Payload events.BetSettled `json:"payload"`
}

func (b *RedisBroadcaster) PublishSettled(ctx context.Context, e events.BetSettled) error {
	payload, err := json.Marshal(WSUpdate{Type: "bet_settled", UserID: e.UserID, Payload: e})
	if err != nil {
		return err
	}
	return b.r.Publish(ctx, b.channel, payload).Err()
}

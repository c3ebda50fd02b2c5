package feed

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/sports-bet-settlement/internal/settlement/domain"
	"github.com/radieske/sports-bet-settlement/pkg/contracts/events"
)

// Watcher escuta o WebSocket do feed e avisa quando uma partida chega a um status final.
// É só um atalho para liquidar mais cedo; o ciclo periódico continua sendo a fonte da verdade.
type Watcher struct {
	URL     string
	Log     *zap.Logger
	Backoff time.Duration // espera entre reconexões (padrão 3s)

	// OnFinal é chamado para cada match_update com status final
	OnFinal func(ctx context.Context, m domain.Match)
}

// Start mantém a conexão aberta até o contexto ser cancelado, reconectando com backoff
func (w *Watcher) Start(ctx context.Context) {
	backoff := w.Backoff
	if backoff <= 0 {
		backoff = 3 * time.Second
	}
	for {
		if ctx.Err() != nil {
			w.Log.Info("context canceled, stopping feed watcher")
			return
		}
		if err := w.connectAndListen(ctx); err != nil {
			w.Log.Warn("feed ws connection closed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			w.Log.Info("context canceled, stopping feed watcher")
			return
		case <-time.After(backoff):
		}
	}
}

func (w *Watcher) connectAndListen(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	w.Log.Info("connected to feed WS", zap.String("url", w.URL))

	// fecha a conexão no cancelamento para destravar o ReadMessage
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		w.handle(ctx, message)
	}
}

func (w *Watcher) handle(ctx context.Context, message []byte) {
	var up events.MatchUpdate
	if err := json.Unmarshal(message, &up); err != nil {
		w.Log.Warn("invalid feed message", zap.Error(err))
		return
	}
	if up.Type != "" && up.Type != "match_update" {
		return
	}
	m, err := updateToMatch(up)
	if err != nil {
		w.Log.Warn("invalid match update", zap.Error(err))
		return
	}
	if !m.IsFinal() || w.OnFinal == nil {
		return
	}
	w.OnFinal(ctx, m)
}

var errIncompleteUpdate = errors.New("match update without sport or id")

// updateToMatch reaproveita a mesma conversão de status/placar do feed HTTP
func updateToMatch(u events.MatchUpdate) (domain.Match, error) {
	if u.Sport == "" || u.MatchID == "" {
		return domain.Match{}, errIncompleteUpdate
	}
	e := Entry{
		ID:          u.MatchID,
		Status:      u.Status,
		LocalTeam:   Team{Goals: u.HomeScore},
		VisitorTeam: Team{Goals: u.AwayScore},
	}
	return e.ToMatch(u.Sport), nil
}

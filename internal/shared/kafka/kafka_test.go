package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, splitBrokers(" a:9092, ,b:9092"))
	assert.Empty(t, splitBrokers(""))
}

func TestNewWriterUsesAllBrokers(t *testing.T) {
	w := NewWriter("a:9092,b:9092", "bet_settled")
	defer w.Close()

	assert.Equal(t, "bet_settled", w.Topic)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
}

type captureWriter struct{ msgs []kafka.Message }

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func TestWriteJSONKeysMessage(t *testing.T) {
	w := &captureWriter{}
	require.NoError(t, WriteJSON(context.Background(), w, "bet-1", []byte(`{"ok":true}`)))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("bet-1"), w.msgs[0].Key)
	assert.JSONEq(t, `{"ok":true}`, string(w.msgs[0].Value))
	assert.False(t, w.msgs[0].Time.IsZero())
}

func TestEnsureTopicsWithoutBrokers(t *testing.T) {
	assert.Error(t, EnsureTopics(context.Background(), " , ", "bet_settled"))
}

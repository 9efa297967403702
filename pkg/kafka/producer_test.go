package kafka

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/bm25-search/pkg/config"
)

func TestToMessage_EncodesJSON(t *testing.T) {
	msg, err := toMessage(Event{Key: "search", Value: map[string]int{"hits": 2}})
	require.NoError(t, err)
	assert.Equal(t, "search", string(msg.Key))
	assert.JSONEq(t, `{"hits":2}`, string(msg.Value))

	_, err = toMessage(Event{Key: "bad", Value: make(chan int)})
	assert.Error(t, err)
}

func TestProducer_PublishBatch(t *testing.T) {
	brokers := os.Getenv("BM25_TEST_KAFKA_BROKERS")
	if brokers == "" {
		t.Skip("BM25_TEST_KAFKA_BROKERS not set")
	}
	p := NewProducer(config.KafkaConfig{
		Enabled: true,
		Brokers: strings.Split(brokers, ","),
		Topic:   "bm25-events-test",
	})
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, p.Publish(ctx, Event{Key: "search", Value: map[string]string{"query": "dog"}}))
	require.NoError(t, p.PublishBatch(ctx, []Event{
		{Key: "search", Value: 1},
		{Key: "evaluation", Value: 2},
	}))
}

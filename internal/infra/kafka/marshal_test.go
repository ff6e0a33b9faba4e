package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taziri/internal/domain/event"
)

func TestDecodeEnvelope(t *testing.T) {
	env, err := event.New(event.TypeShipmentRegistered, "test", 9, event.ShipmentRegisteredPayload{OrderID: 9, TrackingNumber: "YAL-1"})
	require.NoError(t, err)
	b, err := json.Marshal(env)
	require.NoError(t, err)

	got, err := DecodeEnvelope(kafka.Message{Value: b})
	require.NoError(t, err)
	assert.Equal(t, env.EventID, got.EventID)

	p, err := event.Decode[event.ShipmentRegisteredPayload](got)
	require.NoError(t, err)
	assert.Equal(t, "YAL-1", p.TrackingNumber)
}

func TestDecodeEnvelope_FallsBackToHeader(t *testing.T) {
	got, err := DecodeEnvelope(kafka.Message{
		Value:   []byte(`{"event_id":"e1","payload":{}}`),
		Headers: []kafka.Header{{Key: "x-event-type", Value: []byte(event.TypeOrderPlaced)}},
	})
	require.NoError(t, err)
	assert.Equal(t, event.TypeOrderPlaced, got.EventType)
}

func TestDecodeEnvelope_Garbage(t *testing.T) {
	_, err := DecodeEnvelope(kafka.Message{Value: []byte("not json")})
	assert.Error(t, err)
}

func TestEnvelopeHandler(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	var got []string
	h := EnvelopeHandler(log, func(_ context.Context, env event.Envelope) error {
		got = append(got, env.EventID)
		return nil
	})

	env, err := event.New(event.TypeOrderPlaced, "test", 1, event.OrderPlacedPayload{OrderID: 1})
	require.NoError(t, err)
	b, err := json.Marshal(env)
	require.NoError(t, err)

	require.NoError(t, h(context.Background(), kafka.Message{Value: b}))
	//読めないものは捨ててコミットさせる
	require.NoError(t, h(context.Background(), kafka.Message{Value: []byte("{")}))
	assert.Equal(t, []string{env.EventID}, got)
}

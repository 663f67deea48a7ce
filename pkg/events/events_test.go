package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/neuroref/config"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	err  error
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, config.EventsConfig{Topic: "t", BreakerFailures: 3, BreakerTimeout: time.Minute})

	err := p.Publish(context.Background(), Event{Name: NotificationCreated, UserID: 9, Data: map[string]any{"title": "x"}})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "9", string(msg.Key))
	assert.Equal(t, NotificationCreated, string(msg.Headers[0].Value))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, uint(9), decoded.UserID)
	assert.False(t, decoded.OccurredAt.IsZero())
}

func TestKafkaPublisher_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker unreachable")}
	p := newKafkaPublisher(w, config.EventsConfig{Topic: "t", BreakerFailures: 2, BreakerTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		err := p.Publish(context.Background(), Event{Name: NotificationCreated})
		require.Error(t, err)
		assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}

	err := p.Publish(context.Background(), Event{Name: NotificationCreated})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), Event{Name: "x"}))
	assert.NoError(t, p.Close())
}

package mq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/hoa-ledger/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	channel string
	data    []byte
	attrs   map[string]string
}

type fakeBackend struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (f *fakeBackend) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, published{channel: channel, data: data, attrs: attrs})
	return "id", nil
}

func (f *fakeBackend) Subscribe(context.Context, string, Handler) error { return nil }

func (f *fakeBackend) Close() error { return nil }

func TestPublisherSendsEnvelope(t *testing.T) {
	backend := &fakeBackend{}
	p := NewPublisher(backend, "hoa.ledger")
	p.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	p.Publish(context.Background(), "payment.recorded", "ABC12", map[string]string{"amount": "50.00"})
	p.Close()

	require.Len(t, backend.sent, 1)
	msg := backend.sent[0]
	assert.Equal(t, "hoa.ledger", msg.channel)
	assert.Equal(t, map[string]string{AttrType: "payment.recorded", AttrSubject: "ABC12"}, msg.attrs)

	ev, err := DecodeEvent(Message{Data: msg.data})
	require.NoError(t, err)
	assert.Equal(t, "payment.recorded", ev.Type)
	assert.Equal(t, "ABC12", ev.Subject)
	assert.True(t, ev.OccurredAt.Equal(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)))
	assert.JSONEq(t, `{"amount":"50.00"}`, string(ev.Data))
}

func TestPublisherSwallowsBackendErrors(t *testing.T) {
	backend := &fakeBackend{err: errors.New("broker down")}
	p := NewPublisher(backend, "hoa.ledger")

	p.Publish(context.Background(), "neighbor.created", "ABC12", nil)
	p.Close()
	p.Close()

	assert.Empty(t, backend.sent)
}

func TestPublishAfterCloseDropsEvent(t *testing.T) {
	backend := &fakeBackend{}
	p := NewPublisher(backend, "hoa.ledger")
	p.Close()

	assert.NotPanics(t, func() {
		p.Publish(context.Background(), "payment.recorded", "ABC12", nil)
	})
	assert.Empty(t, backend.sent)
}

func TestPublishRacingCloseDoesNotPanic(t *testing.T) {
	backend := &fakeBackend{}
	p := NewPublisher(backend, "hoa.ledger")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				p.Publish(context.Background(), "payment.recorded", "ABC12", nil)
			}
		}()
	}
	p.Close()
	wg.Wait()
}

func TestNilPublisherIsSafe(t *testing.T) {
	var p *Publisher
	p.Publish(context.Background(), "neighbor.created", "ABC12", nil)
	p.Close()
}

func TestOpen(t *testing.T) {
	backend, err := Open(context.Background(), config.Config{MQ: config.MQConfig{Backend: "none"}})
	require.NoError(t, err)
	assert.Nil(t, backend)

	_, err = Open(context.Background(), config.Config{MQ: config.MQConfig{Backend: "kafka"}})
	assert.Error(t, err)

	_, err = Open(context.Background(), config.Config{MQ: config.MQConfig{Backend: "rabbitmq"}})
	assert.EqualError(t, err, "rabbitmq url is required")
}

func TestQueueName(t *testing.T) {
	assert.Equal(t, "hoa.ledger-sub", queueName("hoa.ledger", ""))
	assert.Equal(t, "hoa.ledger.audit", queueName("hoa.ledger", ".audit"))
}

func TestPubSubOrderingKeyIsSubject(t *testing.T) {
	assert.Equal(t, "ABC12", orderingKey(map[string]string{AttrType: "payment.recorded", AttrSubject: " ABC12 "}))
	assert.Empty(t, orderingKey(map[string]string{AttrType: "charges.generated"}))
	assert.Empty(t, orderingKey(nil))
}

func TestFromPubSubSkipsUntypedMessages(t *testing.T) {
	msg, ok := fromPubSub(&pubsub.Message{
		ID:         "1",
		Data:       []byte(`{"type":"neighbor.created"}`),
		Attributes: map[string]string{AttrType: "neighbor.created", AttrSubject: "ABC12"},
	})
	require.True(t, ok)
	assert.Equal(t, "1", msg.ID)
	assert.Equal(t, "ABC12", msg.Attributes[AttrSubject])

	_, ok = fromPubSub(&pubsub.Message{ID: "2", Data: []byte("{}")})
	assert.False(t, ok)
}

func TestOpenPubSubRequiresProject(t *testing.T) {
	_, err := Open(context.Background(), config.Config{MQ: config.MQConfig{Backend: "pubsub"}})
	assert.EqualError(t, err, "pubsub project id is required")
}

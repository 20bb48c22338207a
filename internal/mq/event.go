package mq

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	publishTimeout = 5 * time.Second
	queueSize      = 64
)

// Event is the JSON envelope published for every ledger event.
type Event struct {
	Type       string          `json:"type"`
	Subject    string          `json:"subject"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// DecodeEvent parses a delivered message into an Event.
func DecodeEvent(msg Message) (Event, error) {
	var ev Event
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// Publisher sends events to a backend from a background goroutine so callers
// never wait on the broker. Failures are logged and dropped.
type Publisher struct {
	backend Backend
	channel string
	logger  zerolog.Logger
	now     func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	wg     sync.WaitGroup
}

// NewPublisher starts a publisher on channel. Close flushes pending events.
func NewPublisher(backend Backend, channel string) *Publisher {
	p := &Publisher{
		backend: backend,
		channel: channel,
		logger:  log.With().Str("component", "events").Str("channel", channel).Logger(),
		now:     time.Now,
		queue:   make(chan Event, queueSize),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Publish enqueues an event. Events are dropped when the queue is full or
// the publisher is closed.
func (p *Publisher) Publish(_ context.Context, eventType, subject string, data any) {
	if p == nil {
		return
	}

	raw, err := json.Marshal(data)
	if err != nil {
		p.logger.Error().Err(err).Str("type", eventType).Msg("encode event")
		return
	}

	ev := Event{Type: eventType, Subject: subject, OccurredAt: p.now().UTC(), Data: raw}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.logger.Warn().Str("type", eventType).Str("subject", subject).Msg("publisher closed, dropping")
		return
	}
	select {
	case p.queue <- ev:
	default:
		p.logger.Warn().Str("type", eventType).Str("subject", subject).Msg("event queue full, dropping")
	}
}

// Close stops accepting events and waits for queued ones to be sent.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for ev := range p.queue {
		p.send(ev)
	}
}

func (p *Publisher) send(ev Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error().Err(err).Str("type", ev.Type).Msg("encode event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	id, err := p.backend.Publish(ctx, p.channel, body, map[string]string{
		AttrType:    ev.Type,
		AttrSubject: ev.Subject,
	})
	if err != nil {
		p.logger.Warn().Err(err).Str("type", ev.Type).Str("subject", ev.Subject).Msg("publish event")
		return
	}
	p.logger.Debug().Str("id", id).Str("type", ev.Type).Str("subject", ev.Subject).Msg("event published")
}

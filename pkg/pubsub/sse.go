package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/ritzau/link-analyzer/pkg/logging"
)

// ErrClosed is returned by Publish and Subscribe after Close.
var ErrClosed = errors.New("publisher is closed")

// subscriberBuffer bounds undelivered events per subscriber; a slow
// subscriber loses events rather than blocking publishers.
const subscriberBuffer = 256

// TopicConfig configures buffering behavior for a topic
type TopicConfig struct {
	BufferSize int  // events kept for late subscribers, 0 keeps none
	ReplayAll  bool // replay the whole buffer instead of only the last event
}

// topicState is everything the publisher tracks for one topic.
type topicState struct {
	subs    map[*sseSubscription]struct{}
	version int
	buffer  []Event
}

func (t *topicState) idle() bool {
	return len(t.subs) == 0 && t.version == 0
}

// SSEPublisher is an in-process Publisher whose events are written to
// browsers as Server-Sent Events.
type SSEPublisher struct {
	mu           sync.Mutex
	topics       map[string]*topicState
	topicConfig  map[string]TopicConfig
	prefixConfig map[string]TopicConfig
	closed       bool
	logger       *slog.Logger
}

func NewSSEPublisher() *SSEPublisher {
	return &SSEPublisher{
		topics:       make(map[string]*topicState),
		topicConfig:  make(map[string]TopicConfig),
		prefixConfig: make(map[string]TopicConfig),
		logger:       logging.New("pubsub"),
	}
}

// ConfigureTopic sets buffering configuration for a topic
func (p *SSEPublisher) ConfigureTopic(topic string, config TopicConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topicConfig[topic] = config
}

// ConfigurePrefix sets buffering configuration for every topic starting
// with prefix that has no configuration of its own.
func (p *SSEPublisher) ConfigurePrefix(prefix string, config TopicConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prefixConfig[prefix] = config
}

// config resolves a topic's configuration; the longest prefix wins.
// Callers hold p.mu.
func (p *SSEPublisher) config(topic string) TopicConfig {
	if c, ok := p.topicConfig[topic]; ok {
		return c
	}
	var (
		best    TopicConfig
		bestLen = -1
	)
	for prefix, c := range p.prefixConfig {
		if strings.HasPrefix(topic, prefix) && len(prefix) > bestLen {
			best, bestLen = c, len(prefix)
		}
	}
	return best
}

// state returns the topic's state, creating it. Callers hold p.mu.
func (p *SSEPublisher) state(topic string) *topicState {
	t := p.topics[topic]
	if t == nil {
		t = &topicState{subs: make(map[*sseSubscription]struct{})}
		p.topics[topic] = t
	}
	return t
}

// Subscribe registers a subscriber and replays the topic's buffer to it.
// Cancelling ctx closes the subscription.
func (p *SSEPublisher) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}

	sub := &sseSubscription{
		topic:     topic,
		events:    make(chan Event, subscriberBuffer),
		publisher: p,
	}
	t := p.state(topic)
	t.subs[sub] = struct{}{}

	// Replay under the lock so no live event can overtake the replayed ones
	replay := t.buffer
	if len(replay) > 0 && !p.config(topic).ReplayAll {
		replay = replay[len(replay)-1:]
	}
	for _, event := range replay {
		select {
		case sub.events <- event:
		default:
			p.logger.Warn("could not replay event to new subscriber", "topic", topic)
		}
	}
	if len(replay) > 0 {
		p.logger.Debug("replayed events to new subscriber", "topic", topic, "count", len(replay))
	}
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		sub.Close()
	}()
	return sub, nil
}

// Publish encodes data and delivers it to the topic's subscribers. Versions
// count up from 1 per topic.
func (p *SSEPublisher) Publish(topic string, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}

	t := p.state(topic)
	t.version++
	event := Event{Topic: topic, Type: eventType, Data: payload, Version: t.version}

	if size := p.config(topic).BufferSize; size > 0 {
		t.buffer = append(t.buffer, event)
		if len(t.buffer) > size {
			t.buffer = t.buffer[len(t.buffer)-size:]
		}
	}

	for sub := range t.subs {
		select {
		case sub.events <- event:
		default:
			p.logger.Warn("subscription channel full, dropping event", "topic", topic, "type", eventType)
		}
	}
	return nil
}

// Forget drops a topic's buffer, version counter and configuration.
// Subscribers stay registered.
func (p *SSEPublisher) Forget(topic string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.topicConfig, topic)
	t := p.topics[topic]
	if t == nil {
		return
	}
	t.version, t.buffer = 0, nil
	if t.idle() {
		delete(p.topics, topic)
	}
}

// Close ends every subscription by closing its channel. It is safe to call
// more than once.
func (p *SSEPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	for _, t := range p.topics {
		for sub := range t.subs {
			close(sub.events)
		}
	}
	p.topics = make(map[string]*topicState)
	return nil
}

func (p *SSEPublisher) unsubscribe(sub *sseSubscription) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := p.topics[sub.topic]
	if t == nil {
		return
	}
	delete(t.subs, sub)
	if t.idle() {
		delete(p.topics, sub.topic)
	}
}

type sseSubscription struct {
	topic     string
	events    chan Event
	publisher *SSEPublisher
	once      sync.Once
}

func (s *sseSubscription) Topic() string        { return s.topic }
func (s *sseSubscription) Events() <-chan Event { return s.events }

func (s *sseSubscription) Close() error {
	s.once.Do(func() { s.publisher.unsubscribe(s) })
	return nil
}

// WriteSSE writes one event frame:
//
//	id: {version}
//	event: {type}
//	data: {event as JSON}
func WriteSSE(w io.Writer, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", event.Version, event.Type, payload)
	return err
}

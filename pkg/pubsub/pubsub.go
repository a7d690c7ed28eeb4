// Package pubsub fans job status out to browser subscribers.
package pubsub

import (
	"context"
	"encoding/json"
	"strings"
)

// Event is one published message. Type is the SSE event name: "progress",
// "result" and "error" on job topics, the item state on the inbox topic.
type Event struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Version int             `json:"version"` // per topic, starting at 1
}

// Subscription delivers one topic's events until closed.
type Subscription interface {
	Topic() string
	Events() <-chan Event
	Close() error
}

// Publisher fans events out to subscribers by topic.
type Publisher interface {
	// Subscribe registers for a topic until ctx is done or the
	// subscription is closed.
	Subscribe(ctx context.Context, topic string) (Subscription, error)
	Publish(topic string, eventType string, data any) error
	// Forget drops the buffered events and version counter of a topic.
	Forget(topic string)
	Close() error
}

// Topics
const (
	JobTopicPrefix = "jobs/"
	InboxTopic     = "inbox"
)

// JobTopic is the topic carrying one job's events.
func JobTopic(id string) string {
	return JobTopicPrefix + id
}

// JobID extracts the job ID from a job topic.
func JobID(topic string) (string, bool) {
	id, ok := strings.CutPrefix(topic, JobTopicPrefix)
	return id, ok && id != ""
}

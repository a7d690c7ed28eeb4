// Package events announces finished analyses on a message bus.
package events

import (
	"context"
	"time"

	"github.com/ritzau/link-analyzer/pkg/model"
)

// Event topic constants
const (
	TopicGraphBuilt     = "link-analyzer.graph.built"
	TopicAnalysisFailed = "link-analyzer.analysis.failed"
)

// GraphBuilt is published when a job or the inbox watcher produced a graph.
type GraphBuilt struct {
	JobID    string              `json:"job_id,omitempty"`
	Kind     string              `json:"kind"`
	File     model.FileInfo      `json:"file"`
	Metadata model.GraphMetadata `json:"metadata"`
	At       time.Time           `json:"at"`
}

// AnalysisFailed is published when a file could not be analyzed.
type AnalysisFailed struct {
	JobID string         `json:"job_id,omitempty"`
	Kind  string         `json:"kind"`
	File  model.FileInfo `json:"file"`
	Error string         `json:"error"`
	At    time.Time      `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

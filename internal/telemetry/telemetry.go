// Package telemetry reports anonymous tool-usage events. It is a no-op
// unless a Segment write key is configured; no query content or credentials
// ever leave the process, only tool names and outcomes.
package telemetry

import (
	"time"

	"github.com/google/uuid"
	analytics "github.com/segmentio/analytics-go/v3"
	"go.uber.org/zap"
)

type Telemetry struct {
	client      analytics.Client
	anonymousID string
	logger      *zap.Logger
}

// New builds a reporter. An empty writeKey disables reporting entirely.
func New(log *zap.Logger, writeKey string) *Telemetry {
	t := &Telemetry{logger: log, anonymousID: uuid.NewString()}
	if writeKey == "" {
		return t
	}
	t.client = analytics.New(writeKey)
	return t
}

// TrackToolCall enqueues one tool invocation outcome.
func (t *Telemetry) TrackToolCall(tool string, callErr error, elapsed time.Duration) {
	if t.client == nil {
		return
	}

	outcome := "success"
	if callErr != nil {
		outcome = "error"
	}
	err := t.client.Enqueue(analytics.Track{
		AnonymousId: t.anonymousID,
		Event:       "tool_call",
		Properties: analytics.NewProperties().
			Set("tool", tool).
			Set("outcome", outcome).
			Set("durationMs", elapsed.Milliseconds()),
	})
	if err != nil {
		t.logger.Debug("Failed to enqueue telemetry event", zap.Error(err))
	}
}

// Close flushes pending events.
func (t *Telemetry) Close() {
	if t.client == nil {
		return
	}
	if err := t.client.Close(); err != nil {
		t.logger.Debug("Failed to close telemetry client", zap.Error(err))
	}
}

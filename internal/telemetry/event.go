package telemetry

import (
	"context"
	"time"
)

// Event types emitted by the HTTP layer and the auth service.
const (
	EventHTTPRequest = "http_request"
	EventAuth        = "auth"
)

// Event is a single telemetry record. Metadata is a JSON document whose shape depends on EventType.
type Event struct {
	EventType string    `json:"event_type"`
	Source    string    `json:"source"`
	UserID    string    `json:"user_id,omitempty"`
	Role      string    `json:"role,omitempty"`
	Metadata  []byte    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EventEmitter emits telemetry events (OTel logs, Kafka). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}

// Fanout emits each event to every non-nil emitter in order and returns the first error.
type Fanout []EventEmitter

func (f Fanout) Emit(ctx context.Context, event *Event) error {
	var first error
	for _, e := range f {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

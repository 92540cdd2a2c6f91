// Package audit defines the event every sensitive operation must emit and
// the sinks that record it. Emission is best-effort: a sink failure is
// logged by the caller but never fails the operation it describes.
package audit

import (
	"context"
	"log"
	"time"
)

// Event describes who did what to which target, and how it went.
type Event struct {
	ActorID      string         `json:"actor_id"`
	ActorSubject string         `json:"actor_subject,omitempty"`
	Action       string         `json:"action"`
	Target       string         `json:"target"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	At           time.Time      `json:"at"`
}

// Emitter records events. Implementations must be safe for concurrent use.
type Emitter interface {
	Emit(ctx context.Context, e Event) error
}

// LogEmitter writes events to a standard logger; the fallback sink when no
// database sink is wired, and the destination for sink failures themselves.
type LogEmitter struct {
	Logger *log.Logger
}

func (l *LogEmitter) Emit(_ context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	l.Logger.Printf("audit actor=%s subject=%q action=%s target=%s meta=%v",
		e.ActorID, e.ActorSubject, e.Action, e.Target, e.Metadata)
	return nil
}

// Discard drops every event; for tests.
type Discard struct{}

func (Discard) Emit(context.Context, Event) error { return nil }

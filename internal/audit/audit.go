// Package audit records session lifecycle and tenant anomaly events.
// Recording is fire-and-forget: a full buffer drops the event rather than
// blocking or failing the request that produced it.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// SentinelTenant is used for events that have no tenant (e.g. a login failure
// before any tenant is known).
const SentinelTenant = "_system"

// Event is one audit record.
type Event struct {
	// TenantID and UserID are string-rendered identifiers; empty TenantID is
	// normalized to SentinelTenant.
	TenantID string
	UserID   string
	// Action names what happened, e.g. "session.created", "session.invalidated".
	Action string
	// Resource names what it happened to, e.g. the session token's resource.
	Resource string
	Metadata string
	At       time.Time
}

// Sink delivers audit events. Emit failures must be handled by the sink or the
// dispatcher; they never propagate to the request path.
type Sink interface {
	Emit(ctx context.Context, e Event) error
}

// Recorder is the producer-side interface handed to services.
type Recorder interface {
	Record(ctx context.Context, e Event)
}

// LogSink writes audit events to the structured log.
type LogSink struct {
	Logger *slog.Logger
}

// Emit logs the event at INFO.
func (s LogSink) Emit(ctx context.Context, e Event) error {
	s.Logger.InfoContext(ctx, "audit event",
		"action", e.Action,
		"resource", e.Resource,
		"tenant_id", e.TenantID,
		"user_id", e.UserID,
		"metadata", e.Metadata,
		"at", e.At,
	)
	return nil
}

// NopRecorder discards events. Useful in tests.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Event) {}

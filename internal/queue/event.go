// Package queue carries audit events over RabbitMQ: the server publishes one
// event per successful mutation and the audit-consumer command appends them
// to an audit log.
package queue

import (
	"context"
	"time"
)

// AuditQueueName is the durable queue audit events are routed to.
const AuditQueueName = "journal.audit"

// Audit event types.
const (
	UserRegistered = "user.registered"
	UserLoggedIn   = "user.logged_in"
	UserLoggedOut  = "user.logged_out"
	ProfileUpdated = "profile.updated"
	EntryCreated   = "entry.created"
	EntryUpdated   = "entry.updated"
	EntryDeleted   = "entry.deleted"
	CourseCreated  = "course.created"
	CourseUpdated  = "course.updated"
	CourseDeleted  = "course.deleted"
)

// AuditEvent records who changed what.  It deliberately carries ids only,
// never entry contents or credentials.
type AuditEvent struct {
	Type       string    `json:"type"`
	UserID     uint64    `json:"user_id"`
	ResourceID uint64    `json:"resource_id,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type requestIDKey struct{}

// WithRequestID returns a context carrying the request id that published
// events are tagged with.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request id stored by WithRequestID.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

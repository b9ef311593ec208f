package core

import (
	"context"
	"sync"
	"time"

	"makerdesk/pkg/domain"
)

// Logger captures the leveled key-value logging surface threaded through the
// service. Implementations must be safe for concurrent use.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MetricsRecorder observes service operation outcomes.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan terminates a span, recording the operation error if any.
type TraceSpan interface {
	End(err error)
}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// Clock supplies the service timestamp source.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now returns the current time from the wrapped function.
func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// AuditStatus reports the outcome recorded for an audited operation.
type AuditStatus string

// Audit entry statuses.
const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry describes a single audited service operation.
type AuditEntry struct {
	Operation string
	Entity    EntityType
	EntityID  string
	Action    Action
	Status    AuditStatus
	Duration  time.Duration
	Timestamp time.Time
}

// AuditRecorder receives audit entries for mutating operations.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

// MemoryAuditRecorder retains audit entries in memory for inspection.
type MemoryAuditRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// NewMemoryAuditRecorder constructs an empty in-memory audit trail.
func NewMemoryAuditRecorder() *MemoryAuditRecorder {
	return &MemoryAuditRecorder{}
}

// Record appends an entry to the trail.
func (r *MemoryAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

// Entries returns a copy of the recorded trail.
func (r *MemoryAuditRecorder) Entries() []AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]AuditEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

type auditOperation struct {
	entity EntityType
	action Action
}

// auditOperations maps operation names to their audit metadata. Operations
// absent from the map are not audited.
var auditOperations = map[string]auditOperation{
	"create_request":     {entity: domain.EntityRequest, action: domain.ActionCreate},
	"update_request":     {entity: domain.EntityRequest, action: domain.ActionUpdate},
	"set_request_status": {entity: domain.EntityRequest, action: domain.ActionUpdate},
	"add_deliverable":    {entity: domain.EntityRequest, action: domain.ActionUpdate},
	"remove_deliverable": {entity: domain.EntityRequest, action: domain.ActionUpdate},
	"upload_deliverable": {entity: domain.EntityRequest, action: domain.ActionUpdate},
	"append_message":     {entity: domain.EntityRequest, action: domain.ActionUpdate},
	"append_note":        {entity: domain.EntityRequest, action: domain.ActionUpdate},
	"save_profile":       {entity: domain.EntityProfile, action: domain.ActionUpdate},
	"import_profile":     {entity: domain.EntityProfile, action: domain.ActionUpdate},
}

// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by makerdesk.
package domain

import (
	"errors"
	"time"
)

// ErrNotFound signals a lookup for a record that does not exist. Transaction
// helpers wrap it so callers can match with errors.Is.
var ErrNotFound = errors.New("not found")

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityRequest identifies a design request record.
	EntityRequest EntityType = "request"
	// EntityProfile identifies a designer profile record.
	EntityProfile EntityType = "profile"
)

// RequestStatus represents the canonical request workflow states.
type RequestStatus string

// Canonical request statuses. New and InProgress count as open work;
// InReview and RevisionNeeded count as review work; Delivered closes the
// request; Blocked is a side branch reachable from any active state.
const (
	StatusNew            RequestStatus = "new"
	StatusInProgress     RequestStatus = "in_progress"
	StatusInReview       RequestStatus = "in_review"
	StatusRevisionNeeded RequestStatus = "revision_needed"
	StatusApproved       RequestStatus = "approved"
	StatusDelivered      RequestStatus = "delivered"
	StatusBlocked        RequestStatus = "blocked"
)

// KnownStatuses enumerates every valid request status value.
func KnownStatuses() []RequestStatus {
	return []RequestStatus{
		StatusNew,
		StatusInProgress,
		StatusInReview,
		StatusRevisionNeeded,
		StatusApproved,
		StatusDelivered,
		StatusBlocked,
	}
}

// Priority ranks request urgency.
type Priority string

// Canonical priorities, ordered rush > high > normal for sorting.
const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityRush   Priority = "rush"
)

// Rank returns the sort rank of a priority; lower sorts first.
func (p Priority) Rank() int {
	switch p {
	case PriorityRush:
		return 0
	case PriorityHigh:
		return 1
	default:
		return 2
	}
}

// RequestType categorizes the kind of work a request asks for.
type RequestType string

// Canonical request categories.
const (
	TypeModel      RequestType = "model"
	TypePrototype  RequestType = "prototype"
	TypeProduction RequestType = "production"
	TypeArt        RequestType = "art_commission"
)

// DeliverableKind identifies a deliverable bucket.
type DeliverableKind string

// Deliverable buckets tracked per request.
const (
	DeliverableSTL    DeliverableKind = "stl"
	DeliverableRender DeliverableKind = "render"
	DeliverableNotes  DeliverableKind = "notes"
	DeliverableSource DeliverableKind = "source"
)

// DeliverableState describes whether a bucket holds any items.
type DeliverableState string

// Bucket states derived from item count.
const (
	DeliverableMissing DeliverableState = "missing"
	DeliverableAdded   DeliverableState = "added"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// ActivityKind classifies activity log entries.
type ActivityKind string

// Activity entry kinds recorded by mutating operations.
const (
	ActivityCreated     ActivityKind = "created"
	ActivityUpdated     ActivityKind = "updated"
	ActivityStatus      ActivityKind = "status"
	ActivityDeliverable ActivityKind = "deliverable"
	ActivityMessage     ActivityKind = "message"
	ActivityNote        ActivityKind = "note"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Request is the central entity: one design request flowing through intake,
// production, review, and delivery.
type Request struct {
	Base
	// Code is the human-facing display identifier, e.g. DR-2025-001.
	Code        string      `json:"code"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Type        RequestType `json:"type"`
	Tags        []string    `json:"tags"`

	Status   RequestStatus `json:"status"`
	Priority Priority      `json:"priority"`

	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`

	Budget        float64 `json:"budget"`
	RevisionCount int     `json:"revision_count"`
	MaxRevisions  int     `json:"max_revisions"`

	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`

	PrintabilityIssue bool    `json:"printability_issue"`
	MissingReference  bool    `json:"missing_reference"`
	ReviewNotes       *string `json:"review_notes,omitempty"`

	Deliverables Deliverables    `json:"deliverables"`
	Messages     []Message       `json:"messages"`
	Notes        []Note          `json:"notes"`
	ActivityLog  []ActivityEntry `json:"activity_log"`
}

// Deliverables groups the per-kind deliverable buckets owned by a request.
type Deliverables struct {
	STLFiles       []DeliverableItem `json:"stl_files"`
	RenderPreviews []DeliverableItem `json:"render_previews"`
	AssemblyNotes  []DeliverableItem `json:"assembly_notes"`
	SourceFiles    []DeliverableItem `json:"source_files"`
}

// Bucket returns the items stored under the given kind.
func (d Deliverables) Bucket(kind DeliverableKind) []DeliverableItem {
	switch kind {
	case DeliverableSTL:
		return d.STLFiles
	case DeliverableRender:
		return d.RenderPreviews
	case DeliverableNotes:
		return d.AssemblyNotes
	case DeliverableSource:
		return d.SourceFiles
	}
	return nil
}

// State derives the bucket state from its item count.
func (d Deliverables) State(kind DeliverableKind) DeliverableState {
	if len(d.Bucket(kind)) > 0 {
		return DeliverableAdded
	}
	return DeliverableMissing
}

// SetBucket replaces the items stored under the given kind.
func (d *Deliverables) SetBucket(kind DeliverableKind, items []DeliverableItem) {
	switch kind {
	case DeliverableSTL:
		d.STLFiles = items
	case DeliverableRender:
		d.RenderPreviews = items
	case DeliverableNotes:
		d.AssemblyNotes = items
	case DeliverableSource:
		d.SourceFiles = items
	}
}

// DeliverableItem records an uploaded deliverable. Items are owned by their
// parent request: created on upload, removed on delete, no independent
// lifecycle.
type DeliverableItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Kind        DeliverableKind `json:"kind"`
	SizeBytes   int64           `json:"size_bytes"`
	ContentType string          `json:"content_type,omitempty"`
	// BlobKey references the stored payload when bytes were retained.
	BlobKey    string    `json:"blob_key,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Message is an append-only collaboration record; never mutated after creation.
type Message struct {
	ID     string    `json:"id"`
	Author string    `json:"author"`
	Role   string    `json:"role"`
	Body   string    `json:"body"`
	SentAt time.Time `json:"sent_at"`
}

// Note is an append-only annotation, flagged internal or client-visible.
type Note struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	Internal  bool      `json:"internal"`
	CreatedAt time.Time `json:"created_at"`
}

// ActivityEntry is an append-only audit record describing one mutation.
// The activity log is kept newest-first.
type ActivityEntry struct {
	ID         string       `json:"id"`
	Kind       ActivityKind `json:"kind"`
	Message    string       `json:"message"`
	Actor      string       `json:"actor,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// CloneRequest returns a deep copy of the request, detaching all owned slices.
func CloneRequest(r Request) Request {
	cp := r
	cp.Tags = append([]string(nil), r.Tags...)
	cp.Deliverables = Deliverables{
		STLFiles:       append([]DeliverableItem(nil), r.Deliverables.STLFiles...),
		RenderPreviews: append([]DeliverableItem(nil), r.Deliverables.RenderPreviews...),
		AssemblyNotes:  append([]DeliverableItem(nil), r.Deliverables.AssemblyNotes...),
		SourceFiles:    append([]DeliverableItem(nil), r.Deliverables.SourceFiles...),
	}
	cp.Messages = append([]Message(nil), r.Messages...)
	cp.Notes = append([]Note(nil), r.Notes...)
	cp.ActivityLog = append([]ActivityEntry(nil), r.ActivityLog...)
	cp.SubmittedAt = cloneTime(r.SubmittedAt)
	cp.ApprovedAt = cloneTime(r.ApprovedAt)
	cp.CompletedAt = cloneTime(r.CompletedAt)
	cp.DueAt = cloneTime(r.DueAt)
	cp.ReviewNotes = cloneString(r.ReviewNotes)
	return cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before ChangePayload
	After  ChangePayload
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported operations captured in the audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Warnings returns the non-blocking violations.
func (r Result) Warnings() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityWarn {
			out = append(out, v)
		}
	}
	return out
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}

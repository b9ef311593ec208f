package core

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"makerdesk/internal/blob"
	"makerdesk/pkg/domain"
)

// Service orchestrates request lifecycle operations over a persistent store.
// All mutating methods run inside a store transaction so rule evaluation and
// commit remain atomic; observers (logger, metrics, tracer, audit) wrap every
// operation uniformly.
type Service struct {
	store       domain.PersistentStore
	logger      Logger
	clock       Clock
	metrics     MetricsRecorder
	tracer      Tracer
	audit       AuditRecorder
	blobs       blob.Store
	royaltyRate float64
	dueSoonDays int
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithLogger sets the structured logger.
func WithLogger(l Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the clock used for timestamps and dashboard math.
func WithClock(c Clock) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithMetricsRecorder sets the metrics sink for operation timings.
func WithMetricsRecorder(m MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer sets the tracer wrapping each operation in a span.
func WithTracer(t Tracer) ServiceOption {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithAuditRecorder sets the audit trail sink.
func WithAuditRecorder(a AuditRecorder) ServiceOption {
	return func(s *Service) {
		if a != nil {
			s.audit = a
		}
	}
}

// WithBlobStore attaches a blob backend for deliverable payloads.
func WithBlobStore(b blob.Store) ServiceOption {
	return func(s *Service) { s.blobs = b }
}

// WithRoyaltyRate overrides the royalty share applied to completed budgets.
func WithRoyaltyRate(rate float64) ServiceOption {
	return func(s *Service) {
		if rate > 0 {
			s.royaltyRate = rate
		}
	}
}

// WithDueSoonWindow overrides the due-soon KPI window in days.
func WithDueSoonWindow(days int) ServiceOption {
	return func(s *Service) {
		if days > 0 {
			s.dueSoonDays = days
		}
	}
}

// NewService wires a service over the given store. Unset observers default
// to no-ops.
func NewService(store domain.PersistentStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:       store,
		logger:      noopLogger{},
		clock:       systemClock{},
		metrics:     noopMetricsRecorder{},
		tracer:      noopTracer{},
		audit:       noopAuditRecorder{},
		royaltyRate: DefaultRoyaltyRate,
		dueSoonDays: DefaultDueSoonDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// instrument wraps a mutating operation with tracing, timing, metrics, and
// audit recording. fn returns the affected entity id alongside the rule
// result so the audit entry can reference it.
func (s *Service) instrument(ctx context.Context, operation string, fn func(ctx context.Context) (string, Result, error)) (Result, error) {
	ctx, span := s.tracer.Start(ctx, operation)
	start := time.Now()
	entityID, result, err := fn(ctx)
	duration := time.Since(start)
	span.End(err)
	s.metrics.Observe(ctx, operation, err == nil, duration)
	if err != nil {
		s.logger.Error("operation failed", "operation", operation, "error", err)
		s.recordAudit(ctx, operation, entityID, AuditStatusError, duration)
		return result, err
	}
	if warnings := result.Warnings(); len(warnings) > 0 {
		for _, v := range warnings {
			s.logger.Warn("rule warning", "operation", operation, "rule", v.Rule, "message", v.Message)
		}
	}
	s.recordAudit(ctx, operation, entityID, AuditStatusSuccess, duration)
	return result, nil
}

func (s *Service) recordAudit(ctx context.Context, operation, entityID string, status AuditStatus, duration time.Duration) {
	meta, ok := auditOperations[operation]
	if !ok {
		return
	}
	s.audit.Record(ctx, AuditEntry{
		Operation: operation,
		Entity:    meta.entity,
		EntityID:  entityID,
		Action:    meta.action,
		Status:    status,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	})
}

// CreateRequest registers a new design request. Blank status and priority
// are defaulted and a display code is assigned by the store.
func (s *Service) CreateRequest(ctx context.Context, req Request) (Request, error) {
	var created Request
	_, err := s.instrument(ctx, "create_request", func(ctx context.Context) (string, Result, error) {
		result, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			created, txErr = tx.CreateRequest(req)
			return txErr
		})
		return created.ID, result, err
	})
	if err != nil {
		return Request{}, err
	}
	s.logger.Info("request created", "id", created.ID, "code", created.Code)
	return created, nil
}

// UpdateRequest applies a mutation to an existing request.
func (s *Service) UpdateRequest(ctx context.Context, id string, mutator func(*Request) error) (Request, error) {
	var updated Request
	_, err := s.instrument(ctx, "update_request", func(ctx context.Context) (string, Result, error) {
		result, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			updated, txErr = tx.UpdateRequest(id, mutator)
			return txErr
		})
		return id, result, err
	})
	if err != nil {
		return Request{}, err
	}
	return updated, nil
}

// SetRequestStatus moves a request to the given status, subject to the
// transition and review gate rules.
func (s *Service) SetRequestStatus(ctx context.Context, id string, status RequestStatus) (Request, error) {
	var updated Request
	_, err := s.instrument(ctx, "set_request_status", func(ctx context.Context) (string, Result, error) {
		result, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			updated, txErr = tx.SetRequestStatus(id, status)
			return txErr
		})
		return id, result, err
	})
	if err != nil {
		return Request{}, err
	}
	s.logger.Info("status changed", "id", id, "status", string(status))
	return updated, nil
}

// AddDeliverable attaches a deliverable record to a request without storing
// payload bytes.
func (s *Service) AddDeliverable(ctx context.Context, requestID string, item DeliverableItem) (Request, error) {
	var updated Request
	_, err := s.instrument(ctx, "add_deliverable", func(ctx context.Context) (string, Result, error) {
		result, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			updated, txErr = tx.AddDeliverable(requestID, item)
			return txErr
		})
		return requestID, result, err
	})
	if err != nil {
		return Request{}, err
	}
	return updated, nil
}

// UploadDeliverable stores the payload in the blob backend and attaches the
// resulting deliverable record to the request. Requires a configured blob
// store.
func (s *Service) UploadDeliverable(ctx context.Context, requestID string, item DeliverableItem, payload io.Reader) (Request, error) {
	if s.blobs == nil {
		return Request{}, fmt.Errorf("no blob store configured")
	}
	var updated Request
	_, err := s.instrument(ctx, "upload_deliverable", func(ctx context.Context) (string, Result, error) {
		key := path.Join("requests", requestID, string(item.Kind), item.Name)
		info, putErr := s.blobs.Put(ctx, key, payload, blob.PutOptions{ContentType: item.ContentType})
		if putErr != nil {
			return requestID, Result{}, fmt.Errorf("store deliverable payload: %w", putErr)
		}
		item.BlobKey = info.Key
		item.SizeBytes = info.Size
		result, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			updated, txErr = tx.AddDeliverable(requestID, item)
			return txErr
		})
		if err != nil {
			if _, delErr := s.blobs.Delete(ctx, info.Key); delErr != nil {
				s.logger.Warn("orphaned blob cleanup failed", "key", info.Key, "error", delErr)
			}
		}
		return requestID, result, err
	})
	if err != nil {
		return Request{}, err
	}
	return updated, nil
}

// RemoveDeliverable detaches a deliverable from a request and, when a payload
// was stored, deletes the backing blob.
func (s *Service) RemoveDeliverable(ctx context.Context, requestID string, kind DeliverableKind, itemID string) (Request, error) {
	var blobKey string
	if req, ok := s.store.GetRequest(requestID); ok {
		for _, item := range req.Deliverables.Bucket(kind) {
			if item.ID == itemID {
				blobKey = item.BlobKey
				break
			}
		}
	}
	var updated Request
	_, err := s.instrument(ctx, "remove_deliverable", func(ctx context.Context) (string, Result, error) {
		result, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			updated, txErr = tx.RemoveDeliverable(requestID, kind, itemID)
			return txErr
		})
		return requestID, result, err
	})
	if err != nil {
		return Request{}, err
	}
	if blobKey != "" && s.blobs != nil {
		if _, delErr := s.blobs.Delete(ctx, blobKey); delErr != nil {
			s.logger.Warn("blob delete failed", "key", blobKey, "error", delErr)
		}
	}
	return updated, nil
}

// DeliverableURL returns a pre-signed download URL for a stored deliverable
// payload.
func (s *Service) DeliverableURL(ctx context.Context, requestID string, kind DeliverableKind, itemID string) (string, error) {
	if s.blobs == nil {
		return "", fmt.Errorf("no blob store configured")
	}
	req, ok := s.store.GetRequest(requestID)
	if !ok {
		return "", fmt.Errorf("request %s not found", requestID)
	}
	for _, item := range req.Deliverables.Bucket(kind) {
		if item.ID == itemID {
			if item.BlobKey == "" {
				return "", fmt.Errorf("deliverable %s has no stored payload", itemID)
			}
			return s.blobs.PresignURL(ctx, item.BlobKey, blob.SignedURLOptions{Method: "GET"})
		}
	}
	return "", fmt.Errorf("deliverable %s not found on request %s", itemID, requestID)
}

// AppendMessage adds a collaboration message to a request.
func (s *Service) AppendMessage(ctx context.Context, requestID string, msg Message) (Request, error) {
	var updated Request
	_, err := s.instrument(ctx, "append_message", func(ctx context.Context) (string, Result, error) {
		result, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			updated, txErr = tx.AppendMessage(requestID, msg)
			return txErr
		})
		return requestID, result, err
	})
	if err != nil {
		return Request{}, err
	}
	return updated, nil
}

// AppendNote adds an annotation to a request.
func (s *Service) AppendNote(ctx context.Context, requestID string, note Note) (Request, error) {
	var updated Request
	_, err := s.instrument(ctx, "append_note", func(ctx context.Context) (string, Result, error) {
		result, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			updated, txErr = tx.AppendNote(requestID, note)
			return txErr
		})
		return requestID, result, err
	})
	if err != nil {
		return Request{}, err
	}
	return updated, nil
}

// SaveDesignerProfile persists the designer profile.
func (s *Service) SaveDesignerProfile(ctx context.Context, profile DesignerProfile) (DesignerProfile, error) {
	var saved DesignerProfile
	_, err := s.instrument(ctx, "save_profile", func(ctx context.Context) (string, Result, error) {
		result, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			saved, txErr = tx.SaveProfile(profile)
			return txErr
		})
		return saved.ID, result, err
	})
	if err != nil {
		return DesignerProfile{}, err
	}
	return saved, nil
}

// ImportProfile decodes a serialized profile and saves it. Malformed input
// falls back to the default profile rather than failing the import.
func (s *Service) ImportProfile(ctx context.Context, id string, raw []byte) (DesignerProfile, error) {
	profile, err := domain.DecodeDesignerProfile(raw)
	if err != nil {
		s.logger.Warn("profile decode failed, using defaults", "id", id, "error", err)
	}
	profile.ID = id
	var saved DesignerProfile
	_, err = s.instrument(ctx, "import_profile", func(ctx context.Context) (string, Result, error) {
		result, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			saved, txErr = tx.SaveProfile(profile)
			return txErr
		})
		return id, result, err
	})
	if err != nil {
		return DesignerProfile{}, err
	}
	return saved, nil
}

// ExportProfile serializes the stored profile, or the defaults when the
// profile does not exist.
func (s *Service) ExportProfile(_ context.Context, id string) ([]byte, error) {
	profile, ok := s.store.GetProfile(id)
	if !ok {
		profile = domain.DefaultDesignerProfile()
		profile.ID = id
	}
	return domain.EncodeDesignerProfile(profile)
}

// GetRequest fetches a request snapshot by id.
func (s *Service) GetRequest(_ context.Context, id string) (Request, bool) {
	return s.store.GetRequest(id)
}

// ListRequests returns all request snapshots, optionally filtered.
func (s *Service) ListRequests(_ context.Context, filter RequestFilter) []Request {
	return FilterRequests(s.store.ListRequests(), filter)
}

// ListRequestsByDueDate returns the filtered snapshot ordered for the
// dashboard queue.
func (s *Service) ListRequestsByDueDate(ctx context.Context, filter RequestFilter) []Request {
	return SortByDueDate(s.ListRequests(ctx, filter))
}

// GetProfile fetches a designer profile snapshot by id.
func (s *Service) GetProfile(_ context.Context, id string) (DesignerProfile, bool) {
	return s.store.GetProfile(id)
}

// ReviewReadiness reports whether the request passes the review gate and
// which deliverable kinds are still missing.
func (s *Service) ReviewReadiness(_ context.Context, id string) (GateResult, error) {
	req, ok := s.store.GetRequest(id)
	if !ok {
		return GateResult{}, fmt.Errorf("request %s not found", id)
	}
	return CanSubmitForReview(req), nil
}

// KPIs computes the dashboard headline counts from the current snapshot.
func (s *Service) KPIs(_ context.Context) KPIs {
	return ComputeKPIs(s.store.ListRequests(), s.clock.Now(), s.dueSoonDays)
}

// Alerts computes the attention buckets from the current snapshot.
func (s *Service) Alerts(_ context.Context) Alerts {
	return ComputeAlerts(s.store.ListRequests(), s.clock.Now())
}

// Royalties computes the trailing 30 day royalty total from the current
// snapshot.
func (s *Service) Royalties(_ context.Context) float64 {
	return ComputeRoyalties(s.store.ListRequests(), s.clock.Now(), s.royaltyRate)
}

// Activity returns the merged newest-first activity feed, limited to limit
// entries (0 means no limit).
func (s *Service) Activity(_ context.Context, limit int) []ActivityEntry {
	return ActivityFeed(s.store.ListRequests(), limit)
}

// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"makerdesk/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain
// persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Request aliases domain.Request for in-memory persistence operations.
	Request = domain.Request
	// DeliverableItem aliases domain.DeliverableItem.
	DeliverableItem = domain.DeliverableItem
	// DesignerProfile aliases domain.DesignerProfile.
	DesignerProfile = domain.DesignerProfile
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	requests map[string]Request
	profiles map[string]DesignerProfile
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Requests map[string]Request         `json:"requests"`
	Profiles map[string]DesignerProfile `json:"profiles"`
}

func newMemoryState() memoryState {
	return memoryState{
		requests: make(map[string]Request),
		profiles: make(map[string]DesignerProfile),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.requests {
		cloned.requests[k] = domain.CloneRequest(v)
	}
	for k, v := range s.profiles {
		cloned.profiles[k] = domain.CloneProfile(v)
	}
	return cloned
}

// Store provides an in-memory transactional store for the request domain.
// All reads return clones; committed state is only replaced when a
// transaction's rule evaluation passes.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// RulesEngine exposes the engine evaluated at commit time.
func (s *Store) RulesEngine() *RulesEngine {
	return s.engine
}

// NowFunc exposes the store clock.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// OverrideNow swaps the store clock; intended for tests.
func (s *Store) OverrideNow(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

func newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// nextCode synthesizes the next display code for the given year, scanning
// committed and pending requests for the highest existing sequence.
func nextCode(state memoryState, now time.Time) string {
	prefix := fmt.Sprintf("DR-%d-", now.Year())
	max := 0
	for _, r := range state.requests {
		if !strings.HasPrefix(r.Code, prefix) {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(r.Code, prefix)); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s%03d", prefix, max+1)
}

// transaction is a mutation set applied against a cloned state.
type transaction struct {
	state   memoryState
	changes []Change
	now     time.Time
}

var _ Transaction = (*transaction)(nil)

type view struct {
	state *memoryState
}

var _ TransactionView = view{}

// ListRequests returns all requests within the snapshot.
func (v view) ListRequests() []Request {
	out := make([]Request, 0, len(v.state.requests))
	for _, r := range v.state.requests {
		out = append(out, domain.CloneRequest(r))
	}
	return out
}

// FindRequest retrieves a request by ID from the snapshot.
func (v view) FindRequest(id string) (Request, bool) {
	r, ok := v.state.requests[id]
	if !ok {
		return Request{}, false
	}
	return domain.CloneRequest(r), true
}

// ListProfiles returns all designer profiles in the snapshot.
func (v view) ListProfiles() []DesignerProfile {
	out := make([]DesignerProfile, 0, len(v.state.profiles))
	for _, p := range v.state.profiles {
		out = append(out, domain.CloneProfile(p))
	}
	return out
}

// RunInTransaction executes fn within a transactional copy of the store state.
// Registered rules are evaluated against the resulting state plus the change
// set; blocking violations abort the commit.
func (s *Store) RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, view{state: &tx.state}, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(view{state: &snapshot})
}

func (tx *transaction) recordChange(action domain.Action, before, after *Request) error {
	change := Change{Entity: domain.EntityRequest, Action: action}
	if before != nil {
		payload, err := domain.NewChangePayloadFromValue(*before)
		if err != nil {
			return err
		}
		change.Before = payload
	}
	if after != nil {
		payload, err := domain.NewChangePayloadFromValue(*after)
		if err != nil {
			return err
		}
		change.After = payload
	}
	tx.changes = append(tx.changes, change)
	return nil
}

// prependActivity inserts an entry at the head of the activity log; newest first.
func prependActivity(r *Request, kind domain.ActivityKind, message string, now time.Time) {
	entry := domain.ActivityEntry{
		ID:         newID(),
		Kind:       kind,
		Message:    message,
		OccurredAt: now,
	}
	r.ActivityLog = append([]domain.ActivityEntry{entry}, r.ActivityLog...)
}

// CreateRequest stores a new request within the transaction. Missing identity
// fields are synthesized; status and priority default to new/normal.
func (tx *transaction) CreateRequest(r Request) (Request, error) {
	if r.ID == "" {
		r.ID = newID()
	}
	if _, exists := tx.state.requests[r.ID]; exists {
		return Request{}, fmt.Errorf("request %q already exists", r.ID)
	}
	if r.Code == "" {
		r.Code = nextCode(tx.state, tx.now)
	}
	if r.Status == "" {
		r.Status = domain.StatusNew
	}
	if r.Priority == "" {
		r.Priority = domain.PriorityNormal
	}
	r.CreatedAt = tx.now
	r.UpdatedAt = tx.now
	prependActivity(&r, domain.ActivityCreated, "Request created", tx.now)
	tx.state.requests[r.ID] = domain.CloneRequest(r)
	if err := tx.recordChange(domain.ActionCreate, nil, &r); err != nil {
		return Request{}, err
	}
	return domain.CloneRequest(r), nil
}

// UpdateRequest mutates a request using the provided mutator function.
// UpdatedAt is refreshed centrally here; callers never touch it.
func (tx *transaction) UpdateRequest(id string, mutator func(*Request) error) (Request, error) {
	return tx.update(id, domain.ActivityUpdated, "Request updated", mutator)
}

func (tx *transaction) update(id string, kind domain.ActivityKind, activity string, mutator func(*Request) error) (Request, error) {
	current, ok := tx.state.requests[id]
	if !ok {
		return Request{}, fmt.Errorf("request %q: %w", id, domain.ErrNotFound)
	}
	before := domain.CloneRequest(current)
	working := domain.CloneRequest(current)
	if err := mutator(&working); err != nil {
		return Request{}, err
	}
	working.ID = id
	working.UpdatedAt = tx.now
	prependActivity(&working, kind, activity, tx.now)
	tx.state.requests[id] = domain.CloneRequest(working)
	if err := tx.recordChange(domain.ActionUpdate, &before, &working); err != nil {
		return Request{}, err
	}
	return domain.CloneRequest(working), nil
}

// SetRequestStatus moves a request to the given status, stamping the
// milestone timestamps the first time each stage is reached.
func (tx *transaction) SetRequestStatus(id string, status domain.RequestStatus) (Request, error) {
	activity := fmt.Sprintf("Status changed to %s", status)
	return tx.update(id, domain.ActivityStatus, activity, func(r *Request) error {
		r.Status = status
		switch status {
		case domain.StatusInReview:
			if r.SubmittedAt == nil {
				t := tx.now
				r.SubmittedAt = &t
			}
		case domain.StatusApproved:
			if r.ApprovedAt == nil {
				t := tx.now
				r.ApprovedAt = &t
			}
		case domain.StatusDelivered:
			if r.CompletedAt == nil {
				t := tx.now
				r.CompletedAt = &t
			}
		}
		return nil
	})
}

func deliverableLabel(kind domain.DeliverableKind) string {
	switch kind {
	case domain.DeliverableSTL:
		return "STL file"
	case domain.DeliverableRender:
		return "render preview"
	case domain.DeliverableNotes:
		return "assembly notes"
	case domain.DeliverableSource:
		return "source file"
	}
	return "deliverable"
}

// AddDeliverable appends an item to the bucket matching its kind.
func (tx *transaction) AddDeliverable(requestID string, item DeliverableItem) (Request, error) {
	switch item.Kind {
	case domain.DeliverableSTL, domain.DeliverableRender, domain.DeliverableNotes, domain.DeliverableSource:
	default:
		return Request{}, fmt.Errorf("unknown deliverable kind %q", item.Kind)
	}
	if item.ID == "" {
		item.ID = newID()
	}
	item.UploadedAt = tx.now
	activity := fmt.Sprintf("Uploaded %s: %s", deliverableLabel(item.Kind), item.Name)
	return tx.update(requestID, domain.ActivityDeliverable, activity, func(r *Request) error {
		r.Deliverables.SetBucket(item.Kind, append(r.Deliverables.Bucket(item.Kind), item))
		return nil
	})
}

// RemoveDeliverable deletes an item by id from the given bucket.
func (tx *transaction) RemoveDeliverable(requestID string, kind domain.DeliverableKind, itemID string) (Request, error) {
	current, ok := tx.state.requests[requestID]
	if !ok {
		return Request{}, fmt.Errorf("request %q: %w", requestID, domain.ErrNotFound)
	}
	var removed string
	for _, it := range current.Deliverables.Bucket(kind) {
		if it.ID == itemID {
			removed = it.Name
			break
		}
	}
	if removed == "" {
		return Request{}, fmt.Errorf("deliverable %q in %s bucket of request %q: %w", itemID, kind, requestID, domain.ErrNotFound)
	}
	activity := fmt.Sprintf("Removed %s: %s", deliverableLabel(kind), removed)
	return tx.update(requestID, domain.ActivityDeliverable, activity, func(r *Request) error {
		bucket := r.Deliverables.Bucket(kind)
		filtered := make([]DeliverableItem, 0, len(bucket))
		for _, it := range bucket {
			if it.ID != itemID {
				filtered = append(filtered, it)
			}
		}
		r.Deliverables.SetBucket(kind, filtered)
		return nil
	})
}

// AppendMessage appends a collaboration message.
func (tx *transaction) AppendMessage(requestID string, msg domain.Message) (Request, error) {
	if msg.ID == "" {
		msg.ID = newID()
	}
	msg.SentAt = tx.now
	activity := fmt.Sprintf("Message from %s", msg.Author)
	return tx.update(requestID, domain.ActivityMessage, activity, func(r *Request) error {
		r.Messages = append(r.Messages, msg)
		return nil
	})
}

// AppendNote appends an internal or client-visible note.
func (tx *transaction) AppendNote(requestID string, note domain.Note) (Request, error) {
	if note.ID == "" {
		note.ID = newID()
	}
	note.CreatedAt = tx.now
	activity := fmt.Sprintf("Note added by %s", note.Author)
	return tx.update(requestID, domain.ActivityNote, activity, func(r *Request) error {
		r.Notes = append(r.Notes, note)
		return nil
	})
}

// SaveProfile upserts the designer profile document.
func (tx *transaction) SaveProfile(p DesignerProfile) (DesignerProfile, error) {
	if p.ID == "" {
		p.ID = newID()
	}
	if existing, ok := tx.state.profiles[p.ID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = tx.now
	}
	p.UpdatedAt = tx.now
	tx.state.profiles[p.ID] = domain.CloneProfile(p)
	return domain.CloneProfile(p), nil
}

// FindRequest retrieves a request by ID from the transactional state.
func (tx *transaction) FindRequest(id string) (Request, bool) {
	r, ok := tx.state.requests[id]
	if !ok {
		return Request{}, false
	}
	return domain.CloneRequest(r), true
}

// Read helpers ---------------------------------------------------------------

// GetRequest retrieves a request by ID from committed state.
func (s *Store) GetRequest(id string) (Request, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.state.requests[id]
	if !ok {
		return Request{}, false
	}
	return domain.CloneRequest(r), true
}

// ListRequests returns all requests from committed state.
func (s *Store) ListRequests() []Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Request, 0, len(s.state.requests))
	for _, r := range s.state.requests {
		out = append(out, domain.CloneRequest(r))
	}
	return out
}

// GetProfile retrieves a designer profile by ID.
func (s *Store) GetProfile(id string) (DesignerProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.profiles[id]
	if !ok {
		return DesignerProfile{}, false
	}
	return domain.CloneProfile(p), true
}

// ListProfiles returns all designer profiles.
func (s *Store) ListProfiles() []DesignerProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]DesignerProfile, 0, len(s.state.profiles))
	for _, p := range s.state.profiles {
		out = append(out, domain.CloneProfile(p))
	}
	return out
}

// ExportState clones committed state into a serializable snapshot.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cloned := s.state.clone()
	return Snapshot{Requests: cloned.requests, Profiles: cloned.profiles}
}

// ImportState replaces committed state with the snapshot contents.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := newMemoryState()
	for k, v := range snapshot.Requests {
		state.requests[k] = domain.CloneRequest(v)
	}
	for k, v := range snapshot.Profiles {
		state.profiles[k] = domain.CloneProfile(v)
	}
	s.state = state
}

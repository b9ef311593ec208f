package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Requests are never deleted; delivery
// closes them in place.
type Transaction interface {
	CreateRequest(Request) (Request, error)
	UpdateRequest(id string, mutator func(*Request) error) (Request, error)
	SetRequestStatus(id string, status RequestStatus) (Request, error)
	AddDeliverable(requestID string, item DeliverableItem) (Request, error)
	RemoveDeliverable(requestID string, kind DeliverableKind, itemID string) (Request, error)
	AppendMessage(requestID string, msg Message) (Request, error)
	AppendNote(requestID string, note Note) (Request, error)
	SaveProfile(DesignerProfile) (DesignerProfile, error)
	FindRequest(id string) (Request, bool)
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView interface {
	ListRequests() []Request
	FindRequest(id string) (Request, bool)
	ListProfiles() []DesignerProfile
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetRequest(id string) (Request, bool)
	ListRequests() []Request
	GetProfile(id string) (DesignerProfile, bool)
	ListProfiles() []DesignerProfile
}

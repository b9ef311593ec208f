package core

import "makerdesk/pkg/domain"

type (
	EntityType         = domain.EntityType
	RequestStatus      = domain.RequestStatus
	Priority           = domain.Priority
	RequestType        = domain.RequestType
	DeliverableKind    = domain.DeliverableKind
	Severity           = domain.Severity
	Base               = domain.Base
	Request            = domain.Request
	DeliverableItem    = domain.DeliverableItem
	Message            = domain.Message
	Note               = domain.Note
	ActivityEntry      = domain.ActivityEntry
	DesignerProfile    = domain.DesignerProfile
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
)

const (
	EntityRequest = domain.EntityRequest
	EntityProfile = domain.EntityProfile
)

const (
	StatusNew            = domain.StatusNew
	StatusInProgress     = domain.StatusInProgress
	StatusInReview       = domain.StatusInReview
	StatusRevisionNeeded = domain.StatusRevisionNeeded
	StatusApproved       = domain.StatusApproved
	StatusDelivered      = domain.StatusDelivered
	StatusBlocked        = domain.StatusBlocked
)

const (
	PriorityNormal = domain.PriorityNormal
	PriorityHigh   = domain.PriorityHigh
	PriorityRush   = domain.PriorityRush
)

const (
	DeliverableSTL    = domain.DeliverableSTL
	DeliverableRender = domain.DeliverableRender
	DeliverableNotes  = domain.DeliverableNotes
	DeliverableSource = domain.DeliverableSource
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

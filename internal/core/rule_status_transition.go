package core

import (
	"context"
	"fmt"

	"makerdesk/pkg/domain"
)

// NewStatusTransitionRule returns the in-transaction rule validating request
// status transitions against the canonical workflow table.
func NewStatusTransitionRule() domain.Rule {
	return statusTransitionRule{}
}

type statusTransitionRule struct{}

// forwardTransitions enumerates the expected workflow edges. Edges outside the
// table are surfaced as log-severity advisories; delivery from anywhere except
// approval or review is blocked outright.
var forwardTransitions = map[domain.RequestStatus][]domain.RequestStatus{
	domain.StatusNew:            {domain.StatusInProgress, domain.StatusBlocked},
	domain.StatusInProgress:     {domain.StatusInReview, domain.StatusBlocked},
	domain.StatusInReview:       {domain.StatusApproved, domain.StatusRevisionNeeded, domain.StatusDelivered},
	domain.StatusRevisionNeeded: {domain.StatusInProgress, domain.StatusInReview},
	domain.StatusApproved:       {domain.StatusDelivered},
	domain.StatusBlocked:        {domain.StatusNew, domain.StatusInProgress},
	domain.StatusDelivered:      {},
}

var knownStatuses = func() map[domain.RequestStatus]struct{} {
	set := make(map[domain.RequestStatus]struct{})
	for _, s := range domain.KnownStatuses() {
		set[s] = struct{}{}
	}
	return set
}()

func (statusTransitionRule) Name() string { return "status_transition" }

func (statusTransitionRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityRequest {
			continue
		}
		after, ok := domain.DecodePayload[domain.Request](change.After)
		if !ok {
			continue
		}
		if _, known := knownStatuses[after.Status]; !known {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "status_transition",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("request %s has unknown status %q", after.Code, after.Status),
				Entity:   domain.EntityRequest,
				EntityID: after.ID,
			})
			continue
		}
		before, ok := domain.DecodePayload[domain.Request](change.Before)
		if !ok || before.Status == after.Status {
			continue
		}
		if after.Status == domain.StatusDelivered &&
			before.Status != domain.StatusApproved && before.Status != domain.StatusInReview {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "status_transition",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("request %s cannot be delivered from %s; approval or review required", after.Code, before.Status),
				Entity:   domain.EntityRequest,
				EntityID: after.ID,
			})
			continue
		}
		if !isForwardEdge(before.Status, after.Status) {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "status_transition",
				Severity: domain.SeverityLog,
				Message:  fmt.Sprintf("request %s took unusual transition %s -> %s", after.Code, before.Status, after.Status),
				Entity:   domain.EntityRequest,
				EntityID: after.ID,
			})
		}
	}
	return res, nil
}

func isForwardEdge(from, to domain.RequestStatus) bool {
	for _, next := range forwardTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

package core

import (
	"context"
	"fmt"
	"strings"

	"makerdesk/pkg/domain"
)

// NewReviewGateRule returns the in-transaction rule enforcing the deliverables
// gate: a request may only enter review once the required deliverables exist.
func NewReviewGateRule() domain.Rule {
	return reviewGateRule{}
}

type reviewGateRule struct{}

func (reviewGateRule) Name() string { return "review_gate" }

func (reviewGateRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityRequest {
			continue
		}
		after, ok := domain.DecodePayload[domain.Request](change.After)
		if !ok || after.Status != domain.StatusInReview {
			continue
		}
		if before, ok := domain.DecodePayload[domain.Request](change.Before); ok && before.Status == domain.StatusInReview {
			continue
		}
		gate := CanSubmitForReview(after)
		if gate.Valid {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "review_gate",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("request %s cannot enter review: missing %s", after.Code, strings.Join(gate.Missing, ", ")),
			Entity:   domain.EntityRequest,
			EntityID: after.ID,
		})
	}
	return res, nil
}

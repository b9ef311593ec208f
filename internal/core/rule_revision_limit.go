package core

import (
	"context"
	"fmt"

	"makerdesk/pkg/domain"
)

// NewRevisionLimitRule returns the in-transaction rule surfacing requests whose
// revision count has exceeded the agreed maximum. The limit is advisory: the
// violation warns but never blocks the commit.
func NewRevisionLimitRule() domain.Rule {
	return revisionLimitRule{}
}

type revisionLimitRule struct{}

func (revisionLimitRule) Name() string { return "revision_limit" }

func (revisionLimitRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityRequest {
			continue
		}
		after, ok := domain.DecodePayload[domain.Request](change.After)
		if !ok || after.MaxRevisions <= 0 || after.RevisionCount <= after.MaxRevisions {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "revision_limit",
			Severity: domain.SeverityWarn,
			Message:  fmt.Sprintf("request %s exceeded revision limit: %d of %d used", after.Code, after.RevisionCount, after.MaxRevisions),
			Entity:   domain.EntityRequest,
			EntityID: after.ID,
		})
	}
	return res, nil
}

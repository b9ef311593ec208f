package core

import (
	"context"
	"strings"
	"testing"

	"makerdesk/pkg/domain"
)

func mustChangePayload(t *testing.T, value any) domain.ChangePayload {
	t.Helper()
	payload, err := domain.NewChangePayloadFromValue(value)
	if err != nil {
		t.Fatalf("encode change payload: %v", err)
	}
	return payload
}

func requestChange(t *testing.T, before, after domain.Request) domain.Change {
	t.Helper()
	return domain.Change{
		Entity: domain.EntityRequest,
		Action: domain.ActionUpdate,
		Before: mustChangePayload(t, before),
		After:  mustChangePayload(t, after),
	}
}

func TestCanSubmitForReviewMissingEverything(t *testing.T) {
	res := CanSubmitForReview(domain.Request{})
	if res.Valid {
		t.Fatalf("expected gate to fail with no deliverables")
	}
	if len(res.Missing) != 2 {
		t.Fatalf("expected 2 missing entries, got %v", res.Missing)
	}
	if res.Missing[0] != "STL files" {
		t.Fatalf("unexpected first missing entry: %q", res.Missing[0])
	}
	if res.Missing[1] != "at least 1 render preview" {
		t.Fatalf("unexpected second missing entry: %q", res.Missing[1])
	}
}

func TestCanSubmitForReviewPartial(t *testing.T) {
	req := domain.Request{}
	req.Deliverables.STLFiles = []domain.DeliverableItem{{ID: "d1", Name: "part.stl", Kind: domain.DeliverableSTL}}

	res := CanSubmitForReview(req)
	if res.Valid {
		t.Fatalf("expected gate to fail without render preview")
	}
	if len(res.Missing) != 1 || res.Missing[0] != "at least 1 render preview" {
		t.Fatalf("unexpected missing list: %v", res.Missing)
	}
}

func TestCanSubmitForReviewSatisfied(t *testing.T) {
	req := domain.Request{}
	req.Deliverables.STLFiles = []domain.DeliverableItem{{ID: "d1", Name: "part.stl", Kind: domain.DeliverableSTL}}
	req.Deliverables.RenderPreviews = []domain.DeliverableItem{{ID: "d2", Name: "render.png", Kind: domain.DeliverableRender}}

	res := CanSubmitForReview(req)
	if !res.Valid {
		t.Fatalf("expected gate to pass, missing %v", res.Missing)
	}
	if len(res.Missing) != 0 {
		t.Fatalf("expected empty missing list, got %v", res.Missing)
	}
}

func TestReviewGateRuleBlocksEmptyReviewEntry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(NewRulesEngine())
	rule := NewReviewGateRule()

	before := domain.Request{Base: domain.Base{ID: "r1"}, Code: "DR-2026-001", Status: domain.StatusInProgress}
	after := before
	after.Status = domain.StatusInReview

	_ = store.View(ctx, func(v domain.TransactionView) error {
		res, err := rule.Evaluate(ctx, v, []domain.Change{requestChange(t, before, after)})
		if err != nil {
			t.Fatalf("evaluate review gate: %v", err)
		}
		if !res.HasBlocking() {
			t.Fatalf("expected blocking violation for review entry without deliverables")
		}
		msg := res.Violations[0].Message
		if !strings.Contains(msg, "STL files, at least 1 render preview") {
			t.Fatalf("unexpected violation message: %q", msg)
		}
		return nil
	})
}

func TestReviewGateRuleIgnoresRequestsAlreadyInReview(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(NewRulesEngine())
	rule := NewReviewGateRule()

	before := domain.Request{Base: domain.Base{ID: "r1"}, Status: domain.StatusInReview}
	after := before
	after.Title = "renamed"

	_ = store.View(ctx, func(v domain.TransactionView) error {
		res, err := rule.Evaluate(ctx, v, []domain.Change{requestChange(t, before, after)})
		if err != nil {
			t.Fatalf("evaluate review gate: %v", err)
		}
		if len(res.Violations) != 0 {
			t.Fatalf("expected no violations for edits within review, got %v", res.Violations)
		}
		return nil
	})
}

func TestReviewGateRuleAllowsGatedEntry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(NewRulesEngine())
	rule := NewReviewGateRule()

	before := domain.Request{Base: domain.Base{ID: "r1"}, Status: domain.StatusInProgress}
	after := before
	after.Status = domain.StatusInReview
	after.Deliverables.STLFiles = []domain.DeliverableItem{{ID: "d1", Kind: domain.DeliverableSTL, Name: "part.stl"}}
	after.Deliverables.RenderPreviews = []domain.DeliverableItem{{ID: "d2", Kind: domain.DeliverableRender, Name: "render.png"}}

	_ = store.View(ctx, func(v domain.TransactionView) error {
		res, err := rule.Evaluate(ctx, v, []domain.Change{requestChange(t, before, after)})
		if err != nil {
			t.Fatalf("evaluate review gate: %v", err)
		}
		if len(res.Violations) != 0 {
			t.Fatalf("expected gated review entry to pass, got %v", res.Violations)
		}
		return nil
	})
}

func TestStatusTransitionBlocksPrematureDelivery(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(NewRulesEngine())
	rule := NewStatusTransitionRule()

	before := domain.Request{Base: domain.Base{ID: "r1"}, Code: "DR-2026-001", Status: domain.StatusInProgress}
	after := before
	after.Status = domain.StatusDelivered

	_ = store.View(ctx, func(v domain.TransactionView) error {
		res, err := rule.Evaluate(ctx, v, []domain.Change{requestChange(t, before, after)})
		if err != nil {
			t.Fatalf("evaluate transition rule: %v", err)
		}
		if !res.HasBlocking() {
			t.Fatalf("expected block when delivering from in_progress")
		}
		if !strings.Contains(res.Violations[0].Message, "approval or review required") {
			t.Fatalf("unexpected message: %q", res.Violations[0].Message)
		}
		return nil
	})
}

func TestStatusTransitionAllowsDeliveryFromApprovedAndReview(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(NewRulesEngine())
	rule := NewStatusTransitionRule()

	for _, from := range []domain.RequestStatus{domain.StatusApproved, domain.StatusInReview} {
		before := domain.Request{Base: domain.Base{ID: "r1"}, Status: from}
		after := before
		after.Status = domain.StatusDelivered

		_ = store.View(ctx, func(v domain.TransactionView) error {
			res, err := rule.Evaluate(ctx, v, []domain.Change{requestChange(t, before, after)})
			if err != nil {
				t.Fatalf("evaluate transition rule: %v", err)
			}
			if res.HasBlocking() {
				t.Fatalf("delivery from %s should not block: %v", from, res.Violations)
			}
			return nil
		})
	}
}

func TestStatusTransitionBlocksUnknownStatus(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(NewRulesEngine())
	rule := NewStatusTransitionRule()

	after := domain.Request{Base: domain.Base{ID: "r1"}, Code: "DR-2026-001", Status: domain.RequestStatus("warp")}

	_ = store.View(ctx, func(v domain.TransactionView) error {
		res, err := rule.Evaluate(ctx, v, []domain.Change{{
			Entity: domain.EntityRequest,
			After:  mustChangePayload(t, after),
		}})
		if err != nil {
			t.Fatalf("evaluate transition rule: %v", err)
		}
		if !res.HasBlocking() {
			t.Fatalf("expected block for unknown status")
		}
		return nil
	})
}

func TestStatusTransitionLogsUnusualEdge(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(NewRulesEngine())
	rule := NewStatusTransitionRule()

	before := domain.Request{Base: domain.Base{ID: "r1"}, Status: domain.StatusNew}
	after := before
	after.Status = domain.StatusApproved

	_ = store.View(ctx, func(v domain.TransactionView) error {
		res, err := rule.Evaluate(ctx, v, []domain.Change{requestChange(t, before, after)})
		if err != nil {
			t.Fatalf("evaluate transition rule: %v", err)
		}
		if res.HasBlocking() {
			t.Fatalf("unusual edge should not block: %v", res.Violations)
		}
		if len(res.Violations) != 1 || res.Violations[0].Severity != domain.SeverityLog {
			t.Fatalf("expected one log-severity advisory, got %v", res.Violations)
		}
		return nil
	})
}

func TestRevisionLimitWarnsWhenExceeded(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(NewRulesEngine())
	rule := NewRevisionLimitRule()

	after := domain.Request{Base: domain.Base{ID: "r1"}, Code: "DR-2026-001", Status: domain.StatusInProgress, RevisionCount: 4, MaxRevisions: 3}

	_ = store.View(ctx, func(v domain.TransactionView) error {
		res, err := rule.Evaluate(ctx, v, []domain.Change{{
			Entity: domain.EntityRequest,
			After:  mustChangePayload(t, after),
		}})
		if err != nil {
			t.Fatalf("evaluate revision limit: %v", err)
		}
		if res.HasBlocking() {
			t.Fatalf("revision limit must warn, not block: %v", res.Violations)
		}
		warnings := res.Warnings()
		if len(warnings) != 1 {
			t.Fatalf("expected one warning, got %v", res.Violations)
		}
		if !strings.Contains(warnings[0].Message, "4 of 3 used") {
			t.Fatalf("unexpected warning message: %q", warnings[0].Message)
		}
		return nil
	})
}

func TestRevisionLimitIgnoresUnlimited(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(NewRulesEngine())
	rule := NewRevisionLimitRule()

	after := domain.Request{Base: domain.Base{ID: "r1"}, RevisionCount: 9, MaxRevisions: 0}

	_ = store.View(ctx, func(v domain.TransactionView) error {
		res, err := rule.Evaluate(ctx, v, []domain.Change{{
			Entity: domain.EntityRequest,
			After:  mustChangePayload(t, after),
		}})
		if err != nil {
			t.Fatalf("evaluate revision limit: %v", err)
		}
		if len(res.Violations) != 0 {
			t.Fatalf("expected no violations when no limit set, got %v", res.Violations)
		}
		return nil
	})
}

func TestDefaultRulesEngineBlocksThroughTransaction(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(NewDefaultRulesEngine())

	var created domain.Request
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var txErr error
		created, txErr = tx.CreateRequest(domain.Request{Title: "Bracket", ClientName: "Acme"})
		return txErr
	}); err != nil {
		t.Fatalf("create request: %v", err)
	}

	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.SetRequestStatus(created.ID, domain.StatusInReview); err != nil {
			return err
		}
		return nil
	})
	if err == nil {
		t.Fatalf("expected review gate to reject the transaction")
	}
	if !strings.Contains(err.Error(), "blocked by rules") {
		t.Fatalf("expected rule violation error, got %v", err)
	}

	got, ok := store.GetRequest(created.ID)
	if !ok {
		t.Fatalf("request disappeared")
	}
	if got.Status == domain.StatusInReview {
		t.Fatalf("blocked transaction must not commit status change")
	}
}

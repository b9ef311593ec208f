package core

import (
	"math"
	"testing"
	"time"

	"makerdesk/pkg/domain"
)

func datePtr(t time.Time) *time.Time { return &t }

func TestComputeKPIsCounts(t *testing.T) {
	now := time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)
	requests := []domain.Request{
		{Status: domain.StatusNew},
		{Status: domain.StatusInProgress, DueAt: datePtr(now.Add(3 * 24 * time.Hour))},
		{Status: domain.StatusInReview},
		{Status: domain.StatusRevisionNeeded},
		{Status: domain.StatusApproved, CompletedAt: datePtr(time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC))},
		{Status: domain.StatusDelivered, CompletedAt: datePtr(time.Date(2026, time.February, 27, 0, 0, 0, 0, time.UTC))},
		{Status: domain.StatusBlocked},
	}

	kpis := ComputeKPIs(requests, now, 0)
	if kpis.Open != 2 {
		t.Fatalf("open: expected 2, got %d", kpis.Open)
	}
	if kpis.InReview != 2 {
		t.Fatalf("in review: expected 2, got %d", kpis.InReview)
	}
	if kpis.DueSoon != 1 {
		t.Fatalf("due soon: expected 1, got %d", kpis.DueSoon)
	}
	if kpis.CompletedThisMonth != 1 {
		t.Fatalf("completed this month: expected 1, got %d", kpis.CompletedThisMonth)
	}
}

func TestComputeKPIsDueSoonWindowBoundary(t *testing.T) {
	now := time.Date(2026, time.March, 15, 23, 59, 0, 0, time.UTC)
	in7 := time.Date(2026, time.March, 22, 0, 1, 0, 0, time.UTC)
	in8 := time.Date(2026, time.March, 23, 0, 1, 0, 0, time.UTC)
	requests := []domain.Request{
		{Status: domain.StatusInProgress, DueAt: &in7},
		{Status: domain.StatusInProgress, DueAt: &in8},
	}

	kpis := ComputeKPIs(requests, now, DefaultDueSoonDays)
	if kpis.DueSoon != 1 {
		t.Fatalf("expected day 7 in window and day 8 out, got %d", kpis.DueSoon)
	}
}

func TestComputeKPIsDueSoonIgnoresSettledRequests(t *testing.T) {
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	due := now.Add(24 * time.Hour)
	requests := []domain.Request{
		{Status: domain.StatusApproved, DueAt: &due},
		{Status: domain.StatusDelivered, DueAt: &due},
	}

	kpis := ComputeKPIs(requests, now, DefaultDueSoonDays)
	if kpis.DueSoon != 0 {
		t.Fatalf("settled requests must not count as due soon, got %d", kpis.DueSoon)
	}
}

func TestDerivedViewsAreIdempotent(t *testing.T) {
	now := time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)
	due := now.Add(3 * 24 * time.Hour)
	completed := now.Add(-24 * time.Hour)
	requests := []domain.Request{
		{Status: domain.StatusInProgress, DueAt: &due, Budget: 1000, CompletedAt: &completed},
		{Status: domain.StatusBlocked, MissingReference: true},
	}

	first := ComputeKPIs(requests, now, 0)
	second := ComputeKPIs(requests, now, 0)
	if first != second {
		t.Fatalf("kpis changed between identical reads: %+v vs %+v", first, second)
	}
	if a, b := ComputeRoyalties(requests, now, 0), ComputeRoyalties(requests, now, 0); a != b {
		t.Fatalf("royalties changed between identical reads: %v vs %v", a, b)
	}
	if a, b := len(ComputeAlerts(requests, now).MissingReference), len(ComputeAlerts(requests, now).MissingReference); a != b {
		t.Fatalf("alerts changed between identical reads")
	}
}

func TestComputeAlertsBuckets(t *testing.T) {
	now := time.Date(2026, time.June, 10, 9, 0, 0, 0, time.UTC)
	overdue := now.Add(-48 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)
	nextWeek := now.Add(6 * 24 * time.Hour)
	requests := []domain.Request{
		{Base: domain.Base{ID: "late"}, Status: domain.StatusInProgress, DueAt: &overdue},
		{Base: domain.Base{ID: "soon"}, Status: domain.StatusInProgress, DueAt: &tomorrow},
		{Base: domain.Base{ID: "week"}, Status: domain.StatusInReview, DueAt: &nextWeek},
		{Base: domain.Base{ID: "done"}, Status: domain.StatusDelivered, DueAt: &overdue},
		{Base: domain.Base{ID: "noref"}, Status: domain.StatusBlocked, MissingReference: true},
		{Base: domain.Base{ID: "print"}, Status: domain.StatusBlocked, PrintabilityIssue: true},
	}

	alerts := ComputeAlerts(requests, now)
	if len(alerts.Overdue) != 1 || alerts.Overdue[0].ID != "late" {
		t.Fatalf("unexpected overdue bucket: %+v", alerts.Overdue)
	}
	if len(alerts.DueWithin48Hours) != 1 || alerts.DueWithin48Hours[0].ID != "soon" {
		t.Fatalf("unexpected 48h bucket: %+v", alerts.DueWithin48Hours)
	}
	if len(alerts.DueWithin7Days) != 2 {
		t.Fatalf("expected 48h entries included in 7d bucket, got %+v", alerts.DueWithin7Days)
	}
	if len(alerts.MissingReference) != 1 || alerts.MissingReference[0].ID != "noref" {
		t.Fatalf("unexpected missing-reference bucket: %+v", alerts.MissingReference)
	}
	if len(alerts.PrintabilityIssue) != 1 || alerts.PrintabilityIssue[0].ID != "print" {
		t.Fatalf("unexpected printability bucket: %+v", alerts.PrintabilityIssue)
	}
}

func TestComputeRoyaltiesTrailingWindow(t *testing.T) {
	now := time.Date(2026, time.July, 1, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-5 * 24 * time.Hour)
	edge := now.Add(-29 * 24 * time.Hour)
	tooOld := now.Add(-31 * 24 * time.Hour)
	requests := []domain.Request{
		{Status: domain.StatusDelivered, Budget: 1000, CompletedAt: &recent},
		{Status: domain.StatusDelivered, Budget: 2000, CompletedAt: &edge},
		{Status: domain.StatusDelivered, Budget: 5000, CompletedAt: &tooOld},
		{Status: domain.StatusInProgress, Budget: 9000},
	}

	total := ComputeRoyalties(requests, now, DefaultRoyaltyRate)
	if math.Abs(total-300) > 1e-9 {
		t.Fatalf("expected 300.0 royalties, got %v", total)
	}
}

func TestComputeRoyaltiesCustomRate(t *testing.T) {
	now := time.Date(2026, time.July, 1, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-24 * time.Hour)
	requests := []domain.Request{
		{Status: domain.StatusDelivered, Budget: 500, CompletedAt: &recent},
	}

	total := ComputeRoyalties(requests, now, 0.2)
	if math.Abs(total-100) > 1e-9 {
		t.Fatalf("expected 100.0 royalties at 20%%, got %v", total)
	}
}

func TestSortByDueDateOrdering(t *testing.T) {
	early := time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, time.May, 9, 0, 0, 0, 0, time.UTC)
	requests := []domain.Request{
		{Base: domain.Base{ID: "no-due-normal"}, Priority: domain.PriorityNormal},
		{Base: domain.Base{ID: "late-rush"}, Priority: domain.PriorityRush, DueAt: &late},
		{Base: domain.Base{ID: "early-normal"}, Priority: domain.PriorityNormal, DueAt: &early},
		{Base: domain.Base{ID: "early-rush"}, Priority: domain.PriorityRush, DueAt: &early},
	}

	sorted := SortByDueDate(requests)
	want := []string{"early-rush", "early-normal", "late-rush", "no-due-normal"}
	for i, id := range want {
		if sorted[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, sorted[i].ID)
		}
	}
	if requests[0].ID != "no-due-normal" {
		t.Fatalf("input slice must not be reordered")
	}
}

func TestSortByDueDateStableOnTies(t *testing.T) {
	due := time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)
	requests := []domain.Request{
		{Base: domain.Base{ID: "first"}, Priority: domain.PriorityHigh, DueAt: &due},
		{Base: domain.Base{ID: "second"}, Priority: domain.PriorityHigh, DueAt: &due},
	}

	sorted := SortByDueDate(requests)
	if sorted[0].ID != "first" || sorted[1].ID != "second" {
		t.Fatalf("equal entries must keep input order, got %s then %s", sorted[0].ID, sorted[1].ID)
	}
}

func TestFilterRequestsComposesWithAnd(t *testing.T) {
	requests := []domain.Request{
		{Base: domain.Base{ID: "match"}, Code: "DR-2026-001", Title: "Bracket mount", Status: domain.StatusInProgress, Type: domain.RequestType("modeling"), ClientName: "Acme Industrial"},
		{Base: domain.Base{ID: "wrong-status"}, Code: "DR-2026-002", Title: "Bracket mount", Status: domain.StatusNew, Type: domain.RequestType("modeling"), ClientName: "Acme Industrial"},
		{Base: domain.Base{ID: "wrong-client"}, Code: "DR-2026-003", Title: "Bracket mount", Status: domain.StatusInProgress, Type: domain.RequestType("modeling"), ClientName: "Globex"},
	}

	out := FilterRequests(requests, RequestFilter{
		Status: domain.StatusInProgress,
		Type:   domain.RequestType("modeling"),
		Client: "acme",
	})
	if len(out) != 1 || out[0].ID != "match" {
		t.Fatalf("expected single AND match, got %+v", out)
	}
}

func TestFilterRequestsSearchIsCaseInsensitive(t *testing.T) {
	requests := []domain.Request{
		{Base: domain.Base{ID: "by-title"}, Title: "Gear Housing"},
		{Base: domain.Base{ID: "by-tag"}, Tags: []string{"Urgent", "CNC"}},
		{Base: domain.Base{ID: "by-code"}, Code: "DR-2026-042"},
		{Base: domain.Base{ID: "miss"}, Title: "Enclosure"},
	}

	if out := FilterRequests(requests, RequestFilter{Search: "gear"}); len(out) != 1 || out[0].ID != "by-title" {
		t.Fatalf("title search failed: %+v", out)
	}
	if out := FilterRequests(requests, RequestFilter{Search: "cnc"}); len(out) != 1 || out[0].ID != "by-tag" {
		t.Fatalf("tag search failed: %+v", out)
	}
	if out := FilterRequests(requests, RequestFilter{Search: "dr-2026-042"}); len(out) != 1 || out[0].ID != "by-code" {
		t.Fatalf("code search failed: %+v", out)
	}
}

func TestFilterRequestsEmptyFilterMatchesAll(t *testing.T) {
	requests := []domain.Request{
		{Base: domain.Base{ID: "a"}},
		{Base: domain.Base{ID: "b"}},
	}
	if out := FilterRequests(requests, RequestFilter{}); len(out) != 2 {
		t.Fatalf("empty filter: expected all, got %+v", out)
	}
}

func TestActivityFeedNewestFirstAcrossRequests(t *testing.T) {
	base := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	requests := []domain.Request{
		{ActivityLog: []domain.ActivityEntry{
			{ID: "a2", OccurredAt: base.Add(2 * time.Hour)},
			{ID: "a0", OccurredAt: base},
		}},
		{ActivityLog: []domain.ActivityEntry{
			{ID: "a3", OccurredAt: base.Add(3 * time.Hour)},
			{ID: "a1", OccurredAt: base.Add(time.Hour)},
		}},
	}

	feed := ActivityFeed(requests, 0)
	want := []string{"a3", "a2", "a1", "a0"}
	for i, id := range want {
		if feed[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, feed[i].ID)
		}
	}

	limited := ActivityFeed(requests, 2)
	if len(limited) != 2 || limited[0].ID != "a3" || limited[1].ID != "a2" {
		t.Fatalf("unexpected limited feed: %+v", limited)
	}
}

package core

import (
	"sort"
	"strings"
	"time"

	"makerdesk/pkg/domain"
)

// DefaultRoyaltyRate is the platform royalty share applied to completed
// request budgets when no explicit rate is configured.
const DefaultRoyaltyRate = 0.10

// DefaultDueSoonDays is the KPI window for the due-soon count.
const DefaultDueSoonDays = 7

// royaltyWindow is the trailing period over which completed budgets earn
// royalties.
const royaltyWindow = 30 * 24 * time.Hour

// KPIs aggregates the dashboard headline counts. All counts are derived from
// a request snapshot plus a clock reading; nothing is stored.
type KPIs struct {
	Open               int `json:"open"`
	InReview           int `json:"in_review"`
	DueSoon            int `json:"due_soon"`
	CompletedThisMonth int `json:"completed_this_month"`
}

// Alerts buckets requests needing attention. A request can appear in multiple
// buckets; each bucket preserves due-date ordering.
type Alerts struct {
	Overdue           []Request `json:"overdue"`
	DueWithin48Hours  []Request `json:"due_within_48_hours"`
	DueWithin7Days    []Request `json:"due_within_7_days"`
	MissingReference  []Request `json:"missing_reference"`
	PrintabilityIssue []Request `json:"printability_issue"`
}

// RequestFilter narrows a request list. Empty fields match everything;
// populated fields compose with boolean AND. Search matches case-insensitively
// against code, title, description, client name, and tags.
type RequestFilter struct {
	Status RequestStatus
	Type   RequestType
	Client string
	Search string
}

// startOfDay normalizes t to midnight in its location. All day-granularity
// dashboard arithmetic anchors on the start of today so that results do not
// drift within a day.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// daysUntil returns the whole-day distance from the now anchor to the due
// date, negative when the due date has passed.
func daysUntil(now, due time.Time) int {
	return int(startOfDay(due).Sub(startOfDay(now)) / (24 * time.Hour))
}

// isActive reports whether a request still counts toward due-date pressure.
// Approved and delivered requests are settled and never overdue or due-soon.
func isActive(r Request) bool {
	return r.Status != domain.StatusApproved && r.Status != domain.StatusDelivered
}

// ComputeKPIs derives the headline counts from a request snapshot.
func ComputeKPIs(requests []Request, now time.Time, dueSoonDays int) KPIs {
	if dueSoonDays <= 0 {
		dueSoonDays = DefaultDueSoonDays
	}
	var kpis KPIs
	for _, r := range requests {
		switch r.Status {
		case domain.StatusNew, domain.StatusInProgress:
			kpis.Open++
		case domain.StatusInReview, domain.StatusRevisionNeeded:
			kpis.InReview++
		}
		if r.DueAt != nil && isActive(r) {
			if d := daysUntil(now, *r.DueAt); d >= 0 && d <= dueSoonDays {
				kpis.DueSoon++
			}
		}
		if r.CompletedAt != nil &&
			r.CompletedAt.Year() == now.Year() && r.CompletedAt.Month() == now.Month() {
			kpis.CompletedThisMonth++
		}
	}
	return kpis
}

// ComputeAlerts derives the attention buckets from a request snapshot.
// Due-date buckets only consider active requests with a due date; the blocked
// buckets split on the structured flags.
func ComputeAlerts(requests []Request, now time.Time) Alerts {
	sorted := SortByDueDate(requests)
	var alerts Alerts
	for _, r := range sorted {
		if r.Status == domain.StatusBlocked {
			if r.MissingReference {
				alerts.MissingReference = append(alerts.MissingReference, r)
			}
			if r.PrintabilityIssue {
				alerts.PrintabilityIssue = append(alerts.PrintabilityIssue, r)
			}
		}
		if r.DueAt == nil || !isActive(r) {
			continue
		}
		d := daysUntil(now, *r.DueAt)
		switch {
		case d < 0:
			alerts.Overdue = append(alerts.Overdue, r)
		case d <= 2:
			alerts.DueWithin48Hours = append(alerts.DueWithin48Hours, r)
			alerts.DueWithin7Days = append(alerts.DueWithin7Days, r)
		case d <= 7:
			alerts.DueWithin7Days = append(alerts.DueWithin7Days, r)
		}
	}
	return alerts
}

// ComputeRoyalties sums the royalty share of budgets for requests completed
// within the trailing 30 days. A non-positive rate falls back to the default.
func ComputeRoyalties(requests []Request, now time.Time, rate float64) float64 {
	if rate <= 0 {
		rate = DefaultRoyaltyRate
	}
	var total float64
	for _, r := range requests {
		if r.CompletedAt == nil {
			continue
		}
		completed := *r.CompletedAt
		if completed.After(now) || now.Sub(completed) > royaltyWindow {
			continue
		}
		total += r.Budget * rate
	}
	return total
}

// SortByDueDate returns a copy of requests ordered by due date ascending,
// tie-broken by priority rank (rush before high before normal). Requests
// without a due date sort last. The sort is stable, so equal entries keep
// their input order.
func SortByDueDate(requests []Request) []Request {
	out := make([]Request, len(requests))
	copy(out, requests)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.DueAt == nil && b.DueAt == nil:
			return a.Priority.Rank() < b.Priority.Rank()
		case a.DueAt == nil:
			return false
		case b.DueAt == nil:
			return true
		}
		if !a.DueAt.Equal(*b.DueAt) {
			return a.DueAt.Before(*b.DueAt)
		}
		return a.Priority.Rank() < b.Priority.Rank()
	})
	return out
}

// FilterRequests applies the filter to the snapshot, preserving input order.
func FilterRequests(requests []Request, filter RequestFilter) []Request {
	var out []Request
	for _, r := range requests {
		if matchesFilter(r, filter) {
			out = append(out, r)
		}
	}
	return out
}

func matchesFilter(r Request, filter RequestFilter) bool {
	if filter.Status != "" && r.Status != filter.Status {
		return false
	}
	if filter.Type != "" && r.Type != filter.Type {
		return false
	}
	if filter.Client != "" && !strings.Contains(strings.ToLower(r.ClientName), strings.ToLower(filter.Client)) {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !searchMatches(r, needle) {
			return false
		}
	}
	return true
}

func searchMatches(r Request, needle string) bool {
	for _, field := range []string{r.Code, r.Title, r.Description, r.ClientName} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	for _, tag := range r.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// ActivityFeed merges the newest activity entries across all requests,
// ordered most recent first, limited to limit entries (0 means no limit).
func ActivityFeed(requests []Request, limit int) []ActivityEntry {
	var entries []ActivityEntry
	for _, r := range requests {
		entries = append(entries, r.ActivityLog...)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].OccurredAt.After(entries[j].OccurredAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

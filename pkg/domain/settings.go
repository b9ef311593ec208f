package domain

import "encoding/json"

// DesignerProfile bundles a designer's public profile with their notification
// and workflow preferences. The whole document round-trips as one JSON blob.
type DesignerProfile struct {
	Base
	DisplayName    string               `json:"display_name"`
	Tagline        string               `json:"tagline,omitempty"`
	Bio            string               `json:"bio,omitempty"`
	Skills         []string             `json:"skills"`
	PortfolioLinks []PortfolioLink      `json:"portfolio_links"`
	Notifications  NotificationSettings `json:"notifications"`
	Workflow       WorkflowSettings     `json:"workflow"`
	Availability   Availability         `json:"availability"`
}

// PortfolioLink points at an external showcase entry.
type PortfolioLink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// NotificationSettings is a pure configuration object with no derived behavior.
type NotificationSettings struct {
	EmailOnNewRequest   bool `json:"email_on_new_request"`
	EmailOnStatusChange bool `json:"email_on_status_change"`
	EmailOnMessage      bool `json:"email_on_message"`
	DailyDigest         bool `json:"daily_digest"`
}

// WorkflowSettings captures per-designer workflow preferences.
type WorkflowSettings struct {
	AutoAcceptRush      bool `json:"auto_accept_rush"`
	DefaultMaxRevisions int  `json:"default_max_revisions"`
	ReviewReminderDays  int  `json:"review_reminder_days"`
}

// Availability describes whether a designer is taking new work.
type Availability struct {
	AcceptingRequests bool   `json:"accepting_requests"`
	LeadTimeDays      int    `json:"lead_time_days"`
	Note              string `json:"note,omitempty"`
}

// DefaultDesignerProfile returns the profile used when nothing is stored or a
// stored document fails to decode.
func DefaultDesignerProfile() DesignerProfile {
	return DesignerProfile{
		Skills:         []string{},
		PortfolioLinks: []PortfolioLink{},
		Notifications: NotificationSettings{
			EmailOnNewRequest:   true,
			EmailOnStatusChange: true,
			EmailOnMessage:      true,
		},
		Workflow: WorkflowSettings{
			DefaultMaxRevisions: 3,
			ReviewReminderDays:  2,
		},
		Availability: Availability{AcceptingRequests: true, LeadTimeDays: 7},
	}
}

// DecodeDesignerProfile parses a stored profile document. A parse failure is
// not an error surface: the defaults are returned along with the decode error
// so callers can log and continue, matching the stored-settings contract.
func DecodeDesignerProfile(raw []byte) (DesignerProfile, error) {
	if len(raw) == 0 {
		return DefaultDesignerProfile(), nil
	}
	var profile DesignerProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return DefaultDesignerProfile(), err
	}
	return profile, nil
}

// EncodeDesignerProfile serializes the profile document.
func EncodeDesignerProfile(p DesignerProfile) ([]byte, error) {
	return json.Marshal(p)
}

// CloneProfile returns a deep copy of the profile.
func CloneProfile(p DesignerProfile) DesignerProfile {
	cp := p
	cp.Skills = append([]string(nil), p.Skills...)
	cp.PortfolioLinks = append([]PortfolioLink(nil), p.PortfolioLinks...)
	return cp
}

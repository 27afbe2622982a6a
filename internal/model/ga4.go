package model

import "time"

// GA4 report types. A GA4Record carries exactly one of them.
const (
	GA4ReportSessions = "sessions"
	GA4ReportTraffic  = "traffic"
	GA4ReportPages    = "pages"
)

// GA4Times holds the timestamps shared by every GA4 row.
type GA4Times struct {
	Date          time.Time  `json:"date" validate:"required"`
	ExtractedAt   *time.Time `json:"extracted_at"`
	TransformedAt time.Time  `json:"transformed_at"`
}

// GA4Session is one property, day and source/medium with engagement metrics.
type GA4Session struct {
	RecordID        string  `json:"record_id" validate:"required"`
	Platform        string  `json:"platform" validate:"eq=ga4"`
	PropertyID      string  `json:"property_id" validate:"required"`
	Source          *string `json:"source"`
	Medium          *string `json:"medium"`
	Campaign        *string `json:"campaign"`
	ChannelGrouping string  `json:"channel_grouping"`

	Sessions        int64 `json:"sessions" validate:"gte=0"`
	EngagedSessions int64 `json:"engaged_sessions" validate:"gte=0"`
	TotalUsers      int64 `json:"total_users" validate:"gte=0"`
	NewUsers        int64 `json:"new_users" validate:"gte=0"`
	ActiveUsers     int64 `json:"active_users" validate:"gte=0"`
	ReturningUsers  int64 `json:"returning_users" validate:"gte=0"`
	PageViews       int64 `json:"screen_page_views" validate:"gte=0"`

	BounceRate           *float64 `json:"bounce_rate"`
	EngagementRate       *float64 `json:"engagement_rate"`
	AvgSessionDuration   *float64 `json:"avg_session_duration"`
	EventsPerSession     *float64 `json:"events_per_session"`
	SessionDurationTotal float64  `json:"session_duration_total"`

	GA4Times
}

// GA4Traffic is one property, day and source/medium with acquisition and
// ecommerce metrics.
type GA4Traffic struct {
	RecordID        string  `json:"record_id" validate:"required"`
	Platform        string  `json:"platform" validate:"eq=ga4"`
	PropertyID      string  `json:"property_id" validate:"required"`
	Source          *string `json:"source"`
	Medium          *string `json:"medium"`
	Campaign        *string `json:"campaign"`
	ChannelGrouping string  `json:"channel_grouping" validate:"required"`

	Sessions   int64 `json:"sessions" validate:"gte=0"`
	TotalUsers int64 `json:"total_users" validate:"gte=0"`
	NewUsers   int64 `json:"new_users" validate:"gte=0"`

	BounceRate         *float64 `json:"bounce_rate"`
	EngagementRate     *float64 `json:"engagement_rate"`
	AvgSessionDuration *float64 `json:"avg_session_duration"`

	Transactions   int64    `json:"transactions" validate:"gte=0"`
	Revenue        float64  `json:"revenue" validate:"gte=0"`
	AvgOrderValue  *float64 `json:"avg_order_value"`
	ConversionRate *float64 `json:"conversion_rate"`

	GA4Times
}

// GA4Page is one property, day and page path.
type GA4Page struct {
	RecordID   string  `json:"record_id" validate:"required"`
	Platform   string  `json:"platform" validate:"eq=ga4"`
	PropertyID string  `json:"property_id" validate:"required"`
	PagePath   string  `json:"page_path" validate:"required"`
	PageTitle  *string `json:"page_title"`

	PageViews       int64 `json:"page_views" validate:"gte=0"`
	UniquePageViews int64 `json:"unique_page_views" validate:"gte=0"`
	Sessions        int64 `json:"sessions" validate:"gte=0"`
	Entrances       int64 `json:"entrances" validate:"gte=0"`
	Exits           int64 `json:"exits" validate:"gte=0"`

	BounceRate     *float64 `json:"bounce_rate"`
	EngagementRate *float64 `json:"engagement_rate"`
	AvgTimeOnPage  *float64 `json:"avg_time_on_page"`
	ExitRate       *float64 `json:"exit_rate"`

	GA4Times
}

// GA4Record is the unified GA4 output: Report names the one populated row.
type GA4Record struct {
	Report  string      `json:"report" validate:"oneof=sessions traffic pages"`
	Session *GA4Session `json:"session,omitempty"`
	Traffic *GA4Traffic `json:"traffic,omitempty"`
	Page    *GA4Page    `json:"page,omitempty"`
}

// RecordID returns the id of the populated row.
func (r GA4Record) RecordID() string {
	switch {
	case r.Session != nil:
		return r.Session.RecordID
	case r.Traffic != nil:
		return r.Traffic.RecordID
	case r.Page != nil:
		return r.Page.RecordID
	}
	return ""
}

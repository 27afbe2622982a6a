package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"market-etl/internal/model"
)

const ga4TrafficJSON = `{
	"type": "traffic",
	"platform": "ga4",
	"property_id": "properties/123456789",
	"data": {
		"dimensions": {"date": "20241201", "sessionSource": "google", "sessionMedium": "organic", "sessionCampaignName": "(not set)"},
		"metrics": {"sessions": "1500", "totalUsers": "1200", "newUsers": "800", "bounceRate": "0.45", "averageSessionDuration": "180.5", "engagementRate": "0.65"}
	},
	"extracted_at": "2024-12-01T10:00:00Z"
}`

const ga4Ecommerce = `{
	"type": "ecommerce",
	"platform": "ga4",
	"property_id": "properties/123456789",
	"data": {
		"dimensions": {"date": "20241201", "sessionSource": "facebook", "sessionMedium": "cpc"},
		"metrics": {"sessions": "500", "totalUsers": "450", "newUsers": "300", "transactions": "25", "purchaseRevenue": "125000.50"}
	}
}`

const ga4PagesJSON = `{
	"type": "pages",
	"platform": "ga4",
	"property_id": "properties/123456789",
	"data": {
		"dimensions": {"date": "20241201", "pagePath": "/products/item-123?ref=a&b=c", "pageTitle": "Product Detail - Item 123"},
		"metrics": {"screenPageViews": "5000", "sessions": "3000", "averageSessionDuration": "120.0", "entrances": "2500", "exits": "1500"}
	}
}`

var ga4Clock = time.Date(2024, 12, 5, 8, 30, 0, 0, time.UTC)

func newTestGA4() *GA4 {
	return NewGA4(WithClock(func() time.Time { return ga4Clock }))
}

func TestGA4TrafficReport(t *testing.T) {
	g := newTestGA4()
	out := g.TransformSlice([]model.Raw{decode(t, ga4TrafficJSON)})
	require.Len(t, out, 1, "errors: %v", g.ErrorRecords())
	require.Equal(t, model.GA4ReportTraffic, out[0].Report)
	require.Nil(t, out[0].Session)

	tr := out[0].Traffic
	require.Equal(t, "ga4_traffic_properties/123456789_20241201_google_organic", tr.RecordID)
	require.Equal(t, out[0].RecordID(), tr.RecordID)
	require.Equal(t, "Organic Search", tr.ChannelGrouping)
	require.Equal(t, "google", *tr.Source)
	require.Nil(t, tr.Campaign, "(not set) is dropped")
	require.Equal(t, int64(1500), tr.Sessions)
	require.Equal(t, 0.45, *tr.BounceRate)
	require.Equal(t, 180.5, *tr.AvgSessionDuration)
	require.Zero(t, tr.Revenue)
	require.Nil(t, tr.AvgOrderValue)
	require.Equal(t, 0.0, *tr.ConversionRate)
	require.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), tr.Date)
	require.Equal(t, time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC), *tr.ExtractedAt)
	require.Equal(t, ga4Clock, tr.TransformedAt)
}

func TestGA4EcommerceRoutesToTraffic(t *testing.T) {
	out := newTestGA4().TransformSlice([]model.Raw{decode(t, ga4Ecommerce)})
	require.Len(t, out, 1)
	tr := out[0].Traffic
	require.NotNil(t, tr)
	require.Equal(t, "Paid Search", tr.ChannelGrouping)
	require.Equal(t, 125000.5, tr.Revenue)
	require.InDelta(t, 5000.02, *tr.AvgOrderValue, 1e-9)
	require.InDelta(t, 5.0, *tr.ConversionRate, 1e-9)
	require.Nil(t, tr.ExtractedAt)
}

func TestGA4PagesReport(t *testing.T) {
	out := newTestGA4().TransformSlice([]model.Raw{decode(t, ga4PagesJSON)})
	require.Len(t, out, 1)
	p := out[0].Page
	require.NotNil(t, p)
	require.Equal(t, "ga4_page_properties/123456789_20241201__products_item-123_ref=a_b=c", p.RecordID)
	require.Equal(t, "/products/item-123?ref=a&b=c", p.PagePath)
	require.Equal(t, "Product Detail - Item 123", *p.PageTitle)
	require.Equal(t, int64(5000), p.PageViews)
	require.Equal(t, int64(3000), p.UniquePageViews)
	require.Equal(t, 120.0, *p.AvgTimeOnPage)
	require.InDelta(t, 30.0, *p.ExitRate, 1e-9)
}

func TestGA4SessionsDerivedMetrics(t *testing.T) {
	rec := decode(t, `{
		"property_id": "properties/1",
		"data": {
			"dimensions": {"date": "2024-12-01"},
			"metrics": {"sessions": "10", "totalUsers": "8", "newUsers": "9", "averageSessionDuration": "30.5", "engagedSessions": "7.9", "bounceRate": "n/a"}
		}
	}`)
	require.Equal(t, model.GA4ReportSessions, DetectGA4Report(rec))
	out := newTestGA4().TransformSlice([]model.Raw{rec})
	require.Len(t, out, 1)
	s := out[0].Session
	require.Equal(t, "ga4_session_properties/1_2024-12-01__", s.RecordID)
	require.Equal(t, "Other", s.ChannelGrouping)
	require.Zero(t, s.ReturningUsers, "returning users never go negative")
	require.Equal(t, 305.0, s.SessionDurationTotal)
	require.Equal(t, int64(7), s.EngagedSessions)
	require.Nil(t, s.BounceRate, "unparseable ratios are absent")
	require.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), s.Date)
}

func TestGA4MissingDataUsesDefaults(t *testing.T) {
	out := newTestGA4().TransformSlice([]model.Raw{{}})
	require.Len(t, out, 1)
	s := out[0].Session
	require.Equal(t, "unknown", s.PropertyID)
	require.Equal(t, ga4Clock, s.Date, "an unreadable date falls back to now")
	require.Zero(t, s.Sessions)
	require.Zero(t, s.SessionDurationTotal)
}

func TestGA4NegativeMetricIsDeadLettered(t *testing.T) {
	g := newTestGA4()
	rec := decode(t, `{"type": "pages", "data": {"dimensions": {"date": "20241201"}, "metrics": {"exits": "-3"}}}`)
	require.Empty(t, g.TransformSlice([]model.Raw{rec}))
	errs := g.ErrorRecords()
	require.Len(t, errs, 1)
	require.Equal(t, model.PlatformGA4, errs[0].SourcePlatform)
	require.Equal(t, KindValidation, errs[0].ErrorType)
	require.Contains(t, errs[0].Error, "exits")
}

func TestDetectGA4Report(t *testing.T) {
	cases := map[string]string{
		`{"type": "sessions"}`: model.GA4ReportTraffic,
		`{"type": "pages"}`:    model.GA4ReportPages,
		`{"platform": "ga4", "data": {"dimensions": {"pageTitle": "Home"}}}`:    model.GA4ReportPages,
		`{"platform": "ga4", "data": {"dimensions": {"sessionMedium": "cpc"}}}`: model.GA4ReportTraffic,
		`{"type": "realtime", "data": {"dimensions": {"date": "20241201"}}}`:    model.GA4ReportSessions,
	}
	for raw, want := range cases {
		require.Equal(t, want, newTestGA4().Detect(decode(t, raw)), raw)
	}
}

func TestChannelGrouping(t *testing.T) {
	cases := []struct{ source, medium, want string }{
		{"(direct)", "(none)", "Direct"},
		{" Direct ", "", "Direct"},
		{"direct", "referral", "Referral"},
		{"google", "organic", "Organic Search"},
		{"bing", "PPC", "Paid Search"},
		{"gdn", "banner", "Display"},
		{"facebook", "paid-social", "Paid Social"},
		{"Instagram", "story", "Social"},
		{"news", "social", "Social"},
		{"crm", "email", "Email"},
		{"partner", "affiliate", "Affiliates"},
		{"tv", "video", "Video"},
		{"spotify", "audio", "Audio"},
		{"twilio", "sms", "SMS"},
		{"app", "notification", "Mobile Push"},
		{"", "", "Other"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, ChannelGrouping(c.source, c.medium), "%s / %s", c.source, c.medium)
	}
}

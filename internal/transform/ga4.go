package transform

import (
	"slices"
	"strings"
	"time"

	"market-etl/internal/model"
	"market-etl/internal/normalize"
)

var (
	socialSources = []string{"facebook", "instagram", "twitter", "linkedin", "tiktok", "youtube", "pinterest"}
	pathCleaner   = strings.NewReplacer("/", "_", "?", "_", "&", "_")
)

// ChannelGrouping buckets a source/medium pair into a default GA4 channel
// group. Rules are checked in order; an unmatched pair is "Other".
func ChannelGrouping(source, medium string) string {
	s := strings.ToLower(strings.TrimSpace(source))
	m := strings.ToLower(strings.TrimSpace(medium))
	switch {
	case (s == "(direct)" || s == "direct") && (m == "(none)" || m == "(not set)" || m == ""):
		return "Direct"
	case m == "organic":
		return "Organic Search"
	case m == "cpc" || m == "ppc" || m == "paidsearch":
		return "Paid Search"
	case m == "display" || m == "cpm" || m == "banner":
		return "Display"
	case m == "paid_social" || m == "paidsocial" || m == "paid-social":
		return "Paid Social"
	case m == "social" || slices.Contains(socialSources, s):
		return "Social"
	case m == "email":
		return "Email"
	case m == "affiliate":
		return "Affiliates"
	case m == "referral":
		return "Referral"
	case m == "video":
		return "Video"
	case m == "audio":
		return "Audio"
	case m == "sms":
		return "SMS"
	case m == "push" || m == "mobile" || m == "notification":
		return "Mobile Push"
	}
	return "Other"
}

// DetectGA4Report picks the report transformer for rec. An explicit type
// wins; otherwise page dimensions mean pages and session source or medium
// means traffic. Everything else is a sessions row.
func DetectGA4Report(rec model.Raw) string {
	switch str(rec, "type") {
	case "traffic", "sessions", "ecommerce":
		return model.GA4ReportTraffic
	case "pages":
		return model.GA4ReportPages
	}
	dims := sub(sub(rec, "data"), "dimensions")
	switch {
	case has(dims, "pagePath") || has(dims, "pageTitle"):
		return model.GA4ReportPages
	case has(dims, "sessionSource") || has(dims, "sessionMedium"):
		return model.GA4ReportTraffic
	}
	return model.GA4ReportSessions
}

// GA4 is the report router over the sessions, traffic and pages transformers.
type GA4 = Dispatcher[model.GA4Record]

// NewGA4 builds a GA4 router with its own report transformers.
func NewGA4(opts ...Option) *GA4 {
	d := newRouter[model.GA4Record](model.DomainGA4, DetectGA4Report, newOptions(opts))
	d.register(model.GA4ReportSessions, NewGA4Sessions(opts...))
	d.register(model.GA4ReportTraffic, NewGA4Traffic(opts...))
	d.register(model.GA4ReportPages, NewGA4Pages(opts...))
	return d
}

// ga4Draft is a mapped row whose timestamps are still source values. times
// points into the row held by rec.
type ga4Draft struct {
	rec         model.GA4Record
	times       *model.GA4Times
	date        string
	extractedAt any
}

// ga4Report is shared by the three GA4 mappers. Payloads are Data API rows
// of string dimensions and metrics under data; property_id identifies the
// property and defaults to "unknown".
type ga4Report struct{ o *options }

func (ga4Report) SourcePlatform() string { return model.PlatformGA4 }

func (ga4Report) Unwrap(rec model.Raw) (model.Raw, Context) {
	ctx := Context{
		EnvelopeType: str(rec, "type"),
		AccountID:    str(rec, "property_id"),
		ExtractedAt:  rec["extracted_at"],
	}
	if ctx.AccountID == "" {
		ctx.AccountID = "unknown"
	}
	data := sub(rec, "data")
	if data == nil {
		data = model.Raw{}
	}
	return data, ctx
}

// NormalizeValues never fails: an unreadable date falls back to the current
// day and an unreadable extracted_at is dropped.
func (r ga4Report) NormalizeValues(d ga4Draft) (model.GA4Record, error) {
	now := r.o.now().UTC()
	d.times.Date = ga4Date(d.date, now)
	if t, err := r.o.utc(d.extractedAt); err == nil {
		d.times.ExtractedAt = t
	}
	d.times.TransformedAt = now
	return d.rec, nil
}

// ga4Date reads YYYYMMDD report dates as UTC days, and ISO dates or
// timestamps otherwise.
func ga4Date(s string, now time.Time) time.Time {
	layouts := []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}
	if len(s) == 8 {
		layouts = []string{"20060102"}
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return now
}

// metricInt reads a GA4 metric value. Anything unparseable counts as zero.
func metricInt(v any) int64 {
	if v == nil {
		return 0
	}
	d, err := normalize.ToDecimal(v)
	if err != nil {
		return 0
	}
	return d.IntPart()
}

// metricFloat reads a GA4 ratio or duration. Anything unparseable is absent.
func metricFloat(v any) *float64 {
	if v == nil {
		return nil
	}
	d, err := normalize.ToDecimal(v)
	if err != nil {
		return nil
	}
	return ptr(d.InexactFloat64())
}

// dimension drops empty and "(not set)" dimension values.
func dimension(v string) *string {
	if v == "" || v == "(not set)" {
		return nil
	}
	return &v
}

type acquisition struct {
	date, source, medium, campaign string
}

func acquisitionOf(dims model.Raw) acquisition {
	return acquisition{
		date:     str(dims, "date"),
		source:   str(dims, "sessionSource", "source"),
		medium:   str(dims, "sessionMedium", "medium"),
		campaign: str(dims, "sessionCampaignName", "campaign"),
	}
}

func (a acquisition) id(kind, property string) string {
	return strings.Join([]string{"ga4", kind, property, a.date, a.source, a.medium}, "_")
}

type ga4Sessions struct{ ga4Report }

// NewGA4Sessions builds the GA4 sessions transformer.
func NewGA4Sessions(opts ...Option) *Transformer[model.GA4Record] {
	return New[ga4Draft, model.GA4Record](model.DomainGA4, &ga4Sessions{ga4Report{o: newOptions(opts)}}, opts...)
}

func (*ga4Sessions) MapFields(p model.Raw, ctx Context) (ga4Draft, error) {
	dims, m := sub(p, "dimensions"), sub(p, "metrics")
	a := acquisitionOf(dims)
	row := &model.GA4Session{
		RecordID:           a.id("session", ctx.AccountID),
		Platform:           model.PlatformGA4,
		PropertyID:         ctx.AccountID,
		Source:             dimension(a.source),
		Medium:             dimension(a.medium),
		Campaign:           dimension(a.campaign),
		ChannelGrouping:    ChannelGrouping(a.source, a.medium),
		Sessions:           metricInt(m["sessions"]),
		EngagedSessions:    metricInt(m["engagedSessions"]),
		TotalUsers:         metricInt(m["totalUsers"]),
		NewUsers:           metricInt(m["newUsers"]),
		ActiveUsers:        metricInt(m["activeUsers"]),
		PageViews:          metricInt(m["screenPageViews"]),
		BounceRate:         metricFloat(m["bounceRate"]),
		EngagementRate:     metricFloat(m["engagementRate"]),
		AvgSessionDuration: metricFloat(m["averageSessionDuration"]),
		EventsPerSession:   metricFloat(m["eventsPerSession"]),
	}
	row.ReturningUsers = max(0, row.TotalUsers-row.NewUsers)
	if row.AvgSessionDuration != nil {
		row.SessionDurationTotal = *row.AvgSessionDuration * float64(row.Sessions)
	}
	return ga4Draft{
		rec:         model.GA4Record{Report: model.GA4ReportSessions, Session: row},
		times:       &row.GA4Times,
		date:        a.date,
		extractedAt: ctx.ExtractedAt,
	}, nil
}

type ga4Traffic struct{ ga4Report }

// NewGA4Traffic builds the GA4 traffic transformer, which also serves
// ecommerce reports.
func NewGA4Traffic(opts ...Option) *Transformer[model.GA4Record] {
	return New[ga4Draft, model.GA4Record](model.DomainGA4, &ga4Traffic{ga4Report{o: newOptions(opts)}}, opts...)
}

func (*ga4Traffic) MapFields(p model.Raw, ctx Context) (ga4Draft, error) {
	dims, m := sub(p, "dimensions"), sub(p, "metrics")
	a := acquisitionOf(dims)
	row := &model.GA4Traffic{
		RecordID:           a.id("traffic", ctx.AccountID),
		Platform:           model.PlatformGA4,
		PropertyID:         ctx.AccountID,
		Source:             dimension(a.source),
		Medium:             dimension(a.medium),
		Campaign:           dimension(a.campaign),
		ChannelGrouping:    ChannelGrouping(a.source, a.medium),
		Sessions:           metricInt(m["sessions"]),
		TotalUsers:         metricInt(m["totalUsers"]),
		NewUsers:           metricInt(m["newUsers"]),
		BounceRate:         metricFloat(m["bounceRate"]),
		EngagementRate:     metricFloat(m["engagementRate"]),
		AvgSessionDuration: metricFloat(m["averageSessionDuration"]),
		Transactions:       metricInt(m["transactions"]),
	}
	if rev := metricFloat(m["purchaseRevenue"]); rev != nil {
		row.Revenue = *rev
	}
	if row.Transactions > 0 {
		row.AvgOrderValue = ptr(row.Revenue / float64(row.Transactions))
	}
	if row.Sessions > 0 {
		row.ConversionRate = ptr(float64(row.Transactions) / float64(row.Sessions) * 100)
	}
	return ga4Draft{
		rec:         model.GA4Record{Report: model.GA4ReportTraffic, Traffic: row},
		times:       &row.GA4Times,
		date:        a.date,
		extractedAt: ctx.ExtractedAt,
	}, nil
}

type ga4Pages struct{ ga4Report }

// NewGA4Pages builds the GA4 page performance transformer. GA4 has no unique
// page views, so sessions stand in for them.
func NewGA4Pages(opts ...Option) *Transformer[model.GA4Record] {
	return New[ga4Draft, model.GA4Record](model.DomainGA4, &ga4Pages{ga4Report{o: newOptions(opts)}}, opts...)
}

func (*ga4Pages) MapFields(p model.Raw, ctx Context) (ga4Draft, error) {
	dims, m := sub(p, "dimensions"), sub(p, "metrics")
	date := str(dims, "date")
	path := str(dims, "pagePath")
	if path == "" {
		path = "/"
	}
	row := &model.GA4Page{
		RecordID:       strings.Join([]string{"ga4", "page", ctx.AccountID, date, pathCleaner.Replace(path)}, "_"),
		Platform:       model.PlatformGA4,
		PropertyID:     ctx.AccountID,
		PagePath:       path,
		PageTitle:      dimension(str(dims, "pageTitle")),
		PageViews:      metricInt(m["screenPageViews"]),
		Sessions:       metricInt(m["sessions"]),
		Entrances:      metricInt(m["entrances"]),
		Exits:          metricInt(m["exits"]),
		BounceRate:     metricFloat(m["bounceRate"]),
		EngagementRate: metricFloat(m["engagementRate"]),
		AvgTimeOnPage:  metricFloat(m["averageSessionDuration"]),
	}
	row.UniquePageViews = row.Sessions
	if row.PageViews > 0 {
		row.ExitRate = ptr(float64(row.Exits) / float64(row.PageViews) * 100)
	}
	return ga4Draft{
		rec:         model.GA4Record{Report: model.GA4ReportPages, Page: row},
		times:       &row.GA4Times,
		date:        date,
		extractedAt: ctx.ExtractedAt,
	}, nil
}

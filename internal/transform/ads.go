package transform

import (
	"strings"

	"market-etl/internal/model"
	"market-etl/internal/normalize"
)

var (
	facebookStatus = map[string]string{
		"active":          "active",
		"paused":          "paused",
		"deleted":         "deleted",
		"archived":        "archived",
		"pending_review":  "pending",
		"disapproved":     "rejected",
		"preapproved":     "pending",
		"campaign_paused": "paused",
		"adset_paused":    "paused",
	}
	googleStatus = map[string]string{
		"enabled": "active",
		"paused":  "paused",
		"removed": "deleted",
		"unknown": "unknown",
	}
	tiktokStatus = map[string]string{
		"enable":         "active",
		"disable":        "paused",
		"delete":         "deleted",
		"status_enable":  "active",
		"status_disable": "paused",
		"status_delete":  "deleted",
	}

	facebookCampaignType = map[string]string{
		"link_clicks":           "traffic",
		"conversions":           "conversions",
		"app_installs":          "app_install",
		"brand_awareness":       "awareness",
		"reach":                 "reach",
		"video_views":           "video",
		"lead_generation":       "leads",
		"messages":              "messages",
		"engagement":            "engagement",
		"store_traffic":         "store_visits",
		"catalog_sales":         "sales",
		"outcome_awareness":     "awareness",
		"outcome_engagement":    "engagement",
		"outcome_leads":         "leads",
		"outcome_sales":         "sales",
		"outcome_traffic":       "traffic",
		"outcome_app_promotion": "app_install",
	}
	googleCampaignType = map[string]string{
		"search":          "search",
		"display":         "display",
		"shopping":        "shopping",
		"video":           "video",
		"multi_channel":   "performance_max",
		"smart":           "smart",
		"local":           "local",
		"hotel":           "hotel",
		"performance_max": "performance_max",
		"demand_gen":      "demand_gen",
	}
	tiktokCampaignType = map[string]string{
		"traffic":         "traffic",
		"conversions":     "conversions",
		"app_install":     "app_install",
		"reach":           "reach",
		"video_views":     "video",
		"lead_generation": "leads",
		"catalog_sales":   "sales",
	}
)

// foldLevel maps source hierarchy names onto campaign, adgroup or ad.
func foldLevel(level string) string {
	switch strings.ToLower(level) {
	case model.LevelCampaign:
		return model.LevelCampaign
	case model.LevelAdGroup, "adset":
		return model.LevelAdGroup
	default:
		return model.LevelAd
	}
}

// hierarchyID builds prefix_campaign[_group[_ad]] for the level, then any suffix.
func hierarchyID(prefix, level, campaign, group, ad string, suffix ...string) string {
	parts := []string{prefix, campaign}
	switch level {
	case model.LevelCampaign:
	case model.LevelAdGroup:
		parts = append(parts, group)
	default:
		parts = append(parts, group, ad)
	}
	parts = append(parts, suffix...)
	return strings.Join(parts, "_")
}

// unwrap returns the payload of an envelope whose type is listed, or of an
// untyped record carrying a data object. Anything else is its own payload.
func unwrap(rec model.Raw, envelopes ...string) (model.Raw, Context, bool) {
	ctx := Context{ExtractedAt: rec["extracted_at"]}
	typ := str(rec, "type")
	data, isMap := rec["data"].(map[string]any)
	enveloped := false
	for _, e := range envelopes {
		if typ == e {
			enveloped = true
			break
		}
	}
	if !enveloped && !(typ == "" && isMap) {
		return rec, ctx, false
	}
	ctx.EnvelopeType = typ
	if data == nil {
		data = model.Raw{}
	}
	if ts := data["extracted_at"]; truthy(ts) {
		ctx.ExtractedAt = ts
	}
	return data, ctx, true
}

// adDraft is a UnifiedAd whose dates, status and type are still source values.
type adDraft struct {
	ad           model.UnifiedAd
	date         any
	dateStart    any
	dateEnd      any
	extractedAt  any
	status       string
	campaignType string
}

type adVocabulary struct {
	status       map[string]string
	campaignType map[string]string
}

// finishAd applies the normalization common to every ad platform.
func finishAd(o *options, d adDraft, vocab adVocabulary) (model.UnifiedAd, error) {
	ad := d.ad
	ad.Currency = normalize.DefaultCurrency

	date, err := o.datetime(d.date)
	if err != nil {
		return ad, err
	}
	if date != nil {
		ad.Date = *date
	}
	if ad.DateStart, err = o.datetime(d.dateStart); err != nil {
		return ad, err
	}
	if ad.DateEnd, err = o.datetime(d.dateEnd); err != nil {
		return ad, err
	}
	if ad.ExtractedAt, err = o.utc(d.extractedAt); err != nil {
		return ad, err
	}

	if d.status != "" {
		ad.Status = ptr(normalize.Status(d.status, vocab.status, "unknown"))
	}
	if d.campaignType != "" {
		ad.CampaignType = ptr(normalize.Status(d.campaignType, vocab.campaignType, "other"))
	}
	ad.TransformedAt = o.now().UTC()
	return ad, nil
}

// deriveCostPerConversion sets spend / conversions when the source omits it.
func deriveCostPerConversion(ad *model.UnifiedAd) {
	if ad.CostPerConversion == nil && ad.Conversions > 0 {
		ad.CostPerConversion = ptr(normalize.Round2(ad.Spend / float64(ad.Conversions)))
	}
}

// deriveConversionRate sets conversions / clicks * 100 when the source omits it.
func deriveConversionRate(ad *model.UnifiedAd) {
	if ad.ConversionRate == nil && ad.Clicks > 0 {
		ad.ConversionRate = ptr(normalize.Round2(float64(ad.Conversions) / float64(ad.Clicks) * 100))
	}
}

// DetectAdsPlatform applies the ads signatures in order: Facebook, Google, TikTok.
func DetectAdsPlatform(rec model.Raw) string {
	data := payloadOf(rec)
	switch {
	case has(data, "adset_id") || has(rec, "ad_account_id"):
		return model.PlatformFacebookAds
	case has(sub(data, "metrics"), "costMicros") || has(rec, "customer_id"):
		return model.PlatformGoogleAds
	case has(rec, "advertiser_id") || has(sub(data, "dimensions"), "adgroup_id"):
		return model.PlatformTikTokAds
	default:
		return PlatformUnknown
	}
}

// payloadOf returns the data object of an envelope, or the record itself.
func payloadOf(rec model.Raw) model.Raw {
	if data, ok := rec["data"].(map[string]any); ok {
		return data
	}
	return rec
}

// Ads is the unified dispatcher over the three ad platforms.
type Ads = Dispatcher[model.UnifiedAd]

// NewAds builds an ads dispatcher with its own Facebook, Google and TikTok transformers.
func NewAds(opts ...Option) *Ads {
	o := newOptions(opts)
	return newDispatcher(model.DomainAds, "", DetectAdsPlatform, o,
		NewFacebookAds(opts...),
		NewGoogleAds(opts...),
		NewTikTokAds(opts...),
	)
}

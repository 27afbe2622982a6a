package transform

import (
	"strings"

	"market-etl/internal/model"
)

var (
	// Substring vocabulary for conversion actions.
	facebookConversionActions = []string{
		"purchase",
		"complete_registration",
		"lead",
		"add_to_cart",
		"add_payment_info",
		"initiate_checkout",
	}
	// Narrower vocabulary for the cost-per-action lookup.
	facebookCostActions = []string{"purchase", "complete_registration", "lead"}
)

type facebookAds struct {
	o *options
}

// NewFacebookAds builds the Facebook Ads insights transformer. Money is reported in USD.
func NewFacebookAds(opts ...Option) *Transformer[model.UnifiedAd] {
	return New[adDraft, model.UnifiedAd](model.DomainAds, &facebookAds{o: newOptions(opts)}, opts...)
}

func (*facebookAds) SourcePlatform() string { return model.PlatformFacebookAds }

func (*facebookAds) Unwrap(rec model.Raw) (model.Raw, Context) {
	payload, ctx, enveloped := unwrap(rec, "insight", "campaign", "adset", "ad")
	level := str(rec, "level")
	if level == "" && enveloped {
		level = ctx.EnvelopeType
	}
	if level == "" {
		level = str(payload, "level")
	}
	ctx.Level = foldLevel(level)
	ctx.AccountID = str(rec, "ad_account_id")
	if ctx.AccountID == "" {
		ctx.AccountID = str(payload, "account_id")
	}
	return payload, ctx
}

func (f *facebookAds) MapFields(p model.Raw, ctx Context) (adDraft, error) {
	var c conv
	campaignID := str(p, "campaign_id")
	adsetID := str(p, "adset_id")
	adID := str(p, "ad_id")

	conversions := int64(0)
	for _, a := range maps(p, "actions") {
		if containsAny(str(a, "action_type"), facebookConversionActions) {
			conversions += c.int(a["value"])
		}
	}
	var costPerConversion *float64
	for _, a := range maps(p, "cost_per_action_type") {
		if containsAny(str(a, "action_type"), facebookCostActions) {
			costPerConversion = ptr(c.float(a["value"]))
			break
		}
	}
	conversionValue := 0.0
	if values := maps(p, "action_values"); len(values) > 0 {
		conversionValue = c.float(values[0]["value"])
	}

	currency := str(p, "account_currency")
	if currency == "" {
		currency = "USD"
	}

	ad := model.UnifiedAd{
		RecordID:          hierarchyID("fb", ctx.Level, campaignID, adsetID, adID),
		Platform:          model.PlatformFacebookAds,
		AccountID:         ctx.AccountID,
		CampaignID:        campaignID,
		CampaignName:      optStr(p, "campaign_name"),
		AdGroupID:         optStr(p, "adset_id"),
		AdGroupName:       optStr(p, "adset_name"),
		AdID:              optStr(p, "ad_id"),
		AdName:            optStr(p, "ad_name"),
		Impressions:       c.int(p["impressions"]),
		Clicks:            c.int(p["clicks"]),
		Reach:             c.optInt(p["reach"]),
		CTR:               c.optFloat(p["ctr"]),
		CPC:               c.optFloat(p["cpc"]),
		CPM:               c.optFloat(p["cpm"]),
		SpendRaw:          c.float(p["spend"]),
		CurrencyRaw:       strings.ToUpper(currency),
		Conversions:       conversions,
		ConversionValue:   conversionValue,
		CostPerConversion: costPerConversion,
		VideoViewsP25:     videoMetric(&c, p, "video_p25_watched_actions"),
		VideoViewsP50:     videoMetric(&c, p, "video_p50_watched_actions"),
		VideoViewsP75:     videoMetric(&c, p, "video_p75_watched_actions"),
		VideoViewsP100:    videoMetric(&c, p, "video_p100_watched_actions"),
		Objective:         optStr(p, "objective"),
		Level:             ctx.Level,
	}
	extracted := pick(p, "extracted_at")
	if extracted == nil {
		extracted = ctx.ExtractedAt
	}
	return adDraft{
		ad:           ad,
		date:         p["date_start"],
		dateStart:    p["date_start"],
		dateEnd:      p["date_end"],
		extractedAt:  extracted,
		status:       str(p, "effective_status", "status"),
		campaignType: strings.ToLower(str(p, "objective")),
	}, c.err
}

func (f *facebookAds) NormalizeValues(d adDraft) (model.UnifiedAd, error) {
	src := d.ad.CurrencyRaw
	d.ad.Spend = f.o.money(d.ad.SpendRaw, src)
	d.ad.CostPerConversion = f.o.optMoney(d.ad.CostPerConversion, src)
	d.ad.CPC = f.o.optMoney(d.ad.CPC, src)
	d.ad.CPM = f.o.optMoney(d.ad.CPM, src)
	deriveConversionRate(&d.ad)
	return finishAd(f.o, d, adVocabulary{status: facebookStatus, campaignType: facebookCampaignType})
}

func videoMetric(c *conv, p model.Raw, field string) *int64 {
	if list := maps(p, field); len(list) > 0 {
		return ptr(c.int(list[0]["value"]))
	}
	return nil
}

func containsAny(s string, vocab []string) bool {
	for _, v := range vocab {
		if strings.Contains(s, v) {
			return true
		}
	}
	return false
}

package transform

import "market-etl/internal/model"

type tiktokAds struct {
	o *options
}

// NewTikTokAds builds the TikTok Ads report transformer. Money is in the account currency.
func NewTikTokAds(opts ...Option) *Transformer[model.UnifiedAd] {
	return New[adDraft, model.UnifiedAd](model.DomainAds, &tiktokAds{o: newOptions(opts)}, opts...)
}

func (*tiktokAds) SourcePlatform() string { return model.PlatformTikTokAds }

func (*tiktokAds) Unwrap(rec model.Raw) (model.Raw, Context) {
	payload, ctx, _ := unwrap(rec, "campaign", "adgroup", "ad")
	ctx.Level = foldLevel(str(rec, "type"))
	ctx.AccountID = str(rec, "advertiser_id")
	if ctx.AccountID == "" {
		ctx.AccountID = str(payload, "advertiser_id")
	}
	return payload, ctx
}

func (t *tiktokAds) MapFields(p model.Raw, ctx Context) (adDraft, error) {
	var c conv
	dims := sub(p, "dimensions")
	metrics := sub(p, "metrics")

	campaignID := text(lookup(dims, p, "campaign_id"))
	adGroupID := text(lookup(dims, p, "adgroup_id"))
	adID := text(lookup(dims, p, "ad_id"))
	statTime := str(dims, "stat_time_day")

	name := func(key string) *string {
		if s := optStr(p, key); s != nil {
			return s
		}
		return optStr(metrics, key)
	}

	ad := model.UnifiedAd{
		RecordID:          hierarchyID("tiktok", ctx.Level, campaignID, adGroupID, adID, statTime),
		Platform:          model.PlatformTikTokAds,
		AccountID:         ctx.AccountID,
		CampaignID:        campaignID,
		CampaignName:      name("campaign_name"),
		AdGroupID:         nonEmpty(adGroupID),
		AdGroupName:       name("adgroup_name"),
		AdID:              nonEmpty(adID),
		AdName:            name("ad_name"),
		Impressions:       c.int(metrics["impressions"]),
		Clicks:            c.int(metrics["clicks"]),
		Reach:             c.optInt(metrics["reach"]),
		CTR:               c.optFloat(metrics["ctr"]),
		CPC:               c.optFloat(metrics["cpc"]),
		CPM:               c.optFloat(metrics["cpm"]),
		SpendRaw:          c.float(metrics["spend"]),
		CurrencyRaw:       "THB",
		Conversions:       c.int(metrics["conversion"]),
		ConversionValue:   c.float(metrics["total_purchase_value"]),
		CostPerConversion: c.optFloat(metrics["cost_per_conversion"]),
		ConversionRate:    c.optFloat(metrics["conversion_rate"]),
		VideoViews:        c.optInt(metrics["video_play_actions"]),
		VideoViewsP25:     c.optInt(metrics["video_views_p25"]),
		VideoViewsP50:     c.optInt(metrics["video_views_p50"]),
		VideoViewsP75:     c.optInt(metrics["video_views_p75"]),
		VideoViewsP100:    c.optInt(metrics["video_views_p100"]),
		Likes:             c.optInt(metrics["likes"]),
		Comments:          c.optInt(metrics["comments"]),
		Shares:            c.optInt(metrics["shares"]),
		Follows:           c.optInt(metrics["follows"]),
		Objective:         optStr(p, "objective_type"),
		Level:             ctx.Level,
	}

	extracted := pick(p, "extracted_at")
	if extracted == nil {
		extracted = ctx.ExtractedAt
	}
	var date any = statTime
	if statTime == "" {
		date = extracted
	}
	return adDraft{
		ad:           ad,
		date:         date,
		extractedAt:  extracted,
		status:       str(p, "operation_status", "status"),
		campaignType: str(p, "objective_type"),
	}, c.err
}

func (t *tiktokAds) NormalizeValues(d adDraft) (model.UnifiedAd, error) {
	d.ad.Spend = d.ad.SpendRaw
	deriveCostPerConversion(&d.ad)
	deriveConversionRate(&d.ad)
	return finishAd(t.o, d, adVocabulary{status: tiktokStatus, campaignType: tiktokCampaignType})
}

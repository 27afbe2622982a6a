package transform

import (
	"strings"

	"github.com/shopspring/decimal"

	"market-etl/internal/model"
)

var microsPerUnit = decimal.NewFromInt(1_000_000)

type googleAds struct {
	o *options
}

// NewGoogleAds builds the Google Ads transformer. Money arrives in micros of the account currency.
func NewGoogleAds(opts ...Option) *Transformer[model.UnifiedAd] {
	return New[adDraft, model.UnifiedAd](model.DomainAds, &googleAds{o: newOptions(opts)}, opts...)
}

func (*googleAds) SourcePlatform() string { return model.PlatformGoogleAds }

func (*googleAds) Unwrap(rec model.Raw) (model.Raw, Context) {
	payload, ctx, _ := unwrap(rec, "campaign", "adgroup", "ad", "keyword", "custom")
	level := str(rec, "type")
	if level == "" {
		level = model.LevelCampaign
	}
	ctx.Level = foldLevel(level)
	ctx.AccountID = str(rec, "customer_id")
	return payload, ctx
}

func (g *googleAds) MapFields(p model.Raw, ctx Context) (adDraft, error) {
	var c conv
	campaign := sub(p, "campaign")
	adGroup := sub(p, "adGroup")
	ad := sub(sub(p, "adGroupAd"), "ad")
	metrics := sub(p, "metrics")

	campaignID := text(campaign["id"])
	adGroupID := text(adGroup["id"])
	adID := text(ad["id"])

	var cpc, cpm *float64
	if v := metrics["averageCpc"]; truthy(v) {
		cpc = ptr(c.decimal(v).Div(microsPerUnit).InexactFloat64())
	}
	if v := metrics["averageCpm"]; truthy(v) {
		cpm = ptr(c.decimal(v).Div(microsPerUnit).InexactFloat64())
	}

	out := model.UnifiedAd{
		RecordID:        hierarchyID("gads", ctx.Level, campaignID, adGroupID, adID),
		Platform:        model.PlatformGoogleAds,
		AccountID:       ctx.AccountID,
		CampaignID:      campaignID,
		CampaignName:    optStr(campaign, "name"),
		AdGroupID:       nonEmpty(adGroupID),
		AdGroupName:     optStr(adGroup, "name"),
		AdID:            nonEmpty(adID),
		AdName:          optStr(ad, "name"),
		Impressions:     c.int(metrics["impressions"]),
		Clicks:          c.int(metrics["clicks"]),
		CTR:             c.optFloat(metrics["ctr"]),
		CPC:             cpc,
		CPM:             cpm,
		SpendRaw:        c.decimal(metrics["costMicros"]).Div(microsPerUnit).InexactFloat64(),
		CurrencyRaw:     "THB",
		Conversions:     c.int(metrics["conversions"]),
		ConversionValue: c.float(metrics["conversionsValue"]),
		Level:           ctx.Level,
	}

	date := pick(p, "date")
	if date == nil {
		date = pick(sub(p, "segments"), "date")
	}
	extracted := pick(p, "extracted_at")
	if extracted == nil {
		extracted = ctx.ExtractedAt
	}
	if date == nil {
		date = extracted
	}
	return adDraft{
		ad:           out,
		date:         date,
		extractedAt:  extracted,
		status:       strings.ToLower(str(campaign, "status")),
		campaignType: strings.ToLower(str(campaign, "advertisingChannelType")),
	}, c.err
}

func (g *googleAds) NormalizeValues(d adDraft) (model.UnifiedAd, error) {
	d.ad.Spend = d.ad.SpendRaw
	deriveCostPerConversion(&d.ad)
	deriveConversionRate(&d.ad)
	return finishAd(g.o, d, adVocabulary{status: googleStatus, campaignType: googleCampaignType})
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

package model

import "time"

// UnifiedAd is one row per platform node and day at a declared level.
type UnifiedAd struct {
	RecordID     string  `json:"record_id" validate:"required"`
	Platform     string  `json:"platform" validate:"required,oneof=facebook_ads google_ads tiktok_ads"`
	AccountID    string  `json:"account_id"`
	CampaignID   string  `json:"campaign_id"`
	CampaignName *string `json:"campaign_name"`
	AdGroupID    *string `json:"adgroup_id"`
	AdGroupName  *string `json:"adgroup_name"`
	AdID         *string `json:"ad_id"`
	AdName       *string `json:"ad_name"`

	Impressions int64    `json:"impressions" validate:"gte=0"`
	Clicks      int64    `json:"clicks" validate:"gte=0"`
	Reach       *int64   `json:"reach" validate:"omitnil,gte=0"`
	CTR         *float64 `json:"ctr"`
	CPC         *float64 `json:"cpc"`
	CPM         *float64 `json:"cpm"`

	Spend       float64 `json:"spend" validate:"gte=0"`
	SpendRaw    float64 `json:"spend_raw"`
	Currency    string  `json:"currency" validate:"eq=THB"`
	CurrencyRaw string  `json:"currency_raw" validate:"required,len=3"`

	Conversions       int64    `json:"conversions" validate:"gte=0"`
	ConversionValue   float64  `json:"conversion_value"`
	CostPerConversion *float64 `json:"cost_per_conversion"`
	ConversionRate    *float64 `json:"conversion_rate"`

	VideoViews     *int64 `json:"video_views" validate:"omitnil,gte=0"`
	VideoViewsP25  *int64 `json:"video_views_p25" validate:"omitnil,gte=0"`
	VideoViewsP50  *int64 `json:"video_views_p50" validate:"omitnil,gte=0"`
	VideoViewsP75  *int64 `json:"video_views_p75" validate:"omitnil,gte=0"`
	VideoViewsP100 *int64 `json:"video_views_p100" validate:"omitnil,gte=0"`

	Likes    *int64 `json:"likes" validate:"omitnil,gte=0"`
	Comments *int64 `json:"comments" validate:"omitnil,gte=0"`
	Shares   *int64 `json:"shares" validate:"omitnil,gte=0"`
	Follows  *int64 `json:"follows" validate:"omitnil,gte=0"`

	Status       *string `json:"status"`
	CampaignType *string `json:"campaign_type"`
	Objective    *string `json:"objective"`

	Date      time.Time  `json:"date" validate:"required"`
	DateStart *time.Time `json:"date_start"`
	DateEnd   *time.Time `json:"date_end"`
	Level     string     `json:"level" validate:"oneof=campaign adgroup ad"`

	ExtractedAt   *time.Time `json:"extracted_at"`
	TransformedAt time.Time  `json:"transformed_at"`
}

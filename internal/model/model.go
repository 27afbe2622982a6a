// Package model defines the unified record schemas produced by the transform layer.
package model

import "time"

// Raw is an untyped input payload or extractor envelope.
type Raw = map[string]any

// Domains handled by the pipeline.
const (
	DomainAds      = "ads"
	DomainOrders   = "orders"
	DomainProducts = "products"
	DomainGA4      = "ga4"
)

// Source platform tags.
const (
	PlatformFacebookAds = "facebook_ads"
	PlatformGoogleAds   = "google_ads"
	PlatformTikTokAds   = "tiktok_ads"
	PlatformShopee      = "shopee"
	PlatformLazada      = "lazada"
	PlatformTikTokShop  = "tiktok_shop"
	PlatformGA4         = "ga4"
)

// Ad hierarchy levels.
const (
	LevelCampaign = "campaign"
	LevelAdGroup  = "adgroup"
	LevelAd       = "ad"
)

// Domains lists every domain in a fixed order.
func Domains() []string {
	return []string{DomainAds, DomainOrders, DomainProducts, DomainGA4}
}

// NowUTC is the clock used for transformed_at stamps. Tests may replace it.
var NowUTC = func() time.Time { return time.Now().UTC() }

package model

import "time"

// UnifiedProduct is one row per distinct platform product and SKU.
type UnifiedProduct struct {
	ProductID         string `json:"product_id" validate:"required"`
	Platform          string `json:"platform" validate:"required,oneof=shopee lazada tiktok_shop"`
	PlatformProductID string `json:"platform_product_id" validate:"required"`

	SKU       *string `json:"sku"`
	SellerSKU *string `json:"seller_sku"`
	MasterSKU *string `json:"master_sku"`

	Name      string  `json:"name"`
	Variation *string `json:"variation"`
	Category  *string `json:"category"`
	Brand     *string `json:"brand"`

	UnitPrice     float64  `json:"unit_price" validate:"gte=0"`
	OriginalPrice *float64 `json:"original_price" validate:"omitnil,gte=0"`
	DiscountPrice *float64 `json:"discount_price" validate:"omitnil,gte=0"`
	Currency      string   `json:"currency" validate:"eq=THB"`
	CurrencyRaw   string   `json:"currency_raw" validate:"required"`

	Weight     *float64 `json:"weight"`
	WeightUnit string   `json:"weight_unit" validate:"required"`

	IsActive bool `json:"is_active"`
	IsMapped bool `json:"is_mapped"`

	FirstSeenAt   *time.Time `json:"first_seen_at"`
	LastSeenAt    *time.Time `json:"last_seen_at"`
	ExtractedAt   *time.Time `json:"extracted_at"`
	TransformedAt time.Time  `json:"transformed_at"`
}

// SetMasterSKU attaches a master SKU and keeps IsMapped consistent with it.
func (p *UnifiedProduct) SetMasterSKU(master *string) {
	p.MasterSKU = master
	p.IsMapped = master != nil
}

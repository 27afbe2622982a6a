package model

import "time"

// Normalized order statuses.
const (
	OrderPending       = "pending"
	OrderConfirmed     = "confirmed"
	OrderShipped       = "shipped"
	OrderCompleted     = "completed"
	OrderCancelled     = "cancelled"
	OrderReturned      = "returned"
	OrderFailed        = "failed"
	OrderOnHold        = "on_hold"
	OrderReturnPending = "return_pending"
	OrderCancelPending = "cancel_pending"
	OrderUnknown       = "unknown"
)

// OrderItem is one line item owned by its parent order.
type OrderItem struct {
	ItemID     string   `json:"item_id" validate:"required"`
	ProductID  string   `json:"product_id"`
	SKU        *string  `json:"sku"`
	Name       string   `json:"name"`
	Quantity   int64    `json:"quantity" validate:"min=1"`
	UnitPrice  float64  `json:"unit_price" validate:"gte=0"`
	TotalPrice float64  `json:"total_price" validate:"gte=0"`
	Discount   float64  `json:"discount"`
	Platform   string   `json:"platform" validate:"required"`
	Variation  *string  `json:"variation"`
	Weight     *float64 `json:"weight"`
}

// UnifiedOrder is one row per platform order.
type UnifiedOrder struct {
	OrderID         string `json:"order_id" validate:"required"`
	Platform        string `json:"platform" validate:"required,oneof=shopee lazada tiktok_shop"`
	PlatformOrderID string `json:"platform_order_id" validate:"required"`

	CustomerID    *string `json:"customer_id"`
	CustomerName  *string `json:"customer_name"`
	CustomerPhone *string `json:"customer_phone"`

	Status        string     `json:"status" validate:"oneof=pending confirmed shipped completed cancelled returned failed on_hold return_pending cancel_pending unknown"`
	StatusRaw     string     `json:"status_raw"`
	OrderDate     time.Time  `json:"order_date" validate:"required"`
	PaidDate      *time.Time `json:"paid_date"`
	ShippedDate   *time.Time `json:"shipped_date"`
	CompletedDate *time.Time `json:"completed_date"`

	Subtotal    float64 `json:"subtotal"`
	ShippingFee float64 `json:"shipping_fee"`
	Discount    float64 `json:"discount"`
	Total       float64 `json:"total"`
	Currency    string  `json:"currency" validate:"eq=THB"`
	CurrencyRaw string  `json:"currency_raw" validate:"required"`

	ShippingAddress *string `json:"shipping_address"`
	ShippingMethod  *string `json:"shipping_method"`
	TrackingNumber  *string `json:"tracking_number"`

	Items     []OrderItem `json:"items" validate:"dive"`
	ItemCount int         `json:"item_count"`

	ExtractedAt   *time.Time `json:"extracted_at"`
	TransformedAt time.Time  `json:"transformed_at"`
}

// OrderItemRecord is a line item flattened out of its order.
type OrderItemRecord struct {
	OrderID   string    `json:"order_id"`
	OrderDate time.Time `json:"order_date"`
	OrderItem
	TransformedAt time.Time `json:"transformed_at"`
}

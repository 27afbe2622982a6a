package transform

import (
	"strings"

	"market-etl/internal/model"
)

type tiktokShopOrders struct {
	o *options
}

// NewTikTokShopOrders builds the TikTok Shop order transformer. Dates are Unix seconds.
func NewTikTokShopOrders(opts ...Option) *Transformer[model.UnifiedOrder] {
	return New[orderDraft, model.UnifiedOrder](model.DomainOrders, &tiktokShopOrders{o: newOptions(opts)}, opts...)
}

func (*tiktokShopOrders) SourcePlatform() string { return model.PlatformTikTokShop }

func (*tiktokShopOrders) Unwrap(rec model.Raw) (model.Raw, Context) { return unwrapOrder(rec) }

func (t *tiktokShopOrders) MapFields(p model.Raw, ctx Context) (orderDraft, error) {
	orderID := str(p, "order_id", "id")
	if orderID == "" {
		return orderDraft{}, missing(model.PlatformTikTokShop, "Missing order_id")
	}

	var c conv
	items, err := t.items(&c, p)
	if err != nil {
		return orderDraft{}, err
	}

	payment := sub(p, "payment_info")
	if payment == nil {
		payment = sub(p, "payment")
	}
	subtotal := c.float(pick(payment, "sub_total", "original_total_product_price"))
	shipping := c.float(pick(payment, "shipping_fee", "original_shipping_fee"))
	discount := c.float(payment["seller_discount"]) + c.float(payment["platform_discount"])
	total := c.float(pick(payment, "total_amount"))
	if total == 0 {
		total = c.float(p["payment_method_amount"])
	}
	if total == 0 {
		total = subtotal + shipping - discount
	}

	recipient := sub(p, "recipient_address")
	order := model.UnifiedOrder{
		OrderID:         "tiktok_" + orderID,
		Platform:        model.PlatformTikTokShop,
		PlatformOrderID: orderID,
		CustomerID:      optStr(p, "buyer_uid", "user_id"),
		CustomerName:    optStr(recipient, "full_name", "name"),
		CustomerPhone:   optStr(recipient, "phone_number", "phone"),
		StatusRaw:       str(p, "order_status", "status"),
		Subtotal:        subtotal,
		ShippingFee:     shipping,
		Discount:        discount,
		Total:           total,
		ShippingAddress: joinPresent(
			str(recipient, "address_detail", "full_address"),
			str(recipient, "district"),
			str(recipient, "city"),
			str(recipient, "state"),
			str(recipient, "region"),
			str(recipient, "zipcode", "postal_code"),
		),
		ShippingMethod: optStr(p, "shipping_provider"),
		TrackingNumber: optStr(p, "tracking_number"),
		Items:          items,
	}
	return orderDraft{
		order:       order,
		currency:    strings.ToUpper(currencyOf(payment)),
		orderDate:   p["create_time"],
		paidDate:    p["paid_time"],
		shippedDate: p["shipping_due_time"],
		doneDate:    p["complete_time"],
		extractedAt: extractedAt(p, ctx),
	}, c.err
}

func (t *tiktokShopOrders) items(c *conv, p model.Raw) ([]model.OrderItem, error) {
	raw := maps(p, "item_list", "line_items")
	items := make([]model.OrderItem, 0, len(raw))
	for _, it := range raw {
		id := str(it, "id")
		if id == "" {
			return nil, missing(model.PlatformTikTokShop, "Missing line item id")
		}
		qty := c.int(it["quantity"])
		if qty == 0 {
			qty = 1
		}
		unit := c.float(pick(it, "sale_price", "sku_sale_price"))
		items = append(items, model.OrderItem{
			ItemID:     id,
			ProductID:  str(it, "product_id"),
			SKU:        optStr(it, "seller_sku", "sku_id"),
			Name:       str(it, "product_name"),
			Quantity:   qty,
			UnitPrice:  unit,
			TotalPrice: lineTotal(unit, qty),
			Discount:   c.float(it["platform_discount"]) + c.float(it["seller_discount"]),
			Platform:   model.PlatformTikTokShop,
			Variation:  optStr(it, "sku_name"),
			Weight:     c.optFloat(it["weight"]),
		})
	}
	return items, nil
}

func (t *tiktokShopOrders) NormalizeValues(d orderDraft) (model.UnifiedOrder, error) {
	return finishOrder(t.o, d, tiktokShopOrderStatus)
}

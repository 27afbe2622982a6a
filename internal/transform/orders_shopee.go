package transform

import (
	"strings"

	"market-etl/internal/model"
)

type shopeeOrders struct {
	o *options
}

// NewShopeeOrders builds the Shopee order transformer. Dates are Unix seconds.
func NewShopeeOrders(opts ...Option) *Transformer[model.UnifiedOrder] {
	return New[orderDraft, model.UnifiedOrder](model.DomainOrders, &shopeeOrders{o: newOptions(opts)}, opts...)
}

func (*shopeeOrders) SourcePlatform() string { return model.PlatformShopee }

func (*shopeeOrders) Unwrap(rec model.Raw) (model.Raw, Context) { return unwrapOrder(rec) }

func (s *shopeeOrders) MapFields(p model.Raw, ctx Context) (orderDraft, error) {
	orderSN := str(p, "order_sn", "ordersn")
	if orderSN == "" {
		return orderDraft{}, missing(model.PlatformShopee, "Missing order_sn")
	}

	var c conv
	items, err := s.items(&c, p)
	if err != nil {
		return orderDraft{}, err
	}

	recipient := sub(p, "recipient_address")
	name := optStr(p, "buyer_username")
	if name == nil {
		name = optStr(recipient, "name")
	}

	subtotal := c.float(p["total_amount"])
	if subtotal == 0 {
		subtotal = sumTotals(items)
	}
	statusRaw := str(p, "order_status")

	order := model.UnifiedOrder{
		OrderID:         "shopee_" + orderSN,
		Platform:        model.PlatformShopee,
		PlatformOrderID: orderSN,
		CustomerID:      optStr(p, "buyer_user_id"),
		CustomerName:    name,
		CustomerPhone:   optStr(recipient, "phone"),
		StatusRaw:       statusRaw,
		Subtotal:        subtotal,
		ShippingFee:     c.float(pick(p, "actual_shipping_fee", "estimated_shipping_fee")),
		Discount:        c.float(p["seller_discount"]) + c.float(p["voucher_seller"]),
		Total:           c.float(p["total_amount"]),
		ShippingAddress: joinPresent(
			str(recipient, "full_address"),
			str(recipient, "district"),
			str(recipient, "city"),
			str(recipient, "state"),
			str(recipient, "zipcode"),
		),
		ShippingMethod: optStr(p, "shipping_carrier"),
		TrackingNumber: optStr(p, "tracking_no", "tracking_number"),
		Items:          items,
	}

	d := orderDraft{
		order:       order,
		currency:    strings.ToUpper(currencyOf(p)),
		orderDate:   p["create_time"],
		paidDate:    p["pay_time"],
		shippedDate: p["ship_by_date"],
		extractedAt: extractedAt(p, ctx),
	}
	if strings.EqualFold(statusRaw, "COMPLETED") {
		d.doneDate = p["update_time"]
	}
	return d, c.err
}

func (s *shopeeOrders) items(c *conv, p model.Raw) ([]model.OrderItem, error) {
	raw := maps(p, "item_list", "items")
	items := make([]model.OrderItem, 0, len(raw))
	for _, it := range raw {
		id := str(it, "item_id")
		if id == "" {
			return nil, missing(model.PlatformShopee, "Missing item_id in item_list")
		}
		qty := c.int(pick(it, "model_quantity_purchased", "quantity"))
		if qty == 0 {
			qty = 1
		}
		unit := c.float(pick(it, "model_discounted_price", "item_price"))
		items = append(items, model.OrderItem{
			ItemID:     id,
			ProductID:  id,
			SKU:        optStr(it, "model_sku", "item_sku"),
			Name:       str(it, "item_name"),
			Quantity:   qty,
			UnitPrice:  unit,
			TotalPrice: lineTotal(unit, qty),
			Platform:   model.PlatformShopee,
			Variation:  optStr(it, "model_name"),
			Weight:     c.optFloat(it["weight"]),
		})
	}
	return items, nil
}

func (s *shopeeOrders) NormalizeValues(d orderDraft) (model.UnifiedOrder, error) {
	return finishOrder(s.o, d, shopeeOrderStatus)
}

package transform

import (
	"strings"

	"market-etl/internal/model"
)

type lazadaOrders struct {
	o *options
}

// NewLazadaOrders builds the Lazada order transformer. Dates are ISO strings.
func NewLazadaOrders(opts ...Option) *Transformer[model.UnifiedOrder] {
	return New[orderDraft, model.UnifiedOrder](model.DomainOrders, &lazadaOrders{o: newOptions(opts)}, opts...)
}

func (*lazadaOrders) SourcePlatform() string { return model.PlatformLazada }

func (*lazadaOrders) Unwrap(rec model.Raw) (model.Raw, Context) { return unwrapOrder(rec) }

func (l *lazadaOrders) MapFields(p model.Raw, ctx Context) (orderDraft, error) {
	orderID := str(p, "order_id", "order_number")
	if orderID == "" {
		return orderDraft{}, missing(model.PlatformLazada, "Missing order_id")
	}

	var c conv
	items, err := l.items(&c, p)
	if err != nil {
		return orderDraft{}, err
	}

	subtotal := c.float(p["price"])
	if subtotal == 0 {
		subtotal = sumTotals(items)
	}
	shipping := c.float(p["shipping_fee"])
	discount := c.float(p["voucher_seller"]) + c.float(p["voucher_platform"])
	total := subtotal - discount + shipping
	if v, ok := p["price"]; ok && v != nil {
		total = c.float(v)
	}

	var statusRaw string
	var delivered bool
	if statuses, ok := p["statuses"].([]any); ok {
		if len(statuses) > 0 {
			statusRaw = text(statuses[0])
		}
		for _, s := range statuses {
			if strings.Contains(strings.ToLower(text(s)), "delivered") {
				delivered = true
			}
		}
	} else {
		statusRaw = str(p, "status")
	}

	name := strings.TrimSpace(str(p, "customer_first_name") + " " + str(p, "customer_last_name"))

	var address, phone *string
	switch addr := p["address_shipping"].(type) {
	case string:
		address = nonEmpty(strings.TrimSpace(addr))
	case map[string]any:
		phone = optStr(addr, "phone")
		address = joinPresent(
			str(addr, "address1"),
			str(addr, "address2"),
			str(addr, "address3"),
			str(addr, "city"),
			str(addr, "ward"),
			str(addr, "region"),
			str(addr, "post_code"),
		)
	}

	order := model.UnifiedOrder{
		OrderID:         "lazada_" + orderID,
		Platform:        model.PlatformLazada,
		PlatformOrderID: orderID,
		CustomerID:      optStr(p, "customer_id", "buyer_id"),
		CustomerName:    nonEmpty(name),
		CustomerPhone:   phone,
		StatusRaw:       statusRaw,
		Subtotal:        subtotal,
		ShippingFee:     shipping,
		Discount:        discount,
		Total:           total,
		ShippingAddress: address,
		ShippingMethod:  optStr(p, "shipping_provider"),
		TrackingNumber:  optStr(p, "tracking_code"),
		Items:           items,
	}
	d := orderDraft{
		order:       order,
		currency:    strings.ToUpper(currencyOf(p)),
		orderDate:   p["created_at"],
		paidDate:    p["payment_method_paid_date"],
		shippedDate: p["shipped_at"],
		extractedAt: extractedAt(p, ctx),
	}
	if delivered {
		d.doneDate = p["updated_at"]
	}
	return d, c.err
}

func (l *lazadaOrders) items(c *conv, p model.Raw) ([]model.OrderItem, error) {
	raw := maps(p, "order_items", "items")
	items := make([]model.OrderItem, 0, len(raw))
	for _, it := range raw {
		id := str(it, "order_item_id")
		if id == "" {
			return nil, missing(model.PlatformLazada, "Missing order_item_id")
		}
		qty := c.int(it["quantity"])
		if qty == 0 {
			qty = 1
		}
		unit := c.float(pick(it, "item_price", "paid_price"))
		items = append(items, model.OrderItem{
			ItemID:     id,
			ProductID:  str(it, "product_id", "sku_id"),
			SKU:        optStr(it, "sku", "seller_sku"),
			Name:       str(it, "name"),
			Quantity:   qty,
			UnitPrice:  unit,
			TotalPrice: lineTotal(unit, qty),
			Discount:   c.float(it["voucher_seller"]) + c.float(it["voucher_platform"]),
			Platform:   model.PlatformLazada,
			Variation:  optStr(it, "variation"),
			Weight:     c.optFloat(it["weight"]),
		})
	}
	return items, nil
}

func (l *lazadaOrders) NormalizeValues(d orderDraft) (model.UnifiedOrder, error) {
	return finishOrder(l.o, d, lazadaOrderStatus)
}

package transform

import (
	"market-etl/internal/model"
	"market-etl/internal/normalize"
)

var (
	shopeeOrderStatus = map[string]string{
		"unpaid":             model.OrderPending,
		"ready_to_ship":      model.OrderConfirmed,
		"processed":          model.OrderConfirmed,
		"shipped":            model.OrderShipped,
		"to_confirm_receive": model.OrderShipped,
		"completed":          model.OrderCompleted,
		"cancelled":          model.OrderCancelled,
		"to_return":          model.OrderReturnPending,
		"in_cancel":          model.OrderCancelPending,
	}
	lazadaOrderStatus = map[string]string{
		"pending":               model.OrderPending,
		"unpaid":                model.OrderPending,
		"packed":                model.OrderConfirmed,
		"ready_to_ship":         model.OrderConfirmed,
		"ready_to_ship_pending": model.OrderConfirmed,
		"shipped":               model.OrderShipped,
		"delivered":             model.OrderCompleted,
		"closed":                model.OrderCompleted,
		"cancelled":             model.OrderCancelled,
		"canceled":              model.OrderCancelled,
		"returned":              model.OrderReturned,
		"failed":                model.OrderFailed,
	}
	// TikTok Shop reports names in v2 and numeric codes in v1 of its order API.
	tiktokShopOrderStatus = map[string]string{
		"unpaid":              model.OrderPending,
		"awaiting_shipment":   model.OrderConfirmed,
		"awaiting_collection": model.OrderConfirmed,
		"in_transit":          model.OrderShipped,
		"delivered":           model.OrderCompleted,
		"completed":           model.OrderCompleted,
		"cancelled":           model.OrderCancelled,
		"on_hold":             model.OrderOnHold,
		"100":                 model.OrderPending,
		"105":                 model.OrderOnHold,
		"111":                 model.OrderConfirmed,
		"112":                 model.OrderConfirmed,
		"114":                 model.OrderShipped,
		"121":                 model.OrderShipped,
		"122":                 model.OrderCompleted,
		"130":                 model.OrderCompleted,
		"140":                 model.OrderCancelled,
	}
)

// orderDraft is a UnifiedOrder whose money is still in the source currency.
type orderDraft struct {
	order       model.UnifiedOrder
	currency    string
	orderDate   any
	paidDate    any
	shippedDate any
	doneDate    any
	extractedAt any
}

func unwrapOrder(rec model.Raw) (model.Raw, Context) {
	payload, ctx, _ := unwrap(rec, "order")
	return payload, ctx
}

func extractedAt(p model.Raw, ctx Context) any {
	if v := pick(p, "extracted_at"); v != nil {
		return v
	}
	return ctx.ExtractedAt
}

func currencyOf(m model.Raw) string {
	if c := str(m, "currency"); c != "" {
		return c
	}
	return normalize.DefaultCurrency
}

// finishOrder converts money into the reporting currency and dates into the reporting zone.
func finishOrder(o *options, d orderDraft, statuses map[string]string) (model.UnifiedOrder, error) {
	out := d.order
	out.Status = normalize.Status(out.StatusRaw, statuses, model.OrderUnknown)

	date, err := o.datetime(d.orderDate)
	if err != nil {
		return out, err
	}
	if date != nil {
		out.OrderDate = *date
	}
	if out.PaidDate, err = o.datetime(d.paidDate); err != nil {
		return out, err
	}
	if out.ShippedDate, err = o.datetime(d.shippedDate); err != nil {
		return out, err
	}
	if out.CompletedDate, err = o.datetime(d.doneDate); err != nil {
		return out, err
	}
	if out.ExtractedAt, err = o.utc(d.extractedAt); err != nil {
		return out, err
	}

	src := d.currency
	out.Subtotal = o.money(out.Subtotal, src)
	out.ShippingFee = o.money(out.ShippingFee, src)
	out.Discount = o.money(out.Discount, src)
	out.Total = o.money(out.Total, src)
	out.Currency = normalize.DefaultCurrency
	out.CurrencyRaw = src

	items := make([]model.OrderItem, len(out.Items))
	for i, it := range out.Items {
		it.UnitPrice = o.money(it.UnitPrice, src)
		it.TotalPrice = o.money(it.TotalPrice, src)
		it.Discount = o.money(it.Discount, src)
		items[i] = it
	}
	out.Items = items
	out.ItemCount = len(items)
	out.TransformedAt = o.now().UTC()
	return out, nil
}

func sumTotals(items []model.OrderItem) float64 {
	total := 0.0
	for _, it := range items {
		total += it.TotalPrice
	}
	return normalize.Round2(total)
}

// DetectOrdersPlatform applies the order signatures in order: Shopee, Lazada, TikTok Shop.
func DetectOrdersPlatform(rec model.Raw) string {
	data := payloadOf(rec)
	switch {
	case has(data, "order_sn") || has(data, "ordersn"):
		return model.PlatformShopee
	case has(data, "statuses") || (has(data, "order_id") && has(data, "order_items")):
		return model.PlatformLazada
	case has(data, "buyer_uid") || has(data, "payment_info"):
		return model.PlatformTikTokShop
	default:
		return PlatformUnknown
	}
}

// Orders is the unified dispatcher over the three marketplaces.
type Orders = Dispatcher[model.UnifiedOrder]

// NewOrders builds an orders dispatcher with its own Shopee, Lazada and TikTok Shop transformers.
func NewOrders(opts ...Option) *Orders {
	o := newOptions(opts)
	return newDispatcher(model.DomainOrders, "order", DetectOrdersPlatform, o,
		NewShopeeOrders(opts...),
		NewLazadaOrders(opts...),
		NewTikTokShopOrders(opts...),
	)
}

package transform

import (
	"iter"
	"slices"
	"time"

	"market-etl/internal/model"
)

// FlattenItems lifts each line item of order to a standalone record stamped with now.
func FlattenItems(order model.UnifiedOrder, now time.Time) []model.OrderItemRecord {
	out := make([]model.OrderItemRecord, 0, len(order.Items))
	for _, it := range order.Items {
		it.Platform = order.Platform
		out = append(out, model.OrderItemRecord{
			OrderID:       order.OrderID,
			OrderDate:     order.OrderDate,
			OrderItem:     it,
			TransformedAt: now,
		})
	}
	return out
}

// OrderItems flattens the output of its own orders dispatcher into line items.
type OrderItems struct {
	orders *Orders
	now    func() time.Time
}

// NewOrderItems builds an item flattener over a fresh orders dispatcher.
func NewOrderItems(opts ...Option) *OrderItems {
	o := newOptions(opts)
	return &OrderItems{orders: NewOrders(opts...), now: o.now}
}

// Transform yields items order by order, in source order within each order.
func (t *OrderItems) Transform(records iter.Seq[model.Raw]) iter.Seq[model.OrderItemRecord] {
	return func(yield func(model.OrderItemRecord) bool) {
		for order := range t.orders.Transform(records) {
			for _, item := range FlattenItems(order, t.now().UTC()) {
				if !yield(item) {
					return
				}
			}
		}
	}
}

// TransformSlice is Transform over an in-memory batch, collected eagerly.
func (t *OrderItems) TransformSlice(records []model.Raw) []model.OrderItemRecord {
	return slices.Collect(t.Transform(slices.Values(records)))
}

// ErrorRecords returns the dead letters of the underlying orders dispatcher.
func (t *OrderItems) ErrorRecords() []model.ErrorRecord { return t.orders.ErrorRecords() }

// ClearErrorRecords empties the underlying orders dispatcher's buffers.
func (t *OrderItems) ClearErrorRecords() { t.orders.ClearErrorRecords() }

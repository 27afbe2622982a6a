package ch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"market-etl/internal/model"
)

// insertSQL builds the prepared INSERT for t.
func insertSQL(t table) string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(t.columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.name, strings.Join(t.columns, ", "), marks)
}

// insertRows writes rows with a single prepared statement inside a transaction.
func insertRows[T any](ctx context.Context, c *Client, name string, rows []T, values func(T) ([]any, error)) error {
	if len(rows) == 0 {
		return nil
	}
	t, ok := tableByName(name)
	if !ok {
		return fmt.Errorf("unknown table %q", name)
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL(t))
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		args, err := values(row)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert into %s: %w", name, err)
		}
	}
	return tx.Commit()
}

// InsertAds writes a batch of unified ad rows.
func (c *Client) InsertAds(ctx context.Context, ads []model.UnifiedAd) error {
	return insertRows(ctx, c, TableAds, ads, adValues)
}

// InsertOrders writes a batch of unified orders. Line items go to InsertOrderItems.
func (c *Client) InsertOrders(ctx context.Context, orders []model.UnifiedOrder) error {
	return insertRows(ctx, c, TableOrders, orders, orderValues)
}

// InsertOrderItems writes a batch of flattened line items.
func (c *Client) InsertOrderItems(ctx context.Context, items []model.OrderItemRecord) error {
	return insertRows(ctx, c, TableOrderItems, items, orderItemValues)
}

// InsertProducts writes a batch of unified products.
func (c *Client) InsertProducts(ctx context.Context, products []model.UnifiedProduct) error {
	return insertRows(ctx, c, TableProducts, products, productValues)
}

// InsertGA4 splits a batch by report and writes each part to its table.
// Parts are separate transactions; a retried batch overwrites the parts that
// already landed.
func (c *Client) InsertGA4(ctx context.Context, recs []model.GA4Record) error {
	var sessions []model.GA4Session
	var traffic []model.GA4Traffic
	var pages []model.GA4Page
	for _, r := range recs {
		switch {
		case r.Session != nil:
			sessions = append(sessions, *r.Session)
		case r.Traffic != nil:
			traffic = append(traffic, *r.Traffic)
		case r.Page != nil:
			pages = append(pages, *r.Page)
		}
	}
	if err := insertRows(ctx, c, TableGA4Sessions, sessions, ga4SessionValues); err != nil {
		return err
	}
	if err := insertRows(ctx, c, TableGA4Traffic, traffic, ga4TrafficValues); err != nil {
		return err
	}
	return insertRows(ctx, c, TableGA4Pages, pages, ga4PageValues)
}

// InsertDeadLetters writes a batch of dead letters with the offending record as JSON.
func (c *Client) InsertDeadLetters(ctx context.Context, recs []model.ErrorRecord) error {
	return insertRows(ctx, c, TableDeadLetters, recs, deadLetterValues)
}

func adValues(a model.UnifiedAd) ([]any, error) {
	return []any{
		a.RecordID, a.Platform, a.AccountID, a.CampaignID, a.CampaignName,
		a.AdGroupID, a.AdGroupName, a.AdID, a.AdName,
		a.Impressions, a.Clicks, a.Reach, a.CTR, a.CPC, a.CPM,
		a.Spend, a.SpendRaw, a.Currency, a.CurrencyRaw,
		a.Conversions, a.ConversionValue, a.CostPerConversion, a.ConversionRate,
		a.VideoViews, a.VideoViewsP25, a.VideoViewsP50, a.VideoViewsP75, a.VideoViewsP100,
		a.Likes, a.Comments, a.Shares, a.Follows,
		a.Status, a.CampaignType, a.Objective,
		calendarDate(a.Date), a.Level, utcPtr(a.ExtractedAt), a.TransformedAt.UTC(),
	}, nil
}

func orderValues(o model.UnifiedOrder) ([]any, error) {
	return []any{
		o.OrderID, o.Platform, o.PlatformOrderID,
		o.CustomerID, o.CustomerName, o.CustomerPhone,
		o.Status, o.StatusRaw, o.OrderDate.UTC(), utcPtr(o.PaidDate), utcPtr(o.ShippedDate), utcPtr(o.CompletedDate),
		o.Subtotal, o.ShippingFee, o.Discount, o.Total, o.Currency, o.CurrencyRaw,
		o.ShippingAddress, o.ShippingMethod, o.TrackingNumber,
		uint32(o.ItemCount), utcPtr(o.ExtractedAt), o.TransformedAt.UTC(),
	}, nil
}

func orderItemValues(i model.OrderItemRecord) ([]any, error) {
	return []any{
		i.OrderID, i.OrderDate.UTC(), i.ItemID, i.ProductID, i.SKU, i.Name,
		i.Quantity, i.UnitPrice, i.TotalPrice, i.Discount, i.Platform,
		i.Variation, i.Weight, i.TransformedAt.UTC(),
	}, nil
}

func productValues(p model.UnifiedProduct) ([]any, error) {
	return []any{
		p.ProductID, p.Platform, p.PlatformProductID,
		p.SKU, p.SellerSKU, p.MasterSKU, p.Name, p.Variation, p.Category, p.Brand,
		p.UnitPrice, p.OriginalPrice, p.DiscountPrice, p.Currency, p.CurrencyRaw,
		p.Weight, p.WeightUnit, p.IsActive, p.IsMapped,
		utcPtr(p.FirstSeenAt), utcPtr(p.LastSeenAt), utcPtr(p.ExtractedAt), p.TransformedAt.UTC(),
	}, nil
}

func ga4SessionValues(s model.GA4Session) ([]any, error) {
	return []any{
		s.RecordID, s.PropertyID, s.Source, s.Medium, s.Campaign, s.ChannelGrouping,
		s.Sessions, s.EngagedSessions, s.TotalUsers, s.NewUsers, s.ActiveUsers, s.ReturningUsers, s.PageViews,
		s.BounceRate, s.EngagementRate, s.AvgSessionDuration, s.EventsPerSession, s.SessionDurationTotal,
		calendarDate(s.Date), utcPtr(s.ExtractedAt), s.TransformedAt.UTC(),
	}, nil
}

func ga4TrafficValues(t model.GA4Traffic) ([]any, error) {
	return []any{
		t.RecordID, t.PropertyID, t.Source, t.Medium, t.Campaign, t.ChannelGrouping,
		t.Sessions, t.TotalUsers, t.NewUsers,
		t.BounceRate, t.EngagementRate, t.AvgSessionDuration,
		t.Transactions, t.Revenue, t.AvgOrderValue, t.ConversionRate,
		calendarDate(t.Date), utcPtr(t.ExtractedAt), t.TransformedAt.UTC(),
	}, nil
}

func ga4PageValues(p model.GA4Page) ([]any, error) {
	return []any{
		p.RecordID, p.PropertyID, p.PagePath, p.PageTitle,
		p.PageViews, p.UniquePageViews, p.Sessions, p.Entrances, p.Exits,
		p.BounceRate, p.EngagementRate, p.AvgTimeOnPage, p.ExitRate,
		calendarDate(p.Date), utcPtr(p.ExtractedAt), p.TransformedAt.UTC(),
	}, nil
}

func deadLetterValues(e model.ErrorRecord) ([]any, error) {
	body, err := json.Marshal(e.Record)
	if err != nil {
		return nil, fmt.Errorf("encode dead-letter record: %w", err)
	}
	ts := e.Timestamp.UTC()
	return []any{calendarDate(ts), e.SourcePlatform, e.ErrorType, e.Error, string(body), ts}, nil
}

// calendarDate keeps the wall-clock date of t as midnight UTC so the Date
// column does not shift a Bangkok date back by one day.
func calendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

package ch

import (
	"context"
	"time"
)

// SpendPoint is one platform's ad totals for one day.
type SpendPoint struct {
	Date        time.Time `json:"date"`
	Platform    string    `json:"platform"`
	Spend       float64   `json:"spend"`
	Impressions int64     `json:"impressions"`
	Clicks      int64     `json:"clicks"`
	Conversions int64     `json:"conversions"`
}

// RevenuePoint is one platform's order totals for one day in the reporting zone.
type RevenuePoint struct {
	Date     time.Time `json:"date"`
	Platform string    `json:"platform"`
	Orders   int64     `json:"orders"`
	Revenue  float64   `json:"revenue"`
}

// DeadLetterCount groups dead letters by source and kind.
type DeadLetterCount struct {
	SourcePlatform string `json:"source_platform"`
	ErrorType      string `json:"error_type"`
	Count          int64  `json:"count"`
}

// DailySpend returns spend per platform and day over rows of one level, so
// nested levels are never double-counted.
func (c *Client) DailySpend(ctx context.Context, from, to time.Time, level string) ([]SpendPoint, error) {
	rows, err := c.db.QueryContext(ctx, `
SELECT date, platform, sum(spend), sum(impressions), sum(clicks), sum(conversions)
FROM ads FINAL
WHERE level = ? AND date BETWEEN ? AND ?
GROUP BY date, platform
ORDER BY date ASC, platform ASC`, level, calendarDate(from), calendarDate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SpendPoint
	for rows.Next() {
		var p SpendPoint
		if err := rows.Scan(&p.Date, &p.Platform, &p.Spend, &p.Impressions, &p.Clicks, &p.Conversions); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DailyRevenue returns order count and total revenue per platform and day,
// excluding cancelled, returned and failed orders. Days are cut in tz.
func (c *Client) DailyRevenue(ctx context.Context, from, to time.Time, tz string) ([]RevenuePoint, error) {
	rows, err := c.db.QueryContext(ctx, `
SELECT toDate(order_date, ?) AS day, platform, count(), sum(total)
FROM orders FINAL
WHERE status NOT IN ('cancelled', 'returned', 'failed') AND day BETWEEN ? AND ?
GROUP BY day, platform
ORDER BY day ASC, platform ASC`, tz, calendarDate(from), calendarDate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RevenuePoint
	for rows.Next() {
		var p RevenuePoint
		var orders uint64
		if err := rows.Scan(&p.Date, &p.Platform, &orders, &p.Revenue); err != nil {
			return nil, err
		}
		p.Orders = int64(orders)
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeadLetterCounts summarizes dead letters stamped within [from, to].
func (c *Client) DeadLetterCounts(ctx context.Context, from, to time.Time) ([]DeadLetterCount, error) {
	rows, err := c.db.QueryContext(ctx, `
SELECT source_platform, error_type, count()
FROM dead_letters
WHERE event_date BETWEEN ? AND ?
GROUP BY source_platform, error_type
ORDER BY count() DESC`, calendarDate(from), calendarDate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DeadLetterCount
	for rows.Next() {
		var d DeadLetterCount
		var n uint64
		if err := rows.Scan(&d.SourcePlatform, &d.ErrorType, &n); err != nil {
			return nil, err
		}
		d.Count = int64(n)
		out = append(out, d)
	}
	return out, rows.Err()
}

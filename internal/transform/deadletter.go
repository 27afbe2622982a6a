package transform

import (
	"time"

	"market-etl/internal/model"
)

// DeadLetter is an append-only, ordered buffer of failed records.
// It is owned by a single transformer and is not safe for concurrent use.
type DeadLetter struct {
	records []model.ErrorRecord
	now     func() time.Time
}

// NewDeadLetter returns an empty buffer stamped by now (UTC wall clock when nil).
func NewDeadLetter(now func() time.Time) *DeadLetter {
	if now == nil {
		now = model.NowUTC
	}
	return &DeadLetter{now: now}
}

// Add appends the failed record with its error metadata.
func (d *DeadLetter) Add(record model.Raw, err error, platform string) {
	d.records = append(d.records, model.ErrorRecord{
		Record:         record,
		Error:          err.Error(),
		ErrorType:      Kind(err),
		Timestamp:      d.now().UTC(),
		SourcePlatform: platform,
	})
}

// Records returns a copy of the buffered entries in insertion order.
func (d *DeadLetter) Records() []model.ErrorRecord {
	out := make([]model.ErrorRecord, len(d.records))
	copy(out, d.records)
	return out
}

// Len reports the number of buffered entries.
func (d *DeadLetter) Len() int { return len(d.records) }

// Clear drops every buffered entry.
func (d *DeadLetter) Clear() { d.records = nil }

package transform

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"market-etl/internal/model"
	"market-etl/internal/normalize"
)

// truthy mirrors the "present and non-empty" test extractors rely on:
// nil, "", false, numeric zero and empty collections are all absent.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	case float64:
		return x != 0
	case float32:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case int32:
		return x != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}

func has(m model.Raw, key string) bool {
	_, ok := m[key]
	return ok
}

// pick returns the first truthy value among keys, or nil.
func pick(m model.Raw, keys ...string) any {
	for _, k := range keys {
		if v := m[k]; truthy(v) {
			return v
		}
	}
	return nil
}

// lookup prefers primary when it holds key at all, else falls back.
func lookup(primary, fallback model.Raw, key string) any {
	if v, ok := primary[key]; ok {
		return v
	}
	return fallback[key]
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func str(m model.Raw, keys ...string) string {
	return text(pick(m, keys...))
}

func optStr(m model.Raw, keys ...string) *string {
	if s := str(m, keys...); s != "" {
		return &s
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

func sub(m model.Raw, key string) model.Raw {
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return nil
}

// maps returns the elements of the first truthy list among keys that are objects.
func maps(m model.Raw, keys ...string) []model.Raw {
	list, _ := pick(m, keys...).([]any)
	out := make([]model.Raw, 0, len(list))
	for _, el := range list {
		if obj, ok := el.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

// joinPresent joins the non-empty parts with ", ". All-empty yields nil.
func joinPresent(parts ...string) *string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	s := strings.Join(kept, ", ")
	return &s
}

// conv converts loosely typed numbers and keeps the first parse failure.
type conv struct {
	err error
}

func (c *conv) decimal(v any) decimal.Decimal {
	if !truthy(v) {
		return decimal.Zero
	}
	d, err := normalize.ToDecimal(v)
	if err != nil {
		if c.err == nil {
			c.err = err
		}
		return decimal.Zero
	}
	return d
}

func (c *conv) float(v any) float64 {
	return c.decimal(v).InexactFloat64()
}

func (c *conv) int(v any) int64 {
	return c.decimal(v).IntPart()
}

func (c *conv) optFloat(v any) *float64 {
	if !truthy(v) {
		return nil
	}
	return ptr(c.float(v))
}

func (c *conv) optInt(v any) *int64 {
	if !truthy(v) {
		return nil
	}
	return ptr(c.int(v))
}

// lineTotal is unit * quantity without float drift.
func lineTotal(unit float64, qty int64) float64 {
	return decimal.NewFromFloat(unit).Mul(decimal.NewFromInt(qty)).InexactFloat64()
}

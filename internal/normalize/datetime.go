package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	// Embedded zone database so Asia/Bangkok resolves on minimal images.
	_ "time/tzdata"
)

// DefaultTimezone is the reporting timezone of unified records.
const DefaultTimezone = "Asia/Bangkok"

// ErrUnsupportedDatetime is returned when a value cannot be interpreted as a point in time.
var ErrUnsupportedDatetime = errors.New("unsupported datetime value")

var (
	zonesMu sync.RWMutex
	zones   = map[string]*time.Location{}
)

// offsetLayouts carry their own offset; naiveLayouts are read in the source timezone.
var (
	offsetLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999-0700",
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02T15:04Z07:00",
		"2006-01-02 15:04:05 -0700",
	}
	naiveLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		"2006-01-02",
	}
)

// Location resolves and caches an IANA zone name. Empty means UTC.
func Location(name string) (*time.Location, error) {
	if name == "" || name == "UTC" {
		return time.UTC, nil
	}
	zonesMu.RLock()
	loc, ok := zones[name]
	zonesMu.RUnlock()
	if ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	zonesMu.Lock()
	zones[name] = loc
	zonesMu.Unlock()
	return loc, nil
}

// Datetime converts v into targetTZ. Values without an offset are read in sourceTZ.
// Integers are Unix seconds. A nil value yields a nil result.
func Datetime(v any, sourceTZ, targetTZ string) (*time.Time, error) {
	if v == nil {
		return nil, nil
	}
	if targetTZ == "" {
		targetTZ = DefaultTimezone
	}
	src, err := Location(sourceTZ)
	if err != nil {
		return nil, err
	}
	dst, err := Location(targetTZ)
	if err != nil {
		return nil, err
	}

	var t time.Time
	switch x := v.(type) {
	case time.Time:
		t = x
	case *time.Time:
		if x == nil {
			return nil, nil
		}
		t = *x
	case int:
		t = time.Unix(int64(x), 0)
	case int64:
		t = time.Unix(x, 0)
	case float64:
		if x != math.Trunc(x) {
			return nil, fmt.Errorf("%w: fractional timestamp %v", ErrUnsupportedDatetime, x)
		}
		t = time.Unix(int64(x), 0)
	case json.Number:
		secs, err := strconv.ParseInt(x.String(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedDatetime, x.String())
		}
		t = time.Unix(secs, 0)
	case string:
		t, err = parseISO(x, src)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedDatetime, v)
	}

	out := t.In(dst)
	return &out, nil
}

func parseISO(s string, src *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "z") {
		s = s[:len(s)-1] + "Z"
	}
	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, src); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnsupportedDatetime, s)
}

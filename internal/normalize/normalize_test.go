package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestCurrencyNilPassesThrough(t *testing.T) {
	c := NewCurrency(nil)
	out, err := c.Normalize(nil, "USD", "THB")
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestCurrencySameCurrencyRounds(t *testing.T) {
	c := NewCurrency(nil)
	out, err := c.Normalize(1234.5678, "THB", "THB")
	require.NoError(t, err)
	require.Equal(t, 1234.57, *out)

	again, err := c.Normalize(*out, "THB", "THB")
	require.NoError(t, err)
	require.Equal(t, *out, *again)
}

func TestCurrencyConvertsWithRate(t *testing.T) {
	c := NewCurrency(nil)
	out, err := c.Normalize("100.50", "USD", "THB")
	require.NoError(t, err)
	require.Equal(t, 3517.5, *out)

	out, err = c.Normalize("1,000", "USD", "THB")
	require.NoError(t, err)
	require.Equal(t, 35000.0, *out)

	out, err = c.Normalize(json.Number("10"), "usd", "thb")
	require.NoError(t, err)
	require.Equal(t, 350.0, *out)

	out, err = c.Normalize(decimal.RequireFromString("2"), "USD", "THB")
	require.NoError(t, err)
	require.Equal(t, 70.0, *out)
}

func TestCurrencyUnknownPairIsNoop(t *testing.T) {
	c := NewCurrency(Rates{{From: "USD", To: "THB"}: 30})
	out, err := c.Normalize(12.345, "KRW", "THB")
	require.NoError(t, err)
	require.Equal(t, 12.35, *out)

	out, err = c.Normalize(10, "USD", "THB")
	require.NoError(t, err)
	require.Equal(t, 300.0, *out)
}

func TestCurrencyRejectsGarbage(t *testing.T) {
	c := NewCurrency(nil)
	_, err := c.Normalize("abc", "USD", "THB")
	require.Error(t, err)
	_, err = c.Normalize([]int{1}, "USD", "THB")
	require.Error(t, err)
}

func TestDatetimeUnixSeconds(t *testing.T) {
	out, err := Datetime(int64(1704067200), "UTC", "Asia/Bangkok")
	require.NoError(t, err)
	require.Equal(t, "2024-01-01T07:00:00+07:00", out.Format(time.RFC3339))
	require.Equal(t, "Asia/Bangkok", out.Location().String())

	out, err = Datetime(json.Number("1704067200"), "UTC", "")
	require.NoError(t, err)
	require.Equal(t, 7, out.Hour())

	out, err = Datetime(float64(1704067200), "UTC", "UTC")
	require.NoError(t, err)
	require.Equal(t, 0, out.Hour())
}

func TestDatetimeISOStrings(t *testing.T) {
	cases := map[string]string{
		"2024-01-15T10:30:00Z":        "2024-01-15T17:30:00+07:00",
		"2024-01-15T10:30:00+07:00":   "2024-01-15T10:30:00+07:00",
		"2024-01-15T10:30:00":         "2024-01-15T17:30:00+07:00",
		"2024-01-15 10:30:00":         "2024-01-15T17:30:00+07:00",
		"2024-01-15":                  "2024-01-15T07:00:00+07:00",
		"2024-01-15T10:30:00.123456Z": "2024-01-15T17:30:00+07:00",
	}
	for in, want := range cases {
		out, err := Datetime(in, "UTC", "Asia/Bangkok")
		require.NoError(t, err, in)
		require.Equal(t, want, out.Format(time.RFC3339), in)
	}
}

func TestDatetimeNaiveUsesSourceZone(t *testing.T) {
	out, err := Datetime("2024-01-15 10:30:00", "Asia/Bangkok", "UTC")
	require.NoError(t, err)
	require.Equal(t, "2024-01-15T03:30:00Z", out.Format(time.RFC3339))
}

func TestDatetimeNilAndErrors(t *testing.T) {
	out, err := Datetime(nil, "UTC", "Asia/Bangkok")
	require.NoError(t, err)
	require.Nil(t, out)

	_, err = Datetime("yesterday", "UTC", "Asia/Bangkok")
	require.ErrorIs(t, err, ErrUnsupportedDatetime)

	_, err = Datetime(1.5, "UTC", "Asia/Bangkok")
	require.ErrorIs(t, err, ErrUnsupportedDatetime)

	_, err = Datetime("2024-01-15", "Mars/Olympus", "UTC")
	require.Error(t, err)
}

func TestStatus(t *testing.T) {
	mapping := map[string]string{"enabled": "active", "paused": "paused"}
	require.Equal(t, "active", Status("ENABLED", mapping, "unknown"))
	require.Equal(t, "paused", Status("Paused", mapping, "unknown"))
	require.Equal(t, "unknown", Status("", mapping, "unknown"))
	require.Equal(t, "other", Status("weird", mapping, "other"))
}

func TestRound2(t *testing.T) {
	require.Equal(t, 8.33, Round2(25.0/300.0*100))
	require.Equal(t, 60.0, Round2(1500.0/25.0))
}

func TestRound2HalfAwayFromZero(t *testing.T) {
	// Float products like 2.675*100 land just below the half; rounding works
	// on the shortest decimal form instead.
	require.Equal(t, 2.68, Round2(2.675))
	require.Equal(t, 1.01, Round2(1.005))
	require.Equal(t, -2.68, Round2(-2.675))
	require.Equal(t, 0.13, Round2(0.125))
}

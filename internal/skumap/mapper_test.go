package skumap

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"market-etl/internal/model"
)

const sample = "master_sku,platform,platform_sku,product_name,variation,notes\n" +
	"PROD-001,shopee,SP-12345,Mug,Red,Main product\n" +
	"PROD-001,lazada,LZ-12345,Mug,Red,\n" +
	"PROD-001,TikTok_Shop,TT-12345,Mug,Red,\n" +
	"PROD-002,shopee,SP-999,Plate,,\n" +
	",shopee,SP-000,Orphan,,\n" +
	"PROD-003,amazon,AMZ-1,Elsewhere,,\n"

func loaded(t *testing.T) *Mapper {
	t.Helper()
	m := New()
	n, err := m.LoadCSV(strings.NewReader(sample))
	require.NoError(t, err)
	require.Equal(t, 4, n)
	return m
}

func TestLoadCSVSkipsEmptyAndUnsupportedRows(t *testing.T) {
	m := loaded(t)
	require.Equal(t, 4, m.Len())
	require.False(t, m.Contains("shopee", "SP-000"))
	require.False(t, m.Contains("amazon", "AMZ-1"))

	master, ok := m.MasterSKU("SHOPEE", "SP-12345")
	require.True(t, ok)
	require.Equal(t, "PROD-001", master)

	require.Equal(t, []Pair{
		{Platform: "shopee", SKU: "SP-12345"},
		{Platform: "lazada", SKU: "LZ-12345"},
		{Platform: "tiktok_shop", SKU: "TT-12345"},
	}, m.PlatformSKUs("PROD-001"))

	d, ok := m.MappingDetails("shopee", "SP-12345")
	require.True(t, ok)
	require.Equal(t, "Mug", d.ProductName)
	require.Equal(t, "Main product", d.Notes)
}

func TestLoadCSVToleratesBOMAndReorderedColumns(t *testing.T) {
	m := New()
	n, err := m.LoadCSV(strings.NewReader("\ufeffplatform,platform_sku,master_sku\nlazada,LZ-1,PROD-9\n"))
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.True(t, m.Contains("lazada", "LZ-1"))
}

func TestLoadCSVRequiresColumns(t *testing.T) {
	_, err := New().LoadCSV(strings.NewReader("master_sku,platform\nPROD-1,shopee\n"))
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Contains(t, err.Error(), "platform_sku")

	_, err = New().LoadCSV(strings.NewReader(""))
	require.ErrorAs(t, err, &cfgErr)
}

func TestAddMappingRejectsUnsupportedPlatform(t *testing.T) {
	_, err := New().AddMapping("PROD-1", "amazon", "A1", Details{})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.True(t, errors.Is(err, ErrUnsupportedPlatform))
}

func TestAddMappingMovesPairBetweenMasters(t *testing.T) {
	clock := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	m := New(WithClock(func() time.Time { return clock }))

	_, err := m.AddMapping("PROD-1", "shopee", "SP-1", Details{})
	require.NoError(t, err)
	clock = clock.Add(time.Hour)
	moved, err := m.AddMapping("PROD-2", "shopee", "SP-1", Details{ProductName: "Mug"})
	require.NoError(t, err)

	require.Empty(t, m.PlatformSKUs("PROD-1"))
	require.Equal(t, []Pair{{Platform: "shopee", SKU: "SP-1"}}, m.PlatformSKUs("PROD-2"))
	require.Equal(t, 1, m.Len())
	require.Equal(t, 1, m.Stats().UniqueMasterSKUs)
	require.True(t, moved.UpdatedAt.After(moved.CreatedAt))

	_, err = m.AddMapping("PROD-2", "shopee", "SP-1", Details{})
	require.NoError(t, err)
	require.Len(t, m.PlatformSKUs("PROD-2"), 1, "upsert must be idempotent")
}

func TestRemoveMapping(t *testing.T) {
	m := loaded(t)
	require.True(t, m.RemoveMapping("Shopee", "SP-999"))
	require.False(t, m.RemoveMapping("shopee", "SP-999"))
	require.False(t, m.Contains("shopee", "SP-999"))
	require.Empty(t, m.PlatformSKUs("PROD-002"))
	require.Equal(t, 3, m.Len())

	_, ok := m.MappingDetails("shopee", "SP-999")
	require.False(t, ok)
}

func TestRequireMasterSKU(t *testing.T) {
	m := loaded(t)
	master, err := m.RequireMasterSKU("lazada", "LZ-12345")
	require.NoError(t, err)
	require.Equal(t, "PROD-001", master)

	_, err = m.RequireMasterSKU("lazada", "nope")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, "SKU mapping not found: lazada/nope", err.Error())
}

func TestStats(t *testing.T) {
	s := loaded(t).Stats()
	require.Equal(t, 4, s.TotalMappings)
	require.Equal(t, 2, s.UniqueMasterSKUs)
	require.Equal(t, map[string]int{"shopee": 2, "lazada": 1, "tiktok_shop": 1}, s.ByPlatform)
}

func product(platform, sku string) model.UnifiedProduct {
	p := model.UnifiedProduct{Platform: platform, Name: "Mug"}
	if sku != "" {
		p.SKU = &sku
	}
	return p
}

func TestMapProductsKeepsIsMappedConsistent(t *testing.T) {
	m := loaded(t)
	out := m.MapProducts([]model.UnifiedProduct{
		product("shopee", "SP-12345"),
		product("shopee", "SP-unknown"),
		product("lazada", ""),
		product("", "SP-12345"),
	})
	require.Equal(t, "PROD-001", *out[0].MasterSKU)
	for _, p := range out {
		require.Equal(t, p.MasterSKU != nil, p.IsMapped)
	}
	require.False(t, out[1].IsMapped)
	require.False(t, out[2].IsMapped)
	require.False(t, out[3].IsMapped)
}

func TestMapRecordUsesNamedFields(t *testing.T) {
	m := loaded(t)
	rec := model.Raw{"seller_sku": "TT-12345", "source": "TikTok_Shop"}
	out := m.MapRecord(rec, "seller_sku", "source")
	require.Equal(t, "PROD-001", out["master_sku"])
	require.Equal(t, true, out["is_mapped"])
	require.NotContains(t, rec, "master_sku")

	out = m.MapRecord(model.Raw{"platform": "shopee"}, "", "")
	require.Nil(t, out["master_sku"])
	require.Equal(t, false, out["is_mapped"])
}

func TestUnmappedSKUsDeduplicates(t *testing.T) {
	m := loaded(t)
	red := product("shopee", "SP-new")
	variation := "Red"
	red.Variation = &variation
	unmapped := m.UnmappedSKUs([]model.UnifiedProduct{
		red,
		product("shopee", "SP-new"),
		product("shopee", "SP-12345"),
		product("lazada", "LZ-new"),
	})
	require.Equal(t, []Unmapped{
		{Platform: "shopee", SKU: "SP-new", Name: "Mug", Variation: "Red", Suggested: "SP-NEW"},
		{Platform: "lazada", SKU: "LZ-new", Name: "Mug", Suggested: "LZ-NEW"},
	}, unmapped)

	var buf bytes.Buffer
	require.NoError(t, WriteUnmappedCSV(&buf, unmapped))
	require.Equal(t, "master_sku,platform,platform_sku,product_name,variation,notes\n"+
		",shopee,SP-new,Mug,Red,suggested: SP-NEW\n"+
		",lazada,LZ-new,Mug,,suggested: LZ-NEW\n", buf.String())
}

func TestSuggestMasterSKU(t *testing.T) {
	cases := []struct {
		sku, name, want string
	}{
		{"ab-123", "Ceramic Mug", "AB-123"},
		{"VERYLONGSKU-1234567890", "Ceramic Coffee Mug Large", "CECOMU-VERYLONG"},
		{"12345678901", "Ceramic Coffee Mug", "CECOMU-12345678"},
		{"x1", "mug", "MU-X1"},
		{"", "Blue Tea Cup", "BLTECU"},
		{"sku1", "", "SKU1"},
		{"sku1", "   ", "SKU1"},
		{"", "", "UNKNOWN"},
		{"ab1", "ёлка мира", "ЁЛМИ-AB1"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, SuggestMasterSKU(c.sku, c.name), "sku=%q name=%q", c.sku, c.name)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	m := loaded(t)
	path := filepath.Join(t.TempDir(), "nested", "sku_mapping.csv")
	n, err := m.SaveFile(path)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(raw), "master_sku,platform,platform_sku,product_name,variation,notes\n"))
	require.Contains(t, string(raw), "PROD-001,lazada,LZ-12345,Mug,Red,\n")

	fresh := New()
	n, err = fresh.LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, m.Stats(), fresh.Stats())
	for _, master := range []string{"PROD-001", "PROD-002"} {
		require.Equal(t, m.PlatformSKUs(master), fresh.PlatformSKUs(master))
	}
	for _, row := range m.Mappings() {
		got, ok := fresh.MasterSKU(row.Platform, row.PlatformSKU)
		require.True(t, ok)
		require.Equal(t, row.MasterSKU, got)
	}
}

func TestGenerateUnmappedCSV(t *testing.T) {
	m := loaded(t)
	path := filepath.Join(t.TempDir(), "unmapped.csv")
	n, err := m.GenerateUnmappedCSV([]model.UnifiedProduct{product("lazada", "LZ-new")}, path)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// A filled-in unmapped file loads back as mappings.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	filled := strings.Replace(string(raw), ",lazada,LZ-new", "PROD-007,lazada,LZ-new", 1)
	loadedBack, err := m.LoadCSV(strings.NewReader(filled))
	require.NoError(t, err)
	require.Equal(t, 1, loadedBack)
	require.True(t, m.Contains("lazada", "LZ-new"))
}

func TestLoadFileMissing(t *testing.T) {
	_, err := New().LoadFile(filepath.Join(t.TempDir(), "absent.csv"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

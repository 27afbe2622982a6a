// Package skumap maintains the table that ties marketplace SKUs to master SKUs.
package skumap

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"market-etl/internal/model"
)

// SupportedPlatforms is the closed set of marketplaces a mapping may name.
var SupportedPlatforms = []string{model.PlatformShopee, model.PlatformLazada, model.PlatformTikTokShop}

// Pair is one (platform, platform SKU) entry of the reverse index.
type Pair struct {
	Platform string `json:"platform"`
	SKU      string `json:"platform_sku"`
}

// Details carries the optional descriptive columns of a mapping.
type Details struct {
	ProductName string `json:"product_name,omitempty"`
	Variation   string `json:"variation,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// Mapping is one row of the table.
type Mapping struct {
	MasterSKU   string `json:"master_sku"`
	Platform    string `json:"platform"`
	PlatformSKU string `json:"platform_sku"`
	Details
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stats summarizes the table.
type Stats struct {
	TotalMappings    int            `json:"total_mappings"`
	UniqueMasterSKUs int            `json:"unique_master_skus"`
	ByPlatform       map[string]int `json:"by_platform"`
}

// Unmapped is a product SKU with no master SKU yet. Suggested is a master SKU
// derived from the SKU and name, for a reviewer to accept or replace.
type Unmapped struct {
	Platform  string `json:"platform"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Variation string `json:"variation"`
	Suggested string `json:"suggested_master_sku"`
}

// Mapper holds the forward, reverse and detail indices. Keys keeps detail
// insertion order so saves are deterministic. All methods are safe for
// concurrent use.
type Mapper struct {
	mu      sync.RWMutex
	forward map[string]map[string]string
	reverse map[string][]Pair
	details map[string]*Mapping
	keys    []string
	log     logrus.FieldLogger
	now     func() time.Time
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithLogger sets the logger used for load and save reports.
func WithLogger(log logrus.FieldLogger) Option {
	return func(m *Mapper) {
		if log != nil {
			m.log = log
		}
	}
}

// WithClock overrides the clock used for created_at and updated_at.
func WithClock(now func() time.Time) Option {
	return func(m *Mapper) {
		if now != nil {
			m.now = now
		}
	}
}

// New returns an empty mapper.
func New(opts ...Option) *Mapper {
	m := &Mapper{
		forward: map[string]map[string]string{},
		reverse: map[string][]Pair{},
		details: map[string]*Mapping{},
		now:     model.NowUTC,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		m.log = l
	}
	m.log = m.log.WithField("component", "sku_mapper")
	return m
}

func detailKey(platform, sku string) string { return platform + ":" + sku }

func supported(platform string) bool { return slices.Contains(SupportedPlatforms, platform) }

// AddMapping upserts a mapping. A pair that moves to another master SKU is
// dropped from the old master's reverse list; created_at survives the upsert.
func (m *Mapper) AddMapping(master, platform, platformSKU string, d Details) (Mapping, error) {
	platform = strings.ToLower(platform)
	if !supported(platform) {
		return Mapping{}, &ConfigurationError{Op: "add mapping", Err: fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.add(master, platform, platformSKU, d), nil
}

func (m *Mapper) add(master, platform, platformSKU string, d Details) Mapping {
	now := m.now().UTC()
	key := detailKey(platform, platformSKU)
	pair := Pair{Platform: platform, SKU: platformSKU}

	created := now
	if prev, ok := m.details[key]; ok {
		created = prev.CreatedAt
		if prev.MasterSKU != master {
			m.dropReverse(prev.MasterSKU, pair)
		}
	} else {
		m.keys = append(m.keys, key)
	}

	skus, ok := m.forward[platform]
	if !ok {
		skus = map[string]string{}
		m.forward[platform] = skus
	}
	skus[platformSKU] = master

	if !slices.Contains(m.reverse[master], pair) {
		m.reverse[master] = append(m.reverse[master], pair)
	}

	mapping := &Mapping{
		MasterSKU:   master,
		Platform:    platform,
		PlatformSKU: platformSKU,
		Details:     d,
		CreatedAt:   created,
		UpdatedAt:   now,
	}
	m.details[key] = mapping
	return *mapping
}

// RemoveMapping deletes a mapping from every index and reports whether it existed.
func (m *Mapper) RemoveMapping(platform, platformSKU string) bool {
	platform = strings.ToLower(platform)
	key := detailKey(platform, platformSKU)

	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.details[key]
	if !ok {
		return false
	}
	delete(m.details, key)
	m.keys = slices.DeleteFunc(m.keys, func(k string) bool { return k == key })

	if skus := m.forward[platform]; skus != nil {
		delete(skus, platformSKU)
		if len(skus) == 0 {
			delete(m.forward, platform)
		}
	}
	m.dropReverse(prev.MasterSKU, Pair{Platform: platform, SKU: platformSKU})
	return true
}

func (m *Mapper) dropReverse(master string, pair Pair) {
	list := slices.DeleteFunc(m.reverse[master], func(p Pair) bool { return p == pair })
	if len(list) == 0 {
		delete(m.reverse, master)
		return
	}
	m.reverse[master] = list
}

// MasterSKU looks up the master SKU; the platform name is case-insensitive.
func (m *Mapper) MasterSKU(platform, platformSKU string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	master, ok := m.forward[strings.ToLower(platform)][platformSKU]
	return master, ok
}

// RequireMasterSKU is MasterSKU that reports a miss as *NotFoundError.
func (m *Mapper) RequireMasterSKU(platform, platformSKU string) (string, error) {
	master, ok := m.MasterSKU(platform, platformSKU)
	if !ok {
		return "", &NotFoundError{Platform: strings.ToLower(platform), SKU: platformSKU}
	}
	return master, nil
}

// PlatformSKUs lists the pairs mapped to master in insertion order.
func (m *Mapper) PlatformSKUs(master string) []Pair {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.reverse[master])
}

// MappingDetails returns the full mapping row for a platform SKU.
func (m *Mapper) MappingDetails(platform, platformSKU string) (Mapping, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.details[detailKey(strings.ToLower(platform), platformSKU)]
	if !ok {
		return Mapping{}, false
	}
	return *d, true
}

// Mappings returns every row in insertion order.
func (m *Mapper) Mappings() []Mapping {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Mapping, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, *m.details[k])
	}
	return out
}

// Stats counts mappings, distinct master SKUs and mappings per platform.
func (m *Mapper) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	by := make(map[string]int, len(m.forward))
	for platform, skus := range m.forward {
		by[platform] = len(skus)
	}
	return Stats{TotalMappings: len(m.details), UniqueMasterSKUs: len(m.reverse), ByPlatform: by}
}

// Len is the number of mappings.
func (m *Mapper) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.details)
}

// Contains reports whether the platform SKU is mapped.
func (m *Mapper) Contains(platform, platformSKU string) bool {
	_, ok := m.MasterSKU(platform, platformSKU)
	return ok
}

// MapProduct attaches the master SKU of p. A product without SKU or platform
// comes back unmapped.
func (m *Mapper) MapProduct(p model.UnifiedProduct) model.UnifiedProduct {
	if p.SKU == nil || *p.SKU == "" || p.Platform == "" {
		p.SetMasterSKU(nil)
		return p
	}
	if master, ok := m.MasterSKU(p.Platform, *p.SKU); ok {
		p.SetMasterSKU(&master)
	} else {
		p.SetMasterSKU(nil)
	}
	return p
}

// MapProducts applies MapProduct to each product.
func (m *Mapper) MapProducts(products []model.UnifiedProduct) []model.UnifiedProduct {
	out := make([]model.UnifiedProduct, len(products))
	for i, p := range products {
		out[i] = m.MapProduct(p)
	}
	return out
}

// MapRecord copies rec with master_sku and is_mapped set, reading the SKU and
// platform from the named fields ("sku" and "platform" when empty).
func (m *Mapper) MapRecord(rec model.Raw, skuField, platformField string) model.Raw {
	out := maps.Clone(rec)
	if out == nil {
		out = model.Raw{}
	}
	sku, platform := recordKey(rec, skuField, platformField)
	out["master_sku"] = nil
	out["is_mapped"] = false
	if sku == "" || platform == "" {
		return out
	}
	if master, ok := m.MasterSKU(platform, sku); ok {
		out["master_sku"] = master
		out["is_mapped"] = true
	}
	return out
}

func recordKey(rec model.Raw, skuField, platformField string) (string, string) {
	if skuField == "" {
		skuField = "sku"
	}
	if platformField == "" {
		platformField = "platform"
	}
	sku, _ := rec[skuField].(string)
	platform, _ := rec[platformField].(string)
	return sku, strings.ToLower(platform)
}

// UnmappedSKUs lists the distinct (platform, sku) pairs among products that
// have no master SKU, in first-seen order.
func (m *Mapper) UnmappedSKUs(products []model.UnifiedProduct) []Unmapped {
	seen := map[Pair]struct{}{}
	var out []Unmapped
	for _, p := range products {
		if p.SKU == nil || *p.SKU == "" || p.Platform == "" {
			continue
		}
		pair := Pair{Platform: strings.ToLower(p.Platform), SKU: *p.SKU}
		if _, dup := seen[pair]; dup {
			continue
		}
		seen[pair] = struct{}{}
		if m.Contains(pair.Platform, pair.SKU) {
			continue
		}
		u := Unmapped{Platform: pair.Platform, SKU: pair.SKU, Name: p.Name, Suggested: SuggestMasterSKU(pair.SKU, p.Name)}
		if p.Variation != nil {
			u.Variation = *p.Variation
		}
		out = append(out, u)
	}
	return out
}

// SuggestMasterSKU proposes a master SKU. A short SKU that already has a
// dash is taken as is; otherwise the first two letters of up to three name
// words prefix the first eight characters of the SKU.
func SuggestMasterSKU(platformSKU, name string) string {
	sku := []rune(platformSKU)
	if len(sku) > 0 && len(sku) <= 20 && strings.Contains(platformSKU, "-") {
		return strings.ToUpper(platformSKU)
	}
	words := strings.Fields(name)
	if len(words) > 0 {
		var prefix strings.Builder
		for _, w := range words[:min(3, len(words))] {
			r := []rune(w)
			prefix.WriteString(strings.ToUpper(string(r[:min(2, len(r))])))
		}
		if len(sku) == 0 {
			return prefix.String()
		}
		return prefix.String() + "-" + strings.ToUpper(string(sku[:min(8, len(sku))]))
	}
	if len(sku) == 0 {
		return "UNKNOWN"
	}
	return strings.ToUpper(platformSKU)
}

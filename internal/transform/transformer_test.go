package transform

import (
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"market-etl/internal/model"
)

// panicky panics in the stage named by where.
type panicky struct{ where string }

func (*panicky) SourcePlatform() string { return "boom" }

func (p *panicky) Unwrap(rec model.Raw) (model.Raw, Context) {
	if p.where == "unwrap" {
		panic("unwrap exploded")
	}
	return rec, Context{}
}

func (p *panicky) MapFields(model.Raw, Context) (struct{}, error) {
	if p.where == "map" {
		var m map[string]int
		m["x"] = 1
	}
	return struct{}{}, nil
}

func (*panicky) NormalizeValues(struct{}) (model.UnifiedAd, error) {
	return model.UnifiedAd{}, nil
}

// panickyKey panics while deriving the dedup key.
type panickyKey struct{ panicky }

func (panickyKey) Key(model.Raw) string { panic("key exploded") }

type countingObserver struct {
	transformed map[string]int
	failed      map[string]int
	skipped     map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{transformed: map[string]int{}, failed: map[string]int{}, skipped: map[string]int{}}
}

func (c *countingObserver) Transformed(_, platform string) { c.transformed[platform]++ }
func (c *countingObserver) Failed(_, _, kind string)       { c.failed[kind]++ }
func (c *countingObserver) Skipped(_, reason string)       { c.skipped[reason]++ }

func counted(records []model.Raw, pulled *int) iter.Seq[model.Raw] {
	return func(yield func(model.Raw) bool) {
		for _, r := range records {
			*pulled++
			if !yield(r) {
				return
			}
		}
	}
}

func TestTransformRecoversPanicAsUnexpected(t *testing.T) {
	tr := New[struct{}, model.UnifiedAd](model.DomainAds, &panicky{where: "map"})
	out := tr.TransformSlice([]model.Raw{{"id": "1"}, {"id": "2"}})
	require.Empty(t, out)

	errs := tr.ErrorRecords()
	require.Len(t, errs, 2, "a failure must not stop later records")
	require.Equal(t, KindUnexpected, errs[0].ErrorType)
	require.Contains(t, errs[0].Error, "panic:")
	require.Equal(t, "boom", errs[0].SourcePlatform)
	require.Equal(t, "2", errs[1].Record["id"])
}

func TestTransformRecoversPanicInUnwrapAndKey(t *testing.T) {
	for name, m := range map[string]PlatformMapper[struct{}, model.UnifiedAd]{
		"unwrap": &panicky{where: "unwrap"},
		"key":    &panickyKey{},
	} {
		t.Run(name, func(t *testing.T) {
			tr := New(model.DomainAds, m)
			require.NotPanics(t, func() {
				tr.TransformSlice([]model.Raw{{"id": "1"}, {"id": "2"}})
			})

			errs := tr.ErrorRecords()
			require.Len(t, errs, 2)
			require.Equal(t, KindUnexpected, errs[0].ErrorType)
			require.Contains(t, errs[0].Error, name+" exploded")
			require.Equal(t, "1", errs[0].Record["id"])
		})
	}
}

func TestTransformIsLazyUnderPartialConsumption(t *testing.T) {
	bad := facebookInsight(t)
	delete(bad["data"].(map[string]any), "date_start")
	records := []model.Raw{bad, facebookInsight(t), facebookInsight(t), facebookInsight(t)}

	tr := NewFacebookAds()
	pulled := 0
	for ad := range tr.Transform(counted(records, &pulled)) {
		require.Equal(t, "fb_c1_as1_a1", ad.RecordID)
		break
	}
	require.Equal(t, 2, pulled)
	require.Len(t, tr.ErrorRecords(), 1)
	require.Equal(t, KindValidation, tr.ErrorRecords()[0].ErrorType)
	require.Contains(t, tr.ErrorRecords()[0].Error, "date failed required")
}

func TestErrorBufferPersistsAcrossCallsUntilCleared(t *testing.T) {
	tr := NewShopeeOrders()
	bad := model.Raw{"data": map[string]any{"order_status": "UNPAID"}}
	tr.TransformSlice([]model.Raw{bad})
	tr.TransformSlice([]model.Raw{bad})
	require.Len(t, tr.ErrorRecords(), 2)

	tr.ClearErrorRecords()
	require.Empty(t, tr.ErrorRecords())
}

func TestDispatcherDetectsTikTokFromAdvertiserID(t *testing.T) {
	rec := decode(t, `{"advertiser_id": "adv-1", "extracted_at": "2024-03-01T00:00:00Z", "data": {}}`)
	d := NewAds()
	require.Equal(t, model.PlatformTikTokAds, d.Detect(rec))

	out := d.TransformSlice([]model.Raw{rec})
	require.Len(t, out, 1, "errors: %v", d.ErrorRecords())
	require.Equal(t, model.PlatformTikTokAds, out[0].Platform)
	require.Equal(t, "adv-1", out[0].AccountID)
}

func TestDispatcherExplicitPlatformTagWins(t *testing.T) {
	rec := facebookInsight(t)
	rec["platform"] = model.PlatformGoogleAds
	require.Equal(t, model.PlatformGoogleAds, NewAds().Detect(rec))
}

func TestDispatcherSkipsUnknownPlatform(t *testing.T) {
	obs := newCountingObserver()
	d := NewAds(WithObserver(obs))
	out := d.TransformSlice([]model.Raw{
		{"data": map[string]any{"foo": "bar"}},
		{"platform": "myspace_ads", "data": map[string]any{}},
	})
	require.Empty(t, out)
	require.Empty(t, d.ErrorRecords())
	require.Equal(t, 2, obs.skipped["unknown_platform"])
}

func TestDispatcherErrorRecordsOwnBufferFirst(t *testing.T) {
	o := newOptions(nil)
	detect := func(rec model.Raw) string {
		if has(rec, "explode") {
			panic("detect exploded")
		}
		if has(rec, "boom") {
			return "boom"
		}
		return DetectAdsPlatform(rec)
	}
	d := newDispatcher(model.DomainAds, "", detect, o,
		NewFacebookAds(),
		New[struct{}, model.UnifiedAd](model.DomainAds, &panicky{where: "unwrap"}),
	)

	bad := facebookInsight(t)
	delete(bad["data"].(map[string]any), "date_start")
	out := d.TransformSlice([]model.Raw{bad, {"explode": true}, {"boom": true}, facebookInsight(t)})
	require.Len(t, out, 1)

	errs := d.ErrorRecords()
	require.Len(t, errs, 3)
	require.Equal(t, "unified_ads", errs[0].SourcePlatform)
	require.Equal(t, KindUnexpected, errs[0].ErrorType)
	require.Equal(t, true, errs[0].Record["explode"])
	require.Equal(t, model.PlatformFacebookAds, errs[1].SourcePlatform)
	require.Equal(t, "boom", errs[2].SourcePlatform, "a delegate panic stays in the delegate buffer")
	require.Equal(t, KindUnexpected, errs[2].ErrorType)

	d.ClearErrorRecords()
	require.Empty(t, d.ErrorRecords())
}

func TestDispatchersDoNotShareBuffers(t *testing.T) {
	a, b := NewOrders(), NewOrders()
	a.TransformSlice([]model.Raw{{"order_sn": ""}})
	require.Len(t, a.ErrorRecords(), 1)
	require.Empty(t, b.ErrorRecords())
}

func TestObserverSeesOutcomes(t *testing.T) {
	obs := newCountingObserver()
	tr := NewShopeeProducts(WithObserver(obs))
	tr.TransformSlice([]model.Raw{
		shopeeProduct(t, "A"),
		shopeeProduct(t, "A"),
		{"name": "no id"},
	})
	require.Equal(t, 1, obs.transformed[model.PlatformShopee])
	require.Equal(t, 1, obs.skipped["duplicate"])
	require.Equal(t, 1, obs.failed[KindMapping])
}

func TestOrderItemsFlattenInOrder(t *testing.T) {
	items := NewOrderItems(WithClock(clock))
	out := items.TransformSlice([]model.Raw{shopeeOrder(t), {"data": map[string]any{"foo": 1}}, tiktokShopOrder(t)})
	require.Len(t, out, 2, "errors: %v", items.ErrorRecords())

	require.Equal(t, "shopee_240301ABC", out[0].OrderID)
	require.Equal(t, "111", out[0].ItemID)
	require.Equal(t, model.PlatformShopee, out[0].Platform)
	require.True(t, out[0].OrderDate.Equal(time.Unix(1709251200, 0)))
	require.Equal(t, fixedNow, out[0].TransformedAt)

	require.Equal(t, "tiktok_576", out[1].OrderID)
	require.Equal(t, "li1", out[1].ItemID)
	require.Equal(t, model.PlatformTikTokShop, out[1].Platform)
}

func TestOrderItemsCountMatchesItemCount(t *testing.T) {
	second := shopeeOrder(t)
	data := second["data"].(map[string]any)
	data["order_sn"] = "240301XYZ"
	data["item_list"] = []any{
		map[string]any{"item_id": "1", "item_name": "A", "item_price": "10"},
		map[string]any{"item_id": "2", "item_name": "B", "item_price": "20"},
	}
	orders := NewOrders().TransformSlice([]model.Raw{shopeeOrder(t), second})
	total := 0
	for _, o := range orders {
		total += o.ItemCount
	}
	flat := NewOrderItems().TransformSlice([]model.Raw{shopeeOrder(t), second})
	require.Len(t, flat, total)
	require.Equal(t, []string{"111", "1", "2"}, []string{flat[0].ItemID, flat[1].ItemID, flat[2].ItemID})
}

func TestValidateReportsStructLevelViolations(t *testing.T) {
	err := Validate(model.PlatformShopee, model.UnifiedOrder{
		OrderID:         "shopee_1",
		Platform:        model.PlatformShopee,
		PlatformOrderID: "1",
		Status:          model.OrderPending,
		OrderDate:       fixedNow,
		Currency:        "THB",
		CurrencyRaw:     "THB",
		ItemCount:       2,
	})
	require.Error(t, err)
	require.Equal(t, KindValidation, Kind(err))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Violations, 1)
	require.Equal(t, "item_count", verr.Violations[0].Field)
	require.Equal(t, "eq_items", verr.Violations[0].Tag)
	require.Equal(t, "Validation failed: item_count failed eq_items", err.Error())
}

func TestDeadLetterStampsUTC(t *testing.T) {
	bkk, err := time.LoadLocation("Asia/Bangkok")
	require.NoError(t, err)
	dl := NewDeadLetter(func() time.Time { return fixedNow.In(bkk) })
	dl.Add(model.Raw{"id": "x"}, missing("shopee", "Missing order_sn"), "shopee")

	recs := dl.Records()
	require.Equal(t, 1, dl.Len())
	require.Equal(t, time.UTC, recs[0].Timestamp.Location())
	require.Equal(t, KindMapping, recs[0].ErrorType)

	recs[0].Error = "mutated"
	require.Equal(t, "Missing order_sn", dl.Records()[0].Error)
	dl.Clear()
	require.Zero(t, dl.Len())
}

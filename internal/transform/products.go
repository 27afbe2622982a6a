package transform

import (
	"strings"

	"market-etl/internal/model"
	"market-etl/internal/normalize"
)

// productDraft is a UnifiedProduct whose prices are still in the source currency.
type productDraft struct {
	product     model.UnifiedProduct
	currency    string
	extractedAt any
}

func unwrapProduct(rec model.Raw) (model.Raw, Context) {
	payload, ctx, _ := unwrap(rec, "order_item", "product")
	return payload, ctx
}

func newProductDraft(platform, id string, p model.Raw, ctx Context) productDraft {
	return productDraft{
		product: model.UnifiedProduct{
			ProductID:         productPrefix(platform) + "_" + id,
			Platform:          platform,
			PlatformProductID: id,
			WeightUnit:        "kg",
			IsActive:          true,
		},
		currency:    strings.ToUpper(currencyOf(p)),
		extractedAt: extractedAt(p, ctx),
	}
}

func productPrefix(platform string) string {
	if platform == model.PlatformTikTokShop {
		return "tiktok"
	}
	return platform
}

func productKey(platform, id, sku string) string {
	return productPrefix(platform) + "_" + id + "_" + sku
}

// category accepts a plain name or a path list such as ["Home", "Kitchen"].
func category(v any) *string {
	if list, ok := v.([]any); ok {
		parts := make([]string, 0, len(list))
		for _, el := range list {
			if s := text(el); s != "" {
				parts = append(parts, s)
			}
		}
		return nonEmpty(strings.Join(parts, " > "))
	}
	if !truthy(v) {
		return nil
	}
	return nonEmpty(text(v))
}

func finishProduct(o *options, d productDraft) (model.UnifiedProduct, error) {
	out := d.product
	src := d.currency
	out.UnitPrice = o.money(out.UnitPrice, src)
	out.OriginalPrice = o.optMoney(out.OriginalPrice, src)
	out.DiscountPrice = o.optMoney(out.DiscountPrice, src)
	out.Currency = normalize.DefaultCurrency
	out.CurrencyRaw = src
	out.SetMasterSKU(nil)

	var err error
	if out.ExtractedAt, err = o.utc(d.extractedAt); err != nil {
		return out, err
	}
	now := o.now().UTC()
	out.LastSeenAt = &now
	out.TransformedAt = now
	return out, nil
}

// DetectProductsPlatform applies the product signatures in order: Shopee, TikTok Shop, Lazada.
// TikTok Shop is checked before Lazada because their field sets overlap.
func DetectProductsPlatform(rec model.Raw) string {
	data := payloadOf(rec)
	switch {
	case has(data, "item_id") || has(data, "model_sku"):
		return model.PlatformShopee
	case has(data, "sku_name") || has(data, "sku_sale_price") || has(data, "product_name"):
		return model.PlatformTikTokShop
	case has(data, "sku_id") || (has(data, "name") && has(data, "seller_sku")):
		return model.PlatformLazada
	default:
		return PlatformUnknown
	}
}

// Products is the unified dispatcher over the three marketplace catalogs.
type Products = Dispatcher[model.UnifiedProduct]

// NewProducts builds a products dispatcher with its own Shopee, Lazada and TikTok Shop transformers.
// Duplicates are dropped across the whole Transform call.
func NewProducts(opts ...Option) *Products {
	o := newOptions(opts)
	return newDispatcher(model.DomainProducts, "order_item", DetectProductsPlatform, o,
		NewShopeeProducts(opts...),
		NewLazadaProducts(opts...),
		NewTikTokShopProducts(opts...),
	)
}

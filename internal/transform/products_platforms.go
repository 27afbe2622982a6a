package transform

import "market-etl/internal/model"

type shopeeProducts struct{ o *options }

// NewShopeeProducts builds the Shopee product transformer over item or order-item payloads.
func NewShopeeProducts(opts ...Option) *Transformer[model.UnifiedProduct] {
	return New[productDraft, model.UnifiedProduct](model.DomainProducts, &shopeeProducts{o: newOptions(opts)}, opts...)
}

func (*shopeeProducts) SourcePlatform() string { return model.PlatformShopee }

func (*shopeeProducts) Unwrap(rec model.Raw) (model.Raw, Context) { return unwrapProduct(rec) }

func (*shopeeProducts) Key(p model.Raw) string {
	return productKey(model.PlatformShopee, str(p, "item_id"), str(p, "model_sku", "item_sku"))
}

func (s *shopeeProducts) MapFields(p model.Raw, ctx Context) (productDraft, error) {
	id := str(p, "item_id")
	if id == "" {
		return productDraft{}, missing(model.PlatformShopee, "Missing item_id")
	}
	var c conv
	d := newProductDraft(model.PlatformShopee, id, p, ctx)
	d.product.SKU = optStr(p, "model_sku", "item_sku")
	d.product.SellerSKU = optStr(p, "item_sku")
	d.product.Name = str(p, "item_name")
	d.product.Variation = optStr(p, "model_name")
	d.product.Category = category(p["category_path"])
	d.product.Brand = optStr(p, "brand")
	d.product.UnitPrice = c.float(pick(p, "model_discounted_price", "item_price"))
	d.product.OriginalPrice = c.optFloat(p["model_original_price"])
	d.product.DiscountPrice = c.optFloat(p["model_discounted_price"])
	d.product.Weight = c.optFloat(p["weight"])
	return d, c.err
}

func (s *shopeeProducts) NormalizeValues(d productDraft) (model.UnifiedProduct, error) {
	return finishProduct(s.o, d)
}

type lazadaProducts struct{ o *options }

// NewLazadaProducts builds the Lazada product transformer over SKU or order-item payloads.
func NewLazadaProducts(opts ...Option) *Transformer[model.UnifiedProduct] {
	return New[productDraft, model.UnifiedProduct](model.DomainProducts, &lazadaProducts{o: newOptions(opts)}, opts...)
}

func (*lazadaProducts) SourcePlatform() string { return model.PlatformLazada }

func (*lazadaProducts) Unwrap(rec model.Raw) (model.Raw, Context) { return unwrapProduct(rec) }

func (*lazadaProducts) Key(p model.Raw) string {
	return productKey(model.PlatformLazada, str(p, "product_id", "sku_id"), str(p, "sku", "seller_sku"))
}

func (l *lazadaProducts) MapFields(p model.Raw, ctx Context) (productDraft, error) {
	id := str(p, "product_id", "sku_id")
	if id == "" {
		return productDraft{}, missing(model.PlatformLazada, "Missing product_id or sku_id")
	}
	var c conv
	d := newProductDraft(model.PlatformLazada, id, p, ctx)
	d.product.SKU = optStr(p, "sku", "seller_sku")
	d.product.SellerSKU = optStr(p, "seller_sku")
	d.product.Name = str(p, "name")
	d.product.Variation = optStr(p, "variation")
	d.product.Category = category(p["category"])
	d.product.Brand = optStr(p, "brand")
	d.product.UnitPrice = c.float(pick(p, "item_price", "paid_price"))
	d.product.OriginalPrice = c.optFloat(p["original_price"])
	d.product.DiscountPrice = c.optFloat(p["item_price"])
	d.product.Weight = c.optFloat(p["weight"])
	return d, c.err
}

func (l *lazadaProducts) NormalizeValues(d productDraft) (model.UnifiedProduct, error) {
	return finishProduct(l.o, d)
}

type tiktokShopProducts struct{ o *options }

// NewTikTokShopProducts builds the TikTok Shop product transformer over SKU or line-item payloads.
func NewTikTokShopProducts(opts ...Option) *Transformer[model.UnifiedProduct] {
	return New[productDraft, model.UnifiedProduct](model.DomainProducts, &tiktokShopProducts{o: newOptions(opts)}, opts...)
}

func (*tiktokShopProducts) SourcePlatform() string { return model.PlatformTikTokShop }

func (*tiktokShopProducts) Unwrap(rec model.Raw) (model.Raw, Context) { return unwrapProduct(rec) }

func (*tiktokShopProducts) Key(p model.Raw) string {
	return productKey(model.PlatformTikTokShop, str(p, "product_id"), str(p, "seller_sku", "sku_id"))
}

func (t *tiktokShopProducts) MapFields(p model.Raw, ctx Context) (productDraft, error) {
	id := str(p, "product_id")
	if id == "" {
		return productDraft{}, missing(model.PlatformTikTokShop, "Missing product_id")
	}
	var c conv
	d := newProductDraft(model.PlatformTikTokShop, id, p, ctx)
	d.product.SKU = optStr(p, "seller_sku", "sku_id")
	d.product.SellerSKU = optStr(p, "seller_sku")
	d.product.Name = str(p, "product_name")
	d.product.Variation = optStr(p, "sku_name")
	d.product.Category = category(p["category_name"])
	d.product.Brand = optStr(p, "brand_name")
	d.product.UnitPrice = c.float(pick(p, "sale_price", "sku_sale_price"))
	d.product.OriginalPrice = c.optFloat(p["original_price"])
	d.product.DiscountPrice = c.optFloat(p["sale_price"])
	d.product.Weight = c.optFloat(p["weight"])
	return d, c.err
}

func (t *tiktokShopProducts) NormalizeValues(d productDraft) (model.UnifiedProduct, error) {
	return finishProduct(t.o, d)
}

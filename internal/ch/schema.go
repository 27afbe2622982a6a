package ch

// Table names.
const (
	TableAds         = "ads"
	TableOrders      = "orders"
	TableOrderItems  = "order_items"
	TableProducts    = "products"
	TableDeadLetters = "dead_letters"
	TableGA4Sessions = "ga4_sessions"
	TableGA4Traffic  = "ga4_traffic"
	TableGA4Pages    = "ga4_pages"
)

type table struct {
	name    string
	columns []string
	ddl     string
}

// Unified tables are ReplacingMergeTree on transformed_at, so a record that is
// redelivered and loaded twice collapses to its latest version.
var tables = []table{
	{
		name: TableAds,
		columns: []string{
			"record_id", "platform", "account_id", "campaign_id", "campaign_name",
			"adgroup_id", "adgroup_name", "ad_id", "ad_name",
			"impressions", "clicks", "reach", "ctr", "cpc", "cpm",
			"spend", "spend_raw", "currency", "currency_raw",
			"conversions", "conversion_value", "cost_per_conversion", "conversion_rate",
			"video_views", "video_views_p25", "video_views_p50", "video_views_p75", "video_views_p100",
			"likes", "comments", "shares", "follows",
			"status", "campaign_type", "objective",
			"date", "level", "extracted_at", "transformed_at",
		},
		ddl: `
CREATE TABLE IF NOT EXISTS ads
(
  record_id            String,
  platform             LowCardinality(String),
  account_id           String,
  campaign_id          String,
  campaign_name        Nullable(String),
  adgroup_id           Nullable(String),
  adgroup_name         Nullable(String),
  ad_id                Nullable(String),
  ad_name              Nullable(String),
  impressions          Int64,
  clicks               Int64,
  reach                Nullable(Int64),
  ctr                  Nullable(Float64),
  cpc                  Nullable(Float64),
  cpm                  Nullable(Float64),
  spend                Float64,
  spend_raw            Float64,
  currency             LowCardinality(String),
  currency_raw         LowCardinality(String),
  conversions          Int64,
  conversion_value     Float64,
  cost_per_conversion  Nullable(Float64),
  conversion_rate      Nullable(Float64),
  video_views          Nullable(Int64),
  video_views_p25      Nullable(Int64),
  video_views_p50      Nullable(Int64),
  video_views_p75      Nullable(Int64),
  video_views_p100     Nullable(Int64),
  likes                Nullable(Int64),
  comments             Nullable(Int64),
  shares               Nullable(Int64),
  follows              Nullable(Int64),
  status               Nullable(String),
  campaign_type        Nullable(String),
  objective            Nullable(String),
  date                 Date,
  level                LowCardinality(String),
  extracted_at         Nullable(DateTime64(3, 'UTC')),
  transformed_at       DateTime64(3, 'UTC')
)
ENGINE = ReplacingMergeTree(transformed_at)
PARTITION BY toYYYYMM(date)
ORDER BY (platform, date, record_id)`,
	},
	{
		name: TableOrders,
		columns: []string{
			"order_id", "platform", "platform_order_id",
			"customer_id", "customer_name", "customer_phone",
			"status", "status_raw", "order_date", "paid_date", "shipped_date", "completed_date",
			"subtotal", "shipping_fee", "discount", "total", "currency", "currency_raw",
			"shipping_address", "shipping_method", "tracking_number",
			"item_count", "extracted_at", "transformed_at",
		},
		ddl: `
CREATE TABLE IF NOT EXISTS orders
(
  order_id           String,
  platform           LowCardinality(String),
  platform_order_id  String,
  customer_id        Nullable(String),
  customer_name      Nullable(String),
  customer_phone     Nullable(String),
  status             LowCardinality(String),
  status_raw         String,
  order_date         DateTime64(3, 'UTC'),
  paid_date          Nullable(DateTime64(3, 'UTC')),
  shipped_date       Nullable(DateTime64(3, 'UTC')),
  completed_date     Nullable(DateTime64(3, 'UTC')),
  subtotal           Float64,
  shipping_fee       Float64,
  discount           Float64,
  total              Float64,
  currency           LowCardinality(String),
  currency_raw       LowCardinality(String),
  shipping_address   Nullable(String),
  shipping_method    Nullable(String),
  tracking_number    Nullable(String),
  item_count         UInt32,
  extracted_at       Nullable(DateTime64(3, 'UTC')),
  transformed_at     DateTime64(3, 'UTC')
)
ENGINE = ReplacingMergeTree(transformed_at)
PARTITION BY toYYYYMM(order_date)
ORDER BY (platform, order_id)`,
	},
	{
		name: TableOrderItems,
		columns: []string{
			"order_id", "order_date", "item_id", "product_id", "sku", "name",
			"quantity", "unit_price", "total_price", "discount", "platform",
			"variation", "weight", "transformed_at",
		},
		ddl: `
CREATE TABLE IF NOT EXISTS order_items
(
  order_id        String,
  order_date      DateTime64(3, 'UTC'),
  item_id         String,
  product_id      String,
  sku             Nullable(String),
  name            String,
  quantity        Int64,
  unit_price      Float64,
  total_price     Float64,
  discount        Float64,
  platform        LowCardinality(String),
  variation       Nullable(String),
  weight          Nullable(Float64),
  transformed_at  DateTime64(3, 'UTC')
)
ENGINE = ReplacingMergeTree(transformed_at)
PARTITION BY toYYYYMM(order_date)
ORDER BY (platform, order_id, item_id)`,
	},
	{
		name: TableProducts,
		columns: []string{
			"product_id", "platform", "platform_product_id",
			"sku", "seller_sku", "master_sku", "name", "variation", "category", "brand",
			"unit_price", "original_price", "discount_price", "currency", "currency_raw",
			"weight", "weight_unit", "is_active", "is_mapped",
			"first_seen_at", "last_seen_at", "extracted_at", "transformed_at",
		},
		ddl: `
CREATE TABLE IF NOT EXISTS products
(
  product_id           String,
  platform             LowCardinality(String),
  platform_product_id  String,
  sku                  Nullable(String),
  seller_sku           Nullable(String),
  master_sku           Nullable(String),
  name                 String,
  variation            Nullable(String),
  category             Nullable(String),
  brand                Nullable(String),
  unit_price           Float64,
  original_price       Nullable(Float64),
  discount_price       Nullable(Float64),
  currency             LowCardinality(String),
  currency_raw         LowCardinality(String),
  weight               Nullable(Float64),
  weight_unit          LowCardinality(String),
  is_active            Bool,
  is_mapped            Bool,
  first_seen_at        Nullable(DateTime64(3, 'UTC')),
  last_seen_at         Nullable(DateTime64(3, 'UTC')),
  extracted_at         Nullable(DateTime64(3, 'UTC')),
  transformed_at       DateTime64(3, 'UTC')
)
ENGINE = ReplacingMergeTree(transformed_at)
ORDER BY (platform, product_id, ifNull(sku, ''))`,
	},
	{
		name: TableGA4Sessions,
		columns: []string{
			"record_id", "property_id", "source", "medium", "campaign", "channel_grouping",
			"sessions", "engaged_sessions", "total_users", "new_users", "active_users", "returning_users", "screen_page_views",
			"bounce_rate", "engagement_rate", "avg_session_duration", "events_per_session", "session_duration_total",
			"date", "extracted_at", "transformed_at",
		},
		ddl: `
CREATE TABLE IF NOT EXISTS ga4_sessions
(
  record_id               String,
  property_id             LowCardinality(String),
  source                  Nullable(String),
  medium                  Nullable(String),
  campaign                Nullable(String),
  channel_grouping        LowCardinality(String),
  sessions                Int64,
  engaged_sessions        Int64,
  total_users             Int64,
  new_users               Int64,
  active_users            Int64,
  returning_users         Int64,
  screen_page_views       Int64,
  bounce_rate             Nullable(Float64),
  engagement_rate         Nullable(Float64),
  avg_session_duration    Nullable(Float64),
  events_per_session      Nullable(Float64),
  session_duration_total  Float64,
  date                    Date,
  extracted_at            Nullable(DateTime64(3, 'UTC')),
  transformed_at          DateTime64(3, 'UTC')
)
ENGINE = ReplacingMergeTree(transformed_at)
PARTITION BY toYYYYMM(date)
ORDER BY (property_id, date, record_id)`,
	},
	{
		name: TableGA4Traffic,
		columns: []string{
			"record_id", "property_id", "source", "medium", "campaign", "channel_grouping",
			"sessions", "total_users", "new_users",
			"bounce_rate", "engagement_rate", "avg_session_duration",
			"transactions", "revenue", "avg_order_value", "conversion_rate",
			"date", "extracted_at", "transformed_at",
		},
		ddl: `
CREATE TABLE IF NOT EXISTS ga4_traffic
(
  record_id             String,
  property_id           LowCardinality(String),
  source                Nullable(String),
  medium                Nullable(String),
  campaign              Nullable(String),
  channel_grouping      LowCardinality(String),
  sessions              Int64,
  total_users           Int64,
  new_users             Int64,
  bounce_rate           Nullable(Float64),
  engagement_rate       Nullable(Float64),
  avg_session_duration  Nullable(Float64),
  transactions          Int64,
  revenue               Float64,
  avg_order_value       Nullable(Float64),
  conversion_rate       Nullable(Float64),
  date                  Date,
  extracted_at          Nullable(DateTime64(3, 'UTC')),
  transformed_at        DateTime64(3, 'UTC')
)
ENGINE = ReplacingMergeTree(transformed_at)
PARTITION BY toYYYYMM(date)
ORDER BY (property_id, date, record_id)`,
	},
	{
		name: TableGA4Pages,
		columns: []string{
			"record_id", "property_id", "page_path", "page_title",
			"page_views", "unique_page_views", "sessions", "entrances", "exits",
			"bounce_rate", "engagement_rate", "avg_time_on_page", "exit_rate",
			"date", "extracted_at", "transformed_at",
		},
		ddl: `
CREATE TABLE IF NOT EXISTS ga4_pages
(
  record_id          String,
  property_id        LowCardinality(String),
  page_path          String,
  page_title         Nullable(String),
  page_views         Int64,
  unique_page_views  Int64,
  sessions           Int64,
  entrances          Int64,
  exits              Int64,
  bounce_rate        Nullable(Float64),
  engagement_rate    Nullable(Float64),
  avg_time_on_page   Nullable(Float64),
  exit_rate          Nullable(Float64),
  date               Date,
  extracted_at       Nullable(DateTime64(3, 'UTC')),
  transformed_at     DateTime64(3, 'UTC')
)
ENGINE = ReplacingMergeTree(transformed_at)
PARTITION BY toYYYYMM(date)
ORDER BY (property_id, date, record_id)`,
	},
	{
		name:    TableDeadLetters,
		columns: []string{"event_date", "source_platform", "error_type", "error", "record", "timestamp"},
		ddl: `
CREATE TABLE IF NOT EXISTS dead_letters
(
  event_date       Date,
  source_platform  LowCardinality(String),
  error_type       LowCardinality(String),
  error            String,
  record           String,
  timestamp        DateTime64(3, 'UTC')
)
ENGINE = MergeTree
PARTITION BY toYYYYMM(event_date)
ORDER BY (source_platform, error_type, timestamp)`,
	},
}

func tableByName(name string) (table, bool) {
	for _, t := range tables {
		if t.name == name {
			return t, true
		}
	}
	return table{}, false
}

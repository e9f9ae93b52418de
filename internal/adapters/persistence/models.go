package persistence

import (
	"time"

	"github.com/shopspring/decimal"
)

// SkuMasterModel represents the sku_masters table, the authoritative per-SKU
// attribute store. Monetary and dimensional attributes are numeric columns;
// nulls mean the supplier has never reported the attribute.
type SkuMasterModel struct {
	Sku                 string              `gorm:"column:sku;primaryKey;size:64"`
	Price               decimal.NullDecimal `gorm:"column:price;type:numeric(12,2)"`
	SpecialPrice        decimal.NullDecimal `gorm:"column:special_price;type:numeric(12,2)"`
	SpecialPriceEndDate *time.Time          `gorm:"column:special_price_end_date"`
	Weight              decimal.NullDecimal `gorm:"column:weight;type:numeric(12,3)"`
	CBM                 decimal.NullDecimal `gorm:"column:cbm;type:numeric(12,4)"`
	Length              decimal.NullDecimal `gorm:"column:length;type:numeric(12,2)"`
	Width               decimal.NullDecimal `gorm:"column:width;type:numeric(12,2)"`
	Height              decimal.NullDecimal `gorm:"column:height;type:numeric(12,2)"`
	RRP                 decimal.NullDecimal `gorm:"column:rrp;type:numeric(12,2)"`
	Brand               string              `gorm:"column:brand;size:255"`
	EAN                 string              `gorm:"column:ean;size:64"`
	Supplier            string              `gorm:"column:supplier;size:255"`
	StockQty            *int                `gorm:"column:stock_qty"`
	ShopifyVariantID    string              `gorm:"column:shopify_variant_id;size:128"`
	TagsJSON            string              `gorm:"column:tags_json;type:text"` // JSON array, storefront order preserved

	// Zonal freight rates
	Act    decimal.NullDecimal `gorm:"column:act;type:numeric(12,2)"`
	NswM   decimal.NullDecimal `gorm:"column:nsw_m;type:numeric(12,2)"`
	NswR   decimal.NullDecimal `gorm:"column:nsw_r;type:numeric(12,2)"`
	NtM    decimal.NullDecimal `gorm:"column:nt_m;type:numeric(12,2)"`
	QldM   decimal.NullDecimal `gorm:"column:qld_m;type:numeric(12,2)"`
	QldR   decimal.NullDecimal `gorm:"column:qld_r;type:numeric(12,2)"`
	SaM    decimal.NullDecimal `gorm:"column:sa_m;type:numeric(12,2)"`
	SaR    decimal.NullDecimal `gorm:"column:sa_r;type:numeric(12,2)"`
	TasM   decimal.NullDecimal `gorm:"column:tas_m;type:numeric(12,2)"`
	TasR   decimal.NullDecimal `gorm:"column:tas_r;type:numeric(12,2)"`
	VicM   decimal.NullDecimal `gorm:"column:vic_m;type:numeric(12,2)"`
	VicR   decimal.NullDecimal `gorm:"column:vic_r;type:numeric(12,2)"`
	WaM    decimal.NullDecimal `gorm:"column:wa_m;type:numeric(12,2)"`
	Remote decimal.NullDecimal `gorm:"column:remote;type:numeric(12,2)"`
	WaR    decimal.NullDecimal `gorm:"column:wa_r;type:numeric(12,2)"`
	Nz     decimal.NullDecimal `gorm:"column:nz;type:numeric(12,2)"`

	AttrsHashCurrent string     `gorm:"column:attrs_hash_current;size:64;index"`
	LastChangedAt    *time.Time `gorm:"column:last_changed_at"`
	CreatedAt        time.Time  `gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (SkuMasterModel) TableName() string {
	return "sku_masters"
}

// FreightResultModel represents the freight_results table: one row of
// calculator outputs per SKU.
type FreightResultModel struct {
	Sku            string              `gorm:"column:sku;primaryKey;size:64"`
	SellingPrice   decimal.NullDecimal `gorm:"column:selling_price;type:numeric(12,2)"`
	Adjust         decimal.NullDecimal `gorm:"column:adjust;type:numeric(12,2)"`
	SameShipping   decimal.NullDecimal `gorm:"column:same_shipping;type:numeric(12,2)"`
	ShippingAve    decimal.NullDecimal `gorm:"column:shipping_ave;type:numeric(12,1)"`
	ShippingAveM   decimal.NullDecimal `gorm:"column:shipping_ave_m;type:numeric(12,1)"`
	ShippingAveR   decimal.NullDecimal `gorm:"column:shipping_ave_r;type:numeric(12,1)"`
	ShippingMed    decimal.NullDecimal `gorm:"column:shipping_med;type:numeric(12,2)"`
	RemoteCheck    *bool               `gorm:"column:remote_check"`
	RuralAve       decimal.NullDecimal `gorm:"column:rural_ave;type:numeric(12,1)"`
	WeightedAveS   decimal.NullDecimal `gorm:"column:weighted_ave_s;type:numeric(12,1)"`
	ShippingMedDif decimal.NullDecimal `gorm:"column:shipping_med_dif;type:numeric(12,2)"`
	CubicWeight    decimal.NullDecimal `gorm:"column:cubic_weight;type:numeric(12,2)"`
	PriceRatio     decimal.NullDecimal `gorm:"column:price_ratio;type:numeric(12,4)"`
	ShippingType   string              `gorm:"column:shipping_type;size:16"`
	Weight         decimal.NullDecimal `gorm:"column:weight;type:numeric(12,2)"`
	ShopifyPrice   decimal.NullDecimal `gorm:"column:shopify_price;type:numeric(12,2)"`
	KoganAuPrice   decimal.NullDecimal `gorm:"column:kogan_au_price;type:numeric(12,2)"`
	KoganK1Price   decimal.NullDecimal `gorm:"column:kogan_k1_price;type:numeric(12,2)"`
	KoganNzPrice   decimal.NullDecimal `gorm:"column:kogan_nz_price;type:numeric(12,2)"`

	AttrsHashLastCalc string     `gorm:"column:attrs_hash_last_calc;size:64;index"`
	KoganDirtyAu      bool       `gorm:"column:kogan_dirty_au;not null;default:false;index"`
	KoganDirtyNz      bool       `gorm:"column:kogan_dirty_nz;not null;default:false;index"`
	LastChangedSource string     `gorm:"column:last_changed_source;size:32"`
	LastChangedRunID  string     `gorm:"column:last_changed_run_id;size:64"`
	LastChangedAt     *time.Time `gorm:"column:last_changed_at"`
	CreatedAt         time.Time  `gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (FreightResultModel) TableName() string {
	return "freight_results"
}

// ProductSyncRunModel represents the product_sync_runs table
type ProductSyncRunModel struct {
	ID                string     `gorm:"column:id;primaryKey;size:36"`
	Status            string     `gorm:"column:status;size:32;not null;index"`
	RunType           string     `gorm:"column:run_type;size:32;not null"`
	ShopifyBulkID     string     `gorm:"column:shopify_bulk_id;size:128;index"`
	ShopifyBulkURL    string     `gorm:"column:shopify_bulk_url;type:text"`
	TotalShopifySkus  int        `gorm:"column:total_shopify_skus;not null;default:0"`
	ChangeCount       int        `gorm:"column:change_count;not null;default:0"`
	StartedAt         time.Time  `gorm:"column:started_at;not null"`
	FinishedAt        *time.Time `gorm:"column:finished_at"`
	WebhookReceivedAt *time.Time `gorm:"column:webhook_received_at"`
}

func (ProductSyncRunModel) TableName() string {
	return "product_sync_runs"
}

// SyncChunkModel represents the sync_chunks manifest table. Composite key
// (run_id, chunk_idx) makes re-streaming a run idempotent.
type SyncChunkModel struct {
	RunID    string `gorm:"column:run_id;primaryKey;size:36"`
	ChunkIdx int    `gorm:"column:chunk_idx;primaryKey"`
	Status   string `gorm:"column:status;size:16;not null;index"`

	SkuCodesJSON string `gorm:"column:sku_codes_json;type:text;not null"`
	SkuCount     int    `gorm:"column:sku_count;not null"`

	// Supplier health counters for the chunk
	RequestedTotal     int    `gorm:"column:requested_total;not null;default:0"`
	ReturnedTotal      int    `gorm:"column:returned_total;not null;default:0"`
	MissingCount       int    `gorm:"column:missing_count;not null;default:0"`
	ExtraCount         int    `gorm:"column:extra_count;not null;default:0"`
	FailedBatchesCount int    `gorm:"column:failed_batches_count;not null;default:0"`
	FailedSkusCount    int    `gorm:"column:failed_skus_count;not null;default:0"`
	MissingExamples    string `gorm:"column:missing_examples;type:text"`
	FailedExamples     string `gorm:"column:failed_examples;type:text"`
	ExtraExamples      string `gorm:"column:extra_examples;type:text"`

	LastError  string     `gorm:"column:last_error;type:text"`
	StartedAt  *time.Time `gorm:"column:started_at"`
	FinishedAt *time.Time `gorm:"column:finished_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (SyncChunkModel) TableName() string {
	return "sync_chunks"
}

// SyncChangeCandidateModel represents the sync_change_candidates table
type SyncChangeCandidateModel struct {
	ID                int    `gorm:"column:id;primaryKey;autoIncrement"`
	RunID             string `gorm:"column:run_id;size:36;not null;uniqueIndex:uq_candidate_run_sku"`
	SkuCode           string `gorm:"column:sku_code;size:64;not null;uniqueIndex:uq_candidate_run_sku"`
	ChangedFieldsJSON string `gorm:"column:changed_fields_json;type:text;not null"`
	NewValuesJSON     string `gorm:"column:new_values_json;type:text;not null"`
	ChangeCount       int    `gorm:"column:change_count;not null"`
	CreatedAt         time.Time `gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (SyncChangeCandidateModel) TableName() string {
	return "sync_change_candidates"
}

// FreightCalcRunModel represents the freight_calc_runs table
type FreightCalcRunModel struct {
	ID             string     `gorm:"column:id;primaryKey;size:64"`
	Status         string     `gorm:"column:status;size:32;not null"`
	Trigger        string     `gorm:"column:trigger_source;size:32;not null"`
	ProductRunID   string     `gorm:"column:product_run_id;size:36;index"`
	CandidateCount int        `gorm:"column:candidate_count;not null;default:0"`
	ChangedCount   int        `gorm:"column:changed_count;not null;default:0"`
	Message        string     `gorm:"column:message;type:text"`
	StartedAt      time.Time  `gorm:"column:started_at;not null"`
	FinishedAt     *time.Time `gorm:"column:finished_at"`
}

func (FreightCalcRunModel) TableName() string {
	return "freight_calc_runs"
}

// FreightCalculatorConfigModel is the single-row tunables table consumed by
// the calculator. Loaded once at the start of each calculation run.
type FreightCalculatorConfigModel struct {
	ID int `gorm:"column:id;primaryKey"`

	AdjustThreshold decimal.Decimal `gorm:"column:adjust_threshold;type:numeric(12,2)"`
	AdjustRate      decimal.Decimal `gorm:"column:adjust_rate;type:numeric(12,4)"`

	Remote1     decimal.Decimal `gorm:"column:remote_1;type:numeric(12,2)"`
	Remote2     decimal.Decimal `gorm:"column:remote_2;type:numeric(12,2)"`
	WaRSentinel decimal.Decimal `gorm:"column:wa_r_sentinel;type:numeric(12,2)"`

	WeightedAveShippingWeight decimal.Decimal `gorm:"column:weighted_ave_shipping_weight;type:numeric(6,4)"`
	WeightedAveRuralWeight    decimal.Decimal `gorm:"column:weighted_ave_rural_weight;type:numeric(6,4)"`

	CubicFactor   decimal.Decimal `gorm:"column:cubic_factor;type:numeric(12,2)"`
	CubicHeadroom decimal.Decimal `gorm:"column:cubic_headroom;type:numeric(12,2)"`

	PriceRatioLimit decimal.Decimal `gorm:"column:price_ratio_limit;type:numeric(6,4)"`
	MedDif10        decimal.Decimal `gorm:"column:med_dif_10;type:numeric(12,2)"`
	MedDif20        decimal.Decimal `gorm:"column:med_dif_20;type:numeric(12,2)"`
	MedDif40        decimal.Decimal `gorm:"column:med_dif_40;type:numeric(12,2)"`
	SameShipping10  decimal.Decimal `gorm:"column:same_shipping_10;type:numeric(12,2)"`
	SameShipping20  decimal.Decimal `gorm:"column:same_shipping_20;type:numeric(12,2)"`
	SameShipping30  decimal.Decimal `gorm:"column:same_shipping_30;type:numeric(12,2)"`
	SameShipping50  decimal.Decimal `gorm:"column:same_shipping_50;type:numeric(12,2)"`
	SameShipping100 decimal.Decimal `gorm:"column:same_shipping_100;type:numeric(12,2)"`

	ShopifyThreshold decimal.Decimal `gorm:"column:shopify_threshold;type:numeric(12,2)"`
	ShopifyConfig1   decimal.Decimal `gorm:"column:shopify_config_1;type:numeric(6,4)"`
	ShopifyConfig2   decimal.Decimal `gorm:"column:shopify_config_2;type:numeric(6,4)"`

	KoganAuNormalLowDenom  decimal.Decimal `gorm:"column:kogan_au_normal_low_denom;type:numeric(6,4)"`
	KoganAuNormalHighDenom decimal.Decimal `gorm:"column:kogan_au_normal_high_denom;type:numeric(6,4)"`
	KoganAuExtra5Discount  decimal.Decimal `gorm:"column:kogan_au_extra5_discount;type:numeric(6,4)"`
	KoganAuVicHalfFactor   decimal.Decimal `gorm:"column:kogan_au_vic_half_factor;type:numeric(6,4)"`

	K1Threshold          decimal.Decimal `gorm:"column:k1_threshold;type:numeric(12,2)"`
	K1DiscountMultiplier decimal.Decimal `gorm:"column:k1_discount_multiplier;type:numeric(6,4)"`
	K1OtherwiseMinus     decimal.Decimal `gorm:"column:k1_otherwise_minus;type:numeric(12,2)"`

	KoganNzServiceNo decimal.Decimal `gorm:"column:kogan_nz_service_no;type:numeric(12,2)"`
	KoganNzConfig1   decimal.Decimal `gorm:"column:kogan_nz_config_1;type:numeric(6,4)"`
	KoganNzConfig2   decimal.Decimal `gorm:"column:kogan_nz_config_2;type:numeric(6,4)"`
	KoganNzConfig3   decimal.Decimal `gorm:"column:kogan_nz_config_3;type:numeric(6,4)"`

	WeightCalcDivisor    decimal.Decimal `gorm:"column:weight_calc_divisor;type:numeric(6,4)"`
	WeightToleranceRatio decimal.Decimal `gorm:"column:weight_tolerance_ratio;type:numeric(6,4)"`

	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (FreightCalculatorConfigModel) TableName() string {
	return "freight_calculator_configs"
}

// ScheduleEntryModel represents the schedule_entries table
type ScheduleEntryModel struct {
	JobKey      string     `gorm:"column:job_key;primaryKey;size:32"`
	Enabled     bool       `gorm:"column:enabled;not null;default:false"`
	DayOfWeek   string     `gorm:"column:day_of_week;size:3;not null"`
	Hour        int        `gorm:"column:hour;not null"`
	Minute      int        `gorm:"column:minute;not null"`
	Every2Weeks bool       `gorm:"column:every_2_weeks;not null;default:false"`
	Timezone    string     `gorm:"column:timezone;size:64;not null"`
	LastRunAt   *time.Time `gorm:"column:last_run_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (ScheduleEntryModel) TableName() string {
	return "schedule_entries"
}

// ExportJobModel represents the export_jobs table. The CSV blob is immutable
// after creation; status is the only mutable part.
type ExportJobModel struct {
	ID        string     `gorm:"column:id;primaryKey;size:64"`
	Country   string     `gorm:"column:country;size:2;not null;index"`
	Status    string     `gorm:"column:status;size:16;not null;index"`
	FileName  string     `gorm:"column:file_name;size:128;not null"`
	RowCount  int        `gorm:"column:row_count;not null"`
	CsvBlob   []byte     `gorm:"column:csv_blob;type:bytea"`
	Error     string     `gorm:"column:error;type:text"`
	CreatedBy string     `gorm:"column:created_by;size:64"`
	AppliedBy string     `gorm:"column:applied_by;size:64"`
	CreatedAt time.Time  `gorm:"column:created_at;not null;autoCreateTime"`
	AppliedAt *time.Time `gorm:"column:applied_at"`
}

func (ExportJobModel) TableName() string {
	return "export_jobs"
}

// ExportJobSkuModel represents the export_job_skus table
type ExportJobSkuModel struct {
	ID                 int    `gorm:"column:id;primaryKey;autoIncrement"`
	JobID              string `gorm:"column:job_id;size:64;not null;index"`
	SkuCode            string `gorm:"column:sku_code;size:64;not null"`
	PayloadJSON        string `gorm:"column:payload_json;type:text;not null"`
	ChangedColumnsJSON string `gorm:"column:changed_columns_json;type:text;not null"`
}

func (ExportJobSkuModel) TableName() string {
	return "export_job_skus"
}

// KoganBaselineModel represents the kogan_baselines table: the per-country
// template row last applied downstream, used as the diff baseline.
type KoganBaselineModel struct {
	Country   string    `gorm:"column:country;primaryKey;size:2"`
	Sku       string    `gorm:"column:sku;primaryKey;size:64"`
	RowJSON   string    `gorm:"column:row_json;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (KoganBaselineModel) TableName() string {
	return "kogan_baselines"
}

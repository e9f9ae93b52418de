package supplier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ozdirect/pricesync/internal/domain/pricing"
	"github.com/ozdirect/pricesync/internal/domain/shared"
	syncdomain "github.com/ozdirect/pricesync/internal/domain/sync"
	"github.com/ozdirect/pricesync/internal/infrastructure/config"
)

const maxBackoff = 60 * time.Second

// Record is one SKU's supplier snapshot: commercial attributes plus the
// zonal freight rates.
type Record struct {
	Sku                 string
	Price               *decimal.Decimal
	SpecialPrice        *decimal.Decimal
	SpecialPriceEndDate *time.Time
	Weight              *decimal.Decimal
	CBM                 *decimal.Decimal
	Length              *decimal.Decimal
	Width               *decimal.Decimal
	Height              *decimal.Decimal
	RRP                 *decimal.Decimal
	Brand               string
	EAN                 string
	StockQty            *int
	Rates               pricing.FreightRates
}

// Client talks to the supplier API with a shared quota, bearer auth and
// per-batch retries.
type Client struct {
	httpClient *http.Client
	config     *config.SupplierConfig
	limiter    Limiter
	clock      shared.Clock
	logger     *zap.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a new supplier API client.
func NewClient(cfg *config.SupplierConfig, limiter Limiter, clock shared.Clock, logger *zap.Logger) *Client {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		limiter:    limiter,
		clock:      clock,
		logger:     logger,
	}
}

// NormalizeSkus trims whitespace, drops empties and dedupes preserving the
// first occurrence.
func NormalizeSkus(skus []string) []string {
	seen := make(map[string]bool, len(skus))
	out := make([]string, 0, len(skus))
	for _, s := range skus {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// FetchProducts fetches product attributes for the given SKUs in batches.
// Records are merged deduped by supplier SKU, first occurrence winning. Each
// failed or incomplete batch gets one compensating call restricted to the
// SKUs it did not return. An empty input returns immediately without
// touching the network. Batch failures are counted, not fatal: the caller
// decides what a partial result means.
func (c *Client) FetchProducts(ctx context.Context, skus []string) (map[string]*Record, syncdomain.ChunkStats, error) {
	stats := syncdomain.ChunkStats{}
	skus = NormalizeSkus(skus)
	if len(skus) == 0 {
		return map[string]*Record{}, stats, nil
	}

	records := make(map[string]*Record, len(skus))
	stats.RequestedTotal = len(skus)

	for _, batch := range batchSkus(skus, c.config.ProductBatchSize) {
		got, err := c.fetchProductBatch(ctx, batch)
		if err != nil {
			c.logger.Warn("product batch failed",
				zap.Int("batch_size", len(batch)),
				zap.Error(err))
			stats.FailedBatchesCount++
			stats.FailedSkusCount += len(batch)
			stats.Merge(syncdomain.ChunkStats{FailedExamples: batch})
			continue
		}
		mergeRecords(records, got)

		// One compensating call per batch for the SKUs it did not return.
		missing := missingSkus(batch, records)
		if len(missing) > 0 {
			comp, err := c.fetchProductBatch(ctx, missing)
			if err != nil {
				c.logger.Warn("compensation batch failed", zap.Error(err))
			} else {
				mergeRecords(records, comp)
			}
			missing = missingSkus(batch, records)
			stats.MissingCount += len(missing)
			stats.Merge(syncdomain.ChunkStats{MissingExamples: missing})
		}
	}

	// Records the supplier volunteered beyond what we asked for.
	requested := make(map[string]bool, len(skus))
	for _, s := range skus {
		requested[s] = true
	}
	var extra []string
	for sku := range records {
		if !requested[sku] {
			extra = append(extra, sku)
			delete(records, sku)
		}
	}
	stats.ExtraCount = len(extra)
	stats.Merge(syncdomain.ChunkStats{ExtraExamples: extra})
	stats.ReturnedTotal = len(records)

	return records, stats, nil
}

// FetchZoneRates fetches the zonal freight rates for the given SKUs.
func (c *Client) FetchZoneRates(ctx context.Context, skus []string) (map[string]pricing.FreightRates, error) {
	skus = NormalizeSkus(skus)
	if len(skus) == 0 {
		return map[string]pricing.FreightRates{}, nil
	}
	out := make(map[string]pricing.FreightRates, len(skus))
	for _, batch := range batchSkus(skus, c.config.ZoneRateBatchSize) {
		rates, err := c.fetchZoneRateBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		for sku, r := range rates {
			if _, ok := out[sku]; !ok {
				out[sku] = r
			}
		}
	}
	return out, nil
}

// FetchRecords combines FetchProducts and FetchZoneRates into one pass,
// attaching rates to each returned record. Zone rate batch failures are
// health-counted rather than fatal.
func (c *Client) FetchRecords(ctx context.Context, skus []string) (map[string]*Record, syncdomain.ChunkStats, error) {
	records, stats, err := c.FetchProducts(ctx, skus)
	if err != nil || len(records) == 0 {
		return records, stats, err
	}

	got := make([]string, 0, len(records))
	for sku := range records {
		got = append(got, sku)
	}
	sort.Strings(got)
	for _, batch := range batchSkus(got, c.config.ZoneRateBatchSize) {
		rates, err := c.fetchZoneRateBatch(ctx, batch)
		if err != nil {
			c.logger.Warn("zone rate batch failed",
				zap.Int("batch_size", len(batch)),
				zap.Error(err))
			stats.FailedBatchesCount++
			continue
		}
		for sku, r := range rates {
			if rec, ok := records[sku]; ok {
				rec.Rates = r
			}
		}
	}
	return records, stats, nil
}

func mergeRecords(dst, src map[string]*Record) {
	for sku, rec := range src {
		if _, ok := dst[sku]; !ok {
			dst[sku] = rec
		}
	}
}

type productDTO struct {
	Sku                 string           `json:"sku"`
	Price               *decimal.Decimal `json:"price"`
	SpecialPrice        *decimal.Decimal `json:"special_price"`
	SpecialPriceEndDate string           `json:"special_price_end_date"`
	Weight              *decimal.Decimal `json:"weight"`
	CBM                 *decimal.Decimal `json:"cbm"`
	Length              *decimal.Decimal `json:"length"`
	Width               *decimal.Decimal `json:"width"`
	Height              *decimal.Decimal `json:"height"`
	RRP                 *decimal.Decimal `json:"rrp"`
	Brand               string           `json:"brand"`
	EAN                 string           `json:"ean"`
	StockQty            *int             `json:"stock_qty"`
}

type standardRatesDTO struct {
	Act    *decimal.Decimal `json:"act"`
	NswM   *decimal.Decimal `json:"nsw_m"`
	NswR   *decimal.Decimal `json:"nsw_r"`
	NtM    *decimal.Decimal `json:"nt_m"`
	QldM   *decimal.Decimal `json:"qld_m"`
	QldR   *decimal.Decimal `json:"qld_r"`
	SaM    *decimal.Decimal `json:"sa_m"`
	SaR    *decimal.Decimal `json:"sa_r"`
	TasM   *decimal.Decimal `json:"tas_m"`
	TasR   *decimal.Decimal `json:"tas_r"`
	VicM   *decimal.Decimal `json:"vic_m"`
	VicR   *decimal.Decimal `json:"vic_r"`
	WaM    *decimal.Decimal `json:"wa_m"`
	Remote *decimal.Decimal `json:"remote"`
	WaR    *decimal.Decimal `json:"wa_r"`
	Nz     *decimal.Decimal `json:"nz"`
}

type zoneRateDTO struct {
	Sku      string           `json:"sku"`
	Standard standardRatesDTO `json:"standard"`
}

// resultEnvelope peels the supplier's {result: [...]} wrapper, tolerating
// one level of nesting ({result: {result: [...]}}).
func resultEnvelope(body []byte, out interface{}) error {
	var env struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return &PayloadError{Message: err.Error()}
	}
	raw := env.Result
	if len(raw) > 0 && raw[0] == '{' {
		var nested struct {
			Result json.RawMessage `json:"result"`
		}
		if err := json.Unmarshal(raw, &nested); err == nil && len(nested.Result) > 0 {
			raw = nested.Result
		}
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &PayloadError{Message: err.Error()}
	}
	return nil
}

func (c *Client) fetchProductBatch(ctx context.Context, skus []string) (map[string]*Record, error) {
	path := "/v2/products?skus=" + url.QueryEscape(strings.Join(skus, ",")) +
		"&limit=" + strconv.Itoa(len(skus))
	body, err := c.requestWithRetry(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var products []productDTO
	if err := resultEnvelope(body, &products); err != nil {
		return nil, err
	}
	out := make(map[string]*Record, len(products))
	for _, p := range products {
		rec := &Record{
			Sku:          p.Sku,
			Price:        p.Price,
			SpecialPrice: p.SpecialPrice,
			Weight:       p.Weight,
			CBM:          p.CBM,
			Length:       p.Length,
			Width:        p.Width,
			Height:       p.Height,
			RRP:          p.RRP,
			Brand:        p.Brand,
			EAN:          p.EAN,
			StockQty:     p.StockQty,
		}
		if p.SpecialPriceEndDate != "" {
			if t, err := time.Parse("2006-01-02", p.SpecialPriceEndDate); err == nil {
				rec.SpecialPriceEndDate = &t
			}
		}
		out[p.Sku] = rec
	}
	return out, nil
}

func (c *Client) fetchZoneRateBatch(ctx context.Context, skus []string) (map[string]pricing.FreightRates, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"skus":    skus,
		"page_no": 1,
		"limit":   len(skus),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	body, err := c.requestWithRetry(ctx, http.MethodPost, "/v2/get_zone_rates", payload)
	if err != nil {
		return nil, err
	}
	var rates []zoneRateDTO
	if err := resultEnvelope(body, &rates); err != nil {
		return nil, err
	}
	out := make(map[string]pricing.FreightRates, len(rates))
	for _, r := range rates {
		s := r.Standard
		out[r.Sku] = pricing.FreightRates{
			ACT: s.Act, NswM: s.NswM, NswR: s.NswR, NtM: s.NtM,
			QldM: s.QldM, QldR: s.QldR, SaM: s.SaM, SaR: s.SaR,
			TasM: s.TasM, TasR: s.TasR, VicM: s.VicM, VicR: s.VicR,
			WaM: s.WaM, Remote: s.Remote, WaR: s.WaR, NZ: s.Nz,
		}
	}
	return out, nil
}

// requestWithRetry sends one authenticated request with quota acquisition
// and exponential backoff on retryable failures. A single 401 triggers a
// token refresh and replay without consuming a retry attempt.
func (c *Client) requestWithRetry(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	maxAttempts := c.config.Retry.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := c.config.Retry.BackoffBase * time.Duration(1<<uint(attempt-1))
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			jitter := time.Duration(rand.Int63n(int64(backoff)/2 + 1))
			c.clock.Sleep(backoff + jitter)
		}

		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, err
		}

		body, retryable, retryAfter, err := c.doOnce(ctx, method, path, payload)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		if retryAfter > 0 {
			c.clock.Sleep(retryAfter)
		}
		c.logger.Debug("supplier request retry",
			zap.String("path", path),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return nil, lastErr
}

// doOnce performs one request cycle including the single 401 refresh+replay.
func (c *Client) doOnce(ctx context.Context, method, path string, payload []byte) (respBody []byte, retryable bool, retryAfter time.Duration, err error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, false, 0, err
	}

	status, retryAfter, body, err := c.send(ctx, method, path, payload, token)
	if err != nil {
		return nil, true, 0, err
	}

	if status == http.StatusUnauthorized {
		token, err = c.refreshToken(ctx)
		if err != nil {
			return nil, false, 0, err
		}
		status, retryAfter, body, err = c.send(ctx, method, path, payload, token)
		if err != nil {
			return nil, true, 0, err
		}
	}

	switch {
	case status == http.StatusOK:
		return body, false, 0, nil
	case status == http.StatusTooManyRequests:
		return nil, true, retryAfter, &RateLimitError{Attempts: 1, Message: "supplier returned 429"}
	case status >= 500:
		return nil, true, 0, &ServerError{StatusCode: status, Message: string(truncate(body, 200))}
	case status == http.StatusUnauthorized:
		return nil, false, 0, &AuthError{StatusCode: status, Message: "token rejected after refresh"}
	default:
		return nil, false, 0, &ClientError{StatusCode: status, Message: string(truncate(body, 200))}
	}
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string) (status int, retryAfter time.Duration, body []byte, err error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, perr := strconv.Atoi(v); perr == nil {
			retryAfter = time.Duration(secs) * time.Second
		}
	}
	return resp.StatusCode, retryAfter, body, nil
}

// ensureToken returns the cached bearer token, authenticating when absent or
// expired.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.clock.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}
	return c.authenticateLocked(ctx)
}

// refreshToken discards the cached token and re-authenticates.
func (c *Client) refreshToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	return c.authenticateLocked(ctx)
}

func (c *Client) authenticateLocked(ctx context.Context) (string, error) {
	payload, _ := json.Marshal(map[string]string{
		"username": c.config.Username,
		"password": c.config.Password,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/auth", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read auth response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &AuthError{StatusCode: resp.StatusCode, Message: string(truncate(body, 200))}
	}

	var auth struct {
		Token       string `json:"token"`
		AccessToken string `json:"access_token"`
		JWT         string `json:"jwt"`
		Exp         int64  `json:"exp"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &auth); err != nil {
		return "", &PayloadError{Message: "auth response: " + err.Error()}
	}
	token := auth.Token
	if token == "" {
		token = auth.AccessToken
	}
	if token == "" {
		token = auth.JWT
	}
	if token == "" {
		return "", &AuthError{StatusCode: resp.StatusCode, Message: "auth response carried no token"}
	}

	now := c.clock.Now()
	var expiry time.Time
	switch {
	case auth.Exp > 1e12:
		// exp in epoch milliseconds
		expiry = time.UnixMilli(auth.Exp)
	case auth.Exp > 0:
		expiry = time.Unix(auth.Exp, 0)
	case auth.ExpiresIn > 0:
		expiry = now.Add(time.Duration(auth.ExpiresIn) * time.Second)
	default:
		expiry = now.Add(c.config.TokenFallbackTTL)
	}
	// Refresh a minute early so in-flight requests do not straddle expiry.
	c.token = token
	c.tokenExpiry = expiry.Add(-time.Minute)
	return c.token, nil
}

func batchSkus(skus []string, size int) [][]string {
	if size <= 0 {
		size = 100
	}
	var out [][]string
	for start := 0; start < len(skus); start += size {
		end := start + size
		if end > len(skus) {
			end = len(skus)
		}
		out = append(out, skus[start:end])
	}
	return out
}

func missingSkus(requested []string, got map[string]*Record) []string {
	var out []string
	for _, sku := range requested {
		if _, ok := got[sku]; !ok {
			out = append(out, sku)
		}
	}
	return out
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

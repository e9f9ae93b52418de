package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ozdirect/pricesync/internal/domain/shared"
	"github.com/ozdirect/pricesync/internal/infrastructure/config"
)

// Bulk operation statuses reported by the storefront.
const (
	BulkStatusCreated   = "CREATED"
	BulkStatusRunning   = "RUNNING"
	BulkStatusCompleted = "COMPLETED"
	BulkStatusFailed    = "FAILED"
	BulkStatusCanceled  = "CANCELED"
)

// BulkOperation is the storefront's view of one bulk export.
type BulkOperation struct {
	ID              string
	Status          string
	URL             string
	Query           string
	RootObjectCount int
}

// BulkClient drives the storefront's bulk export GraphQL surface.
type BulkClient struct {
	httpClient *http.Client
	config     *config.StorefrontConfig
	clock      shared.Clock
	logger     *zap.Logger
}

// NewBulkClient creates a new storefront bulk client.
func NewBulkClient(cfg *config.StorefrontConfig, clock shared.Clock, logger *zap.Logger) *BulkClient {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &BulkClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		clock:      clock,
		logger:     logger,
	}
}

// ProductQuery is the bulk export document: every active product carrying
// the sync tag, flattened to variants.
func (c *BulkClient) ProductQuery() string {
	return fmt.Sprintf(`{
  products(query: "tag:%s status:active") {
    edges {
      node {
        id
        tags
        variants {
          edges {
            node {
              id
              sku
              price
            }
          }
        }
      }
    }
  }
}`, c.config.SyncTag)
}

// StartBulkQuery submits the bulk export. When the storefront reports an
// operation already in progress, the existing operation is adopted if its
// query matches ours; otherwise a BulkConflictError is returned. THROTTLED
// responses back off and retry.
func (c *BulkClient) StartBulkQuery(ctx context.Context) (*BulkOperation, error) {
	mutation := fmt.Sprintf(`mutation { bulkOperationRunQuery(query: %s) {
  bulkOperation { id status }
  userErrors { field message }
} }`, jsonString(c.ProductQuery()))

	backoff := time.Second
	for attempt := 0; attempt < c.config.Retry.MaxAttempts; attempt++ {
		var resp struct {
			Data struct {
				BulkOperationRunQuery struct {
					BulkOperation *struct {
						ID     string `json:"id"`
						Status string `json:"status"`
					} `json:"bulkOperation"`
					UserErrors []struct {
						Message string `json:"message"`
					} `json:"userErrors"`
				} `json:"bulkOperationRunQuery"`
			} `json:"data"`
			Errors []struct {
				Message    string `json:"message"`
				Extensions struct {
					Code string `json:"code"`
				} `json:"extensions"`
			} `json:"errors"`
		}
		if err := c.graphql(ctx, mutation, &resp); err != nil {
			return nil, err
		}

		throttled := false
		for _, e := range resp.Errors {
			if e.Extensions.Code == "THROTTLED" {
				throttled = true
			}
		}
		if throttled {
			c.logger.Debug("bulk start throttled", zap.Duration("backoff", backoff))
			c.clock.Sleep(backoff)
			backoff *= 2
			if backoff > 30*time.Second {
				backoff = 30 * time.Second
			}
			continue
		}

		for _, ue := range resp.Data.BulkOperationRunQuery.UserErrors {
			if containsInProgress(ue.Message) {
				return c.adoptCurrent(ctx)
			}
			return nil, fmt.Errorf("bulk start rejected: %s", ue.Message)
		}

		op := resp.Data.BulkOperationRunQuery.BulkOperation
		if op == nil {
			return nil, fmt.Errorf("bulk start returned no operation")
		}
		return &BulkOperation{ID: op.ID, Status: op.Status}, nil
	}
	return nil, fmt.Errorf("bulk start throttled beyond retry budget")
}

// adoptCurrent fetches the in-progress operation and adopts it when its
// query matches our export document.
func (c *BulkClient) adoptCurrent(ctx context.Context) (*BulkOperation, error) {
	op, err := c.CurrentBulkOperation(ctx)
	if err != nil {
		return nil, err
	}
	if op == nil {
		return nil, fmt.Errorf("storefront reported a bulk conflict but no current operation")
	}
	if op.Query != c.ProductQuery() {
		return nil, shared.NewBulkConflictError(op.ID)
	}
	c.logger.Info("adopted in-progress bulk operation", zap.String("bulk_id", op.ID))
	return op, nil
}

// CurrentBulkOperation returns the storefront's current query-type bulk
// operation, or nil when none exists.
func (c *BulkClient) CurrentBulkOperation(ctx context.Context) (*BulkOperation, error) {
	query := `{ currentBulkOperation(type: QUERY) { id status url query rootObjectCount } }`
	var resp struct {
		Data struct {
			CurrentBulkOperation *bulkOperationDTO `json:"currentBulkOperation"`
		} `json:"data"`
	}
	if err := c.graphql(ctx, query, &resp); err != nil {
		return nil, err
	}
	if resp.Data.CurrentBulkOperation == nil {
		return nil, nil
	}
	return resp.Data.CurrentBulkOperation.toEntity(), nil
}

// PollBulkOperation fetches one operation by id.
func (c *BulkClient) PollBulkOperation(ctx context.Context, bulkID string) (*BulkOperation, error) {
	query := fmt.Sprintf(`{ node(id: %s) { ... on BulkOperation { id status url query rootObjectCount } } }`, jsonString(bulkID))
	var resp struct {
		Data struct {
			Node *bulkOperationDTO `json:"node"`
		} `json:"data"`
	}
	if err := c.graphql(ctx, query, &resp); err != nil {
		return nil, err
	}
	if resp.Data.Node == nil || resp.Data.Node.ID == "" {
		return nil, fmt.Errorf("bulk operation %s not found", bulkID)
	}
	return resp.Data.Node.toEntity(), nil
}

// FetchResult opens the completed export's JSONL stream. The caller owns the
// returned body.
func (c *BulkClient) FetchResult(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build result request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bulk result: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("bulk result fetch returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

type bulkOperationDTO struct {
	ID              string          `json:"id"`
	Status          string          `json:"status"`
	URL             string          `json:"url"`
	Query           string          `json:"query"`
	RootObjectCount json.RawMessage `json:"rootObjectCount"`
}

func (d *bulkOperationDTO) toEntity() *BulkOperation {
	count := 0
	if len(d.RootObjectCount) > 0 {
		// rootObjectCount arrives as a number or a numeric string
		var n int
		if err := json.Unmarshal(d.RootObjectCount, &n); err == nil {
			count = n
		} else {
			var s string
			if err := json.Unmarshal(d.RootObjectCount, &s); err == nil {
				fmt.Sscanf(s, "%d", &count)
			}
		}
	}
	return &BulkOperation{
		ID:              d.ID,
		Status:          d.Status,
		URL:             d.URL,
		Query:           d.Query,
		RootObjectCount: count,
	}
}

func (c *BulkClient) graphql(ctx context.Context, query string, out interface{}) error {
	payload, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return fmt.Errorf("failed to marshal graphql request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/admin/api/graphql.json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.config.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graphql request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read graphql response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("graphql returned status %d: %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode graphql response: %w", err)
	}
	return nil
}

func containsInProgress(msg string) bool {
	return bytes.Contains(bytes.ToLower([]byte(msg)), []byte("already in progress"))
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// Package patentsview implements the upstream patent-metadata API client
// used to fetch forward citations. The API enforces a per-key request quota,
// so all calls go through a shared rate limiter, and transient failures
// (429, 5xx) are retried with exponential backoff.
package patentsview

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/ipbench/ipsignal/internal/config"
	"github.com/ipbench/ipsignal/internal/domain/citation"
	"github.com/ipbench/ipsignal/internal/infrastructure/monitoring/logging"
	"github.com/ipbench/ipsignal/internal/infrastructure/monitoring/prometheus"
	"github.com/ipbench/ipsignal/pkg/errors"
)

// Client fetches forward-citation data for portfolio patents.
type Client interface {
	// ForwardCitations returns the patents citing patentID together with
	// their assignee organizations. An empty result is valid data (the
	// patent has no forward citations), not an error.
	ForwardCitations(ctx context.Context, patentID string) ([]citation.CitingPatent, error)
}

type client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     logging.Logger
	metrics    *prometheus.PipelineMetrics

	baseURL     string
	apiKey      string
	backoffBase time.Duration
	maxRetries  int
}

// Option customizes a Client.
type Option func(*client)

// WithMetrics records request, retry, and latency metrics on m.
func WithMetrics(m *prometheus.PipelineMetrics) Option {
	return func(c *client) { c.metrics = m }
}

// NewClient returns a rate-limited API client.
func NewClient(cfg config.PatentsViewConfig, log logging.Logger, opts ...Option) Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &client{
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(rate.Every(cfg.RequestInterval), 1),
		logger:      log,
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		backoffBase: cfg.BackoffBase,
		maxRetries:  cfg.MaxRetries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// citationResponse is the wire shape of the citing-patent search result.
type citationResponse struct {
	Patents   []citation.CitingPatent `json:"patents"`
	Count     int                     `json:"count"`
	TotalHits int                     `json:"total_hits"`
}

func (c *client) ForwardCitations(ctx context.Context, patentID string) ([]citation.CitingPatent, error) {
	query := fmt.Sprintf(`{"_eq":{"patents_cited.patent_id":%q}}`, patentID)
	fields := `["patent_id","assignees.assignee_organization"]`
	opts := `{"size":1000}`

	u := fmt.Sprintf("%s/patent/?q=%s&f=%s&o=%s",
		c.baseURL, url.QueryEscape(query), url.QueryEscape(fields), url.QueryEscape(opts))

	body, err := c.getWithRetry(ctx, u, patentID)
	if err != nil {
		return nil, err
	}

	var resp citationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCitationDataInvalid, "citation response is not valid JSON").WithDetail(patentID)
	}
	return resp.Patents, nil
}

// getWithRetry performs the request under the shared rate limit, retrying
// 429 and 5xx responses with exponential backoff. 4xx responses other than
// 429 are permanent and fail immediately.
func (c *client) getWithRetry(ctx context.Context, requestURL, patentID string) ([]byte, error) {
	backoff := c.backoffBase
	if backoff <= 0 {
		backoff = 2 * time.Second
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeTimeout, "rate limiter wait interrupted")
		}

		started := time.Now()
		body, retryable, err := c.doGet(ctx, requestURL)
		if c.metrics != nil {
			c.metrics.FetchRequests.Inc()
			c.metrics.FetchDuration.Observe(time.Since(started).Seconds())
			if attempt > 0 {
				c.metrics.FetchRetries.Inc()
			}
		}
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}

		if attempt < c.maxRetries {
			c.logger.Warn("retrying citation fetch",
				logging.String("patent_id", patentID),
				logging.Int("attempt", attempt+1),
				logging.Duration("backoff", backoff),
				logging.Err(err),
			)
			select {
			case <-ctx.Done():
				return nil, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "citation fetch canceled")
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return nil, errors.Wrap(lastErr, errors.ErrCodeAPIRetriesExhausted, "citation fetch failed after retries").WithDetail(patentID)
}

func (c *client) doGet(ctx context.Context, requestURL string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeAPIRequestFailed, "building request failed")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network errors are retryable.
		return nil, true, errors.Wrap(err, errors.ErrCodeAPIRequestFailed, "request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, true, errors.Wrap(err, errors.ErrCodeAPIRequestFailed, "reading response failed")
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return data, false, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, errors.New(errors.ErrCodeAPIRateLimited, "rate limited by upstream")
	case resp.StatusCode >= 500:
		return nil, true, errors.Newf(errors.ErrCodeAPIRequestFailed, "upstream error: %d", resp.StatusCode)
	default:
		return nil, false, errors.Newf(errors.ErrCodeAPIRequestFailed, "unexpected status: %d", resp.StatusCode)
	}
}

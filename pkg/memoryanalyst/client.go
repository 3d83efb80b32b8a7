// Package memoryanalyst is a client for the Memory Analyst service, which
// serves historical pattern hits and per-type recommendation outcomes.
package memoryanalyst

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/account-advisor/internal/model"
	"github.com/sells-group/account-advisor/internal/resilience"
)

const defaultBaseURL = "http://localhost:7780"

// Client queries the Memory Analyst for pattern and outcome history.
type Client interface {
	Patterns(ctx context.Context, accountID string) ([]model.MemoryPattern, error)
	Outcomes(ctx context.Context, accountID string) (map[model.RecommendationType]model.OutcomeStats, error)
}

// patternsResponse is the body of GET /accounts/{id}/patterns.
type patternsResponse struct {
	Patterns []model.MemoryPattern `json:"patterns"`
}

// outcomesResponse is the body of GET /accounts/{id}/outcomes.
type outcomesResponse struct {
	Outcomes map[string]model.OutcomeStats `json:"outcomes"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default service base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets a per-second request rate limit.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Memory Analyst client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "memoryanalyst: rate limit")
		}
	}

	policy := resilience.DefaultPolicy()
	policy.OnRetry = resilience.LogRetries("memory-analyst", path)

	body, err := resilience.DoVal(ctx, policy, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, eris.Wrap(err, "memoryanalyst: create request")
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "memoryanalyst: send request")
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "memoryanalyst: read response")
		}

		if resp.StatusCode != http.StatusOK {
			statusErr := eris.Errorf("memoryanalyst: unexpected status %d: %s", resp.StatusCode, string(body))
			if resilience.RetryableStatus(resp.StatusCode) {
				return nil, resilience.MarkRetryable(statusErr, resp.StatusCode)
			}
			return nil, statusErr
		}
		return body, nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "memoryanalyst: decode response")
	}
	return nil
}

func (c *httpClient) Patterns(ctx context.Context, accountID string) ([]model.MemoryPattern, error) {
	var result patternsResponse
	path := fmt.Sprintf("/accounts/%s/patterns", url.PathEscape(accountID))
	if err := c.get(ctx, path, &result); err != nil {
		return nil, err
	}
	return result.Patterns, nil
}

func (c *httpClient) Outcomes(ctx context.Context, accountID string) (map[model.RecommendationType]model.OutcomeStats, error) {
	var result outcomesResponse
	path := fmt.Sprintf("/accounts/%s/outcomes", url.PathEscape(accountID))
	if err := c.get(ctx, path, &result); err != nil {
		return nil, err
	}

	outcomes := make(map[model.RecommendationType]model.OutcomeStats, len(result.Outcomes))
	for k, v := range result.Outcomes {
		t := model.RecommendationType(k)
		if !t.Valid() {
			continue
		}
		outcomes[t] = v
	}
	return outcomes, nil
}

// Package datascout provides Salesforce-backed retrieval of the account,
// deal, and activity snapshots consumed by the advisor.
package datascout

import (
	"context"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/account-advisor/internal/resilience"
)

// Client defines the CRM query surface the Data Scout needs.
type Client interface {
	Query(ctx context.Context, soql string, out any) error
}

// ClientOption configures the Data Scout client.
type ClientOption func(*sfClient)

// WithRateLimit sets a per-second rate limit for CRM API calls.
// A burst equal to the integer portion of rps is allowed.
func WithRateLimit(rps float64) ClientOption {
	return func(c *sfClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// sfClient wraps the go-salesforce/v3 Salesforce struct.
//
// NOTE: The underlying go-salesforce/v3 library does not accept
// context.Context, so the SF call itself cannot be cancelled; the ctx is
// still honored while waiting on the rate limiter.
type sfClient struct {
	sf      *salesforce.Salesforce
	limiter *rate.Limiter
}

// NewClient creates a Client wrapping the given go-salesforce instance.
func NewClient(sf *salesforce.Salesforce, opts ...ClientOption) Client {
	c := &sfClient{sf: sf}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wait blocks until the rate limiter allows one event, or ctx is cancelled.
func (c *sfClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *sfClient) Query(ctx context.Context, soql string, out any) error {
	if err := c.wait(ctx); err != nil {
		return eris.Wrap(err, "datascout: rate limit")
	}

	policy := resilience.DefaultPolicy()
	policy.OnRetry = resilience.LogRetries("data-scout", "query")

	err := resilience.Do(ctx, policy, func(ctx context.Context) error {
		return c.sf.Query(soql, out)
	})
	if err != nil {
		return eris.Wrap(err, "datascout: query")
	}
	return nil
}

// Package crm provides rate-limited, retrying access to the Salesforce REST
// API and shapes query results into the engine's record maps.
package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/dashboard-engine/internal/record"
	"github.com/sells-group/dashboard-engine/internal/resilience"
)

// Client defines the Salesforce operations the dashboard backend uses.
type Client interface {
	// QueryRecords runs a SOQL query and returns every page of results as
	// loosely-typed records.
	QueryRecords(ctx context.Context, soql string) ([]record.Record, error)
}

// queryResponse is one page of a Salesforce query result.
type queryResponse struct {
	TotalSize      int              `json:"totalSize"`
	Done           bool             `json:"done"`
	NextRecordsURL string           `json:"nextRecordsUrl"`
	Records        []map[string]any `json:"records"`
}

// ClientOption configures the Salesforce client.
type ClientOption func(*sfClient)

// WithRateLimit sets a per-second rate limit for SF API calls.
// A burst equal to the integer portion of rps is allowed.
func WithRateLimit(rps float64) ClientOption {
	return func(c *sfClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// WithRetry overrides the default retry policy for transient SF errors.
func WithRetry(cfg resilience.RetryConfig) ClientOption {
	return func(c *sfClient) { c.retry = cfg }
}

// sfClient wraps the go-salesforce/v3 Salesforce struct.
//
// NOTE: The underlying go-salesforce/v3 library does not accept
// context.Context, so the ctx parameter governs only rate-limiter waits and
// retry backoff; callers can still cancel those.
type sfClient struct {
	sf      *salesforce.Salesforce
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a Client wrapping the given authenticated go-salesforce
// instance.
func NewClient(sf *salesforce.Salesforce, opts ...ClientOption) Client {
	c := &sfClient{sf: sf, retry: resilience.DefaultRetryConfig()}
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

func (c *sfClient) QueryRecords(ctx context.Context, soql string) ([]record.Record, error) {
	var out []record.Record
	path := "/query?q=" + url.QueryEscape(soql)

	for path != "" {
		var page queryResponse
		err := resilience.Do(ctx, c.retry, func(ctx context.Context) error {
			if err := c.wait(ctx); err != nil {
				return eris.Wrap(err, "sf: rate limit")
			}
			return c.fetchPage(path, &page)
		})
		if err != nil {
			return nil, eris.Wrap(err, "sf: query records")
		}

		for _, raw := range page.Records {
			out = append(out, toRecord(raw))
		}

		if page.Done {
			break
		}
		// nextRecordsUrl is versioned ("/services/data/vXX.X/query/..."); the
		// library re-roots it, so strip to the query suffix.
		path = trimVersionPrefix(page.NextRecordsURL)
	}
	return out, nil
}

func (c *sfClient) fetchPage(path string, page *queryResponse) error {
	resp, err := c.sf.DoRequest(http.MethodGet, path, nil)
	if err != nil {
		return eris.Wrap(err, "sf: do request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return eris.New(fmt.Sprintf("sf: query returned status %d: %s", resp.StatusCode, body))
	}

	*page = queryResponse{}
	if err := json.NewDecoder(resp.Body).Decode(page); err != nil {
		return eris.Wrap(err, "sf: decode query response")
	}
	return nil
}

// toRecord strips Salesforce envelope keys and flattens the field map.
func toRecord(raw map[string]any) record.Record {
	rec := make(record.Record, len(raw))
	for k, v := range raw {
		if k == "attributes" {
			continue
		}
		rec[k] = v
	}
	return rec
}

// trimVersionPrefix converts "/services/data/v61.0/query/01g..." into
// "/query/01g..." for DoRequest, which prepends the version itself.
func trimVersionPrefix(nextURL string) string {
	if nextURL == "" {
		return ""
	}
	const marker = "/query/"
	if i := strings.Index(nextURL, marker); i >= 0 {
		return nextURL[i:]
	}
	return nextURL
}

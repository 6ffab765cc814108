// HTTP transport for the ServiceNow Table API.
//
// # Client Architecture
//
// The Client wraps Go's standard net/http.Client and provides:
//
//   - Authentication: Delegates to the [Authenticator] interface.
//   - Retry with backoff: Exponential backoff with jitter for transient errors.
//   - 401 recovery: One [Authenticator.ForceRefresh] and immediate retry;
//     a second 401 is returned as *AuthError.
//   - 429 rate limiting: Respects the Retry-After header from ServiceNow.
//   - Optional rate limiter: Proactive client-side rate limiting via
//     golang.org/x/time/rate.
//
// # Retry Strategy
//
// The retry loop differentiates errors by HTTP status code:
//
//	2xx                  success — return body
//	401 Unauthorized     ForceRefresh once, retry immediately; then *AuthError
//	429 Too Many Reqs    sleep for Retry-After, retry
//	5xx / network error  exponential backoff with jitter
//	4xx (other)          fatal — *RemoteError, no retry
//
// # URL Construction
//
// APIs are called at: {BaseURL}{TableAPIPath}/{tableName}?sysparm_query=...
// Query parameters follow the Table API convention (sysparm_query,
// sysparm_limit, sysparm_exclude_reference_link). Values are escaped with
// net/url, so '=', '@', and spaces never appear raw in the query string.
//
// # Thread Safety
//
// The Client is safe for concurrent use; there is no shared mutable state
// beyond the pooled http.Client and the thread-safe Authenticator.
package servicenow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hematic/servicenow-client/internal/config"
	"github.com/hematic/servicenow-client/internal/observability"
	"golang.org/x/time/rate"
)

// Client provides raw record operations against ServiceNow tables.
// All methods are safe for concurrent use.
type Client interface {
	// GetRecords queries a ServiceNow table and returns matching records.
	// The query must not be nil (use NewQueryBuilder() for an empty query).
	// A limit of 0 means the server default page size.
	GetRecords(ctx context.Context, table string, query *QueryBuilder, limit int) ([]Record, error)

	// InsertRecord creates a new record in the specified table and returns
	// the created record, which includes the assigned sys_id.
	InsertRecord(ctx context.Context, table string, record Record) (Record, error)

	// UpdateRecord partially updates the record identified by sysID via
	// HTTP PUT; only the supplied fields change on the remote record.
	UpdateRecord(ctx context.Context, table string, sysID string, record Record) (Record, error)

	// Close releases any resources held by the client.
	Close()
}

// httpClient is the concrete implementation of the Client interface.
type httpClient struct {
	baseURL      string
	tableAPIPath string
	auth         Authenticator
	http         *http.Client
	limiter      *rate.Limiter
	logger       *slog.Logger

	// Retry configuration
	maxRetries         int
	initialBackoff     time.Duration
	maxBackoff         time.Duration
	retryBackoffFactor float64
}

// ClientOption is a functional option for configuring the HTTP client.
type ClientOption func(*httpClient)

// WithRateLimiter sets a client-side rate limiter.
func WithRateLimiter(rps float64) ClientOption {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), int(math.Max(1, rps)))
		}
	}
}

// NewClient creates a new ServiceNow Table API client. The caller is
// responsible for calling Close() on both the client and the authenticator.
func NewClient(cfg config.ServiceNowConfig, auth Authenticator, logger *slog.Logger, opts ...ClientOption) Client {
	c := &httpClient{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		tableAPIPath: cfg.TableAPIPath,
		auth:         auth,
		logger:       logger.With("component", "sn-client"),
		http: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},

		maxRetries:         cfg.MaxRetries,
		initialBackoff:     100 * time.Millisecond,
		maxBackoff:         time.Minute,
		retryBackoffFactor: 2.0,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Close releases resources. Currently a no-op but included for interface
// compliance.
func (c *httpClient) Close() {}

// GetRecords queries a table:
//
//	GET {baseURL}/api/now/table/{table}?sysparm_query=...&sysparm_limit=...
//
// The response JSON has the structure {"result": [{...}, ...]}; callers
// always receive the unwrapped result.
func (c *httpClient) GetRecords(ctx context.Context, table string, query *QueryBuilder, limit int) ([]Record, error) {
	if query == nil {
		return nil, fmt.Errorf("query must not be nil; use NewQueryBuilder() for an empty query")
	}

	reqURL, err := c.buildTableURL(table, query.Build(), limit)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("fetching records",
		"table", table,
		"query", query.Build(),
		"limit", limit,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating GET request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.doWithRetry(ctx, req, table)
	if err != nil {
		return nil, err
	}

	var resp TableResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing response JSON: %w (body: %.200s)", err, string(body))
	}

	return resp.Result, nil
}

// InsertRecord creates a new record:
//
//	POST {baseURL}/api/now/table/{table}
func (c *httpClient) InsertRecord(ctx context.Context, table string, record Record) (Record, error) {
	reqURL := c.baseURL + c.tableAPIPath + "/" + strings.TrimLeft(table, "/")

	body, err := c.send(ctx, http.MethodPost, reqURL, table, record)
	if err != nil {
		return nil, err
	}

	var resp SingleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing insert response: %w", err)
	}
	return resp.Result, nil
}

// UpdateRecord partially updates an existing record:
//
//	PUT {baseURL}/api/now/table/{table}/{sys_id}
//
// Fields absent from the body are left untouched on the remote record.
func (c *httpClient) UpdateRecord(ctx context.Context, table string, sysID string, record Record) (Record, error) {
	reqURL := c.baseURL + c.tableAPIPath + "/" + strings.TrimLeft(table, "/") + "/" + url.PathEscape(sysID)

	body, err := c.send(ctx, http.MethodPut, reqURL, table, record)
	if err != nil {
		return nil, err
	}

	var resp SingleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing update response: %w", err)
	}
	return resp.Result, nil
}

// send issues a mutating JSON request and returns the raw response body.
func (c *httpClient) send(ctx context.Context, method, reqURL, table string, record Record) ([]byte, error) {
	jsonBody, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshaling record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, strings.NewReader(string(jsonBody)))
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.doWithRetry(ctx, req, table)
}

// buildTableURL constructs the full request URL for a Table API GET query.
// All values are URL-encoded via net/url, which keeps '=', '@', and spaces
// out of the raw query string.
func (c *httpClient) buildTableURL(table, query string, limit int) (string, error) {
	u, err := url.Parse(c.baseURL + c.tableAPIPath + "/" + strings.TrimLeft(table, "/"))
	if err != nil {
		return "", fmt.Errorf("building URL: %w", err)
	}

	params := url.Values{}
	params.Set("sysparm_exclude_reference_link", "true")
	if limit > 0 {
		params.Set("sysparm_limit", strconv.Itoa(limit))
	}
	if query != "" {
		params.Set("sysparm_query", query)
	}

	u.RawQuery = params.Encode()
	return u.String(), nil
}

// doWithRetry executes an HTTP request with the configured retry strategy.
//
//  1. Wait for the rate limiter (if configured)
//  2. Attach the current auth header
//  3. Send the request
//  4. On success: return the response body
//  5. On 401: ForceRefresh once, retry immediately; a second 401 is *AuthError
//  6. On 429: sleep for Retry-After seconds, retry
//  7. On 5xx or network error: exponential backoff with jitter
//  8. On 4xx (other): *RemoteError immediately, non-retryable
func (c *httpClient) doWithRetry(ctx context.Context, req *http.Request, table string) ([]byte, error) {
	method := req.Method
	backoff := c.initialBackoff
	maxAttempts := c.maxRetries
	if maxAttempts < 0 {
		maxAttempts = math.MaxInt32 // unlimited
	}

	var lastErr error
	refreshed := false
	for attempt := 0; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			observability.Metrics.APIErrorsTotal.WithLabelValues(method, "context_canceled").Inc()
			return nil, &TransportError{Err: err}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				observability.Metrics.APIErrorsTotal.WithLabelValues(method, "rate_limited").Inc()
				return nil, &TransportError{Err: fmt.Errorf("rate limiter wait: %w", err)}
			}
		}

		token, err := c.auth.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("getting auth token: %w", err)
		}
		// Clone to avoid mutating the original on retry; the body must be
		// re-created per attempt because a previous attempt consumed it.
		reqClone := req.Clone(ctx)
		if req.GetBody != nil {
			reqClone.Body, err = req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("re-creating request body: %w", err)
			}
		}
		reqClone.Header.Set("Authorization", token)

		requestStart := time.Now()
		resp, err := c.http.Do(reqClone)
		observability.Metrics.APIRequestsTotal.WithLabelValues(method, table).Inc()
		observability.Metrics.APILatency.WithLabelValues(method, table).Observe(time.Since(requestStart).Seconds())
		if err != nil {
			lastErr = &TransportError{Err: err}
			observability.Metrics.APIErrorsTotal.WithLabelValues(method, "network").Inc()
			c.logger.Warn("request failed, will retry",
				"attempt", attempt+1,
				"error", err,
				"backoff", backoff,
			)
			c.sleepWithJitter(ctx, backoff)
			backoff = c.nextBackoff(backoff)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = &TransportError{Err: fmt.Errorf("reading response body: %w", readErr)}
			c.sleepWithJitter(ctx, backoff)
			backoff = c.nextBackoff(backoff)
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return body, nil

		case resp.StatusCode == http.StatusUnauthorized:
			observability.Metrics.APIErrorsTotal.WithLabelValues(method, "401").Inc()
			if refreshed {
				// Already refreshed once this call; the credentials are bad.
				return nil, &AuthError{StatusCode: resp.StatusCode, Body: truncateBody(body)}
			}
			c.logger.Info("received 401, forcing credential refresh", "attempt", attempt+1)
			if refreshErr := c.auth.ForceRefresh(ctx); refreshErr != nil {
				return nil, &AuthError{StatusCode: resp.StatusCode, Body: truncateBody(body)}
			}
			refreshed = true
			lastErr = &AuthError{StatusCode: resp.StatusCode, Body: truncateBody(body)}
			// Retry immediately — no backoff.
			continue

		case resp.StatusCode == http.StatusTooManyRequests:
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			c.logger.Warn("received 429, respecting Retry-After",
				"retry_after", retryAfter,
				"attempt", attempt+1,
			)
			observability.Metrics.APIErrorsTotal.WithLabelValues(method, "429").Inc()
			lastErr = &RemoteError{StatusCode: resp.StatusCode, Body: truncateBody(body)}
			c.sleepWithJitter(ctx, retryAfter)
			continue

		case resp.StatusCode >= 500:
			lastErr = &RemoteError{StatusCode: resp.StatusCode, Body: truncateBody(body)}
			observability.Metrics.APIErrorsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()
			c.logger.Warn("server error, will retry",
				"status", resp.StatusCode,
				"attempt", attempt+1,
				"backoff", backoff,
			)
			c.sleepWithJitter(ctx, backoff)
			backoff = c.nextBackoff(backoff)
			continue

		default:
			// 4xx (non-401, non-429) — fatal, do not retry.
			observability.Metrics.APIErrorsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()
			return nil, &RemoteError{StatusCode: resp.StatusCode, Body: truncateBody(body)}
		}
	}

	return nil, fmt.Errorf("exhausted %d retries: %w", maxAttempts, lastErr)
}

// nextBackoff calculates the next backoff duration using exponential growth
// capped at maxBackoff.
func (c *httpClient) nextBackoff(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * c.retryBackoffFactor)
	if next > c.maxBackoff {
		return c.maxBackoff
	}
	return next
}

// sleepWithJitter sleeps for a random duration between 50% and 100% of the
// given base duration. Returns early if the context is cancelled.
func (c *httpClient) sleepWithJitter(ctx context.Context, base time.Duration) {
	jitter := time.Duration(float64(base) * (0.5 + rand.Float64()*0.5))
	select {
	case <-ctx.Done():
	case <-time.After(jitter):
	}
}

// parseRetryAfter parses the Retry-After header value as seconds.
// Returns a default of 30 seconds if the header is empty or unparseable.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 30 * time.Second
	}
	seconds, err := strconv.Atoi(header)
	if err != nil {
		return 30 * time.Second
	}
	return time.Duration(seconds) * time.Second
}

// truncateBody returns the first 500 bytes of a response body for diagnostics.
func truncateBody(body []byte) string {
	if len(body) > 500 {
		return string(body[:500]) + "..."
	}
	return string(body)
}

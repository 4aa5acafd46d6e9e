package feed

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/wxrouter/wxrouter/config"
	apperrors "github.com/wxrouter/wxrouter/internal/errors"
)

// Client fetches weather-hazard feeds. It performs a single bounded-timeout
// GET per call and never retries; fixed-interval re-polling is the retry
// mechanism.
type Client struct {
	http      *http.Client
	alertsURL string
	userAgent string
	limiter   *rate.Limiter
}

// NewClient creates a feed client from config.
func NewClient(cfg config.FeedConfig) *Client {
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 2.0
	}
	return &Client{
		http: &http.Client{
			Timeout: cfg.FetchTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
			},
		},
		alertsURL: cfg.AlertsURL,
		userAgent: cfg.UserAgent,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// FetchAlerts retrieves the national alerts feed with the given record
// limit and parses it as a feature collection.
func (c *Client) FetchAlerts(ctx context.Context, limit int) (*FeatureCollection, error) {
	u, err := url.Parse(c.alertsURL)
	if err != nil {
		return nil, &apperrors.FetchError{URL: c.alertsURL, Err: err}
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	body, err := c.get(ctx, u.String())
	if err != nil {
		return nil, err
	}

	var fc FeatureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, &apperrors.ParseError{URL: u.String(), Err: err}
	}
	return &fc, nil
}

// FetchProduct retrieves one SPC product. It returns both the parsed
// collection and the raw body; the raw body is what gets stored in the
// payload column.
func (c *Client) FetchProduct(ctx context.Context, p Product) (*FeatureCollection, []byte, error) {
	body, err := c.get(ctx, p.URL)
	if err != nil {
		return nil, nil, err
	}

	var fc FeatureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, nil, &apperrors.ParseError{URL: p.URL, Err: err}
	}
	return &fc, body, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &apperrors.FetchError{URL: rawURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &apperrors.FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &apperrors.FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &apperrors.FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperrors.FetchError{URL: rawURL, Err: err}
	}
	return body, nil
}

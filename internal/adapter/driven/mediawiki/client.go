// Package mediawiki implements the WikiClient port against the MediaWiki
// Action API.
package mediawiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gregjones/httpcache"

	"github.com/talkwatch/talkwatch/internal/domain/model"
	"github.com/talkwatch/talkwatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.WikiClient = (*Client)(nil)

const (
	userAgent = "talkwatch/1.0 (https://github.com/talkwatch/talkwatch)"

	// maxlag asks the API to refuse requests while the replication lag
	// exceeds this many seconds. Refusals are retried with backoff.
	maxlagSeconds = "5"

	maxRetryElapsed = 30 * time.Second
)

// Client is a read-only MediaWiki Action API client. All requests go through
// an in-memory ETag cache so unchanged responses cost a conditional request.
type Client struct {
	http    *http.Client
	baseURL string
	logger  *slog.Logger
}

// NewClient creates a Client for the given api.php endpoint, for example
// "https://en.wikipedia.org/w/api.php".
func NewClient(baseURL string, logger *slog.Logger) *Client {
	httpClient := &http.Client{
		Transport: httpcache.NewMemoryCacheTransport(),
		Timeout:   30 * time.Second,
	}
	return &Client{http: httpClient, baseURL: baseURL, logger: logger}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base
// URL. This constructor is intended for testing, allowing injection of an
// httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, logger *slog.Logger) *Client {
	return &Client{http: httpClient, baseURL: baseURL, logger: logger}
}

// apiError is the error envelope the Action API returns with HTTP 200.
type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("mediawiki api error %s: %s", e.Code, e.Info)
}

// LatestRevision returns the id and timestamp of the page's newest revision.
func (c *Client) LatestRevision(ctx context.Context, title string) (model.RevisionMeta, error) {
	params := url.Values{
		"action":  {"query"},
		"prop":    {"revisions"},
		"titles":  {title},
		"rvprop":  {"ids|timestamp"},
		"rvlimit": {"1"},
	}

	var resp struct {
		Query struct {
			Pages []struct {
				Title     string `json:"title"`
				Missing   bool   `json:"missing"`
				Revisions []struct {
					RevID     int64     `json:"revid"`
					Timestamp time.Time `json:"timestamp"`
				} `json:"revisions"`
			} `json:"pages"`
		} `json:"query"`
	}

	if err := c.get(ctx, params, &resp); err != nil {
		return model.RevisionMeta{}, fmt.Errorf("latest revision of %q: %w", title, err)
	}

	if len(resp.Query.Pages) == 0 || resp.Query.Pages[0].Missing {
		return model.RevisionMeta{}, fmt.Errorf("page %q does not exist", title)
	}
	revs := resp.Query.Pages[0].Revisions
	if len(revs) == 0 {
		return model.RevisionMeta{}, fmt.Errorf("page %q has no revisions", title)
	}

	return model.RevisionMeta{
		ID:        revs[0].RevID,
		PageTitle: title,
		Timestamp: revs[0].Timestamp,
	}, nil
}

// RenderedHTML returns the parsed HTML of the given revision.
func (c *Client) RenderedHTML(ctx context.Context, title string, revID int64) (string, error) {
	params := url.Values{
		"action": {"parse"},
		"oldid":  {fmt.Sprintf("%d", revID)},
		"prop":   {"text"},
	}

	var resp struct {
		Parse struct {
			Title string `json:"title"`
			Text  string `json:"text"`
		} `json:"parse"`
	}

	if err := c.get(ctx, params, &resp); err != nil {
		return "", fmt.Errorf("rendered html of %s@%d: %w", title, revID, err)
	}
	return resp.Parse.Text, nil
}

// Wikitext returns the raw wikitext of the given revision.
func (c *Client) Wikitext(ctx context.Context, revID int64) (string, error) {
	params := url.Values{
		"action":  {"query"},
		"prop":    {"revisions"},
		"revids":  {fmt.Sprintf("%d", revID)},
		"rvprop":  {"content"},
		"rvslots": {"main"},
	}

	var resp struct {
		Query struct {
			Pages []struct {
				Revisions []struct {
					Slots struct {
						Main struct {
							Content string `json:"content"`
						} `json:"main"`
					} `json:"slots"`
				} `json:"revisions"`
			} `json:"pages"`
		} `json:"query"`
	}

	if err := c.get(ctx, params, &resp); err != nil {
		return "", fmt.Errorf("wikitext of revision %d: %w", revID, err)
	}

	if len(resp.Query.Pages) == 0 || len(resp.Query.Pages[0].Revisions) == 0 {
		return "", fmt.Errorf("revision %d not found", revID)
	}
	return resp.Query.Pages[0].Revisions[0].Slots.Main.Content, nil
}

// get performs one Action API query with maxlag-aware retries and decodes the
// JSON response into out.
func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	params.Set("format", "json")
	params.Set("formatversion", "2")
	params.Set("maxlag", maxlagSeconds)

	requestURL := c.baseURL + "?" + params.Encode()

	operation := func() error {
		body, err := c.fetch(ctx, requestURL)
		if err != nil {
			return err
		}

		var envelope struct {
			Error *apiError `json:"error"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		if envelope.Error != nil {
			// Replication lag is transient; every other API error is not.
			if envelope.Error.Code == "maxlag" {
				c.logger.Debug("mediawiki lagged, retrying", "info", envelope.Error.Info)
				return envelope.Error
			}
			return backoff.Permanent(envelope.Error)
		}

		if err := json.Unmarshal(body, out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxRetryElapsed
	return backoff.Retry(operation, backoff.WithContext(policy, ctx))
}

// fetch performs the HTTP GET. Server errors are returned as retryable, any
// other non-200 status is permanent.
func (c *Client) fetch(ctx context.Context, requestURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("server error: %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(fmt.Errorf("unexpected status: %s", resp.Status))
	}
	return body, nil
}

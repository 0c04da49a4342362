package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"productsearch/internal/config"
	"productsearch/internal/monitoring"
)

// FetchError is returned when a page fetch exhausts its retry budget.
// StatusCode is the last HTTP status observed, or 0 for transport failures.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: http status %d", e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// FetcherOptions configures the retry budget and the static header set.
type FetcherOptions struct {
	UserAgent         string
	AcceptLanguage    string
	Timeout           time.Duration
	MaxRetries        int
	RetryBackoff      time.Duration
	RetryBackoffMax   time.Duration
	RetryableStatuses []int
}

// OptionsFromConfig derives fetcher options from the application config.
func OptionsFromConfig(cfg *config.Config) FetcherOptions {
	return FetcherOptions{
		UserAgent:         cfg.UserAgent,
		AcceptLanguage:    cfg.AcceptLanguage,
		Timeout:           cfg.FetchTimeoutDuration(),
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoffDuration(),
		RetryBackoffMax:   cfg.RetryBackoffMaxDuration(),
		RetryableStatuses: []int{500, 502, 503, 504},
	}
}

// Fetcher issues one HTTP GET per results page, retrying transient
// failures (transport errors and the configured status codes) with
// exponential backoff.
type Fetcher struct {
	client  *resty.Client
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

func NewFetcher(opts FetcherOptions, logger *zap.Logger, metrics *monitoring.Metrics) *Fetcher {
	retryable := make(map[int]bool, len(opts.RetryableStatuses))
	for _, code := range opts.RetryableStatuses {
		retryable[code] = true
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.MaxRetries).
		SetRetryWaitTime(opts.RetryBackoff).
		SetRetryMaxWaitTime(opts.RetryBackoffMax).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept-Language", opts.AcceptLanguage).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return retryable[r.StatusCode()]
		}).
		AddRetryHook(func(r *resty.Response, err error) {
			metrics.IncFetch("retry")
			logger.Warn("retrying fetch",
				zap.String("url", r.Request.URL),
				zap.Int("status", r.StatusCode()),
				zap.Error(err),
			)
		}).
		OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			logger.Debug("fetch attempt", zap.String("url", r.URL))
			return nil
		})

	return &Fetcher{client: client, logger: logger, metrics: metrics}
}

// Fetch retrieves one page. On success it returns the body and HTTP status;
// on a failure surviving the retry budget it returns a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, int, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		f.metrics.IncFetch("failure")
		f.logger.Error("fetch failed", zap.String("url", url), zap.Error(err))
		return "", 0, &FetchError{URL: url, Err: err}
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		f.metrics.IncFetch("failure")
		f.logger.Error("fetch failed", zap.String("url", url), zap.Int("status", resp.StatusCode()))
		return "", resp.StatusCode(), &FetchError{URL: url, StatusCode: resp.StatusCode()}
	}
	f.metrics.IncFetch("success")
	f.logger.Debug("fetch succeeded", zap.String("url", url), zap.Int("status", resp.StatusCode()))
	return resp.String(), resp.StatusCode(), nil
}

// SearchURL builds the results-page URL for a keyword. Spaces in the
// keyword become '+' the way the site's own search box encodes them.
func SearchURL(base, query string, page int) string {
	keyword := strings.ReplaceAll(strings.TrimSpace(query), " ", "+")
	return fmt.Sprintf("%s/s?k=%s&page=%d", strings.TrimRight(base, "/"), keyword, page)
}

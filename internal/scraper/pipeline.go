package scraper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"productsearch/internal/domain"
	"productsearch/internal/monitoring"
)

// PageFetcher fetches one results page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (html string, status int, err error)
}

// termination names the state a run ended in.
type termination string

const (
	doneEmpty    termination = "empty"
	doneMaxPages termination = "max_pages"
	doneError    termination = "error"
)

// Pipeline drives one fully sequential search run: fetch a page, parse it,
// assess each card, accumulate, then move to the next page. It stops at the
// first empty page, the configured page cap, or a fetch failure.
type Pipeline struct {
	fetcher  PageFetcher
	baseURL  string
	maxPages int
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

func NewPipeline(fetcher PageFetcher, baseURL string, maxPages int, logger *zap.Logger, metrics *monitoring.Metrics) *Pipeline {
	return &Pipeline{
		fetcher:  fetcher,
		baseURL:  baseURL,
		maxPages: maxPages,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run executes the page loop for a keyword. Records accumulated before a
// fetch failure are returned alongside RunError rather than discarded; an
// empty page and the page cap both terminate with RunOK.
func (p *Pipeline) Run(ctx context.Context, query string) ([]domain.Product, domain.RunStatus) {
	start := time.Now()
	products := make([]domain.Product, 0)
	term := doneMaxPages
	status := domain.RunOK

	for page := 1; page <= p.maxPages; page++ {
		pageURL := SearchURL(p.baseURL, query, page)

		htmlText, _, err := p.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			p.logger.Warn("fetch failed, halting run",
				zap.String("query", query), zap.Int("page", page), zap.Error(err))
			p.metrics.IncError("fetch_failed")
			term, status = doneError, domain.RunError
			break
		}

		raws, err := ParsePage(htmlText, p.baseURL)
		if err != nil {
			p.logger.Warn("parse failed, halting run",
				zap.String("query", query), zap.Int("page", page), zap.Error(err))
			p.metrics.IncError("parse_failed")
			term, status = doneError, domain.RunError
			break
		}
		p.metrics.IncPageParsed()

		if len(raws) == 0 {
			term = doneEmpty
			break
		}

		for _, raw := range raws {
			products = append(products, Assess(raw))
		}
		p.logger.Info("page parsed",
			zap.String("query", query), zap.Int("page", page), zap.Int("cards", len(raws)))
	}

	p.metrics.AddRecords(len(products))
	p.metrics.ObserveRun(time.Since(start))
	p.logger.Info("run finished",
		zap.String("query", query),
		zap.String("termination", string(term)),
		zap.String("status", string(status)),
		zap.Int("records", len(products)),
	)
	return products, status
}

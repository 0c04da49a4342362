package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"productsearch/internal/config"
	"productsearch/internal/domain"
	"productsearch/internal/monitoring"
)

// SearchRunner executes one scrape run for a keyword.
type SearchRunner interface {
	Run(ctx context.Context, query string) ([]domain.Product, domain.RunStatus)
}

// ProductStore is the persistence/query layer consumed by the handlers.
type ProductStore interface {
	Replace(ctx context.Context, query string, products []domain.Product) error
	Query(ctx context.Context, keyword string, filter domain.Filter, sort domain.Sort) ([]domain.Product, error)
	Ping(ctx context.Context) error
}

// FreshnessCache decides whether a keyword's stored results are recent
// enough to serve without re-scraping.
type FreshnessCache interface {
	IsFresh(ctx context.Context, query string) (bool, error)
	MarkScraped(ctx context.Context, query string, ttl time.Duration) error
	Ping(ctx context.Context) error
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	config     *config.Config
	router     http.Handler
	httpServer *http.Server
	runner     SearchRunner
	store      ProductStore
	cache      FreshnessCache
	metrics    *monitoring.Metrics
	logger     *zap.Logger
}

func NewServer(cfg *config.Config, runner SearchRunner, store ProductStore, cache FreshnessCache, m *monitoring.Metrics, l *zap.Logger) *Server {
	s := &Server{
		config:  cfg,
		runner:  runner,
		store:   store,
		cache:   cache,
		metrics: m,
		logger:  l,
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%s", s.config.ServerPort),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

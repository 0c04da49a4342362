package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"productsearch/internal/domain"
	"productsearch/internal/export"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		s.respondWithError(w, http.StatusBadRequest, "query parameter is required")
		return
	}
	force := r.URL.Query().Get("force") == "true"

	ttl := s.config.CacheTTLDuration()
	if ttl > 0 && !force {
		fresh, err := s.cache.IsFresh(r.Context(), query)
		if err != nil {
			// The cache is an optimization; fall through to a live scrape.
			s.logger.Warn("freshness check failed", zap.String("query", query), zap.Error(err))
		}
		if fresh {
			products, err := s.store.Query(r.Context(), query, domain.Filter{}, domain.DefaultSort())
			if err != nil {
				s.logger.Error("failed to read cached results", zap.Error(err))
				s.respondWithError(w, http.StatusInternalServerError, "could not read stored results")
				return
			}
			s.respondWithJSON(w, http.StatusOK, products)
			return
		}
	}

	products, status := s.runner.Run(r.Context(), query)

	// Partial results from a failed run are still worth keeping; only a
	// run that failed before accumulating anything leaves prior data alone.
	if status == domain.RunOK || len(products) > 0 {
		if err := s.store.Replace(r.Context(), query, products); err != nil {
			s.logger.Error("failed to store results", zap.String("query", query), zap.Error(err))
			s.metrics.IncError("store_failed")
			s.respondWithError(w, http.StatusInternalServerError, "could not store results")
			return
		}
		s.metrics.IncReplace()
		s.logger.Info("stored results", zap.String("query", query), zap.Int("records", len(products)))
	}

	if status == domain.RunError {
		s.respondWithError(w, http.StatusBadGateway, "upstream fetch failed after retries")
		return
	}

	if ttl > 0 {
		if err := s.cache.MarkScraped(r.Context(), query, ttl); err != nil {
			s.logger.Warn("failed to mark keyword fresh", zap.String("query", query), zap.Error(err))
		}
	}

	s.respondWithJSON(w, http.StatusOK, products)
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	filter, sort, err := parseFilterAndSort(r.URL.Query())
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	products, err := s.store.Query(r.Context(), strings.TrimSpace(r.URL.Query().Get("query")), filter, sort)
	if err != nil {
		s.logger.Error("product query failed", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "could not query products")
		return
	}

	s.respondWithJSON(w, http.StatusOK, products)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	contentType, err := export.ContentType(format)
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter, sort, err := parseFilterAndSort(r.URL.Query())
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	products, err := s.store.Query(r.Context(), strings.TrimSpace(r.URL.Query().Get("query")), filter, sort)
	if err != nil {
		s.logger.Error("export query failed", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "could not query products")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=products.%s", format))
	if err := export.Write(w, products, format); err != nil {
		// Headers are already out; all we can do is log.
		s.logger.Error("export write failed", zap.Error(err))
	}
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	healthStatus := make(map[string]string)

	if err := s.store.Ping(ctx); err != nil {
		healthStatus["postgres"] = "unhealthy"
		s.logger.Error("health check failed for postgres", zap.Error(err))
	} else {
		healthStatus["postgres"] = "healthy"
	}

	if err := s.cache.Ping(ctx); err != nil {
		healthStatus["redis"] = "unhealthy"
		s.logger.Error("health check failed for redis", zap.Error(err))
	} else {
		healthStatus["redis"] = "healthy"
	}

	if healthStatus["postgres"] != "healthy" || healthStatus["redis"] != "healthy" {
		s.respondWithJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}
	s.respondWithJSON(w, http.StatusOK, healthStatus)
}

// parseFilterAndSort translates query parameters into the filter
// configuration and sort selection. Absent parameters leave bounds open.
func parseFilterAndSort(q url.Values) (domain.Filter, domain.Sort, error) {
	var filter domain.Filter
	sort := domain.DefaultSort()

	if v := q.Get("min_price"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return filter, sort, fmt.Errorf("invalid min_price %q", v)
		}
		filter.MinPrice = &f
	}
	if v := q.Get("max_price"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return filter, sort, fmt.Errorf("invalid max_price %q", v)
		}
		filter.MaxPrice = &f
	}
	if v := q.Get("min_rating"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return filter, sort, fmt.Errorf("invalid min_rating %q", v)
		}
		filter.MinRating = &f
	}
	if v := q.Get("min_reviews"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return filter, sort, fmt.Errorf("invalid min_reviews %q", v)
		}
		filter.MinReviews = &n
	}

	if v := q.Get("sort_by"); v != "" {
		field, ok := domain.ParseSortField(v)
		if !ok {
			return filter, sort, fmt.Errorf("invalid sort_by %q: use price, rating, or review_count", v)
		}
		sort.Field = field
	}
	switch order := q.Get("order"); order {
	case "", "asc":
	case "desc":
		sort.Desc = true
	default:
		return filter, sort, fmt.Errorf("invalid order %q: use asc or desc", order)
	}

	return filter, sort, nil
}

// --- Helper Functions ---

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

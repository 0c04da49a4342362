package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"productsearch/internal/config"
	"productsearch/internal/domain"
	"productsearch/internal/monitoring"
)

type fakeRunner struct {
	products []domain.Product
	status   domain.RunStatus
	calls    int
}

func (f *fakeRunner) Run(_ context.Context, _ string) ([]domain.Product, domain.RunStatus) {
	f.calls++
	return f.products, f.status
}

type fakeStore struct {
	replaced    map[string][]domain.Product
	replaceErr  error
	queryResult []domain.Product
	queryErr    error
	lastKeyword string
	lastFilter  domain.Filter
	lastSort    domain.Sort
}

func (f *fakeStore) Replace(_ context.Context, query string, products []domain.Product) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	if f.replaced == nil {
		f.replaced = make(map[string][]domain.Product)
	}
	f.replaced[query] = products
	return nil
}

func (f *fakeStore) Query(_ context.Context, keyword string, filter domain.Filter, sort domain.Sort) ([]domain.Product, error) {
	f.lastKeyword = keyword
	f.lastFilter = filter
	f.lastSort = sort
	return f.queryResult, f.queryErr
}

func (f *fakeStore) Ping(context.Context) error { return nil }

type fakeCache struct {
	fresh    bool
	freshErr error
	marked   []string
}

func (f *fakeCache) IsFresh(_ context.Context, _ string) (bool, error) {
	return f.fresh, f.freshErr
}

func (f *fakeCache) MarkScraped(_ context.Context, query string, _ time.Duration) error {
	f.marked = append(f.marked, query)
	return nil
}

func (f *fakeCache) Ping(context.Context) error { return nil }

func newTestServer(runner *fakeRunner, store *fakeStore, cache *fakeCache, cacheTTLMinutes int) *Server {
	cfg := &config.Config{ServerPort: "8080", CacheTTL: cacheTTLMinutes}
	return NewServer(cfg, runner, store, cache, monitoring.NewMetrics(), zap.NewNop())
}

func doGet(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeProducts(t *testing.T, body string) []domain.Product {
	t.Helper()
	var products []domain.Product
	if err := json.Unmarshal([]byte(body), &products); err != nil {
		t.Fatalf("response is not a product array: %v\n%s", err, body)
	}
	return products
}

func sp(s string) *string   { return &s }
func fp(f float64) *float64 { return &f }

func twoProducts() []domain.Product {
	return []domain.Product{
		{Title: sp("Laptop A"), Price: fp(899), ProductURL: sp("https://example.com/a"), Valid: true},
		{Title: sp("Laptop B"), Price: fp(499), ProductURL: sp("https://example.com/b"), Valid: true},
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	s := newTestServer(&fakeRunner{}, &fakeStore{}, &fakeCache{}, 30)
	rec := doGet(t, s, "/api/search")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSearchScrapesAndStores(t *testing.T) {
	runner := &fakeRunner{products: twoProducts(), status: domain.RunOK}
	store := &fakeStore{}
	cache := &fakeCache{}
	s := newTestServer(runner, store, cache, 30)

	rec := doGet(t, s, "/api/search?query=laptop")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if got := decodeProducts(t, rec.Body.String()); len(got) != 2 {
		t.Errorf("returned %d products, want 2", len(got))
	}
	if len(store.replaced["laptop"]) != 2 {
		t.Errorf("stored %d records for laptop, want 2", len(store.replaced["laptop"]))
	}
	if len(cache.marked) != 1 || cache.marked[0] != "laptop" {
		t.Errorf("cache.marked = %v, want [laptop]", cache.marked)
	}
}

func TestSearchEmptyResultIsOK(t *testing.T) {
	runner := &fakeRunner{products: []domain.Product{}, status: domain.RunOK}
	s := newTestServer(runner, &fakeStore{}, &fakeCache{}, 30)

	rec := doGet(t, s, "/api/search?query=nonexistentproduct12345")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for an empty result", rec.Code)
	}
	if got := decodeProducts(t, rec.Body.String()); len(got) != 0 {
		t.Errorf("returned %d products, want empty array", len(got))
	}
}

func TestSearchServesFreshResults(t *testing.T) {
	runner := &fakeRunner{}
	store := &fakeStore{queryResult: twoProducts()[:1]}
	s := newTestServer(runner, store, &fakeCache{fresh: true}, 30)

	rec := doGet(t, s, "/api/search?query=laptop")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := decodeProducts(t, rec.Body.String()); len(got) != 1 {
		t.Errorf("returned %d products, want 1 from store", len(got))
	}
	if runner.calls != 0 {
		t.Errorf("runner called %d times, want 0 while results are fresh", runner.calls)
	}
}

func TestSearchForceBypassesCache(t *testing.T) {
	runner := &fakeRunner{products: twoProducts(), status: domain.RunOK}
	s := newTestServer(runner, &fakeStore{}, &fakeCache{fresh: true}, 30)

	rec := doGet(t, s, "/api/search?query=laptop&force=true")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if runner.calls != 1 {
		t.Errorf("runner called %d times, want 1 with force=true", runner.calls)
	}
}

func TestSearchCacheDisabled(t *testing.T) {
	runner := &fakeRunner{products: twoProducts(), status: domain.RunOK}
	cache := &fakeCache{fresh: true}
	s := newTestServer(runner, &fakeStore{}, cache, 0)

	doGet(t, s, "/api/search?query=laptop")
	if runner.calls != 1 {
		t.Errorf("runner called %d times, want 1 with TTL disabled", runner.calls)
	}
	if len(cache.marked) != 0 {
		t.Errorf("cache.marked = %v, want none with TTL disabled", cache.marked)
	}
}

func TestSearchUpstreamFailure(t *testing.T) {
	runner := &fakeRunner{products: []domain.Product{}, status: domain.RunError}
	store := &fakeStore{}
	cache := &fakeCache{}
	s := newTestServer(runner, store, cache, 30)

	rec := doGet(t, s, "/api/search?query=laptop")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if len(store.replaced) != 0 {
		t.Errorf("store.replaced = %v, want prior data left alone on an empty failed run", store.replaced)
	}
	if len(cache.marked) != 0 {
		t.Errorf("cache.marked = %v, want none after a failed run", cache.marked)
	}
}

func TestSearchUpstreamFailureKeepsPartialResults(t *testing.T) {
	runner := &fakeRunner{products: twoProducts()[:1], status: domain.RunError}
	store := &fakeStore{}
	s := newTestServer(runner, store, &fakeCache{}, 30)

	rec := doGet(t, s, "/api/search?query=laptop")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if len(store.replaced["laptop"]) != 1 {
		t.Errorf("stored %d records, want the partial page preserved", len(store.replaced["laptop"]))
	}
}

func TestProductsFilterParsing(t *testing.T) {
	store := &fakeStore{queryResult: twoProducts()}
	s := newTestServer(&fakeRunner{}, store, &fakeCache{}, 30)

	rec := doGet(t, s, "/api/products?query=laptop&min_price=100&max_price=900&min_rating=4&min_reviews=50&sort_by=price&order=desc")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	if store.lastKeyword != "laptop" {
		t.Errorf("keyword = %q, want laptop", store.lastKeyword)
	}
	f := store.lastFilter
	if f.MinPrice == nil || *f.MinPrice != 100 || f.MaxPrice == nil || *f.MaxPrice != 900 {
		t.Errorf("price bounds = %v/%v", f.MinPrice, f.MaxPrice)
	}
	if f.MinRating == nil || *f.MinRating != 4 || f.MinReviews == nil || *f.MinReviews != 50 {
		t.Errorf("rating/review bounds = %v/%v", f.MinRating, f.MinReviews)
	}
	if store.lastSort.Field != domain.SortByPrice || !store.lastSort.Desc {
		t.Errorf("sort = %+v, want price desc", store.lastSort)
	}
}

func TestProductsBadParams(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{name: "non-numeric min_price", target: "/api/products?min_price=cheap"},
		{name: "non-numeric min_reviews", target: "/api/products?min_reviews=lots"},
		{name: "unknown sort field", target: "/api/products?sort_by=title"},
		{name: "unknown order", target: "/api/products?order=sideways"},
	}

	s := newTestServer(&fakeRunner{}, &fakeStore{}, &fakeCache{}, 30)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := doGet(t, s, tt.target); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	s := newTestServer(&fakeRunner{}, &fakeStore{}, &fakeCache{}, 30)
	rec := doGet(t, s, "/api/products/export?format=xlsx")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestExportCSV(t *testing.T) {
	store := &fakeStore{queryResult: twoProducts()}
	s := newTestServer(&fakeRunner{}, store, &fakeCache{}, 30)

	rec := doGet(t, s, "/api/products/export?format=csv")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type = %q, want text/csv", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "products.csv") {
		t.Errorf("content disposition = %q", cd)
	}
	rows, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("body is not CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("csv has %d rows, want header + 2 records", len(rows))
	}
}

func TestExportJSONMatchesQuery(t *testing.T) {
	store := &fakeStore{queryResult: twoProducts()}
	s := newTestServer(&fakeRunner{}, store, &fakeCache{}, 30)

	rec := doGet(t, s, "/api/products/export?format=json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}
	got := decodeProducts(t, rec.Body.String())
	if len(got) != 2 || *got[0].Title != "Laptop A" || *got[1].Title != "Laptop B" {
		t.Errorf("exported set does not match query result: %+v", got)
	}
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(&fakeRunner{}, &fakeStore{}, &fakeCache{}, 30)
	rec := doGet(t, s, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var health map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("health payload: %v", err)
	}
	if health["postgres"] != "healthy" || health["redis"] != "healthy" {
		t.Errorf("health = %v", health)
	}
}

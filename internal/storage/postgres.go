package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"productsearch/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id           BIGSERIAL PRIMARY KEY,
	query        TEXT NOT NULL,
	title        TEXT,
	price        DOUBLE PRECISION,
	rating       DOUBLE PRECISION,
	review_count INTEGER,
	product_url  TEXT,
	image_url    TEXT,
	valid        BOOLEAN NOT NULL,
	scraped_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS products_query_idx ON products (query);
`

// PostgresStore handles interactions with the PostgreSQL database.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Init creates the products table if it does not exist yet.
func (s *PostgresStore) Init(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schema)
	return err
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.db.Close()
}

// Replace swaps the stored record set for a keyword inside a single
// transaction, so a concurrent reader never observes a half-replaced set.
// Replacement is scoped to the keyword; other keywords are untouched.
func (s *PostgresStore) Replace(ctx context.Context, query string, products []domain.Product) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM products WHERE query = $1`, query); err != nil {
		return err
	}

	if len(products) > 0 {
		batch := &pgx.Batch{}
		for _, p := range products {
			batch.Queue(
				`INSERT INTO products (query, title, price, rating, review_count, product_url, image_url, valid)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				query, p.Title, p.Price, p.Rating, p.ReviewCount, p.ProductURL, p.ImageURL, p.Valid,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Query returns the filtered, sorted record set. An empty keyword spans all
// stored keywords. Storage is never mutated.
func (s *PostgresStore) Query(ctx context.Context, keyword string, filter domain.Filter, sort domain.Sort) ([]domain.Product, error) {
	sql, args := buildProductQuery(keyword, filter, sort)

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.Title, &p.Price, &p.Rating, &p.ReviewCount, &p.ProductURL, &p.ImageURL, &p.Valid); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// buildProductQuery translates filter options into SQL predicates and the
// sort selection into an ORDER BY clause. Ties break by insertion order
// (the auto-increment key); NULLs sort last so records missing the sort
// column never lead the result.
func buildProductQuery(keyword string, filter domain.Filter, sort domain.Sort) (string, []any) {
	var b strings.Builder
	b.WriteString(`SELECT title, price, rating, review_count, product_url, image_url, valid FROM products`)

	var conds []string
	var args []any
	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if keyword != "" {
		add("query = $%d", keyword)
	}
	if filter.MinPrice != nil {
		add("price >= $%d", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		add("price <= $%d", *filter.MaxPrice)
	}
	if filter.MinRating != nil {
		add("rating >= $%d", *filter.MinRating)
	}
	if filter.MinReviews != nil {
		add("review_count >= $%d", *filter.MinReviews)
	}

	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}

	direction := "ASC"
	if sort.Desc {
		direction = "DESC"
	}
	// sort.Field is validated upstream; the map guards against anything
	// else reaching string interpolation.
	column, ok := sortColumns[sort.Field]
	if !ok {
		column = "price"
	}
	fmt.Fprintf(&b, " ORDER BY %s %s NULLS LAST, id ASC", column, direction)

	return b.String(), args
}

var sortColumns = map[domain.SortField]string{
	domain.SortByPrice:       "price",
	domain.SortByRating:      "rating",
	domain.SortByReviewCount: "review_count",
}

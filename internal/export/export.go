// Package export serializes a queried record set as CSV or JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"productsearch/internal/domain"
)

// ErrUnsupportedFormat is returned for an unrecognized format value.
var ErrUnsupportedFormat = errors.New("unsupported export format")

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// ContentType returns the MIME type for a format, or ErrUnsupportedFormat.
func ContentType(format string) (string, error) {
	switch format {
	case FormatCSV:
		return "text/csv", nil
	case FormatJSON:
		return "application/json", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Write serializes products to w in the requested format. The JSON form is
// an array of objects identical to the query API's response shape, so an
// exported set parses back to the query result.
func Write(w io.Writer, products []domain.Product, format string) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, products)
	case FormatJSON:
		enc := json.NewEncoder(w)
		return enc.Encode(products)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func writeCSV(w io.Writer, products []domain.Product) error {
	cw := csv.NewWriter(w)
	header := []string{"title", "price", "rating", "review_count", "product_url", "image_url", "valid"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, p := range products {
		record := []string{
			stringOrEmpty(p.Title),
			floatOrEmpty(p.Price),
			floatOrEmpty(p.Rating),
			intOrEmpty(p.ReviewCount),
			stringOrEmpty(p.ProductURL),
			stringOrEmpty(p.ImageURL),
			strconv.FormatBool(p.Valid),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func floatOrEmpty(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func intOrEmpty(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

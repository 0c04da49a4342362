package scraper

import "productsearch/internal/domain"

// Assess builds the final record from one card's raw fields and computes
// its validity flag. A record is valid iff title, price and product URL
// are all present; rating and review count may be absent. Assess is pure:
// incompleteness is data, not an error.
func Assess(raw domain.RawProduct) domain.Product {
	return domain.Product{
		Title:       raw.Title,
		Price:       raw.Price,
		Rating:      raw.Rating,
		ReviewCount: raw.ReviewCount,
		ProductURL:  raw.ProductURL,
		ImageURL:    raw.ImageURL,
		Valid:       raw.Title != nil && raw.Price != nil && raw.ProductURL != nil,
	}
}

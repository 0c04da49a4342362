package domain

// RawProduct holds the unvalidated fields extracted from one product card.
// A nil field means the corresponding sub-element was missing or failed to
// parse; extraction never aborts a whole card over a single field.
type RawProduct struct {
	Title       *string
	Price       *float64
	Rating      *float64
	ReviewCount *int
	ProductURL  *string
	ImageURL    *string
}

// Product is a raw card after validity assessment. Valid is computed once
// at creation time and never mutated afterwards.
type Product struct {
	Title       *string  `json:"title"`
	Price       *float64 `json:"price"`
	Rating      *float64 `json:"rating"`
	ReviewCount *int     `json:"review_count"`
	ProductURL  *string  `json:"product_url"`
	ImageURL    *string  `json:"image_url"`
	Valid       bool     `json:"valid"`
}

// RunStatus is the terminal status of one pipeline run.
type RunStatus string

const (
	// RunOK covers both natural termination cases: an empty results page
	// and the configured page cap.
	RunOK RunStatus = "ok"
	// RunError means a fetch exhausted its retry budget; records
	// accumulated on earlier pages are still returned.
	RunError RunStatus = "error"
)

// Filter holds the recognized query-layer filter options. A nil field
// leaves that bound open.
type Filter struct {
	MinPrice   *float64
	MaxPrice   *float64
	MinRating  *float64
	MinReviews *int
}

// SortField selects the column results are ordered by.
type SortField string

const (
	SortByPrice       SortField = "price"
	SortByRating      SortField = "rating"
	SortByReviewCount SortField = "review_count"
)

// Sort selects an ordering. Ties are broken by storage insertion order.
type Sort struct {
	Field SortField
	Desc  bool
}

// DefaultSort orders by ascending price, matching the query layer default.
func DefaultSort() Sort {
	return Sort{Field: SortByPrice}
}

// ParseSortField validates a sort field name from a request.
func ParseSortField(s string) (SortField, bool) {
	switch SortField(s) {
	case SortByPrice, SortByRating, SortByReviewCount:
		return SortField(s), true
	}
	return "", false
}

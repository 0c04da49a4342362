package scraper

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"productsearch/internal/domain"
)

// productCardSelector matches the repeated structural block representing
// one listing on a results page.
const productCardSelector = `div.s-main-slot div[role="listitem"]`

var (
	// Currency symbols, whitespace (including NBSP) and thousands
	// separators stripped before price conversion.
	currencyPattern = regexp.MustCompile("[$€£¥₹₺,\\s ]+")
	ratingPattern   = regexp.MustCompile(`([0-5](?:\.[0-9])?) out of 5 stars`)
)

// ParsePage extracts the raw fields of every product card on one results
// page. Each field is extracted independently; a missing sub-element or a
// value that fails numeric cleaning yields nil for that field, never an
// error. An empty slice means the page carried no product cards, which is
// the pipeline's natural termination signal.
func ParsePage(htmlText, baseURL string) ([]domain.RawProduct, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	var cards []domain.RawProduct
	doc.Find(productCardSelector).Each(func(_ int, s *goquery.Selection) {
		cards = append(cards, domain.RawProduct{
			Title:       textOf(s, "h2 span"),
			Price:       parsePrice(textOf(s, ".a-price .a-offscreen")),
			Rating:      parseRating(textOf(s, "i.a-icon-star-small span")),
			ReviewCount: parseReviewCount(textOf(s, `span[data-component-type='s-client-side-analytics']`)),
			ProductURL:  joinURL(base, attrOf(s, "a", "href")),
			ImageURL:    attrOf(s, "img.s-image", "src"),
		})
	})
	return cards, nil
}

func textOf(s *goquery.Selection, selector string) *string {
	el := s.Find(selector).First()
	if el.Length() == 0 {
		return nil
	}
	text := strings.TrimSpace(el.Text())
	if text == "" {
		return nil
	}
	return &text
}

func attrOf(s *goquery.Selection, selector, attr string) *string {
	value, ok := s.Find(selector).First().Attr(attr)
	if !ok || value == "" {
		return nil
	}
	return &value
}

func joinURL(base *url.URL, href *string) *string {
	if href == nil {
		return nil
	}
	ref, err := url.Parse(*href)
	if err != nil {
		return nil
	}
	joined := base.ResolveReference(ref).String()
	return &joined
}

func parsePrice(text *string) *float64 {
	if text == nil {
		return nil
	}
	cleaned := currencyPattern.ReplaceAllString(*text, "")
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &price
}

func parseRating(text *string) *float64 {
	if text == nil {
		return nil
	}
	match := ratingPattern.FindStringSubmatch(*text)
	if match == nil {
		return nil
	}
	rating, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return nil
	}
	return &rating
}

func parseReviewCount(text *string) *int {
	if text == nil {
		return nil
	}
	count, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(*text), ",", ""))
	if err != nil || count < 0 {
		return nil
	}
	return &count
}

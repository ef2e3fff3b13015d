package parse

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/yuki-osaki/marketscan/internal/model"
)

// itemIDPattern extracts the ten-character item identifier from a product
// URL path ("/dp/B0ABCD1234").
var itemIDPattern = regexp.MustCompile(`/dp/([A-Z0-9]{10})`)

// colorImagesMarker precedes the embedded image JSON inside the
// image-block script. The payload is a JSON object whose "initial" array
// carries the per-variant image URLs.
const colorImagesMarker = `"colorImages":`

// Amazon extracts links and records from Amazon-style markup: search
// result blocks tagged with data-component-type="s-search-result",
// "a-pagination" pagination, and the usual product page element IDs.
type Amazon struct{}

// NewAmazon creates the Amazon-style extractor.
func NewAmazon() *Amazon {
	return &Amazon{}
}

// Classify identifies a page by its landmark elements: any search-result
// block means a search page, a product title means a product page.
func (a *Amazon) Classify(body []byte) model.PageKind {
	doc, err := parseDoc(body)
	if err != nil {
		return model.KindUnknown
	}

	if findFirst(doc, isSearchResultBlock) != nil {
		return model.KindSearchResults
	}
	if findFirst(doc, byID("productTitle")) != nil {
		return model.KindProduct
	}
	return model.KindUnknown
}

// ProductLinks returns the product URL of every search-result block, in
// page order, deduplicated, resolved against baseURL.
func (a *Amazon) ProductLinks(body []byte, baseURL string) ([]string, error) {
	doc, err := parseDoc(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}

	var links []string
	seen := make(map[string]bool)

	for _, block := range findAll(doc, isSearchResultBlock) {
		href := productHref(block)
		if href == "" {
			continue
		}
		resolved := resolveURL(base, href)
		if resolved == "" || seen[resolved] {
			continue
		}
		seen[resolved] = true
		links = append(links, resolved)
	}

	return links, nil
}

// NextPageLink returns the pagination link, or "" on the last page
// (where the marketplace renders the "next" slot without an anchor).
func (a *Amazon) NextPageLink(body []byte, baseURL string) (string, error) {
	doc, err := parseDoc(body)
	if err != nil {
		return "", fmt.Errorf("failed to parse search page: %w", err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}

	// Classic pagination: <ul class="a-pagination"><li class="a-last"><a href=...>
	if last := findFirst(doc, func(n *html.Node) bool {
		return n.Data == "li" && hasClass(n, "a-last")
	}); last != nil {
		if anchor := findFirst(last, isAnchorWithHref); anchor != nil {
			return resolveURL(base, getAttr(anchor, "href")), nil
		}
	}

	// Newer pagination renders a direct next link instead of a list item.
	if anchor := findFirst(doc, func(n *html.Node) bool {
		return isAnchorWithHref(n) && hasClass(n, "s-pagination-next")
	}); anchor != nil {
		return resolveURL(base, getAttr(anchor, "href")), nil
	}

	return "", nil
}

// Record extracts the product fields from a product page. Every field is
// best-effort; absent elements produce empty values.
func (a *Amazon) Record(body []byte, pageURL string) (*model.ProductRecord, error) {
	doc, err := parseDoc(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse product page: %w", err)
	}

	rec := &model.ProductRecord{
		ID:        itemIDFromURL(pageURL),
		SourceURL: pageURL,
	}

	if title := findFirst(doc, byID("productTitle")); title != nil {
		rec.Title = innerText(title)
	}

	if price := findFirst(doc, func(n *html.Node) bool {
		return strings.Contains(getAttr(n, "id"), "priceblock_")
	}); price != nil {
		rec.Price = innerText(price)
	}

	if rating := findFirst(doc, func(n *html.Node) bool {
		return getAttr(n, "data-hook") == "rating-out-of-text"
	}); rating != nil {
		rec.Rating = innerText(rating)
	}

	if reviews := findFirst(doc, byID("acrCustomerReviewText")); reviews != nil {
		rec.ReviewCount = innerText(reviews)
	}

	if bullets := findFirst(doc, byID("feature-bullets")); bullets != nil {
		for _, item := range findAll(bullets, func(n *html.Node) bool {
			return hasClass(n, "a-list-item")
		}) {
			if text := innerText(item); text != "" {
				rec.Features = append(rec.Features, text)
			}
		}
	}

	if desc := findFirst(doc, byID("productDescription")); desc != nil {
		if p := findFirst(desc, func(n *html.Node) bool { return n.Data == "p" }); p != nil {
			rec.Description = innerText(p)
		} else {
			rec.Description = innerText(desc)
		}
	}

	rec.Images = extractImages(doc)

	return rec, nil
}

// isSearchResultBlock matches one search-result container.
func isSearchResultBlock(n *html.Node) bool {
	return getAttr(n, "data-component-type") == "s-search-result"
}

// isAnchorWithHref matches <a> elements that actually link somewhere.
func isAnchorWithHref(n *html.Node) bool {
	return n.Data == "a" && getAttr(n, "href") != ""
}

// productHref finds the product link inside a search-result block:
// the anchor under the title heading, with a loose fallback to any
// product-path anchor for layout variants.
func productHref(block *html.Node) string {
	if h2 := findFirst(block, func(n *html.Node) bool { return n.Data == "h2" }); h2 != nil {
		if anchor := findFirst(h2, isAnchorWithHref); anchor != nil {
			return getAttr(anchor, "href")
		}
	}
	if anchor := findFirst(block, func(n *html.Node) bool {
		return isAnchorWithHref(n) && strings.Contains(getAttr(n, "href"), "/dp/")
	}); anchor != nil {
		return getAttr(anchor, "href")
	}
	return ""
}

// itemIDFromURL pulls the item identifier out of a product URL, or "".
func itemIDFromURL(pageURL string) string {
	if m := itemIDPattern.FindStringSubmatch(pageURL); m != nil {
		return m[1]
	}
	return ""
}

// resolveURL resolves a possibly relative href against the base URL.
// Only http(s) results are returned; anything else (javascript:, mailto:)
// is dropped.
func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

// extractImages pulls product image URLs from the image-block script's
// embedded JSON. A page without the script, or with JSON we can't
// decode, simply yields no images.
func extractImages(doc *html.Node) []string {
	for _, script := range findAll(doc, func(n *html.Node) bool { return n.Data == "script" }) {
		text := innerText(script)
		if !strings.Contains(text, "ImageBlockATF") {
			continue
		}

		raw := balancedObjectAfter(text, colorImagesMarker)
		if raw == "" {
			continue
		}

		var payload struct {
			Initial []struct {
				Large string `json:"large"`
			} `json:"initial"`
		}
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return nil
		}

		var images []string
		for _, img := range payload.Initial {
			if img.Large != "" {
				images = append(images, img.Large)
			}
		}
		return images
	}
	return nil
}

// balancedObjectAfter returns the JSON object that follows the marker,
// found by brace matching with JSON string escapes respected. Returns ""
// when the marker is absent or the object never closes.
func balancedObjectAfter(text, marker string) string {
	idx := strings.Index(text, marker)
	if idx < 0 {
		return ""
	}
	rest := text[idx+len(marker):]

	start := strings.IndexByte(rest, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(rest); i++ {
		c := rest[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return rest[start : i+1]
			}
		}
	}
	return ""
}

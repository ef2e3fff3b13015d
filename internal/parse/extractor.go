package parse

import "github.com/yuki-osaki/marketscan/internal/model"

// Extractor is the crawler's only view of a marketplace's markup.
//
// All methods are best-effort: a missing element yields an empty result,
// not an error. Errors are reserved for input the HTML parser cannot
// process at all.
type Extractor interface {
	// Classify identifies the page type from its body. Used when the
	// request's own kind tag is unavailable, e.g. after a redirect
	// moved a search URL onto a product page.
	Classify(body []byte) model.PageKind

	// ProductLinks returns product detail URLs from a search-results
	// page, resolved against baseURL, in page order, deduplicated.
	ProductLinks(body []byte, baseURL string) ([]string, error)

	// NextPageLink returns the pagination link from a search-results
	// page resolved against baseURL, or "" when the last page is
	// reached.
	NextPageLink(body []byte, baseURL string) (string, error)

	// Record extracts a product record from a product page. Fields the
	// page doesn't carry stay empty; pageURL becomes the record's
	// source URL and supplies the item identifier.
	Record(body []byte, pageURL string) (*model.ProductRecord, error)
}

package model

// PageKind identifies the two page types the crawler understands.
type PageKind int

const (
	// KindUnknown is a page the classifier could not identify.
	KindUnknown PageKind = iota

	// KindSearchResults is a search listing page: it yields product
	// links and at most one next-page link.
	KindSearchResults

	// KindProduct is a product detail page: it yields one record.
	KindProduct
)

// String returns a human-readable name for the page kind.
func (k PageKind) String() string {
	switch k {
	case KindSearchResults:
		return "search"
	case KindProduct:
		return "product"
	default:
		return "unknown"
	}
}

package model

import "strings"

// ProductRecord holds the structured fields extracted from a product page.
//
// Extraction is best-effort: every field defaults to empty because
// marketplace markup varies and a missing field must never abort the
// record. ID is the closest thing to a primary key (the marketplace item
// identifier embedded in the product URL), but it is neither guaranteed
// unique nor guaranteed present.
type ProductRecord struct {
	// ID is the marketplace item identifier (e.g., the ASIN-style token
	// from the product URL path).
	ID string `json:"id"`

	// Title is the product title.
	Title string `json:"title"`

	// Price is the displayed price, kept as the raw string because
	// currency formatting differs across marketplaces and locales.
	Price string `json:"price"`

	// Rating is the displayed rating, raw string (e.g., "4.5 out of 5").
	Rating string `json:"rating"`

	// ReviewCount is the displayed review count, raw string
	// (e.g., "1,234 ratings").
	ReviewCount string `json:"review_count"`

	// Features are the feature bullet texts in page order.
	Features []string `json:"features,omitempty"`

	// Description is the product description text.
	Description string `json:"description"`

	// Images are the product image URLs in page order.
	Images []string `json:"images,omitempty"`

	// SourceURL is the URL the record was extracted from.
	SourceURL string `json:"source_url"`
}

// IsEmpty reports whether no field carries any extracted value.
// Completely empty records are still emitted to the sink pipeline so the
// validate stage can decide what to do with them; this helper exists so
// stages don't have to repeat the field walk.
func (r *ProductRecord) IsEmpty() bool {
	return r.ID == "" &&
		r.Title == "" &&
		r.Price == "" &&
		r.Rating == "" &&
		r.ReviewCount == "" &&
		len(r.Features) == 0 &&
		r.Description == "" &&
		len(r.Images) == 0
}

// Normalize trims surrounding whitespace from all string fields and drops
// feature bullets that are empty after trimming.
func (r *ProductRecord) Normalize() {
	r.ID = strings.TrimSpace(r.ID)
	r.Title = strings.TrimSpace(r.Title)
	r.Price = strings.TrimSpace(r.Price)
	r.Rating = strings.TrimSpace(r.Rating)
	r.ReviewCount = strings.TrimSpace(r.ReviewCount)
	r.Description = strings.TrimSpace(r.Description)

	features := r.Features[:0]
	for _, f := range r.Features {
		if f = strings.TrimSpace(f); f != "" {
			features = append(features, f)
		}
	}
	if len(features) == 0 {
		r.Features = nil
	} else {
		r.Features = features
	}
}

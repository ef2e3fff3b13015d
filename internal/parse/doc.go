// Package parse is the selector boundary between the crawl engine and a
// concrete marketplace's markup. The engine only sees the Extractor
// interface; everything that knows about element IDs, class names, and
// embedded JSON lives here and can be swapped per target site.
package parse

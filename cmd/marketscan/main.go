// Package main provides the entry point for the marketscan CLI.
//
// Marketscan crawls marketplace search results for given keywords and
// extracts structured product records (title, price, rating, reviews,
// features, images).
//
// Usage:
//
//	marketscan crawl laptops
//	marketscan crawl --output products.jsonl laptops keyboards
//
// See --help for all available options.
package main

// main is the entry point for marketscan.
func main() {
	Execute()
}

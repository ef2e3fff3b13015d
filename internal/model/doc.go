// Package model defines the core data structures shared across marketscan:
// fetched pages, extracted product records, and crawl session state.
package model

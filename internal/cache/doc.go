// Package cache provides the SQLite-backed HTTP response cache.
// Entries are keyed by normalized method+URL and served only while
// younger than the configured TTL; expired entries behave as misses and
// are overwritten in place.
package cache

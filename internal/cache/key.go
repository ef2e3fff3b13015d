package cache

import (
	"net/url"
	"strings"
)

// NormalizeURL normalizes a URL for use in cache keys and frontier
// deduplication. The same page can be reached through cosmetically
// different URLs; normalizing collapses them so a page is fetched and
// counted once.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	// Fragments never change server responses.
	u.Fragment = ""

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	// "http://example.com" and "http://example.com/" are the same page.
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}

// Key builds the cache key for a request. Headers are deliberately
// excluded: rotated user agents would otherwise defeat the cache.
func Key(method, rawURL string) string {
	return strings.ToUpper(method) + " " + NormalizeURL(rawURL)
}

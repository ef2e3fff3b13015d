// Package fetch performs HTTP fetches for the crawler.
// It owns the HTTP transport, classifies transport and status failures
// into retry-relevant kinds, and rotates user agents and proxies
// independently for each outbound request.
package fetch

// Package throttle bounds the crawler's request rate.
// It issues a fixed number of concurrency permits and paces each dispatch
// with a jittered delay that adapts to observed latency and errors.
package throttle

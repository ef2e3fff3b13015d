// Package retry classifies fetch failures as retryable or terminal and
// computes the backoff applied before a retried request re-enters the
// rate governor.
package retry

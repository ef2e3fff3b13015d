package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
var (
	// ErrNoKeyword is returned when no search keyword is specified or a
	// keyword is blank.
	ErrNoKeyword = errors.New("no keyword specified: provide at least one non-empty search keyword")

	// ErrInvalidSearchTemplate is returned when the search URL template
	// has no %s verb to receive the keyword.
	ErrInvalidSearchTemplate = errors.New("invalid search URL template: must contain %s")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	// A timeout of zero or negative would cause immediate request failures.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConcurrency is returned when max concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	// A batch size of zero would mean no keywords are ever crawled.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidDelay is returned when the base delay is negative.
	// A negative delay is invalid; use 0 for no pacing between requests.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidThrottleBounds is returned when the adaptive throttle
	// floor is not positive or the ceiling is below the floor.
	ErrInvalidThrottleBounds = errors.New("invalid throttle bounds: floor must be positive and ceiling >= floor")

	// ErrInvalidMaxRetries is returned when the retry budget is negative.
	ErrInvalidMaxRetries = errors.New("invalid max retries: must be non-negative")

	// ErrInvalidMaxPages is returned when the page budget is not positive.
	// The page budget is what guarantees termination on unbounded result
	// sets, so it cannot be disabled.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidMaxItems is returned when the item budget is negative.
	// Use 0 for no item limit.
	ErrInvalidMaxItems = errors.New("invalid max items: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one summary format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// A negative body size is invalid; use 0 to use the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")
)

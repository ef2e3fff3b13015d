package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are tuned for polite crawling of large marketplaces:
// conservative enough to avoid tripping rate limits, fast enough to
// finish a keyword in minutes.
const (
	// DefaultMaxConcurrency is the number of requests allowed in flight
	// at once. Eight connections is well within what large marketplaces
	// serve to a single browser, so it does not stand out.
	DefaultMaxConcurrency = 8

	// DefaultBaseDelay is the pacing delay between requests when
	// adaptive throttling is disabled. Each request waits between one
	// and two times this value.
	DefaultBaseDelay = 500 * time.Millisecond

	// DefaultThrottleFloor is the lowest delay the adaptive governor
	// will use, and its starting delay.
	DefaultThrottleFloor = 1 * time.Second

	// DefaultThrottleCeiling is the highest delay the adaptive governor
	// will back off to when the server slows down.
	DefaultThrottleCeiling = 10 * time.Second

	// DefaultTimeout is the per-request timeout. Product pages are heavy
	// but 15 seconds is generous even for a throttled connection; longer
	// stalls are better spent on a retry.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxRetries is how many times a failed request is re-fetched
	// before giving up. Transient blocks (503 bursts, connection resets)
	// usually clear within a few attempts.
	DefaultMaxRetries = 5

	// DefaultCacheTTL is how long cached responses stay fresh. A day
	// keeps development iterations and resumed crawls cheap without
	// serving stale prices for long.
	DefaultCacheTTL = 24 * time.Hour

	// DefaultMaxPages caps the number of search-result pages followed
	// per keyword. Search results on large marketplaces are effectively
	// unbounded; the cap guarantees termination.
	DefaultMaxPages = 50

	// DefaultMaxItems caps emitted records per keyword. Zero means
	// unlimited; the page cap still bounds the crawl.
	DefaultMaxItems = 0

	// DefaultBatchSize is the number of keywords crawled concurrently
	// when several are given.
	DefaultBatchSize = 2

	// DefaultKeyword is crawled when no keyword is given.
	DefaultKeyword = "laptops"

	// DefaultSearchURLTemplate builds the seed search URL. The single
	// %s verb receives the URL-escaped keyword.
	DefaultSearchURLTemplate = "https://www.amazon.com/s?k=%s"

	// DefaultMaxBodySize limits the response body size to read.
	// 5MB is sufficient for most HTML pages while preventing memory
	// exhaustion from unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// AppName is the application name used for XDG directory paths.
	AppName = "marketscan"
)

// Config holds all configuration options for a crawl run.
// This struct is designed to be populated from CLI flags and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., ThrottleConfig, CacheConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
// If the configuration grows significantly, consider refactoring into sub-structs.
type Config struct {
	// Keywords is the list of search keywords to crawl.
	// Must contain at least one keyword.
	Keywords []string

	// SearchURLTemplate builds the seed search URL from a keyword.
	// It must contain exactly one %s verb.
	SearchURLTemplate string

	// MaxConcurrency is the number of requests allowed in flight at once.
	MaxConcurrency int

	// BaseDelay is the pacing delay between requests when adaptive
	// throttling is off. The actual wait is randomized between one and
	// two times this value so request timing doesn't form a pattern.
	BaseDelay time.Duration

	// Adaptive enables latency-tracking throttling. When the server
	// slows down, the delay between requests grows toward
	// ThrottleCeiling; when it recovers, the delay shrinks toward
	// ThrottleFloor.
	Adaptive bool

	// ThrottleFloor is the lowest (and starting) adaptive delay.
	ThrottleFloor time.Duration

	// ThrottleCeiling is the highest adaptive delay.
	ThrottleCeiling time.Duration

	// Timeout is the per-request timeout covering connection, headers,
	// and body.
	Timeout time.Duration

	// MaxRetries is the number of re-fetches allowed per request after
	// its first attempt fails.
	MaxRetries int

	// CacheTTL is how long cached responses stay fresh.
	CacheTTL time.Duration

	// CacheDir is the directory holding the response cache database.
	// Defaults to the XDG cache directory.
	CacheDir string

	// NoCache disables the response cache entirely.
	NoCache bool

	// MaxPages caps search-result pages followed per keyword.
	MaxPages int

	// MaxItems caps emitted records per keyword. Zero means unlimited.
	MaxItems int

	// BatchSize is the number of keywords crawled concurrently.
	BatchSize int

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// OutputFile is the JSON Lines file receiving extracted records.
	// When empty, records go to stdout.
	OutputFile string

	// DBPath is the SQLite database receiving extracted records.
	// When empty, records are not persisted to a database.
	DBPath string

	// JSONReport enables JSON summary output instead of plain text.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown summary output instead of plain
	// text. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the run summary.
	// When set, the summary is written to this file instead of stderr.
	ReportFile string

	// UserAgents is the pool of User-Agent strings rotated across
	// requests. When empty, a built-in pool of common desktop browser
	// strings is used.
	UserAgents []string

	// Proxies is the pool of proxy URLs rotated across requests.
	// When empty, requests go out directly.
	Proxies []string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Responses larger than this are truncated. Zero uses the default.
	MaxBodySize int64

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .marketscan in the current
	// directory and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds per-site settings loaded from the config file.
	SiteConfigs *File
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, delays).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Keywords:          []string{DefaultKeyword},
		SearchURLTemplate: DefaultSearchURLTemplate,
		MaxConcurrency:    DefaultMaxConcurrency,
		BaseDelay:         DefaultBaseDelay,
		Adaptive:          true,
		ThrottleFloor:     DefaultThrottleFloor,
		ThrottleCeiling:   DefaultThrottleCeiling,
		Timeout:           DefaultTimeout,
		MaxRetries:        DefaultMaxRetries,
		CacheTTL:          DefaultCacheTTL,
		CacheDir:          XDGCacheDir(),
		MaxPages:          DefaultMaxPages,
		MaxItems:          DefaultMaxItems,
		BatchSize:         DefaultBatchSize,
		MaxBodySize:       DefaultMaxBodySize,
	}
}

// SeedURL builds the seed search URL for a keyword.
func (c *Config) SeedURL(keyword string) string {
	return fmt.Sprintf(c.SearchURLTemplate, url.QueryEscape(keyword))
}

// XDGDataDir returns the XDG data directory for marketscan.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/marketscan
// On macOS: ~/Library/Application Support/marketscan
// On Windows: %LOCALAPPDATA%\marketscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for marketscan.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for marketscan.
// On Linux: ~/.cache/marketscan
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any crawling begins.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if len(c.Keywords) == 0 {
		return ErrNoKeyword
	}
	for _, kw := range c.Keywords {
		if strings.TrimSpace(kw) == "" {
			return ErrNoKeyword
		}
	}

	// The template must have somewhere to put the keyword
	if !strings.Contains(c.SearchURLTemplate, "%s") {
		return ErrInvalidSearchTemplate
	}

	// Timeout must be positive; zero timeout would cause immediate failures
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	// Concurrency must be positive; zero would mean no fetching
	if c.MaxConcurrency <= 0 {
		return ErrInvalidConcurrency
	}

	// BatchSize must be positive; zero would mean no keyword progress
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.BaseDelay < 0 {
		return ErrInvalidDelay
	}
	if c.ThrottleFloor <= 0 || c.ThrottleCeiling < c.ThrottleFloor {
		return ErrInvalidThrottleBounds
	}

	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}

	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.MaxItems < 0 {
		return ErrInvalidMaxItems
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	// MaxBodySize must be non-negative; zero means default
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}

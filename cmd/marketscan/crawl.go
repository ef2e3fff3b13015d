package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/yuki-osaki/marketscan/internal/cache"
	"github.com/yuki-osaki/marketscan/internal/config"
	"github.com/yuki-osaki/marketscan/internal/crawler"
	"github.com/yuki-osaki/marketscan/internal/fetch"
	"github.com/yuki-osaki/marketscan/internal/log"
	"github.com/yuki-osaki/marketscan/internal/model"
	"github.com/yuki-osaki/marketscan/internal/parse"
	"github.com/yuki-osaki/marketscan/internal/report"
	"github.com/yuki-osaki/marketscan/internal/retry"
	"github.com/yuki-osaki/marketscan/internal/sink"
	"github.com/yuki-osaki/marketscan/internal/throttle"
)

// dbFileName is the product database file created inside the XDG data
// directory. The export command reads the same file.
const dbFileName = "marketscan.db"

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [keyword...]",
		Short: "Crawl marketplace search results for keywords",
		Long: `Crawl fetches search-result pages for each keyword, follows pagination,
visits every discovered product page, and emits one structured record
per product.

Records are written as JSON Lines to stdout (or --output) and stored in
a local SQLite database for later export.

Examples:
  # Crawl the default keyword
  marketscan crawl

  # Crawl several keywords, two at a time
  marketscan crawl laptops keyboards monitors

  # Write records to a file and print a Markdown summary
  marketscan crawl --output products.jsonl --markdown laptops

  # Crawl aggressively against a staging mirror
  marketscan crawl --search-url "https://staging.shop.test/s?k=%s" \
    --no-autothrottle --delay 0 laptops

Configuration file (.marketscan) example:
  defaults:
    headers:
      Accept-Language: "en-US,en;q=0.5"
  sites:
    www.amazon.com:
      cookie: "session-id=abc123"
      maxPages: 10`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Pacing flags
	cmd.Flags().IntP("concurrency", "n", config.DefaultMaxConcurrency,
		"Maximum number of requests in flight at once")
	cmd.Flags().Duration("delay", config.DefaultBaseDelay,
		"Base delay between requests when autothrottle is off")
	cmd.Flags().Bool("no-autothrottle", false,
		"Disable adaptive throttling and use the fixed base delay")
	cmd.Flags().Duration("throttle-floor", config.DefaultThrottleFloor,
		"Lowest (and starting) adaptive delay")
	cmd.Flags().Duration("throttle-ceiling", config.DefaultThrottleCeiling,
		"Highest adaptive delay")

	// Fetch behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Per-request timeout")
	cmd.Flags().IntP("retries", "r", config.DefaultMaxRetries,
		"Number of re-fetches allowed after a request fails")
	cmd.Flags().String("search-url", config.DefaultSearchURLTemplate,
		"Search URL template; %s receives the escaped keyword")
	cmd.Flags().StringSlice("user-agent", nil,
		"User-Agent string to rotate (repeatable; default: built-in pool)")
	cmd.Flags().StringSlice("proxy", nil,
		"Proxy URL to rotate (repeatable; default: direct connection)")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes")

	// Budget flags
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum search-result pages followed per keyword")
	cmd.Flags().IntP("max-items", "i", config.DefaultMaxItems,
		"Maximum records emitted per keyword (0 = unlimited)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of keywords crawled concurrently")

	// Cache flags
	cmd.Flags().Duration("cache-ttl", config.DefaultCacheTTL,
		"How long cached responses stay fresh")
	cmd.Flags().String("cache-dir", config.XDGCacheDir(),
		"Directory holding the response cache")
	cmd.Flags().Bool("no-cache", false,
		"Disable the response cache")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .marketscan in current or home directory)")

	// Output flags
	cmd.Flags().StringP("output", "o", "",
		"Write records to this JSON Lines file instead of stdout")
	cmd.Flags().String("db", filepath.Join(config.XDGDataDir(), dbFileName),
		"SQLite database receiving records (empty string disables)")
	cmd.Flags().BoolP("json", "j", false,
		"Print the run summary as JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print the run summary as Markdown (mutually exclusive with --json)")
	cmd.Flags().String("report", "",
		"Write the run summary to this file instead of stderr")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging with credential redaction
	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runCrawl(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	if len(args) > 0 {
		cfg.Keywords = args
	}

	var err error

	cfg.MaxConcurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}
	cfg.BaseDelay, err = cmd.Flags().GetDuration("delay")
	if err != nil {
		return nil, err
	}
	noAutothrottle, err := cmd.Flags().GetBool("no-autothrottle")
	if err != nil {
		return nil, err
	}
	cfg.Adaptive = !noAutothrottle
	cfg.ThrottleFloor, err = cmd.Flags().GetDuration("throttle-floor")
	if err != nil {
		return nil, err
	}
	cfg.ThrottleCeiling, err = cmd.Flags().GetDuration("throttle-ceiling")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}
	cfg.MaxRetries, err = cmd.Flags().GetInt("retries")
	if err != nil {
		return nil, err
	}
	cfg.SearchURLTemplate, err = cmd.Flags().GetString("search-url")
	if err != nil {
		return nil, err
	}
	cfg.UserAgents, err = cmd.Flags().GetStringSlice("user-agent")
	if err != nil {
		return nil, err
	}
	cfg.Proxies, err = cmd.Flags().GetStringSlice("proxy")
	if err != nil {
		return nil, err
	}
	cfg.MaxBodySize, err = cmd.Flags().GetInt64("max-body-size")
	if err != nil {
		return nil, err
	}

	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return nil, err
	}
	cfg.MaxItems, err = cmd.Flags().GetInt("max-items")
	if err != nil {
		return nil, err
	}
	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.CacheTTL, err = cmd.Flags().GetDuration("cache-ttl")
	if err != nil {
		return nil, err
	}
	cfg.CacheDir, err = cmd.Flags().GetString("cache-dir")
	if err != nil {
		return nil, err
	}
	cfg.NoCache, err = cmd.Flags().GetBool("no-cache")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site-specific configurations from config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.OutputFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}
	cfg.DBPath, err = cmd.Flags().GetString("db")
	if err != nil {
		return nil, err
	}
	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}
	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}
	cfg.ReportFile, err = cmd.Flags().GetString("report")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	applySiteConfig(cfg)

	return cfg, nil
}

// applySiteConfig merges the target host's profile from the config file
// into the run configuration. Flag values win over file values.
func applySiteConfig(cfg *config.Config) {
	if cfg.SiteConfigs == nil || len(cfg.Keywords) == 0 {
		return
	}

	seed, err := url.Parse(cfg.SeedURL(cfg.Keywords[0]))
	if err != nil {
		return
	}

	site := cfg.SiteConfigs.GetSiteConfig(seed.Host)

	if len(cfg.UserAgents) == 0 && len(site.UserAgents) > 0 {
		cfg.UserAgents = site.UserAgents
	}
	if len(cfg.Proxies) == 0 && len(site.Proxies) > 0 {
		cfg.Proxies = site.Proxies
	}
	if site.MaxPages > 0 && cfg.MaxPages == config.DefaultMaxPages {
		cfg.MaxPages = site.MaxPages
	}
}

// runCrawl executes the crawl.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting crawl",
		"keywords", cfg.Keywords,
		"concurrency", cfg.MaxConcurrency,
		"batch", cfg.BatchSize,
		"adaptive", cfg.Adaptive,
	)

	fetcher, err := buildFetcher(cfg)
	if err != nil {
		return err
	}

	// One governor for the whole run: politeness budgets are per host,
	// not per keyword.
	governor := throttle.New(cfg.MaxConcurrency,
		throttle.WithAdaptive(cfg.Adaptive),
		throttle.WithBaseDelay(cfg.BaseDelay),
		throttle.WithBounds(cfg.ThrottleFloor, cfg.ThrottleCeiling),
	)

	policy := retry.New(cfg.MaxRetries, retry.DefaultBackoffStep)

	var store *cache.Store
	if !cfg.NoCache {
		store, err = cache.Open(cfg.CacheDir, cfg.CacheTTL)
		if err != nil {
			return fmt.Errorf("failed to open response cache: %w", err)
		}
		defer store.Close() //nolint:errcheck // Best effort cleanup
		logger.Info("response cache opened", "dir", cfg.CacheDir, "ttl", cfg.CacheTTL)
	}

	recordSink, closeSink, err := buildSink(cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	var bar *progressbar.ProgressBar
	if !cfg.Verbose {
		bar = newProgressBar()
		defer bar.Finish() //nolint:errcheck // Best effort cleanup
	}

	run := func(ctx context.Context, job crawler.Job) (*model.CrawlSession, error) {
		// One pipeline per keyword so emission counters stay per session;
		// the sink underneath is shared.
		pipeline := sink.NewPipeline(recordSink, sink.WithLogger(logger))

		opts := []crawler.EngineOption{
			crawler.WithGovernor(governor),
			crawler.WithRetryPolicy(policy),
			crawler.WithLogger(logger),
			crawler.WithConcurrency(cfg.MaxConcurrency),
			crawler.WithBudgets(cfg.MaxPages, cfg.MaxItems),
		}
		if store != nil {
			opts = append(opts, crawler.WithCache(store))
		}
		if bar != nil {
			opts = append(opts, crawler.WithProgress(func(*model.CrawlSession) {
				_ = bar.Add(1) //nolint:errcheck // Progress display is best effort
			}))
		}

		engine := crawler.New(fetcher, parse.NewAmazon(), pipeline, opts...)
		return engine.Run(ctx, job.Keyword, job.SeedURL)
	}

	jobs := make([]crawler.Job, 0, len(cfg.Keywords))
	for _, keyword := range cfg.Keywords {
		jobs = append(jobs, crawler.Job{Keyword: keyword, SeedURL: cfg.SeedURL(keyword)})
	}

	br := crawler.NewBatchRunner(run,
		crawler.WithBatchConcurrency(cfg.BatchSize),
		crawler.WithBatchLogger(logger),
	)

	sessions, err := br.Run(ctx, jobs)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if bar != nil {
		_ = bar.Finish() //nolint:errcheck // Progress display is best effort
		fmt.Fprintln(os.Stderr)
	}

	if err := outputSummary(cfg, sessions); err != nil {
		return err
	}

	// A run that extracted nothing at all is a failure: the seed was
	// wrong, the site blocked us, or the selectors rotted.
	var total int
	for _, s := range sessions {
		if s != nil {
			total += s.RecordsEmitted
		}
	}
	if total == 0 {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.New("no records extracted for any keyword")
	}

	return nil
}

// buildFetcher creates the HTTP client with rotation pools and the
// target site's headers.
func buildFetcher(cfg *config.Config) (*fetch.Client, error) {
	opts := []fetch.Option{
		fetch.WithMaxBodySize(cfg.MaxBodySize),
	}

	if len(cfg.UserAgents) > 0 {
		opts = append(opts, fetch.WithUserAgents(fetch.NewUserAgentPool(cfg.UserAgents...)))
	}

	if len(cfg.Proxies) > 0 {
		pool, err := fetch.NewProxyPool(cfg.Proxies...)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy: %w", err)
		}
		opts = append(opts, fetch.WithProxies(pool))
	}

	headers := siteHeaders(cfg)
	if len(headers) > 0 {
		opts = append(opts, fetch.WithHeaders(headers))
	}

	return fetch.NewClient(cfg.Timeout, opts...), nil
}

// siteHeaders collects the target host's extra headers and cookie from
// the config file.
func siteHeaders(cfg *config.Config) map[string]string {
	if cfg.SiteConfigs == nil || len(cfg.Keywords) == 0 {
		return nil
	}

	seed, err := url.Parse(cfg.SeedURL(cfg.Keywords[0]))
	if err != nil {
		return nil
	}

	site := cfg.SiteConfigs.GetSiteConfig(seed.Host)

	headers := make(map[string]string, len(site.Headers)+1)
	for name, value := range site.Headers {
		headers[name] = value
	}
	if site.Cookie != "" {
		headers["Cookie"] = site.Cookie
	}
	return headers
}

// buildSink assembles the record destinations: JSON Lines to stdout or
// a file, plus the SQLite database unless disabled.
func buildSink(cfg *config.Config) (sink.Sink, func(), error) {
	var sinks []sink.Sink

	if cfg.OutputFile != "" {
		fileSink, err := sink.NewJSONLFileSink(cfg.OutputFile)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, fileSink)
	} else {
		sinks = append(sinks, sink.NewJSONLSink(os.Stdout))
	}

	if cfg.DBPath != "" {
		dbSink, err := sink.NewSQLiteSink(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open product database: %w", err)
		}
		sinks = append(sinks, dbSink)
	}

	combined := sink.NewMultiSink(sinks...)
	closeAll := func() {
		if err := combined.Close(); err != nil {
			slog.Warn("failed to close record sinks", "error", err)
		}
	}
	return combined, closeAll, nil
}

// newProgressBar creates the spinner shown while crawling. The total is
// unknown up front, so the bar counts handled pages.
func newProgressBar() *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("crawling"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// outputSummary writes the run summary in the requested format.
// The summary goes to stderr by default so piped record output on
// stdout stays clean.
func outputSummary(cfg *config.Config, sessions []*model.CrawlSession) error {
	// Sessions for keywords that never started (cancelled early) are nil.
	finished := make([]*model.CrawlSession, 0, len(sessions))
	for _, s := range sessions {
		if s != nil {
			finished = append(finished, s)
		}
	}
	if len(finished) == 0 {
		return nil
	}

	var output *os.File
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stderr
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	if _, err := writer.Write(finished); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

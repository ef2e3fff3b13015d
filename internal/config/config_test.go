package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewConfig(t *testing.T) {
	t.Parallel()

	c := NewConfig()

	if len(c.Keywords) != 1 || c.Keywords[0] != DefaultKeyword {
		t.Errorf("expected default keyword %q, got %v", DefaultKeyword, c.Keywords)
	}
	if c.MaxConcurrency != DefaultMaxConcurrency {
		t.Errorf("expected concurrency %d, got %d", DefaultMaxConcurrency, c.MaxConcurrency)
	}
	if c.Timeout != DefaultTimeout {
		t.Errorf("expected timeout %v, got %v", DefaultTimeout, c.Timeout)
	}
	if !c.Adaptive {
		t.Error("expected adaptive throttling on by default")
	}
	if err := c.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestConfigSeedURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		keyword string
		want    string
	}{
		{"simple keyword", "laptops", "https://www.amazon.com/s?k=laptops"},
		{"keyword with space", "gaming laptops", "https://www.amazon.com/s?k=gaming+laptops"},
		{"keyword with symbols", "usb-c & hdmi", "https://www.amazon.com/s?k=usb-c+%26+hdmi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewConfig()
			if got := c.SeedURL(tt.keyword); got != tt.want {
				t.Errorf("SeedURL(%q) = %q, want %q", tt.keyword, got, tt.want)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"no keywords", func(c *Config) { c.Keywords = nil }, ErrNoKeyword},
		{"blank keyword", func(c *Config) { c.Keywords = []string{"  "} }, ErrNoKeyword},
		{"template without verb", func(c *Config) { c.SearchURLTemplate = "https://example.com/s" }, ErrInvalidSearchTemplate},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"zero concurrency", func(c *Config) { c.MaxConcurrency = 0 }, ErrInvalidConcurrency},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, ErrInvalidBatchSize},
		{"negative delay", func(c *Config) { c.BaseDelay = -time.Second }, ErrInvalidDelay},
		{"ceiling below floor", func(c *Config) { c.ThrottleCeiling = c.ThrottleFloor / 2 }, ErrInvalidThrottleBounds},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, ErrInvalidMaxRetries},
		{"zero page budget", func(c *Config) { c.MaxPages = 0 }, ErrInvalidMaxPages},
		{"negative item budget", func(c *Config) { c.MaxItems = -1 }, ErrInvalidMaxItems},
		{"conflicting formats", func(c *Config) { c.JSONReport, c.MarkdownReport = true, true }, ErrConflictingReportFormats},
		{"negative body size", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewConfig()
			tt.mutate(c)

			if err := c.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for name, dir := range map[string]string{
		"data":   XDGDataDir(),
		"config": XDGConfigDir(),
		"cache":  XDGCacheDir(),
	} {
		if dir == "" {
			t.Errorf("expected non-empty %s dir", name)
		}
		if filepath.Base(dir) != AppName {
			t.Errorf("expected %s dir to end in %q, got %q", name, AppName, dir)
		}
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("loads sites and defaults", func(t *testing.T) {
		t.Parallel()

		content := `
defaults:
  headers:
    Accept-Language: en-US
sites:
  www.amazon.com:
    cookie: "session=abc"
    maxPages: 10
    userAgents:
      - "TestAgent/1.0"
`
		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		site := cf.GetSiteConfig("www.amazon.com")
		if site.Cookie != "session=abc" {
			t.Errorf("unexpected cookie %q", site.Cookie)
		}
		if site.MaxPages != 10 {
			t.Errorf("expected maxPages 10, got %d", site.MaxPages)
		}
		if site.Headers["Accept-Language"] != "en-US" {
			t.Errorf("expected default header to merge, got %v", site.Headers)
		}
		if len(site.UserAgents) != 1 || site.UserAgents[0] != "TestAgent/1.0" {
			t.Errorf("unexpected user agents %v", site.UserAgents)
		}
	})

	t.Run("unknown host falls back to defaults", func(t *testing.T) {
		t.Parallel()

		content := `
defaults:
  maxPages: 5
`
		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		site := cf.GetSiteConfig("www.other.com")
		if site.MaxPages != 5 {
			t.Errorf("expected default maxPages 5, got %d", site.MaxPages)
		}
	})

	t.Run("missing file returns ErrConfigNotFound", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("malformed YAML is an error", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte("sites: [broken"), 0600); err != nil {
			t.Fatal(err)
		}

		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected error for malformed YAML")
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit existing path wins", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte("{}"), 0600); err != nil {
			t.Fatal(err)
		}

		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
	})

	t.Run("explicit missing path yields empty", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(filepath.Join(t.TempDir(), "missing")); got != "" {
			t.Errorf("expected empty result, got %q", got)
		}
	})
}

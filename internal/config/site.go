package config

// SiteConfig holds per-host settings for a single marketplace.
// This allows customizing crawl behavior per target site.
type SiteConfig struct {
	// Cookie is an HTTP cookie to send when crawling this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// UserAgents overrides the global User-Agent pool for this site.
	UserAgents []string `yaml:"userAgents,omitempty"`

	// Proxies overrides the global proxy pool for this site.
	Proxies []string `yaml:"proxies,omitempty"`

	// MaxPages overrides the global search-page budget for this site.
	// If zero, the global MaxPages is used.
	MaxPages int `yaml:"maxPages,omitempty"`
}

// File represents the structure of the .marketscan configuration file.
type File struct {
	// Sites maps host names to their site-specific configurations.
	// Keys should be the bare host (e.g., "www.amazon.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a specific host.
// It merges the site-specific configuration with defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	// Start with defaults
	result := cf.Defaults

	// Override with site-specific configuration if present
	if siteConfig, ok := cf.Sites[host]; ok {
		if siteConfig.Cookie != "" {
			result.Cookie = siteConfig.Cookie
		}
		if siteConfig.MaxPages != 0 {
			result.MaxPages = siteConfig.MaxPages
		}
		if len(siteConfig.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string)
			}
			for k, v := range siteConfig.Headers {
				result.Headers[k] = v
			}
		}
		if len(siteConfig.UserAgents) > 0 {
			result.UserAgents = siteConfig.UserAgents
		}
		if len(siteConfig.Proxies) > 0 {
			result.Proxies = siteConfig.Proxies
		}
	}

	return result
}

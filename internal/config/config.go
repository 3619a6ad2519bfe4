package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Scraper   ScraperConfig
	Selectors SelectorConfig
	Browser   BrowserConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// WaitRange is a min/max delay pair. Actual waits are drawn uniformly from
// the range to avoid a mechanical interaction cadence.
type WaitRange struct {
	Min time.Duration
	Max time.Duration
}

type ScraperConfig struct {
	// Mode is silent, detailed, or debug. It controls log verbosity only.
	Mode string

	// MaxProducts caps how many discovered listing links one batch visits.
	MaxProducts int

	// WaitPageLoad et al. mirror the interaction pacing of the live site:
	// after navigation, after scrolls, while elements render, between
	// option clicks, and between products in a batch.
	WaitPageLoad        WaitRange
	WaitScroll          WaitRange
	WaitElementLoad     WaitRange
	WaitBetweenActions  WaitRange
	WaitBetweenProducts WaitRange

	// ProbeInterval and ProbeTimeout bound the price convergence loop: the
	// price field is sampled every interval until it changes or the timeout
	// elapses, in which case the pre-probe price is retained.
	ProbeInterval time.Duration
	ProbeTimeout  time.Duration

	// CompetitorMaxResults caps the competitor search result set.
	CompetitorMaxResults int
	// CompetitorSearchURL is the search endpoint; the query is appended
	// URL-encoded.
	CompetitorSearchURL string
	// EnableCompetitorSearch toggles the quote collection step.
	EnableCompetitorSearch bool

	// PriceDiscount is the factor applied to the competitor minimum in the
	// final-price rule.
	PriceDiscount float64

	// CacheDir is the root of the local JSON product cache.
	CacheDir string
}

// SelectorConfig carries the ordered per-field extraction strategies. Each
// list is evaluated front to back; the first selector with matches wins.
type SelectorConfig struct {
	SearchItem       []string
	Title            []string
	PriceCurrent     []string
	PriceOriginal    []string
	Gallery          []string
	SkuRow           []string
	SkuOption        []string
	SkuPropertyTitle []string
	DescContainer    []string
	DescRichText     []string
	DescShadowHost   []string
	SeoDescription   []string
	ViewMoreButton   []string
	Sellpoints       []string

	// CaptchaIndicators are OR-combined: any visible match blocks the run.
	CaptchaIndicators []string

	// CaptchaTextMarkers are page-text fallbacks for challenge layouts
	// that render without a stable selector. Matched case-insensitively.
	CaptchaTextMarkers []string

	// ImageSkipPatterns is the denylist of UI-chrome image references
	// (icons, sprites, tracking pixels) excluded from every gallery.
	ImageSkipPatterns []string
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	UserAgent      string
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ProxyServer    string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Enabled  bool
}

type RedisConfig struct {
	Addr    string
	Stream  string
	Enabled bool
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Scraper: ScraperConfig{
			Mode:                   getEnvOrDefault("SCRAPER_MODE", "detailed"),
			MaxProducts:            getIntOrDefault("SCRAPER_MAX_PRODUCTS", 10),
			WaitPageLoad:           getWaitRangeOrDefault("WAIT_PAGE_LOAD", WaitRange{1 * time.Second, 2 * time.Second}),
			WaitScroll:             getWaitRangeOrDefault("WAIT_SCROLL", WaitRange{300 * time.Millisecond, 800 * time.Millisecond}),
			WaitElementLoad:        getWaitRangeOrDefault("WAIT_ELEMENT_LOAD", WaitRange{500 * time.Millisecond, 1 * time.Second}),
			WaitBetweenActions:     getWaitRangeOrDefault("WAIT_BETWEEN_ACTIONS", WaitRange{200 * time.Millisecond, 500 * time.Millisecond}),
			WaitBetweenProducts:    getWaitRangeOrDefault("WAIT_BETWEEN_PRODUCTS", WaitRange{1500 * time.Millisecond, 3 * time.Second}),
			ProbeInterval:          getDurationOrDefault("PROBE_INTERVAL", 200*time.Millisecond),
			ProbeTimeout:           getDurationOrDefault("PROBE_TIMEOUT", 3*time.Second),
			CompetitorMaxResults:   getIntOrDefault("COMPETITOR_MAX_RESULTS", 10),
			CompetitorSearchURL:    getEnvOrDefault("COMPETITOR_SEARCH_URL", "https://www.amazon.com/s?k="),
			EnableCompetitorSearch: getBoolOrDefault("COMPETITOR_SEARCH_ENABLED", true),
			PriceDiscount:          getFloatOrDefault("PRICE_DISCOUNT", 0.95),
			CacheDir:               getEnvOrDefault("CACHE_DIR", "cache"),
		},
		Selectors: SelectorConfig{
			SearchItem:       getStringSliceOrDefault("SEL_SEARCH_ITEM", []string{"a.search-card-item"}),
			Title:            getStringSliceOrDefault("SEL_TITLE", []string{"h1[data-pl='product-title']"}),
			PriceCurrent:     getStringSliceOrDefault("SEL_PRICE_CURRENT", []string{"span[class*='price-default--current']"}),
			PriceOriginal:    getStringSliceOrDefault("SEL_PRICE_ORIGINAL", []string{"span[class*='price-default--original']"}),
			Gallery:          getStringSliceOrDefault("SEL_GALLERY", []string{"div[class*='slider--img'] img"}),
			SkuRow:           getStringSliceOrDefault("SEL_SKU_ROW", []string{"div[class*='sku-item--property']", "div[data-sku-row]"}),
			SkuOption:        getStringSliceOrDefault("SEL_SKU_OPTION", []string{"div[data-sku-col]"}),
			SkuPropertyTitle: getStringSliceOrDefault("SEL_SKU_PROPERTY_TITLE", []string{".sku-item--title--Z0HLO87", ".sku-item--title"}),
			DescContainer:    getStringSliceOrDefault("SEL_DESC_CONTAINER", []string{"#product-description"}),
			DescRichText:     getStringSliceOrDefault("SEL_DESC_RICHTEXT", []string{".product-description"}),
			DescShadowHost:   getStringSliceOrDefault("SEL_DESC_SHADOW_HOST", []string{"#product-description > div[data-spm-anchor-id]"}),
			SeoDescription:   getStringSliceOrDefault("SEL_SEO_DESCRIPTION", []string{"div[data-pl='seo-description']"}),
			ViewMoreButton:   getStringSliceOrDefault("SEL_VIEW_MORE_BTN", []string{"button[class*='extend--btn']"}),
			Sellpoints:       getStringSliceOrDefault("SEL_SELLPOINTS", []string{"ul[class*='seo-sellpoints--sellerPoint']"}),
			CaptchaIndicators: getStringSliceOrDefault("SEL_CAPTCHA_INDICATORS", []string{
				".J_MIDDLEWARE_FRAME_WIDGET",
				"#baxia-dialog-content",
				"div[class*='MIDDLEWARE_FRAME']",
			}),
			CaptchaTextMarkers: getStringSliceOrDefault("SEL_CAPTCHA_TEXT_MARKERS", []string{
				"slide to verify",
				"unusual traffic",
			}),
			ImageSkipPatterns: getStringSliceOrDefault("IMAGE_SKIP_PATTERNS", []string{
				"icon", "sprite", "pixel", "1x1", "loading", "placeholder",
			}),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", false),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			UserAgent:      getEnvOrDefault("BROWSER_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0"),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "en-US,en;q=0.9"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "America/Los_Angeles"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "en-US"),
			ProxyServer:    getEnvOrDefault("BROWSER_PROXY", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "aliexpress_scraper"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
			Enabled:  getBoolOrDefault("DB_ENABLED", false),
		},
		Redis: RedisConfig{
			Addr:    getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Stream:  getEnvOrDefault("REDIS_STREAM", "stream:product_scraped"),
			Enabled: getBoolOrDefault("REDIS_ENABLED", false),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", ""),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Scraper.Mode {
	case "silent", "detailed", "debug":
	default:
		return fmt.Errorf("SCRAPER_MODE must be silent, detailed, or debug")
	}

	if c.Scraper.MaxProducts < 1 {
		return fmt.Errorf("SCRAPER_MAX_PRODUCTS must be at least 1")
	}

	if c.Scraper.ProbeInterval <= 0 || c.Scraper.ProbeTimeout < c.Scraper.ProbeInterval {
		return fmt.Errorf("PROBE_TIMEOUT must be at least PROBE_INTERVAL")
	}

	if c.Scraper.PriceDiscount <= 0 || c.Scraper.PriceDiscount > 1 {
		return fmt.Errorf("PRICE_DISCOUNT must be in (0, 1]")
	}

	if c.Scraper.CompetitorMaxResults < 1 {
		return fmt.Errorf("COMPETITOR_MAX_RESULTS must be at least 1")
	}

	for name, r := range map[string]WaitRange{
		"WAIT_PAGE_LOAD":        c.Scraper.WaitPageLoad,
		"WAIT_SCROLL":           c.Scraper.WaitScroll,
		"WAIT_ELEMENT_LOAD":     c.Scraper.WaitElementLoad,
		"WAIT_BETWEEN_ACTIONS":  c.Scraper.WaitBetweenActions,
		"WAIT_BETWEEN_PRODUCTS": c.Scraper.WaitBetweenProducts,
	} {
		if r.Min > r.Max {
			return fmt.Errorf("%s min cannot be greater than max", name)
		}
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getWaitRangeOrDefault parses "min,max" duration pairs, e.g. "1s,2s".
func getWaitRangeOrDefault(key string, defaultValue WaitRange) WaitRange {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.SplitN(value, ",", 2)
	if len(parts) != 2 {
		return defaultValue
	}
	min, err1 := time.ParseDuration(strings.TrimSpace(parts[0]))
	max, err2 := time.ParseDuration(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return defaultValue
	}
	return WaitRange{Min: min, Max: max}
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

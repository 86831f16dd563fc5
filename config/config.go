package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds archiver configuration.
type Config struct {
	BaseURL        string
	CategoryPath   string
	TextEndpoint   string
	StartPage      int
	EndPage        int // 0 discovers the last page
	StartID        int
	EndID          int
	DestFolder     string
	ManifestPath   string
	ManifestFormat string // json or dual
	SkipText       bool
	SkipImages     bool
	Timeout        time.Duration
	MaxBodySize    int
	PageCacheSize  int
	UserAgent      string
	MetricsAddr    string
	Verbose        bool
}

// DefaultConfig returns defaults for tululu.org.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "https://tululu.org",
		CategoryPath:   "l55/",
		TextEndpoint:   "txt.php",
		StartPage:      1,
		EndPage:        0,
		StartID:        1,
		EndID:          10,
		DestFolder:     "media",
		ManifestPath:   "books_description.json",
		ManifestFormat: "json",
		SkipText:       false,
		SkipImages:     false,
		Timeout:        30 * time.Second,
		MaxBodySize:    0,
		PageCacheSize:  16,
		UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		MetricsAddr:    "",
		Verbose:        false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("base URL scheme must be http or https")
	}

	if strings.TrimSpace(c.CategoryPath) == "" {
		return fmt.Errorf("category path cannot be empty")
	}
	if strings.TrimSpace(c.TextEndpoint) == "" {
		return fmt.Errorf("text endpoint cannot be empty")
	}
	if c.StartPage < 1 {
		return fmt.Errorf("start page must be at least 1")
	}
	if c.EndPage < 0 {
		return fmt.Errorf("end page cannot be negative")
	}
	if c.EndPage > 0 && c.EndPage < c.StartPage {
		return fmt.Errorf("end page (%d) cannot precede start page (%d)", c.EndPage, c.StartPage)
	}
	if c.StartID < 1 {
		return fmt.Errorf("start id must be at least 1")
	}
	if c.EndID < c.StartID {
		return fmt.Errorf("end id (%d) cannot precede start id (%d)", c.EndID, c.StartID)
	}
	if c.DestFolder == "" {
		return fmt.Errorf("destination folder cannot be empty")
	}
	if c.ManifestPath == "" {
		return fmt.Errorf("manifest path cannot be empty")
	}
	if c.ManifestFormat != "json" && c.ManifestFormat != "dual" {
		return fmt.Errorf("manifest format must be json or dual")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxBodySize < 0 {
		return fmt.Errorf("max body size cannot be negative")
	}
	if c.PageCacheSize <= 0 {
		return fmt.Errorf("page cache size must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}

// CategoryURL is the absolute URL of the configured category.
func (c *Config) CategoryURL() (string, error) {
	return c.resolve(c.CategoryPath)
}

// TextURL is the absolute URL of the text download endpoint.
func (c *Config) TextURL() (string, error) {
	return c.resolve(c.TextEndpoint)
}

func (c *Config) resolve(ref string) (string, error) {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	rel, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", ref, err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	return base.ResolveReference(rel).String(), nil
}

// SetDefaults registers DefaultConfig values on v under the archiver prefix.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("archiver.base_url", d.BaseURL)
	v.SetDefault("archiver.category", d.CategoryPath)
	v.SetDefault("archiver.text_endpoint", d.TextEndpoint)
	v.SetDefault("archiver.start_page", d.StartPage)
	v.SetDefault("archiver.end_page", d.EndPage)
	v.SetDefault("archiver.start_id", d.StartID)
	v.SetDefault("archiver.end_id", d.EndID)
	v.SetDefault("archiver.dest_folder", d.DestFolder)
	v.SetDefault("archiver.json_path", d.ManifestPath)
	v.SetDefault("archiver.manifest_format", d.ManifestFormat)
	v.SetDefault("archiver.skip_txt", d.SkipText)
	v.SetDefault("archiver.skip_imgs", d.SkipImages)
	v.SetDefault("archiver.timeout", d.Timeout)
	v.SetDefault("archiver.max_body_size", d.MaxBodySize)
	v.SetDefault("archiver.page_cache_size", d.PageCacheSize)
	v.SetDefault("archiver.user_agent", d.UserAgent)
	v.SetDefault("archiver.metrics_addr", d.MetricsAddr)
	v.SetDefault("archiver.verbose", d.Verbose)
}

// Load builds a Config from v and validates it. Environment variables are
// the upper-cased keys with dots replaced, e.g. ARCHIVER_DEST_FOLDER for
// archiver.dest_folder.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		BaseURL:        v.GetString("archiver.base_url"),
		CategoryPath:   v.GetString("archiver.category"),
		TextEndpoint:   v.GetString("archiver.text_endpoint"),
		StartPage:      v.GetInt("archiver.start_page"),
		EndPage:        v.GetInt("archiver.end_page"),
		StartID:        v.GetInt("archiver.start_id"),
		EndID:          v.GetInt("archiver.end_id"),
		DestFolder:     v.GetString("archiver.dest_folder"),
		ManifestPath:   v.GetString("archiver.json_path"),
		ManifestFormat: strings.ToLower(v.GetString("archiver.manifest_format")),
		SkipText:       v.GetBool("archiver.skip_txt"),
		SkipImages:     v.GetBool("archiver.skip_imgs"),
		Timeout:        v.GetDuration("archiver.timeout"),
		MaxBodySize:    v.GetInt("archiver.max_body_size"),
		PageCacheSize:  v.GetInt("archiver.page_cache_size"),
		UserAgent:      v.GetString("archiver.user_agent"),
		MetricsAddr:    v.GetString("archiver.metrics_addr"),
		Verbose:        v.GetBool("archiver.verbose"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

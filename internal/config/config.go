// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/topicstreams-scraper/internal/browser"
	"github.com/JakeFAU/topicstreams-scraper/internal/dedup"
	"github.com/JakeFAU/topicstreams-scraper/internal/extract"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Search    SearchConfig    `mapstructure:"search"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	DB        DBConfig        `mapstructure:"db"`
	Ops       OpsConfig       `mapstructure:"ops"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Snapshots SnapshotsConfig `mapstructure:"snapshots"`
	Notify    NotifyConfig    `mapstructure:"notify"`
}

// ScraperConfig governs cycle timing and deduplication.
type ScraperConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
	MaxPages        int `mapstructure:"max_pages"`
	HistoryCapacity int `mapstructure:"history_capacity"`
}

// SearchConfig points the extractor at the search results endpoint.
type SearchConfig struct {
	BaseURL  string  `mapstructure:"base_url"`
	SettleMs int     `mapstructure:"settle_ms"`
	MaxRPS   float64 `mapstructure:"max_rps"`
	Burst    int     `mapstructure:"burst"`
}

// BrowserConfig holds the fingerprint presented by every page.
type BrowserConfig struct {
	Headless       bool              `mapstructure:"headless"`
	ExecPath       string            `mapstructure:"exec_path"`
	UserAgent      string            `mapstructure:"user_agent"`
	ViewportWidth  int               `mapstructure:"viewport_width"`
	ViewportHeight int               `mapstructure:"viewport_height"`
	Locale         string            `mapstructure:"locale"`
	Timezone       string            `mapstructure:"timezone"`
	Latitude       float64           `mapstructure:"latitude"`
	Longitude      float64           `mapstructure:"longitude"`
	ColorScheme    string            `mapstructure:"color_scheme"`
	Headers        map[string]string `mapstructure:"headers"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	Driver      string   `mapstructure:"driver"`
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	Name        string   `mapstructure:"name"`
	User        string   `mapstructure:"user"`
	Password    string   `mapstructure:"password"`
	DSN         string   `mapstructure:"dsn"`
	MaxConns    int      `mapstructure:"max_conns"`
	AutoMigrate bool     `mapstructure:"auto_migrate"`
	SeedTopics  []string `mapstructure:"seed_topics"`
}

// OpsConfig controls the health and metrics HTTP listener.
type OpsConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// SnapshotsConfig selects where anomalous result pages are stored.
type SnapshotsConfig struct {
	Backend   string `mapstructure:"backend"`
	Dir       string `mapstructure:"dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// NotifyConfig holds metadata for new-entry announcements.
type NotifyConfig struct {
	PubSubProject string `mapstructure:"pubsub_project"`
	PubSubTopic   string `mapstructure:"pubsub_topic"`
}

// Driver and backend names.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	SnapshotsNone  = "none"
	SnapshotsLocal = "local"
	SnapshotsGCS   = "gcs"
)

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TOPICSTREAMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scraper.interval_seconds", 60)
	v.SetDefault("scraper.max_pages", 1)
	v.SetDefault("scraper.history_capacity", dedup.DefaultCapacity)
	v.SetDefault("search.base_url", extract.DefaultBaseURL)
	v.SetDefault("search.settle_ms", int(browser.DefaultSettleDelay/time.Millisecond))
	v.SetDefault("search.max_rps", 0.5)
	v.SetDefault("search.burst", 1)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.user_agent", browser.DefaultUserAgent)
	v.SetDefault("browser.viewport_width", browser.DefaultViewportWidth)
	v.SetDefault("browser.viewport_height", browser.DefaultViewportHeight)
	v.SetDefault("browser.locale", browser.DefaultLocale)
	v.SetDefault("browser.timezone", browser.DefaultTimezone)
	v.SetDefault("browser.latitude", browser.DefaultLatitude)
	v.SetDefault("browser.longitude", browser.DefaultLongitude)
	v.SetDefault("browser.color_scheme", browser.DefaultColorScheme)
	v.SetDefault("browser.headers", browser.DefaultHeaders())
	v.SetDefault("db.driver", DriverPostgres)
	v.SetDefault("db.host", "postgres")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "newsdb")
	v.SetDefault("db.user", "newsuser")
	v.SetDefault("db.password", "newspass")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.auto_migrate", false)
	v.SetDefault("db.seed_topics", []string{})
	v.SetDefault("ops.port", 9090)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "")
	v.SetDefault("snapshots.backend", SnapshotsNone)
	v.SetDefault("snapshots.dir", "snapshots")
	v.SetDefault("snapshots.gcs_bucket", "")
	v.SetDefault("snapshots.prefix", "snapshots")
	v.SetDefault("notify.pubsub_project", "")
	v.SetDefault("notify.pubsub_topic", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Scraper.MaxPages < 1 {
		return fmt.Errorf("scraper.max_pages must be >= 1")
	}
	if c.Search.SettleMs < 0 {
		return fmt.Errorf("search.settle_ms must be >= 0")
	}
	if c.Search.MaxRPS < 0 {
		return fmt.Errorf("search.max_rps must be >= 0")
	}
	if u, err := url.Parse(c.Search.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("search.base_url must be an absolute URL")
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("browser viewport must be > 0")
	}
	if c.Browser.Latitude < -90 || c.Browser.Latitude > 90 {
		return fmt.Errorf("browser.latitude must be between -90 and 90")
	}
	if c.Browser.Longitude < -180 || c.Browser.Longitude > 180 {
		return fmt.Errorf("browser.longitude must be between -180 and 180")
	}
	switch c.Browser.ColorScheme {
	case "light", "dark", "no-preference":
	default:
		return fmt.Errorf("browser.color_scheme must be light, dark or no-preference")
	}
	if err := c.DB.validate(); err != nil {
		return err
	}
	if c.Ops.Port < 0 || c.Ops.Port > 65535 {
		return fmt.Errorf("ops.port must be between 0 and 65535")
	}
	switch c.Snapshots.Backend {
	case SnapshotsNone:
	case SnapshotsLocal:
		if strings.TrimSpace(c.Snapshots.Dir) == "" {
			return fmt.Errorf("snapshots.dir must be set for the local backend")
		}
	case SnapshotsGCS:
		if strings.TrimSpace(c.Snapshots.GCSBucket) == "" {
			return fmt.Errorf("snapshots.gcs_bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("snapshots.backend must be none, local or gcs")
	}
	if c.Notify.PubSubTopic != "" && strings.TrimSpace(c.Notify.PubSubProject) == "" {
		return fmt.Errorf("notify.pubsub_project must be set when notify.pubsub_topic is set")
	}
	return nil
}

func (d DBConfig) validate() error {
	switch d.Driver {
	case DriverMemory:
		return nil
	case DriverPostgres:
	default:
		return fmt.Errorf("db.driver must be postgres or memory")
	}
	if d.MaxConns <= 0 {
		return fmt.Errorf("db.max_conns must be > 0")
	}
	if strings.TrimSpace(d.DSN) != "" {
		return nil
	}
	for key, value := range map[string]string{
		"db.host":     d.Host,
		"db.name":     d.Name,
		"db.user":     d.User,
		"db.password": d.Password,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must not be empty", key)
		}
	}
	if d.Port < 1 || d.Port > 65535 {
		return fmt.Errorf("db.port must be between 1 and 65535")
	}
	return nil
}

// ConnString returns the DSN if set, otherwise a postgres URL built from parts.
func (d DBConfig) ConnString() string {
	if dsn := strings.TrimSpace(d.DSN); dsn != "" {
		return dsn
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(strings.TrimSpace(d.User), d.Password),
		Host:   fmt.Sprintf("%s:%d", strings.TrimSpace(d.Host), d.Port),
		Path:   "/" + strings.TrimSpace(d.Name),
	}
	return u.String()
}

// Interval returns the fixed cycle interval.
func (s ScraperConfig) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

// BrowserSettings converts the browser and search sections into a browser.Config.
func (c Config) BrowserSettings() browser.Config {
	headers := make(map[string]string, len(c.Browser.Headers))
	for k, v := range c.Browser.Headers {
		headers[textproto.CanonicalMIMEHeaderKey(k)] = v
	}
	return browser.Config{
		Headless:       c.Browser.Headless,
		ExecPath:       c.Browser.ExecPath,
		UserAgent:      c.Browser.UserAgent,
		ViewportWidth:  c.Browser.ViewportWidth,
		ViewportHeight: c.Browser.ViewportHeight,
		Locale:         c.Browser.Locale,
		Timezone:       c.Browser.Timezone,
		Latitude:       c.Browser.Latitude,
		Longitude:      c.Browser.Longitude,
		ColorScheme:    c.Browser.ColorScheme,
		Headers:        headers,
		SettleDelay:    time.Duration(c.Search.SettleMs) * time.Millisecond,
	}
}

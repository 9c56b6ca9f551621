package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Sync      SyncConfig
	Shopify   ShopifyConfig
	Amazon    AmazonConfig
	Inventory InventoryConfig
	Scheduler SchedulerConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds warehouse database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings for the distributed run lock
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	// SyncToken protects the trigger endpoints; requests must present it
	// in the X-Sync-Token header or the token query parameter
	SyncToken      string
	TrustedProxies []string
}

// SyncConfig holds the incremental sync engine settings
type SyncConfig struct {
	// DefaultWindowDays is the lookback applied when a trigger names no window
	DefaultWindowDays int
	// Channels is the default channel selection: "all" or a comma list
	Channels string
	// RunTimeout bounds a single sync run end to end
	RunTimeout time.Duration
	// LockTTL bounds how long the run lock may be held before it expires
	LockTTL time.Duration
	// SortAfterAppend reorders the sales table by date after each run
	SortAfterAppend bool
	// BackfillChunkDays is the window size used by the backfill command
	BackfillChunkDays int
}

// ShopifyConfig holds Shopify Admin API credentials and fee policy
type ShopifyConfig struct {
	ShopDomain  string // e.g. "acme.myshopify.com"
	AccessToken string
	APIVersion  string
	PageSize    int
	// FeeRate and FeeFixed estimate the payment-processing fee per line:
	// rate times gross plus a fixed amount allocated across the order
	FeeRate  float64
	FeeFixed float64
}

// AmazonConfig holds SP-API credentials and request pacing
type AmazonConfig struct {
	RefreshToken  string
	ClientID      string
	ClientSecret  string
	MarketplaceID string
	Endpoint      string // e.g. "https://sellingpartnerapi-na.amazon.com"
	TokenURL      string
	Region        string // SigV4 signing region, e.g. "us-east-1"
	// AccessKeyID and SecretAccessKey enable SigV4 request signing; when
	// empty the adapter relies on the LWA bearer token alone
	AccessKeyID     string
	SecretAccessKey string
	// PageDelay is the pause between pages of the finances and inventory
	// APIs, which carry stricter rate limits than the orders API
	PageDelay time.Duration
	PageSize  int
	// ItemConcurrency caps concurrent per-order item and finances fetches
	ItemConcurrency int
}

// InventoryConfig holds replenishment-signal settings
type InventoryConfig struct {
	VelocityLookbackDays int
	LeadTimeDays         int
}

// SchedulerConfig holds the periodic sync trigger configuration
type SchedulerConfig struct {
	Enabled  bool
	Interval time.Duration
	// Jitter delays the first tick by a random fraction of the interval
	Jitter bool
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string
	Insecure          bool // Use insecure (non-TLS) connection (development only)
	DBTraceEnabled    bool // Enable database query tracing (otelgorm)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with ETL_ prefix (e.g., ETL_SHOPIFY_ACCESS_TOKEN)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("ETL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			SyncToken:      v.GetString("http.sync_token"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Sync: SyncConfig{
			DefaultWindowDays: v.GetInt("sync.default_window_days"),
			Channels:          v.GetString("sync.channels"),
			RunTimeout:        v.GetDuration("sync.run_timeout"),
			LockTTL:           v.GetDuration("sync.lock_ttl"),
			SortAfterAppend:   v.GetBool("sync.sort_after_append"),
			BackfillChunkDays: v.GetInt("sync.backfill_chunk_days"),
		},
		Shopify: ShopifyConfig{
			ShopDomain:  v.GetString("shopify.shop_domain"),
			AccessToken: v.GetString("shopify.access_token"),
			APIVersion:  v.GetString("shopify.api_version"),
			PageSize:    v.GetInt("shopify.page_size"),
			FeeRate:     v.GetFloat64("shopify.fee_rate"),
			FeeFixed:    v.GetFloat64("shopify.fee_fixed"),
		},
		Amazon: AmazonConfig{
			RefreshToken:    v.GetString("amazon.refresh_token"),
			ClientID:        v.GetString("amazon.client_id"),
			ClientSecret:    v.GetString("amazon.client_secret"),
			MarketplaceID:   v.GetString("amazon.marketplace_id"),
			Endpoint:        v.GetString("amazon.endpoint"),
			TokenURL:        v.GetString("amazon.token_url"),
			Region:          v.GetString("amazon.region"),
			AccessKeyID:     v.GetString("amazon.access_key_id"),
			SecretAccessKey: v.GetString("amazon.secret_access_key"),
			PageDelay:       v.GetDuration("amazon.page_delay"),
			PageSize:        v.GetInt("amazon.page_size"),
			ItemConcurrency: v.GetInt("amazon.item_concurrency"),
		},
		Inventory: InventoryConfig{
			VelocityLookbackDays: v.GetInt("inventory.velocity_lookback_days"),
			LeadTimeDays:         v.GetInt("inventory.lead_time_days"),
		},
		Scheduler: SchedulerConfig{
			Enabled:  v.GetBool("scheduler.enabled"),
			Interval: v.GetDuration("scheduler.interval"),
			Jitter:   v.GetBool("scheduler.jitter"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "salespipe-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "salespipe"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// Sync runs are triggered synchronously from the HTTP handler and
		// can take minutes on large windows
		cfg.HTTP.WriteTimeout = 10 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.Sync.DefaultWindowDays == 0 {
		cfg.Sync.DefaultWindowDays = 30
	}
	if cfg.Sync.Channels == "" {
		cfg.Sync.Channels = "all"
	}
	if cfg.Sync.RunTimeout == 0 {
		cfg.Sync.RunTimeout = 15 * time.Minute
	}
	if cfg.Sync.LockTTL == 0 {
		cfg.Sync.LockTTL = 20 * time.Minute
	}
	if cfg.Sync.BackfillChunkDays == 0 {
		cfg.Sync.BackfillChunkDays = 90
	}
	if cfg.Shopify.APIVersion == "" {
		cfg.Shopify.APIVersion = "2024-01"
	}
	if cfg.Shopify.PageSize == 0 {
		cfg.Shopify.PageSize = 250
	}
	if cfg.Shopify.FeeRate == 0 {
		cfg.Shopify.FeeRate = 0.029
	}
	if cfg.Shopify.FeeFixed == 0 {
		cfg.Shopify.FeeFixed = 0.30
	}
	if cfg.Amazon.MarketplaceID == "" {
		cfg.Amazon.MarketplaceID = "ATVPDKIKX0DER" // US marketplace
	}
	if cfg.Amazon.Endpoint == "" {
		cfg.Amazon.Endpoint = "https://sellingpartnerapi-na.amazon.com"
	}
	if cfg.Amazon.TokenURL == "" {
		cfg.Amazon.TokenURL = "https://api.amazon.com/auth/o2/token"
	}
	if cfg.Amazon.Region == "" {
		cfg.Amazon.Region = "us-east-1"
	}
	if cfg.Amazon.PageDelay == 0 {
		cfg.Amazon.PageDelay = 500 * time.Millisecond
	}
	if cfg.Amazon.ItemConcurrency == 0 {
		cfg.Amazon.ItemConcurrency = 1
	}
	if cfg.Amazon.PageSize == 0 {
		cfg.Amazon.PageSize = 100
	}
	if cfg.Inventory.VelocityLookbackDays == 0 {
		cfg.Inventory.VelocityLookbackDays = 28
	}
	if cfg.Inventory.LeadTimeDays == 0 {
		cfg.Inventory.LeadTimeDays = 14
	}
	if cfg.Scheduler.Interval == 0 {
		cfg.Scheduler.Interval = 6 * time.Hour
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "salespipe-backend"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Sync.DefaultWindowDays < 0 {
		return fmt.Errorf("sync.default_window_days cannot be negative")
	}
	if c.Shopify.FeeRate < 0 || c.Shopify.FeeRate >= 1 {
		return fmt.Errorf("shopify.fee_rate must be in [0,1), got %f", c.Shopify.FeeRate)
	}

	if c.App.Env == "production" {
		if c.HTTP.SyncToken == "" {
			return fmt.Errorf("http.sync_token is required in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// Configured reports whether Shopify credentials are present
func (s *ShopifyConfig) Configured() bool {
	return s.ShopDomain != "" && s.AccessToken != ""
}

// Validate returns an error naming every missing Shopify credential
func (s *ShopifyConfig) Validate() error {
	var missing []string
	if s.ShopDomain == "" {
		missing = append(missing, "shopify.shop_domain")
	}
	if s.AccessToken == "" {
		missing = append(missing, "shopify.access_token")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing Shopify configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Configured reports whether Amazon SP-API credentials are present
func (a *AmazonConfig) Configured() bool {
	return a.RefreshToken != "" && a.ClientID != "" && a.ClientSecret != ""
}

// Validate returns an error naming every missing Amazon credential
func (a *AmazonConfig) Validate() error {
	var missing []string
	if a.RefreshToken == "" {
		missing = append(missing, "amazon.refresh_token")
	}
	if a.ClientID == "" {
		missing = append(missing, "amazon.client_id")
	}
	if a.ClientSecret == "" {
		missing = append(missing, "amazon.client_secret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing Amazon configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// SignsRequests reports whether SigV4 signing credentials are configured
func (a *AmazonConfig) SignsRequests() bool {
	return a.AccessKeyID != "" && a.SecretAccessKey != ""
}

// Addr returns the Redis address in host:port form
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

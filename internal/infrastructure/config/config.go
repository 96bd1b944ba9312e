package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Log        LogConfig
	Event      EventConfig
	HTTP       HTTPConfig
	Scheduler  SchedulerConfig
	Escrow     EscrowConfig
	Commission CommissionConfig
	Payout     PayoutConfig
	Settlement SettlementConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
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

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// EventConfig holds event processing configuration
type EventConfig struct {
	BufferSize           int
	HandlerTimeout       time.Duration
	IdempotencyRetention time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
	// RateLimitRequests caps requests per client IP within RateLimitWindow.
	// Zero disables rate limiting.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// SchedulerConfig holds the background job schedules
type SchedulerConfig struct {
	Enabled bool
	// PayoutRunHour/Minute is the local time of the daily payout run.
	PayoutRunHour   int
	PayoutRunMinute int
	// RetryInterval is how often failed payouts are re-attempted.
	RetryInterval time.Duration
	// StalledAfter is how long a payout may sit in processing before the
	// retry sweep fails it as an interrupted transfer.
	StalledAfter time.Duration
	// SettlementRunHour is the hour of the monthly settlement run on the
	// first day of each month.
	SettlementRunHour int
	CheckInterval     time.Duration
	JobTimeout        time.Duration
}

// EscrowConfig holds escrow ledger settings
type EscrowConfig struct {
	// HoldPeriodDays is the number of days after delivery before funds
	// become eligible for payout.
	HoldPeriodDays int
}

// CommissionConfig holds commission calculation settings
type CommissionConfig struct {
	// DefaultRate is the platform-wide fallback percentage used when no
	// rule matches a shipment.
	DefaultRate decimal.Decimal
}

// PayoutConfig holds payout scheduling settings
type PayoutConfig struct {
	Currency      string
	MinimumAmount decimal.Decimal
	MaxRetries    int
	RetryDelay    time.Duration
	Frequency     string // WEEKLY, BIWEEKLY, MONTHLY
	Weekday       string // payout day for weekly frequency
}

// SettlementConfig holds settlement generation settings
type SettlementConfig struct {
	Currency string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with MERCATO_ prefix (e.g., MERCATO_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("MERCATO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("scheduler.enabled", true)

	// Build config struct
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
		Event: EventConfig{
			BufferSize:           v.GetInt("event.buffer_size"),
			HandlerTimeout:       v.GetDuration("event.handler_timeout"),
			IdempotencyRetention: v.GetDuration("event.idempotency_retention"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Scheduler: SchedulerConfig{
			Enabled:           v.GetBool("scheduler.enabled"),
			PayoutRunHour:     v.GetInt("scheduler.payout_run_hour"),
			PayoutRunMinute:   v.GetInt("scheduler.payout_run_minute"),
			RetryInterval:     v.GetDuration("scheduler.retry_interval"),
			StalledAfter:      v.GetDuration("scheduler.stalled_after"),
			SettlementRunHour: v.GetInt("scheduler.settlement_run_hour"),
			CheckInterval:     v.GetDuration("scheduler.check_interval"),
			JobTimeout:        v.GetDuration("scheduler.job_timeout"),
		},
		Escrow: EscrowConfig{
			HoldPeriodDays: v.GetInt("escrow.hold_period_days"),
		},
		Commission: CommissionConfig{
			DefaultRate: decimal.NewFromFloat(v.GetFloat64("commission.default_rate")),
		},
		Payout: PayoutConfig{
			Currency:      v.GetString("payout.currency"),
			MinimumAmount: decimal.NewFromFloat(v.GetFloat64("payout.minimum_amount")),
			MaxRetries:    v.GetInt("payout.max_retries"),
			RetryDelay:    v.GetDuration("payout.retry_delay"),
			Frequency:     v.GetString("payout.frequency"),
			Weekday:       v.GetString("payout.weekday"),
		},
		Settlement: SettlementConfig{
			Currency: v.GetString("settlement.currency"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "mercato-funds"
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
		cfg.Database.DBName = "mercato"
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
	if cfg.Event.BufferSize == 0 {
		cfg.Event.BufferSize = 256
	}
	if cfg.Event.HandlerTimeout == 0 {
		cfg.Event.HandlerTimeout = 30 * time.Second
	}
	if cfg.Event.IdempotencyRetention == 0 {
		cfg.Event.IdempotencyRetention = 72 * time.Hour
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.RateLimitRequests > 0 && cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.Scheduler.PayoutRunHour == 0 {
		cfg.Scheduler.PayoutRunHour = 6
	}
	if cfg.Scheduler.RetryInterval == 0 {
		cfg.Scheduler.RetryInterval = time.Hour
	}
	if cfg.Scheduler.StalledAfter == 0 {
		cfg.Scheduler.StalledAfter = 30 * time.Minute
	}
	if cfg.Scheduler.SettlementRunHour == 0 {
		// after the morning payout run
		cfg.Scheduler.SettlementRunHour = 7
	}
	if cfg.Scheduler.CheckInterval == 0 {
		cfg.Scheduler.CheckInterval = time.Minute
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 30 * time.Minute
	}
	if cfg.Escrow.HoldPeriodDays == 0 {
		cfg.Escrow.HoldPeriodDays = 7
	}
	if cfg.Commission.DefaultRate.IsZero() {
		cfg.Commission.DefaultRate = decimal.NewFromInt(10)
	}
	if cfg.Payout.Currency == "" {
		cfg.Payout.Currency = "EUR"
	}
	if cfg.Payout.MinimumAmount.IsZero() {
		cfg.Payout.MinimumAmount = decimal.NewFromInt(25)
	}
	if cfg.Payout.MaxRetries == 0 {
		cfg.Payout.MaxRetries = 3
	}
	if cfg.Payout.RetryDelay == 0 {
		cfg.Payout.RetryDelay = 4 * time.Hour
	}
	if cfg.Payout.Frequency == "" {
		cfg.Payout.Frequency = "WEEKLY"
	}
	if cfg.Payout.Weekday == "" {
		cfg.Payout.Weekday = "Friday"
	}
	if cfg.Settlement.Currency == "" {
		cfg.Settlement.Currency = cfg.Payout.Currency
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	// Validate connection pool settings
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

	if c.Escrow.HoldPeriodDays < 0 {
		return fmt.Errorf("escrow.hold_period_days cannot be negative")
	}
	if c.Commission.DefaultRate.IsNegative() || c.Commission.DefaultRate.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("commission.default_rate must be between 0 and 100")
	}
	if c.Payout.MinimumAmount.IsNegative() {
		return fmt.Errorf("payout.minimum_amount cannot be negative")
	}
	switch strings.ToUpper(c.Payout.Frequency) {
	case "WEEKLY", "BIWEEKLY", "MONTHLY":
	default:
		return fmt.Errorf("payout.frequency must be WEEKLY, BIWEEKLY or MONTHLY, got %q", c.Payout.Frequency)
	}
	if _, err := c.Payout.PayoutWeekday(); err != nil {
		return err
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		// CORS must not use wildcard with credentials
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}

// PayoutWeekday resolves the configured weekday name
func (p *PayoutConfig) PayoutWeekday() (time.Weekday, error) {
	switch strings.ToLower(p.Weekday) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	}
	return time.Sunday, fmt.Errorf("payout.weekday %q is not a valid weekday name", p.Weekday)
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

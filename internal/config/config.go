package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Store drivers.
const (
	DriverMemory  = "memory"
	DriverMongoDB = "mongodb"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Store     StoreConfig
	MongoDB   MongoDBConfig
	Lock      LockConfig
	Ledger    LedgerConfig
	Scheduler SchedulerConfig
	Payments  PaymentsConfig
	WhatsApp  WhatsAppConfig
	Sheets    SheetsConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// LogConfig holds the zap level name.
type LogConfig struct {
	Level string
}

// StoreConfig selects the persistence driver.
type StoreConfig struct {
	Driver string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// LockConfig configures the per-receipt lock. An empty RedisAddr keeps the
// lock in-process.
type LockConfig struct {
	RedisAddr   string
	WaitTimeout time.Duration
	TTL         time.Duration
}

// LedgerConfig holds the money policy of the advance ledger.
type LedgerConfig struct {
	MaxLTV               decimal.Decimal
	DefaultPricePerLiter decimal.Decimal
	PlatformEntityID     string
}

// SchedulerConfig holds cron expressions for background jobs.
type SchedulerConfig struct {
	SweepCronSchedule        string
	SLACronSchedule          string
	PriceRefreshCronSchedule string
	Timezone                 string
}

// PaymentsConfig holds the mobile-money webhook secret.
type PaymentsConfig struct {
	WebhookSecret string
}

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API.
// Notifications are disabled when AccessToken is empty.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
	APIVersion    string
}

// Enabled reports whether notifications can be sent.
func (c WhatsAppConfig) Enabled() bool {
	return c.AccessToken != "" && c.PhoneNumberID != ""
}

// Location resolves Timezone.
func (c SchedulerConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return nil, errors.New("TIMEZONE must be provided")
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}
	return loc, nil
}

// SheetsConfig contains configuration required to interact with Google Sheets.
// Price refresh and SLA export are disabled when SpreadsheetID is empty.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	PricesRange     string
	SLAExportRange  string
}

// Enabled reports whether a spreadsheet is configured.
func (c SheetsConfig) Enabled() bool {
	return c.CredentialsPath != "" && c.SpreadsheetID != ""
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	waitTimeout, err := getDuration("LOCK_WAIT_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	ttl, err := getDuration("LOCK_TTL", "30s")
	if err != nil {
		return nil, err
	}
	maxLTV, err := getDecimal("MAX_LTV", "0.7")
	if err != nil {
		return nil, err
	}
	defaultPrice, err := getDecimal("DEFAULT_PRICE_XOF_PER_LITER", "500")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getenvWithDefault("STORE_DRIVER", DriverMemory)),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "dairy_dwr"),
		},
		Lock: LockConfig{
			RedisAddr:   os.Getenv("REDIS_ADDR"),
			WaitTimeout: waitTimeout,
			TTL:         ttl,
		},
		Ledger: LedgerConfig{
			MaxLTV:               maxLTV,
			DefaultPricePerLiter: defaultPrice,
			PlatformEntityID:     getenvWithDefault("PLATFORM_ENTITY_ID", "E-PLAT-001"),
		},
		Scheduler: SchedulerConfig{
			SweepCronSchedule:        getenvWithDefault("SWEEP_CRON_SCHEDULE", "*/15 * * * *"),
			SLACronSchedule:          getenvWithDefault("SLA_CRON_SCHEDULE", "0 2 1 * *"),
			PriceRefreshCronSchedule: getenvWithDefault("PRICE_REFRESH_CRON_SCHEDULE", "0 5 * * *"),
			Timezone:                 getenvWithDefault("TIMEZONE", "Africa/Bamako"),
		},
		Payments: PaymentsConfig{
			WebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
			PricesRange:     getenvWithDefault("SHEETS_PRICES_RANGE", "ReferencePrices!A:C"),
			SLAExportRange:  getenvWithDefault("SHEETS_SLA_RANGE", "SLA!A:I"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverMongoDB:
		if c.MongoDB.URI == "" {
			return errors.New("MONGODB_URI must be provided when STORE_DRIVER=mongodb")
		}
		if c.MongoDB.DBName == "" {
			return errors.New("MONGODB_DB_NAME must not be empty")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverMemory, DriverMongoDB, c.Store.Driver)
	}

	if c.Lock.WaitTimeout <= 0 {
		return errors.New("LOCK_WAIT_TIMEOUT must be positive")
	}
	if c.Lock.RedisAddr != "" && c.Lock.TTL <= c.Lock.WaitTimeout {
		return errors.New("LOCK_TTL must exceed LOCK_WAIT_TIMEOUT")
	}

	if !c.Ledger.MaxLTV.IsPositive() || c.Ledger.MaxLTV.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return errors.New("MAX_LTV must be in (0,1)")
	}
	if !c.Ledger.DefaultPricePerLiter.IsPositive() {
		return errors.New("DEFAULT_PRICE_XOF_PER_LITER must be positive")
	}
	if c.Ledger.PlatformEntityID == "" {
		return errors.New("PLATFORM_ENTITY_ID must not be empty")
	}

	if c.Scheduler.SweepCronSchedule == "" {
		return errors.New("SWEEP_CRON_SCHEDULE must be provided")
	}
	if c.Scheduler.SLACronSchedule == "" {
		return errors.New("SLA_CRON_SCHEDULE must be provided")
	}
	if _, err := c.Scheduler.Location(); err != nil {
		return err
	}

	if c.Payments.WebhookSecret == "" {
		return errors.New("PAYMENT_WEBHOOK_SECRET must be provided")
	}

	if c.WhatsApp.AccessToken != "" {
		if c.WhatsApp.BaseURL == "" {
			return errors.New("WHATSAPP_BASE_URL must not be empty")
		}
		if c.WhatsApp.APIVersion == "" {
			return errors.New("WHATSAPP_API_VERSION must not be empty")
		}
	}

	if c.Sheets.SpreadsheetID != "" && c.Sheets.CredentialsPath == "" {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided with GOOGLE_SHEET_DATABASE_ID")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key, fallback string) (time.Duration, error) {
	raw := getenvWithDefault(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, raw, err)
	}
	return d, nil
}

func getDecimal(key, fallback string) (decimal.Decimal, error) {
	raw := getenvWithDefault(key, fallback)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid number %q: %w", key, raw, err)
	}
	return d, nil
}

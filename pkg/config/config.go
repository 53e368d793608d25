package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"

	"github.com/angelmondragon/paybridge/pkg/env"
)

const (
	EnvPrefix = "PAYBRIDGE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	StoreDriverPostgREST = "postgrest"
	StoreDriverPostgres  = "postgres"
)

const (
	EnvAppEnv                    = "PAYBRIDGE_APP_ENV"
	EnvPort                      = "PAYBRIDGE_APP_PORT"
	EnvLogLevel                  = "PAYBRIDGE_LOG_LEVEL"
	EnvStripeAPIKey              = "PAYBRIDGE_STRIPE_API_KEY"
	EnvStripeSecret              = "PAYBRIDGE_STRIPE_SECRET"
	EnvStripeEnv                 = "PAYBRIDGE_STRIPE_ENV"
	EnvStripeCurrency            = "PAYBRIDGE_STRIPE_CURRENCY"
	EnvStripeDefaultMethod       = "PAYBRIDGE_STRIPE_DEFAULT_PAYMENT_METHOD"
	EnvStoreDriver               = "PAYBRIDGE_STORE_DRIVER"
	EnvStoreURL                  = "PAYBRIDGE_STORE_URL"
	EnvStoreServiceKey           = "PAYBRIDGE_STORE_SERVICE_KEY"
	EnvDBDSN                     = "PAYBRIDGE_DB_DSN"
	EnvWebhookStoreFailureStatus = "PAYBRIDGE_WEBHOOK_STORE_FAILURE_STATUS"
	EnvCORSAllowedOrigins        = "PAYBRIDGE_CORS_ALLOWED_ORIGINS"
)

// Names used by the edge-function deployment this service replaces. They are
// only consulted when the PAYBRIDGE_ variable is unset.
const (
	LegacyEnvStripeAPIKey    = "STRIPE_API_KEY_v2"
	LegacyEnvStripeSecret    = "STRIPE_WEBHOOK_SIGNING_SECRET_v2"
	LegacyEnvStoreURL        = "FN_SUPABASE_URL_v2"
	LegacyEnvStoreServiceKey = "FN_SUPABASE_SECRET_KEY_v2"
)

type Config struct {
	App     AppConfig
	Stripe  StripeConfig
	Store   StoreConfig
	DB      DBConfig
	Webhook WebhookConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyLegacyFallbacks()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env             string        `envconfig:"PAYBRIDGE_APP_ENV" required:"true"`
	Port            string        `envconfig:"PAYBRIDGE_APP_PORT" default:"8080"`
	LogLevel        string        `envconfig:"PAYBRIDGE_LOG_LEVEL" default:"info"`
	LogWarnStack    bool          `envconfig:"PAYBRIDGE_LOG_WARN_STACK" default:"false"`
	ShutdownTimeout time.Duration `envconfig:"PAYBRIDGE_SHUTDOWN_TIMEOUT" default:"15s"`
	// CORSAllowedOrigins is a comma-separated list; empty disables CORS.
	CORSAllowedOrigins []string `envconfig:"PAYBRIDGE_CORS_ALLOWED_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type StripeConfig struct {
	APIKey                   string `envconfig:"PAYBRIDGE_STRIPE_API_KEY" validate:"required"`
	Secret                   string `envconfig:"PAYBRIDGE_STRIPE_SECRET" validate:"required"`
	Env                      string `envconfig:"PAYBRIDGE_STRIPE_ENV" default:"test"`
	Currency                 string `envconfig:"PAYBRIDGE_STRIPE_CURRENCY" default:"myr" validate:"len=3,lowercase"`
	DefaultPaymentMethod     string `envconfig:"PAYBRIDGE_STRIPE_DEFAULT_PAYMENT_METHOD" default:"fpx" validate:"required"`
	IgnoreAPIVersionMismatch bool   `envconfig:"PAYBRIDGE_STRIPE_IGNORE_API_VERSION_MISMATCH" default:"true"`
	// APIBaseURL points the SDK at another backend such as stripe-mock.
	APIBaseURL string `envconfig:"PAYBRIDGE_STRIPE_API_BASE_URL" validate:"omitempty,url"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// StoreConfig selects how transaction status RPCs reach the datastore.
type StoreConfig struct {
	Driver     string        `envconfig:"PAYBRIDGE_STORE_DRIVER" default:"postgrest" validate:"oneof=postgrest postgres"`
	URL        string        `envconfig:"PAYBRIDGE_STORE_URL" validate:"required_if=Driver postgrest,omitempty,url"`
	ServiceKey string        `envconfig:"PAYBRIDGE_STORE_SERVICE_KEY" validate:"required_if=Driver postgrest"`
	Timeout    time.Duration `envconfig:"PAYBRIDGE_STORE_TIMEOUT" default:"0s"`
}

type DBConfig struct {
	DSN string `envconfig:"PAYBRIDGE_DB_DSN"`

	MaxOpenConns    int           `envconfig:"PAYBRIDGE_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"PAYBRIDGE_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"PAYBRIDGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PAYBRIDGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// AutoMigrate applies embedded migrations on boot in dev.
	AutoMigrate bool `envconfig:"PAYBRIDGE_DB_AUTO_MIGRATE" default:"false"`
}

// WebhookConfig controls how the webhook receiver reports failures.
// StoreFailureStatus is the HTTP status returned when a verified event could
// not be applied to the transaction store. 500 reports the failure honestly;
// 400 matches the legacy edge function. Stripe redelivers on either.
type WebhookConfig struct {
	StoreFailureStatus int `envconfig:"PAYBRIDGE_WEBHOOK_STORE_FAILURE_STATUS" default:"500" validate:"oneof=400 500"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if tag := f.Tag.Get("envconfig"); tag != "" {
			return tag
		}
		return f.Name
	})
	return v
}

// Validate checks cross-field rules that envconfig tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			fields := make([]string, 0, len(errs))
			for _, fe := range errs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Store.Driver == StoreDriverPostgres && c.DB.DSN == "" {
		return fmt.Errorf("%s is required when %s=%s", EnvDBDSN, EnvStoreDriver, StoreDriverPostgres)
	}
	return nil
}

// LoadDB reads only the app and database sections, for tools that never
// touch the processor.
func LoadDB() (*Config, error) {
	var cfg struct {
		App AppConfig
		DB  DBConfig
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.DB.DSN == "" {
		return nil, fmt.Errorf("%s is required", EnvDBDSN)
	}
	return &Config{App: cfg.App, DB: cfg.DB}, nil
}

func (c *Config) applyLegacyFallbacks() {
	if c.Stripe.APIKey == "" {
		c.Stripe.APIKey = env.Get(LegacyEnvStripeAPIKey, "")
	}
	if c.Stripe.Secret == "" {
		c.Stripe.Secret = env.Get(LegacyEnvStripeSecret, "")
	}
	if c.Store.URL == "" {
		c.Store.URL = env.Get(LegacyEnvStoreURL, "")
	}
	if c.Store.ServiceKey == "" {
		c.Store.ServiceKey = env.Get(LegacyEnvStoreServiceKey, "")
	}
}

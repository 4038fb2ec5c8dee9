package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix  = ""
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Services ServicesConfig
	Wallet   WalletConfig
	Pricing  PricingConfig
	Shipping ShippingConfig
	Sweep    SweepConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if _, err := cfg.Pricing.Rate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" default:"dev"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"sqlite"`
	// For sqlite this is the file path; for postgres a full DSN.
	DSN string `envconfig:"STOREFRONT_DB_DSN" default:"storefront.db"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" default:"redis://localhost:6379/0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// ServicesConfig points at the platform backend this storefront talks to.
type ServicesConfig struct {
	OrderBaseURL    string        `envconfig:"STOREFRONT_ORDER_SERVICE_URL" default:"http://localhost:8000/api/orders"`
	CouponBaseURL   string        `envconfig:"STOREFRONT_COUPON_SERVICE_URL" default:"http://localhost:8000/api/coupons"`
	PaymentBaseURL  string        `envconfig:"STOREFRONT_PAYMENT_SERVICE_URL" default:"http://localhost:8000/api/payments"`
	ShippingBaseURL string        `envconfig:"STOREFRONT_SHIPPING_SERVICE_URL" default:"http://localhost:8000/api/shipping"`
	CatalogBaseURL  string        `envconfig:"STOREFRONT_CATALOG_SERVICE_URL" default:"http://localhost:8000/api/products"`
	Timeout         time.Duration `envconfig:"STOREFRONT_SERVICES_TIMEOUT" default:"15s"`
}

// WalletConfig carries the redirect payment provider settings. The defaults
// match the provider's public sandbox.
type WalletConfig struct {
	SecretKey   string `envconfig:"STOREFRONT_WALLET_SECRET_KEY" default:"8gBm/:&EnhH.1/q"`
	ProductCode string `envconfig:"STOREFRONT_WALLET_PRODUCT_CODE" default:"EPAYTEST"`
	FormURL     string `envconfig:"STOREFRONT_WALLET_FORM_URL" default:"https://rc-epay.esewa.com.np/api/epay/main/v2/form"`
	SuccessURL  string `envconfig:"STOREFRONT_WALLET_SUCCESS_URL" default:"http://localhost:8080/api/payments/callback/success"`
	FailureURL  string `envconfig:"STOREFRONT_WALLET_FAILURE_URL" default:"http://localhost:8080/api/payments/callback/failure"`
}

type PricingConfig struct {
	TaxRate string `envconfig:"STOREFRONT_TAX_RATE" default:"0.13"`
}

// Rate parses the configured tax rate once, failing fast on bad config.
func (p PricingConfig) Rate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(p.TaxRate))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing tax rate %q: %w", p.TaxRate, err)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("tax rate must be non-negative, got %s", rate)
	}
	return rate, nil
}

type ShippingConfig struct {
	HomeCountry string `envconfig:"STOREFRONT_SHIPPING_HOME_COUNTRY" default:"Nepal"`
}

type SweepConfig struct {
	PendingTTL time.Duration `envconfig:"STOREFRONT_SWEEP_PENDING_TTL" default:"10m"`
	Interval   time.Duration `envconfig:"STOREFRONT_SWEEP_INTERVAL" default:"5m"`
	LockTTL    time.Duration `envconfig:"STOREFRONT_SWEEP_LOCK_TTL" default:"4m"`
}

package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"

	"github.com/xenking/kart-checkout/internal/domain/catalog"
	"github.com/xenking/kart-checkout/internal/domain/checkout"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (CHECKOUT_ prefix), a .env file, flags, or YAML
// config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (CHECKOUT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Stripe      StripeConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// StripeConfig holds one Stripe account per currency and the redirect URLs
// shown after payment.
type StripeConfig struct {
	SecretKeyUSD string `env:"SECRET_KEY_USD" usage:"Stripe secret key for USD payments"`
	SecretKeyEUR string `env:"SECRET_KEY_EUR" usage:"Stripe secret key for EUR payments"`
	PublicKeyUSD string `env:"PUBLIC_KEY_USD" usage:"Stripe publishable key for USD payments"`
	PublicKeyEUR string `env:"PUBLIC_KEY_EUR" usage:"Stripe publishable key for EUR payments"`
	SuccessURL   string `default:"http://localhost:8080/success/" usage:"Redirect after a successful payment"`
	CancelURL    string `default:"http://localhost:8080/cancel/" usage:"Redirect after a cancelled payment"`
	APIURL       string `usage:"Stripe API base URL override, e.g. stripe-mock"`
}

// RateLimitConfig limits checkout requests per client.
type RateLimitConfig struct {
	Max    int           `default:"30" usage:"Max checkout requests per window, 0 disables"`
	Window time.Duration `default:"1m" usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// Credentials returns the configured Stripe keys by currency. Currencies
// without any key are left out.
func (c StripeConfig) Credentials() checkout.Credentials {
	creds := make(checkout.Credentials, 2)
	for cur, keys := range map[catalog.Currency]checkout.Keys{
		catalog.USD: {Secret: c.SecretKeyUSD, Public: c.PublicKeyUSD},
		catalog.EUR: {Secret: c.SecretKeyEUR, Public: c.PublicKeyEUR},
	} {
		if keys.Secret != "" || keys.Public != "" {
			creds[cur] = keys
		}
	}
	return creds
}

// LoadConfig loads .env, then configuration from environment variables, YAML
// config files and flags, and applies platform defaults.
func LoadConfig() (*Config, error) {
	// A missing .env is fine; variables already set take precedence.
	_ = godotenv.Load()

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CHECKOUT",
		Files:     []string{"config.yaml", "/etc/checkout/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set CHECKOUT_DATABASE_URL or DATABASE_URL")
	}
	if c.Stripe.SuccessURL == "" || c.Stripe.CancelURL == "" {
		return errors.New("stripe success and cancel URLs are required")
	}
	return nil
}

// applyPlatformDefaults maps the conventional unprefixed variables
// (DATABASE_URL, PORT, STRIPE_SECRET_KEY_USD and friends) onto the config
// when the prefixed ones are not set.
func (c *Config) applyPlatformDefaults() {
	fallback := func(dst *string, env string) {
		if *dst != "" {
			return
		}
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	fallback(&c.DatabaseURL, "DATABASE_URL")
	fallback(&c.Stripe.SecretKeyUSD, "STRIPE_SECRET_KEY_USD")
	fallback(&c.Stripe.SecretKeyEUR, "STRIPE_SECRET_KEY_EUR")
	fallback(&c.Stripe.PublicKeyUSD, "STRIPE_PUBLIC_KEY_USD")
	fallback(&c.Stripe.PublicKeyEUR, "STRIPE_PUBLIC_KEY_EUR")

	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

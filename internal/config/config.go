package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Simplici0/decorquote/internal/pricing"
)

// Config holds the full application configuration.
type Config struct {
	DB      DBConfig      `yaml:"db" mapstructure:"db"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Auth    AuthConfig    `yaml:"auth" mapstructure:"auth"`
	Pricing PricingConfig `yaml:"pricing" mapstructure:"pricing"`
	Catalog CatalogConfig `yaml:"catalog" mapstructure:"catalog"`
	Account AccountConfig `yaml:"account" mapstructure:"account"`
	Seed    SeedConfig    `yaml:"seed" mapstructure:"seed"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// DBConfig configures the SQLite database.
type DBConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int             `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string        `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	AuthRateLimit  RateLimitConfig `yaml:"auth_rate_limit" mapstructure:"auth_rate_limit"`
	// TrustProxy takes the client address from X-Real-IP / X-Forwarded-For.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxy bool `yaml:"trust_proxy" mapstructure:"trust_proxy"`
}

// RateLimitConfig allows Requests per Window for each client address.
type RateLimitConfig struct {
	Requests int           `yaml:"requests" mapstructure:"requests"`
	Window   time.Duration `yaml:"window" mapstructure:"window"`
}

// AuthConfig holds the secret used to sign API tokens and their lifetime.
type AuthConfig struct {
	SessionSecret string        `yaml:"session_secret" mapstructure:"session_secret"`
	TokenTTL      time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
}

// PricingConfig holds the business constants of the calculator.
type PricingConfig struct {
	HemAllowanceM        float64 `yaml:"hem_allowance_m" mapstructure:"hem_allowance_m"`
	DefaultMarkupPercent float64 `yaml:"default_markup_percent" mapstructure:"default_markup_percent"`
	TallHeightM          float64 `yaml:"tall_height_m" mapstructure:"tall_height_m"`
}

// CatalogConfig configures the base pricing data cache.
type CatalogConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// AccountConfig configures store registration.
type AccountConfig struct {
	TrialDays int `yaml:"trial_days" mapstructure:"trial_days"`
}

// SeedConfig configures the startup seed.
type SeedConfig struct {
	DemoStore bool `yaml:"demo_store" mapstructure:"demo_store"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultAllowedOrigins are the front-end origins accepted by CORS.
var DefaultAllowedOrigins = []string{
	"https://sisdecor.com.br",
	"https://gustavocampos1999.github.io",
	"http://127.0.0.1:5500",
	"http://localhost:5500",
}

// Load reads configuration from decorquote.yaml (optional) and DECOR_* environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("decorquote")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("DECOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("db.path", "./dev.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", DefaultAllowedOrigins)
	v.SetDefault("server.rate_limit.requests", 100)
	v.SetDefault("server.rate_limit.window", 15*time.Minute)
	v.SetDefault("server.auth_rate_limit.requests", 10)
	v.SetDefault("server.auth_rate_limit.window", 15*time.Minute)
	v.SetDefault("server.trust_proxy", false)
	v.SetDefault("auth.session_secret", "")
	v.SetDefault("auth.token_ttl", 7*24*time.Hour)
	v.SetDefault("pricing.hem_allowance_m", pricing.DefaultHemAllowance)
	v.SetDefault("pricing.default_markup_percent", pricing.DefaultMarkupPercent)
	v.SetDefault("pricing.tall_height_m", pricing.DefaultTallHeight)
	v.SetDefault("catalog.cache_ttl", 5*time.Minute)
	v.SetDefault("account.trial_days", 30)
	v.SetDefault("seed.demo_store", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// PricingConfig returns the calculator configuration.
func (c *Config) PricingConfig() pricing.Config {
	return pricing.Config{
		HemAllowance:         c.Pricing.HemAllowanceM,
		TallHeight:           c.Pricing.TallHeightM,
		DefaultMarkupPercent: c.Pricing.DefaultMarkupPercent,
	}
}

// Warnings lists settings that are missing but not fatal.
func (c *Config) Warnings() []string {
	var out []string
	if c.Auth.SessionSecret == "" {
		out = append(out, "DECOR_AUTH_SESSION_SECRET is not set; API tokens use an insecure development secret")
	}
	if len(c.Server.AllowedOrigins) == 0 {
		out = append(out, "no CORS origins allowed; browser clients will be rejected")
	}
	return out
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverMongo    = "mongodb"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

var (
	ErrMongoURIRequired  = errors.New("MONGODB_URI is not defined in environment variables")
	ErrDSNRequired       = errors.New("DB_DSN is required for the postgres store driver")
	ErrAuthNotConfigured = errors.New("auth not configured: set CLERK_JWT_KEY or CLERK_JWKS_URL (or AUTH_DEV_MODE=true)")
)

type Config struct {
	Port int

	StoreDriver string

	MongoURI            string
	MongoDB             string
	MongoCollection     string
	MongoConnectTimeout time.Duration
	MongoStickyErrors   bool

	DatabaseDSN string

	Auth AuthConfig

	CORSAllowedOrigins []string
	MaxBodyBytes       int64

	Log LogConfig
}

type AuthConfig struct {
	ClerkJWTKey       string
	ClerkJWKSURL      string
	ClerkSecretKey    string
	Issuer            string
	AuthorizedParties []string
	ClockSkew         time.Duration
	DevMode           bool
}

// Enabled indica si hay un verificador real configurado.
func (a AuthConfig) Enabled() bool {
	return strings.TrimSpace(a.ClerkJWTKey) != "" || strings.TrimSpace(a.ClerkJWKSURL) != ""
}

type LogConfig struct {
	Level  string
	Format string
	File   string
	App    string
}

// Load lee .env (si existe) y luego el entorno.
func Load() (Config, error) {
	// .env es opcional; en prod las vars vienen del entorno.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	return FromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", 4000)
	v.SetDefault("STORE_DRIVER", DriverMongo)
	v.SetDefault("MONGODB_DB", "mamacare")
	v.SetDefault("MONGODB_COLLECTION", "pregnancy_profiles")
	v.SetDefault("MONGODB_CONNECT_TIMEOUT", "10s")
	v.SetDefault("MONGODB_STICKY_CONNECT_ERRORS", false)
	v.SetDefault("CLERK_CLOCK_SKEW", "5s")
	v.SetDefault("AUTH_DEV_MODE", false)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("MAX_BODY_BYTES", 100<<10)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("APP_NAME", "mamacare-api")
}

// FromViper arma y valida la Config. Expuesto para tests (viper.New + Set).
func FromViper(v *viper.Viper) (Config, error) {
	setDefaults(v)

	cfg := Config{
		Port:                v.GetInt("PORT"),
		StoreDriver:         strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER"))),
		MongoURI:            strings.TrimSpace(v.GetString("MONGODB_URI")),
		MongoDB:             strings.TrimSpace(v.GetString("MONGODB_DB")),
		MongoCollection:     strings.TrimSpace(v.GetString("MONGODB_COLLECTION")),
		MongoConnectTimeout: v.GetDuration("MONGODB_CONNECT_TIMEOUT"),
		MongoStickyErrors:   v.GetBool("MONGODB_STICKY_CONNECT_ERRORS"),
		DatabaseDSN:         strings.TrimSpace(v.GetString("DB_DSN")),
		Auth: AuthConfig{
			ClerkJWTKey:       strings.TrimSpace(v.GetString("CLERK_JWT_KEY")),
			ClerkJWKSURL:      strings.TrimSpace(v.GetString("CLERK_JWKS_URL")),
			ClerkSecretKey:    strings.TrimSpace(v.GetString("CLERK_SECRET_KEY")),
			Issuer:            strings.TrimSpace(v.GetString("CLERK_ISSUER")),
			AuthorizedParties: splitList(v.GetString("CLERK_AUTHORIZED_PARTIES")),
			ClockSkew:         v.GetDuration("CLERK_CLOCK_SKEW"),
			DevMode:           v.GetBool("AUTH_DEV_MODE"),
		},
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		MaxBodyBytes:       v.GetInt64("MAX_BODY_BYTES"),
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
			File:   strings.TrimSpace(v.GetString("LOG_FILE")),
			App:    strings.TrimSpace(v.GetString("APP_NAME")),
		},
	}

	// Las PEM en una sola línea suelen venir con "\n" literales.
	cfg.Auth.ClerkJWTKey = strings.ReplaceAll(cfg.Auth.ClerkJWTKey, `\n`, "\n")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT: %d", c.Port)
	}

	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			return ErrMongoURIRequired
		}
		if c.MongoDB == "" {
			c.MongoDB = "mamacare"
		}
		if c.MongoCollection == "" {
			c.MongoCollection = "pregnancy_profiles"
		}
	case DriverPostgres:
		if c.DatabaseDSN == "" {
			return ErrDSNRequired
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want %s|%s|%s)", c.StoreDriver, DriverMongo, DriverPostgres, DriverMemory)
	}

	if !c.Auth.Enabled() && !c.Auth.DevMode {
		return ErrAuthNotConfigured
	}

	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 100 << 10
	}
	if len(c.CORSAllowedOrigins) == 0 {
		c.CORSAllowedOrigins = []string{"*"}
	}
	return nil
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func splitList(s string) []string {
	out := make([]string, 0)
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

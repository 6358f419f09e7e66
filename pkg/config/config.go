package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	PublicURL string

	Database DatabaseConfig
	Redis    RedisConfig
	Admin    AdminConfig
	CORS     CORSConfig
	Log      LogConfig
	Secrets  SecretsConfig
	Sweeper  SweeperConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// AdminConfig secures the grant-extension endpoints.
type AdminConfig struct {
	TokenSecret string
	TokenExpiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SecretsConfig tunes the secret lifecycle defaults.
type SecretsConfig struct {
	DefaultExpiryDays int
	ShortIDLength     int
	ShortIDRetries    int
	BcryptCost        int
	MaxTextBytes      int
	SingleUse         bool
	MappingCacheTTL   time.Duration
}

// SweeperConfig gates the background expiry sweep. Disabled by default:
// expired rows are otherwise only reclaimed lazily on access.
type SweeperConfig struct {
	Enabled   bool
	Interval  time.Duration
	BatchSize int
	Workers   int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.PublicURL = strings.TrimRight(v.GetString("PUBLIC_URL"), "/")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Admin = AdminConfig{
		TokenSecret: v.GetString("ADMIN_TOKEN_SECRET"),
		TokenExpiry: parseDuration(v.GetString("ADMIN_TOKEN_EXPIRATION"), 12*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Secrets = SecretsConfig{
		DefaultExpiryDays: v.GetInt("SECRET_DEFAULT_EXPIRY_DAYS"),
		ShortIDLength:     v.GetInt("SECRET_SHORT_ID_LENGTH"),
		ShortIDRetries:    v.GetInt("SECRET_SHORT_ID_RETRIES"),
		BcryptCost:        v.GetInt("SECRET_BCRYPT_COST"),
		MaxTextBytes:      v.GetInt("SECRET_MAX_TEXT_BYTES"),
		SingleUse:         v.GetBool("SECRET_SINGLE_USE"),
		MappingCacheTTL:   parseDuration(v.GetString("SECRET_MAPPING_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Sweeper = SweeperConfig{
		Enabled:   v.GetBool("ENABLE_SWEEPER"),
		Interval:  parseDuration(v.GetString("SWEEPER_INTERVAL"), time.Hour),
		BatchSize: v.GetInt("SWEEPER_BATCH_SIZE"),
		Workers:   v.GetInt("SWEEPER_WORKERS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("PUBLIC_URL", "http://localhost:8080")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "quietdrop")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ADMIN_TOKEN_SECRET", "dev_admin_secret")
	v.SetDefault("ADMIN_TOKEN_EXPIRATION", "12h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SECRET_DEFAULT_EXPIRY_DAYS", 7)
	v.SetDefault("SECRET_SHORT_ID_LENGTH", 8)
	v.SetDefault("SECRET_SHORT_ID_RETRIES", 3)
	v.SetDefault("SECRET_BCRYPT_COST", 10)
	v.SetDefault("SECRET_MAX_TEXT_BYTES", 64*1024)
	v.SetDefault("SECRET_SINGLE_USE", false)
	v.SetDefault("SECRET_MAPPING_CACHE_TTL", "5m")

	v.SetDefault("ENABLE_SWEEPER", false)
	v.SetDefault("SWEEPER_INTERVAL", "1h")
	v.SetDefault("SWEEPER_BATCH_SIZE", 100)
	v.SetDefault("SWEEPER_WORKERS", 1)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Admin       AdminConfig
	EventLog    EventLogConfig
	Analytics   AnalyticsConfig
	Shop        ShopConfig
	Images      ImagesConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
}

type HTTPConfig struct {
	Host          string
	Port          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	// StreamTimeout bounds a server-sent event connection. Clients reconnect
	// once it passes.
	StreamTimeout time.Duration
	MaxConn       int
	MaxBodySize   int
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	SSLMode         string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

// AdminConfig holds the admin gate. PasswordHash is a bcrypt hash; the plain
// password never lives in configuration.
type AdminConfig struct {
	PasswordHash   string
	SessionTimeout time.Duration
	EntryPoint     string
}

type EventLogConfig struct {
	Path      string
	Capacity  int
	Retention time.Duration
}

type AnalyticsConfig struct {
	RefreshInterval time.Duration
	RetentionCron   string
	Timezone        string
}

type ShopConfig struct {
	WhatsAppNumber string
	Currency       string
}

type ImagesConfig struct {
	MaxImages       int
	MaxImageBytes   int
	MaxDocumentSize int
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type MigrationsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from environment variables (optionally .env)
// and applies defaults so the service can boot in any environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "tikshop"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:          getString("SERVER_HOST", "0.0.0.0"),
			Port:          getString("SERVER_PORT", "8080"),
			ReadTimeout:   getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:  getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:   getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			StreamTimeout: getDuration("SERVER_STREAM_TIMEOUT", time.Hour),
			MaxConn:       getInt("SERVER_MAX_CONN", 0),
			MaxBodySize:   getInt("SERVER_MAX_BODY_SIZE", 32<<20),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getString("DB_HOST", "localhost"),
			Port:            getString("DB_PORT", "5432"),
			Name:            getString("DB_NAME", "tikshop"),
			User:            getString("DB_USER", "tikshop"),
			Password:        os.Getenv("DB_PASSWORD"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 5),
			MaxConnLifetime: getDuration("DB_CONN_LIFETIME", time.Hour),
			SSLMode:         getString("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getString("REDIS_URL", "redis://localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			Issuer: getString("JWT_ISSUER", "tikshop"),
		},
		Admin: AdminConfig{
			PasswordHash:   os.Getenv("ADMIN_PASSWORD_HASH"),
			SessionTimeout: getDuration("ADMIN_SESSION_TIMEOUT", 5*time.Minute),
			EntryPoint:     getString("ADMIN_ENTRY_POINT", "/"),
		},
		EventLog: EventLogConfig{
			Path:      getString("BOLTDB_PATH", "./data/events.db"),
			Capacity:  getInt("EVENT_LOG_CAPACITY", 1000),
			Retention: getDuration("EVENT_LOG_RETENTION", 30*24*time.Hour),
		},
		Analytics: AnalyticsConfig{
			RefreshInterval: getDuration("ANALYTICS_REFRESH_INTERVAL", time.Minute),
			RetentionCron:   getString("ANALYTICS_RETENTION_CRON", "@daily"),
			Timezone:        getString("APP_TIMEZONE", "Local"),
		},
		Shop: ShopConfig{
			WhatsAppNumber: getString("SHOP_WHATSAPP_NUMBER", "258841234567"),
			Currency:       getString("SHOP_CURRENCY", "MT"),
		},
		Images: ImagesConfig{
			MaxImages:       getInt("IMAGES_MAX_COUNT", 4),
			MaxImageBytes:   getInt("IMAGES_MAX_BYTES", 5<<20),
			MaxDocumentSize: getInt("IMAGES_MAX_DOCUMENT_BYTES", 900<<10),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 5*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		Migrations: MigrationsConfig{
			Enabled: getBool("RUN_MIGRATIONS", true),
			Path:    getString("MIGRATIONS_PATH", "./assets/migrations"),
		},
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = buildPostgresURL(cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Admin.PasswordHash == "" {
		return fmt.Errorf("ADMIN_PASSWORD_HASH is required")
	}
	if c.Admin.SessionTimeout <= 0 {
		return fmt.Errorf("ADMIN_SESSION_TIMEOUT must be positive")
	}
	if c.HTTP.StreamTimeout <= c.Admin.SessionTimeout {
		return fmt.Errorf("SERVER_STREAM_TIMEOUT must exceed ADMIN_SESSION_TIMEOUT")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("APP_TIMEZONE: %w", err)
	}
	return nil
}

// Location resolves the calendar used to bucket analytics by day.
func (c *Config) Location() (*time.Location, error) {
	if c.Analytics.Timezone == "" || c.Analytics.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Analytics.Timezone)
}

func buildPostgresURL(cfg *Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}

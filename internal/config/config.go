package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig        `json:"server"`
	Database      DatabaseConfig      `json:"database"`
	Security      SecurityConfig      `json:"security"`
	Logging       LoggingConfig       `json:"logging"`
	RateLimit     RateLimitConfig     `json:"rate_limit"`
	Notifications NotificationsConfig `json:"notifications"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	Mode         string        `json:"mode"` // gin mode: debug, release, test
	CORSOrigins  []string      `json:"cors_origins"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
	AutoMigrate    bool          `json:"auto_migrate"`
}

// SecurityConfig
type SecurityConfig struct {
	JWTSecret  string        `json:"jwt_secret"`
	TokenTTL   time.Duration `json:"token_ttl"`
	BcryptCost int           `json:"bcrypt_cost"`
}

// LoggingConfig
type LoggingConfig struct {
	Level       string `json:"level"`
	Development bool   `json:"development"`
}

// RateLimitConfig limits mutating API calls per actor.
type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second"`
	Burst             int     `json:"burst"`
}

// NotificationsConfig
type NotificationsConfig struct {
	StaleAfterDays  int    `json:"stale_after_days"`
	MonitorSchedule string `json:"monitor_schedule"`
	DefaultLimit    int    `json:"default_limit"`
}

// Default returns the configuration used when no file or environment overrides exist.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
			Mode:         "release",
			CORSOrigins:  []string{"*"},
		},
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			User:           os.Getenv("USER"),
			DBName:         "devcollab",
			SSLMode:        "disable",
			MaxConnections: 25,
			MaxIdleConns:   5,
			MaxLifetime:    30 * time.Minute,
			AutoMigrate:    true,
		},
		Security: SecurityConfig{
			JWTSecret:  "dev-secret-key-change-in-production",
			TokenTTL:   24 * time.Hour,
			BcryptCost: 12,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5,
			Burst:             10,
		},
		Notifications: NotificationsConfig{
			StaleAfterDays:  14,
			MonitorSchedule: "*/15 * * * *",
			DefaultLimit:    20,
		},
	}
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := Default()

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	overrideWithEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		config.Server.Mode = mode
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		config.Server.CORSOrigins = strings.Split(origins, ",")
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbPort := os.Getenv("DATABASE_PORT"); dbPort != "" {
		if p, err := strconv.Atoi(dbPort); err == nil {
			config.Database.Port = p
		}
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if sslMode := os.Getenv("DATABASE_SSLMODE"); sslMode != "" {
		config.Database.SSLMode = sslMode
	}
	if migrate := os.Getenv("DATABASE_AUTO_MIGRATE"); migrate != "" {
		if b, err := strconv.ParseBool(migrate); err == nil {
			config.Database.AutoMigrate = b
		}
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Security.JWTSecret = secret
	}
	if ttl := os.Getenv("TOKEN_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			config.Security.TokenTTL = d
		}
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if days := os.Getenv("NOTIFICATION_STALE_AFTER_DAYS"); days != "" {
		if d, err := strconv.Atoi(days); err == nil {
			config.Notifications.StaleAfterDays = d
		}
	}
	if schedule := os.Getenv("NOTIFICATION_MONITOR_SCHEDULE"); schedule != "" {
		config.Notifications.MonitorSchedule = schedule
	}
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required")
	}
	if c.Security.TokenTTL <= 0 {
		return fmt.Errorf("security.token_ttl must be positive")
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate_limit requires positive requests_per_second and burst")
	}
	if c.Notifications.StaleAfterDays <= 0 {
		return fmt.Errorf("notifications.stale_after_days must be positive")
	}
	return nil
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

package config

import (
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
)

type Configuration struct {
	Server   ServerConfig
	Security SecurityConfig
	Sharing  SharingConfig
	Logging  LoggingConfig
	Database DatabaseConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type SecurityConfig struct {
	// EncryptionKey is either a 64-character hex string used directly as
	// the AES key or an arbitrary passphrase that gets hashed to key
	// length. Read once at startup; the codec holds the derived key.
	EncryptionKey string
	JWTSecret     string
	TokenTTL      time.Duration
}

type SharingConfig struct {
	DefaultExpiryHours float64
	MaxExpiryHours     float64
}

type LoggingConfig struct {
	Level string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	Username        string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime int
}

// Load builds the process configuration from defaults and environment
// overrides. The result is fixed for the process lifetime; nothing reads
// the environment after startup.
func Load() *Configuration {
	return &Configuration{
		Server: ServerConfig{
			Port:         envOr("PORT", "3000"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Security: SecurityConfig{
			EncryptionKey: envOr("ENCRYPTION_KEY", ""),
			JWTSecret:     envOr("JWT_SECRET", "supersecretkey"),
			TokenTTL:      time.Hour,
		},
		Sharing: SharingConfig{
			DefaultExpiryHours: 1,
			MaxExpiryHours:     2,
		},
		Logging: LoggingConfig{
			Level: envOr("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:            envOr("DB_HOST", "localhost"),
			Port:            envOr("DB_PORT", "5432"),
			Username:        envOr("DB_USER", "postgres"),
			Password:        envOr("DB_PASSWORD", "password"),
			Name:            envOr("DB_NAME", "credential_manager"),
			SSLMode:         envOr("DB_SSLMODE", "disable"),
			MaxIdleConns:    envIntOr("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    envIntOr("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: envIntOr("DB_CONN_MAX_LIFETIME", 300),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// LogConfig logs the effective configuration with secrets redacted.
func LogConfig(cfg *Configuration, logger *zap.Logger) {
	logger.Info("Application configuration",
		zap.String("port", cfg.Server.Port),
		zap.Duration("read_timeout", cfg.Server.ReadTimeout),
		zap.Duration("write_timeout", cfg.Server.WriteTimeout),
		zap.Float64("share_default_expiry_hours", cfg.Sharing.DefaultExpiryHours),
		zap.Float64("share_max_expiry_hours", cfg.Sharing.MaxExpiryHours),
		zap.Duration("token_ttl", cfg.Security.TokenTTL),
		zap.Bool("encryption_key_set", cfg.Security.EncryptionKey != ""),
		zap.String("database_host", cfg.Database.Host),
		zap.String("database_name", cfg.Database.Name),
	)
}

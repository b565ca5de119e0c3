// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Mail     MailConfig
	Policy   PolicyConfig
	App      AppConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// MailConfig holds outbound delivery settings. When Host is empty the
// application falls back to the file sender (documents are logged, not sent).
type MailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	LogPath  string
}

// PolicyConfig holds business policy values: free-tier quotas, the statutory
// VAT rate whitelist and the trial length. These are policy, not architecture,
// so they are overridable per deployment.
type PolicyConfig struct {
	FreeClientLimit  int64
	FreeDevisLimit   int64
	FreeFactureLimit int64
	AllowedVATRates  []float64 // percentages accepted on create/update
	TrialDays        int
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev        bool
	Migrations bool
}

// DSN returns the PostgreSQL connection string in key=value format.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Load reads configuration from environment variables.
// It uses sensible defaults for local development.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "facture"),
			Password: getEnv("DB_PASSWORD", "facture123"),
			DBName:   getEnv("DB_NAME", "facture"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Mail: MailConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			User:     getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("MAIL_FROM", "no-reply@localhost"),
			LogPath:  getEnv("MAIL_LOG_PATH", "mail.log"),
		},
		Policy: PolicyConfig{
			FreeClientLimit:  int64(getEnvInt("FREE_CLIENT_LIMIT", 5)),
			FreeDevisLimit:   int64(getEnvInt("FREE_DEVIS_LIMIT", 5)),
			FreeFactureLimit: int64(getEnvInt("FREE_FACTURE_LIMIT", 5)),
			AllowedVATRates:  getEnvFloats("ALLOWED_VAT_RATES", []float64{20, 10, 5.5, 2.1}),
			TrialDays:        getEnvInt("TRIAL_DAYS", 14),
		},
		App: AppConfig{
			Dev:        getEnvBool("DEV", true),
			Migrations: getEnvBool("MIGRATIONS", false),
		},
	}
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default.
// Accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}

// getEnvFloats parses a comma-separated list of floats ("20,10,5.5,2.1").
// Falls back to the default when the variable is absent or unparsable.
func getEnvFloats(key string, defaultValue []float64) []float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return defaultValue
		}
		out = append(out, f)
	}
	return out
}

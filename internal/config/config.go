// Package config handles configuration for the admin tool, including
// defaults, an optional .env overlay, environment variables, and
// command-line flags.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds runtime settings.
//
// Fields:
//   - DataDir: directory for the JSON file backend.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects the file backend.
//   - LogLevel: zap level name (debug, info, warn, error).
//   - AdminEmail / AdminPassword / AdminName: bootstrap admin account.
//   - AdminEmails: extra emails granted admin access.
//   - AnonSalt: salt for anonymizing account ids in admin reports.
//   - S3RootUser / S3RootPassword: credentials for the S3-compatible backend.
//   - S3Bucket / S3Region / S3BaseEndpoint: snapshot storage settings.
type Config struct {
	DataDir       string
	DatabaseDSN   string
	LogLevel      string
	AdminEmail    string
	AdminPassword string
	AdminName     string
	AdminEmails   []string
	AnonSalt      string

	S3RootUser     string
	S3RootPassword string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.DataDir = "data"
	c.DatabaseDSN = ""
	c.LogLevel = "info"
	c.AdminEmail = "admin@incomiq.com"
	c.AdminPassword = "admin123"
	c.AdminName = "Admin"
	c.AdminEmails = nil
	c.AnonSalt = "incomiq-anon"
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "snapshots"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional .env file plus the environment, and finally from
// command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}

// parseEnv overlays values from a .env file (if present) and the process
// environment. Real environment variables win over .env entries because
// godotenv does not overwrite variables that are already set.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	setString := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	setString(&config.DataDir, "DATA_DIR")
	setString(&config.DatabaseDSN, "DATABASE_DSN")
	setString(&config.LogLevel, "LOG_LEVEL")
	setString(&config.AdminEmail, "ADMIN_EMAIL")
	setString(&config.AdminPassword, "ADMIN_PASSWORD")
	setString(&config.AdminName, "ADMIN_NAME")
	setString(&config.AnonSalt, "ANON_SALT")
	setString(&config.S3RootUser, "S3_ROOT_USER")
	setString(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	setString(&config.S3Bucket, "S3_BUCKET")
	setString(&config.S3Region, "S3_REGION")
	setString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")

	if v, ok := os.LookupEnv("ADMIN_EMAILS"); ok {
		config.AdminEmails = SplitEmails(v)
	}
}

// SplitEmails parses a comma-separated email list, trimming whitespace and
// dropping empty entries.
func SplitEmails(s string) []string {
	var emails []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			emails = append(emails, part)
		}
	}
	return emails
}

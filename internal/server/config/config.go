// Package config handles configuration for the locker controller,
// including defaults, a .env/environment overlay, a JSON file and
// command-line flags.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds runtime settings for the controller daemon.
//
// Fields:
//   - EndpointAddrHTTP: bind address of the JSON API.
//   - DatabaseDriver / DatabaseDSN: "sqlite" (default, file lockers.db) or "pgx".
//   - SecretKey: HMAC secret signing bearer tokens. Empty means a random per-process key.
//   - HardwareDriver: "sim" (in-memory board) or "console" (terminal keypad/display).
//   - CredentialScheme: "plain" (stored verbatim), "bcrypt" or "argon2".
//   - SeedDefaults: insert the demo lockers and users into an empty database.
//   - SensorPollInterval / KeypadPollInterval: background loop periods.
//   - SettleDuration: hold after each servo pulse. NoticeDuration: keypad message hold.
//   - ActuationTimeout: upper bound for one actuation including settle.
//   - SnapshotInterval and S3*: optional registry snapshot export; disabled when S3Bucket is empty.
type Config struct {
	EndpointAddrHTTP   string
	DatabaseDriver     string
	DatabaseDSN        string
	SecretKey          string
	HardwareDriver     string
	CredentialScheme   string
	SeedDefaults       bool
	LogLevel           string
	CORSOrigins        []string
	SensorPollInterval time.Duration
	KeypadPollInterval time.Duration
	SettleDuration     time.Duration
	NoticeDuration     time.Duration
	ActuationTimeout   time.Duration
	SnapshotInterval   time.Duration
	S3RootUser         string
	S3RootPassword     string
	S3Bucket           string
	S3Region           string
	S3BaseEndpoint     string
	S3Prefix           string
}

// LoadDefaults populates Config with the values the original controller ran with.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":5000"
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "lockers.db"
	c.SecretKey = ""
	c.HardwareDriver = "sim"
	c.CredentialScheme = "plain"
	c.SeedDefaults = true
	c.LogLevel = "info"
	c.CORSOrigins = []string{"*"}
	c.SensorPollInterval = 300 * time.Millisecond
	c.KeypadPollInterval = 100 * time.Millisecond
	c.SettleDuration = 2 * time.Second
	c.NoticeDuration = 1 * time.Second
	c.ActuationTimeout = 5 * time.Second
	c.SnapshotInterval = 1 * time.Minute
	c.S3Region = "us-east-1"
	c.S3Prefix = "lockers"
}

// LoadConfig builds a Config by applying defaults, then the environment
// (after loading .env if present), then an optional JSON file and finally
// command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

// Validate rejects settings the controller cannot run with.
func (c *Config) Validate() error {
	switch c.HardwareDriver {
	case "sim", "console":
	default:
		return fmt.Errorf("unknown hardware driver %q", c.HardwareDriver)
	}
	switch c.CredentialScheme {
	case "plain", "bcrypt", "argon2":
	default:
		return fmt.Errorf("unknown credential scheme %q", c.CredentialScheme)
	}
	if c.SensorPollInterval <= 0 || c.KeypadPollInterval <= 0 {
		return errors.New("poll intervals must be positive")
	}
	if c.ActuationTimeout <= c.SettleDuration {
		return fmt.Errorf("actuation timeout %s must exceed settle duration %s", c.ActuationTimeout, c.SettleDuration)
	}
	return nil
}

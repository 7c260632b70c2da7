package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// dotenvFile is loaded before reading the environment. Variables already set
// in the process environment win over the file.
var dotenvFile = ".env"

// parseEnv overlays LOCKERS_* environment variables onto config.
//
//	LOCKERS_ADDRESS, LOCKERS_DATABASE_DRIVER, LOCKERS_DATABASE_DSN,
//	LOCKERS_SECRET_KEY, LOCKERS_HARDWARE, LOCKERS_CREDENTIALS, LOCKERS_SEED,
//	LOCKERS_LOG_LEVEL, LOCKERS_CORS_ORIGINS (comma separated),
//	LOCKERS_SENSOR_INTERVAL, LOCKERS_KEYPAD_INTERVAL, LOCKERS_SETTLE,
//	LOCKERS_NOTICE, LOCKERS_ACTUATION_TIMEOUT, LOCKERS_SNAPSHOT_INTERVAL,
//	LOCKERS_S3_USER, LOCKERS_S3_PASSWORD, LOCKERS_S3_BUCKET, LOCKERS_S3_REGION,
//	LOCKERS_S3_ENDPOINT, LOCKERS_S3_PREFIX
//
// A malformed .env file or value panics, like the other config sources.
func parseEnv(config *Config) {
	if err := godotenv.Load(dotenvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := os.LookupEnv(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				panic(err)
			}
			*dst = d
		}
	}

	str("LOCKERS_ADDRESS", &config.EndpointAddrHTTP)
	str("LOCKERS_DATABASE_DRIVER", &config.DatabaseDriver)
	str("LOCKERS_DATABASE_DSN", &config.DatabaseDSN)
	str("LOCKERS_SECRET_KEY", &config.SecretKey)
	str("LOCKERS_HARDWARE", &config.HardwareDriver)
	str("LOCKERS_CREDENTIALS", &config.CredentialScheme)
	str("LOCKERS_LOG_LEVEL", &config.LogLevel)

	if v, ok := os.LookupEnv("LOCKERS_SEED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(err)
		}
		config.SeedDefaults = b
	}
	if v, ok := os.LookupEnv("LOCKERS_CORS_ORIGINS"); ok {
		config.CORSOrigins = splitList(v)
	}

	dur("LOCKERS_SENSOR_INTERVAL", &config.SensorPollInterval)
	dur("LOCKERS_KEYPAD_INTERVAL", &config.KeypadPollInterval)
	dur("LOCKERS_SETTLE", &config.SettleDuration)
	dur("LOCKERS_NOTICE", &config.NoticeDuration)
	dur("LOCKERS_ACTUATION_TIMEOUT", &config.ActuationTimeout)
	dur("LOCKERS_SNAPSHOT_INTERVAL", &config.SnapshotInterval)

	str("LOCKERS_S3_USER", &config.S3RootUser)
	str("LOCKERS_S3_PASSWORD", &config.S3RootPassword)
	str("LOCKERS_S3_BUCKET", &config.S3Bucket)
	str("LOCKERS_S3_REGION", &config.S3Region)
	str("LOCKERS_S3_ENDPOINT", &config.S3BaseEndpoint)
	str("LOCKERS_S3_PREFIX", &config.S3Prefix)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

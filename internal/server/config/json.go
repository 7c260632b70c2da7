package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/gophlocker/internal/flagx"
)

// Duration accepts either a Go duration string ("300ms") or integer nanoseconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case float64:
		d.Duration = time.Duration(val)
		return nil
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	}
	return fmt.Errorf("invalid duration %s", string(b))
}

// JsonConfig is the on-disk shape of the config file. Absent keys leave the
// corresponding Config field untouched.
type JsonConfig struct {
	EndpointAddrHTTP   string    `json:"endpoint_addr_http"`
	DatabaseDriver     string    `json:"database_driver"`
	DatabaseDSN        string    `json:"database_dsn"`
	SecretKey          string    `json:"secret_key"`
	HardwareDriver     string    `json:"hardware_driver"`
	CredentialScheme   string    `json:"credential_scheme"`
	SeedDefaults       *bool     `json:"seed_defaults"`
	LogLevel           string    `json:"log_level"`
	CORSOrigins        []string  `json:"cors_origins"`
	SensorPollInterval *Duration `json:"sensor_poll_interval"`
	KeypadPollInterval *Duration `json:"keypad_poll_interval"`
	SettleDuration     *Duration `json:"settle_duration"`
	NoticeDuration     *Duration `json:"notice_duration"`
	ActuationTimeout   *Duration `json:"actuation_timeout"`
	SnapshotInterval   *Duration `json:"snapshot_interval"`
	S3RootUser         string    `json:"s3_root_user"`
	S3RootPassword     string    `json:"s3_root_password"`
	S3Bucket           string    `json:"s3_bucket"`
	S3Region           string    `json:"s3_region"`
	S3BaseEndpoint     string    `json:"s3_base_endpoint"`
	S3Prefix           string    `json:"s3_prefix"`
}

// parseJson loads the file named by -c/-config (if any) into config.
// An unreadable file or invalid JSON panics.
func parseJson(config *Config) {
	path := flagx.ConfigFile(os.Args[1:])
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	str := func(src string, dst *string) {
		if src != "" {
			*dst = src
		}
	}
	dur := func(src *Duration, dst *time.Duration) {
		if src != nil {
			*dst = src.Duration
		}
	}

	str(c.EndpointAddrHTTP, &config.EndpointAddrHTTP)
	str(c.DatabaseDriver, &config.DatabaseDriver)
	str(c.DatabaseDSN, &config.DatabaseDSN)
	str(c.SecretKey, &config.SecretKey)
	str(c.HardwareDriver, &config.HardwareDriver)
	str(c.CredentialScheme, &config.CredentialScheme)
	str(c.LogLevel, &config.LogLevel)
	if c.SeedDefaults != nil {
		config.SeedDefaults = *c.SeedDefaults
	}
	if c.CORSOrigins != nil {
		config.CORSOrigins = c.CORSOrigins
	}
	dur(c.SensorPollInterval, &config.SensorPollInterval)
	dur(c.KeypadPollInterval, &config.KeypadPollInterval)
	dur(c.SettleDuration, &config.SettleDuration)
	dur(c.NoticeDuration, &config.NoticeDuration)
	dur(c.ActuationTimeout, &config.ActuationTimeout)
	dur(c.SnapshotInterval, &config.SnapshotInterval)
	str(c.S3RootUser, &config.S3RootUser)
	str(c.S3RootPassword, &config.S3RootPassword)
	str(c.S3Bucket, &config.S3Bucket)
	str(c.S3Region, &config.S3Region)
	str(c.S3BaseEndpoint, &config.S3BaseEndpoint)
	str(c.S3Prefix, &config.S3Prefix)
}

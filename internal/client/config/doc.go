// Package config loads runtime configuration for the locker CLI client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string     base URL of the locker controller API
//	-i int        online status check interval (seconds)
//	-t duration   per-request timeout
//
// # JSON schema
//
// Intervals can be strings like "3s" or integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:5000",
//	  "online_check_interval": "3s",
//	  "request_timeout": "10s"
//	}
package config

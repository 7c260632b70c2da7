package config

import (
	"flag"
	"io"
	"os"

	"github.com/dmitrijs2005/gophlocker/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string    HTTP bind address (e.g. ":5000")
//	-D string    database driver: sqlite or pgx
//	-d string    database DSN
//	-s string    token signing secret
//	-w string    hardware driver: sim or console
//	-k string    credential scheme: plain, bcrypt or argon2
//	-l string    log level
//	-t duration  actuation timeout
//	-b string    snapshot S3 bucket (empty disables snapshots)
//	-i duration  snapshot interval
//
// os.Args is first filtered with flagx.FilterArgs so flags owned by other
// parsers (-c/-config) do not collide.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-D", "-d", "-s", "-w", "-k", "-l", "-t", "-b", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDriver, "D", config.DatabaseDriver, "database driver (sqlite|pgx)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "token signing secret")
	fs.StringVar(&config.HardwareDriver, "w", config.HardwareDriver, "hardware driver (sim|console)")
	fs.StringVar(&config.CredentialScheme, "k", config.CredentialScheme, "credential scheme (plain|bcrypt|argon2)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.DurationVar(&config.ActuationTimeout, "t", config.ActuationTimeout, "actuation timeout")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "snapshot bucket")
	fs.DurationVar(&config.SnapshotInterval, "i", config.SnapshotInterval, "snapshot interval")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}

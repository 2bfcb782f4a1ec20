package config

import (
	"flag"

	"github.com/resdex/resdex/internal/flagx"
)

var serverFlags = []string{"-a", "-m", "-d", "-s", "-t", "-r", "-u", "-p", "-b", "-g", "-e", "-n", "-l"}

// parseFlags applies the command-line flags handled by the server:
//
//	-a string    gRPC bind address
//	-m string    admin HTTP bind address (/healthz, /metrics)
//	-d string    PostgreSQL DSN
//	-s string    JWT HMAC secret key
//	-t duration  access token validity
//	-r duration  refresh token validity
//	-u, -p       S3 credentials
//	-b, -g, -e   S3 bucket, region and base endpoint
//	-n int       live snapshot size
//	-l string    log level
func parseFlags(c *Config, args []string) {
	err := flagx.ParseFiltered("server", args, serverFlags, func(fs *flag.FlagSet) {
		fs.StringVar(&c.EndpointAddrGRPC, "a", c.EndpointAddrGRPC, "address and port to run server")
		fs.StringVar(&c.AdminAddr, "m", c.AdminAddr, "admin http address")
		fs.StringVar(&c.DatabaseDSN, "d", c.DatabaseDSN, "database DSN")
		fs.StringVar(&c.SecretKey, "s", c.SecretKey, "secret key")
		fs.DurationVar(&c.AccessTokenValidityDuration, "t", c.AccessTokenValidityDuration, "access token validity")
		fs.DurationVar(&c.RefreshTokenValidityDuration, "r", c.RefreshTokenValidityDuration, "refresh token validity")
		fs.StringVar(&c.S3RootUser, "u", c.S3RootUser, "S3 root user")
		fs.StringVar(&c.S3RootPassword, "p", c.S3RootPassword, "S3 root password")
		fs.StringVar(&c.S3Bucket, "b", c.S3Bucket, "S3 bucket")
		fs.StringVar(&c.S3Region, "g", c.S3Region, "S3 region")
		fs.StringVar(&c.S3BaseEndpoint, "e", c.S3BaseEndpoint, "S3 base endpoint")
		fs.IntVar(&c.SnapshotLimit, "n", c.SnapshotLimit, "live snapshot size")
		fs.StringVar(&c.LogLevel, "l", c.LogLevel, "log level (debug, info, warn, error)")
	})
	if err != nil {
		panic(err)
	}
}

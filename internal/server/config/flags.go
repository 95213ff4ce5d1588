package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/chapterhub/internal/flagx"
)

// parseFlags overlays command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-g string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   session signing secret
//	-t int      session validity, minutes
//	-l int      rate limit, requests per window (0 disables)
//	-w int      rate limit window, seconds
//	-b string   S3 bucket for snapshot archives (empty disables)
//	-e string   S3 base endpoint
//
// Only these flags are read from args; -c/-config belongs to the JSON layer.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-d", "-s", "-t", "-l", "-w", "-b", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	sessionValidity := fs.Int("t", int(config.SessionValidity.Minutes()), "session validity (in minutes)")
	fs.IntVar(&config.RateLimitRequests, "l", config.RateLimitRequests, "requests per rate limit window")
	rateLimitWindow := fs.Int("w", int(config.RateLimitWindow.Seconds()), "rate limit window (in seconds)")

	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// durations set by earlier layers keep their precision unless overridden
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.SessionValidity = time.Duration(*sessionValidity) * time.Minute
		case "w":
			config.RateLimitWindow = time.Duration(*rateLimitWindow) * time.Second
		}
	})
	return nil
}

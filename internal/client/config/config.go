package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the CLI.
type Config struct {
	ServerURL           string
	GRPCAddr            string
	RequestTimeout      time.Duration
	HealthCheckInterval time.Duration
}

// LoadDefaults populates c with defaults matching a local server.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.GRPCAddr = "127.0.0.1:50051"
	c.RequestTimeout = 10 * time.Second
	c.HealthCheckInterval = 3 * time.Second
}

// Load applies defaults, then the JSON file, then flags found in args.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig loads from the process command line.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

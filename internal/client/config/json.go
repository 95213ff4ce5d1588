package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/dmitrijs2005/chapterhub/internal/flagx"
	"github.com/dmitrijs2005/chapterhub/internal/timex"
)

// JsonConfig is the JSON view of Config. Absent fields keep their value.
type JsonConfig struct {
	ServerURL           *string         `json:"server_url"`
	GRPCAddr            *string         `json:"grpc_addr"`
	RequestTimeout      *timex.Duration `json:"request_timeout"`
	HealthCheckInterval *timex.Duration `json:"health_check_interval"`
}

func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if jc.ServerURL != nil {
		cfg.ServerURL = *jc.ServerURL
	}
	if jc.GRPCAddr != nil {
		cfg.GRPCAddr = *jc.GRPCAddr
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.HealthCheckInterval != nil {
		cfg.HealthCheckInterval = jc.HealthCheckInterval.Duration
	}
	return nil
}

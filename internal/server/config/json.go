package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/dmitrijs2005/chapterhub/internal/flagx"
	"github.com/dmitrijs2005/chapterhub/internal/server/featureflags"
	"github.com/dmitrijs2005/chapterhub/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Durations accept "15m" or
// integer nanoseconds; absent fields leave the current value alone.
type JsonConfig struct {
	HTTPAddr          *string           `json:"http_addr"`
	GRPCAddr          *string           `json:"grpc_addr"`
	DatabaseDSN       *string           `json:"database_dsn"`
	SecretKey         *string           `json:"secret_key"`
	SessionValidity   *timex.Duration   `json:"session_validity"`
	CookieName        *string           `json:"cookie_name"`
	CookieSecure      *bool             `json:"cookie_secure"`
	RateLimitRequests *int              `json:"rate_limit_requests"`
	RateLimitWindow   *timex.Duration   `json:"rate_limit_window"`
	HashConcurrency   *int64            `json:"hash_concurrency"`
	CaptureSchedule   *string           `json:"capture_schedule"`
	S3Bucket          *string           `json:"s3_bucket"`
	S3Region          *string           `json:"s3_region"`
	S3User            *string           `json:"s3_user"`
	S3Password        *string           `json:"s3_password"`
	S3BaseEndpoint    *string           `json:"s3_base_endpoint"`
	S3Prefix          *string           `json:"s3_prefix"`
	FeatureFlags      map[string]string `json:"feature_flags"`
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setDurationIf(dst *time.Duration, src *timex.Duration) {
	if src != nil {
		*dst = src.Duration
	}
}

// parseJSON overlays the file named by -c/-config, if any.
func parseJSON(config *Config, args []string) error {
	path := flagx.ConfigFile(args)

	// nothing to load
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setIf(&config.HTTPAddr, c.HTTPAddr)
	setIf(&config.GRPCAddr, c.GRPCAddr)
	setIf(&config.DatabaseDSN, c.DatabaseDSN)
	setIf(&config.SecretKey, c.SecretKey)
	setDurationIf(&config.SessionValidity, c.SessionValidity)
	setIf(&config.CookieName, c.CookieName)
	setIf(&config.CookieSecure, c.CookieSecure)
	setIf(&config.RateLimitRequests, c.RateLimitRequests)
	setDurationIf(&config.RateLimitWindow, c.RateLimitWindow)
	setIf(&config.HashConcurrency, c.HashConcurrency)
	setIf(&config.CaptureSchedule, c.CaptureSchedule)
	setIf(&config.S3Bucket, c.S3Bucket)
	setIf(&config.S3Region, c.S3Region)
	setIf(&config.S3User, c.S3User)
	setIf(&config.S3Password, c.S3Password)
	setIf(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setIf(&config.S3Prefix, c.S3Prefix)

	for name, v := range c.FeatureFlags {
		config.FeatureFlags[featureflags.Flag(name)] = v
	}
	return nil
}

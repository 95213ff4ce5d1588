package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/dmitrijs2005/chapterhub/internal/server/featureflags"
)

// envKeys maps environment variables onto config keys. Feature flags are
// added from featureflags.Definitions.
var envKeys = map[string]string{
	"CHAPTERHUB_HTTP_ADDR":           "http_addr",
	"CHAPTERHUB_GRPC_ADDR":           "grpc_addr",
	"DATABASE_URL":                   "database_dsn",
	"CHAPTERHUB_SECRET_KEY":          "secret_key",
	"CHAPTERHUB_SESSION_VALIDITY":    "session_validity",
	"CHAPTERHUB_COOKIE_NAME":         "cookie_name",
	"CHAPTERHUB_COOKIE_SECURE":       "cookie_secure",
	"CHAPTERHUB_RATE_LIMIT_REQUESTS": "rate_limit_requests",
	"CHAPTERHUB_RATE_LIMIT_WINDOW":   "rate_limit_window",
	"CHAPTERHUB_HASH_CONCURRENCY":    "hash_concurrency",
	"CHAPTERHUB_CAPTURE_SCHEDULE":    "capture_schedule",
	"CHAPTERHUB_S3_BUCKET":           "s3_bucket",
	"CHAPTERHUB_S3_REGION":           "s3_region",
	"CHAPTERHUB_S3_USER":             "s3_user",
	"CHAPTERHUB_S3_PASSWORD":         "s3_password",
	"CHAPTERHUB_S3_BASE_ENDPOINT":    "s3_base_endpoint",
	"CHAPTERHUB_S3_PREFIX":           "s3_prefix",
}

const flagKeyPrefix = "feature_flags."

func envKey(name string) string {
	if k, ok := envKeys[name]; ok {
		return k
	}
	for _, d := range featureflags.Definitions {
		if d.Env == name {
			return flagKeyPrefix + string(d.Flag)
		}
	}
	// unmapped variables are ignored
	return ""
}

// parseEnv overlays the mapped environment variables.
func parseEnv(config *Config) error {
	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return fmt.Errorf("load environment: %w", err)
	}

	str := func(key string, dst *string) {
		if k.Exists(key) {
			*dst = k.String(key)
		}
	}

	str("http_addr", &config.HTTPAddr)
	str("grpc_addr", &config.GRPCAddr)
	str("database_dsn", &config.DatabaseDSN)
	str("secret_key", &config.SecretKey)
	str("cookie_name", &config.CookieName)
	str("capture_schedule", &config.CaptureSchedule)
	str("s3_bucket", &config.S3Bucket)
	str("s3_region", &config.S3Region)
	str("s3_user", &config.S3User)
	str("s3_password", &config.S3Password)
	str("s3_base_endpoint", &config.S3BaseEndpoint)
	str("s3_prefix", &config.S3Prefix)

	if k.Exists("cookie_secure") {
		config.CookieSecure = k.Bool("cookie_secure")
	}
	if k.Exists("rate_limit_requests") {
		config.RateLimitRequests = k.Int("rate_limit_requests")
	}
	if k.Exists("hash_concurrency") {
		config.HashConcurrency = k.Int64("hash_concurrency")
	}
	for key, dst := range map[string]*time.Duration{
		"session_validity":  &config.SessionValidity,
		"rate_limit_window": &config.RateLimitWindow,
	} {
		if !k.Exists(key) {
			continue
		}
		d, err := time.ParseDuration(k.String(key))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}

	for key, v := range k.StringMap(strings.TrimSuffix(flagKeyPrefix, ".")) {
		config.FeatureFlags[featureflags.Flag(key)] = v
	}
	return nil
}

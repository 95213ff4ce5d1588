// Package config loads runtime configuration for the authctl operator CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-u string   base URL of the auth HTTP API
//	-g string   host:port of the gRPC health endpoint
//	-t int      request timeout (seconds)
//	-i int      health check interval (seconds)
//
// # JSON schema
//
// Durations accept strings like "3s" or integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "grpc_addr": "127.0.0.1:50051",
//	  "request_timeout": "10s",
//	  "health_check_interval": "3s"
//	}
package config

// Package client talks to a running auth server on behalf of the CLI.
//
// HTTPClient covers the JSON API and keeps the session cookie in a jar, so a
// successful migrate-login or sign-in authenticates later calls on the same
// client. HealthChecker probes the gRPC health endpoint.
//
// Non-2xx responses surface as *APIError. errors.Is matches ErrUnauthorized
// and ErrRateLimited against it; transport failures match ErrUnavailable.
package client

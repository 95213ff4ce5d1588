// Package cli is the authctl operator console for the auth server.
//
// With arguments it runs one command and exits; without, it starts a REPL
// that keeps a background gRPC health watcher and shows the server mode in
// the prompt.
//
// Commands:
//   - status [email]        legacy/migrated state of an account
//   - migrate               migrate-login with prompted credentials
//   - login                 modern email/password sign-in
//   - whoami | logout       inspect or end the current session
//   - flags                 feature flags and their validation
//   - metrics [detailed]    counter snapshot or computed rates
//   - timeseries [hours]    hourly snapshots
//   - stats                 security counters
//   - health                HTTP and gRPC health
//
// Passwords are read without echo and wiped after use.
package cli

// Package metrics is the in-process auth metrics store: monotonic counters
// over a closed event catalogue, derived rates, and a bounded ring of hourly
// snapshots. It also carries the hourly capture job and the exporters that
// read from the store (Prometheus collector, S3 snapshot archive).
package metrics

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/chapterhub/internal/common"
)

// EventKind names an auth event. The set is closed; see Kinds.
type EventKind string

const (
	LoginSuccess EventKind = "login_success"
	LoginFailure EventKind = "login_failure"

	RegistrationSuccess EventKind = "registration_success"
	RegistrationFailure EventKind = "registration_failure"

	PasswordResetRequest EventKind = "password_reset_request"
	PasswordResetSuccess EventKind = "password_reset_success"
	PasswordResetFailure EventKind = "password_reset_failure"

	EmailVerificationSent    EventKind = "email_verification_sent"
	EmailVerificationSuccess EventKind = "email_verification_success"
	EmailVerificationFailure EventKind = "email_verification_failure"

	TwoFactorEnabled       EventKind = "two_factor_enabled"
	TwoFactorDisabled      EventKind = "two_factor_disabled"
	TwoFactorVerifySuccess EventKind = "two_factor_verify_success"
	TwoFactorVerifyFailure EventKind = "two_factor_verify_failure"

	OAuthSuccess EventKind = "oauth_success"
	OAuthFailure EventKind = "oauth_failure"

	SessionCreated     EventKind = "session_created"
	SessionInvalidated EventKind = "session_invalidated"
	SessionExpired     EventKind = "session_expired"

	RateLimitExceeded  EventKind = "rate_limit_exceeded"
	SuspiciousActivity EventKind = "suspicious_activity"
	BlockedIP          EventKind = "blocked_ip"

	LegacyMigrationSuccess EventKind = "legacy_migration_success"
	LegacyMigrationFailure EventKind = "legacy_migration_failure"
)

// Kinds lists the whole catalogue in a stable order.
var Kinds = []EventKind{
	LoginSuccess, LoginFailure,
	RegistrationSuccess, RegistrationFailure,
	PasswordResetRequest, PasswordResetSuccess, PasswordResetFailure,
	EmailVerificationSent, EmailVerificationSuccess, EmailVerificationFailure,
	TwoFactorEnabled, TwoFactorDisabled, TwoFactorVerifySuccess, TwoFactorVerifyFailure,
	OAuthSuccess, OAuthFailure,
	SessionCreated, SessionInvalidated, SessionExpired,
	RateLimitExceeded, SuspiciousActivity, BlockedIP,
	LegacyMigrationSuccess, LegacyMigrationFailure,
}

var knownKinds = func() map[EventKind]struct{} {
	m := make(map[EventKind]struct{}, len(Kinds))
	for _, k := range Kinds {
		m[k] = struct{}{}
	}
	return m
}()

// OAuthProviders is the closed set of providers accepted by oauth events.
var OAuthProviders = []string{"google", "github", "facebook", "microsoft", "apple", "discord"}

// Params carries the optional event arguments.
type Params struct {
	// Provider is required for oauth events and ignored otherwise.
	Provider string
	// Duration is the session lifetime for session_invalidated/session_expired.
	Duration time.Duration
}

// Gauge names accepted by SetPopulationGauge.
const (
	GaugeTotalUsers              = "totalUsers"
	GaugePendingLegacyMigrations = "pendingLegacyMigrations"
)

// Validate reports whether kind/params would be accepted by Track.
func Validate(kind EventKind, p Params) error {
	if _, ok := knownKinds[kind]; !ok {
		return fmt.Errorf("%w: %q", common.ErrUnknownEvent, kind)
	}
	if kind == OAuthSuccess || kind == OAuthFailure {
		if !isOAuthProvider(p.Provider) {
			return fmt.Errorf("%w: oauth provider %q", common.ErrUnknownEvent, p.Provider)
		}
	}
	if p.Duration < 0 {
		return fmt.Errorf("negative duration for %s", kind)
	}
	return nil
}

func isOAuthProvider(p string) bool {
	for _, known := range OAuthProviders {
		if p == known {
			return true
		}
	}
	return false
}

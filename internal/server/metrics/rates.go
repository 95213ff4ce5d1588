package metrics

import (
	"fmt"
	"time"
)

// Rates are the values derived from Counters. Percentages are strings with
// exactly two decimals, truncated rather than rounded.
type Rates struct {
	LoginSuccessRate            string `json:"loginSuccessRate"`
	RegistrationSuccessRate     string `json:"registrationSuccessRate"`
	PasswordResetSuccessRate    string `json:"passwordResetSuccessRate"`
	EmailVerificationRate       string `json:"emailVerificationRate"`
	TwoFactorSuccessRate        string `json:"twoFactorSuccessRate"`
	MigrationSuccessRate        string `json:"migrationSuccessRate"`
	ActiveSessions              uint64 `json:"activeSessions"`
	AverageSessionDurationHours string `json:"averageSessionDurationHours"`
}

// Snapshot is a consistent read of all counters plus derived rates.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Counters  Counters  `json:"counters"`
	Rates     Rates     `json:"rates"`
}

// Detailed extends a snapshot with per-provider rates and security figures.
type Detailed struct {
	Snapshot
	OAuthSuccessRates map[string]string `json:"oauthSuccessRates"`
	Security          SecurityStats     `json:"security"`
}

// SecurityStats is the security-oriented view served to admins.
type SecurityStats struct {
	Timestamp          time.Time `json:"timestamp"`
	RateLimitExceeded  uint64    `json:"rateLimitExceeded"`
	SuspiciousActivity uint64    `json:"suspiciousActivity"`
	BlockedIPs         uint64    `json:"blockedIps"`
	FailedLogins       uint64    `json:"failedLogins"`
	LoginFailureRate   string    `json:"loginFailureRate"`
	MigrationFailures  uint64    `json:"migrationFailures"`
}

// Percent returns num / (num + other) as a percentage truncated to two
// decimals. A zero total yields "0.00".
func Percent(num, other uint64) string {
	total := num + other
	if total == 0 {
		return "0.00"
	}
	hundredths := num * 10000 / total
	return fmt.Sprintf("%d.%02d", hundredths/100, hundredths%100)
}

func averageHours(totalSeconds, sessions uint64) string {
	if sessions == 0 {
		return "0.00"
	}
	hundredths := totalSeconds * 100 / (sessions * 3600)
	return fmt.Sprintf("%d.%02d", hundredths/100, hundredths%100)
}

func activeSessions(s SessionCounters) uint64 {
	ended := s.Invalidated + s.Expired
	if ended >= s.Created {
		return 0
	}
	return s.Created - ended
}

func deriveRates(c Counters) Rates {
	return Rates{
		LoginSuccessRate:            Percent(c.Authentication.LoginSuccess, c.Authentication.LoginFailure),
		RegistrationSuccessRate:     Percent(c.Registration.Success, c.Registration.Failure),
		PasswordResetSuccessRate:    Percent(c.PasswordReset.Success, c.PasswordReset.Failure),
		EmailVerificationRate:       Percent(c.EmailVerification.Success, c.EmailVerification.Failure),
		TwoFactorSuccessRate:        Percent(c.TwoFactor.VerifySuccess, c.TwoFactor.VerifyFailure),
		MigrationSuccessRate:        Percent(c.LegacyMigration.Success, c.LegacyMigration.Failure),
		ActiveSessions:              activeSessions(c.Sessions),
		AverageSessionDurationHours: averageHours(c.Sessions.TotalDurationSeconds, c.Sessions.Invalidated+c.Sessions.Expired),
	}
}

func deriveOAuthRates(c Counters) map[string]string {
	out := make(map[string]string, len(c.OAuth))
	for p, v := range c.OAuth {
		out[p] = Percent(v.Success, v.Failure)
	}
	return out
}

func deriveSecurity(ts time.Time, c Counters) SecurityStats {
	return SecurityStats{
		Timestamp:          ts,
		RateLimitExceeded:  c.Security.RateLimitExceeded,
		SuspiciousActivity: c.Security.SuspiciousActivity,
		BlockedIPs:         c.Security.BlockedIPs,
		FailedLogins:       c.Authentication.LoginFailure,
		LoginFailureRate:   Percent(c.Authentication.LoginFailure, c.Authentication.LoginSuccess),
		MigrationFailures:  c.LegacyMigration.Failure,
	}
}

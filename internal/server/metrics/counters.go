package metrics

// Counters is the raw counter set, partitioned by family.
type Counters struct {
	Authentication    AuthenticationCounters    `json:"authentication"`
	Registration      RegistrationCounters      `json:"registration"`
	PasswordReset     PasswordResetCounters     `json:"passwordReset"`
	EmailVerification EmailVerificationCounters `json:"emailVerification"`
	TwoFactor         TwoFactorCounters         `json:"twoFactor"`
	OAuth             map[string]OAuthCounters  `json:"oauth"`
	Sessions          SessionCounters           `json:"sessions"`
	Security          SecurityCounters          `json:"security"`
	LegacyMigration   MigrationCounters         `json:"legacyMigration"`
	Users             PopulationGauges          `json:"users"`
}

type AuthenticationCounters struct {
	LoginAttempts uint64 `json:"loginAttempts"`
	LoginSuccess  uint64 `json:"loginSuccess"`
	LoginFailure  uint64 `json:"loginFailure"`
}

type RegistrationCounters struct {
	Attempts uint64 `json:"attempts"`
	Success  uint64 `json:"success"`
	Failure  uint64 `json:"failure"`
}

type PasswordResetCounters struct {
	Requests uint64 `json:"requests"`
	Success  uint64 `json:"success"`
	Failure  uint64 `json:"failure"`
}

type EmailVerificationCounters struct {
	Sent    uint64 `json:"sent"`
	Success uint64 `json:"success"`
	Failure uint64 `json:"failure"`
}

type TwoFactorCounters struct {
	Enabled       uint64 `json:"enabled"`
	Disabled      uint64 `json:"disabled"`
	VerifySuccess uint64 `json:"verifySuccess"`
	VerifyFailure uint64 `json:"verifyFailure"`
}

type OAuthCounters struct {
	Success uint64 `json:"success"`
	Failure uint64 `json:"failure"`
}

type SessionCounters struct {
	Created              uint64 `json:"created"`
	Invalidated          uint64 `json:"invalidated"`
	Expired              uint64 `json:"expired"`
	TotalDurationSeconds uint64 `json:"totalDurationSeconds"`
}

type SecurityCounters struct {
	RateLimitExceeded  uint64 `json:"rateLimitExceeded"`
	SuspiciousActivity uint64 `json:"suspiciousActivity"`
	BlockedIPs         uint64 `json:"blockedIps"`
}

type MigrationCounters struct {
	Success uint64 `json:"success"`
	Failure uint64 `json:"failure"`
}

// PopulationGauges are point-in-time values, not counters.
type PopulationGauges struct {
	Total                   int64 `json:"totalUsers"`
	PendingLegacyMigrations int64 `json:"pendingLegacyMigrations"`
}

func (c Counters) clone() Counters {
	out := c
	out.OAuth = make(map[string]OAuthCounters, len(c.OAuth))
	for k, v := range c.OAuth {
		out.OAuth[k] = v
	}
	return out
}

// EventCounts flattens the counters back onto the event catalogue. OAuth
// events are summed across providers.
func (c Counters) EventCounts() map[EventKind]uint64 {
	var oauthOK, oauthFail uint64
	for _, v := range c.OAuth {
		oauthOK += v.Success
		oauthFail += v.Failure
	}
	return map[EventKind]uint64{
		LoginSuccess:             c.Authentication.LoginSuccess,
		LoginFailure:             c.Authentication.LoginFailure,
		RegistrationSuccess:      c.Registration.Success,
		RegistrationFailure:      c.Registration.Failure,
		PasswordResetRequest:     c.PasswordReset.Requests,
		PasswordResetSuccess:     c.PasswordReset.Success,
		PasswordResetFailure:     c.PasswordReset.Failure,
		EmailVerificationSent:    c.EmailVerification.Sent,
		EmailVerificationSuccess: c.EmailVerification.Success,
		EmailVerificationFailure: c.EmailVerification.Failure,
		TwoFactorEnabled:         c.TwoFactor.Enabled,
		TwoFactorDisabled:        c.TwoFactor.Disabled,
		TwoFactorVerifySuccess:   c.TwoFactor.VerifySuccess,
		TwoFactorVerifyFailure:   c.TwoFactor.VerifyFailure,
		OAuthSuccess:             oauthOK,
		OAuthFailure:             oauthFail,
		SessionCreated:           c.Sessions.Created,
		SessionInvalidated:       c.Sessions.Invalidated,
		SessionExpired:           c.Sessions.Expired,
		RateLimitExceeded:        c.Security.RateLimitExceeded,
		SuspiciousActivity:       c.Security.SuspiciousActivity,
		BlockedIP:                c.Security.BlockedIPs,
		LegacyMigrationSuccess:   c.LegacyMigration.Success,
		LegacyMigrationFailure:   c.LegacyMigration.Failure,
	}
}

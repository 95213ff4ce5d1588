// Package services contains server-side business logic. This file implements
// AuthService, the coordinator behind the auth HTTP surface: legacy
// login-or-migrate, modern password sign-in, session lookups, and the
// read-only flag and metrics views.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/dmitrijs2005/chapterhub/internal/common"
	"github.com/dmitrijs2005/chapterhub/internal/logging"
	"github.com/dmitrijs2005/chapterhub/internal/server/authlog"
	"github.com/dmitrijs2005/chapterhub/internal/server/featureflags"
	"github.com/dmitrijs2005/chapterhub/internal/server/metrics"
	"github.com/dmitrijs2005/chapterhub/internal/server/migration"
	"github.com/dmitrijs2005/chapterhub/internal/server/models"
	"github.com/dmitrijs2005/chapterhub/internal/server/session"
)

// Migrator is the part of *migration.Engine the service depends on.
type Migrator interface {
	Migrate(ctx context.Context, email, password string) migration.Result
	IsMigrated(ctx context.Context, email string) (bool, error)
	IsLegacyKnown(ctx context.Context, email string) (bool, error)
}

// SessionProvider is the part of *session.Provider the service depends on.
type SessionProvider interface {
	SignInWithPassword(ctx context.Context, email, password string, req authlog.RequestInfo) (*session.Result, error)
	Validate(ctx context.Context, token string, req authlog.RequestInfo) (*session.Result, error)
	Revoke(ctx context.Context, token string, req authlog.RequestInfo) error
	ClearCookie() string
}

// Recorder receives auth events; *authlog.Logger satisfies it.
type Recorder interface {
	Log(ctx context.Context, e authlog.Event) error
}

// Failure is a client-facing error: a stable code, its HTTP status and a
// human-readable message.
type Failure struct {
	Code    common.Code
	Status  int
	Message string
}

func (f *Failure) Error() string { return fmt.Sprintf("%s: %s", f.Code, f.Message) }

var failures = map[common.Code]Failure{
	common.CodeMissingFields:      {Status: http.StatusBadRequest, Message: "Email and password are required"},
	common.CodeMissingEmail:       {Status: http.StatusBadRequest, Message: "Email is required"},
	common.CodeUserNotFound:       {Status: http.StatusUnauthorized, Message: "Invalid email or password"},
	common.CodeInvalidPassword:    {Status: http.StatusUnauthorized, Message: "Invalid email or password"},
	common.CodeInvalidCredentials: {Status: http.StatusUnauthorized, Message: "Invalid email or password"},
	common.CodeUnauthorized:       {Status: http.StatusUnauthorized, Message: "Not authenticated"},
	common.CodeAccountDisabled:    {Status: http.StatusForbidden, Message: "This account has been disabled"},
	common.CodeMigrationDisabled:  {Status: http.StatusForbidden, Message: "Legacy account migration is disabled"},
	common.CodeModernAuthDisabled: {Status: http.StatusForbidden, Message: "Email sign-in is disabled"},
	common.CodeRateLimited:        {Status: http.StatusTooManyRequests, Message: "Too many requests, try again later"},
	common.CodeInternalError:      {Status: http.StatusInternalServerError, Message: "Internal server error"},
}

// NewFailure builds the Failure for code. Unknown codes collapse to
// INTERNAL_ERROR.
func NewFailure(code common.Code) *Failure {
	f, ok := failures[code]
	if !ok {
		code = common.CodeInternalError
		f = failures[code]
	}
	f.Code = code
	return &f
}

// LoginResult is the successful outcome of LoginOrMigrate or SignIn.
// RequiresReauthentication is set when the account was migrated but no
// session could be opened.
type LoginResult struct {
	Migrated                 bool
	AlreadyMigrated          bool
	RedirectTo               string
	User                     *models.User
	Session                  *models.Session
	SetCookie                []string
	RequiresReauthentication bool
}

// MigrationStatus answers whether an email belongs to a legacy principal
// and whether it has been migrated.
type MigrationStatus struct {
	Email         string
	IsLegacyKnown bool
	IsMigrated    bool
}

// FlagsStatus is the resolved flag set with its advisory validation.
type FlagsStatus struct {
	Flags      map[string]bool         `json:"flags"`
	Validation featureflags.Validation `json:"validation"`
}

// BreakerSettings tunes the circuit breaker around the session provider.
type BreakerSettings struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

type AuthService struct {
	migrator Migrator
	sessions SessionProvider
	breaker  *gobreaker.CircuitBreaker[*session.Result]
	flags    *featureflags.Registry
	store    *metrics.Store
	events   Recorder
	logger   logging.Logger
}

func NewAuthService(
	migrator Migrator,
	sessions SessionProvider,
	flags *featureflags.Registry,
	store *metrics.Store,
	events Recorder,
	logger logging.Logger,
	bs BreakerSettings,
) *AuthService {
	if bs.MaxFailures == 0 {
		bs.MaxFailures = 5
	}
	if bs.OpenTimeout <= 0 {
		bs.OpenTimeout = 30 * time.Second
	}
	logger = logger.With("module", "auth")

	cb := gobreaker.NewCircuitBreaker[*session.Result](gobreaker.Settings{
		Name:        "session-provider",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     bs.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bs.MaxFailures
		},
		// a rejected password is an answer, not a provider fault
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, common.ErrorUnauthorized)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &AuthService{
		migrator: migrator,
		sessions: sessions,
		breaker:  cb,
		flags:    flags,
		store:    store,
		events:   events,
		logger:   logger,
	}
}

// LoginOrMigrate authenticates a legacy principal, migrating it on the first
// successful attempt and opening a modern session. An already migrated
// principal is redirected to the modern sign-in.
func (s *AuthService) LoginOrMigrate(ctx context.Context, email, password string, req authlog.RequestInfo) (res *LoginResult, fail *Failure) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, "login or migrate panicked", "panic", r)
			s.loginFailure(ctx, common.NormalizeEmail(email), req, common.CodeInternalError)
			res, fail = nil, NewFailure(common.CodeInternalError)
		}
	}()

	if common.IsBlank(email) || common.IsBlank(password) {
		return nil, NewFailure(common.CodeMissingFields)
	}
	email = common.NormalizeEmail(email)

	if !s.flags.IsEnabled(featureflags.LegacyMigration) {
		s.loginFailure(ctx, email, req, common.CodeMigrationDisabled)
		return nil, NewFailure(common.CodeMigrationDisabled)
	}

	r := s.migrator.Migrate(ctx, email, password)
	switch r.Outcome {
	case migration.AlreadyMigrated:
		return &LoginResult{
			AlreadyMigrated: true,
			RedirectTo:      common.ModernSignInPath,
			User:            r.Principal,
		}, nil

	case migration.Migrated:
		out := &LoginResult{Migrated: true, User: r.Principal}
		sess, err := s.openSession(ctx, email, password, req)
		if err != nil {
			s.logger.Warn(ctx, "session creation failed after migration",
				"user_id", r.Principal.ID, "error", err)
			out.RequiresReauthentication = true
			return out, nil
		}
		out.Session = sess.Session
		out.SetCookie = sess.SetCookie
		_ = s.events.Log(ctx, authlog.Event{
			Kind:    metrics.LoginSuccess,
			Email:   email,
			UserID:  r.Principal.ID,
			Request: &req,
			Attrs:   map[string]any{"method": "legacy_migration"},
		})
		return out, nil

	default:
		code := r.Code
		if code == "" {
			code = common.CodeInternalError
		}
		s.loginFailure(ctx, email, req, code)
		return nil, NewFailure(code)
	}
}

// SignIn is the modern email/password login. Wrong passwords and unknown
// emails are both INVALID_CREDENTIALS.
func (s *AuthService) SignIn(ctx context.Context, email, password string, req authlog.RequestInfo) (res *LoginResult, fail *Failure) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, "sign-in panicked", "panic", r)
			s.loginFailure(ctx, common.NormalizeEmail(email), req, common.CodeInternalError)
			res, fail = nil, NewFailure(common.CodeInternalError)
		}
	}()

	if common.IsBlank(email) || common.IsBlank(password) {
		return nil, NewFailure(common.CodeMissingFields)
	}
	email = common.NormalizeEmail(email)

	if !s.flags.IsEnabled(featureflags.ModernAuth) {
		s.loginFailure(ctx, email, req, common.CodeModernAuthDisabled)
		return nil, NewFailure(common.CodeModernAuthDisabled)
	}

	sess, err := s.openSession(ctx, email, password, req)
	if errors.Is(err, common.ErrorUnauthorized) {
		s.loginFailure(ctx, email, req, common.CodeInvalidCredentials)
		return nil, NewFailure(common.CodeInvalidCredentials)
	}
	if err != nil {
		s.logger.Error(ctx, "sign-in failed", "error", err)
		s.loginFailure(ctx, email, req, common.CodeInternalError)
		return nil, NewFailure(common.CodeInternalError)
	}

	_ = s.events.Log(ctx, authlog.Event{
		Kind:    metrics.LoginSuccess,
		Email:   email,
		UserID:  sess.User.ID,
		Request: &req,
		Attrs:   map[string]any{"method": "password"},
	})
	return &LoginResult{User: sess.User, Session: sess.Session, SetCookie: sess.SetCookie}, nil
}

// CurrentSession resolves a session token to its session and owner.
func (s *AuthService) CurrentSession(ctx context.Context, token string, req authlog.RequestInfo) (*session.Result, *Failure) {
	if common.IsBlank(token) {
		return nil, NewFailure(common.CodeUnauthorized)
	}
	res, err := s.sessions.Validate(ctx, token, req)
	switch {
	case err == nil:
		return res, nil
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		return nil, NewFailure(common.CodeUnauthorized)
	default:
		s.logger.Error(ctx, "session lookup failed", "error", err)
		return nil, NewFailure(common.CodeInternalError)
	}
}

// SignOut revokes the session behind token and returns the directive that
// clears the cookie. A missing or unknown token still clears the cookie.
func (s *AuthService) SignOut(ctx context.Context, token string, req authlog.RequestInfo) (string, *Failure) {
	if !common.IsBlank(token) {
		err := s.sessions.Revoke(ctx, token, req)
		if err != nil && !errors.Is(err, common.ErrInvalidToken) {
			s.logger.Error(ctx, "sign-out failed", "error", err)
			return "", NewFailure(common.CodeInternalError)
		}
	}
	return s.sessions.ClearCookie(), nil
}

// RecordRateLimit reports a throttled request.
func (s *AuthService) RecordRateLimit(ctx context.Context, req authlog.RequestInfo) {
	_ = s.events.Log(ctx, authlog.Event{
		Kind:    metrics.RateLimitExceeded,
		Request: &req,
	})
}

// MigrationStatus reports the migration state of email.
func (s *AuthService) MigrationStatus(ctx context.Context, email string) (*MigrationStatus, *Failure) {
	if common.IsBlank(email) {
		return nil, NewFailure(common.CodeMissingEmail)
	}
	email = common.NormalizeEmail(email)

	known, err := s.migrator.IsLegacyKnown(ctx, email)
	if err != nil {
		s.logger.Error(ctx, "migration status lookup failed", "error", err)
		return nil, NewFailure(common.CodeInternalError)
	}
	migrated := false
	if known {
		if migrated, err = s.migrator.IsMigrated(ctx, email); err != nil {
			s.logger.Error(ctx, "migration status lookup failed", "error", err)
			return nil, NewFailure(common.CodeInternalError)
		}
	}
	return &MigrationStatus{Email: email, IsLegacyKnown: known, IsMigrated: migrated}, nil
}

func (s *AuthService) FlagsStatus() FlagsStatus {
	return FlagsStatus{Flags: s.flags.Snapshot(), Validation: s.flags.Validate()}
}

func (s *AuthService) MetricsSnapshot() metrics.Snapshot { return s.store.Snapshot() }

func (s *AuthService) MetricsDetailed() metrics.Detailed { return s.store.Detailed() }

// Timeseries returns the captured snapshots and the window actually served.
func (s *AuthService) Timeseries(hours int) ([]metrics.Snapshot, int) {
	return s.store.Timeseries(hours), s.store.HoursBack(hours)
}

func (s *AuthService) SecurityStats() metrics.SecurityStats { return s.store.SecurityStats() }

// openSession runs the provider behind the breaker. Panics inside the
// provider come back as errors.
func (s *AuthService) openSession(ctx context.Context, email, password string, req authlog.RequestInfo) (*session.Result, error) {
	return s.breaker.Execute(func() (res *session.Result, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("session provider panic: %v", r)
			}
		}()
		return s.sessions.SignInWithPassword(ctx, email, password, req)
	})
}

func (s *AuthService) loginFailure(ctx context.Context, email string, req authlog.RequestInfo, code common.Code) {
	e := authlog.Event{
		Kind:    metrics.LoginFailure,
		Email:   email,
		Reason:  string(code),
		Request: &req,
	}
	switch code {
	case common.CodeInternalError:
		e.Level = authlog.LevelError
	case common.CodeMigrationDisabled, common.CodeModernAuthDisabled:
		e.Level = authlog.LevelInfo
	}
	_ = s.events.Log(ctx, e)
}

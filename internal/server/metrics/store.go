package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/chapterhub/internal/timex"
)

// Store aggregates auth counters for the life of the process. All counter
// mutations and reads are serialized on mu; the snapshot ring has its own
// lock so timeseries reads never block event tracking.
type Store struct {
	mu       sync.Mutex
	counters Counters

	ringMu sync.RWMutex
	ring   *ring

	clock timex.Clock
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for snapshot timestamps.
func WithClock(c timex.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithRingCapacity overrides the number of retained snapshots.
func WithRingCapacity(n int) Option {
	return func(s *Store) { s.ring = newRing(n) }
}

// NewStore builds an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		counters: Counters{OAuth: map[string]OAuthCounters{}},
		ring:     newRing(DefaultRingCapacity),
		clock:    timex.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Track applies one event to the counters.
func (s *Store) Track(kind EventKind, p Params) error {
	if err := Validate(kind, p); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := &s.counters
	switch kind {
	case LoginSuccess:
		c.Authentication.LoginAttempts++
		c.Authentication.LoginSuccess++
	case LoginFailure:
		c.Authentication.LoginAttempts++
		c.Authentication.LoginFailure++
	case RegistrationSuccess:
		c.Registration.Attempts++
		c.Registration.Success++
	case RegistrationFailure:
		c.Registration.Attempts++
		c.Registration.Failure++
	case PasswordResetRequest:
		c.PasswordReset.Requests++
	case PasswordResetSuccess:
		c.PasswordReset.Success++
	case PasswordResetFailure:
		c.PasswordReset.Failure++
	case EmailVerificationSent:
		c.EmailVerification.Sent++
	case EmailVerificationSuccess:
		c.EmailVerification.Success++
	case EmailVerificationFailure:
		c.EmailVerification.Failure++
	case TwoFactorEnabled:
		c.TwoFactor.Enabled++
	case TwoFactorDisabled:
		c.TwoFactor.Disabled++
	case TwoFactorVerifySuccess:
		c.TwoFactor.VerifySuccess++
	case TwoFactorVerifyFailure:
		c.TwoFactor.VerifyFailure++
	case OAuthSuccess:
		v := c.OAuth[p.Provider]
		v.Success++
		c.OAuth[p.Provider] = v
	case OAuthFailure:
		v := c.OAuth[p.Provider]
		v.Failure++
		c.OAuth[p.Provider] = v
	case SessionCreated:
		c.Sessions.Created++
	case SessionInvalidated:
		c.Sessions.Invalidated++
		c.Sessions.TotalDurationSeconds += uint64(p.Duration / time.Second)
	case SessionExpired:
		c.Sessions.Expired++
		c.Sessions.TotalDurationSeconds += uint64(p.Duration / time.Second)
	case RateLimitExceeded:
		c.Security.RateLimitExceeded++
	case SuspiciousActivity:
		c.Security.SuspiciousActivity++
	case BlockedIP:
		c.Security.BlockedIPs++
	case LegacyMigrationSuccess:
		c.LegacyMigration.Success++
	case LegacyMigrationFailure:
		c.LegacyMigration.Failure++
	}
	return nil
}

// SetPopulationGauge records a point-in-time population figure.
func (s *Store) SetPopulationGauge(name string, value int64) error {
	if value < 0 {
		return fmt.Errorf("negative gauge %s: %d", name, value)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch name {
	case GaugeTotalUsers:
		s.counters.Users.Total = value
	case GaugePendingLegacyMigrations:
		s.counters.Users.PendingLegacyMigrations = value
	default:
		return fmt.Errorf("unknown gauge %q", name)
	}
	return nil
}

func (s *Store) read() (time.Time, Counters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock(), s.counters.clone()
}

// Snapshot returns the counters and derived rates at a single instant.
func (s *Store) Snapshot() Snapshot {
	ts, c := s.read()
	return Snapshot{Timestamp: ts, Counters: c, Rates: deriveRates(c)}
}

// Detailed returns the snapshot plus per-provider and security views, all
// derived from the same read.
func (s *Store) Detailed() Detailed {
	ts, c := s.read()
	return Detailed{
		Snapshot:          Snapshot{Timestamp: ts, Counters: c, Rates: deriveRates(c)},
		OAuthSuccessRates: deriveOAuthRates(c),
		Security:          deriveSecurity(ts, c),
	}
}

// SecurityStats returns the security counters and the login failure rate.
func (s *Store) SecurityStats() SecurityStats {
	ts, c := s.read()
	return deriveSecurity(ts, c)
}

// CaptureSnapshot appends the current snapshot to the ring and returns it.
func (s *Store) CaptureSnapshot() Snapshot {
	snap := s.Snapshot()

	s.ringMu.Lock()
	s.ring.push(snap)
	s.ringMu.Unlock()

	return snap
}

// Timeseries returns, oldest first, the captured snapshots taken within the
// last hoursBack hours, at most hoursBack of them. hoursBack outside
// 1..capacity is clamped; zero or negative means 24.
func (s *Store) Timeseries(hoursBack int) []Snapshot {
	s.ringMu.RLock()
	defer s.ringMu.RUnlock()

	hoursBack = s.clampHours(hoursBack)

	cutoff := s.clock().Add(-time.Duration(hoursBack) * time.Hour)

	n := 0
	for i := s.ring.len() - 1; i >= 0 && n < hoursBack; i-- {
		if !s.ring.at(i).Timestamp.After(cutoff) {
			break
		}
		n++
	}

	out := make([]Snapshot, 0, n)
	for i := s.ring.len() - n; i < s.ring.len(); i++ {
		snap := s.ring.at(i)
		snap.Counters = snap.Counters.clone()
		out = append(out, snap)
	}
	return out
}

// HoursBack is the window Timeseries actually serves for hoursBack.
func (s *Store) HoursBack(hoursBack int) int {
	s.ringMu.RLock()
	defer s.ringMu.RUnlock()
	return s.clampHours(hoursBack)
}

func (s *Store) clampHours(h int) int {
	if h <= 0 {
		h = 24
	}
	if c := len(s.ring.buf); h > c {
		h = c
	}
	return h
}

// TimeseriesLen reports how many snapshots the ring currently holds.
func (s *Store) TimeseriesLen() int {
	s.ringMu.RLock()
	defer s.ringMu.RUnlock()
	return s.ring.len()
}

// Reset zeroes every counter and empties the ring. Tests only.
func (s *Store) Reset() {
	s.mu.Lock()
	s.counters = Counters{OAuth: map[string]OAuthCounters{}}
	s.mu.Unlock()

	s.ringMu.Lock()
	s.ring.reset()
	s.ringMu.Unlock()
}

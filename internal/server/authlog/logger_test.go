package authlog

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/chapterhub/internal/server/metrics"
)

var fixedTime = time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC)

type sinkSet struct {
	info, warn, err bytes.Buffer
	store           *metrics.Store
	logger          *Logger
}

func newSinkSet() *sinkSet {
	s := &sinkSet{store: metrics.NewStore()}
	s.logger = New(
		[]Subscriber{NewLogSink(&s.info, &s.warn, &s.err), NewMetricSink(s.store)},
		WithClock(func() time.Time { return fixedTime }),
	)
	return s
}

func decodeLine(t *testing.T, b *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	require.Len(t, lines, 1)
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &m))
	return m
}

func TestDefaultLevel(t *testing.T) {
	assert.Equal(t, LevelInfo, DefaultLevel(metrics.LoginSuccess))
	assert.Equal(t, LevelWarn, DefaultLevel(metrics.LoginFailure))
	assert.Equal(t, LevelWarn, DefaultLevel(metrics.LegacyMigrationFailure))
	assert.Equal(t, LevelWarn, DefaultLevel(metrics.BlockedIP))
	assert.Equal(t, LevelSecurity, DefaultLevel(metrics.RateLimitExceeded))
	assert.Equal(t, LevelSecurity, DefaultLevel(metrics.SuspiciousActivity))
}

func TestLog_WarnRecordMaskedAndCounted(t *testing.T) {
	s := newSinkSet()

	err := s.logger.Log(context.Background(), Event{
		Kind:    metrics.LoginFailure,
		Email:   "alice@x",
		Reason:  "INVALID_PASSWORD",
		Request: &RequestInfo{IPAddress: "1.2.3.4", Method: "POST"},
		Attrs:   map[string]any{"password": "wrong", "attempt": 2},
	})
	require.NoError(t, err)

	assert.Empty(t, s.info.String())
	assert.Empty(t, s.err.String())
	assert.NotContains(t, s.warn.String(), "wrong")

	rec := decodeLine(t, &s.warn)
	assert.Equal(t, "2025-05-06T07:08:09Z", rec["time"])
	assert.Equal(t, "warn", rec["level"])
	assert.Equal(t, "login_failure", rec["event"])
	assert.Equal(t, "a***e@x", rec["email"])
	assert.Equal(t, "INVALID_PASSWORD", rec["reason"])
	assert.Equal(t, "1.2.3.4", rec["ip_address"])
	assert.NotContains(t, rec, "user_agent")
	assert.NotContains(t, rec, "message")

	assert.Equal(t, uint64(1), s.store.Snapshot().Counters.Authentication.LoginFailure)
}

func TestLog_LevelRouting(t *testing.T) {
	s := newSinkSet()
	ctx := context.Background()

	require.NoError(t, s.logger.Log(ctx, Event{Kind: metrics.LoginSuccess}))
	require.NoError(t, s.logger.Log(ctx, Event{Kind: metrics.RateLimitExceeded}))
	require.NoError(t, s.logger.Log(ctx, Event{Kind: metrics.LoginFailure, Level: LevelError}))

	assert.Equal(t, "info", decodeLine(t, &s.info)["level"])
	assert.Empty(t, s.warn.String())

	lines := strings.Split(strings.TrimSpace(s.err.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"level":"security"`)
	assert.Contains(t, lines[1], `"level":"error"`)
}

func TestLog_UnknownEventDroppedEverywhere(t *testing.T) {
	s := newSinkSet()

	err := s.logger.Log(context.Background(), Event{Kind: "login_sideways"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDropped))

	assert.Equal(t, uint64(1), s.logger.Dropped())
	assert.Empty(t, s.info.String()+s.warn.String()+s.err.String())
}

func TestLog_OAuthWithoutProviderDropped(t *testing.T) {
	s := newSinkSet()
	require.Error(t, s.logger.Log(context.Background(), Event{Kind: metrics.OAuthSuccess}))
	assert.Empty(t, s.info.String())

	require.NoError(t, s.logger.Log(context.Background(), Event{Kind: metrics.OAuthSuccess, Provider: "github"}))
	assert.Equal(t, "github", decodeLine(t, &s.info)["provider"])
	assert.Equal(t, uint64(1), s.store.Snapshot().Counters.OAuth["github"].Success)
}

func TestLog_SessionDurationReachesStore(t *testing.T) {
	s := newSinkSet()
	require.NoError(t, s.logger.Log(context.Background(), Event{
		Kind:     metrics.SessionInvalidated,
		UserID:   "u1",
		Duration: 90 * time.Minute,
	}))

	rec := decodeLine(t, &s.info)
	assert.Equal(t, float64(5400), rec["duration_seconds"])
	assert.Equal(t, uint64(5400), s.store.Snapshot().Counters.Sessions.TotalDurationSeconds)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestLog_SinkWriteErrorCounted(t *testing.T) {
	store := metrics.NewStore()
	l := New([]Subscriber{NewLogSink(failingWriter{}, failingWriter{}, failingWriter{}), NewMetricSink(store)})

	require.NoError(t, l.Log(context.Background(), Event{Kind: metrics.LoginSuccess}))
	assert.Equal(t, uint64(1), l.SinkErrors())
	assert.Equal(t, uint64(1), store.Snapshot().Counters.Authentication.LoginSuccess)
}

func TestLog_PasswordNeverLogged(t *testing.T) {
	s := newSinkSet()
	const pw = "hunter2-Секрет"

	for _, k := range metrics.Kinds {
		e := Event{
			Kind:     k,
			Email:    "someone@school.edu",
			Provider: "google",
			Attrs: map[string]any{
				"password": pw,
				"nested":   map[string]any{"Password": pw, "token": pw},
			},
		}
		require.NoError(t, s.logger.Log(context.Background(), e))
	}

	all := s.info.String() + s.warn.String() + s.err.String()
	assert.NotContains(t, all, pw)
	assert.NotContains(t, all, "someone@school.edu")
}

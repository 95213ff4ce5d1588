package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *HTTPClient {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	c, err := NewHTTPClient(ts.URL+"/", 2*time.Second)
	require.NoError(t, err)
	return c
}

func TestNewHTTPClient_BadURL(t *testing.T) {
	_, err := NewHTTPClient("not a url", time.Second)
	assert.Error(t, err)
}

func TestHTTPClient_MigrateLoginKeepsSessionCookie(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/migrate-login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@x.org", body["email"])
		assert.Equal(t, "pw", body["password"])
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		http.SetCookie(w, &http.Cookie{Name: "chapterhub.session_token", Value: "tok", Path: "/"})
		_, _ = io.WriteString(w, `{"success":true,"migrated":true,"user":{"id":"u1","email":"a@x.org"},"session":{"id":"s1","userId":"u1"}}`)
	})
	mux.HandleFunc("GET /auth/session", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("chapterhub.session_token")
		if err != nil || c.Value != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"success":false,"error":"Unauthorized","code":"UNAUTHORIZED"}`)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"user":{"id":"u1","email":"a@x.org"},"session":{"id":"s1","userId":"u1"}}`)
	})

	c := newTestClient(t, mux)
	ctx := context.Background()

	res, err := c.MigrateLogin(ctx, "a@x.org", []byte("pw"))
	require.NoError(t, err)
	assert.True(t, res.Migrated)
	assert.Equal(t, "u1", res.User.ID)
	assert.Equal(t, "s1", res.Session.ID)

	info, err := c.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@x.org", info.User.Email)
}

func TestHTTPClient_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		target error
		code   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"success":false,"error":"Invalid email or password","code":"INVALID_PASSWORD"}`, ErrUnauthorized, "INVALID_PASSWORD"},
		{"rate limited", http.StatusTooManyRequests, `{"success":false,"error":"Too many requests","code":"RATE_LIMITED"}`, ErrRateLimited, "RATE_LIMITED"},
		{"forbidden", http.StatusForbidden, `{"success":false,"error":"Legacy migration is disabled","code":"MIGRATION_DISABLED"}`, nil, "MIGRATION_DISABLED"},
		{"no body", http.StatusBadGateway, ``, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))

			_, err := c.SignIn(context.Background(), "a@x.org", []byte("pw"))
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.code, apiErr.Code)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			} else {
				assert.False(t, errors.Is(err, ErrUnauthorized))
			}
		})
	}
}

func TestHTTPClient_Unavailable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c, err := NewHTTPClient(url, time.Second)
	require.NoError(t, err)

	_, err = c.FeatureFlags(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPClient_ReadViews(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/migration-status", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "a@x.org", r.URL.Query().Get("email"))
		_, _ = io.WriteString(w, `{"success":true,"migrated":false,"isLegacyUser":true,"email":"a@x.org"}`)
	})
	mux.HandleFunc("GET /auth/feature-flags", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"flags":{"legacyMigration":true,"modernAuth":false},"validation":{"valid":false,"warnings":["w"]}}`)
	})
	mux.HandleFunc("GET /auth/metrics", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"metrics":{"totalUsers":3}}`)
	})
	mux.HandleFunc("GET /auth/metrics/detailed", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"metrics":{"rates":{}}}`)
	})
	mux.HandleFunc("GET /auth/metrics/timeseries", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "6", r.URL.Query().Get("hours"))
		_, _ = io.WriteString(w, `{"success":true,"timeSeries":[{"a":1},{"a":2}],"hoursBack":6}`)
	})
	mux.HandleFunc("GET /auth/security/stats", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"stats":{"failedLogins":4}}`)
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"status":"degraded","validation":{"valid":false,"warnings":["none enabled"]}}`)
	})
	mux.HandleFunc("POST /auth/sign-out", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true}`)
	})

	c := newTestClient(t, mux)
	ctx := context.Background()

	st, err := c.MigrationStatus(ctx, "a@x.org")
	require.NoError(t, err)
	assert.True(t, st.IsLegacyUser)
	assert.False(t, st.Migrated)

	flags, err := c.FeatureFlags(ctx)
	require.NoError(t, err)
	assert.True(t, flags.Flags["legacyMigration"])
	assert.False(t, flags.Validation.OK)

	m, err := c.Metrics(ctx, false)
	require.NoError(t, err)
	assert.JSONEq(t, `{"totalUsers":3}`, string(m))

	m, err = c.Metrics(ctx, true)
	require.NoError(t, err)
	assert.JSONEq(t, `{"rates":{}}`, string(m))

	ts, err := c.Timeseries(ctx, 6)
	require.NoError(t, err)
	assert.Len(t, ts.TimeSeries, 2)
	assert.Equal(t, 6, ts.HoursBack)

	stats, err := c.SecurityStats(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"failedLogins":4}`, string(stats))

	h, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "degraded", h.Status)
	assert.Equal(t, []string{"none enabled"}, h.Validation.Warnings)

	assert.NoError(t, c.SignOut(ctx))
}

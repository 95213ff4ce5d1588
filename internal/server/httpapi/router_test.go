package httpapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/chapterhub/internal/common"
	"github.com/dmitrijs2005/chapterhub/internal/logging"
	"github.com/dmitrijs2005/chapterhub/internal/server/authlog"
	"github.com/dmitrijs2005/chapterhub/internal/server/featureflags"
	"github.com/dmitrijs2005/chapterhub/internal/server/metrics"
	"github.com/dmitrijs2005/chapterhub/internal/server/models"
	"github.com/dmitrijs2005/chapterhub/internal/server/services"
	"github.com/dmitrijs2005/chapterhub/internal/server/session"
)

type fakeService struct {
	login      *services.LoginResult
	loginFail  *services.Failure
	gotEmail   string
	gotPass    string
	gotToken   string
	status     *services.MigrationStatus
	statusFail *services.Failure
	hours      int
	rateLimits int
	store      *metrics.Store
}

func (f *fakeService) LoginOrMigrate(_ context.Context, email, password string, _ authlog.RequestInfo) (*services.LoginResult, *services.Failure) {
	f.gotEmail, f.gotPass = email, password
	return f.login, f.loginFail
}

func (f *fakeService) SignIn(_ context.Context, email, password string, _ authlog.RequestInfo) (*services.LoginResult, *services.Failure) {
	f.gotEmail, f.gotPass = email, password
	return f.login, f.loginFail
}

func (f *fakeService) CurrentSession(_ context.Context, token string, _ authlog.RequestInfo) (*session.Result, *services.Failure) {
	f.gotToken = token
	if token != "tok" {
		return nil, services.NewFailure(common.CodeUnauthorized)
	}
	return &session.Result{User: &models.User{ID: "u-1", Email: "alice@x"}, Session: &models.Session{ID: "s-1"}}, nil
}

func (f *fakeService) SignOut(_ context.Context, token string, _ authlog.RequestInfo) (string, *services.Failure) {
	f.gotToken = token
	return "chapterhub.session_token=; Path=/; Max-Age=0", nil
}

func (f *fakeService) RecordRateLimit(context.Context, authlog.RequestInfo) { f.rateLimits++ }

func (f *fakeService) MigrationStatus(_ context.Context, email string) (*services.MigrationStatus, *services.Failure) {
	f.gotEmail = email
	return f.status, f.statusFail
}

func (f *fakeService) FlagsStatus() services.FlagsStatus {
	return services.FlagsStatus{
		Flags:      map[string]bool{"legacyMigration": true, "modernAuth": false},
		Validation: featureflags.Validation{OK: true, Warnings: []string{}},
	}
}

func (f *fakeService) MetricsSnapshot() metrics.Snapshot { return f.store.Snapshot() }

func (f *fakeService) MetricsDetailed() metrics.Detailed { return f.store.Detailed() }

func (f *fakeService) Timeseries(hours int) ([]metrics.Snapshot, int) {
	f.hours = hours
	return []metrics.Snapshot{}, f.store.HoursBack(hours)
}

func (f *fakeService) SecurityStats() metrics.SecurityStats { return f.store.SecurityStats() }

func allFlags() *featureflags.Registry {
	return featureflags.New(map[featureflags.Flag]string{
		featureflags.LegacyMigration: "true",
		featureflags.ModernAuth:      "true",
	})
}

func newTestRouter(svc *fakeService, flags *featureflags.Registry, rl RateLimit) http.Handler {
	if svc.store == nil {
		svc.store = metrics.NewStore()
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.NewCollector(svc.store))
	return NewRouter(NewHandler(svc, flags, "", logging.Nop{}), rl, reg)
}

func do(t *testing.T, h http.Handler, method, target, body string, cookies ...*http.Cookie) (*http.Response, map[string]any) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	res := rec.Result()
	t.Cleanup(func() { res.Body.Close() })

	var out map[string]any
	if strings.HasPrefix(res.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	}
	return res, out
}

func TestMigrateLogin_MissingFields(t *testing.T) {
	h := newTestRouter(&fakeService{}, allFlags(), RateLimit{})

	for _, body := range []string{`{}`, `{"email":"a@x"}`, `{"email":"  ","password":"pw"}`, `not json`} {
		res, out := do(t, h, http.MethodPost, "/auth/migrate-login", body)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode, body)
		assert.Equal(t, false, out["success"])
		assert.Equal(t, "MISSING_FIELDS", out["code"])
		assert.NotEmpty(t, out["error"])
	}
}

func TestMigrateLogin_Migrated(t *testing.T) {
	svc := &fakeService{login: &services.LoginResult{
		Migrated:  true,
		User:      &models.User{ID: "u-1", Email: "alice@x"},
		Session:   &models.Session{ID: "s-1", UserID: "u-1"},
		SetCookie: []string{"chapterhub.session_token=tok; Path=/; HttpOnly; SameSite=Lax"},
	}}
	h := newTestRouter(svc, allFlags(), RateLimit{})

	res, out := do(t, h, http.MethodPost, "/auth/migrate-login", `{"email":"alice@x","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, true, out["migrated"])
	assert.Equal(t, "alice@x", out["user"].(map[string]any)["email"])
	assert.Equal(t, "s-1", out["session"].(map[string]any)["id"])
	assert.NotContains(t, out, "requiresLogin")
	assert.Equal(t, []string{"chapterhub.session_token=tok; Path=/; HttpOnly; SameSite=Lax"}, res.Header.Values("Set-Cookie"))
	assert.Equal(t, "s3cret", svc.gotPass)
}

func TestMigrateLogin_RequiresLogin(t *testing.T) {
	svc := &fakeService{login: &services.LoginResult{
		Migrated:                 true,
		User:                     &models.User{ID: "u-1", Email: "alice@x"},
		RequiresReauthentication: true,
	}}
	h := newTestRouter(svc, allFlags(), RateLimit{})

	res, out := do(t, h, http.MethodPost, "/auth/migrate-login", `{"email":"alice@x","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, true, out["migrated"])
	assert.Equal(t, true, out["requiresLogin"])
	assert.Contains(t, out, "session")
	assert.Nil(t, out["session"])
	assert.Empty(t, res.Header.Values("Set-Cookie"))
}

func TestMigrateLogin_AlreadyMigrated(t *testing.T) {
	svc := &fakeService{login: &services.LoginResult{AlreadyMigrated: true, RedirectTo: common.ModernSignInPath}}
	h := newTestRouter(svc, allFlags(), RateLimit{})

	res, out := do(t, h, http.MethodPost, "/auth/migrate-login", `{"email":"alice@x","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, true, out["alreadyMigrated"])
	assert.Equal(t, "/auth/sign-in/email", out["redirectTo"])
}

func TestMigrateLogin_Failures(t *testing.T) {
	for _, code := range []common.Code{
		common.CodeInvalidPassword, common.CodeUserNotFound, common.CodeAccountDisabled,
		common.CodeMigrationDisabled, common.CodeInternalError,
	} {
		f := services.NewFailure(code)
		h := newTestRouter(&fakeService{loginFail: f}, allFlags(), RateLimit{})

		res, out := do(t, h, http.MethodPost, "/auth/migrate-login", `{"email":"alice@x","password":"wrong"}`)
		assert.Equal(t, f.Status, res.StatusCode)
		assert.Equal(t, false, out["success"])
		assert.Equal(t, string(code), out["code"])
		assert.Equal(t, f.Message, out["error"])
	}
}

func TestMigrateLogin_RateLimited(t *testing.T) {
	svc := &fakeService{loginFail: services.NewFailure(common.CodeInvalidPassword)}
	h := newTestRouter(svc, allFlags(), RateLimit{Requests: 1, Window: time.Minute})

	res, _ := do(t, h, http.MethodPost, "/auth/migrate-login", `{"email":"alice@x","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, out := do(t, h, http.MethodPost, "/auth/migrate-login", `{"email":"alice@x","password":"wrong"}`)
	assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)
	assert.Equal(t, "RATE_LIMITED", out["code"])
	assert.Equal(t, 1, svc.rateLimits)

	// read-only routes are not limited
	res, _ = do(t, h, http.MethodGet, "/auth/feature-flags", "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestMigrationStatus(t *testing.T) {
	svc := &fakeService{status: &services.MigrationStatus{Email: "alice@x", IsLegacyKnown: true, IsMigrated: true}}
	h := newTestRouter(svc, allFlags(), RateLimit{})

	res, out := do(t, h, http.MethodGet, "/auth/migration-status?email=Alice%40X", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "Alice@X", svc.gotEmail)
	assert.Equal(t, map[string]any{"success": true, "migrated": true, "isLegacyUser": true, "email": "alice@x"}, out)

	svc.status, svc.statusFail = nil, services.NewFailure(common.CodeMissingEmail)
	res, out = do(t, h, http.MethodGet, "/auth/migration-status", "")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "MISSING_EMAIL", out["code"])
}

func TestReadOnlyViews(t *testing.T) {
	svc := &fakeService{}
	h := newTestRouter(svc, allFlags(), RateLimit{})

	_, out := do(t, h, http.MethodGet, "/auth/feature-flags", "")
	assert.Equal(t, true, out["success"])
	assert.Equal(t, map[string]any{"legacyMigration": true, "modernAuth": false}, out["flags"])
	assert.Equal(t, true, out["validation"].(map[string]any)["valid"])

	_, out = do(t, h, http.MethodGet, "/auth/metrics", "")
	assert.Equal(t, true, out["success"])
	assert.Contains(t, out["metrics"].(map[string]any), "rates")

	_, out = do(t, h, http.MethodGet, "/auth/metrics/detailed", "")
	assert.Contains(t, out["metrics"].(map[string]any), "oauthSuccessRates")

	_, out = do(t, h, http.MethodGet, "/auth/metrics/timeseries?hours=6", "")
	assert.Equal(t, 6, svc.hours)
	assert.Equal(t, float64(6), out["hoursBack"])
	assert.Equal(t, []any{}, out["timeSeries"])

	_, out = do(t, h, http.MethodGet, "/auth/metrics/timeseries?hours=abc", "")
	assert.Equal(t, 0, svc.hours)
	assert.Equal(t, float64(24), out["hoursBack"])

	_, out = do(t, h, http.MethodGet, "/auth/security/stats", "")
	assert.Contains(t, out["stats"].(map[string]any), "rateLimitExceeded")
}

func TestSessionRoutes(t *testing.T) {
	svc := &fakeService{login: &services.LoginResult{
		User:      &models.User{ID: "u-1", Email: "alice@x"},
		Session:   &models.Session{ID: "s-1"},
		SetCookie: []string{"chapterhub.session_token=tok; Path=/"},
	}}
	h := newTestRouter(svc, allFlags(), RateLimit{})

	res, out := do(t, h, http.MethodPost, "/auth/sign-in/email", `{"email":"alice@x","password":"pw"}`)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "s-1", out["session"].(map[string]any)["id"])
	assert.Len(t, res.Header.Values("Set-Cookie"), 1)

	res, out = do(t, h, http.MethodGet, "/auth/session", "", &http.Cookie{Name: common.SessionCookieName, Value: "tok"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "u-1", out["user"].(map[string]any)["id"])

	res, out = do(t, h, http.MethodGet, "/auth/session", "")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", out["code"])

	res, out = do(t, h, http.MethodPost, "/auth/sign-out", "", &http.Cookie{Name: common.SessionCookieName, Value: "tok"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "tok", svc.gotToken)
	assert.Contains(t, res.Header.Get("Set-Cookie"), "Max-Age=0")
}

func TestHealthz(t *testing.T) {
	res, out := do(t, newTestRouter(&fakeService{}, allFlags(), RateLimit{}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "ok", out["status"])

	res, out = do(t, newTestRouter(&fakeService{}, featureflags.New(nil), RateLimit{}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
	assert.Equal(t, "degraded", out["status"])
}

func TestPrometheusExposition(t *testing.T) {
	store := metrics.NewStore()
	require.NoError(t, store.Track(metrics.LoginSuccess, metrics.Params{}))
	h := newTestRouter(&fakeService{store: store}, allFlags(), RateLimit{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `chapterhub_auth_events_total{event="login_success"} 1`)
}

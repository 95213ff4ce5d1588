package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/dmitrijs2005/chapterhub/internal/common"
	"github.com/dmitrijs2005/chapterhub/internal/logging"
	"github.com/dmitrijs2005/chapterhub/internal/server/authlog"
	"github.com/dmitrijs2005/chapterhub/internal/server/featureflags"
	"github.com/dmitrijs2005/chapterhub/internal/server/metrics"
	"github.com/dmitrijs2005/chapterhub/internal/server/models"
	"github.com/dmitrijs2005/chapterhub/internal/server/services"
	"github.com/dmitrijs2005/chapterhub/internal/server/session"
)

// AuthService is the facade the handlers call; *services.AuthService
// satisfies it.
type AuthService interface {
	LoginOrMigrate(ctx context.Context, email, password string, req authlog.RequestInfo) (*services.LoginResult, *services.Failure)
	SignIn(ctx context.Context, email, password string, req authlog.RequestInfo) (*services.LoginResult, *services.Failure)
	CurrentSession(ctx context.Context, token string, req authlog.RequestInfo) (*session.Result, *services.Failure)
	SignOut(ctx context.Context, token string, req authlog.RequestInfo) (string, *services.Failure)
	RecordRateLimit(ctx context.Context, req authlog.RequestInfo)
	MigrationStatus(ctx context.Context, email string) (*services.MigrationStatus, *services.Failure)
	FlagsStatus() services.FlagsStatus
	MetricsSnapshot() metrics.Snapshot
	MetricsDetailed() metrics.Detailed
	Timeseries(hours int) ([]metrics.Snapshot, int)
	SecurityStats() metrics.SecurityStats
}

type Handler struct {
	svc        AuthService
	flags      *featureflags.Registry
	cookieName string
	validate   *validator.Validate
	logger     logging.Logger
}

func NewHandler(svc AuthService, flags *featureflags.Registry, cookieName string, logger logging.Logger) *Handler {
	if cookieName == "" {
		cookieName = common.SessionCookieName
	}
	return &Handler{
		svc:        svc,
		flags:      flags,
		cookieName: cookieName,
		validate:   validator.New(),
		logger:     logger.With("module", "http"),
	}
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// decodeCredentials reads the body. Whitespace-only fields count as absent.
func (h *Handler) decodeCredentials(r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, false
	}
	trimmed := credentialsRequest{
		Email:    strings.TrimSpace(req.Email),
		Password: strings.TrimSpace(req.Password),
	}
	if err := h.validate.Struct(trimmed); err != nil {
		return req, false
	}
	return req, true
}

type migrateLoginResponse struct {
	Success         bool            `json:"success"`
	Migrated        bool            `json:"migrated,omitempty"`
	AlreadyMigrated bool            `json:"alreadyMigrated,omitempty"`
	RedirectTo      string          `json:"redirectTo,omitempty"`
	Message         string          `json:"message,omitempty"`
	User            *models.User    `json:"user,omitempty"`
	Session         *models.Session `json:"session"`
	RequiresLogin   bool            `json:"requiresLogin,omitempty"`
}

type alreadyMigratedResponse struct {
	Success         bool   `json:"success"`
	AlreadyMigrated bool   `json:"alreadyMigrated"`
	RedirectTo      string `json:"redirectTo"`
	Message         string `json:"message"`
}

func (h *Handler) migrateLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCredentials(r)
	if !ok {
		writeFailure(w, services.NewFailure(common.CodeMissingFields))
		return
	}

	res, fail := h.svc.LoginOrMigrate(r.Context(), req.Email, req.Password, authlog.FromRequest(r))
	if fail != nil {
		writeFailure(w, fail)
		return
	}

	if res.AlreadyMigrated {
		writeJSON(w, http.StatusOK, alreadyMigratedResponse{
			Success:         true,
			AlreadyMigrated: true,
			RedirectTo:      res.RedirectTo,
			Message:         "Account already migrated, please sign in",
		})
		return
	}

	forwardCookies(w, res.SetCookie)
	body := migrateLoginResponse{
		Success:       true,
		Migrated:      true,
		User:          res.User,
		Session:       res.Session,
		RequiresLogin: res.RequiresReauthentication,
	}
	if res.RequiresReauthentication {
		body.Message = "Account migrated, please sign in again"
	}
	writeJSON(w, http.StatusOK, body)
}

type sessionResponse struct {
	Success bool            `json:"success"`
	User    *models.User    `json:"user"`
	Session *models.Session `json:"session"`
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCredentials(r)
	if !ok {
		writeFailure(w, services.NewFailure(common.CodeMissingFields))
		return
	}

	res, fail := h.svc.SignIn(r.Context(), req.Email, req.Password, authlog.FromRequest(r))
	if fail != nil {
		writeFailure(w, fail)
		return
	}

	forwardCookies(w, res.SetCookie)
	writeJSON(w, http.StatusOK, sessionResponse{Success: true, User: res.User, Session: res.Session})
}

func (h *Handler) currentSession(w http.ResponseWriter, r *http.Request) {
	res, fail := h.svc.CurrentSession(r.Context(), h.sessionToken(r), authlog.FromRequest(r))
	if fail != nil {
		writeFailure(w, fail)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Success: true, User: res.User, Session: res.Session})
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	clear, fail := h.svc.SignOut(r.Context(), h.sessionToken(r), authlog.FromRequest(r))
	if fail != nil {
		writeFailure(w, fail)
		return
	}
	forwardCookies(w, []string{clear})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) sessionToken(r *http.Request) string {
	c, err := r.Cookie(h.cookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

type migrationStatusResponse struct {
	Success      bool   `json:"success"`
	Migrated     bool   `json:"migrated"`
	IsLegacyUser bool   `json:"isLegacyUser"`
	Email        string `json:"email"`
}

func (h *Handler) migrationStatus(w http.ResponseWriter, r *http.Request) {
	st, fail := h.svc.MigrationStatus(r.Context(), r.URL.Query().Get("email"))
	if fail != nil {
		writeFailure(w, fail)
		return
	}
	writeJSON(w, http.StatusOK, migrationStatusResponse{
		Success:      true,
		Migrated:     st.IsMigrated,
		IsLegacyUser: st.IsLegacyKnown,
		Email:        st.Email,
	})
}

type flagsResponse struct {
	Success bool `json:"success"`
	services.FlagsStatus
}

func (h *Handler) featureFlags(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, flagsResponse{Success: true, FlagsStatus: h.svc.FlagsStatus()})
}

type metricsResponse struct {
	Success bool `json:"success"`
	Metrics any  `json:"metrics"`
}

func (h *Handler) metricsSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, metricsResponse{Success: true, Metrics: h.svc.MetricsSnapshot()})
}

func (h *Handler) metricsDetailed(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, metricsResponse{Success: true, Metrics: h.svc.MetricsDetailed()})
}

type timeseriesResponse struct {
	Success    bool               `json:"success"`
	TimeSeries []metrics.Snapshot `json:"timeSeries"`
	HoursBack  int                `json:"hoursBack"`
}

func (h *Handler) timeseries(w http.ResponseWriter, r *http.Request) {
	// unparsable values fall back to the default window
	hours, _ := strconv.Atoi(r.URL.Query().Get("hours"))
	series, back := h.svc.Timeseries(hours)
	writeJSON(w, http.StatusOK, timeseriesResponse{Success: true, TimeSeries: series, HoursBack: back})
}

type statsResponse struct {
	Success bool                  `json:"success"`
	Stats   metrics.SecurityStats `json:"stats"`
}

func (h *Handler) securityStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statsResponse{Success: true, Stats: h.svc.SecurityStats()})
}

type healthResponse struct {
	Status     string                  `json:"status"`
	Validation featureflags.Validation `json:"validation"`
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	status, code := "ok", http.StatusOK
	if !h.flags.AuthUsable() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, healthResponse{Status: status, Validation: h.flags.Validate()})
}

func (h *Handler) rateLimited(w http.ResponseWriter, r *http.Request) {
	h.svc.RecordRateLimit(r.Context(), authlog.FromRequest(r))
	writeFailure(w, services.NewFailure(common.CodeRateLimited))
}

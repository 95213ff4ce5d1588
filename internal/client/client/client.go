package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/dmitrijs2005/chapterhub/internal/client/models"
)

// API is the auth server surface the CLI uses.
type API interface {
	MigrateLogin(ctx context.Context, email string, password []byte) (*models.MigrateResult, error)
	SignIn(ctx context.Context, email string, password []byte) (*models.SessionInfo, error)
	Session(ctx context.Context) (*models.SessionInfo, error)
	SignOut(ctx context.Context) error
	MigrationStatus(ctx context.Context, email string) (*models.MigrationStatus, error)
	FeatureFlags(ctx context.Context) (*models.FlagsStatus, error)
	Metrics(ctx context.Context, detailed bool) (json.RawMessage, error)
	Timeseries(ctx context.Context, hours int) (*models.Timeseries, error)
	SecurityStats(ctx context.Context) (json.RawMessage, error)
	Health(ctx context.Context) (*models.Health, error)
}

type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) (*HTTPClient, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", baseURL, err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout, Jar: jar},
	}, nil
}

type failureBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// do sends body as JSON and decodes a 2xx response into out. Statuses listed
// in accept are decoded into out as well instead of becoming an APIError.
func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body, out any, accept ...int) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= 300 && !accepted(resp.StatusCode, accept) {
		var fb failureBody
		_ = json.Unmarshal(data, &fb)
		return &APIError{Status: resp.StatusCode, Code: fb.Code, Message: fb.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func accepted(status int, accept []int) bool {
	for _, s := range accept {
		if s == status {
			return true
		}
	}
	return false
}

func (c *HTTPClient) credentials(email string, password []byte) models.Credentials {
	return models.Credentials{Email: email, Password: string(password)}
}

func (c *HTTPClient) MigrateLogin(ctx context.Context, email string, password []byte) (*models.MigrateResult, error) {
	var res models.MigrateResult
	if err := c.do(ctx, http.MethodPost, "/auth/migrate-login", nil, c.credentials(email, password), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) SignIn(ctx context.Context, email string, password []byte) (*models.SessionInfo, error) {
	var res models.SessionInfo
	if err := c.do(ctx, http.MethodPost, "/auth/sign-in/email", nil, c.credentials(email, password), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) Session(ctx context.Context) (*models.SessionInfo, error) {
	var res models.SessionInfo
	if err := c.do(ctx, http.MethodGet, "/auth/session", nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) SignOut(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/sign-out", nil, nil, nil)
}

func (c *HTTPClient) MigrationStatus(ctx context.Context, email string) (*models.MigrationStatus, error) {
	var res models.MigrationStatus
	q := url.Values{"email": {email}}
	if err := c.do(ctx, http.MethodGet, "/auth/migration-status", q, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) FeatureFlags(ctx context.Context) (*models.FlagsStatus, error) {
	var res models.FlagsStatus
	if err := c.do(ctx, http.MethodGet, "/auth/feature-flags", nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) Metrics(ctx context.Context, detailed bool) (json.RawMessage, error) {
	path := "/auth/metrics"
	if detailed {
		path += "/detailed"
	}
	var res struct {
		Metrics json.RawMessage `json:"metrics"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &res); err != nil {
		return nil, err
	}
	return res.Metrics, nil
}

// Timeseries asks for the last hours snapshots; zero leaves the window to
// the server.
func (c *HTTPClient) Timeseries(ctx context.Context, hours int) (*models.Timeseries, error) {
	var q url.Values
	if hours > 0 {
		q = url.Values{"hours": {strconv.Itoa(hours)}}
	}
	var res models.Timeseries
	if err := c.do(ctx, http.MethodGet, "/auth/metrics/timeseries", q, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) SecurityStats(ctx context.Context) (json.RawMessage, error) {
	var res struct {
		Stats json.RawMessage `json:"stats"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/security/stats", nil, nil, &res); err != nil {
		return nil, err
	}
	return res.Stats, nil
}

// Health reads /healthz. A degraded server answers 503 with the same body.
func (c *HTTPClient) Health(ctx context.Context) (*models.Health, error) {
	var res models.Health
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, nil, &res, http.StatusServiceUnavailable); err != nil {
		return nil, err
	}
	return &res, nil
}

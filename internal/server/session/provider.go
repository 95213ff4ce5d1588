// Package session is the modern session provider: password sign-in against
// the modern credential store, server-side session rows, and the signed
// cookie that points at them.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/chapterhub/internal/common"
	"github.com/dmitrijs2005/chapterhub/internal/cryptox"
	"github.com/dmitrijs2005/chapterhub/internal/server/authlog"
	"github.com/dmitrijs2005/chapterhub/internal/server/metrics"
	"github.com/dmitrijs2005/chapterhub/internal/server/models"
	"github.com/dmitrijs2005/chapterhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/chapterhub/internal/timex"
)

type Config struct {
	SecretKey    []byte
	Validity     time.Duration
	CookieName   string
	CookieSecure bool
}

// Result is a live session with its owner. SetCookie holds the directives
// to forward to the client verbatim.
type Result struct {
	Session   *models.Session
	User      *models.User
	Token     string
	SetCookie []string
}

// Recorder receives auth events; *authlog.Logger satisfies it.
type Recorder interface {
	Log(ctx context.Context, e authlog.Event) error
}

type Provider struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	hasher *cryptox.Hasher
	events Recorder
	cfg    Config
	clock  timex.Clock
	newID  func() string
}

func NewProvider(db *sql.DB, repos repomanager.RepositoryManager, hasher *cryptox.Hasher, events Recorder, cfg Config) *Provider {
	if cfg.CookieName == "" {
		cfg.CookieName = common.SessionCookieName
	}
	if cfg.Validity <= 0 {
		cfg.Validity = 7 * 24 * time.Hour
	}
	return &Provider{
		db:     db,
		repos:  repos,
		hasher: hasher,
		events: events,
		cfg:    cfg,
		clock:  timex.Now,
		newID:  uuid.NewString,
	}
}

// CookieName is the name of the session cookie.
func (p *Provider) CookieName() string { return p.cfg.CookieName }

// SignInWithPassword checks the modern password credential and opens a
// session. Unknown users and wrong passwords both yield
// common.ErrorUnauthorized.
func (p *Provider) SignInWithPassword(ctx context.Context, email, password string, req authlog.RequestInfo) (*Result, error) {
	email = common.NormalizeEmail(email)

	user, err := p.repos.Principals(p.db).FindByEmail(ctx, email)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrorUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("find principal: %w", err)
	}

	account, err := p.repos.Credentials(p.db).FindPassword(ctx, user.ID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrorUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("find credential: %w", err)
	}

	pw := []byte(password)
	ok, err := p.hasher.Verify(ctx, pw, account.Password)
	common.WipeByteArray(pw)
	if err != nil {
		return nil, fmt.Errorf("verify credential: %w", err)
	}
	if !ok {
		return nil, common.ErrorUnauthorized
	}

	now := p.clock()
	s := &models.Session{
		ID:        p.newID(),
		UserID:    user.ID,
		ExpiresAt: now.Add(p.cfg.Validity),
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
	}
	if err := p.repos.Sessions(p.db).Create(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	token, err := GenerateToken(s.ID, user.ID, p.cfg.SecretKey, now, s.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}

	_ = p.events.Log(ctx, authlog.Event{
		Kind:    metrics.SessionCreated,
		Email:   email,
		UserID:  user.ID,
		Request: &req,
	})

	return &Result{
		Session:   s,
		User:      user,
		Token:     token,
		SetCookie: []string{p.cookie(token, s.ExpiresAt).String()},
	}, nil
}

// Validate resolves a session token. An expired session is deleted and
// reported once as session_expired.
func (p *Provider) Validate(ctx context.Context, token string, req authlog.RequestInfo) (*Result, error) {
	claims, err := ParseToken(token, p.cfg.SecretKey, p.clock)
	if errors.Is(err, common.ErrTokenExpired) {
		p.expire(ctx, claims.SessionID, req)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	s, err := p.repos.Sessions(p.db).Find(ctx, claims.SessionID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if !p.clock().Before(s.ExpiresAt) {
		p.expire(ctx, s.ID, req)
		return nil, common.ErrTokenExpired
	}

	user, err := p.repos.Principals(p.db).FindByID(ctx, s.UserID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("find principal: %w", err)
	}

	return &Result{Session: s, User: user, Token: token}, nil
}

// Revoke deletes the session behind token and records its lifetime. Unknown
// sessions are ignored.
func (p *Provider) Revoke(ctx context.Context, token string, req authlog.RequestInfo) error {
	claims, err := ParseToken(token, p.cfg.SecretKey, p.clock)
	if errors.Is(err, common.ErrTokenExpired) {
		p.expire(ctx, claims.SessionID, req)
		return nil
	}
	if err != nil {
		return err
	}

	repo := p.repos.Sessions(p.db)
	s, err := repo.Find(ctx, claims.SessionID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find session: %w", err)
	}
	if err := repo.Delete(ctx, s.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	_ = p.events.Log(ctx, authlog.Event{
		Kind:     metrics.SessionInvalidated,
		UserID:   s.UserID,
		Duration: p.clock().Sub(s.CreatedAt),
		Request:  &req,
	})
	return nil
}

// ClearCookie is the directive that removes the session cookie.
func (p *Provider) ClearCookie() string {
	c := p.cookie("", time.Unix(0, 0))
	c.MaxAge = -1
	return c.String()
}

func (p *Provider) expire(ctx context.Context, sessionID string, req authlog.RequestInfo) {
	repo := p.repos.Sessions(p.db)
	s, err := repo.Find(ctx, sessionID)
	if err != nil {
		return
	}
	if err := repo.Delete(ctx, s.ID); err != nil {
		return
	}
	_ = p.events.Log(ctx, authlog.Event{
		Kind:     metrics.SessionExpired,
		UserID:   s.UserID,
		Duration: s.ExpiresAt.Sub(s.CreatedAt),
		Request:  &req,
	})
}

func (p *Provider) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     p.cfg.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires.UTC(),
		HttpOnly: true,
		Secure:   p.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

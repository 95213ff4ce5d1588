// Package migration moves legacy principals into the modern store on their
// first successful login.
//
// A migration is at most once per principal and leaves the legacy row
// untouched on any failure: the migrated flip, the modern principal and its
// password credential are written in one transaction. Once verification has
// passed, the remaining work ignores caller cancellation so a commit that
// has started always finishes or fails on its own terms.
package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/chapterhub/internal/common"
	"github.com/dmitrijs2005/chapterhub/internal/cryptox"
	"github.com/dmitrijs2005/chapterhub/internal/dbx"
	"github.com/dmitrijs2005/chapterhub/internal/logging"
	"github.com/dmitrijs2005/chapterhub/internal/server/authlog"
	"github.com/dmitrijs2005/chapterhub/internal/server/featureflags"
	"github.com/dmitrijs2005/chapterhub/internal/server/metrics"
	"github.com/dmitrijs2005/chapterhub/internal/server/models"
	"github.com/dmitrijs2005/chapterhub/internal/server/repositories/repomanager"
)

// Outcome is the tag of a migration Result.
type Outcome string

const (
	Migrated        Outcome = "migrated"
	AlreadyMigrated Outcome = "already_migrated"
	Failed          Outcome = "failed"
)

// Result is what Migrate returns. Code is set only for Failed; Err carries
// the underlying cause for operational logs and is never shown to clients.
type Result struct {
	Outcome   Outcome
	Principal *models.User
	Code      common.Code
	Err       error
}

// Recorder receives auth events; *authlog.Logger satisfies it.
type Recorder interface {
	Log(ctx context.Context, e authlog.Event) error
}

type Engine struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	flags  *featureflags.Registry
	hasher *cryptox.Hasher
	events Recorder
	logger logging.Logger
	newID  func() string
}

func NewEngine(
	db *sql.DB,
	repos repomanager.RepositoryManager,
	flags *featureflags.Registry,
	hasher *cryptox.Hasher,
	events Recorder,
	logger logging.Logger,
) *Engine {
	return &Engine{
		db:     db,
		repos:  repos,
		flags:  flags,
		hasher: hasher,
		events: events,
		logger: logger.With("module", "migration"),
		newID:  uuid.NewString,
	}
}

func failed(code common.Code, err error) Result {
	return Result{Outcome: Failed, Code: code, Err: err}
}

// Migrate verifies email/password against the legacy store and, the first
// time they match, promotes the principal into the modern store.
func (e *Engine) Migrate(ctx context.Context, email, password string) Result {
	if !e.flags.IsEnabled(featureflags.LegacyMigration) {
		return failed(common.CodeMigrationDisabled, nil)
	}

	email = common.NormalizeEmail(email)

	legacy, err := e.repos.LegacyUsers(e.db).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return failed(common.CodeUserNotFound, nil)
		}
		return e.internal(ctx, email, "legacy lookup", err)
	}

	if legacy.Migrated {
		return e.resolveMigrated(ctx, email, legacy)
	}

	if !legacy.Active {
		return failed(common.CodeAccountDisabled, nil)
	}

	pw := []byte(password)
	defer common.WipeByteArray(pw)

	ok, err := e.hasher.Verify(ctx, pw, legacy.PasswordHash)
	if err != nil {
		return e.internal(ctx, email, "legacy verify", err)
	}
	if !ok {
		return failed(common.CodeInvalidPassword, nil)
	}

	// last point at which the caller may walk away
	if err := ctx.Err(); err != nil {
		return failed(common.CodeInternalError, err)
	}
	ctx = context.WithoutCancel(ctx)

	return e.commit(ctx, email, legacy, pw)
}

func (e *Engine) commit(ctx context.Context, email string, legacy *models.LegacyUser, pw []byte) Result {
	verifier, err := e.hasher.Hash(ctx, pw)
	if err != nil {
		return e.internal(ctx, email, "rehash", err)
	}

	legacyID := legacy.ID
	principal := &models.User{
		ID:            e.newID(),
		Email:         email,
		Name:          legacy.DisplayName,
		EmailVerified: legacy.EmailVerified,
		Role:          legacy.Role,
		ChapterID:     legacy.ChapterID,
		LegacyUserID:  &legacyID,
	}

	err = dbx.WithDetachedTx(ctx, e.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := e.repos.LegacyUsers(tx).MarkMigrated(ctx, legacy.ID, principal.ID); err != nil {
			return err
		}
		if _, err := e.repos.Principals(tx).Create(ctx, principal); err != nil {
			return fmt.Errorf("create principal: %w", err)
		}
		if _, err := e.repos.Credentials(tx).CreatePassword(ctx, principal.ID, verifier); err != nil {
			return fmt.Errorf("create credential: %w", err)
		}
		return nil
	})

	if errors.Is(err, common.ErrAlreadyMigrated) {
		// a concurrent call committed first
		p, lookupErr := e.repos.Principals(e.db).FindByEmail(ctx, email)
		if lookupErr != nil {
			e.logger.Warn(ctx, "lost migration race, winner not readable", "error", lookupErr)
		}
		return Result{Outcome: AlreadyMigrated, Principal: p}
	}
	if err != nil {
		return e.internal(ctx, email, "migration commit", err)
	}

	_ = e.events.Log(ctx, authlog.Event{
		Kind:   metrics.LegacyMigrationSuccess,
		Email:  email,
		UserID: principal.ID,
		Attrs:  map[string]any{"legacy_user_id": legacy.ID},
	})
	return Result{Outcome: Migrated, Principal: principal}
}

func (e *Engine) resolveMigrated(ctx context.Context, email string, legacy *models.LegacyUser) Result {
	p, err := e.repos.Principals(e.db).FindByEmail(ctx, email)
	if err == nil {
		return Result{Outcome: AlreadyMigrated, Principal: p}
	}
	if errors.Is(err, common.ErrorNotFound) {
		err = fmt.Errorf("legacy user %s is migrated but has no modern principal", legacy.ID)
		e.logger.Error(ctx, "inconsistent migration state", "legacy_user_id", legacy.ID)
	}
	return e.internal(ctx, email, "modern lookup", err)
}

// internal reports INTERNAL_ERROR. Failures caused by the caller going away
// are not migration failures and are not recorded as such.
func (e *Engine) internal(ctx context.Context, email, step string, err error) Result {
	if ctx.Err() != nil {
		return failed(common.CodeInternalError, err)
	}

	e.logger.Error(ctx, "legacy migration failed", "step", step, "error", err)
	_ = e.events.Log(ctx, authlog.Event{
		Kind:   metrics.LegacyMigrationFailure,
		Level:  authlog.LevelError,
		Email:  email,
		Reason: string(common.CodeInternalError),
		Attrs:  map[string]any{"step": step},
	})
	return failed(common.CodeInternalError, fmt.Errorf("%s: %w", step, err))
}

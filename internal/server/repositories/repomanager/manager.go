package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/chapterhub/internal/dbx"
	"github.com/dmitrijs2005/chapterhub/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/chapterhub/internal/server/repositories/legacyusers"
	"github.com/dmitrijs2005/chapterhub/internal/server/repositories/principals"
	"github.com/dmitrijs2005/chapterhub/internal/server/repositories/sessions"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	LegacyUsers(db dbx.DBTX) legacyusers.Repository
	Principals(db dbx.DBTX) principals.Repository
	Credentials(db dbx.DBTX) credentials.Repository
	Sessions(db dbx.DBTX) sessions.Repository
}

// Package legacyusers reads the pre-existing credential store and performs
// the one write the migration needs: the conditional migrated flip.
package legacyusers

import (
	"context"

	"github.com/dmitrijs2005/chapterhub/internal/server/models"
)

type Repository interface {
	// FindByEmail looks up by normalized email; common.ErrorNotFound if absent.
	FindByEmail(ctx context.Context, email string) (*models.LegacyUser, error)

	// MarkMigrated sets migrated=true and the modern back-reference, but only
	// while migrated is still false. It returns common.ErrAlreadyMigrated when
	// no row was updated.
	MarkMigrated(ctx context.Context, legacyID, modernID string) error

	// CountPending counts rows with migrated=false.
	CountPending(ctx context.Context) (int64, error)
}

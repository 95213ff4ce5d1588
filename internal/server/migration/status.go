package migration

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/chapterhub/internal/common"
	"github.com/dmitrijs2005/chapterhub/internal/server/metrics"
)

// IsMigrated reports the legacy migrated flag; unknown emails are not migrated.
func (e *Engine) IsMigrated(ctx context.Context, email string) (bool, error) {
	u, err := e.repos.LegacyUsers(e.db).FindByEmail(ctx, common.NormalizeEmail(email))
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.Migrated, nil
}

// IsLegacyKnown reports whether email exists in the legacy store.
func (e *Engine) IsLegacyKnown(ctx context.Context, email string) (bool, error) {
	_, err := e.repos.LegacyUsers(e.db).FindByEmail(ctx, common.NormalizeEmail(email))
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PendingCount is the number of legacy principals not yet migrated.
func (e *Engine) PendingCount(ctx context.Context) (int64, error) {
	return e.repos.LegacyUsers(e.db).CountPending(ctx)
}

// TotalUsers counts modern principals plus legacy ones still pending, so a
// migrated user is counted once.
func (e *Engine) TotalUsers(ctx context.Context) (int64, error) {
	modern, err := e.repos.Principals(e.db).Count(ctx)
	if err != nil {
		return 0, err
	}
	pending, err := e.PendingCount(ctx)
	if err != nil {
		return 0, err
	}
	return modern + pending, nil
}

// PopulationGauges feeds the hourly metrics capture.
func (e *Engine) PopulationGauges(ctx context.Context) (map[string]int64, error) {
	pending, err := e.PendingCount(ctx)
	if err != nil {
		return nil, err
	}
	modern, err := e.repos.Principals(e.db).Count(ctx)
	if err != nil {
		return map[string]int64{metrics.GaugePendingLegacyMigrations: pending}, err
	}
	return map[string]int64{
		metrics.GaugePendingLegacyMigrations: pending,
		metrics.GaugeTotalUsers:              modern + pending,
	}, nil
}

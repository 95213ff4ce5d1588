package legacyusers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/chapterhub/internal/common"
	"github.com/dmitrijs2005/chapterhub/internal/dbx"
	"github.com/dmitrijs2005/chapterhub/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.LegacyUser, error) {
	query :=
		`SELECT id, email, password_hash, role, chapter_id, display_name,
		        email_verified, active, migrated, modern_user_id
		 FROM legacy_users
		 WHERE lower(email) = $1
		 `

	var (
		u        models.LegacyUser
		role     string
		chapter  sql.NullString
		modernID sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &role, &chapter, &u.DisplayName,
		&u.EmailVerified, &u.Active, &u.Migrated, &modernID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	u.Role = models.Role(role)
	if chapter.Valid {
		u.ChapterID = &chapter.String
	}
	if modernID.Valid {
		u.ModernUserID = &modernID.String
	}
	return &u, nil
}

func (r *PostgresRepository) MarkMigrated(ctx context.Context, legacyID, modernID string) error {
	query :=
		`UPDATE legacy_users SET migrated = TRUE, modern_user_id = $2
		 WHERE id = $1 AND migrated = FALSE
		 `

	res, err := r.db.ExecContext(ctx, query, legacyID, modernID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrAlreadyMigrated
	}
	return nil
}

func (r *PostgresRepository) CountPending(ctx context.Context) (int64, error) {
	query := `SELECT count(*) FROM legacy_users WHERE migrated = FALSE`

	var n int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

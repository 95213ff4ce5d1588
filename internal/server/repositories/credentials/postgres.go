package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/chapterhub/internal/common"
	"github.com/dmitrijs2005/chapterhub/internal/dbx"
	"github.com/dmitrijs2005/chapterhub/internal/server/models"
)

type PostgresRepository struct {
	db    dbx.DBTX
	newID func() string
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db, newID: uuid.NewString}
}

func (r *PostgresRepository) CreatePassword(ctx context.Context, userID, verifier string) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (id, user_id, provider_id, password)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at
		 `

	a := &models.Account{
		ID:         r.newID(),
		UserID:     userID,
		ProviderID: common.PasswordProvider,
		Password:   verifier,
	}
	err := r.db.QueryRowContext(ctx, query, a.ID, a.UserID, a.ProviderID, a.Password).Scan(&a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) FindPassword(ctx context.Context, userID string) (*models.Account, error) {
	query :=
		`SELECT id, user_id, provider_id, password, created_at
		 FROM accounts
		 WHERE user_id = $1 AND provider_id = $2
		 `

	a := &models.Account{}
	var password sql.NullString
	err := r.db.QueryRowContext(ctx, query, userID, common.PasswordProvider).
		Scan(&a.ID, &a.UserID, &a.ProviderID, &password, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	a.Password = password.String
	return a, nil
}

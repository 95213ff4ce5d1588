// Package credentials stores modern-store credential records (accounts).
package credentials

import (
	"context"

	"github.com/dmitrijs2005/chapterhub/internal/server/models"
)

type Repository interface {
	// CreatePassword binds a password verifier to userID. The store allows
	// one password credential per user.
	CreatePassword(ctx context.Context, userID, verifier string) (*models.Account, error)

	// FindPassword returns the password credential or common.ErrorNotFound.
	FindPassword(ctx context.Context, userID string) (*models.Account, error)
}

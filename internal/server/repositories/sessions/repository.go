// Package sessions declares the server-side repository contract for modern
// sessions.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/chapterhub/internal/server/models"
)

// Repository issues, looks up and revokes sessions.
type Repository interface {
	// Create stores s; ID, UserID and ExpiresAt must be set.
	Create(ctx context.Context, s *models.Session) error

	// Find returns the session with the given id or common.ErrorNotFound.
	Find(ctx context.Context, id string) (*models.Session, error)

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
}

// Package sessions declares the refresh-token session store contract and
// its PostgreSQL implementation.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/lemonauth/internal/server/models"
)

// Repository defines operations for issuing, retrieving and revoking
// refresh-token sessions. Sessions are keyed by the SHA-256 of the token.
type Repository interface {
	// Create stores a new session for userID expiring at now+validity.
	Create(ctx context.Context, userID string, tokenHash string, validity time.Duration) error

	// Find returns the session for tokenHash, or common.ErrorNotFound.
	// Expired sessions are returned as-is; callers check ExpiresAt.
	Find(ctx context.Context, tokenHash string) (*models.Session, error)

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, tokenHash string) error

	// DeleteByUser revokes every session of userID and returns how many were removed.
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

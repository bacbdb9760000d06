// Package options declares the option catalogue store and its PostgreSQL
// implementation. Soft-deleted rows are invisible to every method.
package options

import (
	"context"

	"github.com/dmitrijs2005/lemonauth/internal/server/models"
)

type Repository interface {
	// FindByTypeAndName matches name case-insensitively after trimming.
	FindByTypeAndName(ctx context.Context, optionType, name string) (*models.Option, error)
	FindByID(ctx context.Context, id int64) (*models.Option, error)
	Create(ctx context.Context, o *models.Option) (*models.Option, error)
	// Update writes name, remarks, status and updated_by of o.
	Update(ctx context.Context, o *models.Option) (*models.Option, error)
	ListMinimal(ctx context.Context) ([]models.OptionListItem, error)
	ListByType(ctx context.Context, optionType string) ([]models.Option, error)
}

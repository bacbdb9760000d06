package options

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/lemonauth/internal/common"
	"github.com/dmitrijs2005/lemonauth/internal/dbx"
	"github.com/dmitrijs2005/lemonauth/internal/server/models"
)

const columns = `id, type, name, remarks, status, created_at, updated_at, created_by, updated_by`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanOption(row interface{ Scan(...any) error }) (*models.Option, error) {
	o := &models.Option{}
	err := row.Scan(&o.ID, &o.Type, &o.Name, &o.Remarks, &o.Status, &o.CreatedAt, &o.UpdatedAt, &o.CreatedBy, &o.UpdatedBy)
	return o, err
}

func (r *PostgresRepository) one(ctx context.Context, query string, args ...any) (*models.Option, error) {
	o, err := scanOption(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return o, nil
}

func (r *PostgresRepository) FindByTypeAndName(ctx context.Context, optionType, name string) (*models.Option, error) {
	query := `SELECT ` + columns + ` FROM options
		WHERE type = $1 AND lower(name) = lower(trim($2)) AND deleted_at IS NULL
		LIMIT 1`
	return r.one(ctx, query, optionType, name)
}

func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (*models.Option, error) {
	query := `SELECT ` + columns + ` FROM options WHERE id = $1 AND deleted_at IS NULL`
	return r.one(ctx, query, id)
}

func (r *PostgresRepository) Create(ctx context.Context, o *models.Option) (*models.Option, error) {
	query := `
		INSERT INTO options (type, name, remarks, status, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + columns
	return r.one(ctx, query, o.Type, o.Name, o.Remarks, o.Status, o.CreatedBy)
}

func (r *PostgresRepository) Update(ctx context.Context, o *models.Option) (*models.Option, error) {
	query := `
		UPDATE options
		SET name = $2, remarks = $3, status = $4, updated_by = $5, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + columns
	return r.one(ctx, query, o.ID, o.Name, o.Remarks, o.Status, o.UpdatedBy)
}

func (r *PostgresRepository) ListMinimal(ctx context.Context) ([]models.OptionListItem, error) {
	query := `
		SELECT id, type, name FROM options
		WHERE deleted_at IS NULL
		ORDER BY id ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	items := make([]models.OptionListItem, 0)
	for rows.Next() {
		var it models.OptionListItem
		if err := rows.Scan(&it.ID, &it.Type, &it.Name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return items, nil
}

func (r *PostgresRepository) ListByType(ctx context.Context, optionType string) ([]models.Option, error) {
	query := `SELECT ` + columns + ` FROM options
		WHERE type = $1 AND deleted_at IS NULL
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, optionType)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	items := make([]models.Option, 0)
	for rows.Next() {
		o, err := scanOption(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		items = append(items, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return items, nil
}

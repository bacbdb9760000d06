package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/lemonauth/internal/common"
	"github.com/dmitrijs2005/lemonauth/internal/logging"
	"github.com/dmitrijs2005/lemonauth/internal/server/models"
	"github.com/dmitrijs2005/lemonauth/internal/server/repositories/repomanager"
)

// OptionInput is a create (ID nil or zero) or a partial update.
type OptionInput struct {
	ID      *int64
	Type    string
	Name    *string
	Remarks *string
	Status  *bool
}

type OptionService struct {
	store  repomanager.Store
	logger logging.Logger
}

func NewOptionService(store repomanager.Store, logger logging.Logger) *OptionService {
	return &OptionService{store: store, logger: logger.With("module", "option_service")}
}

// CreateOrUpdate creates a new option or applies the non-nil fields of in to
// an existing one. actorID is recorded as creator or last editor.
func (s *OptionService) CreateOrUpdate(ctx context.Context, actorID string, in OptionInput) (*models.Option, error) {
	var out *models.Option

	err := s.store.WithinTx(ctx, func(ctx context.Context, st repomanager.Store) error {
		var err error
		if in.ID == nil || *in.ID == 0 {
			out, err = s.create(ctx, st, actorID, in)
		} else {
			out, err = s.update(ctx, st, actorID, in)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (s *OptionService) create(ctx context.Context, st repomanager.Store, actorID string, in OptionInput) (*models.Option, error) {
	optionType := strings.TrimSpace(in.Type)
	if optionType == "" || in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, common.WithMessage(common.ErrValidationFailed, "type and name are required")
	}
	name := strings.TrimSpace(*in.Name)

	repo := st.Options()

	_, err := repo.FindByTypeAndName(ctx, optionType, name)
	switch {
	case err == nil:
		return nil, common.WithMessage(common.ErrDuplicateIdentity, "option already exists for type: "+optionType)
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("error searching option: %w", err)
	}

	status := true
	if in.Status != nil {
		status = *in.Status
	}

	o, err := repo.Create(ctx, &models.Option{
		Type:      optionType,
		Name:      name,
		Remarks:   in.Remarks,
		Status:    status,
		CreatedBy: &actorID,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating option: %w", err)
	}

	s.logger.Info(ctx, "option created", "id", o.ID, "type", o.Type)
	return o, nil
}

func (s *OptionService) update(ctx context.Context, st repomanager.Store, actorID string, in OptionInput) (*models.Option, error) {
	repo := st.Options()

	o, err := repo.FindByID(ctx, *in.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.WithMessage(common.ErrorNotFound, "option not found")
		}
		return nil, fmt.Errorf("error searching option: %w", err)
	}

	updated := false
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, common.WithMessage(common.ErrValidationFailed, "name must not be empty")
		}
		o.Name = strings.TrimSpace(*in.Name)
		updated = true
	}
	if in.Remarks != nil {
		o.Remarks = in.Remarks
		updated = true
	}
	if in.Status != nil {
		o.Status = *in.Status
		updated = true
	}
	if !updated {
		return nil, common.WithMessage(common.ErrValidationFailed, "no fields to update")
	}
	o.UpdatedBy = &actorID

	o, err = repo.Update(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("error updating option: %w", err)
	}
	return o, nil
}

func (s *OptionService) ListMinimal(ctx context.Context) ([]models.OptionListItem, error) {
	items, err := s.store.Options().ListMinimal(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing options: %w", err)
	}
	return items, nil
}

func (s *OptionService) ListByType(ctx context.Context, optionType string) ([]models.Option, error) {
	items, err := s.store.Options().ListByType(ctx, optionType)
	if err != nil {
		return nil, fmt.Errorf("error listing options: %w", err)
	}
	return items, nil
}

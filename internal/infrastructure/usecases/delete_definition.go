package usecases

import (
	"context"
	"fmt"

	"github.com/sophialabs/mockdeck/internal/domain/definition"
	"github.com/sophialabs/mockdeck/internal/domain/sequence"
	"github.com/sophialabs/mockdeck/internal/infrastructure/ports"
)

// DeleteDefinitionUseCase removes a definition from its source file and
// reloads the catalog.
type DeleteDefinitionUseCase struct {
	repo      definition.Repository
	loader    *LoadCatalogUseCase
	sequences *sequence.Tracker
	logger    ports.Logger
}

// NewDeleteDefinitionUseCase creates a new use case. loader and sequences
// may be nil.
func NewDeleteDefinitionUseCase(repo definition.Repository, loader *LoadCatalogUseCase, sequences *sequence.Tracker, logger ports.Logger) *DeleteDefinitionUseCase {
	return &DeleteDefinitionUseCase{
		repo:      repo,
		loader:    loader,
		sequences: sequences,
		logger:    logger,
	}
}

// Execute removes the definition with the given ID.
func (uc *DeleteDefinitionUseCase) Execute(ctx context.Context, id string) error {
	existing, err := uc.repo.LoadByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find definition %q: %w", id, err)
	}

	if err := uc.repo.DeleteDefinition(ctx, existing); err != nil {
		return fmt.Errorf("failed to delete definition %q: %w", id, err)
	}
	if uc.sequences != nil {
		uc.sequences.Reset(id)
	}

	uc.logger.Info("definition deleted", "id", id)

	if uc.loader != nil {
		if _, err := uc.loader.Execute(ctx); err != nil {
			return fmt.Errorf("reload after delete: %w", err)
		}
	}
	return nil
}

package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/sophialabs/mockdeck/internal/domain/definition"
	"github.com/sophialabs/mockdeck/internal/infrastructure/ports"
)

// ErrInvalidDefinition reports YAML that cannot be saved.
var ErrInvalidDefinition = errors.New("invalid definition")

// SaveDefinitionUseCase writes a definition's YAML to the catalog on disk
// and reloads the catalog.
type SaveDefinitionUseCase struct {
	repo   definition.Repository
	loader *LoadCatalogUseCase
	logger ports.Logger
}

// NewSaveDefinitionUseCase creates a new use case. loader may be nil.
func NewSaveDefinitionUseCase(repo definition.Repository, loader *LoadCatalogUseCase, logger ports.Logger) *SaveDefinitionUseCase {
	return &SaveDefinitionUseCase{
		repo:   repo,
		loader: loader,
		logger: logger,
	}
}

// SaveRequest describes a create (ID empty) or an update.
type SaveRequest struct {
	ID         string
	Collection string
	YAML       []byte
}

// Execute saves the definition and returns its ID. New definitions without
// an id field get a generated one.
func (uc *SaveDefinitionUseCase) Execute(ctx context.Context, req SaveRequest) (string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(req.YAML, &doc); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	root := mappingRoot(&doc)
	if root == nil {
		return "", fmt.Errorf("%w: expected a single YAML mapping", ErrInvalidDefinition)
	}

	id := scalarField(root, "id")

	if req.ID == "" {
		content := req.YAML
		if id == "" {
			id = uuid.NewString()
			root.Content = append([]*yaml.Node{
				{Kind: yaml.ScalarNode, Value: "id"},
				{Kind: yaml.ScalarNode, Value: id},
			}, root.Content...)
			out, err := yaml.Marshal(&doc)
			if err != nil {
				return "", fmt.Errorf("encode definition: %w", err)
			}
			content = out
		}

		if _, err := uc.repo.LoadByID(ctx, id); err == nil {
			return "", fmt.Errorf("%w: %q", definition.ErrAlreadyExists, id)
		} else if !errors.Is(err, definition.ErrNotFound) {
			return "", fmt.Errorf("failed to look up definition %q: %w", id, err)
		}

		d := &definition.Definition{ID: id, CollectionID: req.Collection, SourceIndex: -1}
		if err := uc.repo.SaveDefinition(ctx, d, content); err != nil {
			return "", fmt.Errorf("failed to create definition: %w", err)
		}
		uc.logger.Info("definition created", "id", id, "collection", req.Collection)
		return id, uc.reload(ctx)
	}

	if id != "" && id != req.ID {
		return "", fmt.Errorf("%w: id %q does not match %q", ErrInvalidDefinition, id, req.ID)
	}

	existing, err := uc.repo.LoadByID(ctx, req.ID)
	if err != nil {
		return "", fmt.Errorf("failed to find definition %q: %w", req.ID, err)
	}

	if err := uc.repo.SaveDefinition(ctx, existing, req.YAML); err != nil {
		return "", fmt.Errorf("failed to save definition %q: %w", req.ID, err)
	}
	uc.logger.Info("definition updated", "id", req.ID)
	return req.ID, uc.reload(ctx)
}

func (uc *SaveDefinitionUseCase) reload(ctx context.Context) error {
	if uc.loader == nil {
		return nil
	}
	if _, err := uc.loader.Execute(ctx); err != nil {
		return fmt.Errorf("reload after save: %w", err)
	}
	return nil
}

func mappingRoot(doc *yaml.Node) *yaml.Node {
	n := doc
	if n.Kind == yaml.DocumentNode && len(n.Content) == 1 {
		n = n.Content[0]
	}
	if n.Kind != yaml.MappingNode {
		return nil
	}
	return n
}

func scalarField(m *yaml.Node, key string) string {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key && m.Content[i+1].Kind == yaml.ScalarNode {
			return m.Content[i+1].Value
		}
	}
	return ""
}

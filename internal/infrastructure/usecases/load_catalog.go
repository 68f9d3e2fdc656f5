package usecases

import (
	"context"
	"fmt"

	"github.com/sophialabs/mockdeck/internal/domain/definition"
	"github.com/sophialabs/mockdeck/internal/infrastructure/ports"
	"github.com/sophialabs/mockdeck/internal/infrastructure/services"
)

// LoadCatalogUseCase loads all definitions, compiles them and publishes the
// resulting catalog.
type LoadCatalogUseCase struct {
	repo     definition.Repository
	compiler *services.Compiler
	live     *services.LiveCatalog
	logger   ports.Logger
	observer CatalogObserver
}

// CatalogObserver is told about every load attempt.
type CatalogObserver interface {
	CatalogLoaded(definitions int, err error)
}

// NewLoadCatalogUseCase creates a new use case. live may be nil, in which
// case Execute only builds the catalog.
func NewLoadCatalogUseCase(repo definition.Repository, compiler *services.Compiler, live *services.LiveCatalog, logger ports.Logger) *LoadCatalogUseCase {
	return &LoadCatalogUseCase{
		repo:     repo,
		compiler: compiler,
		live:     live,
		logger:   logger,
	}
}

// SetObserver registers o to be notified after each Execute.
func (uc *LoadCatalogUseCase) SetObserver(o CatalogObserver) {
	uc.observer = o
}

// Execute loads, compiles and validates every definition. Definitions that
// fail to compile are skipped with a warning; duplicate IDs fail the whole
// load and leave the published catalog untouched.
func (uc *LoadCatalogUseCase) Execute(ctx context.Context) (*services.Catalog, error) {
	catalog, err := uc.load(ctx)
	if uc.observer != nil {
		n := 0
		if catalog != nil {
			n = catalog.Len()
		}
		uc.observer.CatalogLoaded(n, err)
	}
	return catalog, err
}

func (uc *LoadCatalogUseCase) load(ctx context.Context) (*services.Catalog, error) {
	defs, err := uc.repo.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load definitions: %w", err)
	}

	uc.logger.Info("loaded definitions from repository", "count", len(defs))

	catalog := services.NewCatalog()
	var compileErrors int

	for _, d := range defs {
		if err := uc.compiler.Compile(d); err != nil {
			compileErrors++
			uc.logger.Warn("failed to compile definition", "id", d.ID, "file", d.SourceFile, "error", err)
			continue
		}
		if err := catalog.Add(d); err != nil {
			return nil, err
		}
		uc.logger.Debug("compiled definition", "id", d.ID, "method", d.Method, "route", d.Route)
	}

	if compileErrors > 0 {
		uc.logger.Warn("some definitions failed to compile", "errors", compileErrors)
	}

	buckets, err := uc.repo.LoadBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load data buckets: %w", err)
	}
	catalog.SetBuckets(buckets)

	if uc.live != nil {
		uc.live.Swap(catalog)
	}

	uc.logger.Info("catalog built", "definitions", catalog.Len(), "collections", len(buckets))

	return catalog, nil
}

package definition

import (
	"context"
	"errors"
)

// ErrNotFound indicates a definition was not found.
var ErrNotFound = errors.New("definition not found")

// ErrAlreadyExists indicates a definition ID is already in use.
var ErrAlreadyExists = errors.New("definition already exists")

// Buckets maps a collection ID to its named data buckets.
type Buckets map[string]map[string]any

// Repository is the port for loading and persisting definitions.
type Repository interface {
	// LoadAll loads every definition in storage order.
	LoadAll(ctx context.Context) ([]*Definition, error)

	// LoadBuckets loads the data buckets of every collection.
	LoadBuckets(ctx context.Context) (Buckets, error)

	// LoadByID loads a single definition by its unique ID.
	// Returns ErrNotFound if no definition with the given ID exists.
	LoadByID(ctx context.Context, id string) (*Definition, error)

	// SaveDefinition writes definition YAML content.
	// A definition without a SourceFile is created in its collection directory.
	SaveDefinition(ctx context.Context, d *Definition, yamlContent []byte) error

	// DeleteDefinition removes a definition from its source file.
	DeleteDefinition(ctx context.Context, d *Definition) error

	// ReadSourceYAML returns the raw YAML of a single definition.
	ReadSourceYAML(ctx context.Context, d *Definition) ([]byte, error)
}

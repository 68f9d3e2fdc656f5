package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/sophialabs/mockdeck/internal/domain/definition"
)

const (
	// DefaultGlob selects definition files anywhere under the root.
	DefaultGlob = "**/*.{yaml,yml}"

	dataDir = "_data"
)

var _ definition.Repository = (*YAMLRepository)(nil)

// YAMLRepository loads definitions from YAML files in a directory tree.
// Each first-level directory is a collection; data buckets live in
// <collection>/_data/<name>.json.
type YAMLRepository struct {
	rootDir  string
	glob     string
	resolver *IncludeResolver
}

// NewYAMLRepository creates a repository rooted at rootDir. An empty glob
// means DefaultGlob.
func NewYAMLRepository(rootDir, glob string) (*YAMLRepository, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root directory: %w", err)
	}
	if glob == "" {
		glob = DefaultGlob
	}
	if !doublestar.ValidatePattern(glob) {
		return nil, fmt.Errorf("invalid definition glob %q", glob)
	}
	return &YAMLRepository{
		rootDir:  absRoot,
		glob:     glob,
		resolver: NewIncludeResolver(absRoot),
	}, nil
}

// RootDir returns the absolute catalog root.
func (r *YAMLRepository) RootDir() string {
	return r.rootDir
}

// LoadAll returns every definition in file path order, then position in file.
func (r *YAMLRepository) LoadAll(_ context.Context) ([]*definition.Definition, error) {
	files, err := r.definitionFiles()
	if err != nil {
		return nil, err
	}

	var defs []*definition.Definition
	for _, rel := range files {
		loaded, err := r.loadFile(rel)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", rel, err)
		}
		defs = append(defs, loaded...)
	}
	return defs, nil
}

func (r *YAMLRepository) definitionFiles() ([]string, error) {
	info, err := os.Stat(r.rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open definitions directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("definitions root %s is not a directory", r.rootDir)
	}

	matches, err := doublestar.Glob(os.DirFS(r.rootDir), r.glob, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to glob definitions: %w", err)
	}

	files := matches[:0]
	for _, m := range matches {
		if !skipped(m) {
			files = append(files, m)
		}
	}
	slices.Sort(files)
	return files, nil
}

func (r *YAMLRepository) loadFile(rel string) ([]*definition.Definition, error) {
	abs := filepath.Join(r.rootDir, filepath.FromSlash(rel))
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		// Empty file.
		return nil, nil
	}

	if err := r.resolver.ResolveIncludes(&doc, filepath.Dir(abs)); err != nil {
		return nil, fmt.Errorf("failed to resolve includes: %w", err)
	}

	collection := collectionOf(rel)
	content := doc.Content[0]

	if content.Kind == yaml.SequenceNode {
		defs := make([]*definition.Definition, 0, len(content.Content))
		for i, item := range content.Content {
			d, err := decodeDefinition(item)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			d.CollectionID = collection
			d.SourceFile = abs
			d.SourceIndex = i
			defs = append(defs, d)
		}
		return defs, nil
	}

	d, err := decodeDefinition(content)
	if err != nil {
		return nil, err
	}
	d.CollectionID = collection
	d.SourceFile = abs
	d.SourceIndex = -1
	return []*definition.Definition{d}, nil
}

func decodeDefinition(node *yaml.Node) (*definition.Definition, error) {
	if node.Kind != yaml.MappingNode {
		return nil, errors.New("definition must be a YAML mapping")
	}
	var yd yamlDefinition
	if err := node.Decode(&yd); err != nil {
		return nil, fmt.Errorf("failed to decode definition: %w", err)
	}
	return yd.toDefinition(), nil
}

// LoadBuckets reads the _data/*.json files of the root and of every
// collection. Each file must hold a JSON object or array.
func (r *YAMLRepository) LoadBuckets(_ context.Context) (definition.Buckets, error) {
	fsys := os.DirFS(r.rootDir)
	buckets := make(definition.Buckets)

	for _, pattern := range []string{dataDir + "/*.json", "*/" + dataDir + "/*.json"} {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("failed to glob data buckets: %w", err)
		}
		for _, rel := range matches {
			value, err := r.loadBucket(rel)
			if err != nil {
				return nil, fmt.Errorf("failed to load bucket %s: %w", rel, err)
			}

			collection := ""
			if dir := path.Dir(path.Dir(rel)); dir != "." {
				collection = dir
			}
			name := strings.TrimSuffix(path.Base(rel), path.Ext(rel))

			if buckets[collection] == nil {
				buckets[collection] = make(map[string]any)
			}
			buckets[collection][name] = value
		}
	}
	return buckets, nil
}

func (r *YAMLRepository) loadBucket(rel string) (any, error) {
	data, err := os.ReadFile(filepath.Join(r.rootDir, filepath.FromSlash(rel)))
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid JSON")
	}
	parsed := gjson.ParseBytes(data)
	if !parsed.IsObject() && !parsed.IsArray() {
		return nil, errors.New("bucket must be a JSON object or array")
	}
	return parsed.Value(), nil
}

// LoadByID loads a single definition by its ID.
func (r *YAMLRepository) LoadByID(ctx context.Context, id string) (*definition.Definition, error) {
	all, err := r.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load definitions: %w", err)
	}
	for _, d := range all {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, definition.ErrNotFound
}

// SaveDefinition writes definition YAML to disk. Definitions without a
// SourceFile are created as <collection>/<id>.yaml; others replace their
// file or their entry in a multi-definition file.
func (r *YAMLRepository) SaveDefinition(_ context.Context, d *definition.Definition, yamlContent []byte) error {
	var check yaml.Node
	if err := yaml.Unmarshal(yamlContent, &check); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}

	if d.SourceFile == "" {
		target, err := r.newFilePath(d)
		if err != nil {
			return err
		}
		if _, err := os.Stat(target); err == nil {
			return fmt.Errorf("%w: file %s", definition.ErrAlreadyExists, target)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("failed to create collection directory: %w", err)
		}
		return atomicWriteFile(target, yamlContent)
	}

	if err := ensureWithin(r.rootDir, d.SourceFile); err != nil {
		return err
	}
	if d.SourceIndex < 0 {
		return atomicWriteFile(d.SourceFile, yamlContent)
	}
	return editSequence(d.SourceFile, d.SourceIndex, func(seq *yaml.Node) error {
		var replacement yaml.Node
		if err := yaml.Unmarshal(yamlContent, &replacement); err != nil {
			return fmt.Errorf("failed to parse replacement YAML: %w", err)
		}
		if replacement.Kind != yaml.DocumentNode || len(replacement.Content) == 0 {
			return errors.New("replacement YAML is empty")
		}
		seq.Content[d.SourceIndex] = replacement.Content[0]
		return nil
	})
}

func (r *YAMLRepository) newFilePath(d *definition.Definition) (string, error) {
	name := d.ID
	if name == "" || strings.ContainsAny(name, `/\`) || skipped(name) {
		return "", fmt.Errorf("definition id %q cannot be used as a file name", d.ID)
	}
	if strings.ContainsAny(d.CollectionID, `/\`) || skipped(d.CollectionID) {
		return "", fmt.Errorf("invalid collection %q", d.CollectionID)
	}

	target := filepath.Join(r.rootDir, d.CollectionID, name+".yaml")
	if err := ensureWithin(r.rootDir, target); err != nil {
		return "", err
	}
	return target, nil
}

// DeleteDefinition removes a definition from its source file. A file left
// without definitions is deleted.
func (r *YAMLRepository) DeleteDefinition(_ context.Context, d *definition.Definition) error {
	if err := ensureWithin(r.rootDir, d.SourceFile); err != nil {
		return err
	}

	if d.SourceIndex < 0 {
		if err := os.Remove(d.SourceFile); err != nil {
			return fmt.Errorf("failed to delete definition file: %w", err)
		}
		return nil
	}

	return editSequence(d.SourceFile, d.SourceIndex, func(seq *yaml.Node) error {
		seq.Content = slices.Delete(seq.Content, d.SourceIndex, d.SourceIndex+1)
		return nil
	})
}

// ReadSourceYAML returns the raw YAML of a single definition, with
// !include tags left as written.
func (r *YAMLRepository) ReadSourceYAML(_ context.Context, d *definition.Definition) ([]byte, error) {
	if d.SourceFile == "" {
		return nil, errors.New("definition has no source file")
	}

	data, err := os.ReadFile(d.SourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read source file: %w", err)
	}
	if d.SourceIndex < 0 {
		return data, nil
	}

	seq, err := sequenceOf(data, d.SourceIndex)
	if err != nil {
		return nil, err
	}
	out, err := yaml.Marshal(seq.Content[d.SourceIndex])
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entry: %w", err)
	}
	return out, nil
}

// sequenceOf parses data and returns its top-level sequence, checking that
// index is in range.
func sequenceOf(data []byte, index int) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("unexpected YAML structure")
	}
	seq := doc.Content[0]
	if seq.Kind != yaml.SequenceNode {
		return nil, errors.New("file is not a YAML sequence")
	}
	if index < 0 || index >= len(seq.Content) {
		return nil, fmt.Errorf("index %d out of range (file has %d entries)", index, len(seq.Content))
	}
	return seq, nil
}

// editSequence applies edit to the top-level sequence of file and writes
// the result back, removing the file when the sequence ends up empty.
func editSequence(file string, index int, edit func(seq *yaml.Node) error) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.SequenceNode {
		return errors.New("file is not a YAML sequence")
	}
	seq := doc.Content[0]
	if index < 0 || index >= len(seq.Content) {
		return fmt.Errorf("index %d out of range (file has %d entries)", index, len(seq.Content))
	}

	if err := edit(seq); err != nil {
		return err
	}
	if len(seq.Content) == 0 {
		return os.Remove(file)
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return atomicWriteFile(file, out)
}

// atomicWriteFile writes content to a temp file then renames it over target.
func atomicWriteFile(target string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".mockdeck-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

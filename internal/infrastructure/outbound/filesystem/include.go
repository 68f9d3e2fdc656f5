package filesystem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	includeTag      = "!include"
	maxIncludeDepth = 10
)

// IncludeResolver splices the content of files referenced by !include tags
// into a YAML node tree. References may start with @root/ (catalog root),
// @here/ (directory of the including file) or be relative to that directory.
type IncludeResolver struct {
	rootDir string
}

// NewIncludeResolver creates a resolver bound to rootDir.
func NewIncludeResolver(rootDir string) *IncludeResolver {
	return &IncludeResolver{rootDir: rootDir}
}

// ResolveIncludes replaces every !include node under node. YAML files are
// spliced as nodes; any other file becomes a string scalar.
func (r *IncludeResolver) ResolveIncludes(node *yaml.Node, currentDir string) error {
	return r.walk(node, currentDir, 0)
}

func (r *IncludeResolver) walk(node *yaml.Node, currentDir string, depth int) error {
	if node == nil {
		return nil
	}
	if depth > maxIncludeDepth {
		return fmt.Errorf("%s nested deeper than %d", includeTag, maxIncludeDepth)
	}

	if node.Tag == includeTag {
		return r.splice(node, currentDir, depth)
	}

	for _, child := range node.Content {
		if err := r.walk(child, currentDir, depth); err != nil {
			return err
		}
	}
	return nil
}

func (r *IncludeResolver) splice(node *yaml.Node, currentDir string, depth int) error {
	ref := strings.TrimSpace(node.Value)
	if ref == "" {
		return errors.New("!include needs a file reference")
	}

	path, err := r.resolve(ref, currentDir)
	if err != nil {
		return fmt.Errorf("resolve !include %q: %w", ref, err)
	}
	if err := ensureWithin(r.rootDir, path); err != nil {
		return fmt.Errorf("!include %q: %w", ref, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read included file %q: %w", ref, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse included YAML %q: %w", ref, err)
		}
		if err := r.walk(&doc, filepath.Dir(path), depth+1); err != nil {
			return err
		}
		if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
			*node = *doc.Content[0]
		}
	default:
		*node = yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(data)}
	}
	return nil
}

func (r *IncludeResolver) resolve(ref, currentDir string) (string, error) {
	switch {
	case strings.HasPrefix(ref, "@root/"):
		return filepath.Join(r.rootDir, strings.TrimPrefix(ref, "@root/")), nil
	case strings.HasPrefix(ref, "@here/"):
		return filepath.Join(currentDir, strings.TrimPrefix(ref, "@here/")), nil
	case filepath.IsAbs(ref):
		return "", errors.New("absolute paths are not allowed")
	default:
		return filepath.Join(currentDir, ref), nil
	}
}

package services

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/sophialabs/mockdeck/internal/domain/definition"
)

const defaultStatus = http.StatusOK

// Compiler normalises loaded definitions so the engine can use them as is.
type Compiler struct {
	rootDir string
}

// NewCompiler creates a new Compiler bound to the given root directory for body_file resolution.
func NewCompiler(rootDir string) (*Compiler, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root directory: %w", err)
	}
	return &Compiler{rootDir: absRoot}, nil
}

// Compile validates d and fills in defaults in place: upper-case method,
// status 200, rule statuses inherited from the definition, body_file
// contents and steps sorted by order.
func (c *Compiler) Compile(d *definition.Definition) error {
	d.ID = strings.TrimSpace(d.ID)
	if d.ID == "" {
		return errors.New("definition id is required")
	}

	d.Method = strings.ToUpper(strings.TrimSpace(d.Method))
	if d.Method == "" {
		d.Method = http.MethodGet
	}
	d.Query = strings.TrimPrefix(d.Query, "?")

	if d.Status == 0 {
		d.Status = defaultStatus
	}
	if err := validateStatus(d.Status); err != nil {
		return fmt.Errorf("definition %q: %w", d.ID, err)
	}

	if d.BodyFile != "" {
		body, err := c.readBodyFile(d.BodyFile)
		if err != nil {
			return fmt.Errorf("definition %q: %w", d.ID, err)
		}
		d.Body = body
		d.ContentType = InferContentType(d.ContentType, d.BodyFile, []byte(body))
	}

	for i := range d.Rules {
		r := &d.Rules[i]
		if strings.TrimSpace(r.Field) == "" || strings.TrimSpace(r.Operator) == "" {
			return fmt.Errorf("definition %q: rule %d needs a field and an operator", d.ID, i)
		}
		if r.Status == 0 {
			r.Status = d.Status
		}
		if err := validateStatus(r.Status); err != nil {
			return fmt.Errorf("definition %q: rule %d: %w", d.ID, i, err)
		}
	}

	for i := range d.Steps {
		s := &d.Steps[i]
		if s.Status == 0 {
			s.Status = defaultStatus
		}
		if err := validateStatus(s.Status); err != nil {
			return fmt.Errorf("definition %q: step %d: %w", d.ID, s.Order, err)
		}
	}
	d.SortSteps()

	return nil
}

func validateStatus(status int) error {
	if status < 100 || status > 599 {
		return fmt.Errorf("invalid status %d", status)
	}
	return nil
}

func (c *Compiler) readBodyFile(path string) (string, error) {
	resolved, err := c.resolveBodyFilePath(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("failed to read body_file %q: %w", path, err)
	}
	return string(data), nil
}

// resolveBodyFilePath resolves and validates body_file paths to prevent directory traversal.
func (c *Compiler) resolveBodyFilePath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("absolute paths not allowed in body_file: %s", path)
	}

	resolved := filepath.Join(c.rootDir, path)

	realPath, err := filepath.EvalSymlinks(resolved)
	if err != nil {
		realPath = filepath.Clean(resolved)
	}

	absRoot, err := filepath.EvalSymlinks(c.rootDir)
	if err != nil {
		absRoot = c.rootDir
	}

	rel, err := filepath.Rel(absRoot, realPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("body_file path %q escapes root directory", path)
	}

	return resolved, nil
}

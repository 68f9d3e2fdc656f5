package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/sophialabs/mockdeck/internal/domain/definition"
	"github.com/sophialabs/mockdeck/internal/domain/sequence"
	"github.com/sophialabs/mockdeck/internal/infrastructure/services"
	"github.com/sophialabs/mockdeck/internal/infrastructure/usecases"
	"github.com/sophialabs/mockdeck/internal/testutil"
)

type mockRepo struct {
	definitions []*definition.Definition
	buckets     definition.Buckets
	err         error

	saved   []*definition.Definition
	content [][]byte
	deleted []string
}

func (r *mockRepo) LoadAll(_ context.Context) ([]*definition.Definition, error) {
	return r.definitions, r.err
}

func (r *mockRepo) LoadBuckets(_ context.Context) (definition.Buckets, error) {
	return r.buckets, r.err
}

func (r *mockRepo) LoadByID(_ context.Context, id string) (*definition.Definition, error) {
	for _, d := range r.definitions {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, definition.ErrNotFound
}

func (r *mockRepo) SaveDefinition(_ context.Context, d *definition.Definition, content []byte) error {
	r.saved = append(r.saved, d)
	r.content = append(r.content, content)
	return r.err
}

func (r *mockRepo) DeleteDefinition(_ context.Context, d *definition.Definition) error {
	r.deleted = append(r.deleted, d.ID)
	return r.err
}

func (r *mockRepo) ReadSourceYAML(_ context.Context, _ *definition.Definition) ([]byte, error) {
	return nil, nil
}

func newTestCompiler(t *testing.T) *services.Compiler {
	t.Helper()
	c, err := services.NewCompiler(t.TempDir())
	if err != nil {
		t.Fatalf("NewCompiler failed: %v", err)
	}
	return c
}

func TestLoadCatalogUseCase_Success(t *testing.T) {
	repo := &mockRepo{
		definitions: []*definition.Definition{
			{ID: "health", Method: "get", Route: "/api/health", Body: "ok", Active: true},
			{ID: "create", Method: "POST", Route: "/api/items", Status: 201, Active: true},
		},
		buckets: definition.Buckets{"shop": {"users": []any{"a"}}},
	}
	live := services.NewLiveCatalog()

	uc := usecases.NewLoadCatalogUseCase(repo, newTestCompiler(t), live, &testutil.NoopLogger{})
	catalog, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if catalog.Len() != 2 {
		t.Errorf("expected 2 definitions, got %d", catalog.Len())
	}
	if got := catalog.ListActive("GET", ""); len(got) != 1 || got[0].ID != "health" {
		t.Errorf("expected health for GET, got %v", got)
	}
	if live.Current() != catalog {
		t.Error("expected catalog to be published")
	}

	buckets, err := live.LoadDataBuckets(context.Background(), "shop")
	if err != nil {
		t.Fatalf("LoadDataBuckets failed: %v", err)
	}
	if _, ok := buckets["users"]; !ok {
		t.Error("expected users bucket")
	}
}

func TestLoadCatalogUseCase_DuplicateIDKeepsPreviousCatalog(t *testing.T) {
	live := services.NewLiveCatalog()
	first := services.NewCatalog()
	live.Swap(first)

	repo := &mockRepo{
		definitions: []*definition.Definition{
			{ID: "dup", Route: "/a"},
			{ID: "dup", Route: "/b"},
		},
	}

	uc := usecases.NewLoadCatalogUseCase(repo, newTestCompiler(t), live, &testutil.NoopLogger{})
	if _, err := uc.Execute(context.Background()); err == nil {
		t.Error("expected error for duplicate IDs")
	}
	if live.Current() != first {
		t.Error("expected previous catalog to stay published")
	}
}

func TestLoadCatalogUseCase_RepoError(t *testing.T) {
	repo := &mockRepo{err: fmt.Errorf("disk error")}

	uc := usecases.NewLoadCatalogUseCase(repo, newTestCompiler(t), nil, &testutil.NoopLogger{})
	if _, err := uc.Execute(context.Background()); err == nil {
		t.Error("expected error from repo failure")
	}
}

func TestLoadCatalogUseCase_PartialCompileFailure(t *testing.T) {
	repo := &mockRepo{
		definitions: []*definition.Definition{
			{ID: "good", Route: "/ok", Active: true},
			{ID: "bad-status", Route: "/bad", Status: 42, Active: true},
			{ID: "  ", Route: "/anon"},
		},
	}
	logger := &testutil.RecordingLogger{}

	uc := usecases.NewLoadCatalogUseCase(repo, newTestCompiler(t), nil, logger)
	catalog, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if catalog.Len() != 1 {
		t.Errorf("expected 1 compiled definition, got %d", catalog.Len())
	}
	if got := logger.Count("warn"); got != 3 {
		t.Errorf("expected 3 warnings, got %d", got)
	}
}

func TestSaveDefinitionUseCase_Create(t *testing.T) {
	repo := &mockRepo{}
	uc := usecases.NewSaveDefinitionUseCase(repo, nil, &testutil.NoopLogger{})

	id, err := uc.Execute(context.Background(), usecases.SaveRequest{
		Collection: "shop",
		YAML:       []byte("id: new-one\nroute: /new\n"),
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if id != "new-one" {
		t.Errorf("expected id new-one, got %q", id)
	}
	if len(repo.saved) != 1 || repo.saved[0].CollectionID != "shop" || repo.saved[0].SourceFile != "" {
		t.Fatalf("unexpected saved definitions: %+v", repo.saved)
	}
}

func TestSaveDefinitionUseCase_CreateGeneratesID(t *testing.T) {
	repo := &mockRepo{}
	uc := usecases.NewSaveDefinitionUseCase(repo, nil, &testutil.NoopLogger{})

	id, err := uc.Execute(context.Background(), usecases.SaveRequest{YAML: []byte("route: /generated\n")})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(id) != 36 {
		t.Errorf("expected a UUID, got %q", id)
	}

	var written struct {
		ID    string `yaml:"id"`
		Route string `yaml:"route"`
	}
	if err := yaml.Unmarshal(repo.content[0], &written); err != nil {
		t.Fatalf("written YAML invalid: %v", err)
	}
	if written.ID != id || written.Route != "/generated" {
		t.Errorf("unexpected written YAML: %+v", written)
	}
}

func TestSaveDefinitionUseCase_Rejects(t *testing.T) {
	repo := &mockRepo{definitions: []*definition.Definition{{ID: "taken"}}}
	uc := usecases.NewSaveDefinitionUseCase(repo, nil, &testutil.NoopLogger{})

	tests := []struct {
		name string
		req  usecases.SaveRequest
		want error
	}{
		{"invalid yaml", usecases.SaveRequest{YAML: []byte("id: [")}, usecases.ErrInvalidDefinition},
		{"not a mapping", usecases.SaveRequest{YAML: []byte("- id: a\n")}, usecases.ErrInvalidDefinition},
		{"duplicate", usecases.SaveRequest{YAML: []byte("id: taken\n")}, definition.ErrAlreadyExists},
		{"id mismatch", usecases.SaveRequest{ID: "taken", YAML: []byte("id: other\n")}, usecases.ErrInvalidDefinition},
		{"unknown update", usecases.SaveRequest{ID: "ghost", YAML: []byte("route: /x\n")}, definition.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Execute(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if len(repo.saved) != 0 {
		t.Errorf("expected nothing saved, got %d", len(repo.saved))
	}
}

func TestSaveDefinitionUseCase_UpdateReloads(t *testing.T) {
	existing := &definition.Definition{ID: "edit", Route: "/edit", SourceFile: "a.yaml", Active: true}
	repo := &mockRepo{definitions: []*definition.Definition{existing}}
	live := services.NewLiveCatalog()
	loader := usecases.NewLoadCatalogUseCase(repo, newTestCompiler(t), live, &testutil.NoopLogger{})

	uc := usecases.NewSaveDefinitionUseCase(repo, loader, &testutil.NoopLogger{})
	if _, err := uc.Execute(context.Background(), usecases.SaveRequest{ID: "edit", YAML: []byte("id: edit\nroute: /edit\n")}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if repo.saved[0] != existing {
		t.Error("expected update to target the existing definition")
	}
	if live.Current() == nil {
		t.Error("expected catalog reload after save")
	}
}

func TestDeleteDefinitionUseCase(t *testing.T) {
	repo := &mockRepo{definitions: []*definition.Definition{{ID: "gone", Route: "/gone"}}}
	tracker := sequence.NewTracker()
	tracker.NextIndex("gone", 3)

	uc := usecases.NewDeleteDefinitionUseCase(repo, nil, tracker, &testutil.NoopLogger{})
	if err := uc.Execute(context.Background(), "gone"); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "gone" {
		t.Errorf("unexpected deletions: %v", repo.deleted)
	}
	if _, ok := tracker.Snapshot()["gone"]; ok {
		t.Error("expected sequence cursor to be cleared")
	}

	if err := uc.Execute(context.Background(), "missing"); !errors.Is(err, definition.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestResetSequencesUseCase(t *testing.T) {
	tracker := sequence.NewTracker()
	tracker.NextIndex("a", 3)
	tracker.NextIndex("b", 3)

	uc := usecases.NewResetSequencesUseCase(tracker, &testutil.NoopLogger{})
	if got := uc.Cursors(); got["a"] != 1 || got["b"] != 1 {
		t.Fatalf("unexpected cursors: %v", got)
	}

	uc.Execute("a")
	if _, ok := uc.Cursors()["a"]; ok {
		t.Error("expected a to be reset")
	}

	uc.Execute("")
	if len(uc.Cursors()) != 0 {
		t.Errorf("expected all cursors reset, got %v", uc.Cursors())
	}
}

type loadObserver struct {
	counts []int
	errs   []error
}

func (o *loadObserver) CatalogLoaded(definitions int, err error) {
	o.counts = append(o.counts, definitions)
	o.errs = append(o.errs, err)
}

func TestLoadCatalogUseCase_NotifiesObserver(t *testing.T) {
	repo := &mockRepo{definitions: []*definition.Definition{{ID: "one", Route: "/one", Active: true}}}
	obs := &loadObserver{}

	uc := usecases.NewLoadCatalogUseCase(repo, newTestCompiler(t), nil, &testutil.NoopLogger{})
	uc.SetObserver(obs)

	if _, err := uc.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	repo.err = errors.New("disk error")
	if _, err := uc.Execute(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	if len(obs.counts) != 2 || obs.counts[0] != 1 || obs.counts[1] != 0 {
		t.Errorf("unexpected counts: %v", obs.counts)
	}
	if obs.errs[0] != nil || obs.errs[1] == nil {
		t.Errorf("unexpected errors: %v", obs.errs)
	}
}

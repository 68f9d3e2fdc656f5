package match_test

import (
	"testing"

	"github.com/sophialabs/mockdeck/internal/domain/match"
)

func TestExtractRouteParams(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		path    string
		want    map[string]string
		ok      bool
	}{
		{"single placeholder", "/api/users/{id}", "/api/users/42", map[string]string{"id": "42"}, true},
		{"two placeholders", "/orgs/{org}/repos/{repo}", "/orgs/acme/repos/web", map[string]string{"org": "acme", "repo": "web"}, true},
		{"embedded placeholder", "/files/{name}.json", "/files/report.json", map[string]string{"name": "report"}, true},
		{"no slash crossing", "/api/users/{id}", "/api/users/42/posts", nil, false},
		{"empty segment", "/api/users/{id}", "/api/users/", nil, false},
		{"literal case sensitive", "/API/users/{id}", "/api/users/1", nil, false},
		{"anchored start", "/users/{id}", "/v1/users/1", nil, false},
		{"regex metachars literal", "/a.b/{id}", "/axb/1", nil, false},
		{"no placeholders exact", "/health", "/health", map[string]string{}, true},
		{"empty braces literal", "/x/{}", "/x/{}", map[string]string{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := match.ExtractRouteParams(tt.pattern, tt.path)
			if ok != tt.ok {
				t.Fatalf("ExtractRouteParams(%q, %q) ok = %v, want %v", tt.pattern, tt.path, ok, tt.ok)
			}
			if !ok {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d params, got %v", len(tt.want), got)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("param %q = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestHasPlaceholders(t *testing.T) {
	if !match.HasPlaceholders("/api/users/{id}") {
		t.Error("expected placeholders")
	}
	if match.HasPlaceholders("/api/users") {
		t.Error("expected no placeholders")
	}
	if match.HasPlaceholders("/api/{}") {
		t.Error("empty braces are not a placeholder")
	}
}

func TestRouteParam(t *testing.T) {
	v, ok := match.RouteParam("/api/users/{id}", "/api/users/7", "id")
	if !ok || v != "7" {
		t.Errorf("expected 7, got %q (ok=%v)", v, ok)
	}

	if _, ok := match.RouteParam("/api/users/{id}", "/api/users/7", "name"); ok {
		t.Error("expected absent for unknown placeholder")
	}
	if _, ok := match.RouteParam("/api/users/{id}", "/other", "id"); ok {
		t.Error("expected absent when path does not match")
	}
}

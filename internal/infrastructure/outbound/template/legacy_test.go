package template_test

import (
	"testing"

	"github.com/sophialabs/mockdeck/internal/infrastructure/outbound/template"
)

func TestRewriteLegacy(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{{random.uuid}}`, `{{ uuid() }}`},
		{`{{ uuid }}`, `{{ uuid() }}`},
		{`{{random.name}}`, `{{ random_name() }}`},
		{`{{random.firstName}}`, `{{ random_first_name() }}`},
		{`{{random.lastName}}`, `{{ random_last_name() }}`},
		{`{{random.email}}`, `{{ random_email() }}`},
		{`{{random.phone}}`, `{{ random_phone() }}`},
		{`{{random.bool}}`, `{{ random_bool() }}`},
		{`{{random.float}}`, `{{ random_float() }}`},
		{`{{random.int(1, 10)}}`, `{{ random_int(1, 10) }}`},
		{`{{random.int -5 5}}`, `{{ random_int(-5, 5) }}`},
		{`{{timestamp}}`, `{{ timestamp() }}`},
		{`{{now}}`, `{{ now_iso() }}`},
		{`{{date.iso}}`, `{{ now_iso() }}`},
		{`{{request.path}}`, `{{ request.path }}`},
		{`{{request.method}}`, `{{ request.method }}`},
		{`{{request.body}}`, `{{ request.body }}`},
		{`{{request.query.page-size}}`, `{{ request.query["page-size"] }}`},
		{`{{request.header.X-Request-Id}}`, `{{ request.headers["X-Request-Id"] }}`},
		{`{{request.headers.accept}}`, `{{ request.headers["accept"] }}`},
		{`{{request.cookie.sid}}`, `{{ request.cookies["sid"] }}`},
		{`{{request.route.id}}`, `{{ request.route["id"] }}`},
		{`{"id":"{{random.uuid}}","at":{{timestamp}}}`, `{"id":"{{ uuid() }}","at":{{ timestamp() }}}`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := template.RewriteLegacy(tt.in); got != tt.want {
				t.Errorf("RewriteLegacy(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRewriteLegacy_LeavesModernSyntaxAlone(t *testing.T) {
	sources := []string{
		`{{ uuid() }}`,
		`{{ now_iso() }}`,
		`{{ request.headers["X-Id"] }}`,
		`{% for u in users %}{{ u.name }}{% endfor %}`,
		`{{ random_int(1, 2) }}`,
		`plain`,
	}

	for _, src := range sources {
		if got := template.RewriteLegacy(src); got != src {
			t.Errorf("RewriteLegacy(%q) = %q, want unchanged", src, got)
		}
	}
}

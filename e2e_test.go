package mockdeck_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sophialabs/mockdeck/internal/infrastructure/wiring"
	"github.com/sophialabs/mockdeck/internal/testutil"
)

func setupE2EServer(t *testing.T) *httptest.Server {
	t.Helper()

	c, err := wiring.New(wiring.Params{
		RootDir:        "./mock",
		TraceSize:      100,
		RateLimiterTTL: 10 * time.Minute,
		Logger:         &testutil.NoopLogger{},
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	_, err = c.Reload(context.Background())
	require.NoError(t, err)

	ts := httptest.NewServer(c.Server())
	t.Cleanup(ts.Close)
	return ts
}

func call(t *testing.T, ts *httptest.Server, method, path, body string, headers ...string) (*http.Response, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	require.NoError(t, err)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func decode(t *testing.T, body string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &out), "body: %s", body)
	return out
}

func TestE2E_HealthCheck(t *testing.T) {
	ts := setupE2EServer(t)

	resp, body := call(t, ts, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "ok", decode(t, body)["status"])
}

func TestE2E_BodyFile(t *testing.T) {
	ts := setupE2EServer(t)

	resp, body := call(t, ts, http.MethodGet, "/api/products", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Len(t, decode(t, body)["products"], 2)
}

func TestE2E_BucketListing(t *testing.T) {
	ts := setupE2EServer(t)

	resp, body := call(t, ts, http.MethodGet, "/api/users", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var users []map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &users))
	require.Len(t, users, 2)
	assert.Equal(t, "Ada Lovelace", users[0]["name"])
}

func TestE2E_UserRoutes(t *testing.T) {
	ts := setupE2EServer(t)

	tests := []struct {
		name       string
		path       string
		headers    []string
		wantStatus int
		check      func(t *testing.T, resp *http.Response, body map[string]any)
	}{
		{
			name:       "route param",
			path:       "/api/users/7",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, resp *http.Response, body map[string]any) {
				assert.Equal(t, "7", body["id"])
				assert.Equal(t, "7", resp.Header.Get("X-User-Id"))
			},
		},
		{
			name:       "flag rule with included headers",
			path:       "/api/users/7",
			headers:    []string{"X-Flag", "on"},
			wantStatus: http.StatusForbidden,
			check: func(t *testing.T, resp *http.Response, body map[string]any) {
				assert.Equal(t, "on", body["flag"])
				assert.Equal(t, "true", resp.Header.Get("X-Mock-Error"))
				assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
			},
		},
		{
			name:       "route rule",
			path:       "/api/users/0",
			wantStatus: http.StatusNotFound,
			check: func(t *testing.T, _ *http.Response, body map[string]any) {
				assert.Equal(t, "user not found", body["error"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := call(t, ts, http.MethodGet, tt.path, "", tt.headers...)
			require.Equal(t, tt.wantStatus, resp.StatusCode, body)
			tt.check(t, resp, decode(t, body))
		})
	}
}

func TestE2E_CreateUser(t *testing.T) {
	ts := setupE2EServer(t)

	resp, body := call(t, ts, http.MethodPost, "/api/users", `{"name":"Grace"}`, "Content-Type", "application/json")
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	created := decode(t, body)
	assert.Equal(t, "Grace", created["name"])
	assert.Equal(t, "eu-west-1", created["region"])
	assert.Len(t, created["id"], 36)

	resp, body = call(t, ts, http.MethodPost, "/api/users", `{}`, "Content-Type", "application/json")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "name is required", decode(t, body)["error"])
}

func TestE2E_IncludedBody(t *testing.T) {
	ts := setupE2EServer(t)

	resp, body := call(t, ts, http.MethodGet, "/api/orders/42", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"order":"42","status":"shipped"}`, body)
}

func TestE2E_Sequence(t *testing.T) {
	ts := setupE2EServer(t)

	var got []int
	for range 3 {
		resp, _ := call(t, ts, http.MethodPost, "/api/payments", "")
		got = append(got, resp.StatusCode)
	}
	assert.Equal(t, []int{200, 500, 200}, got)

	resp, _ := call(t, ts, http.MethodPost, "/__admin/sequences/reset", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = call(t, ts, http.MethodPost, "/api/payments", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestE2E_XPathRule(t *testing.T) {
	ts := setupE2EServer(t)

	resp, body := call(t, ts, http.MethodPost, "/api/orders/search", "<search><priority>high</priority></search>")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, `<results queued="true"/>`, body)

	resp, _ = call(t, ts, http.MethodPost, "/api/orders/search", "<search><priority>low</priority></search>")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/xml", resp.Header.Get("Content-Type"))
}

func TestE2E_NoMatch(t *testing.T) {
	ts := setupE2EServer(t)

	resp, body := call(t, ts, http.MethodDelete, "/api/unknown?x=1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	payload := decode(t, body)
	assert.Equal(t, "DELETE", payload["method"])
	assert.Equal(t, "/api/unknown", payload["path"])
	assert.Equal(t, "x=1", payload["query"])
}

func TestE2E_Admin(t *testing.T) {
	ts := setupE2EServer(t)

	resp, body := call(t, ts, http.MethodGet, "/__admin/definitions", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var defs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &defs))
	assert.Len(t, defs, 8)

	call(t, ts, http.MethodGet, "/api/health", "")
	call(t, ts, http.MethodGet, "/api/nope", "")

	resp, body = call(t, ts, http.MethodGet, "/__admin/requests?last=2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "health", entries[0]["definition_id"])
	assert.Equal(t, false, entries[1]["matched"])

	resp, body = call(t, ts, http.MethodGet, "/__admin/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `mockdeck_requests_total{method="GET",mode="default",status="200",tier="exact"} 1`)
}

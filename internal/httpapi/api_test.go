package httpapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hazyhaar/devaudit/internal/auth"
	"github.com/hazyhaar/devaudit/internal/httpapi"
	"github.com/hazyhaar/devaudit/internal/storage"
	"github.com/hazyhaar/devaudit/pkg/audit"
)

type testSurface struct {
	engine *audit.Engine
	auth   *auth.Auth
	srv    *httptest.Server
}

func newTestSurface(t *testing.T) *testSurface {
	t.Helper()
	engine := audit.NewEngine(audit.Config{
		Backend:              storage.NewMemory(),
		AuthorizedDevelopers: []string{"dev_001", "dev_002"},
	})
	a := auth.New("test-secret", 60)

	mux := http.NewServeMux()
	httpapi.New(engine, a, nil).RegisterRoutes(mux)
	srv := httptest.NewServer(httpapi.SecurityHeaders(mux))

	t.Cleanup(func() {
		srv.Close()
		_ = engine.Close()
	})
	return &testSurface{engine: engine, auth: a, srv: srv}
}

func (ts *testSurface) request(t *testing.T, method, path, developerID, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if developerID != "" {
		token, err := ts.auth.GenerateToken(developerID)
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCreateLog_RequiresAuth(t *testing.T) {
	ts := newTestSurface(t)
	resp := ts.request(t, "POST", "/api/v1/logs", "", `{"model":"UserModel","method":"update_user","result":"success"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCreateLog_ThenQuery(t *testing.T) {
	ts := newTestSurface(t)

	resp := ts.request(t, "POST", "/api/v1/logs", "dev_001",
		`{"model":"UserModel","method":"update_user","result":"success"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	// Drain the async queue so the write is visible to the query.
	_ = ts.engine.Close()

	resp = ts.request(t, "GET", "/api/v1/logs?developer_id=dev_001", "dev_001", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Logs  []audit.Record `json:"logs"`
		Count int            `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Count != 1 || len(body.Logs) != 1 {
		t.Fatalf("expected 1 record, got %+v", body)
	}
	rec := body.Logs[0]
	if rec.DeveloperID != "dev_001" || rec.Model != "UserModel" || rec.Result != audit.ResultSuccess {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.Error != nil {
		t.Errorf("expected null error, got %+v", rec.Error)
	}
}

func TestCreateLog_UnauthorizedDeveloper(t *testing.T) {
	ts := newTestSurface(t)

	// Valid token, but the developer is outside the authorized set.
	resp := ts.request(t, "POST", "/api/v1/logs", "intruder_007",
		`{"model":"UserModel","method":"update_user","result":"success"}`)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestCreateLog_InvalidResult(t *testing.T) {
	ts := newTestSurface(t)
	resp := ts.request(t, "POST", "/api/v1/logs", "dev_001",
		`{"model":"UserModel","method":"update_user","result":"maybe"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateLog_ErrorPayloadForcesFailure(t *testing.T) {
	ts := newTestSurface(t)

	resp := ts.request(t, "POST", "/api/v1/logs", "dev_001",
		`{"action":"db_transaction","model":"OrderModel","method":"calculate_discount","result":"success",
		  "error":{"kind":"error","message":"division by zero","trace":""}}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	_ = ts.engine.Close()

	resp = ts.request(t, "GET", "/api/v1/logs?result=failure", "dev_001", "")
	var body struct {
		Logs []audit.Record `json:"logs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(body.Logs) != 1 {
		t.Fatalf("expected 1 failure record, got %d", len(body.Logs))
	}
	if body.Logs[0].Error == nil || body.Logs[0].Error.Message != "division by zero" {
		t.Errorf("error payload lost: %+v", body.Logs[0].Error)
	}
}

func TestQueryLogs_RequiresAuth(t *testing.T) {
	ts := newTestSurface(t)
	resp := ts.request(t, "GET", "/api/v1/logs", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestSurface(t)
	resp := ts.request(t, "GET", "/api/v1/healthz", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("expected security headers, got X-Content-Type-Options=%q", got)
	}
}

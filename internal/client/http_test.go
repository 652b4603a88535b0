package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/forgeline/stageflow/internal/engine"
	"github.com/forgeline/stageflow/internal/model"
)

// testHandler captures the incoming request details and returns a canned response.
type testHandler struct {
	// captured from the request
	method      string
	path        string
	query       string
	body        string
	contentType string
	authHeader  string

	// canned response
	statusCode   int
	responseBody string
}

func (h *testHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.method = r.Method
	h.path = r.URL.Path
	h.query = r.URL.RawQuery
	h.contentType = r.Header.Get("Content-Type")
	h.authHeader = r.Header.Get("Authorization")
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		h.body = string(data)
	}

	w.Header().Set("Content-Type", "application/json")
	if h.statusCode != 0 {
		w.WriteHeader(h.statusCode)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if h.responseBody != "" {
		_, _ = w.Write([]byte(h.responseBody))
	}
}

// newTestClient creates an HTTPClient pointed at a test server with the given handler.
func newTestClient(h http.Handler) (*HTTPClient, *httptest.Server) {
	srv := httptest.NewServer(h)
	c := NewHTTPClient(srv.URL, "")
	return c, srv
}

func TestHTTPClient_CreateProject(t *testing.T) {
	h := &testHandler{
		statusCode: http.StatusCreated,
		responseBody: `{
			"cursor": {"project": "sf-web", "current_stage": "discover"},
			"accessible_stages": [{"id": "discover", "order": 1, "name": "Discover"}]
		}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	summary, err := c.CreateProject(context.Background(), "sf-web")
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	if h.method != http.MethodPost {
		t.Errorf("method = %q, want POST", h.method)
	}
	if h.path != "/v1/projects" {
		t.Errorf("path = %q, want /v1/projects", h.path)
	}
	if h.contentType != "application/json" {
		t.Errorf("content-type = %q, want application/json", h.contentType)
	}

	var reqBody map[string]string
	if err := json.Unmarshal([]byte(h.body), &reqBody); err != nil {
		t.Fatalf("unmarshaling request body: %v", err)
	}
	if reqBody["project"] != "sf-web" {
		t.Errorf("request project = %q, want sf-web", reqBody["project"])
	}

	if summary.Cursor.CurrentStage != "discover" {
		t.Errorf("current stage = %q, want discover", summary.Cursor.CurrentStage)
	}
	if len(summary.AccessibleStages) != 1 {
		t.Errorf("accessible stages = %d, want 1", len(summary.AccessibleStages))
	}
}

func TestHTTPClient_GetProjectNotFound(t *testing.T) {
	h := &testHandler{
		statusCode:   http.StatusNotFound,
		responseBody: `{"error": "unknown project \"nope\""}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	_, err := c.GetProject(context.Background(), "nope")
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", apiErr.StatusCode)
	}
	if apiErr.Message != `unknown project "nope"` {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestHTTPClient_ToggleChecklistItem(t *testing.T) {
	h := &testHandler{
		responseBody: `{"project": "sf-web", "stage_id": "design", "status": "ready"}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	gate, err := c.ToggleChecklistItem(context.Background(), "sf-web", "design", "sf-item1", true, "alice")
	if err != nil {
		t.Fatalf("ToggleChecklistItem() error = %v", err)
	}

	if h.path != "/v1/projects/sf-web/gates/design/checklist/sf-item1" {
		t.Errorf("path = %q", h.path)
	}
	var reqBody map[string]any
	if err := json.Unmarshal([]byte(h.body), &reqBody); err != nil {
		t.Fatalf("unmarshaling request body: %v", err)
	}
	if reqBody["completed"] != true || reqBody["actor"] != "alice" {
		t.Errorf("request body = %v", reqBody)
	}
	if gate.Status != model.GateReady {
		t.Errorf("gate status = %s, want ready", gate.Status)
	}
}

func TestHTTPClient_SubmitApproval(t *testing.T) {
	h := &testHandler{
		responseBody: `{"project": "sf-web", "stage_id": "design", "status": "passed"}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	gate, err := c.SubmitApproval(context.Background(), &SubmitApprovalRequest{
		Project:  "sf-web",
		Stage:    "design",
		User:     "carol",
		Role:     "reviewer",
		Decision: "approved",
		Comment:  "ship it",
	})
	if err != nil {
		t.Fatalf("SubmitApproval() error = %v", err)
	}

	if h.path != "/v1/projects/sf-web/gates/design/approvals" {
		t.Errorf("path = %q", h.path)
	}
	var reqBody map[string]any
	if err := json.Unmarshal([]byte(h.body), &reqBody); err != nil {
		t.Fatalf("unmarshaling request body: %v", err)
	}
	// Project and Stage ride in the path, not the body.
	if _, ok := reqBody["Project"]; ok {
		t.Error("project leaked into request body")
	}
	if reqBody["decision"] != "approved" || reqBody["comment"] != "ship it" {
		t.Errorf("request body = %v", reqBody)
	}
	if gate.Status != model.GatePassed {
		t.Errorf("gate status = %s, want passed", gate.Status)
	}
}

func TestHTTPClient_RecordAutoCheck(t *testing.T) {
	h := &testHandler{
		responseBody: `{"project": "sf-web", "stage_id": "develop", "status": "pending"}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	score := 0.93
	_, err := c.RecordAutoCheck(context.Background(), "sf-web", "develop", model.AutoCheck{
		ID:     "ci",
		Label:  "CI build",
		Passed: true,
		Score:  &score,
	})
	if err != nil {
		t.Fatalf("RecordAutoCheck() error = %v", err)
	}

	if h.method != http.MethodPut {
		t.Errorf("method = %q, want PUT", h.method)
	}
	if h.path != "/v1/projects/sf-web/gates/develop/checks/ci" {
		t.Errorf("path = %q", h.path)
	}
	var reqBody map[string]any
	if err := json.Unmarshal([]byte(h.body), &reqBody); err != nil {
		t.Fatalf("unmarshaling request body: %v", err)
	}
	if reqBody["passed"] != true || reqBody["score"] != 0.93 {
		t.Errorf("request body = %v", reqBody)
	}
}

func TestHTTPClient_ListCommits(t *testing.T) {
	h := &testHandler{
		responseBody: `{"commits": [{"id": 3, "project": "sf-web"}, {"id": 2, "project": "sf-web"}], "total": 7}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	resp, err := c.ListCommits(context.Background(), "sf-web", model.CommitFilter{
		Stage:  "design",
		Author: "alice",
		Limit:  2,
		Offset: 1,
	})
	if err != nil {
		t.Fatalf("ListCommits() error = %v", err)
	}

	if h.path != "/v1/projects/sf-web/commits" {
		t.Errorf("path = %q", h.path)
	}
	for _, want := range []string{"stage=design", "author=alice", "limit=2", "offset=1"} {
		if !strings.Contains(h.query, want) {
			t.Errorf("query %q missing %q", h.query, want)
		}
	}
	if resp.Total != 7 || len(resp.Commits) != 2 {
		t.Errorf("total = %d, commits = %d", resp.Total, len(resp.Commits))
	}
	if resp.Commits[0].ID != 3 {
		t.Errorf("first commit id = %d, want 3", resp.Commits[0].ID)
	}
}

func TestHTTPClient_Rollback(t *testing.T) {
	h := &testHandler{
		statusCode:   http.StatusCreated,
		responseBody: `{"id": 9, "project": "sf-web", "rollback_of": 4}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	commit, err := c.Rollback(context.Background(), "sf-web", 4, "alice", "4")
	if err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}

	if h.path != "/v1/projects/sf-web/commits/4/rollback" {
		t.Errorf("path = %q", h.path)
	}
	var reqBody map[string]string
	if err := json.Unmarshal([]byte(h.body), &reqBody); err != nil {
		t.Fatalf("unmarshaling request body: %v", err)
	}
	if reqBody["confirm"] != "4" {
		t.Errorf("confirm = %q, want 4", reqBody["confirm"])
	}
	if commit.RollbackOf == nil || *commit.RollbackOf != 4 {
		t.Errorf("rollback_of = %v, want 4", commit.RollbackOf)
	}
}

func TestHTTPClient_CreateCommit(t *testing.T) {
	h := &testHandler{
		statusCode:   http.StatusCreated,
		responseBody: `{"id": 1, "project": "sf-web", "stage_id": "discover", "message": "draft brief"}`,
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	commit, err := c.CreateCommit(context.Background(), &engine.CommitInput{
		Project:      "sf-web",
		Stage:        "discover",
		Author:       "alice",
		Message:      "draft brief",
		Artifacts:    []model.CommitArtifact{{Name: "brief.md", ChangeSummary: "+40 -0"}},
		BaseVersions: map[string]int64{"brief.md": 0},
	})
	if err != nil {
		t.Fatalf("CreateCommit() error = %v", err)
	}

	if h.path != "/v1/projects/sf-web/commits" {
		t.Errorf("path = %q", h.path)
	}
	if commit.ID != 1 {
		t.Errorf("commit id = %d, want 1", commit.ID)
	}
}

func TestHTTPClient_Reopen(t *testing.T) {
	h := &testHandler{responseBody: `{"project": "sf-web", "stage_id": "design", "status": "pending"}`}
	c, srv := newTestClient(h)
	defer srv.Close()

	gate, err := c.Reopen(context.Background(), "sf-web", "design", "alice", "wireframes changed")
	if err != nil {
		t.Fatalf("Reopen() error = %v", err)
	}
	if h.method != http.MethodPost || h.path != "/v1/projects/sf-web/gates/design/reopen" {
		t.Errorf("request = %s %s", h.method, h.path)
	}
	if !strings.Contains(h.body, `"reason":"wireframes changed"`) {
		t.Errorf("body = %s", h.body)
	}
	if gate.Status != model.GatePending {
		t.Errorf("status = %s, want pending", gate.Status)
	}
}

func TestHTTPClient_AuthToken(t *testing.T) {
	h := &testHandler{responseBody: `{"status": "ok"}`}
	srv := httptest.NewServer(h)
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "sekrit")
	status, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if status != "ok" {
		t.Errorf("status = %q, want ok", status)
	}
	if h.authHeader != "Bearer sekrit" {
		t.Errorf("Authorization = %q, want Bearer sekrit", h.authHeader)
	}
}

func TestHTTPClient_ErrorWithoutJSONBody(t *testing.T) {
	h := &testHandler{
		statusCode:   http.StatusBadGateway,
		responseBody: "upstream exploded",
	}
	c, srv := newTestClient(h)
	defer srv.Close()

	_, err := c.ListStages(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway || apiErr.Message != "upstream exploded" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestHTTPClient_ImplementsWorkflowClient(t *testing.T) {
	var _ WorkflowClient = (*HTTPClient)(nil)
}

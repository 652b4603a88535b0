package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/forgeline/stageflow/internal/engine"
	"github.com/forgeline/stageflow/internal/model"
)

// HTTPClient implements WorkflowClient using the stageflow HTTP/JSON REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Projects ---

func (c *HTTPClient) CreateProject(ctx context.Context, project string) (*engine.ProjectSummary, error) {
	body := map[string]string{"project": project}
	var summary engine.ProjectSummary
	if err := c.doJSON(ctx, http.MethodPost, "/v1/projects", body, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *HTTPClient) GetProject(ctx context.Context, project string) (*engine.ProjectSummary, error) {
	var summary engine.ProjectSummary
	if err := c.doJSON(ctx, http.MethodGet, "/v1/projects/"+url.PathEscape(project), nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *HTTPClient) ListStages(ctx context.Context) ([]model.Stage, error) {
	var resp struct {
		Stages []model.Stage `json:"stages"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/stages", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Stages, nil
}

// --- Cursor ---

func (c *HTTPClient) SetViewingStage(ctx context.Context, project, user, stage string) (*model.ViewState, error) {
	body := map[string]string{"user": user, "stage": stage}
	var view model.ViewState
	if err := c.doJSON(ctx, http.MethodPut, "/v1/projects/"+url.PathEscape(project)+"/viewing", body, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *HTTPClient) Advance(ctx context.Context, project, actor string) (*model.Cursor, error) {
	body := map[string]string{"actor": actor}
	var cursor model.Cursor
	if err := c.doJSON(ctx, http.MethodPost, "/v1/projects/"+url.PathEscape(project)+"/advance", body, &cursor); err != nil {
		return nil, err
	}
	return &cursor, nil
}

func (c *HTTPClient) GetTree(ctx context.Context, project, user string) (*model.ArtifactTree, error) {
	path := "/v1/projects/" + url.PathEscape(project) + "/tree?user=" + url.QueryEscape(user)
	var tree model.ArtifactTree
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &tree); err != nil {
		return nil, err
	}
	return &tree, nil
}

// --- Gates ---

func (c *HTTPClient) GetGate(ctx context.Context, project, stage string) (*model.GateRecord, error) {
	path := "/v1/projects/" + url.PathEscape(project) + "/gates/" + url.PathEscape(stage)
	var gate model.GateRecord
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &gate); err != nil {
		return nil, err
	}
	return &gate, nil
}

func (c *HTTPClient) ListGates(ctx context.Context, project string) ([]*model.GateRecord, error) {
	var resp struct {
		Gates []*model.GateRecord `json:"gates"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/projects/"+url.PathEscape(project)+"/gates", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Gates, nil
}

func (c *HTTPClient) ToggleChecklistItem(ctx context.Context, project, stage, item string, completed bool, actor string) (*model.GateRecord, error) {
	path := "/v1/projects/" + url.PathEscape(project) + "/gates/" + url.PathEscape(stage) + "/checklist/" + url.PathEscape(item)
	body := map[string]any{"completed": completed, "actor": actor}
	var gate model.GateRecord
	if err := c.doJSON(ctx, http.MethodPost, path, body, &gate); err != nil {
		return nil, err
	}
	return &gate, nil
}

func (c *HTTPClient) SubmitApproval(ctx context.Context, req *SubmitApprovalRequest) (*model.GateRecord, error) {
	path := "/v1/projects/" + url.PathEscape(req.Project) + "/gates/" + url.PathEscape(req.Stage) + "/approvals"
	var gate model.GateRecord
	if err := c.doJSON(ctx, http.MethodPost, path, req, &gate); err != nil {
		return nil, err
	}
	return &gate, nil
}

func (c *HTTPClient) RecordAutoCheck(ctx context.Context, project, stage string, check model.AutoCheck) (*model.GateRecord, error) {
	path := "/v1/projects/" + url.PathEscape(project) + "/gates/" + url.PathEscape(stage) + "/checks/" + url.PathEscape(check.ID)
	body := map[string]any{"label": check.Label, "passed": check.Passed}
	if check.Score != nil {
		body["score"] = *check.Score
	}
	var gate model.GateRecord
	if err := c.doJSON(ctx, http.MethodPut, path, body, &gate); err != nil {
		return nil, err
	}
	return &gate, nil
}

func (c *HTTPClient) Reopen(ctx context.Context, project, stage, actor, reason string) (*model.GateRecord, error) {
	path := "/v1/projects/" + url.PathEscape(project) + "/gates/" + url.PathEscape(stage) + "/reopen"
	body := map[string]string{"actor": actor, "reason": reason}
	var gate model.GateRecord
	if err := c.doJSON(ctx, http.MethodPost, path, body, &gate); err != nil {
		return nil, err
	}
	return &gate, nil
}

func (c *HTTPClient) SignalGate(ctx context.Context, project, stage, status, actor, reason string) (*model.GateRecord, error) {
	path := "/v1/projects/" + url.PathEscape(project) + "/gates/" + url.PathEscape(stage) + "/signal"
	body := map[string]string{"status": status, "actor": actor, "reason": reason}
	var gate model.GateRecord
	if err := c.doJSON(ctx, http.MethodPost, path, body, &gate); err != nil {
		return nil, err
	}
	return &gate, nil
}

// --- Ledger ---

func (c *HTTPClient) CreateCommit(ctx context.Context, req *engine.CommitInput) (*model.Commit, error) {
	path := "/v1/projects/" + url.PathEscape(req.Project) + "/commits"
	var commit model.Commit
	if err := c.doJSON(ctx, http.MethodPost, path, req, &commit); err != nil {
		return nil, err
	}
	return &commit, nil
}

func (c *HTTPClient) GetCommit(ctx context.Context, project string, id int64) (*model.Commit, error) {
	path := fmt.Sprintf("/v1/projects/%s/commits/%d", url.PathEscape(project), id)
	var commit model.Commit
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &commit); err != nil {
		return nil, err
	}
	return &commit, nil
}

func (c *HTTPClient) ListCommits(ctx context.Context, project string, filter model.CommitFilter) (*ListCommitsResponse, error) {
	q := url.Values{}
	if filter.Stage != "" {
		q.Set("stage", filter.Stage)
	}
	if filter.Author != "" {
		q.Set("author", filter.Author)
	}
	if filter.Limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", fmt.Sprintf("%d", filter.Offset))
	}

	path := "/v1/projects/" + url.PathEscape(project) + "/commits"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp ListCommitsResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Rollback(ctx context.Context, project string, id int64, actor, confirm string) (*model.Commit, error) {
	path := fmt.Sprintf("/v1/projects/%s/commits/%d/rollback", url.PathEscape(project), id)
	body := map[string]string{"actor": actor, "confirm": confirm}
	var commit model.Commit
	if err := c.doJSON(ctx, http.MethodPost, path, body, &commit); err != nil {
		return nil, err
	}
	return &commit, nil
}

func (c *HTTPClient) ListArtifacts(ctx context.Context, project string) ([]*model.ArtifactState, error) {
	var resp struct {
		Artifacts []*model.ArtifactState `json:"artifacts"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/projects/"+url.PathEscape(project)+"/artifacts", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Artifacts, nil
}

// --- Events ---

func (c *HTTPClient) GetEvents(ctx context.Context, project string) ([]*model.Event, error) {
	var resp struct {
		Events []*model.Event `json:"events"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/projects/"+url.PathEscape(project)+"/events", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded (for DELETE/204 responses).
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	// 204 No Content, success with no body.
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

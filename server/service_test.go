package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/skillsenselab/taskflow/affinity"
	"github.com/skillsenselab/taskflow/dag"
	"github.com/skillsenselab/taskflow/logger"
	"github.com/skillsenselab/taskflow/runner"
	"github.com/skillsenselab/taskflow/server/middleware"
	"github.com/skillsenselab/taskflow/store"
	"github.com/skillsenselab/taskflow/workflow"
)

func newTestService(t *testing.T, mws ...gin.HandlerFunc) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store.New failed: %v", err)
	}

	fast := func(ctx context.Context, task *workflow.Task, agent affinity.Agent) (string, error) {
		return "ok " + task.ID, nil
	}
	engine := runner.New(fast)

	svc := NewService("taskflow", "test", engine, st, logger.NewDefault("taskflow-test"))
	r := gin.New()
	svc.RegisterRoutes(r, mws...)
	return r, svc
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding envelope: %v (body: %s)", err, w.Body.String())
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		t.Fatalf("decoding data: %v (body: %s)", err, w.Body.String())
	}
}

func samplePipeline() CreateWorkflowRequest {
	return CreateWorkflowRequest{
		Name: "release",
		Tags: []string{"ci"},
		Tasks: []*workflow.Task{
			{ID: "build", Type: workflow.TypeImplementation},
			{ID: "test", Type: workflow.TypeTesting, DependsOn: []workflow.Dependency{{ID: "build"}}},
			{ID: "ship", DependsOn: []workflow.Dependency{{ID: "test"}}},
		},
	}
}

func createPipeline(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/v1/workflows", samplePipeline())
	if w.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", w.Code, w.Body.String())
	}
	var created workflow.Workflow
	decodeData(t, w, &created)
	if created.ID == "" {
		t.Fatal("expected workflow ID in response")
	}
	return created.ID
}

func TestCreateAndGetWorkflow(t *testing.T) {
	r, _ := newTestService(t)
	id := createPipeline(t, r)

	w := doJSON(t, r, http.MethodGet, "/api/v1/workflows/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get returned %d: %s", w.Code, w.Body.String())
	}
	var got workflow.Workflow
	decodeData(t, w, &got)
	if len(got.Tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(got.Tasks))
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/workflows", nil)
	var list []WorkflowSummary
	decodeData(t, w, &list)
	if len(list) != 1 || list[0].WorkflowID != id {
		t.Fatalf("unexpected workflow list: %+v", list)
	}
}

func TestCreateWorkflow_CycleRejected(t *testing.T) {
	r, _ := newTestService(t)
	req := CreateWorkflowRequest{
		Name: "broken",
		Tasks: []*workflow.Task{
			{ID: "a", DependsOn: []workflow.Dependency{{ID: "b"}}},
			{ID: "b", DependsOn: []workflow.Dependency{{ID: "a"}}},
		},
	}
	w := doJSON(t, r, http.MethodPost, "/api/v1/workflows", req)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for cycle, got %d: %s", w.Code, w.Body.String())
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("cycle")) {
		t.Fatalf("expected cycle details in body: %s", w.Body.String())
	}
}

func TestCreateWorkflow_DanglingRejected(t *testing.T) {
	r, _ := newTestService(t)
	req := CreateWorkflowRequest{
		Name: "broken",
		Tasks: []*workflow.Task{
			{ID: "a", DependsOn: []workflow.Dependency{{ID: "ghost"}}},
		},
	}
	w := doJSON(t, r, http.MethodPost, "/api/v1/workflows", req)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for dangling dependency, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetWorkflow_NotFound(t *testing.T) {
	r, _ := newTestService(t)
	w := doJSON(t, r, http.MethodGet, "/api/v1/workflows/ghost", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetTasksAndReady(t *testing.T) {
	r, _ := newTestService(t)
	id := createPipeline(t, r)

	w := doJSON(t, r, http.MethodGet, "/api/v1/workflows/"+id+"/tasks", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("tasks returned %d: %s", w.Code, w.Body.String())
	}
	var tasksResp struct {
		Batches [][]string `json:"batches"`
	}
	decodeData(t, w, &tasksResp)
	if len(tasksResp.Batches) != 3 || tasksResp.Batches[0][0] != "build" {
		t.Fatalf("unexpected batches: %v", tasksResp.Batches)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/workflows/"+id+"/ready", nil)
	var readyResp struct {
		Ready []string `json:"ready"`
	}
	decodeData(t, w, &readyResp)
	if len(readyResp.Ready) != 1 || readyResp.Ready[0] != "build" {
		t.Fatalf("unexpected ready set: %v", readyResp.Ready)
	}
}

func TestExecuteAndResults(t *testing.T) {
	r, _ := newTestService(t)
	id := createPipeline(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/v1/workflows/"+id+"/execute", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("execute returned %d: %s", w.Code, w.Body.String())
	}
	var res runner.Result
	decodeData(t, w, &res)
	if res.Phase != workflow.PhaseComplete {
		t.Fatalf("expected complete phase, got %s", res.Phase)
	}
	if len(res.Completed()) != 3 {
		t.Fatalf("expected 3 completed tasks, got %v", res.Order)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/workflows/"+id+"/results", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("results returned %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/workflows/"+id+"/report", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("report returned %d: %s", w.Code, w.Body.String())
	}
}

func TestExecuteWithConcurrentReads(t *testing.T) {
	gin.SetMode(gin.TestMode)
	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store.New failed: %v", err)
	}
	slow := func(ctx context.Context, task *workflow.Task, agent affinity.Agent) (string, error) {
		time.Sleep(5 * time.Millisecond)
		return "ok " + task.ID, nil
	}
	svc := NewService("taskflow", "test", runner.New(slow), st, logger.NewDefault("taskflow-test"))
	r := gin.New()
	svc.RegisterRoutes(r)

	id := createPipeline(t, r)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/workflows/"+id+"/execute", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		done <- rec
	}()

	// Serialize the workflow from other goroutines for the whole run;
	// the race detector flags any unguarded engine write.
	var execRec *httptest.ResponseRecorder
	for execRec == nil {
		select {
		case execRec = <-done:
		default:
			if w := doJSON(t, r, http.MethodGet, "/api/v1/workflows/"+id, nil); w.Code != http.StatusOK {
				t.Fatalf("concurrent get returned %d: %s", w.Code, w.Body.String())
			}
			if w := doJSON(t, r, http.MethodGet, "/metrics", nil); w.Code != http.StatusOK {
				t.Fatalf("concurrent metrics returned %d: %s", w.Code, w.Body.String())
			}
		}
	}
	if execRec.Code != http.StatusOK {
		t.Fatalf("execute returned %d: %s", execRec.Code, execRec.Body.String())
	}

	w := doJSON(t, r, http.MethodGet, "/api/v1/workflows/"+id, nil)
	var final workflow.Workflow
	decodeData(t, w, &final)
	if final.Phase != workflow.PhaseComplete {
		t.Fatalf("expected complete phase after execute, got %s", final.Phase)
	}
	for tid, task := range final.Tasks {
		if task.Status != dag.StatusCompleted {
			t.Fatalf("expected %s completed, got %s", tid, task.Status)
		}
	}
}

func TestResults_NotFoundBeforeExecute(t *testing.T) {
	r, _ := newTestService(t)
	id := createPipeline(t, r)
	w := doJSON(t, r, http.MethodGet, "/api/v1/workflows/"+id+"/results", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before execution, got %d", w.Code)
	}
}

func TestSaveLoadVersionsDelete(t *testing.T) {
	r, _ := newTestService(t)
	id := createPipeline(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/v1/workflows/"+id+"/save", SaveWorkflowRequest{Tags: []string{"ci"}})
	if w.Code != http.StatusCreated {
		t.Fatalf("save returned %d: %s", w.Code, w.Body.String())
	}
	var meta store.Metadata
	decodeData(t, w, &meta)
	if meta.Version != 1 {
		t.Fatalf("expected version 1, got %d", meta.Version)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/workflows/saved?tag=ci", nil)
	var saved []store.WorkflowInfo
	decodeData(t, w, &saved)
	if len(saved) != 1 || saved[0].WorkflowID != id {
		t.Fatalf("unexpected saved list: %+v", saved)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/workflows/"+id+"/versions", nil)
	var versions []store.VersionInfo
	decodeData(t, w, &versions)
	if len(versions) != 1 {
		t.Fatalf("expected 1 version, got %+v", versions)
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/workflows/load", LoadWorkflowRequest{WorkflowID: id})
	if w.Code != http.StatusOK {
		t.Fatalf("load returned %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodDelete, "/api/v1/workflows/"+id, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete returned %d: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, r, http.MethodGet, "/api/v1/workflows/"+id, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

func TestAgents(t *testing.T) {
	r, _ := newTestService(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/agents", nil)
	var agents []affinity.Agent
	decodeData(t, w, &agents)
	if len(agents) != 3 {
		t.Fatalf("expected 3 agents, got %d", len(agents))
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/agents/Athena", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("agent lookup returned %d", w.Code)
	}
	w = doJSON(t, r, http.MethodGet, "/api/v1/agents/Nobody", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown agent, got %d", w.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	r, _ := newTestService(t)

	w := doJSON(t, r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health returned %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics returned %d: %s", w.Code, w.Body.String())
	}
}

func TestAuthMiddleware(t *testing.T) {
	const secret = "test-secret"
	auth := middleware.Auth(middleware.AuthConfig{
		TokenValidator: middleware.JWTValidator(secret),
	})
	r, _ := newTestService(t, auth)

	// No token.
	w := doJSON(t, r, http.MethodGet, "/api/v1/agents", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	// Health stays open.
	w = doJSON(t, r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected open health endpoint, got %d", w.Code)
	}

	// Bad token.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/agents", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", rec.Code)
	}

	// Valid token.
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "tester",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/v1/agents", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", signed))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d: %s", rec.Code, rec.Body.String())
	}
}

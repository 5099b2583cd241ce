package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/productflow/internal/billing"
	"github.com/fyrsmithlabs/productflow/internal/blob"
	"github.com/fyrsmithlabs/productflow/internal/insights"
	"github.com/fyrsmithlabs/productflow/internal/llm"
	"github.com/fyrsmithlabs/productflow/internal/logging"
	"github.com/fyrsmithlabs/productflow/internal/notify"
	"github.com/fyrsmithlabs/productflow/internal/research"
	"github.com/fyrsmithlabs/productflow/internal/runner"
	"github.com/fyrsmithlabs/productflow/internal/store"
)

type scriptedInvoker struct {
	response string
}

func (f *scriptedInvoker) Invoke(ctx context.Context, messages []llm.Message, format *llm.ResponseFormat) (string, error) {
	return f.response, nil
}

type testServer struct {
	store   *store.Store
	invoker *scriptedInvoker
	server  *Server
}

func newTestServer(t *testing.T, plan string) *testServer {
	t.Helper()

	st := store.OpenTest(t)
	inv := &scriptedInvoker{}
	logger := logging.NewNop()

	r, err := runner.New(10*time.Second, logger, nil)
	require.NoError(t, err)
	t.Cleanup(func() { r.Shutdown(context.Background()) })

	limiter, err := billing.NewLimiter(st, billing.StaticPlanResolver(plan))
	require.NoError(t, err)

	blobs, err := blob.NewFSStore(t.TempDir(), "http://localhost:8080/files")
	require.NoError(t, err)

	insightsSvc, err := insights.NewService(st, inv, notify.Nop{}, r, limiter, http.DefaultClient, logger)
	require.NoError(t, err)

	researchSvc, err := research.NewService(st, inv, notify.Nop{}, r, limiter, logger)
	require.NoError(t, err)

	srv, err := NewServer(st, limiter, blobs, insightsSvc, researchSvc, logger, nil)
	require.NoError(t, err)

	return &testServer{store: st, invoker: inv, server: srv}
}

func (ts *testServer) do(t *testing.T, method, path string, actor string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echoContentType, "application/json")
	if actor != "" {
		req.Header.Set(actorHeader, actor)
	}
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

const echoContentType = "Content-Type"

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, "pro")
	rec := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestActorRequired(t *testing.T) {
	ts := newTestServer(t, "pro")

	rec := ts.do(t, http.MethodGet, "/api/v1/projects", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/projects", "not-a-number", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProjectCRUD(t *testing.T) {
	ts := newTestServer(t, "pro")

	rec := ts.do(t, http.MethodPost, "/api/v1/projects", "1", CreateProjectRequest{Name: "Acme", Description: "feedback"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeJSON[store.Project](t, rec)
	assert.Equal(t, "Acme", created.Name)
	assert.Equal(t, store.ProjectActive, created.Status)

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/projects/%d", created.ID), "1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Other users cannot see it.
	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/projects/%d", created.ID), "2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	name := "Acme v2"
	status := store.ProjectArchived
	rec = ts.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/projects/%d", created.ID), "1",
		UpdateProjectRequest{Name: &name, Status: &status})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeJSON[store.Project](t, rec)
	assert.Equal(t, "Acme v2", updated.Name)
	assert.Equal(t, store.ProjectArchived, updated.Status)

	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/projects/%d", created.ID), "1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/projects/%d", created.ID), "1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProjectLimit(t *testing.T) {
	ts := newTestServer(t, "free")

	// Free plan allows 2 projects.
	for i := 0; i < 2; i++ {
		rec := ts.do(t, http.MethodPost, "/api/v1/projects", "1", CreateProjectRequest{Name: fmt.Sprintf("p%d", i)})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := ts.do(t, http.MethodPost, "/api/v1/projects", "1", CreateProjectRequest{Name: "p3"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "project limit reached")
}

func TestCreateProjectValidation(t *testing.T) {
	ts := newTestServer(t, "pro")

	rec := ts.do(t, http.MethodPost, "/api/v1/projects", "1", CreateProjectRequest{Name: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFileUpload(t *testing.T) {
	ts := newTestServer(t, "pro")

	rec := ts.do(t, http.MethodPost, "/api/v1/projects", "1", CreateProjectRequest{Name: "Acme"})
	require.Equal(t, http.StatusCreated, rec.Code)
	project := decodeJSON[store.Project](t, rec)

	content := base64.StdEncoding.EncodeToString([]byte("interview notes"))
	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/files", project.ID), "1", UploadFileRequest{
		FileName: "interview.txt",
		FileType: store.FileTypeTranscript,
		Content:  content,
		MimeType: "text/plain",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	file := decodeJSON[store.DataFile](t, rec)
	assert.Equal(t, "interview.txt", file.FileName)
	assert.Equal(t, int64(len("interview notes")), file.FileSize)
	assert.Contains(t, file.FileURL, "http://localhost:8080/files/")

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/projects/%d/files", project.ID), "1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	files := decodeJSON[[]store.DataFile](t, rec)
	assert.Len(t, files, 1)

	// Invalid file type rejected.
	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/files", project.ID), "1", UploadFileRequest{
		FileName: "x.txt", FileType: "image", Content: content, MimeType: "text/plain",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunAnalysisNoFiles(t *testing.T) {
	ts := newTestServer(t, "pro")

	rec := ts.do(t, http.MethodPost, "/api/v1/projects", "1", CreateProjectRequest{Name: "Acme"})
	require.Equal(t, http.StatusCreated, rec.Code)
	project := decodeJSON[store.Project](t, rec)

	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/analyses", project.ID), "1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no data files uploaded")
}

func TestGenerateProposalsPrecondition(t *testing.T) {
	ts := newTestServer(t, "pro")

	rec := ts.do(t, http.MethodPost, "/api/v1/projects", "1", CreateProjectRequest{Name: "Acme"})
	require.Equal(t, http.StatusCreated, rec.Code)
	project := decodeJSON[store.Project](t, rec)

	a := &store.Analysis{ProjectID: project.ID, UserID: 1, Status: store.AnalysisProcessing}
	require.NoError(t, ts.store.CreateAnalysis(context.Background(), a))

	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/proposals", project.ID), "1",
		GenerateProposalsRequest{AnalysisID: a.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not completed")
}

func TestStartResearchAccepted(t *testing.T) {
	ts := newTestServer(t, "pro")
	ts.invoker.response = `{"companyName":"Notion Labs","description":"workspace","findings":[{"source":"G2","sourceType":"review","sourceUrl":"https://g2.com","title":"t","content":"c","sentiment":"positive","sentimentScore":70,"category":"usability","tags":[]}]}`

	rec := ts.do(t, http.MethodPost, "/api/v1/projects", "1", CreateProjectRequest{Name: "Acme"})
	require.Equal(t, http.StatusCreated, rec.Code)
	project := decodeJSON[store.Project](t, rec)

	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/research", project.ID), "1",
		StartResearchRequest{CompanyURL: "notion.so"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	started := decodeJSON[store.CompanyResearch](t, rec)
	assert.Equal(t, "https://notion.so", started.CompanyURL)
	assert.Equal(t, store.ResearchSearching, started.Status)

	// Empty URL is a validation error.
	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/research", project.ID), "1",
		StartResearchRequest{CompanyURL: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBillingEndpoints(t *testing.T) {
	ts := newTestServer(t, "free")

	rec := ts.do(t, http.MethodGet, "/api/v1/billing/plans", "1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	plans := decodeJSON[[]billing.Plan](t, rec)
	require.Len(t, plans, 3)
	assert.Equal(t, "free", plans[0].ID)

	rec = ts.do(t, http.MethodPost, "/api/v1/projects", "1", CreateProjectRequest{Name: "Acme"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/billing/usage", "1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	usage := decodeJSON[UsageResponse](t, rec)
	assert.Equal(t, "free", usage.Plan.ID)
	assert.Equal(t, int64(1), usage.Usage.Projects)
}

func TestTaskStatusValidation(t *testing.T) {
	ts := newTestServer(t, "pro")

	rec := ts.do(t, http.MethodPost, "/api/v1/projects", "1", CreateProjectRequest{Name: "Acme"})
	require.Equal(t, http.StatusCreated, rec.Code)
	project := decodeJSON[store.Project](t, rec)

	rec = ts.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/projects/%d/tasks/1/status", project.ID), "1",
		UpdateStatusRequest{Status: "bogus"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskStatusScopedToOwner(t *testing.T) {
	ts := newTestServer(t, "pro")

	// Victim's project and task.
	rec := ts.do(t, http.MethodPost, "/api/v1/projects", "1", CreateProjectRequest{Name: "Victim"})
	require.Equal(t, http.StatusCreated, rec.Code)
	victimProject := decodeJSON[store.Project](t, rec)

	require.NoError(t, ts.store.CreateTasks(context.Background(), []store.Task{
		{FeatureProposalID: 1, ProjectID: victimProject.ID, UserID: 1, Title: "victim task", Category: "backend", Priority: "high", Status: store.TaskTodo},
	}))
	tasks, err := ts.store.ListProjectTasks(context.Background(), victimProject.ID)
	require.NoError(t, err)
	taskID := tasks[0].ID

	// An attacker with their own project cannot mutate it through their
	// project's path.
	rec = ts.do(t, http.MethodPost, "/api/v1/projects", "2", CreateProjectRequest{Name: "Attacker"})
	require.Equal(t, http.StatusCreated, rec.Code)
	attackerProject := decodeJSON[store.Project](t, rec)

	rec = ts.do(t, http.MethodPatch,
		fmt.Sprintf("/api/v1/projects/%d/tasks/%d/status", attackerProject.ID, taskID), "2",
		UpdateStatusRequest{Status: store.TaskDone})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	tasks, err = ts.store.ListProjectTasks(context.Background(), victimProject.ID)
	require.NoError(t, err)
	assert.Equal(t, store.TaskTodo, tasks[0].Status)

	// The owner can.
	rec = ts.do(t, http.MethodPatch,
		fmt.Sprintf("/api/v1/projects/%d/tasks/%d/status", victimProject.ID, taskID), "1",
		UpdateStatusRequest{Status: store.TaskDone})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, "pro")
	rec := ts.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

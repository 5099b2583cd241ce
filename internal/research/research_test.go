package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/productflow/internal/billing"
	"github.com/fyrsmithlabs/productflow/internal/llm"
	"github.com/fyrsmithlabs/productflow/internal/logging"
	"github.com/fyrsmithlabs/productflow/internal/runner"
	"github.com/fyrsmithlabs/productflow/internal/store"
)

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://notion.so", NormalizeURL("notion.so"))
	assert.Equal(t, "https://figma.com", NormalizeURL("https://figma.com"))
	assert.Equal(t, "http://legacy.example.com", NormalizeURL("http://legacy.example.com"))
	assert.Equal(t, "https://notion.so", NormalizeURL("  notion.so  "))
	assert.Equal(t, "", NormalizeURL("   "))
}

func TestFallbackName(t *testing.T) {
	assert.Equal(t, "Notion", FallbackName("https://notion.so"))
	assert.Equal(t, "Figma", FallbackName("https://www.figma.com/pricing"))
	assert.Equal(t, "Linear", FallbackName("https://linear.app?ref=x"))
}

// stagedInvoker returns queued responses in order.
type stagedInvoker struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     [][]llm.Message
}

func (f *stagedInvoker) Invoke(ctx context.Context, messages []llm.Message, format *llm.ResponseFormat) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.calls)
	f.calls = append(f.calls, messages)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", errors.New("no response queued")
}

type recordingNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (r *recordingNotifier) Notify(ctx context.Context, title, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles = append(r.titles, title)
	return nil
}

func (r *recordingNotifier) titlesSeen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.titles...)
}

type testEnv struct {
	store    *store.Store
	invoker  *stagedInvoker
	notifier *recordingNotifier
	service  *Service
}

func newTestEnv(t *testing.T, plan string) *testEnv {
	t.Helper()

	st := store.OpenTest(t)
	inv := &stagedInvoker{}
	notif := &recordingNotifier{}

	r, err := runner.New(10*time.Second, logging.NewNop(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { r.Shutdown(context.Background()) })

	limiter, err := billing.NewLimiter(st, billing.StaticPlanResolver(plan))
	require.NoError(t, err)

	svc, err := NewService(st, inv, notif, r, limiter, logging.NewNop())
	require.NoError(t, err)

	return &testEnv{store: st, invoker: inv, notifier: notif, service: svc}
}

func (e *testEnv) createProject(t *testing.T, userID uint) *store.Project {
	t.Helper()
	p := &store.Project{UserID: userID, Name: "Acme Feedback", Status: store.ProjectActive}
	require.NoError(t, e.store.CreateProject(context.Background(), p))
	return p
}

func (e *testEnv) waitForTerminal(t *testing.T, id, projectID uint) *store.CompanyResearch {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		r, err := e.store.GetResearch(context.Background(), id, projectID)
		require.NoError(t, err)
		if r.Status == store.ResearchCompleted || r.Status == store.ResearchFailed {
			return r
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("research never reached a terminal state")
	return nil
}

func gatherResponse(t *testing.T, positive, negative, neutral int) string {
	t.Helper()
	findings := make([]map[string]any, 0, positive+negative+neutral)
	add := func(n int, sentiment string, score int) {
		for i := 0; i < n; i++ {
			findings = append(findings, map[string]any{
				"source":         "G2",
				"sourceType":     "review",
				"sourceUrl":      "https://g2.com/products/notion/reviews",
				"title":          fmt.Sprintf("%s finding %d", sentiment, i),
				"content":        "Customers mention the product frequently.",
				"sentiment":      sentiment,
				"sentimentScore": score,
				"category":       "usability",
				"tags":           []string{"editor"},
			})
		}
	}
	add(positive, "positive", 70)
	add(negative, "negative", -60)
	add(neutral, "neutral", 0)

	payload, err := json.Marshal(map[string]any{
		"companyName": "Notion Labs",
		"description": "Notion is a connected workspace.",
		"findings":    findings,
	})
	require.NoError(t, err)
	return string(payload)
}

const synthesisResponse = `{
	"summary": "Notion enjoys strong goodwill among individual users. Teams report growing pains at scale. Pricing changes drew criticism this year.",
	"overallSentiment": "mixed",
	"keyStrengths": [{"title": "Flexible editor", "description": "Praised across reviews.", "evidenceCount": 6}],
	"keyWeaknesses": [{"title": "Performance at scale", "description": "Large workspaces lag.", "evidenceCount": 4}],
	"recommendations": [{"title": "Improve load times", "description": "Focus on large workspace performance.", "priority": "high", "category": "performance"}]
}`

func TestStartNormalizesAndReturnsSearching(t *testing.T) {
	env := newTestEnv(t, "pro")
	project := env.createProject(t, 1)

	env.invoker.responses = []string{gatherResponse(t, 8, 5, 3), synthesisResponse}

	r, err := env.service.Start(context.Background(), 1, project.ID, "notion.so")
	require.NoError(t, err)
	assert.Equal(t, "https://notion.so", r.CompanyURL)
	assert.Equal(t, "Notion", r.CompanyName)
	assert.Equal(t, store.ResearchSearching, r.Status)

	env.waitForTerminal(t, r.ID, project.ID)
}

func TestStartEmptyURL(t *testing.T) {
	env := newTestEnv(t, "pro")
	project := env.createProject(t, 1)

	_, err := env.service.Start(context.Background(), 1, project.ID, "   ")
	assert.ErrorIs(t, err, ErrEmptyURL)
}

func TestStartLimitReached(t *testing.T) {
	env := newTestEnv(t, "free")
	project := env.createProject(t, 1)

	// Free plan allows 1 research run per month.
	require.NoError(t, env.store.CreateResearch(context.Background(), &store.CompanyResearch{
		ProjectID: project.ID, UserID: 1, CompanyURL: "https://figma.com", Status: store.ResearchCompleted,
	}))

	_, err := env.service.Start(context.Background(), 1, project.ID, "notion.so")
	var limitErr *billing.LimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, billing.ResourceResearch, limitErr.Resource)
}

func TestRunCompletesAndReconcilesCounts(t *testing.T) {
	env := newTestEnv(t, "pro")
	project := env.createProject(t, 1)

	env.invoker.responses = []string{gatherResponse(t, 8, 5, 3), synthesisResponse}

	r, err := env.service.Start(context.Background(), 1, project.ID, "https://notion.so")
	require.NoError(t, err)

	final := env.waitForTerminal(t, r.ID, project.ID)
	assert.Equal(t, store.ResearchCompleted, final.Status)
	assert.Equal(t, "Notion Labs", final.CompanyName)
	assert.Equal(t, "mixed", final.OverallSentiment)
	assert.NotNil(t, final.CompletedAt)
	assert.Contains(t, final.Summary, "goodwill")
	assert.Contains(t, final.KeyStrengths, "Flexible editor")
	assert.NotEmpty(t, final.RawSearchResults)

	assert.Equal(t, 8, final.PositiveCount)
	assert.Equal(t, 5, final.NegativeCount)
	assert.Equal(t, 3, final.NeutralCount)

	// Counts reconcile with persisted findings.
	count, err := env.store.CountFindings(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(final.PositiveCount+final.NegativeCount+final.NeutralCount), count)

	assert.Contains(t, env.notifier.titlesSeen(), "Company Research Complete - Notion Labs")
}

func TestRunStageAFailure(t *testing.T) {
	env := newTestEnv(t, "pro")
	project := env.createProject(t, 1)

	env.invoker.errs = []error{errors.New("model unavailable")}

	r, err := env.service.Start(context.Background(), 1, project.ID, "https://notion.so")
	require.NoError(t, err)

	final := env.waitForTerminal(t, r.ID, project.ID)
	assert.Equal(t, store.ResearchFailed, final.Status)

	count, err := env.store.CountFindings(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, env.notifier.titlesSeen())
}

func TestRunStageBFailureKeepsFindings(t *testing.T) {
	env := newTestEnv(t, "pro")
	project := env.createProject(t, 1)

	env.invoker.responses = []string{gatherResponse(t, 4, 2, 1)}
	env.invoker.errs = []error{nil, errors.New("model unavailable")}

	r, err := env.service.Start(context.Background(), 1, project.ID, "https://notion.so")
	require.NoError(t, err)

	final := env.waitForTerminal(t, r.ID, project.ID)
	assert.Equal(t, store.ResearchFailed, final.Status)

	// Stage A findings survive; Stage B fields stay absent.
	count, err := env.store.CountFindings(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
	assert.Empty(t, final.Summary)
	assert.Zero(t, final.PositiveCount)
	assert.Equal(t, "Notion Labs", final.CompanyName)
}

func TestRunPartialSynthesisPayloadMarksFailed(t *testing.T) {
	env := newTestEnv(t, "pro")
	project := env.createProject(t, 1)

	// Stage B returns a summary but none of the lists.
	env.invoker.responses = []string{
		gatherResponse(t, 4, 2, 1),
		`{"summary": "Fine.", "overallSentiment": "mixed", "keyStrengths": [], "keyWeaknesses": [], "recommendations": []}`,
	}

	r, err := env.service.Start(context.Background(), 1, project.ID, "https://notion.so")
	require.NoError(t, err)

	final := env.waitForTerminal(t, r.ID, project.ID)
	assert.Equal(t, store.ResearchFailed, final.Status)
	assert.Empty(t, final.Summary)
	assert.Zero(t, final.PositiveCount)

	// Stage A findings remain queryable.
	count, err := env.store.CountFindings(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
}

func TestRunBadGatherPayload(t *testing.T) {
	env := newTestEnv(t, "pro")
	project := env.createProject(t, 1)

	env.invoker.responses = []string{"not json"}

	r, err := env.service.Start(context.Background(), 1, project.ID, "https://notion.so")
	require.NoError(t, err)

	final := env.waitForTerminal(t, r.ID, project.ID)
	assert.Equal(t, store.ResearchFailed, final.Status)
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t, "pro")
	project := env.createProject(t, 1)

	env.invoker.responses = []string{gatherResponse(t, 2, 1, 0), synthesisResponse}

	r, err := env.service.Start(context.Background(), 1, project.ID, "https://notion.so")
	require.NoError(t, err)
	env.waitForTerminal(t, r.ID, project.ID)

	require.NoError(t, env.service.Delete(context.Background(), 1, project.ID, r.ID))

	_, err = env.store.GetResearch(context.Background(), r.ID, project.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	count, err := env.store.CountFindings(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDeleteScopedToOwner(t *testing.T) {
	env := newTestEnv(t, "pro")
	project := env.createProject(t, 1)

	env.invoker.responses = []string{gatherResponse(t, 2, 1, 0), synthesisResponse}
	r, err := env.service.Start(context.Background(), 1, project.ID, "https://notion.so")
	require.NoError(t, err)
	env.waitForTerminal(t, r.ID, project.ID)

	err = env.service.Delete(context.Background(), 2, project.ID, r.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectCRUD(t *testing.T) {
	s := OpenTest(t)
	ctx := context.Background()

	p := &Project{UserID: 1, Name: "Onboarding revamp", Status: ProjectActive}
	require.NoError(t, s.CreateProject(ctx, p))
	require.NotZero(t, p.ID)

	t.Run("get scoped to owner", func(t *testing.T) {
		got, err := s.GetProject(ctx, p.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, "Onboarding revamp", got.Name)

		_, err = s.GetProject(ctx, p.ID, 2)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("update", func(t *testing.T) {
		archived := ProjectArchived
		require.NoError(t, s.UpdateProject(ctx, p.ID, 1, ProjectUpdate{Status: &archived}))

		got, err := s.GetProject(ctx, p.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, ProjectArchived, got.Status)

		err = s.UpdateProject(ctx, p.ID, 2, ProjectUpdate{Status: &archived})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list is idempotent", func(t *testing.T) {
		first, err := s.ListProjects(ctx, 1)
		require.NoError(t, err)
		second, err := s.ListProjects(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestDeleteProjectCascades(t *testing.T) {
	s := OpenTest(t)
	ctx := context.Background()

	p := &Project{UserID: 1, Name: "Doomed", Status: ProjectActive}
	require.NoError(t, s.CreateProject(ctx, p))

	file := &DataFile{ProjectID: p.ID, UserID: 1, FileName: "a.txt", FileType: FileTypeTranscript, FileKey: "k", FileURL: "u", MimeType: "text/plain"}
	require.NoError(t, s.CreateDataFile(ctx, file))

	a := &Analysis{ProjectID: p.ID, UserID: 1, Status: AnalysisCompleted}
	require.NoError(t, s.CreateAnalysis(ctx, a))

	prop := &FeatureProposal{ProjectID: p.ID, AnalysisID: a.ID, UserID: 1, Title: "T", ProblemStatement: "P", ProposedSolution: "S", Priority: "high", Effort: "small", Status: ProposalDraft}
	require.NoError(t, s.CreateProposal(ctx, prop))

	require.NoError(t, s.CreateTasks(ctx, []Task{
		{FeatureProposalID: prop.ID, ProjectID: p.ID, UserID: 1, Title: "t1", Category: "backend", Priority: "high", Status: TaskTodo},
	}))

	r := &CompanyResearch{ProjectID: p.ID, UserID: 1, CompanyURL: "https://acme.dev", Status: ResearchSearching}
	require.NoError(t, s.CreateResearch(ctx, r))
	require.NoError(t, s.CreateFindings(ctx, []ResearchFinding{
		{ResearchID: r.ID, ProjectID: p.ID, Title: "f", Content: "c", Sentiment: "positive", SourceType: "review"},
	}))

	require.NoError(t, s.DeleteProject(ctx, p.ID, 1))

	_, err := s.GetProject(ctx, p.ID, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	files, err := s.ListProjectFiles(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, files)

	tasks, err := s.ListProjectTasks(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	findings, err := s.ListFindings(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, findings)

	t.Run("rejects non-owner", func(t *testing.T) {
		p2 := &Project{UserID: 1, Name: "Kept", Status: ProjectActive}
		require.NoError(t, s.CreateProject(ctx, p2))
		assert.ErrorIs(t, s.DeleteProject(ctx, p2.ID, 99), ErrNotFound)
	})
}

func TestAnalysisLifecycle(t *testing.T) {
	s := OpenTest(t)
	ctx := context.Background()

	a := &Analysis{ProjectID: 1, UserID: 1, Status: AnalysisProcessing}
	require.NoError(t, s.CreateAnalysis(ctx, a))

	t.Run("complete populates all result fields", func(t *testing.T) {
		require.NoError(t, s.CompleteAnalysis(ctx, a.ID, AnalysisResults{
			Themes:           `[{"name":"slow onboarding"}]`,
			PainPoints:       `[{"title":"confusing setup"}]`,
			FeatureRequests:  `[{"title":"guided tour"}]`,
			SentimentSummary: `{"overall":"negative"}`,
			RawAnalysis:      `{}`,
		}))

		got, err := s.GetAnalysis(ctx, a.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, AnalysisCompleted, got.Status)
		assert.NotEmpty(t, got.Themes)
		assert.NotEmpty(t, got.SentimentSummary)
		require.NotNil(t, got.CompletedAt)
	})

	t.Run("failed leaves result fields empty", func(t *testing.T) {
		b := &Analysis{ProjectID: 1, UserID: 1, Status: AnalysisProcessing}
		require.NoError(t, s.CreateAnalysis(ctx, b))
		require.NoError(t, s.FailAnalysis(ctx, b.ID))

		got, err := s.GetAnalysis(ctx, b.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, AnalysisFailed, got.Status)
		assert.Empty(t, got.Themes)
		assert.Empty(t, got.PainPoints)
		assert.Empty(t, got.FeatureRequests)
		assert.Empty(t, got.SentimentSummary)
		assert.Nil(t, got.CompletedAt)
	})
}

func TestTaskReplaceSemantics(t *testing.T) {
	s := OpenTest(t)
	ctx := context.Background()

	first := []Task{
		{FeatureProposalID: 5, ProjectID: 1, UserID: 1, Title: "old-1", Category: "backend", Priority: "high", SortOrder: 0, Status: TaskTodo},
		{FeatureProposalID: 5, ProjectID: 1, UserID: 1, Title: "old-2", Category: "frontend", Priority: "low", SortOrder: 1, Status: TaskTodo},
	}
	require.NoError(t, s.CreateTasks(ctx, first))

	require.NoError(t, s.DeleteProposalTasks(ctx, 5))
	second := []Task{
		{FeatureProposalID: 5, ProjectID: 1, UserID: 1, Title: "new-1", Category: "database", Priority: "high", SortOrder: 0, Status: TaskTodo},
		{FeatureProposalID: 5, ProjectID: 1, UserID: 1, Title: "new-2", Category: "api", Priority: "medium", SortOrder: 1, Status: TaskTodo},
		{FeatureProposalID: 5, ProjectID: 1, UserID: 1, Title: "new-3", Category: "testing", Priority: "low", SortOrder: 2, Status: TaskTodo},
	}
	require.NoError(t, s.CreateTasks(ctx, second))

	tasks, err := s.ListProposalTasks(ctx, 5)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	for i, task := range tasks {
		assert.Equal(t, i, task.SortOrder)
	}
	for _, task := range tasks {
		assert.NotContains(t, []string{"old-1", "old-2"}, task.Title)
	}
}

func TestUpdateTaskStatusScopedToProject(t *testing.T) {
	s := OpenTest(t)
	ctx := context.Background()

	require.NoError(t, s.CreateTasks(ctx, []Task{
		{FeatureProposalID: 3, ProjectID: 1, UserID: 1, Title: "scoped", Category: "backend", Priority: "high", SortOrder: 0, Status: TaskTodo},
	}))
	tasks, err := s.ListProposalTasks(ctx, 3)
	require.NoError(t, err)
	id := tasks[0].ID

	// A different project id must not reach the task.
	err = s.UpdateTaskStatus(ctx, id, 2, TaskDone)
	assert.ErrorIs(t, err, ErrNotFound)

	tasks, err = s.ListProposalTasks(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, TaskTodo, tasks[0].Status)

	require.NoError(t, s.UpdateTaskStatus(ctx, id, 1, TaskDone))
	tasks, err = s.ListProposalTasks(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, TaskDone, tasks[0].Status)
}

func TestUsageCountsMonthWindow(t *testing.T) {
	s := OpenTest(t)
	ctx := context.Background()

	now := time.Now()
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	// One analysis this month, one from the previous month.
	recent := &Analysis{ProjectID: 1, UserID: 7, Status: AnalysisCompleted}
	require.NoError(t, s.CreateAnalysis(ctx, recent))

	old := &Analysis{ProjectID: 1, UserID: 7, Status: AnalysisCompleted, CreatedAt: startOfMonth.AddDate(0, 0, -1)}
	require.NoError(t, s.CreateAnalysis(ctx, old))

	n, err := s.CountAnalysesSince(ctx, 7, startOfMonth)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	t.Run("research window", func(t *testing.T) {
		r := &CompanyResearch{ProjectID: 1, UserID: 7, CompanyURL: "https://a.dev", Status: ResearchCompleted, CreatedAt: startOfMonth.AddDate(0, -1, 0)}
		require.NoError(t, s.CreateResearch(ctx, r))

		n, err := s.CountResearchSince(ctx, 7, startOfMonth)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})
}

func TestMarkStaleRuns(t *testing.T) {
	s := OpenTest(t)
	ctx := context.Background()

	stuck := &Analysis{ProjectID: 1, UserID: 1, Status: AnalysisProcessing, CreatedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, s.CreateAnalysis(ctx, stuck))
	fresh := &Analysis{ProjectID: 1, UserID: 1, Status: AnalysisProcessing}
	require.NoError(t, s.CreateAnalysis(ctx, fresh))
	done := &Analysis{ProjectID: 1, UserID: 1, Status: AnalysisCompleted, CreatedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, s.CreateAnalysis(ctx, done))

	reaped, err := s.MarkStaleAnalyses(ctx, time.Now().Add(-10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), reaped)

	got, err := s.GetAnalysis(ctx, stuck.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, AnalysisFailed, got.Status)

	got, err = s.GetAnalysis(ctx, fresh.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, AnalysisProcessing, got.Status)

	got, err = s.GetAnalysis(ctx, done.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, AnalysisCompleted, got.Status)

	t.Run("research in either active state", func(t *testing.T) {
		searching := &CompanyResearch{ProjectID: 1, UserID: 1, CompanyURL: "https://a.dev", Status: ResearchSearching, CreatedAt: time.Now().Add(-time.Hour)}
		require.NoError(t, s.CreateResearch(ctx, searching))
		analyzing := &CompanyResearch{ProjectID: 1, UserID: 1, CompanyURL: "https://b.dev", Status: ResearchAnalyzing, CreatedAt: time.Now().Add(-time.Hour)}
		require.NoError(t, s.CreateResearch(ctx, analyzing))

		reaped, err := s.MarkStaleResearch(ctx, time.Now().Add(-10*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, int64(2), reaped)
	})
}

func TestResearchLifecycle(t *testing.T) {
	s := OpenTest(t)
	ctx := context.Background()

	r := &CompanyResearch{ProjectID: 1, UserID: 1, CompanyURL: "https://notion.so", CompanyName: "Notion", Status: ResearchSearching}
	require.NoError(t, s.CreateResearch(ctx, r))

	require.NoError(t, s.SetResearchAnalyzing(ctx, r.ID, "Notion Labs", `{"findings":[]}`))
	got, err := s.GetResearch(ctx, r.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, ResearchAnalyzing, got.Status)
	assert.Equal(t, "Notion Labs", got.CompanyName)
	assert.NotEmpty(t, got.RawSearchResults)

	require.NoError(t, s.CompleteResearch(ctx, r.ID, ResearchResults{
		OverallSentiment: "mixed",
		PositiveCount:    8,
		NegativeCount:    5,
		NeutralCount:     2,
		Summary:          "A summary.",
		KeyStrengths:     `[]`,
		KeyWeaknesses:    `[]`,
		Recommendations:  `[]`,
	}))
	got, err = s.GetResearch(ctx, r.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, ResearchCompleted, got.Status)
	assert.Equal(t, 8, got.PositiveCount)
	require.NotNil(t, got.CompletedAt)

	t.Run("delete removes findings first", func(t *testing.T) {
		require.NoError(t, s.CreateFindings(ctx, []ResearchFinding{
			{ResearchID: r.ID, ProjectID: 1, Title: "f", Content: "c", Sentiment: "neutral", SourceType: "forum"},
		}))
		require.NoError(t, s.DeleteResearch(ctx, r.ID, 1))

		findings, err := s.ListFindings(ctx, r.ID)
		require.NoError(t, err)
		assert.Empty(t, findings)
		_, err = s.GetResearch(ctx, r.ID, 1)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

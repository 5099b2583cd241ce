package billing

import (
	"context"
	"fmt"
	"time"
)

// Resource names used in limit errors.
const (
	ResourceProjects = "projects"
	ResourceAnalyses = "analyses"
	ResourceResearch = "research"
	ResourceFiles    = "files"
)

// LimitError signals a plan limit has been reached for a named resource.
// It is distinguishable from generic validation errors so callers can
// surface an upgrade path.
type LimitError struct {
	Resource string
	Limit    int
}

func (e *LimitError) Error() string {
	switch e.Resource {
	case ResourceProjects:
		return fmt.Sprintf("project limit reached (%d)", e.Limit)
	case ResourceAnalyses:
		return fmt.Sprintf("analysis limit reached (%d this month)", e.Limit)
	case ResourceResearch:
		return fmt.Sprintf("research limit reached (%d this month)", e.Limit)
	case ResourceFiles:
		return fmt.Sprintf("file limit reached (%d per project)", e.Limit)
	}
	return fmt.Sprintf("%s limit reached (%d)", e.Resource, e.Limit)
}

// UsageStore supplies the aggregate counts the limiter decides against.
type UsageStore interface {
	CountProjects(ctx context.Context, userID uint) (int64, error)
	CountProjectFiles(ctx context.Context, projectID uint) (int64, error)
	CountAnalysesSince(ctx context.Context, userID uint, since time.Time) (int64, error)
	CountResearchSince(ctx context.Context, userID uint, since time.Time) (int64, error)
}

// PlanResolver supplies the acting user's current plan id. The billing
// collaborator owns subscription state; the limiter only consumes it.
type PlanResolver interface {
	PlanID(ctx context.Context, userID uint) (string, error)
}

// StaticPlanResolver resolves every user to a fixed plan. Deployments
// without subscription data run everyone on the free tier.
type StaticPlanResolver string

// PlanID implements PlanResolver.
func (r StaticPlanResolver) PlanID(ctx context.Context, userID uint) (string, error) {
	return string(r), nil
}

// Limiter decides whether a plan's quota permits a new unit of work.
//
// Counts are read at decision time with no transactional guarantee;
// concurrent submissions can race past the same limit. That soft-limit
// behavior is accepted.
type Limiter struct {
	usage UsageStore
	plans PlanResolver
	now   func() time.Time
}

// NewLimiter creates a limiter reading counts from usage and plans from
// resolver.
func NewLimiter(usage UsageStore, plans PlanResolver) (*Limiter, error) {
	if usage == nil {
		return nil, fmt.Errorf("usage store is required")
	}
	if plans == nil {
		return nil, fmt.Errorf("plan resolver is required")
	}
	return &Limiter{usage: usage, plans: plans, now: time.Now}, nil
}

// CheckProject decides whether the user may create another project.
func (l *Limiter) CheckProject(ctx context.Context, userID uint) error {
	plan, err := l.planFor(ctx, userID)
	if err != nil {
		return err
	}
	if plan.Limits.MaxProjects == Unlimited {
		return nil
	}
	n, err := l.usage.CountProjects(ctx, userID)
	if err != nil {
		return fmt.Errorf("reading project count: %w", err)
	}
	if n >= int64(plan.Limits.MaxProjects) {
		return &LimitError{Resource: ResourceProjects, Limit: plan.Limits.MaxProjects}
	}
	return nil
}

// CheckAnalysis decides whether the user may start another analysis this
// calendar month.
func (l *Limiter) CheckAnalysis(ctx context.Context, userID uint) error {
	plan, err := l.planFor(ctx, userID)
	if err != nil {
		return err
	}
	if plan.Limits.MaxAnalysesPerMonth == Unlimited {
		return nil
	}
	n, err := l.usage.CountAnalysesSince(ctx, userID, l.startOfMonth())
	if err != nil {
		return fmt.Errorf("reading analysis count: %w", err)
	}
	if n >= int64(plan.Limits.MaxAnalysesPerMonth) {
		return &LimitError{Resource: ResourceAnalyses, Limit: plan.Limits.MaxAnalysesPerMonth}
	}
	return nil
}

// CheckResearch decides whether the user may start another research run this
// calendar month.
func (l *Limiter) CheckResearch(ctx context.Context, userID uint) error {
	plan, err := l.planFor(ctx, userID)
	if err != nil {
		return err
	}
	if plan.Limits.MaxResearchPerMonth == Unlimited {
		return nil
	}
	n, err := l.usage.CountResearchSince(ctx, userID, l.startOfMonth())
	if err != nil {
		return fmt.Errorf("reading research count: %w", err)
	}
	if n >= int64(plan.Limits.MaxResearchPerMonth) {
		return &LimitError{Resource: ResourceResearch, Limit: plan.Limits.MaxResearchPerMonth}
	}
	return nil
}

// CheckFile decides whether another file may be uploaded to the project.
func (l *Limiter) CheckFile(ctx context.Context, userID, projectID uint) error {
	plan, err := l.planFor(ctx, userID)
	if err != nil {
		return err
	}
	if plan.Limits.MaxFilesPerProject == Unlimited {
		return nil
	}
	n, err := l.usage.CountProjectFiles(ctx, projectID)
	if err != nil {
		return fmt.Errorf("reading file count: %w", err)
	}
	if n >= int64(plan.Limits.MaxFilesPerProject) {
		return &LimitError{Resource: ResourceFiles, Limit: plan.Limits.MaxFilesPerProject}
	}
	return nil
}

// Usage is the aggregate usage snapshot exposed by the billing endpoint.
type Usage struct {
	Projects          int64 `json:"projects"`
	AnalysesThisMonth int64 `json:"analysesThisMonth"`
	ResearchThisMonth int64 `json:"researchThisMonth"`
}

// Usage returns the user's current-period counts.
func (l *Limiter) Usage(ctx context.Context, userID uint) (*Usage, error) {
	projects, err := l.usage.CountProjects(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reading project count: %w", err)
	}
	since := l.startOfMonth()
	analyses, err := l.usage.CountAnalysesSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("reading analysis count: %w", err)
	}
	research, err := l.usage.CountResearchSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("reading research count: %w", err)
	}
	return &Usage{
		Projects:          projects,
		AnalysesThisMonth: analyses,
		ResearchThisMonth: research,
	}, nil
}

// Plan returns the user's resolved plan. Unknown plan ids fall back to the
// free tier.
func (l *Limiter) Plan(ctx context.Context, userID uint) (Plan, error) {
	return l.planFor(ctx, userID)
}

func (l *Limiter) planFor(ctx context.Context, userID uint) (Plan, error) {
	id, err := l.plans.PlanID(ctx, userID)
	if err != nil {
		return Plan{}, fmt.Errorf("resolving plan: %w", err)
	}
	plan, ok := PlanByID(id)
	if !ok {
		return FreePlan(), nil
	}
	return plan, nil
}

// startOfMonth returns the first instant of the current calendar month.
func (l *Limiter) startOfMonth() time.Time {
	now := l.now()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

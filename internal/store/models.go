package store

import "time"

// Project statuses.
const (
	ProjectActive   = "active"
	ProjectArchived = "archived"
)

// Data file types.
const (
	FileTypeTranscript = "transcript"
	FileTypeUsageData  = "usage_data"
)

// Analysis statuses. Pending exists for schema parity but records are
// created directly in processing, so it is never externally observable.
const (
	AnalysisPending    = "pending"
	AnalysisProcessing = "processing"
	AnalysisCompleted  = "completed"
	AnalysisFailed     = "failed"
)

// Proposal statuses.
const (
	ProposalDraft      = "draft"
	ProposalApproved   = "approved"
	ProposalRejected   = "rejected"
	ProposalInProgress = "in_progress"
	ProposalCompleted  = "completed"
)

// Task statuses.
const (
	TaskTodo       = "todo"
	TaskInProgress = "in_progress"
	TaskDone       = "done"
)

// Company research statuses.
const (
	ResearchPending   = "pending"
	ResearchSearching = "searching"
	ResearchAnalyzing = "analyzing"
	ResearchCompleted = "completed"
	ResearchFailed    = "failed"
)

// Project is a product-discovery workspace owned by a single user.
type Project struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"userId"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Status      string    `gorm:"size:16;not null;default:active" json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// DataFile is an uploaded transcript or usage export. Immutable once created.
type DataFile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"index;not null" json:"projectId"`
	UserID    uint      `gorm:"not null" json:"userId"`
	FileName  string    `gorm:"size:512;not null" json:"fileName"`
	FileType  string    `gorm:"size:32;not null" json:"fileType"`
	FileKey   string    `gorm:"size:1024;not null" json:"fileKey"`
	FileURL   string    `gorm:"type:text;not null" json:"fileUrl"`
	FileSize  int64     `gorm:"not null" json:"fileSize"`
	MimeType  string    `gorm:"size:128;not null" json:"mimeType"`
	CreatedAt time.Time `json:"createdAt"`
}

// Analysis is one LLM feedback-analysis run over a project's files.
// Result columns hold serialized JSON payloads and are populated together
// on completion, or left empty on failure.
type Analysis struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	ProjectID        uint       `gorm:"index;not null" json:"projectId"`
	UserID           uint       `gorm:"index;not null" json:"userId"`
	Status           string     `gorm:"size:16;not null;default:pending" json:"status"`
	Themes           string     `gorm:"type:text" json:"themes"`
	PainPoints       string     `gorm:"type:text" json:"painPoints"`
	FeatureRequests  string     `gorm:"type:text" json:"featureRequests"`
	SentimentSummary string     `gorm:"type:text" json:"sentimentSummary"`
	RawAnalysis      string     `gorm:"type:text" json:"rawAnalysis"`
	CreatedAt        time.Time  `json:"createdAt"`
	CompletedAt      *time.Time `json:"completedAt"`
}

// FeatureProposal is a structured feature recommendation derived from a
// completed analysis. Status is the only post-creation mutable field.
type FeatureProposal struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ProjectID        uint      `gorm:"index;not null" json:"projectId"`
	AnalysisID       uint      `gorm:"index;not null" json:"analysisId"`
	UserID           uint      `gorm:"not null" json:"userId"`
	Title            string    `gorm:"size:512;not null" json:"title"`
	ProblemStatement string    `gorm:"type:text;not null" json:"problemStatement"`
	ProposedSolution string    `gorm:"type:text;not null" json:"proposedSolution"`
	UIChanges        string    `gorm:"type:text" json:"uiChanges"`
	DataModelChanges string    `gorm:"type:text" json:"dataModelChanges"`
	WorkflowChanges  string    `gorm:"type:text" json:"workflowChanges"`
	Priority         string    `gorm:"size:16;not null;default:medium" json:"priority"`
	Effort           string    `gorm:"size:16;not null;default:medium" json:"effort"`
	Status           string    `gorm:"size:16;not null;default:draft" json:"status"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Task is a single development work item derived from a proposal.
// Regeneration replaces a proposal's tasks as a batch with fresh sortOrder.
type Task struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	FeatureProposalID uint      `gorm:"index;not null" json:"featureProposalId"`
	ProjectID         uint      `gorm:"index;not null" json:"projectId"`
	UserID            uint      `gorm:"not null" json:"userId"`
	Title             string    `gorm:"size:512;not null" json:"title"`
	Description       string    `gorm:"type:text" json:"description"`
	Category          string    `gorm:"size:16;not null;default:frontend" json:"category"`
	Priority          string    `gorm:"size:16;not null;default:medium" json:"priority"`
	EstimatedHours    float64   `json:"estimatedHours"`
	SortOrder         int       `gorm:"not null;default:0" json:"sortOrder"`
	Status            string    `gorm:"size:16;not null;default:todo" json:"status"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// CompanyResearch is one two-stage research run against a company URL.
// KeyStrengths, KeyWeaknesses and Recommendations hold serialized JSON.
type CompanyResearch struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	ProjectID        uint       `gorm:"index;not null" json:"projectId"`
	UserID           uint       `gorm:"index;not null" json:"userId"`
	CompanyURL       string     `gorm:"size:1024;not null" json:"companyUrl"`
	CompanyName      string     `gorm:"size:255" json:"companyName"`
	Status           string     `gorm:"size:16;not null;default:pending" json:"status"`
	OverallSentiment string     `gorm:"size:16" json:"overallSentiment"`
	PositiveCount    int        `gorm:"not null;default:0" json:"positiveCount"`
	NegativeCount    int        `gorm:"not null;default:0" json:"negativeCount"`
	NeutralCount     int        `gorm:"not null;default:0" json:"neutralCount"`
	Summary          string     `gorm:"type:text" json:"summary"`
	KeyStrengths     string     `gorm:"type:text" json:"keyStrengths"`
	KeyWeaknesses    string     `gorm:"type:text" json:"keyWeaknesses"`
	Recommendations  string     `gorm:"type:text" json:"recommendations"`
	RawSearchResults string     `gorm:"type:text" json:"rawSearchResults"`
	CreatedAt        time.Time  `json:"createdAt"`
	CompletedAt      *time.Time `json:"completedAt"`
}

// ResearchFinding is one piece of evidence gathered during company research.
// Created once in bulk per run; never mutated.
type ResearchFinding struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ResearchID     uint      `gorm:"index;not null" json:"researchId"`
	ProjectID      uint      `gorm:"index;not null" json:"projectId"`
	Source         string    `gorm:"size:255" json:"source"`
	SourceType     string    `gorm:"size:32;not null;default:other" json:"sourceType"`
	Title          string    `gorm:"size:512;not null" json:"title"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	Sentiment      string    `gorm:"size:16;not null" json:"sentiment"`
	SentimentScore int       `gorm:"not null;default:0" json:"sentimentScore"`
	Category       string    `gorm:"size:128" json:"category"`
	Tags           string    `gorm:"type:text" json:"tags"`
	SourceURL      string    `gorm:"type:text" json:"sourceUrl"`
	CreatedAt      time.Time `json:"createdAt"`
}

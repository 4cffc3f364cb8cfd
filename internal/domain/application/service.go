package application

import (
	"context"

	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/report"
)

// ReviewResult is what a review produced. Report is set only when the review
// moved the application into a terminal stage.
type ReviewResult struct {
	Application Application
	Entry       HistoryEntry
	Report      *report.Report
}

// Detail is a consistent snapshot of one application.
type Detail struct {
	Application Application
	History     []HistoryEntry
	Report      *report.Report
}

// Scores holds the per-stage breakdown and the overall score.
type Scores struct {
	ApplicationID string
	Stages        []report.StageScore
	Overall       *float64
}

type PipelineService interface {
	// Application
	CreateApplication(ctx context.Context, req CreateApplicationRequest) (Application, error)
	GetApplication(ctx context.Context, id string) (Detail, error)
	ListApplications(ctx context.Context, filter ApplicationFilter) ([]Application, int64, error)
	ListHistory(ctx context.Context, applicationID string) ([]HistoryEntry, error)

	// Transitions
	Review(ctx context.Context, req ReviewRequest) (ReviewResult, error)
	Reopen(ctx context.Context, req ReopenRequest) (HistoryEntry, error)

	// Scoring
	StageScore(ctx context.Context, applicationID, stage string) (*float64, error)
	OverallScore(ctx context.Context, applicationID string) (*float64, error)
	GetScores(ctx context.Context, applicationID string) (Scores, error)

	// Report
	GetReport(ctx context.Context, applicationID string) (report.Report, error)
	GetSummary(ctx context.Context, applicationID string) (report.Report, error)
}

package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/report"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type reportRepositoryImpl struct {
	db *database.DB
}

func NewReportRepository(db *database.DB) report.ReportRepository {
	return &reportRepositoryImpl{db: db}
}

// Create implements report.ReportRepository.
func (r *reportRepositoryImpl) Create(ctx context.Context, rep report.Report) (report.Report, error) {
	q := GetQuerier(ctx, r.db)

	stageScores, err := rep.StageScores.Value()
	if err != nil {
		return report.Report{}, fmt.Errorf("encode stage scores: %w", err)
	}

	query := `
		INSERT INTO application_reports (
			id, application_id, version,
			overall_score, final_decision, stage_scores,
			final_notes, decision_made_by, decision_made_at,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`
	err = q.QueryRow(ctx, query,
		rep.ID, rep.ApplicationID, rep.Version,
		rep.OverallScore, string(rep.FinalDecision), stageScores,
		rep.FinalNotes, rep.DecisionMadeBy, rep.DecisionMadeAt,
		rep.CreatedAt,
	).Scan(&rep.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "uq_application_reports_application") {
			return report.Report{}, report.ErrDuplicateReport
		}
		return report.Report{}, fmt.Errorf("insert report: %w", err)
	}
	return rep, nil
}

// GetByApplicationID implements report.ReportRepository.
func (r *reportRepositoryImpl) GetByApplicationID(ctx context.Context, applicationID string) (report.Report, error) {
	q := GetQuerier(ctx, r.db)
	query := `
		SELECT id, application_id, version,
			   overall_score, final_decision, stage_scores,
			   final_notes, decision_made_by, decision_made_at,
			   created_at
		FROM application_reports
		WHERE application_id = $1
	`
	var (
		rep             report.Report
		finalDecision   string
		stageScoresJSON []byte
	)
	err := q.QueryRow(ctx, query, applicationID).Scan(
		&rep.ID, &rep.ApplicationID, &rep.Version,
		&rep.OverallScore, &finalDecision, &stageScoresJSON,
		&rep.FinalNotes, &rep.DecisionMadeBy, &rep.DecisionMadeAt,
		&rep.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return report.Report{}, report.ErrReportNotFound
		}
		return report.Report{}, fmt.Errorf("get report: %w", err)
	}

	rep.FinalDecision = report.FinalDecision(finalDecision)
	if err := rep.StageScores.Scan(stageScoresJSON); err != nil {
		return report.Report{}, fmt.Errorf("decode stage scores: %w", err)
	}
	return rep, nil
}

// ExistsForApplication implements report.ReportRepository.
func (r *reportRepositoryImpl) ExistsForApplication(ctx context.Context, applicationID string) (bool, error) {
	q := GetQuerier(ctx, r.db)
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM application_reports WHERE application_id = $1)`, applicationID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check report: %w", err)
	}
	return exists, nil
}

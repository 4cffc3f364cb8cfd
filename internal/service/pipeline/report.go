package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/application"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/report"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/stage"
)

// generateReport freezes the final report for an application that has just
// reached terminal. It must run inside the review transaction.
func (s *PipelineServiceImpl) generateReport(
	txCtx context.Context,
	app application.Application,
	terminal stage.Definition,
	decisive application.HistoryEntry,
	now time.Time,
) (report.Report, error) {
	exists, err := s.ReportRepository.ExistsForApplication(txCtx, app.ID)
	if err != nil {
		return report.Report{}, err
	}
	if exists {
		return report.Report{}, report.ErrDuplicateReport
	}

	entries, err := s.HistoryRepository.ListByApplication(txCtx, app.ID)
	if err != nil {
		return report.Report{}, err
	}

	id, err := newID()
	if err != nil {
		return report.Report{}, err
	}

	var madeBy string
	if decisive.ReviewedBy != nil {
		madeBy = *decisive.ReviewedBy
	}

	rep := report.Report{
		ID:             id,
		ApplicationID:  app.ID,
		Version:        1,
		OverallScore:   s.scorer.OverallScore(entries),
		FinalDecision:  finalDecision(terminal.Outcome),
		StageScores:    s.scorer.Breakdown(entries, s.catalog.Steps()),
		FinalNotes:     decisive.Notes,
		DecisionMadeBy: madeBy,
		DecisionMadeAt: now,
		CreatedAt:      now,
	}

	created, err := s.ReportRepository.Create(txCtx, rep)
	if err != nil {
		return report.Report{}, fmt.Errorf("store report: %w", err)
	}
	return created, nil
}

func finalDecision(outcome stage.Outcome) report.FinalDecision {
	switch outcome {
	case stage.OutcomeAccepted:
		return report.FinalDecisionAccepted
	case stage.OutcomeRejected:
		return report.FinalDecisionRejected
	}
	return report.FinalDecisionPending
}

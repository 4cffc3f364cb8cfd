package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/application"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/report"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/stage"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/pkg/events"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/pkg/metrics"
)

// Review implements application.PipelineService.
func (s *PipelineServiceImpl) Review(ctx context.Context, req application.ReviewRequest) (application.ReviewResult, error) {
	if err := req.Validate(); err != nil {
		return application.ReviewResult{}, err
	}

	started := time.Now()
	var (
		result application.ReviewResult
		from   string
	)
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		var err error
		result, from, err = s.review(txCtx, req)
		return err
	})
	took := time.Since(started)

	if err != nil {
		if errors.Is(err, application.ErrInconsistentState) {
			s.metrics.InconsistentState()
		}
		if isRejection(err) {
			s.metrics.Review(string(req.Decision), metrics.ResultRejected, took)
			s.logger.WarnContext(ctx, "review rejected",
				slog.String("application_id", req.ApplicationID),
				slog.String("decision", string(req.Decision)),
				slog.String("reviewer_id", req.ReviewerID),
				slog.String("error", err.Error()),
			)
			return application.ReviewResult{}, err
		}
		s.metrics.Review(string(req.Decision), metrics.ResultError, took)
		return application.ReviewResult{}, fmt.Errorf("failed to review application: %w", err)
	}

	s.metrics.Review(string(req.Decision), metrics.ResultOK, took)
	s.afterReview(ctx, req, from, result)

	return result, nil
}

func (s *PipelineServiceImpl) review(txCtx context.Context, req application.ReviewRequest) (application.ReviewResult, string, error) {
	app, current, entry, err := s.lockCurrent(txCtx, req.ApplicationID)
	if err != nil {
		return application.ReviewResult{}, "", err
	}
	if req.Stage != nil && *req.Stage != app.CurrentStage {
		return application.ReviewResult{}, "", fmt.Errorf("application is at %s, review was for %s: %w",
			app.CurrentStage, *req.Stage, application.ErrInvalidTransition)
	}

	now := s.clock()
	reviewer := req.ReviewerID
	decision := req.Decision
	reviewedAt := now

	entry.Score = copyFloat(req.Score)
	if req.Notes != nil {
		entry.Notes = *req.Notes
	}
	entry.Decision = &decision
	entry.ReviewedBy = &reviewer
	entry.ReviewedAt = &reviewedAt

	if decision == application.DecisionHold {
		if err := s.HistoryRepository.UpdateReview(txCtx, entry); err != nil {
			return application.ReviewResult{}, "", err
		}
		return application.ReviewResult{Application: app, Entry: entry}, app.CurrentStage, nil
	}

	completed := now
	if entry.ScheduledAt != nil && completed.Before(*entry.ScheduledAt) {
		completed = *entry.ScheduledAt
	}
	entry.CompletedAt = &completed
	if err := s.HistoryRepository.UpdateReview(txCtx, entry); err != nil {
		return application.ReviewResult{}, "", err
	}

	target, err := s.target(current, decision)
	if err != nil {
		return application.ReviewResult{}, "", err
	}

	from := app.CurrentStage
	if err := s.ApplicationRepository.UpdateStage(txCtx, app.ID, from, target.Code, now); err != nil {
		return application.ReviewResult{}, "", err
	}
	app.CurrentStage = target.Code
	app.UpdatedAt = now

	result := application.ReviewResult{Application: app, Entry: entry}

	if target.Terminal {
		rep, err := s.generateReport(txCtx, app, target, entry, now)
		if err != nil {
			return application.ReviewResult{}, "", err
		}
		result.Report = &rep
		return result, from, nil
	}

	entryID, err := newID()
	if err != nil {
		return application.ReviewResult{}, "", err
	}
	scheduled := now
	if _, err := s.HistoryRepository.Create(txCtx, application.HistoryEntry{
		ID:            entryID,
		ApplicationID: app.ID,
		Stage:         target.Code,
		Attempt:       1,
		ScheduledAt:   &scheduled,
		IsActive:      true,
		CreatedAt:     now,
	}); err != nil {
		return application.ReviewResult{}, "", err
	}

	return result, from, nil
}

// target picks the stage a completed review moves the application to.
func (s *PipelineServiceImpl) target(current stage.Definition, decision application.Decision) (stage.Definition, error) {
	if decision == application.DecisionReject {
		return s.catalog.Reject(), nil
	}
	next, ok, err := s.catalog.Next(current.Code)
	if err != nil {
		return stage.Definition{}, err
	}
	if !ok {
		return s.catalog.Accept(), nil
	}
	return next, nil
}

// Reopen implements application.PipelineService.
func (s *PipelineServiceImpl) Reopen(ctx context.Context, req application.ReopenRequest) (application.HistoryEntry, error) {
	if err := req.Validate(); err != nil {
		return application.HistoryEntry{}, err
	}

	now := s.clock()
	var reopened application.HistoryEntry
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		app, err := s.ApplicationRepository.GetByIDForUpdate(txCtx, req.ApplicationID)
		if err != nil {
			return err
		}
		current, err := s.catalog.Get(app.CurrentStage)
		if err != nil {
			return s.inconsistent(txCtx, app.ID, fmt.Sprintf("stage %q not in catalog", app.CurrentStage))
		}

		entry, err := s.HistoryRepository.GetByID(txCtx, req.EntryID)
		if err != nil {
			return err
		}
		if entry.ApplicationID != app.ID {
			return application.ErrHistoryEntryNotFound
		}
		if !entry.IsActive {
			return application.ErrAlreadySuperseded
		}
		if current.Terminal {
			return fmt.Errorf("application already closed at %s: %w", current.Code, application.ErrInvalidTransition)
		}
		if entry.Stage != app.CurrentStage {
			return fmt.Errorf("entry belongs to past stage %s: %w", entry.Stage, application.ErrInvalidTransition)
		}

		if err := s.HistoryRepository.Deactivate(txCtx, entry.ID, req.ReviewerID, now); err != nil {
			return err
		}

		entryID, err := newID()
		if err != nil {
			return err
		}
		scheduled := now
		reopened, err = s.HistoryRepository.Create(txCtx, application.HistoryEntry{
			ID:            entryID,
			ApplicationID: app.ID,
			Stage:         entry.Stage,
			Attempt:       entry.Attempt + 1,
			ScheduledAt:   &scheduled,
			IsActive:      true,
			CreatedAt:     now,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, application.ErrInconsistentState) {
			s.metrics.InconsistentState()
		}
		if isRejection(err) || errors.Is(err, application.ErrHistoryEntryNotFound) {
			return application.HistoryEntry{}, err
		}
		return application.HistoryEntry{}, fmt.Errorf("failed to reopen stage: %w", err)
	}

	s.metrics.Reopened()
	s.publish(ctx, events.TransitionEvent{
		Kind:          events.KindStageReopened,
		ApplicationID: reopened.ApplicationID,
		FromStage:     reopened.Stage,
		ToStage:       reopened.Stage,
		ReviewerID:    req.ReviewerID,
		OccurredAt:    now,
	})
	s.logger.InfoContext(ctx, "stage reopened",
		slog.String("application_id", reopened.ApplicationID),
		slog.String("stage", reopened.Stage),
		slog.Int("attempt", reopened.Attempt),
		slog.String("reviewer_id", req.ReviewerID),
	)

	return reopened, nil
}

// lockCurrent locks the application and returns its current stage with the
// single active entry for it.
func (s *PipelineServiceImpl) lockCurrent(txCtx context.Context, applicationID string) (application.Application, stage.Definition, application.HistoryEntry, error) {
	app, err := s.ApplicationRepository.GetByIDForUpdate(txCtx, applicationID)
	if err != nil {
		return application.Application{}, stage.Definition{}, application.HistoryEntry{}, err
	}

	current, err := s.catalog.Get(app.CurrentStage)
	if err != nil {
		return app, stage.Definition{}, application.HistoryEntry{},
			s.inconsistent(txCtx, app.ID, fmt.Sprintf("stage %q not in catalog", app.CurrentStage))
	}
	if current.Terminal {
		return app, current, application.HistoryEntry{},
			fmt.Errorf("application already closed at %s: %w", current.Code, application.ErrInvalidTransition)
	}

	active, err := s.HistoryRepository.ListActiveByStage(txCtx, app.ID, app.CurrentStage)
	if err != nil {
		return app, current, application.HistoryEntry{}, err
	}
	if len(active) != 1 {
		return app, current, application.HistoryEntry{},
			s.inconsistent(txCtx, app.ID, fmt.Sprintf("%d active entries for stage %s", len(active), app.CurrentStage))
	}

	return app, current, active[0], nil
}

func (s *PipelineServiceImpl) afterReview(ctx context.Context, req application.ReviewRequest, from string, result application.ReviewResult) {
	app := result.Application
	event := events.TransitionEvent{
		Kind:          events.KindStageAdvanced,
		ApplicationID: app.ID,
		FromStage:     from,
		ToStage:       app.CurrentStage,
		Decision:      string(req.Decision),
		Score:         copyFloat(req.Score),
		ReviewerID:    req.ReviewerID,
		OccurredAt:    app.UpdatedAt,
	}

	switch {
	case req.Decision == application.DecisionHold:
		event.Kind = events.KindStageHeld
		if result.Entry.ReviewedAt != nil {
			event.OccurredAt = *result.Entry.ReviewedAt
		}
	case result.Report != nil:
		event.Kind = events.KindApplicationClosed
		event.FinalDecision = string(result.Report.FinalDecision)
		s.metrics.Transition(from, app.CurrentStage)
		s.metrics.ReportGenerated(string(result.Report.FinalDecision))
	default:
		s.metrics.Transition(from, app.CurrentStage)
	}

	s.publish(ctx, event)
	s.logger.InfoContext(ctx, "application reviewed",
		slog.String("application_id", app.ID),
		slog.String("decision", string(req.Decision)),
		slog.String("from_stage", from),
		slog.String("to_stage", app.CurrentStage),
		slog.String("reviewer_id", req.ReviewerID),
	)
}

// isRejection reports whether err is a precondition failure the caller can
// act on, as opposed to an infrastructure error.
func isRejection(err error) bool {
	return errors.Is(err, application.ErrInvalidTransition) ||
		errors.Is(err, application.ErrAlreadySuperseded) ||
		errors.Is(err, application.ErrApplicationNotFound) ||
		errors.Is(err, application.ErrInconsistentState) ||
		errors.Is(err, report.ErrDuplicateReport) ||
		errors.Is(err, stage.ErrUnknownStage)
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

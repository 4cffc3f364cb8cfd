package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/application"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/report"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/stage"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/pkg/events"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/pkg/validator"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/service/scoring"
	"github.com/google/uuid"
)

type PipelineServiceImpl struct {
	tx application.Transactor
	application.ApplicationRepository
	application.HistoryRepository
	report.ReportRepository

	catalog   *stage.Catalog
	scorer    *scoring.Aggregator
	metrics   *metrics.Collector
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// Options carries the optional collaborators. Zero values fall back to:
// stage weighting from the catalog, no metrics, no events, slog.Default and
// time.Now.
type Options struct {
	Scorer    *scoring.Aggregator
	Metrics   *metrics.Collector
	Publisher events.Publisher
	Logger    *slog.Logger
	Clock     func() time.Time
}

func NewPipelineService(
	tx application.Transactor,
	applicationRepo application.ApplicationRepository,
	historyRepo application.HistoryRepository,
	reportRepo report.ReportRepository,
	catalog *stage.Catalog,
	opts Options,
) application.PipelineService {
	s := &PipelineServiceImpl{
		tx:                    tx,
		ApplicationRepository: applicationRepo,
		HistoryRepository:     historyRepo,
		ReportRepository:      reportRepo,
		catalog:               catalog,
		scorer:                opts.Scorer,
		metrics:               opts.Metrics,
		publisher:             opts.Publisher,
		logger:                opts.Logger,
		now:                   opts.Clock,
	}
	if s.scorer == nil {
		s.scorer = scoring.NewAggregator(scoring.StageWeighting(catalog.Weights()))
	}
	if s.publisher == nil {
		s.publisher = events.Noop{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// clock returns the current time at the precision PostgreSQL stores.
func (s *PipelineServiceImpl) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id.String(), nil
}

// CreateApplication implements application.PipelineService.
func (s *PipelineServiceImpl) CreateApplication(ctx context.Context, req application.CreateApplicationRequest) (application.Application, error) {
	req.CandidateID = strings.TrimSpace(req.CandidateID)
	req.VacancyPeriodID = strings.TrimSpace(req.VacancyPeriodID)
	if err := req.Validate(); err != nil {
		return application.Application{}, err
	}

	appID, err := newID()
	if err != nil {
		return application.Application{}, err
	}
	entryID, err := newID()
	if err != nil {
		return application.Application{}, err
	}

	now := s.clock()
	first := s.catalog.First()

	var created application.Application
	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		created, err = s.ApplicationRepository.Create(txCtx, application.Application{
			ID:              appID,
			CandidateID:     req.CandidateID,
			VacancyPeriodID: req.VacancyPeriodID,
			CurrentStage:    first.Code,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		if err != nil {
			return err
		}

		scheduled := now
		_, err = s.HistoryRepository.Create(txCtx, application.HistoryEntry{
			ID:            entryID,
			ApplicationID: appID,
			Stage:         first.Code,
			Attempt:       1,
			ScheduledAt:   &scheduled,
			IsActive:      true,
			CreatedAt:     now,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, application.ErrApplicationExists) {
			return application.Application{}, err
		}
		return application.Application{}, fmt.Errorf("failed to create application: %w", err)
	}

	s.metrics.ApplicationCreated()
	s.publish(ctx, events.TransitionEvent{
		Kind:          events.KindApplicationCreated,
		ApplicationID: created.ID,
		ToStage:       created.CurrentStage,
		OccurredAt:    now,
	})
	s.logger.InfoContext(ctx, "application created",
		slog.String("application_id", created.ID),
		slog.String("stage", created.CurrentStage),
	)

	return created, nil
}

// GetApplication implements application.PipelineService.
func (s *PipelineServiceImpl) GetApplication(ctx context.Context, id string) (application.Detail, error) {
	snap, err := s.snapshot(ctx, id)
	if err != nil {
		return application.Detail{}, err
	}
	return application.Detail{
		Application: snap.app,
		History:     snap.entries,
		Report:      snap.report,
	}, nil
}

// ListApplications implements application.PipelineService.
func (s *PipelineServiceImpl) ListApplications(ctx context.Context, filter application.ApplicationFilter) ([]application.Application, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}
	if filter.Stage != nil {
		if _, err := s.catalog.Get(*filter.Stage); err != nil {
			return nil, 0, err
		}
	}

	apps, total, err := s.ApplicationRepository.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list applications: %w", err)
	}
	return apps, total, nil
}

// ListHistory implements application.PipelineService.
func (s *PipelineServiceImpl) ListHistory(ctx context.Context, applicationID string) ([]application.HistoryEntry, error) {
	snap, err := s.snapshot(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	return snap.entries, nil
}

// StageScore implements application.PipelineService.
func (s *PipelineServiceImpl) StageScore(ctx context.Context, applicationID, stageCode string) (*float64, error) {
	if _, err := s.catalog.Get(stageCode); err != nil {
		return nil, err
	}
	snap, err := s.snapshot(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	return s.scorer.StageScore(snap.entries, stageCode), nil
}

// OverallScore implements application.PipelineService.
func (s *PipelineServiceImpl) OverallScore(ctx context.Context, applicationID string) (*float64, error) {
	snap, err := s.snapshot(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	return s.scorer.OverallScore(snap.entries), nil
}

// GetScores implements application.PipelineService.
func (s *PipelineServiceImpl) GetScores(ctx context.Context, applicationID string) (application.Scores, error) {
	snap, err := s.snapshot(ctx, applicationID)
	if err != nil {
		return application.Scores{}, err
	}
	return application.Scores{
		ApplicationID: snap.app.ID,
		Stages:        s.scorer.Breakdown(snap.entries, s.catalog.Steps()),
		Overall:       s.scorer.OverallScore(snap.entries),
	}, nil
}

// GetReport implements application.PipelineService.
func (s *PipelineServiceImpl) GetReport(ctx context.Context, applicationID string) (report.Report, error) {
	if !validator.IsValidUUID(applicationID) {
		return report.Report{}, application.ErrApplicationNotFound
	}
	if _, err := s.ApplicationRepository.GetByID(ctx, applicationID); err != nil {
		return report.Report{}, err
	}
	rep, err := s.ReportRepository.GetByApplicationID(ctx, applicationID)
	if err != nil {
		return report.Report{}, err
	}
	return rep, nil
}

// GetSummary implements application.PipelineService.
func (s *PipelineServiceImpl) GetSummary(ctx context.Context, applicationID string) (report.Report, error) {
	snap, err := s.snapshot(ctx, applicationID)
	if err != nil {
		return report.Report{}, err
	}
	if snap.report != nil {
		return *snap.report, nil
	}

	current, err := s.catalog.Get(snap.app.CurrentStage)
	if err != nil {
		s.metrics.InconsistentState()
		return report.Report{}, s.inconsistent(ctx, snap.app.ID, fmt.Sprintf("stage %q not in catalog", snap.app.CurrentStage))
	}
	if current.Terminal {
		s.metrics.InconsistentState()
		return report.Report{}, s.inconsistent(ctx, snap.app.ID, "terminal application has no report")
	}

	return report.Report{
		ApplicationID: snap.app.ID,
		Version:       1,
		OverallScore:  s.scorer.OverallScore(snap.entries),
		FinalDecision: report.FinalDecisionPending,
		StageScores:   s.scorer.Breakdown(snap.entries, s.catalog.Steps()),
	}, nil
}

type snapshot struct {
	app     application.Application
	entries []application.HistoryEntry
	report  *report.Report
}

// snapshot reads an application with its ledger and report under the
// application lock, so a concurrent review is seen entirely or not at all.
func (s *PipelineServiceImpl) snapshot(ctx context.Context, applicationID string) (snapshot, error) {
	if !validator.IsValidUUID(applicationID) {
		return snapshot{}, application.ErrApplicationNotFound
	}

	var snap snapshot
	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		app, err := s.ApplicationRepository.GetByIDForUpdate(txCtx, applicationID)
		if err != nil {
			return err
		}
		entries, err := s.HistoryRepository.ListByApplication(txCtx, applicationID)
		if err != nil {
			return err
		}
		rep, err := s.ReportRepository.GetByApplicationID(txCtx, applicationID)
		switch {
		case err == nil:
			snap.report = &rep
		case errors.Is(err, report.ErrReportNotFound):
		default:
			return err
		}
		snap.app = app
		snap.entries = entries
		return nil
	})
	if err != nil {
		if errors.Is(err, application.ErrApplicationNotFound) {
			return snapshot{}, err
		}
		return snapshot{}, fmt.Errorf("failed to read application: %w", err)
	}
	return snap, nil
}

// inconsistent logs a broken invariant. The state is left as found.
func (s *PipelineServiceImpl) inconsistent(ctx context.Context, applicationID, reason string) error {
	s.logger.ErrorContext(ctx, "inconsistent application state",
		slog.String("application_id", applicationID),
		slog.String("reason", reason),
	)
	return fmt.Errorf("application %s: %s: %w", applicationID, reason, application.ErrInconsistentState)
}

// publish delivers event best effort.
func (s *PipelineServiceImpl) publish(ctx context.Context, event events.TransitionEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish transition event",
			slog.String("application_id", event.ApplicationID),
			slog.String("kind", string(event.Kind)),
			slog.String("error", err.Error()),
		)
	}
}

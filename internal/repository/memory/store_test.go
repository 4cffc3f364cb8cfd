package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/application"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/report"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store   *Store
	tx      *Transactor
	apps    application.ApplicationRepository
	history application.HistoryRepository
	reports report.ReportRepository
}

func newFixture() fixture {
	s := NewStore()
	return fixture{
		store:   s,
		tx:      NewTransactor(s),
		apps:    NewApplicationRepository(s),
		history: NewHistoryRepository(s),
		reports: NewReportRepository(s),
	}
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func (f fixture) seed(t *testing.T, candidate string) application.Application {
	t.Helper()
	app, err := f.apps.Create(context.Background(), application.Application{
		ID:              newID(),
		CandidateID:     candidate,
		VacancyPeriodID: "vp-1",
		CurrentStage:    "admin_selection",
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	require.NoError(t, err)
	return app
}

func (f fixture) seedEntry(t *testing.T, appID, stage string) application.HistoryEntry {
	t.Helper()
	entry, err := f.history.Create(context.Background(), application.HistoryEntry{
		ID:            newID(),
		ApplicationID: appID,
		Stage:         stage,
		Attempt:       1,
		ScheduledAt:   &now,
		IsActive:      true,
		CreatedAt:     now,
	})
	require.NoError(t, err)
	return entry
}

func TestApplicationRepository_CreateRejectsDuplicatePair(t *testing.T) {
	f := newFixture()
	f.seed(t, "cand-1")

	_, err := f.apps.Create(context.Background(), application.Application{
		ID:              newID(),
		CandidateID:     "cand-1",
		VacancyPeriodID: "vp-1",
		CurrentStage:    "admin_selection",
	})
	assert.ErrorIs(t, err, application.ErrApplicationExists)
}

func TestApplicationRepository_UpdateStageIsCompareAndSwap(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	app := f.seed(t, "cand-1")

	require.NoError(t, f.apps.UpdateStage(ctx, app.ID, "admin_selection", "psychotest", now.Add(time.Hour)))

	err := f.apps.UpdateStage(ctx, app.ID, "admin_selection", "psychotest", now)
	assert.ErrorIs(t, err, application.ErrInvalidTransition)

	got, err := f.apps.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, "psychotest", got.CurrentStage)
	assert.Equal(t, now.Add(time.Hour), got.UpdatedAt)

	err = f.apps.UpdateStage(ctx, newID(), "admin_selection", "psychotest", now)
	assert.ErrorIs(t, err, application.ErrApplicationNotFound)
}

func TestApplicationRepository_GetByIDForUpdateNeedsTransaction(t *testing.T) {
	f := newFixture()
	app := f.seed(t, "cand-1")

	_, err := f.apps.GetByIDForUpdate(context.Background(), app.ID)
	assert.ErrorIs(t, err, application.ErrTransactionMissing)

	err = f.tx.WithinTransaction(context.Background(), func(txCtx context.Context) error {
		got, err := f.apps.GetByIDForUpdate(txCtx, app.ID)
		require.NoError(t, err)
		assert.Equal(t, app.ID, got.ID)
		// re-entrant within the same transaction
		_, err = f.apps.GetByIDForUpdate(txCtx, app.ID)
		return err
	})
	require.NoError(t, err)
}

func TestApplicationRepository_ListFiltersAndPaginates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.apps.Create(ctx, application.Application{
			ID:              newID(),
			CandidateID:     fmt.Sprintf("cand-%d", i),
			VacancyPeriodID: "vp-1",
			CurrentStage:    "admin_selection",
			CreatedAt:       now.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	other := "vp-2"
	_, err := f.apps.Create(ctx, application.Application{ID: newID(), CandidateID: "cand-x", VacancyPeriodID: other, CurrentStage: "interview", CreatedAt: now})
	require.NoError(t, err)

	vp := "vp-1"
	page, total, err := f.apps.List(ctx, application.ApplicationFilter{VacancyPeriodID: &vp, Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page, 2)
	assert.Equal(t, "cand-4", page[0].CandidateID, "newest first")

	last, _, err := f.apps.List(ctx, application.ApplicationFilter{VacancyPeriodID: &vp, Page: 3, Limit: 2})
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "cand-0", last[0].CandidateID)

	stageCode := "interview"
	byStage, total, err := f.apps.List(ctx, application.ApplicationFilter{Stage: &stageCode, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "cand-x", byStage[0].CandidateID)

	empty, _, err := f.apps.List(ctx, application.ApplicationFilter{Page: 9, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestHistoryRepository_SingleActiveEntryPerStage(t *testing.T) {
	f := newFixture()
	app := f.seed(t, "cand-1")
	f.seedEntry(t, app.ID, "admin_selection")

	_, err := f.history.Create(context.Background(), application.HistoryEntry{
		ID:            newID(),
		ApplicationID: app.ID,
		Stage:         "admin_selection",
		IsActive:      true,
	})
	assert.ErrorIs(t, err, application.ErrInconsistentState)
}

func TestHistoryRepository_DeactivateFreezesEntry(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	app := f.seed(t, "cand-1")
	entry := f.seedEntry(t, app.ID, "admin_selection")

	require.NoError(t, f.history.Deactivate(ctx, entry.ID, "reviewer-1", now))

	err := f.history.Deactivate(ctx, entry.ID, "reviewer-2", now)
	assert.ErrorIs(t, err, application.ErrAlreadySuperseded)

	entry.Notes = "late edit"
	err = f.history.UpdateReview(ctx, entry)
	assert.ErrorIs(t, err, application.ErrAlreadySuperseded)

	got, err := f.history.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	require.NotNil(t, got.DeactivatedBy)
	assert.Equal(t, "reviewer-1", *got.DeactivatedBy)
	assert.Empty(t, got.Notes)

	active, err := f.history.ListActiveByStage(ctx, app.ID, "admin_selection")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestHistoryRepository_ReturnsCopies(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	app := f.seed(t, "cand-1")
	entry := f.seedEntry(t, app.ID, "admin_selection")

	listed, err := f.history.ListByApplication(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	*listed[0].ScheduledAt = now.Add(24 * time.Hour)

	got, err := f.history.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, now, *got.ScheduledAt)
}

func TestTransactor_RollbackUndoesEveryWrite(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	app := f.seed(t, "cand-1")
	entry := f.seedEntry(t, app.ID, "admin_selection")
	boom := errors.New("boom")

	err := f.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if _, err := f.apps.GetByIDForUpdate(txCtx, app.ID); err != nil {
			return err
		}
		score := 75.0
		completed := now.Add(time.Minute)
		entry.Score = &score
		entry.CompletedAt = &completed
		if err := f.history.UpdateReview(txCtx, entry); err != nil {
			return err
		}
		if err := f.apps.UpdateStage(txCtx, app.ID, "admin_selection", "psychotest", completed); err != nil {
			return err
		}
		if _, err := f.history.Create(txCtx, application.HistoryEntry{
			ID: newID(), ApplicationID: app.ID, Stage: "psychotest", Attempt: 1, IsActive: true,
		}); err != nil {
			return err
		}
		if _, err := f.reports.Create(txCtx, report.Report{ID: newID(), ApplicationID: app.ID, Version: 1}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := f.apps.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin_selection", got.CurrentStage)
	assert.Equal(t, now, got.UpdatedAt)

	entries, err := f.history.ListByApplication(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].Score)
	assert.Nil(t, entries[0].CompletedAt)

	exists, err := f.reports.ExistsForApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTransactor_RollsBackOnPanic(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = f.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
			_, err := f.apps.Create(txCtx, application.Application{
				ID: newID(), CandidateID: "cand-1", VacancyPeriodID: "vp-1", CurrentStage: "admin_selection",
			})
			require.NoError(t, err)
			panic("crash")
		})
	})

	_, total, err := f.apps.List(ctx, application.ApplicationFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)

	// the lock taken by Create was released
	f.seed(t, "cand-1")
}

func TestTransactor_SerializesPerApplication(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	app := f.seed(t, "cand-1")

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
				current, err := f.apps.GetByIDForUpdate(txCtx, app.ID)
				if err != nil {
					return err
				}
				if current.CurrentStage != "admin_selection" {
					return application.ErrInvalidTransition
				}
				return f.apps.UpdateStage(txCtx, app.ID, "admin_selection", "psychotest", now)
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
}

func TestReportRepository_OnePerApplication(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	app := f.seed(t, "cand-1")
	overall := 80.0

	_, err := f.reports.Create(ctx, report.Report{
		ID:            newID(),
		ApplicationID: app.ID,
		Version:       1,
		OverallScore:  &overall,
		FinalDecision: report.FinalDecisionAccepted,
	})
	require.NoError(t, err)

	_, err = f.reports.Create(ctx, report.Report{ID: newID(), ApplicationID: app.ID, Version: 1})
	assert.ErrorIs(t, err, report.ErrDuplicateReport)

	got, err := f.reports.GetByApplicationID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, report.FinalDecisionAccepted, got.FinalDecision)
	assert.Equal(t, 80.0, *got.OverallScore)

	_, err = f.reports.GetByApplicationID(ctx, newID())
	assert.ErrorIs(t, err, report.ErrReportNotFound)
}

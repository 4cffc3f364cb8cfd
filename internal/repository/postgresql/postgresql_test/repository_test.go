package postgresql_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/application"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/report"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/repository/postgresql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSetup *TestDatabaseSetup

func TestMain(m *testing.M) {
	if !integrationEnabled() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	setup, err := NewTestDatabase(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "integration database: %v\n", err)
		os.Exit(1)
	}
	testSetup = setup

	code := m.Run()
	setup.Close(ctx)
	os.Exit(code)
}

type repos struct {
	tx      *postgresql.Transactor
	apps    application.ApplicationRepository
	history application.HistoryRepository
	reports report.ReportRepository
}

// setupTestData skips without INTEGRATION_TESTS=1 and truncates otherwise.
func setupTestData(t *testing.T) repos {
	t.Helper()
	if testSetup == nil {
		t.Skip("set INTEGRATION_TESTS=1 to run PostgreSQL repository tests")
	}
	require.NoError(t, testSetup.TruncateAllTables(context.Background()))

	db := testSetup.DB
	return repos{
		tx:      postgresql.NewTransactor(db),
		apps:    postgresql.NewApplicationRepository(db),
		history: postgresql.NewHistoryRepository(db),
		reports: postgresql.NewReportRepository(db),
	}
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

var now = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func createTestApplication(t *testing.T, r repos, candidate string) application.Application {
	t.Helper()
	app, err := r.apps.Create(context.Background(), application.Application{
		ID:              newID(),
		CandidateID:     candidate,
		VacancyPeriodID: "vp-2025-q3",
		CurrentStage:    "admin_selection",
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	require.NoError(t, err)
	return app
}

func createTestEntry(t *testing.T, r repos, appID, stage string) application.HistoryEntry {
	t.Helper()
	scheduled := now
	entry, err := r.history.Create(context.Background(), application.HistoryEntry{
		ID:            newID(),
		ApplicationID: appID,
		Stage:         stage,
		Attempt:       1,
		ScheduledAt:   &scheduled,
		IsActive:      true,
		CreatedAt:     now,
	})
	require.NoError(t, err)
	return entry
}

func TestApplicationRepository_Create_DuplicatePair(t *testing.T) {
	r := setupTestData(t)
	createTestApplication(t, r, "cand-1")

	_, err := r.apps.Create(context.Background(), application.Application{
		ID:              newID(),
		CandidateID:     "cand-1",
		VacancyPeriodID: "vp-2025-q3",
		CurrentStage:    "admin_selection",
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	assert.ErrorIs(t, err, application.ErrApplicationExists)
}

func TestApplicationRepository_GetByID_NotFound(t *testing.T) {
	r := setupTestData(t)

	_, err := r.apps.GetByID(context.Background(), newID())
	assert.ErrorIs(t, err, application.ErrApplicationNotFound)
}

func TestApplicationRepository_UpdateStage_CompareAndSwap(t *testing.T) {
	r := setupTestData(t)
	ctx := context.Background()
	app := createTestApplication(t, r, "cand-1")

	require.NoError(t, r.apps.UpdateStage(ctx, app.ID, "admin_selection", "psychotest", now.Add(time.Hour)))

	err := r.apps.UpdateStage(ctx, app.ID, "admin_selection", "psychotest", now)
	assert.ErrorIs(t, err, application.ErrInvalidTransition)

	err = r.apps.UpdateStage(ctx, newID(), "admin_selection", "psychotest", now)
	assert.ErrorIs(t, err, application.ErrApplicationNotFound)

	got, err := r.apps.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, "psychotest", got.CurrentStage)
}

func TestApplicationRepository_List(t *testing.T) {
	r := setupTestData(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := r.apps.Create(ctx, application.Application{
			ID:              newID(),
			CandidateID:     fmt.Sprintf("cand-%d", i),
			VacancyPeriodID: "vp-2025-q3",
			CurrentStage:    "admin_selection",
			CreatedAt:       now.Add(time.Duration(i) * time.Minute),
			UpdatedAt:       now,
		})
		require.NoError(t, err)
	}

	vp := "vp-2025-q3"
	apps, total, err := r.apps.List(ctx, application.ApplicationFilter{VacancyPeriodID: &vp, Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, apps, 2)
	assert.Equal(t, "cand-2", apps[0].CandidateID)
}

func TestApplicationRepository_GetByIDForUpdate_RequiresTransaction(t *testing.T) {
	r := setupTestData(t)
	app := createTestApplication(t, r, "cand-1")

	_, err := r.apps.GetByIDForUpdate(context.Background(), app.ID)
	assert.ErrorIs(t, err, application.ErrTransactionMissing)
}

func TestHistoryRepository_PartialUniqueIndex(t *testing.T) {
	r := setupTestData(t)
	ctx := context.Background()
	app := createTestApplication(t, r, "cand-1")
	first := createTestEntry(t, r, app.ID, "admin_selection")

	_, err := r.history.Create(ctx, application.HistoryEntry{
		ID: newID(), ApplicationID: app.ID, Stage: "admin_selection", Attempt: 2, IsActive: true, CreatedAt: now,
	})
	assert.ErrorIs(t, err, application.ErrInconsistentState)

	// after deactivation a new active entry is allowed
	require.NoError(t, r.history.Deactivate(ctx, first.ID, "reviewer-1", now))
	createTestEntry(t, r, app.ID, "admin_selection")

	err = r.history.Deactivate(ctx, first.ID, "reviewer-1", now)
	assert.ErrorIs(t, err, application.ErrAlreadySuperseded)

	err = r.history.Deactivate(ctx, newID(), "reviewer-1", now)
	assert.ErrorIs(t, err, application.ErrHistoryEntryNotFound)
}

func TestHistoryRepository_UpdateReview(t *testing.T) {
	r := setupTestData(t)
	ctx := context.Background()
	app := createTestApplication(t, r, "cand-1")
	entry := createTestEntry(t, r, app.ID, "admin_selection")

	score := 82.5
	completed := now.Add(2 * time.Hour)
	decision := application.DecisionAdvance
	reviewer := "reviewer-1"
	entry.Score = &score
	entry.Notes = "complete documents"
	entry.CompletedAt = &completed
	entry.Decision = &decision
	entry.ReviewedBy = &reviewer
	entry.ReviewedAt = &completed
	require.NoError(t, r.history.UpdateReview(ctx, entry))

	got, err := r.history.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Score)
	assert.Equal(t, 82.5, *got.Score)
	assert.Equal(t, "complete documents", got.Notes)
	require.NotNil(t, got.Decision)
	assert.Equal(t, application.DecisionAdvance, *got.Decision)
	assert.True(t, got.CompletedAt.Equal(completed))

	entries, err := r.history.ListByApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestTransactor_Rollback(t *testing.T) {
	r := setupTestData(t)
	ctx := context.Background()
	app := createTestApplication(t, r, "cand-1")
	boom := errors.New("boom")

	err := r.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if _, err := r.apps.GetByIDForUpdate(txCtx, app.ID); err != nil {
			return err
		}
		if err := r.apps.UpdateStage(txCtx, app.ID, "admin_selection", "rejected", now); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := r.apps.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin_selection", got.CurrentStage)
}

func TestTransactor_ForUpdateSerializes(t *testing.T) {
	r := setupTestData(t)
	ctx := context.Background()
	app := createTestApplication(t, r, "cand-1")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
				current, err := r.apps.GetByIDForUpdate(txCtx, app.ID)
				if err != nil {
					return err
				}
				return r.apps.UpdateStage(txCtx, app.ID, current.CurrentStage, "accepted", now)
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// every worker succeeds in turn because each sees the committed stage
	assert.Equal(t, 8, succeeded)
}

func TestReportRepository_CreateAndGet(t *testing.T) {
	r := setupTestData(t)
	ctx := context.Background()
	app := createTestApplication(t, r, "cand-1")

	overall := 78.33
	s1, s2 := 80.0, 76.66
	rep := report.Report{
		ID:            newID(),
		ApplicationID: app.ID,
		Version:       1,
		OverallScore:  &overall,
		FinalDecision: report.FinalDecisionAccepted,
		StageScores: report.StageScores{
			{Stage: "admin_selection", Name: "Administration", Score: &s1},
			{Stage: "interview", Name: "Interview", Score: &s2},
		},
		FinalNotes:     "strong hire",
		DecisionMadeBy: "reviewer-1",
		DecisionMadeAt: now,
		CreatedAt:      now,
	}
	_, err := r.reports.Create(ctx, rep)
	require.NoError(t, err)

	_, err = r.reports.Create(ctx, report.Report{
		ID: newID(), ApplicationID: app.ID, Version: 1, FinalDecision: report.FinalDecisionRejected,
		DecisionMadeBy: "reviewer-2", DecisionMadeAt: now, CreatedAt: now,
	})
	assert.ErrorIs(t, err, report.ErrDuplicateReport)

	got, err := r.reports.GetByApplicationID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, report.FinalDecisionAccepted, got.FinalDecision)
	require.Len(t, got.StageScores, 2)
	assert.Equal(t, 76.66, *got.StageScores[1].Score)

	exists, err := r.reports.ExistsForApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = r.reports.GetByApplicationID(ctx, newID())
	assert.ErrorIs(t, err, report.ErrReportNotFound)
}

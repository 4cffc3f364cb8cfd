package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/application"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type historyRepositoryImpl struct {
	db *database.DB
}

func NewHistoryRepository(db *database.DB) application.HistoryRepository {
	return &historyRepositoryImpl{db: db}
}

const historyColumns = `
	id, application_id, stage, attempt,
	scheduled_at, completed_at,
	score, notes, decision,
	reviewed_by, reviewed_at,
	is_active, deactivated_by, deactivated_at,
	created_at`

// Create implements application.HistoryRepository.
func (r *historyRepositoryImpl) Create(ctx context.Context, entry application.HistoryEntry) (application.HistoryEntry, error) {
	q := GetQuerier(ctx, r.db)
	query := `
		INSERT INTO application_stage_histories (
			id, application_id, stage, attempt,
			scheduled_at, completed_at,
			score, notes, decision,
			reviewed_by, reviewed_at,
			is_active, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at
	`
	err := q.QueryRow(ctx, query,
		entry.ID, entry.ApplicationID, entry.Stage, entry.Attempt,
		entry.ScheduledAt, entry.CompletedAt,
		entry.Score, entry.Notes, decisionArg(entry.Decision),
		entry.ReviewedBy, entry.ReviewedAt,
		entry.IsActive, entry.CreatedAt,
	).Scan(&entry.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "uq_stage_histories_active") {
			return application.HistoryEntry{}, fmt.Errorf("stage %s already has an active entry: %w", entry.Stage, application.ErrInconsistentState)
		}
		return application.HistoryEntry{}, fmt.Errorf("insert history entry: %w", err)
	}
	return entry, nil
}

// GetByID implements application.HistoryRepository.
func (r *historyRepositoryImpl) GetByID(ctx context.Context, id string) (application.HistoryEntry, error) {
	q := GetQuerier(ctx, r.db)
	query := `SELECT ` + historyColumns + ` FROM application_stage_histories WHERE id = $1`

	entry, err := scanHistoryEntry(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return application.HistoryEntry{}, application.ErrHistoryEntryNotFound
		}
		return application.HistoryEntry{}, fmt.Errorf("get history entry: %w", err)
	}
	return entry, nil
}

// ListByApplication implements application.HistoryRepository.
func (r *historyRepositoryImpl) ListByApplication(ctx context.Context, applicationID string) ([]application.HistoryEntry, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM application_stage_histories
		WHERE application_id = $1
		ORDER BY created_at, id
	`
	return r.list(ctx, query, applicationID)
}

// ListActiveByStage implements application.HistoryRepository.
func (r *historyRepositoryImpl) ListActiveByStage(ctx context.Context, applicationID, stage string) ([]application.HistoryEntry, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM application_stage_histories
		WHERE application_id = $1 AND stage = $2 AND is_active
		ORDER BY created_at, id
	`
	return r.list(ctx, query, applicationID, stage)
}

// UpdateReview implements application.HistoryRepository.
func (r *historyRepositoryImpl) UpdateReview(ctx context.Context, entry application.HistoryEntry) error {
	q := GetQuerier(ctx, r.db)
	query := `
		UPDATE application_stage_histories
		SET completed_at = $2,
			score = $3,
			notes = $4,
			decision = $5,
			reviewed_by = $6,
			reviewed_at = $7
		WHERE id = $1 AND is_active
	`
	tag, err := q.Exec(ctx, query,
		entry.ID, entry.CompletedAt, entry.Score, entry.Notes,
		decisionArg(entry.Decision), entry.ReviewedBy, entry.ReviewedAt,
	)
	if err != nil {
		return fmt.Errorf("update history review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.inactiveOrMissing(ctx, entry.ID)
	}
	return nil
}

// Deactivate implements application.HistoryRepository.
func (r *historyRepositoryImpl) Deactivate(ctx context.Context, id, deactivatedBy string, at time.Time) error {
	q := GetQuerier(ctx, r.db)
	query := `
		UPDATE application_stage_histories
		SET is_active = FALSE, deactivated_by = $2, deactivated_at = $3
		WHERE id = $1 AND is_active
	`
	tag, err := q.Exec(ctx, query, id, deactivatedBy, at)
	if err != nil {
		return fmt.Errorf("deactivate history entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.inactiveOrMissing(ctx, id)
	}
	return nil
}

func (r *historyRepositoryImpl) inactiveOrMissing(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM application_stage_histories WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check history entry: %w", err)
	}
	if !exists {
		return application.ErrHistoryEntryNotFound
	}
	return application.ErrAlreadySuperseded
}

func (r *historyRepositoryImpl) list(ctx context.Context, query string, args ...interface{}) ([]application.HistoryEntry, error) {
	q := GetQuerier(ctx, r.db)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history entries: %w", err)
	}
	defer rows.Close()

	entries := []application.HistoryEntry{}
	for rows.Next() {
		entry, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history entries: %w", err)
	}
	return entries, nil
}

func scanHistoryEntry(row pgx.Row) (application.HistoryEntry, error) {
	var (
		e        application.HistoryEntry
		decision *string
	)
	err := row.Scan(
		&e.ID, &e.ApplicationID, &e.Stage, &e.Attempt,
		&e.ScheduledAt, &e.CompletedAt,
		&e.Score, &e.Notes, &decision,
		&e.ReviewedBy, &e.ReviewedAt,
		&e.IsActive, &e.DeactivatedBy, &e.DeactivatedAt,
		&e.CreatedAt,
	)
	if err != nil {
		return application.HistoryEntry{}, err
	}
	if decision != nil {
		d := application.Decision(*decision)
		e.Decision = &d
	}
	return e, nil
}

func decisionArg(d *application.Decision) *string {
	if d == nil {
		return nil
	}
	s := string(*d)
	return &s
}

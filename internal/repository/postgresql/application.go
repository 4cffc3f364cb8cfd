package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/application"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type applicationRepositoryImpl struct {
	db *database.DB
}

func NewApplicationRepository(db *database.DB) application.ApplicationRepository {
	return &applicationRepositoryImpl{db: db}
}

const applicationColumns = `id, candidate_id, vacancy_period_id, current_stage, created_at, updated_at`

// Create implements application.ApplicationRepository.
func (r *applicationRepositoryImpl) Create(ctx context.Context, app application.Application) (application.Application, error) {
	q := GetQuerier(ctx, r.db)
	query := `
		INSERT INTO applications (
			id, candidate_id, vacancy_period_id, current_stage, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := q.QueryRow(ctx, query,
		app.ID, app.CandidateID, app.VacancyPeriodID, app.CurrentStage, app.CreatedAt, app.UpdatedAt,
	).Scan(&app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "uq_applications_candidate_vacancy") {
			return application.Application{}, application.ErrApplicationExists
		}
		return application.Application{}, fmt.Errorf("insert application: %w", err)
	}
	return app, nil
}

// GetByID implements application.ApplicationRepository.
func (r *applicationRepositoryImpl) GetByID(ctx context.Context, id string) (application.Application, error) {
	q := GetQuerier(ctx, r.db)
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	return scanApplication(q.QueryRow(ctx, query, id))
}

// GetByIDForUpdate implements application.ApplicationRepository.
func (r *applicationRepositoryImpl) GetByIDForUpdate(ctx context.Context, id string) (application.Application, error) {
	tx, ok := txFromContext(ctx)
	if !ok {
		return application.Application{}, application.ErrTransactionMissing
	}
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1 FOR UPDATE`
	return scanApplication(tx.QueryRow(ctx, query, id))
}

// List implements application.ApplicationRepository.
func (r *applicationRepositoryImpl) List(ctx context.Context, filter application.ApplicationFilter) ([]application.Application, int64, error) {
	q := GetQuerier(ctx, r.db)

	var (
		where []string
		args  []interface{}
	)
	if filter.VacancyPeriodID != nil {
		args = append(args, *filter.VacancyPeriodID)
		where = append(where, fmt.Sprintf("vacancy_period_id = $%d", len(args)))
	}
	if filter.CandidateID != nil {
		args = append(args, *filter.CandidateID)
		where = append(where, fmt.Sprintf("candidate_id = $%d", len(args)))
	}
	if filter.Stage != nil {
		args = append(args, *filter.Stage)
		where = append(where, fmt.Sprintf("current_stage = $%d", len(args)))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM applications ` + whereClause
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset())
	query := fmt.Sprintf(`
		SELECT %s
		FROM applications
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, applicationColumns, whereClause, len(args)-1, len(args))

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	apps := []application.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, 0, err
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate applications: %w", err)
	}

	return apps, total, nil
}

// UpdateStage implements application.ApplicationRepository.
func (r *applicationRepositoryImpl) UpdateStage(ctx context.Context, id, fromStage, toStage string, at time.Time) error {
	q := GetQuerier(ctx, r.db)
	query := `
		UPDATE applications
		SET current_stage = $3, updated_at = $4
		WHERE id = $1 AND current_stage = $2
	`
	tag, err := q.Exec(ctx, query, id, fromStage, toStage, at)
	if err != nil {
		return fmt.Errorf("update application stage: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM applications WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check application: %w", err)
	}
	if !exists {
		return application.ErrApplicationNotFound
	}
	return fmt.Errorf("application %s is no longer at %s: %w", id, fromStage, application.ErrInvalidTransition)
}

func scanApplication(row pgx.Row) (application.Application, error) {
	var app application.Application
	err := row.Scan(
		&app.ID, &app.CandidateID, &app.VacancyPeriodID, &app.CurrentStage,
		&app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return application.Application{}, application.ErrApplicationNotFound
		}
		return application.Application{}, fmt.Errorf("scan application: %w", err)
	}
	return app, nil
}

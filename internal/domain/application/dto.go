package application

import (
	"fmt"
	"math"
	"time"

	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/report"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/stage"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/pkg/validator"
)

const (
	MinScore = 0.0
	MaxScore = 100.0

	maxIdentityLength = 255
	maxNotesLength    = 5000

	// keeps (page-1)*limit well inside int32 for the largest limit
	maxPage = 1_000_000
)

// ========================================
// REQUESTS
// ========================================

type CreateApplicationRequest struct {
	CandidateID     string `json:"candidate_id"`
	VacancyPeriodID string `json:"vacancy_period_id"`
}

func (r *CreateApplicationRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.CandidateID) {
		errs = append(errs, validator.ValidationError{
			Field:   "candidate_id",
			Message: "candidate_id is required",
		})
	} else if len(r.CandidateID) > maxIdentityLength {
		errs = append(errs, validator.ValidationError{
			Field:   "candidate_id",
			Message: "candidate_id must not exceed 255 characters",
		})
	}

	if validator.IsEmpty(r.VacancyPeriodID) {
		errs = append(errs, validator.ValidationError{
			Field:   "vacancy_period_id",
			Message: "vacancy_period_id is required",
		})
	} else if len(r.VacancyPeriodID) > maxIdentityLength {
		errs = append(errs, validator.ValidationError{
			Field:   "vacancy_period_id",
			Message: "vacancy_period_id must not exceed 255 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ReviewRequest struct {
	ApplicationID string   `json:"-"`
	Decision      Decision `json:"decision"`
	Score         *float64 `json:"score,omitempty"`
	Notes         *string  `json:"notes,omitempty"`
	// Stage, when set, must equal the application's current stage.
	Stage      *string `json:"stage,omitempty"`
	ReviewerID string  `json:"-"`
}

func (r *ReviewRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.ApplicationID) {
		errs = append(errs, validator.ValidationError{
			Field:   "application_id",
			Message: "application_id must be a valid UUID",
		})
	}

	if !r.Decision.IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "decision",
			Message: "decision must be one of: advance, reject, hold",
		})
	}

	if r.Score == nil {
		if r.Decision != DecisionHold && r.Decision.IsValid() {
			errs = append(errs, validator.ValidationError{
				Field:   "score",
				Message: fmt.Sprintf("score is required when decision is %s", r.Decision),
			})
		}
	} else if math.IsNaN(*r.Score) || *r.Score < MinScore || *r.Score > MaxScore {
		errs = append(errs, validator.ValidationError{
			Field:   "score",
			Message: "score must be between 0 and 100",
		})
	}

	if r.Notes != nil && len(*r.Notes) > maxNotesLength {
		errs = append(errs, validator.ValidationError{
			Field:   "notes",
			Message: "notes must not exceed 5000 characters",
		})
	}

	if r.Stage != nil && validator.IsEmpty(*r.Stage) {
		errs = append(errs, validator.ValidationError{
			Field:   "stage",
			Message: "stage must not be empty",
		})
	}

	if validator.IsEmpty(r.ReviewerID) {
		errs = append(errs, validator.ValidationError{
			Field:   "reviewer_id",
			Message: "reviewer_id is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ReopenRequest struct {
	ApplicationID string `json:"-"`
	EntryID       string `json:"-"`
	ReviewerID    string `json:"-"`
}

func (r *ReopenRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.ApplicationID) {
		errs = append(errs, validator.ValidationError{
			Field:   "application_id",
			Message: "application_id must be a valid UUID",
		})
	}
	if !validator.IsValidUUID(r.EntryID) {
		errs = append(errs, validator.ValidationError{
			Field:   "entry_id",
			Message: "entry_id must be a valid UUID",
		})
	}
	if validator.IsEmpty(r.ReviewerID) {
		errs = append(errs, validator.ValidationError{
			Field:   "reviewer_id",
			Message: "reviewer_id is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ApplicationFilter struct {
	VacancyPeriodID *string `json:"vacancy_period_id,omitempty"`
	CandidateID     *string `json:"candidate_id,omitempty"`
	Stage           *string `json:"stage,omitempty"`
	Page            int     `json:"page"`
	Limit           int     `json:"limit"`
}

// Validate applies pagination defaults and checks bounds.
func (f *ApplicationFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Page == 0 {
		f.Page = 1
	}
	if f.Limit == 0 {
		f.Limit = 20
	}
	if f.Page < 1 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be a positive integer",
		})
	} else if f.Page > maxPage {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: fmt.Sprintf("page must not exceed %d", maxPage),
		})
	}
	if f.Limit < 1 || f.Limit > 100 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be between 1 and 100",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Offset returns the row offset for the current page.
func (f ApplicationFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// ========================================
// RESPONSES
// ========================================

type StageResponse struct {
	Code       string   `json:"code"`
	Name       string   `json:"name"`
	Order      int      `json:"order"`
	IsTerminal bool     `json:"is_terminal"`
	Outcome    string   `json:"outcome,omitempty"`
	Weight     *float64 `json:"weight,omitempty"`
}

func NewStageResponse(d stage.Definition) StageResponse {
	return StageResponse{
		Code:       d.Code,
		Name:       d.Name,
		Order:      d.Order,
		IsTerminal: d.Terminal,
		Outcome:    string(d.Outcome),
		Weight:     d.Weight,
	}
}

type ApplicationResponse struct {
	ID              string        `json:"id"`
	CandidateID     string        `json:"candidate_id"`
	VacancyPeriodID string        `json:"vacancy_period_id"`
	CurrentStage    StageResponse `json:"current_stage"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// NewApplicationResponse resolves the current stage through the catalog.
func NewApplicationResponse(app Application, catalog *stage.Catalog) ApplicationResponse {
	resp := ApplicationResponse{
		ID:              app.ID,
		CandidateID:     app.CandidateID,
		VacancyPeriodID: app.VacancyPeriodID,
		CurrentStage:    StageResponse{Code: app.CurrentStage, Name: app.CurrentStage},
		CreatedAt:       app.CreatedAt,
		UpdatedAt:       app.UpdatedAt,
	}
	if d, err := catalog.Get(app.CurrentStage); err == nil {
		resp.CurrentStage = NewStageResponse(d)
	}
	return resp
}

type HistoryEntryResponse struct {
	ID            string     `json:"id"`
	ApplicationID string     `json:"application_id"`
	Stage         string     `json:"stage"`
	Attempt       int        `json:"attempt"`
	ScheduledAt   *time.Time `json:"scheduled_at"`
	CompletedAt   *time.Time `json:"completed_at"`
	Score         *float64   `json:"score"`
	Notes         string     `json:"notes"`
	Decision      *string    `json:"decision"`
	ReviewedBy    *string    `json:"reviewed_by"`
	ReviewedAt    *time.Time `json:"reviewed_at"`
	IsActive      bool       `json:"is_active"`
	DeactivatedBy *string    `json:"deactivated_by,omitempty"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func NewHistoryEntryResponse(h HistoryEntry) HistoryEntryResponse {
	var decision *string
	if h.Decision != nil {
		d := string(*h.Decision)
		decision = &d
	}
	return HistoryEntryResponse{
		ID:            h.ID,
		ApplicationID: h.ApplicationID,
		Stage:         h.Stage,
		Attempt:       h.Attempt,
		ScheduledAt:   h.ScheduledAt,
		CompletedAt:   h.CompletedAt,
		Score:         h.Score,
		Notes:         h.Notes,
		Decision:      decision,
		ReviewedBy:    h.ReviewedBy,
		ReviewedAt:    h.ReviewedAt,
		IsActive:      h.IsActive,
		DeactivatedBy: h.DeactivatedBy,
		DeactivatedAt: h.DeactivatedAt,
		CreatedAt:     h.CreatedAt,
	}
}

func NewHistoryResponses(entries []HistoryEntry) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, 0, len(entries))
	for _, h := range entries {
		out = append(out, NewHistoryEntryResponse(h))
	}
	return out
}

type ApplicationDetailResponse struct {
	ApplicationResponse
	History []HistoryEntryResponse  `json:"history"`
	Report  *report.ReportResponse `json:"report"`
}

type ReviewResponse struct {
	Application ApplicationResponse    `json:"application"`
	Entry       HistoryEntryResponse   `json:"entry"`
	Report      *report.ReportResponse `json:"report"`
}

type ListApplicationResponse struct {
	TotalCount   int64                 `json:"total_count"`
	Page         int                   `json:"page"`
	Limit        int                   `json:"limit"`
	Applications []ApplicationResponse `json:"applications"`
}

type StageScoreResponse struct {
	ApplicationID string   `json:"application_id"`
	Stage         string   `json:"stage"`
	Score         *float64 `json:"score"`
}

type ScoresResponse struct {
	ApplicationID string              `json:"application_id"`
	Stages        []report.StageScore `json:"stages"`
	OverallScore  *float64            `json:"overall_score"`
}

type CatalogResponse struct {
	Version string          `json:"version"`
	Stages  []StageResponse `json:"stages"`
}

func NewCatalogResponse(catalog *stage.Catalog) CatalogResponse {
	all := catalog.All()
	stages := make([]StageResponse, 0, len(all))
	for _, d := range all {
		stages = append(stages, NewStageResponse(d))
	}
	return CatalogResponse{Version: catalog.Version(), Stages: stages}
}

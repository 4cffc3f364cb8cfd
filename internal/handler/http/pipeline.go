package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/application"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/report"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/stage"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type PipelineHandler interface {
	ListStages(w http.ResponseWriter, r *http.Request)

	CreateApplication(w http.ResponseWriter, r *http.Request)
	ListApplications(w http.ResponseWriter, r *http.Request)
	GetApplication(w http.ResponseWriter, r *http.Request)
	ListHistory(w http.ResponseWriter, r *http.Request)

	Review(w http.ResponseWriter, r *http.Request)
	Reopen(w http.ResponseWriter, r *http.Request)

	GetScores(w http.ResponseWriter, r *http.Request)
	GetStageScore(w http.ResponseWriter, r *http.Request)
	GetReport(w http.ResponseWriter, r *http.Request)
	GetSummary(w http.ResponseWriter, r *http.Request)
}

type PipelineHandlerImpl struct {
	pipelineService application.PipelineService
	catalog         *stage.Catalog
}

func NewPipelineHandler(pipelineService application.PipelineService, catalog *stage.Catalog) PipelineHandler {
	return &PipelineHandlerImpl{
		pipelineService: pipelineService,
		catalog:         catalog,
	}
}

// ListStages implements PipelineHandler.
func (h *PipelineHandlerImpl) ListStages(w http.ResponseWriter, r *http.Request) {
	response.Success(w, application.NewCatalogResponse(h.catalog))
}

// CreateApplication implements PipelineHandler.
func (h *PipelineHandlerImpl) CreateApplication(w http.ResponseWriter, r *http.Request) {
	var req application.CreateApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("CreateApplication decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	app, err := h.pipelineService.CreateApplication(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Application created successfully", application.NewApplicationResponse(app, h.catalog))
}

// ListApplications implements PipelineHandler.
func (h *PipelineHandlerImpl) ListApplications(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var filter application.ApplicationFilter
	if v := query.Get("vacancy_period_id"); v != "" {
		filter.VacancyPeriodID = &v
	}
	if v := query.Get("candidate_id"); v != "" {
		filter.CandidateID = &v
	}
	if v := query.Get("stage"); v != "" {
		filter.Stage = &v
	}

	var err error
	if v := query.Get("page"); v != "" {
		if filter.Page, err = strconv.Atoi(v); err != nil {
			response.BadRequest(w, "Invalid page parameter", nil)
			return
		}
	}
	if v := query.Get("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil {
			response.BadRequest(w, "Invalid limit parameter", nil)
			return
		}
	}
	if err := filter.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	apps, total, err := h.pipelineService.ListApplications(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	items := make([]application.ApplicationResponse, 0, len(apps))
	for _, app := range apps {
		items = append(items, application.NewApplicationResponse(app, h.catalog))
	}

	response.SuccessWithMeta(w, items, response.NewMeta(filter.Page, filter.Limit, total))
}

// GetApplication implements PipelineHandler.
func (h *PipelineHandlerImpl) GetApplication(w http.ResponseWriter, r *http.Request) {
	detail, err := h.pipelineService.GetApplication(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	resp := application.ApplicationDetailResponse{
		ApplicationResponse: application.NewApplicationResponse(detail.Application, h.catalog),
		History:             application.NewHistoryResponses(detail.History),
	}
	if detail.Report != nil {
		rep := detail.Report.ToResponse()
		resp.Report = &rep
	}
	response.Success(w, resp)
}

// ListHistory implements PipelineHandler.
func (h *PipelineHandlerImpl) ListHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.pipelineService.ListHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, application.NewHistoryResponses(entries))
}

// Review implements PipelineHandler.
func (h *PipelineHandlerImpl) Review(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := middleware.ReviewerFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req application.ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Review decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.ApplicationID = chi.URLParam(r, "id")
	req.ReviewerID = reviewerID

	result, err := h.pipelineService.Review(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	resp := application.ReviewResponse{
		Application: application.NewApplicationResponse(result.Application, h.catalog),
		Entry:       application.NewHistoryEntryResponse(result.Entry),
	}
	if result.Report != nil {
		rep := result.Report.ToResponse()
		resp.Report = &rep
	}
	response.SuccessWithMessage(w, "Review recorded successfully", resp)
}

// Reopen implements PipelineHandler.
func (h *PipelineHandlerImpl) Reopen(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := middleware.ReviewerFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	entry, err := h.pipelineService.Reopen(r.Context(), application.ReopenRequest{
		ApplicationID: chi.URLParam(r, "id"),
		EntryID:       chi.URLParam(r, "entryID"),
		ReviewerID:    reviewerID,
	})
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Stage reopened successfully", application.NewHistoryEntryResponse(entry))
}

// GetScores implements PipelineHandler.
func (h *PipelineHandlerImpl) GetScores(w http.ResponseWriter, r *http.Request) {
	scores, err := h.pipelineService.GetScores(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	stages := scores.Stages
	if stages == nil {
		stages = []report.StageScore{}
	}
	response.Success(w, application.ScoresResponse{
		ApplicationID: scores.ApplicationID,
		Stages:        stages,
		OverallScore:  scores.Overall,
	})
}

// GetStageScore implements PipelineHandler.
func (h *PipelineHandlerImpl) GetStageScore(w http.ResponseWriter, r *http.Request) {
	applicationID := chi.URLParam(r, "id")
	stageCode := chi.URLParam(r, "stage")

	score, err := h.pipelineService.StageScore(r.Context(), applicationID, stageCode)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, application.StageScoreResponse{
		ApplicationID: applicationID,
		Stage:         stageCode,
		Score:         score,
	})
}

// GetReport implements PipelineHandler.
func (h *PipelineHandlerImpl) GetReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.pipelineService.GetReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, rep.ToResponse())
}

// GetSummary implements PipelineHandler.
func (h *PipelineHandlerImpl) GetSummary(w http.ResponseWriter, r *http.Request) {
	rep, err := h.pipelineService.GetSummary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, rep.ToResponse())
}

package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/application"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/report"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/stage"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth
	case errors.Is(err, jwt.ErrInvalidToken):
		Unauthorized(w, "Invalid token")

	// Stage catalog
	case errors.Is(err, stage.ErrUnknownStage):
		BadRequest(w, "Unknown stage", nil)

	// Application domain errors
	case errors.Is(err, application.ErrApplicationNotFound):
		NotFound(w, "Application not found")
	case errors.Is(err, application.ErrHistoryEntryNotFound):
		NotFound(w, "History entry not found")
	case errors.Is(err, application.ErrApplicationExists):
		Conflict(w, "Candidate already applied to this vacancy period")
	case errors.Is(err, application.ErrInvalidTransition):
		Conflict(w, "Invalid stage transition")
	case errors.Is(err, application.ErrAlreadySuperseded):
		Conflict(w, "History entry already superseded")
	case errors.Is(err, application.ErrInconsistentState):
		InternalServerError(w, "Application state is inconsistent")

	// Report domain errors
	case errors.Is(err, report.ErrReportNotFound):
		NotFound(w, "Report not found")
	case errors.Is(err, report.ErrDuplicateReport):
		Conflict(w, "Report already generated")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}

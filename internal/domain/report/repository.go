package report

import "context"

// ReportRepository persists final hiring reports. There is deliberately no
// update method: a stored report is never edited in place.
type ReportRepository interface {
	// Create fails with ErrDuplicateReport when the application already has one.
	Create(ctx context.Context, r Report) (Report, error)
	GetByApplicationID(ctx context.Context, applicationID string) (Report, error)
	ExistsForApplication(ctx context.Context, applicationID string) (bool, error)
}

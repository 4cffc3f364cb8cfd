package application

import (
	"context"
	"time"
)

// Transactor runs fn as one atomic unit. Repositories called with the context
// handed to fn take part in the same transaction; returning an error from fn
// discards every write made through it.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(txCtx context.Context) error) error
}

// ApplicationRepository - interface for applications table
type ApplicationRepository interface {
	// Create fails with ErrApplicationExists for a duplicate candidate/vacancy period pair.
	Create(ctx context.Context, app Application) (Application, error)
	GetByID(ctx context.Context, id string) (Application, error)
	// GetByIDForUpdate locks the application until the surrounding transaction
	// ends. It fails with ErrTransactionMissing outside a transaction.
	GetByIDForUpdate(ctx context.Context, id string) (Application, error)
	List(ctx context.Context, filter ApplicationFilter) ([]Application, int64, error)
	// UpdateStage moves the application from fromStage to toStage and fails
	// with ErrInvalidTransition when the stored stage is no longer fromStage.
	UpdateStage(ctx context.Context, id, fromStage, toStage string, at time.Time) error
}

// HistoryRepository - interface for application_stage_histories table
type HistoryRepository interface {
	Create(ctx context.Context, entry HistoryEntry) (HistoryEntry, error)
	GetByID(ctx context.Context, id string) (HistoryEntry, error)
	// ListByApplication returns entries in creation order.
	ListByApplication(ctx context.Context, applicationID string) ([]HistoryEntry, error)
	ListActiveByStage(ctx context.Context, applicationID, stage string) ([]HistoryEntry, error)
	// UpdateReview stores the review columns of an active entry.
	UpdateReview(ctx context.Context, entry HistoryEntry) error
	// Deactivate fails with ErrAlreadySuperseded when the entry is not active.
	Deactivate(ctx context.Context, id, deactivatedBy string, at time.Time) error
}

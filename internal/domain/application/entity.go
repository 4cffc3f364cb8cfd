package application

import "time"

// Decision is a reviewer's verdict on the current stage.
type Decision string

const (
	DecisionAdvance Decision = "advance"
	DecisionReject  Decision = "reject"
	DecisionHold    Decision = "hold"
)

func (d Decision) IsValid() bool {
	switch d {
	case DecisionAdvance, DecisionReject, DecisionHold:
		return true
	}
	return false
}

// Application tracks one candidate in one vacancy period.
type Application struct {
	ID              string
	CandidateID     string
	VacancyPeriodID string
	CurrentStage    string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HistoryEntry records one attempt at one stage. Entries are never deleted;
// reopening a stage flips IsActive on the old entry instead.
type HistoryEntry struct {
	ID            string
	ApplicationID string
	Stage         string
	Attempt       int

	ScheduledAt *time.Time
	CompletedAt *time.Time

	Score    *float64
	Notes    string
	Decision *Decision

	ReviewedBy *string
	ReviewedAt *time.Time

	IsActive      bool
	DeactivatedBy *string
	DeactivatedAt *time.Time

	CreatedAt time.Time
}

// IsCompleted reports whether a reviewer closed the entry.
func (h HistoryEntry) IsCompleted() bool {
	return h.CompletedAt != nil
}

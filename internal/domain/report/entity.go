package report

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type FinalDecision string

const (
	FinalDecisionPending  FinalDecision = "pending"
	FinalDecisionAccepted FinalDecision = "accepted"
	FinalDecisionRejected FinalDecision = "rejected"
)

// IsFinal reports whether the decision closes the application.
func (d FinalDecision) IsFinal() bool {
	return d == FinalDecisionAccepted || d == FinalDecisionRejected
}

// StageScore is one row of the per-stage breakdown frozen into a report.
type StageScore struct {
	Stage string   `json:"stage"`
	Name  string   `json:"name"`
	Score *float64 `json:"score"`
}

// StageScores is stored as JSONB.
type StageScores []StageScore

// Value implements driver.Valuer for database storage
func (s StageScores) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner for database retrieval
func (s *StageScores) Scan(value interface{}) error {
	if value == nil {
		*s = StageScores{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan StageScores: invalid type")
	}

	return json.Unmarshal(bytes, s)
}

// Report is the immutable summary written when an application reaches a
// terminal stage.
type Report struct {
	ID            string
	ApplicationID string
	Version       int

	OverallScore  *float64
	FinalDecision FinalDecision
	StageScores   StageScores

	FinalNotes     string
	DecisionMadeBy string
	DecisionMadeAt time.Time

	CreatedAt time.Time
}

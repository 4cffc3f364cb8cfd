package report

import "time"

type ReportResponse struct {
	ID             *string      `json:"id,omitempty"`
	ApplicationID  string       `json:"application_id"`
	Version        int          `json:"version,omitempty"`
	OverallScore   *float64     `json:"overall_score"`
	FinalDecision  string       `json:"final_decision"`
	StageScores    []StageScore `json:"stage_scores"`
	FinalNotes     string       `json:"final_notes,omitempty"`
	DecisionMadeBy *string      `json:"decision_made_by,omitempty"`
	DecisionMadeAt *time.Time   `json:"decision_made_at,omitempty"`
	CreatedAt      *time.Time   `json:"created_at,omitempty"`
}

// ToResponse maps a report. A computed pending summary has no id and leaves
// the decision fields out.
func (r Report) ToResponse() ReportResponse {
	scores := []StageScore(r.StageScores)
	if scores == nil {
		scores = []StageScore{}
	}
	resp := ReportResponse{
		ApplicationID: r.ApplicationID,
		Version:       r.Version,
		OverallScore:  r.OverallScore,
		FinalDecision: string(r.FinalDecision),
		StageScores:   scores,
		FinalNotes:    r.FinalNotes,
	}
	if r.ID == "" {
		return resp
	}

	id := r.ID
	madeBy := r.DecisionMadeBy
	madeAt := r.DecisionMadeAt
	createdAt := r.CreatedAt
	resp.ID = &id
	resp.DecisionMadeBy = &madeBy
	resp.DecisionMadeAt = &madeAt
	resp.CreatedAt = &createdAt
	return resp
}

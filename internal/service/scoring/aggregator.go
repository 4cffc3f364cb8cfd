package scoring

import (
	"math"

	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/application"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/report"
	"github.com/cmlabs-hris/recruitment-backend-go/internal/domain/stage"
)

// Weighting decides how much a completed entry counts towards the overall
// score. Implementations must be pure.
type Weighting interface {
	Weight(entry application.HistoryEntry) float64
}

// EqualWeighting counts every completed entry once.
type EqualWeighting struct{}

func (EqualWeighting) Weight(application.HistoryEntry) float64 { return 1 }

// StageWeighting weights entries by stage code. Stages missing from the map
// weigh 1.
type StageWeighting map[string]float64

func (w StageWeighting) Weight(entry application.HistoryEntry) float64 {
	if v, ok := w[entry.Stage]; ok {
		return v
	}
	return 1
}

// Aggregator derives scores from a history ledger. It holds no state besides
// its weighting, so results can be recomputed on demand.
type Aggregator struct {
	weighting Weighting
}

func NewAggregator(weighting Weighting) *Aggregator {
	if weighting == nil {
		weighting = EqualWeighting{}
	}
	return &Aggregator{weighting: weighting}
}

// StageScore returns the score of the active entry for stageCode, or of the
// most recently completed one when no entry for the stage is active.
func (a *Aggregator) StageScore(entries []application.HistoryEntry, stageCode string) *float64 {
	var latest *application.HistoryEntry
	for i := range entries {
		e := entries[i]
		if e.Stage != stageCode {
			continue
		}
		if e.IsActive {
			return copyScore(e.Score)
		}
		if e.CompletedAt == nil {
			continue
		}
		if latest == nil || e.CompletedAt.After(*latest.CompletedAt) {
			latest = &entries[i]
		}
	}
	if latest == nil {
		return nil
	}
	return copyScore(latest.Score)
}

// OverallScore is the weighted mean of every non-null score on a completed
// entry, rounded to two decimals. With EqualWeighting it is the plain
// arithmetic mean. Nil when nothing has been scored.
func (a *Aggregator) OverallScore(entries []application.HistoryEntry) *float64 {
	var sum, weights float64
	for _, e := range entries {
		if e.CompletedAt == nil || e.Score == nil {
			continue
		}
		w := a.weighting.Weight(e)
		if w <= 0 {
			continue
		}
		sum += *e.Score * w
		weights += w
	}
	if weights == 0 {
		return nil
	}
	mean := round2(sum / weights)
	return &mean
}

// Breakdown returns one row per non-terminal stage, in catalog order.
func (a *Aggregator) Breakdown(entries []application.HistoryEntry, steps []stage.Definition) []report.StageScore {
	out := make([]report.StageScore, 0, len(steps))
	for _, d := range steps {
		out = append(out, report.StageScore{
			Stage: d.Code,
			Name:  d.Name,
			Score: a.StageScore(entries, d.Code),
		})
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func copyScore(s *float64) *float64 {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

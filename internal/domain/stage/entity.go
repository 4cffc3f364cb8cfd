package stage

// Outcome identifies which terminal a stage represents.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
)

// Definition describes one step of the pipeline or one of its two terminals.
type Definition struct {
	Code     string  `json:"code" yaml:"code"`
	Name     string  `json:"name" yaml:"name"`
	Order    int     `json:"order" yaml:"order"`
	Terminal bool    `json:"is_terminal" yaml:"terminal"`
	Outcome  Outcome `json:"outcome,omitempty" yaml:"outcome,omitempty"`

	// Weight feeds stage weighting in score aggregation. Nil means 1.
	Weight *float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
}

// EffectiveWeight returns the configured weight, defaulting to 1.
func (d Definition) EffectiveWeight() float64 {
	if d.Weight == nil {
		return 1
	}
	return *d.Weight
}

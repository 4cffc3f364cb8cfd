package stage

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cmlabs-hris/recruitment-backend-go/internal/pkg/validator"
)

// Catalog is the validated, immutable stage list. It is built once at startup
// and shared read-only afterwards.
type Catalog struct {
	version string
	steps   []Definition // non-terminal, sorted by Order
	accept  Definition
	reject  Definition
	byCode  map[string]Definition
	index   map[string]int // position of a non-terminal code within steps
}

// NewCatalog validates defs and returns the catalog built from them.
func NewCatalog(version string, defs []Definition) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: no stages defined", ErrInvalidCatalog)
	}

	c := &Catalog{
		version: version,
		byCode:  make(map[string]Definition, len(defs)),
		index:   make(map[string]int),
	}

	var accepts, rejects int
	for _, d := range defs {
		d.Code = strings.TrimSpace(d.Code)
		if d.Code == "" {
			return nil, fmt.Errorf("%w: stage code must not be empty", ErrInvalidCatalog)
		}
		if !validator.IsValidStageCode(d.Code) {
			return nil, fmt.Errorf("%w: stage code %q must be lowercase snake case", ErrInvalidCatalog, d.Code)
		}
		if _, exists := c.byCode[d.Code]; exists {
			return nil, fmt.Errorf("%w: duplicate stage code %q", ErrInvalidCatalog, d.Code)
		}
		if d.Name == "" {
			d.Name = d.Code
		}
		if d.Weight != nil {
			if math.IsNaN(*d.Weight) || math.IsInf(*d.Weight, 0) {
				return nil, fmt.Errorf("%w: stage %q weight must be finite", ErrInvalidCatalog, d.Code)
			}
			if *d.Weight < 0 {
				return nil, fmt.Errorf("%w: stage %q has negative weight", ErrInvalidCatalog, d.Code)
			}
		}

		if d.Terminal {
			switch d.Outcome {
			case OutcomeAccepted:
				accepts++
				c.accept = d
			case OutcomeRejected:
				rejects++
				c.reject = d
			default:
				return nil, fmt.Errorf("%w: terminal stage %q must have outcome accepted or rejected", ErrInvalidCatalog, d.Code)
			}
		} else {
			if d.Outcome != "" {
				return nil, fmt.Errorf("%w: non-terminal stage %q must not declare an outcome", ErrInvalidCatalog, d.Code)
			}
			c.steps = append(c.steps, d)
		}
		c.byCode[d.Code] = d
	}

	if accepts != 1 || rejects != 1 {
		return nil, fmt.Errorf("%w: exactly one accept and one reject terminal required (got %d accept, %d reject)", ErrInvalidCatalog, accepts, rejects)
	}
	if len(c.steps) == 0 {
		return nil, fmt.Errorf("%w: at least one non-terminal stage required", ErrInvalidCatalog)
	}

	sort.SliceStable(c.steps, func(i, j int) bool { return c.steps[i].Order < c.steps[j].Order })
	for i, d := range c.steps {
		if i > 0 && c.steps[i-1].Order == d.Order {
			return nil, fmt.Errorf("%w: stages %q and %q share order %d", ErrInvalidCatalog, c.steps[i-1].Code, d.Code, d.Order)
		}
		c.index[d.Code] = i
	}

	return c, nil
}

func (c *Catalog) Version() string {
	return c.version
}

// Get returns the definition registered under code.
func (c *Catalog) Get(code string) (Definition, error) {
	d, ok := c.byCode[code]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownStage, code)
	}
	return d, nil
}

// Next returns the non-terminal stage with the next-higher order. The boolean
// is false when code is the last non-terminal stage or a terminal one; the
// caller must then pick a terminal explicitly.
func (c *Catalog) Next(code string) (Definition, bool, error) {
	if _, err := c.Get(code); err != nil {
		return Definition{}, false, err
	}
	i, ok := c.index[code]
	if !ok || i+1 >= len(c.steps) {
		return Definition{}, false, nil
	}
	return c.steps[i+1], true, nil
}

func (c *Catalog) IsTerminal(code string) (bool, error) {
	d, err := c.Get(code)
	if err != nil {
		return false, err
	}
	return d.Terminal, nil
}

// First returns the lowest-order non-terminal stage.
func (c *Catalog) First() Definition {
	return c.steps[0]
}

func (c *Catalog) Accept() Definition {
	return c.accept
}

func (c *Catalog) Reject() Definition {
	return c.reject
}

// Steps returns the non-terminal stages in order.
func (c *Catalog) Steps() []Definition {
	out := make([]Definition, len(c.steps))
	copy(out, c.steps)
	return out
}

// All returns the non-terminal stages in order followed by the accept and
// reject terminals.
func (c *Catalog) All() []Definition {
	out := c.Steps()
	return append(out, c.accept, c.reject)
}

// Weights maps every stage code to its effective weight.
func (c *Catalog) Weights() map[string]float64 {
	w := make(map[string]float64, len(c.byCode))
	for code, d := range c.byCode {
		w[code] = d.EffectiveWeight()
	}
	return w
}

package fixtures

import "github.com/cmlabs-hris/recruitment-backend-go/internal/domain/stage"

// DefaultCatalogVersion labels the built-in stage set.
const DefaultCatalogVersion = "default-v1"

// DefaultStages is the pipeline used when no catalog file is configured:
// administration, psychotest and interview, closed by accepted or rejected.
func DefaultStages() []stage.Definition {
	return []stage.Definition{
		{Code: "admin_selection", Name: "Administration Selection", Order: 10},
		{Code: "psychotest", Name: "Assessment / Psychotest", Order: 20},
		{Code: "interview", Name: "Interview", Order: 30},
		{Code: "accepted", Name: "Accepted", Terminal: true, Outcome: stage.OutcomeAccepted},
		{Code: "rejected", Name: "Rejected", Terminal: true, Outcome: stage.OutcomeRejected},
	}
}

// DefaultCatalog builds the catalog from DefaultStages.
func DefaultCatalog() (*stage.Catalog, error) {
	return stage.NewCatalog(DefaultCatalogVersion, DefaultStages())
}

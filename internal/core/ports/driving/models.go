package driving

import "context"

// ModelInfo describes one selectable model.
type ModelInfo struct {
	// ID is the routable model identifier.
	ID string

	// Name is the human-readable display name.
	Name string

	// CostLabel summarises pricing, e.g. "$3/$15" or "free".
	CostLabel string

	// Type is "cloud" or "local".
	Type string

	// Provider names the serving backend.
	Provider string
}

// ModelCatalog is the merged cloud + local model listing.
type ModelCatalog struct {
	Models []ModelInfo

	// LocalAvailable is false when the local inference host could not
	// be reached; the catalog then contains cloud models only.
	LocalAvailable bool
}

// ModelsService lists the models a caller can route to.
type ModelsService interface {
	// ListModels merges the static cloud models with whatever the
	// local host reports. A local probe failure degrades the listing
	// rather than failing it.
	ListModels(ctx context.Context) (*ModelCatalog, error)
}

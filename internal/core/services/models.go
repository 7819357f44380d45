package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/conduitworks/parley/internal/core/domain"
	"github.com/conduitworks/parley/internal/core/ports/driven"
	"github.com/conduitworks/parley/internal/core/ports/driving"
	"github.com/conduitworks/parley/internal/logger"
)

// Ensure ModelsService implements the interface.
var _ driving.ModelsService = (*ModelsService)(nil)

// localProbeTimeout bounds the local host listing so an offline host
// degrades the catalog quickly instead of hanging it.
const localProbeTimeout = 5 * time.Second

// cloudModels is the static catalog of hosted models. The local half
// of the catalog is discovered at call time.
var cloudModels = []driving.ModelInfo{
	{ID: "claude-3-5-haiku-20241022", Name: "Claude 3.5 Haiku", Type: "cloud", Provider: "anthropic"},
	{ID: "claude-3-5-sonnet-20241022", Name: "Claude 3.5 Sonnet", Type: "cloud", Provider: "anthropic"},
	{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4", Type: "cloud", Provider: "anthropic"},
	{ID: "claude-opus-4-20250514", Name: "Claude Opus 4", Type: "cloud", Provider: "anthropic"},
}

// ModelsService merges the static cloud catalog with the models the
// local inference host reports.
type ModelsService struct {
	local driven.LocalLLM
}

// NewModelsService creates a new models service. local may be nil when
// no local host is configured.
func NewModelsService(local driven.LocalLLM) *ModelsService {
	return &ModelsService{local: local}
}

// ListModels returns every model a chat turn can route to. Cloud
// entries carry their price label; local entries are free and appear
// twice, once plain and once with retrieval augmentation. A local
// probe failure degrades the catalog to cloud-only rather than
// failing the call.
func (s *ModelsService) ListModels(ctx context.Context) (*driving.ModelCatalog, error) {
	catalog := &driving.ModelCatalog{
		Models: make([]driving.ModelInfo, 0, len(cloudModels)),
	}

	for _, m := range cloudModels {
		m.CostLabel = costLabel(m.ID)
		catalog.Models = append(catalog.Models, m)
	}

	if s.local == nil {
		return catalog, nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, localProbeTimeout)
	defer cancel()

	tags, err := s.local.ListModels(probeCtx)
	if err != nil {
		logger.Warn("Local host unavailable, listing cloud models only: %v", err)
		return catalog, nil
	}
	catalog.LocalAvailable = true

	for _, tag := range tags {
		id := domain.LocalModelID(tag)
		catalog.Models = append(catalog.Models,
			driving.ModelInfo{
				ID:        id,
				Name:      tag,
				CostLabel: "free",
				Type:      "local",
				Provider:  "ollama",
			},
			driving.ModelInfo{
				ID:        id + "-rag",
				Name:      tag + " (with knowledge base)",
				CostLabel: "free",
				Type:      "local",
				Provider:  "ollama",
			},
		)
	}

	logger.Debug("Catalog: %d models (%d local tags)", len(catalog.Models), len(tags))
	return catalog, nil
}

// costLabel renders a model's rate as "$in/$out per Mtok".
func costLabel(model string) string {
	rate := RateFor(model)
	return fmt.Sprintf("$%s/$%s per Mtok", trimDollar(rate.Input), trimDollar(rate.Output))
}

// trimDollar formats a rate without trailing zeros.
func trimDollar(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

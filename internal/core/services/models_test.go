package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelsService_ListModels_CloudAndLocal(t *testing.T) {
	local := &mockLocalLLM{tags: []string{"deepseek-r1:8b", "mistral:latest"}}
	service := NewModelsService(local)

	catalog, err := service.ListModels(context.Background())

	require.NoError(t, err)
	assert.True(t, catalog.LocalAvailable)
	// 4 cloud models + 2 entries per local tag.
	assert.Len(t, catalog.Models, 8)

	ids := make(map[string]string)
	for _, m := range catalog.Models {
		ids[m.ID] = m.Type
	}
	assert.Equal(t, "cloud", ids["claude-sonnet-4-20250514"])
	assert.Equal(t, "local", ids["local-deepseek-r1-8b"])
	assert.Equal(t, "local", ids["local-deepseek-r1-8b-rag"])
	assert.Equal(t, "local", ids["local-mistral-latest"])
	assert.Equal(t, "local", ids["local-mistral-latest-rag"])
}

func TestModelsService_ListModels_LocalDown_Degrades(t *testing.T) {
	local := &mockLocalLLM{listErr: errors.New("connection refused")}
	service := NewModelsService(local)

	catalog, err := service.ListModels(context.Background())

	require.NoError(t, err)
	assert.False(t, catalog.LocalAvailable)
	assert.Len(t, catalog.Models, 4)
	for _, m := range catalog.Models {
		assert.Equal(t, "cloud", m.Type)
	}
}

func TestModelsService_ListModels_NoLocalConfigured(t *testing.T) {
	service := NewModelsService(nil)

	catalog, err := service.ListModels(context.Background())

	require.NoError(t, err)
	assert.False(t, catalog.LocalAvailable)
	assert.Len(t, catalog.Models, 4)
}

func TestModelsService_ListModels_CostLabels(t *testing.T) {
	local := &mockLocalLLM{tags: []string{"phi3:latest"}}
	service := NewModelsService(local)

	catalog, err := service.ListModels(context.Background())
	require.NoError(t, err)

	labels := make(map[string]string)
	for _, m := range catalog.Models {
		labels[m.ID] = m.CostLabel
	}
	assert.Equal(t, "$3/$15 per Mtok", labels["claude-sonnet-4-20250514"])
	assert.Equal(t, "$1/$5 per Mtok", labels["claude-3-5-haiku-20241022"])
	assert.Equal(t, "$15/$75 per Mtok", labels["claude-opus-4-20250514"])
	assert.Equal(t, "free", labels["local-phi3-latest"])
	assert.Equal(t, "free", labels["local-phi3-latest-rag"])
}

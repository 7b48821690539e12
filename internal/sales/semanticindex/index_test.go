package semanticindex

import (
	"context"
	stderrors "errors"
	"testing"

	"sales-orchestrator/internal/common/errors"
	"sales-orchestrator/internal/common/llm/llmtest"
	"sales-orchestrator/internal/common/logger"
	"sales-orchestrator/internal/models"
	"sales-orchestrator/internal/storage/vectorindex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inventory() []models.Vehicle {
	return []models.Vehicle{
		{ID: "car-1", Name: "Toyota RAV4", Type: "suv", Price: 38500, Description: "SUV híbrida familiar", Features: []string{"AWD", "CarPlay"}},
		{ID: "car-2", Name: "Honda Civic", Type: "sedan", Price: 24000, Description: "Sedán compacto económico"},
		{ID: "car-3", Name: "Ford F-150", Type: "pickup", Price: 52000, Description: "Pickup de trabajo con remolque"},
		{ID: "car-4", Name: "Mazda MX-5", Type: "convertible", Price: 31000, Description: "Deportivo descapotable"},
	}
}

func newService(t *testing.T) (*Service, *llmtest.HashEmbedder, *vectorindex.MemoryStore) {
	embedder := &llmtest.HashEmbedder{Dimensions: 128}
	store := vectorindex.NewMemoryStore(128)
	return NewService(embedder, store, 0, logger.NewTestLogger(t)), embedder, store
}

func TestQuery_SelfRetrieval(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	for _, v := range inventory() {
		require.NoError(t, svc.IndexVehicle(ctx, v))
	}

	for _, v := range inventory() {
		hits, err := svc.Query(ctx, EmbeddingText(v), 0)
		require.NoError(t, err)
		require.NotEmpty(t, hits)
		assert.LessOrEqual(t, len(hits), DefaultLimit)
		assert.Equal(t, v.ID, hits[0].ID)
		assert.InDelta(t, 0, hits[0].Distance, 1e-6)
		assert.Equal(t, v.Name, hits[0].Fields["name"])
	}
}

func TestQuery_ResultsAscendByDistance(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	for _, v := range inventory() {
		require.NoError(t, svc.IndexVehicle(ctx, v))
	}

	hits, err := svc.Query(ctx, "pickup de trabajo", 4)
	require.NoError(t, err)
	require.Len(t, hits, 4)
	assert.Equal(t, "car-3", hits[0].ID)
	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i-1].Distance, hits[i].Distance)
	}
}

func TestIndex_PlainText(t *testing.T) {
	svc, _, store := newService(t)
	require.NoError(t, svc.Index(context.Background(), "note-1", "financiamiento con pronto"))
	assert.Equal(t, 1, store.Len())
}

func TestIndex_EmbeddingFailure(t *testing.T) {
	embedder := &llmtest.HashEmbedder{Err: stderrors.New("quota")}
	svc := NewService(embedder, vectorindex.NewMemoryStore(0), 3, logger.NewNoOpLogger())

	err := svc.Index(context.Background(), "car-1", "text")
	assert.Equal(t, errors.ErrCodeEmbeddingFailed, errors.AsStandardError(err).Code)

	_, err = svc.Query(context.Background(), "text", 3)
	assert.Equal(t, errors.ErrCodeEmbeddingFailed, errors.AsStandardError(err).Code)
}

func TestShouldReindex(t *testing.T) {
	base := inventory()[0]

	priceOnly := base
	priceOnly.Price = 35000
	priceOnly.Featured = true
	priceOnly.Badge = "Oferta"

	renamed := base
	renamed.Name = "Toyota RAV4 Hybrid"

	retyped := base
	retyped.Type = "crossover"

	redescribed := base
	redescribed.Description = "Otra descripción"

	newFeatures := base
	newFeatures.Features = []string{"AWD", "CarPlay", "Sunroof"}

	tests := []struct {
		name   string
		before *models.Vehicle
		after  *models.Vehicle
		want   bool
	}{
		{"creation", nil, &base, true},
		{"deletion", &base, nil, false},
		{"price and availability only", &base, &priceOnly, false},
		{"name change", &base, &renamed, true},
		{"category change", &base, &retyped, true},
		{"description change", &base, &redescribed, true},
		{"feature list change", &base, &newFeatures, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldReindex(tt.before, tt.after))
		})
	}
}

func TestOnVehicleWritten_SkipsPriceChanges(t *testing.T) {
	svc, embedder, _ := newService(t)
	ctx := context.Background()
	v := inventory()[0]

	reindexed, err := svc.OnVehicleWritten(ctx, nil, &v)
	require.NoError(t, err)
	assert.True(t, reindexed)
	assert.Equal(t, 1, embedder.Calls())

	cheaper := v
	cheaper.Price = 36000
	reindexed, err = svc.OnVehicleWritten(ctx, &v, &cheaper)
	require.NoError(t, err)
	assert.False(t, reindexed)
	assert.Equal(t, 1, embedder.Calls())
}

func TestEmbeddingText(t *testing.T) {
	assert.Equal(t, "Toyota RAV4 suv SUV híbrida familiar AWD CarPlay", EmbeddingText(inventory()[0]))
	assert.Equal(t, "Honda Civic sedan", EmbeddingText(models.Vehicle{Name: "Honda Civic", Type: "sedan"}))
}

func TestMatches(t *testing.T) {
	matches := Matches([]vectorindex.Hit{
		{ID: "car-1", Distance: 0.08, Fields: map[string]interface{}{"name": "Toyota RAV4"}},
		{ID: "car-2", Distance: 0.5},
	})

	require.Len(t, matches, 2)
	assert.InDelta(t, 0.92, matches[0].Score, 1e-9)
	assert.Equal(t, "Toyota RAV4: Similitud semántica 92%", matches[0].Reason)
	assert.Equal(t, "Similitud semántica 50%", matches[1].Reason)
}

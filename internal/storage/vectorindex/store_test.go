package vectorindex

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Memory store
// ==========================

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0, CosineDistance([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 1, CosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 2, CosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 1.0, CosineDistance([]float32{0, 0}, []float32{1, 0}))
	assert.Equal(t, 1.0, CosineDistance([]float32{1}, []float32{1, 0}))
}

func TestMemoryStore_SearchOrdersByAscendingDistance(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, Document{ID: "far", Vector: []float32{0, 1}}))
	require.NoError(t, s.Upsert(ctx, Document{ID: "near", Vector: []float32{1, 0.1}, Fields: map[string]interface{}{"name": "RAV4"}}))
	require.NoError(t, s.Upsert(ctx, Document{ID: "mid", Vector: []float32{1, 1}}))

	hits, err := s.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "near", hits[0].ID)
	assert.Equal(t, "mid", hits[1].ID)
	assert.Equal(t, "RAV4", hits[0].Fields["name"])
	assert.LessOrEqual(t, hits[0].Distance, hits[1].Distance)
}

func TestMemoryStore_UpsertReplaces(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, Document{ID: "car-1", Vector: []float32{1, 0}}))
	require.NoError(t, s.Upsert(ctx, Document{ID: "car-1", Vector: []float32{0, 1}}))
	assert.Equal(t, 1, s.Len())

	hits, err := s.Search(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0, hits[0].Distance, 1e-9)
}

func TestMemoryStore_RejectsWrongDimensions(t *testing.T) {
	s := NewMemoryStore(3)
	assert.Error(t, s.Upsert(context.Background(), Document{ID: "x", Vector: []float32{1, 2}}))
	_, err := s.Search(context.Background(), nil, 3)
	assert.Error(t, err)
}

// ==========================
// Elasticsearch store
// ==========================

type fakeES struct {
	mu          sync.Mutex
	indexExists bool
	requests    []string
	bodies      map[string]map[string]interface{}
	searchReply string
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	raw, _ := io.ReadAll(r.Body)
	if len(raw) > 0 {
		var body map[string]interface{}
		_ = json.Unmarshal(raw, &body)
		f.bodies[r.Method+" "+r.URL.Path] = body
	}

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodHead && r.URL.Path == "/cars-embeddings":
		if f.indexExists {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut && r.URL.Path == "/cars-embeddings":
		f.indexExists = true
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	case r.Method == http.MethodPut && r.URL.Path == "/cars-embeddings/_doc/car-1":
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	case r.URL.Path == "/cars-embeddings/_search":
		_, _ = w.Write([]byte(f.searchReply))
	default:
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"unexpected request"}`))
	}
}

func newFakeES(t *testing.T) (*fakeES, *ElasticsearchStore) {
	t.Helper()
	fake := &fakeES{bodies: make(map[string]map[string]interface{})}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return fake, NewElasticsearchStore(client, "cars-embeddings", 3)
}

func TestElasticsearchStore_EnsureIndexCreatesMapping(t *testing.T) {
	fake, store := newFakeES(t)

	require.NoError(t, store.EnsureIndex(context.Background()))
	assert.Equal(t, []string{"HEAD /cars-embeddings", "PUT /cars-embeddings"}, fake.requests)

	props := fake.bodies["PUT /cars-embeddings"]["mappings"].(map[string]interface{})["properties"].(map[string]interface{})
	embedding := props["embedding"].(map[string]interface{})
	assert.Equal(t, "dense_vector", embedding["type"])
	assert.Equal(t, "cosine", embedding["similarity"])
	assert.Equal(t, float64(3), embedding["dims"])

	// existing index is left alone
	require.NoError(t, store.EnsureIndex(context.Background()))
	assert.Len(t, fake.requests, 3)
}

func TestElasticsearchStore_Upsert(t *testing.T) {
	fake, store := newFakeES(t)

	err := store.Upsert(context.Background(), Document{
		ID:     "car-1",
		Vector: []float32{0.1, 0.2, 0.3},
		Fields: map[string]interface{}{"name": "Toyota RAV4"},
	})
	require.NoError(t, err)

	body := fake.bodies["PUT /cars-embeddings/_doc/car-1"]
	require.NotNil(t, body)
	assert.Len(t, body["embedding"], 3)
	assert.Equal(t, "Toyota RAV4", body["fields"].(map[string]interface{})["name"])
	assert.NotEmpty(t, body["indexedAt"])
}

func TestElasticsearchStore_SearchConvertsScoreToDistance(t *testing.T) {
	fake, store := newFakeES(t)
	fake.searchReply = `{"hits":{"hits":[
		{"_id":"car-1","_score":1.0,"_source":{"fields":{"name":"Toyota RAV4"}}},
		{"_id":"car-2","_score":0.75,"_source":{"fields":{"name":"Honda Civic"}}}
	]}}`

	hits, err := store.Search(context.Background(), []float32{0.1, 0.2, 0.3}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "car-1", hits[0].ID)
	assert.InDelta(t, 0, hits[0].Distance, 1e-9)
	assert.InDelta(t, 0.5, hits[1].Distance, 1e-9)
	assert.Equal(t, "Honda Civic", hits[1].Fields["name"])

	var query map[string]interface{}
	for key, body := range fake.bodies {
		if key == "POST /cars-embeddings/_search" || key == "GET /cars-embeddings/_search" {
			query = body
		}
	}
	require.NotNil(t, query)
	knn := query["knn"].(map[string]interface{})
	assert.Equal(t, "embedding", knn["field"])
	assert.Equal(t, float64(2), knn["k"])
	assert.Equal(t, float64(50), knn["num_candidates"])
}

func TestElasticsearchStore_SearchRejectsWrongDimensions(t *testing.T) {
	_, store := newFakeES(t)
	_, err := store.Search(context.Background(), []float32{1, 2}, 3)
	assert.Error(t, err)
}

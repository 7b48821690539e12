package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

const embeddingField = "embedding"

// ElasticsearchStore keeps vectors in a dense_vector field with cosine similarity and queries
// them with approximate kNN.
type ElasticsearchStore struct {
	client     *elasticsearch.Client
	index      string
	dimensions int
}

func NewElasticsearchStore(client *elasticsearch.Client, index string, dimensions int) *ElasticsearchStore {
	return &ElasticsearchStore{client: client, index: index, dimensions: dimensions}
}

// EnsureIndex creates the index with the vector mapping when it does not exist.
func (s *ElasticsearchStore) EnsureIndex(ctx context.Context) error {
	res, err := s.client.Indices.Exists([]string{s.index}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", s.index, err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("check index %s: unexpected status %d", s.index, res.StatusCode)
	}

	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				embeddingField: map[string]interface{}{
					"type":       "dense_vector",
					"dims":       s.dimensions,
					"index":      true,
					"similarity": "cosine",
				},
				"fields":    map[string]interface{}{"type": "object", "enabled": false},
				"indexedAt": map[string]interface{}{"type": "date"},
			},
		},
	}
	body, err := json.Marshal(mapping)
	if err != nil {
		return err
	}

	res, err = s.client.Indices.Create(
		s.index,
		s.client.Indices.Create.WithBody(bytes.NewReader(body)),
		s.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", s.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("create index %s: %s", s.index, res.String())
	}
	return nil
}

func (s *ElasticsearchStore) Upsert(ctx context.Context, doc Document) error {
	if err := checkDimensions(doc.Vector, s.dimensions); err != nil {
		return err
	}

	body, err := json.Marshal(map[string]interface{}{
		embeddingField: doc.Vector,
		"fields":       doc.Fields,
		"indexedAt":    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	res, err := s.client.Index(
		s.index,
		bytes.NewReader(body),
		s.client.Index.WithDocumentID(doc.ID),
		s.client.Index.WithRefresh("true"),
		s.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index document %s: %w", doc.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index document %s: %s", doc.ID, res.String())
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string  `json:"_id"`
			Score  float64 `json:"_score"`
			Source struct {
				Fields map[string]interface{} `json:"fields"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *ElasticsearchStore) Search(ctx context.Context, vector []float32, limit int) ([]Hit, error) {
	if err := checkDimensions(vector, s.dimensions); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 3
	}

	candidates := limit * 10
	if candidates < 50 {
		candidates = 50
	}

	query := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          embeddingField,
			"query_vector":   vector,
			"k":              limit,
			"num_candidates": candidates,
		},
		"_source": []string{"fields"},
		"size":    limit,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, err
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("knn search: %s", strings.TrimSpace(res.String()))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode knn response: %w", err)
	}

	hits := make([]Hit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, Hit{
			ID:       h.ID,
			Distance: scoreToDistance(h.Score),
			Fields:   h.Source.Fields,
		})
	}
	return hits, nil
}

// scoreToDistance inverts the cosine kNN score, which Elasticsearch reports as (1 + cos) / 2.
func scoreToDistance(score float64) float64 {
	d := 2 * (1 - score)
	if d < 0 {
		return 0
	}
	return d
}

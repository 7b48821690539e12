// Package vectorindex stores embedding vectors keyed by item id and answers nearest-neighbour
// queries by cosine distance.
package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Document is one stored vector with the fields returned alongside query hits.
type Document struct {
	ID     string
	Vector []float32
	Fields map[string]interface{}
}

// Hit is a query result. Distance is the cosine distance in [0, 2], lower is closer.
type Hit struct {
	ID       string                 `json:"id"`
	Distance float64                `json:"distance"`
	Fields   map[string]interface{} `json:"fields,omitempty"`
}

type Store interface {
	Upsert(ctx context.Context, doc Document) error
	Search(ctx context.Context, vector []float32, limit int) ([]Hit, error)
}

// CosineDistance returns 1 - cos(a, b). Zero vectors are at distance 1 from everything.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}

	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}

	d := 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
	if d < 0 {
		return 0
	}
	return d
}

// MemoryStore is a brute-force in-process index.
type MemoryStore struct {
	mu         sync.RWMutex
	docs       map[string]Document
	dimensions int
}

// NewMemoryStore creates an empty store. dimensions <= 0 accepts any vector length.
func NewMemoryStore(dimensions int) *MemoryStore {
	return &MemoryStore{docs: make(map[string]Document), dimensions: dimensions}
}

func (s *MemoryStore) Upsert(_ context.Context, doc Document) error {
	if err := checkDimensions(doc.Vector, s.dimensions); err != nil {
		return err
	}

	vec := make([]float32, len(doc.Vector))
	copy(vec, doc.Vector)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = Document{ID: doc.ID, Vector: vec, Fields: doc.Fields}
	return nil
}

func (s *MemoryStore) Search(_ context.Context, vector []float32, limit int) ([]Hit, error) {
	if err := checkDimensions(vector, s.dimensions); err != nil {
		return nil, err
	}

	s.mu.RLock()
	hits := make([]Hit, 0, len(s.docs))
	for id, doc := range s.docs {
		hits = append(hits, Hit{ID: id, Distance: CosineDistance(vector, doc.Vector), Fields: doc.Fields})
	}
	s.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance == hits[j].Distance {
			return hits[i].ID < hits[j].ID
		}
		return hits[i].Distance < hits[j].Distance
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Len returns the number of stored documents.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func checkDimensions(vector []float32, dimensions int) error {
	if len(vector) == 0 {
		return fmt.Errorf("empty vector")
	}
	if dimensions > 0 && len(vector) != dimensions {
		return fmt.Errorf("vector has %d dimensions, index expects %d", len(vector), dimensions)
	}
	return nil
}

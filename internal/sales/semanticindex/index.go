// Package semanticindex embeds inventory items and answers nearest-item queries.
package semanticindex

import (
	"context"
	"fmt"
	"strings"

	"sales-orchestrator/internal/common/errors"
	"sales-orchestrator/internal/common/llm"
	"sales-orchestrator/internal/common/logger"
	"sales-orchestrator/internal/common/metrics"
	"sales-orchestrator/internal/models"
	"sales-orchestrator/internal/storage/vectorindex"
)

const DefaultLimit = 3

type Service struct {
	embedder     llm.Embedder
	store        vectorindex.Store
	defaultLimit int
	logger       logger.Logger
}

func NewService(embedder llm.Embedder, store vectorindex.Store, defaultLimit int, log logger.Logger) *Service {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	return &Service{
		embedder:     embedder,
		store:        store,
		defaultLimit: defaultLimit,
		logger:       log.WithFields(map[string]interface{}{"component": "semantic-index"}),
	}
}

// Index embeds text and stores the vector under itemID.
func (s *Service) Index(ctx context.Context, itemID, text string) error {
	return s.index(ctx, itemID, text, nil)
}

// IndexVehicle indexes the vehicle's embedding text and keeps its display fields with the vector.
func (s *Service) IndexVehicle(ctx context.Context, v models.Vehicle) error {
	return s.index(ctx, v.ID, EmbeddingText(v), vehicleFields(v))
}

func (s *Service) index(ctx context.Context, itemID, text string, fields map[string]interface{}) error {
	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		metrics.SemanticIndexOperations.WithLabelValues("index", "embed_error").Inc()
		return errors.NewEmbeddingFailedError(err)
	}

	if err := s.store.Upsert(ctx, vectorindex.Document{ID: itemID, Vector: vector, Fields: fields}); err != nil {
		metrics.SemanticIndexOperations.WithLabelValues("index", "store_error").Inc()
		return errors.NewIndexFailedError(itemID, err)
	}

	metrics.SemanticIndexOperations.WithLabelValues("index", "ok").Inc()
	s.logger.Info("item indexed", map[string]interface{}{"itemId": itemID, "dimensions": len(vector)})
	return nil
}

// Query returns the items nearest to text by ascending cosine distance. limit <= 0 uses the default.
func (s *Service) Query(ctx context.Context, text string, limit int) ([]vectorindex.Hit, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		metrics.SemanticIndexOperations.WithLabelValues("query", "embed_error").Inc()
		return nil, errors.NewEmbeddingFailedError(err)
	}

	hits, err := s.store.Search(ctx, vector, limit)
	if err != nil {
		metrics.SemanticIndexOperations.WithLabelValues("query", "store_error").Inc()
		return nil, errors.NewSearchQueryFailedError("knn", err)
	}

	metrics.SemanticIndexOperations.WithLabelValues("query", "ok").Inc()
	return hits, nil
}

// OnVehicleWritten re-embeds a vehicle after a write when ShouldReindex allows it.
// It reports whether the vehicle was re-indexed.
func (s *Service) OnVehicleWritten(ctx context.Context, before, after *models.Vehicle) (bool, error) {
	if !ShouldReindex(before, after) {
		metrics.SemanticIndexOperations.WithLabelValues("index", "skipped").Inc()
		if after != nil {
			s.logger.Debug("re-index skipped, no semantic change", map[string]interface{}{"itemId": after.ID})
		}
		return false, nil
	}
	if err := s.IndexVehicle(ctx, *after); err != nil {
		return false, err
	}
	return true, nil
}

// ShouldReindex is true on creation and when name, type, description or features change.
// Price and availability changes alone never trigger a new embedding.
func ShouldReindex(before, after *models.Vehicle) bool {
	if after == nil {
		return false
	}
	if before == nil {
		return true
	}
	return before.Name != after.Name ||
		before.Type != after.Type ||
		before.Description != after.Description ||
		!equalStrings(before.Features, after.Features)
}

// EmbeddingText is the text embedded for a vehicle: name, type, description and features.
func EmbeddingText(v models.Vehicle) string {
	parts := []string{v.Name, v.Type, v.Description}
	parts = append(parts, v.Features...)

	nonEmpty := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

// Matches converts hits into match results scored 1 - distance.
func Matches(hits []vectorindex.Hit) []models.MatchResult {
	out := make([]models.MatchResult, 0, len(hits))
	for _, h := range hits {
		score := 1 - h.Distance
		reason := fmt.Sprintf("Similitud semántica %.0f%%", score*100)
		if name, ok := h.Fields["name"].(string); ok && name != "" {
			reason = fmt.Sprintf("%s: %s", name, reason)
		}
		out = append(out, models.MatchResult{ItemID: h.ID, Score: score, Reason: reason})
	}
	return out
}

func vehicleFields(v models.Vehicle) map[string]interface{} {
	return map[string]interface{}{
		"name":  v.Name,
		"type":  v.Type,
		"price": v.Price,
		"year":  v.Year,
		"img":   v.Img,
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

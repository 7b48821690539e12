// Package memory maintains the per-customer long-term profile.
package memory

import (
	"context"
	"encoding/json"
	"time"

	"sales-orchestrator/internal/common/errors"
	"sales-orchestrator/internal/common/logger"
	"sales-orchestrator/internal/common/metrics"
	"sales-orchestrator/internal/models"
	"sales-orchestrator/internal/storage/docstore"
)

const DefaultCollection = "customer_memory"

// Update describes one interaction. Zero fields are ignored, except that LastSeen is always refreshed.
type Update struct {
	ItemID      string
	Note        string
	Vehicle     *models.Vehicle
	IntentScore *int
}

type Service struct {
	store      docstore.Store
	collection string
	maxNotes   int
	now        func() time.Time
	logger     logger.Logger
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the memory service. maxNotes <= 0 keeps every note.
func NewService(store docstore.Store, collection string, maxNotes int, log logger.Logger, opts ...Option) *Service {
	if collection == "" {
		collection = DefaultCollection
	}
	s := &Service{
		store:      store,
		collection: collection,
		maxNotes:   maxNotes,
		now:        time.Now,
		logger:     log.WithFields(map[string]interface{}{"component": "customer-memory"}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetMemory returns the customer's memory, or nil when none has been recorded yet.
func (s *Service) GetMemory(ctx context.Context, customerID string) (*models.CustomerMemory, error) {
	var mem models.CustomerMemory
	found, err := docstore.GetJSON(ctx, s.store, s.collection, customerID, &mem)
	if err != nil {
		return nil, errors.NewMemoryStoreFailedError("get", err)
	}
	if !found {
		return nil, nil
	}
	return &mem, nil
}

// UpdateMemory merges u into the stored record, creating it on first interaction.
func (s *Service) UpdateMemory(ctx context.Context, customerID string, u Update) error {
	err := s.store.Update(ctx, s.collection, customerID, func(current []byte) ([]byte, error) {
		now := s.now().UTC()

		mem := models.NewCustomerMemory(customerID, now)
		if current != nil {
			if err := json.Unmarshal(current, mem); err != nil {
				return nil, err
			}
		}

		Apply(mem, u, now, s.maxNotes)
		return json.Marshal(mem)
	})
	if err != nil {
		metrics.MemoryUpdates.WithLabelValues("error").Inc()
		return errors.NewMemoryStoreFailedError("update", err)
	}

	metrics.MemoryUpdates.WithLabelValues("ok").Inc()
	s.logger.Debug("customer memory updated", map[string]interface{}{
		"customerId": customerID,
		"itemId":     u.ItemID,
		"hasNote":    u.Note != "",
	})
	return nil
}

// Apply merges an interaction into mem. History stays unique, notes only grow at the tail
// and lose their oldest entries once maxNotes is exceeded.
func Apply(mem *models.CustomerMemory, u Update, now time.Time, maxNotes int) {
	mem.History = appendUnique(dedupe(mem.History), u.ItemID)

	if u.Note != "" {
		mem.Notes = append(mem.Notes, u.Note)
	}
	if maxNotes > 0 && len(mem.Notes) > maxNotes {
		mem.Notes = append([]string(nil), mem.Notes[len(mem.Notes)-maxNotes:]...)
	}

	if u.Vehicle != nil {
		mergeVehicle(&mem.Preferences, u.Vehicle)
	}
	if u.IntentScore != nil {
		mem.Preferences.IntentScore = *u.IntentScore
	}

	mem.Preferences.LastSeen = now
	mem.UpdatedAt = now
	if mem.CreatedAt.IsZero() {
		mem.CreatedAt = now
	}
}

func mergeVehicle(p *models.Preferences, v *models.Vehicle) {
	p.Brands = appendUnique(p.Brands, v.Brand())
	p.CarTypes = appendUnique(p.CarTypes, v.Type)

	if v.Price <= 0 {
		return
	}
	if p.PriceRange.Min == 0 && p.PriceRange.Max == 0 {
		p.PriceRange = models.PriceRange{Min: v.Price, Max: v.Price}
		return
	}
	if v.Price < p.PriceRange.Min {
		p.PriceRange.Min = v.Price
	}
	if v.Price > p.PriceRange.Max {
		p.PriceRange.Max = v.Price
	}
}

func appendUnique(list []string, item string) []string {
	if list == nil {
		list = []string{}
	}
	if item == "" {
		return list
	}
	for _, existing := range list {
		if existing == item {
			return list
		}
	}
	return append(list, item)
}

func dedupe(list []string) []string {
	out := make([]string, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	for _, item := range list {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

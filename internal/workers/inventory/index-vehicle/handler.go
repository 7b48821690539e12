package indexvehicle

import (
	"context"

	"sales-orchestrator/internal/common/camunda"
	"sales-orchestrator/internal/common/errors"
	"sales-orchestrator/internal/common/logger"
	"sales-orchestrator/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "index-vehicle"

// VehicleStore is satisfied by *inventory.Repository.
type VehicleStore interface {
	GetVehicle(ctx context.Context, id string) (*models.Vehicle, error)
	Invalidate(ctx context.Context, id string)
}

// Indexer is satisfied by *semanticindex.Service.
type Indexer interface {
	OnVehicleWritten(ctx context.Context, before, after *models.Vehicle) (bool, error)
}

// LeadMatcher is satisfied by *matching.Matcher.
type LeadMatcher interface {
	MatchVehicleToLeads(ctx context.Context, v models.Vehicle) ([]models.LeadMatch, error)
}

type Handler struct {
	config   *Config
	vehicles VehicleStore
	indexer  Indexer
	matcher  LeadMatcher
	errors   *errors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(cfg *Config, vehicles VehicleStore, indexer Indexer, matcher LeadMatcher, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   cfg,
		vehicles: vehicles,
		indexer:  indexer,
		matcher:  matcher,
		errors:   errors.NewErrorHandler(log),
		logger:   log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := camunda.DecodeVariables(job, inputSchema, &input); err != nil {
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	camunda.CompleteJob(ctx, client, job, output, h.logger)
}

// Execute invalidates the cached vehicle, re-embeds it when its semantic fields changed and,
// for newly created vehicles, looks for hot leads it suits.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	h.vehicles.Invalidate(ctx, input.VehicleID)

	after := input.After
	if after == nil {
		v, err := h.vehicles.GetVehicle(ctx, input.VehicleID)
		if err != nil {
			return nil, err
		}
		after = v
	}

	reindexed, err := h.indexer.OnVehicleWritten(ctx, input.Before, after)
	if err != nil {
		return nil, err
	}

	output := &Output{
		VehicleID: after.ID,
		Reindexed: reindexed,
		Created:   input.Before == nil,
		Matches:   []models.LeadMatch{},
	}

	if output.Created && h.matcher != nil {
		matches, err := h.matcher.MatchVehicleToLeads(ctx, *after)
		if err != nil {
			h.logger.Warn("proactive lead matching failed", map[string]interface{}{
				"vehicleId": after.ID,
				"error":     err.Error(),
			})
		} else {
			output.Matches = matches
		}
	}

	h.logger.Info("vehicle write processed", map[string]interface{}{
		"vehicleId": after.ID,
		"reindexed": reindexed,
		"created":   output.Created,
		"matches":   len(output.Matches),
	})
	return output, nil
}

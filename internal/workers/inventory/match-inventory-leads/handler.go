package matchinventoryleads

import (
	"context"

	"sales-orchestrator/internal/common/camunda"
	"sales-orchestrator/internal/common/errors"
	"sales-orchestrator/internal/common/logger"
	"sales-orchestrator/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "match-inventory-leads"

// VehicleSource is satisfied by *inventory.Repository.
type VehicleSource interface {
	GetVehicle(ctx context.Context, id string) (*models.Vehicle, error)
}

// LeadMatcher is satisfied by *matching.Matcher.
type LeadMatcher interface {
	MatchVehicleToLeads(ctx context.Context, v models.Vehicle) ([]models.LeadMatch, error)
}

type Handler struct {
	config   *Config
	vehicles VehicleSource
	matcher  LeadMatcher
	errors   *errors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(cfg *Config, vehicles VehicleSource, matcher LeadMatcher, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   cfg,
		vehicles: vehicles,
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	vehicle := input.Vehicle
	if vehicle == nil {
		v, err := h.vehicles.GetVehicle(ctx, input.VehicleID)
		if err != nil {
			return nil, err
		}
		vehicle = v
	}

	matches, err := h.matcher.MatchVehicleToLeads(ctx, *vehicle)
	if err != nil {
		return nil, err
	}

	return &Output{VehicleID: vehicle.ID, Matches: matches, MatchCount: len(matches)}, nil
}

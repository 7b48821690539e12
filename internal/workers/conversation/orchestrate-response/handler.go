package orchestrateresponse

import (
	"context"

	"sales-orchestrator/internal/common/camunda"
	"sales-orchestrator/internal/common/errors"
	"sales-orchestrator/internal/common/logger"
	"sales-orchestrator/internal/models"
	"sales-orchestrator/internal/sales/orchestrator"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "orchestrate-response"

// Orchestrator is satisfied by *orchestrator.Service.
type Orchestrator interface {
	Orchestrate(ctx context.Context, req orchestrator.Request) (*models.OrchestrationResult, error)
}

type Handler struct {
	config       *Config
	orchestrator Orchestrator
	resolver     *orchestrator.Resolver
	errors       *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(cfg *Config, orch Orchestrator, resolver *orchestrator.Resolver, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       cfg,
		orchestrator: orch,
		resolver:     resolver,
		errors:       errors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.GetKey(),
		"workflowKey": job.GetProcessInstanceKey(),
	})

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

// Execute resolves the lead and vehicle context and runs the orchestrator.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	lead, vehicle, err := h.resolver.Resolve(ctx, orchestrator.ContextRef{
		LeadID:    input.LeadID,
		Lead:      input.Lead,
		VehicleID: input.VehicleID,
		Vehicle:   input.Vehicle,
	})
	if err != nil {
		return nil, err
	}

	result, err := h.orchestrator.Orchestrate(ctx, orchestrator.Request{
		Message:    input.Message,
		History:    input.History,
		Lead:       lead,
		Vehicle:    vehicle,
		CustomerID: input.CustomerID,
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("reply orchestrated", map[string]interface{}{
		"leadId":      lead.ID,
		"auditPassed": result.Metadata.ValidationAudit.Passed,
		"intent":      result.Metadata.Intent,
	})
	return &Output{Response: result.Response, Metadata: result.Metadata}, nil
}

package simulateloan

import (
	"context"
	"fmt"

	"sales-orchestrator/internal/common/camunda"
	"sales-orchestrator/internal/common/errors"
	"sales-orchestrator/internal/common/logger"
	"sales-orchestrator/internal/models"
	"sales-orchestrator/internal/sales/finance"
	"sales-orchestrator/internal/sales/orchestrator"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "simulate-loan"

type Handler struct {
	config    *Config
	simulator *finance.Simulator
	errors    *errors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(cfg *Config, simulator *finance.Simulator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    cfg,
		simulator: simulator,
		errors:    errors.NewErrorHandler(log),
		logger:    log,
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

// Execute runs the simulation. The credit score falls back to the band, then to the configured default.
func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	if input.Price <= 0 {
		return nil, errors.NewValidationError("price must be positive")
	}
	if input.DownPayment < 0 || input.DownPayment >= input.Price {
		return nil, errors.NewValidationError(fmt.Sprintf("downPayment must be in [0, %.2f)", input.Price))
	}

	term := input.TermMonths
	if term <= 0 {
		term = h.config.DefaultTermMonths
	}
	credit := orchestrator.CreditScore(models.LeadContext{
		CreditScore: input.CreditScore,
		CreditBand:  input.CreditBand,
	}, h.config.DefaultCreditScore)

	sims := h.simulator.Simulate(input.Price, input.DownPayment, term, credit)
	output := &Output{
		Simulations: sims,
		CreditScore: credit,
		CreditTier:  h.simulator.Tier(credit).Name,
	}
	if best, ok := finance.Best(sims); ok {
		output.Best = &best
	}

	h.logger.Info("loan simulated", map[string]interface{}{
		"price":       input.Price,
		"downPayment": input.DownPayment,
		"termMonths":  term,
		"creditTier":  output.CreditTier,
		"offers":      len(sims),
	})
	return output, nil
}

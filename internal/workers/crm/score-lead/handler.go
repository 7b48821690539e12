package scorelead

import (
	"context"

	"sales-orchestrator/internal/common/camunda"
	"sales-orchestrator/internal/common/errors"
	"sales-orchestrator/internal/common/events"
	"sales-orchestrator/internal/common/logger"
	"sales-orchestrator/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "score-lead"

// Scorer is satisfied by *leadscore.Engine.
type Scorer interface {
	Score(in models.LeadScoreInput) models.LeadScore
}

type Handler struct {
	config    *Config
	scorer    Scorer
	publisher events.Publisher
	errors    *errors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(cfg *Config, scorer Scorer, publisher events.Publisher, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Handler{
		config:    cfg,
		scorer:    scorer,
		publisher: publisher,
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

// Execute scores the lead and publishes a lead.scored event when a topic is configured.
// Scoring is deterministic, so a retried job publishes the same score again.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	score := h.scorer.Score(input.LeadScoreInput)
	output := &Output{LeadID: input.LeadID, LeadScore: score}

	h.logger.Info("lead scored", map[string]interface{}{
		"leadId":   input.LeadID,
		"score":    score.Score,
		"category": string(score.Category),
	})

	if h.config.EventTopic != "" {
		if err := h.publisher.Publish(ctx, h.config.EventTopic, input.LeadID, events.TypeLeadScored, output); err != nil {
			return nil, err
		}
	}
	return output, nil
}

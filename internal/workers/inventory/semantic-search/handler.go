package semanticsearch

import (
	"context"

	"sales-orchestrator/internal/common/camunda"
	"sales-orchestrator/internal/common/errors"
	"sales-orchestrator/internal/common/logger"
	"sales-orchestrator/internal/sales/semanticindex"
	"sales-orchestrator/internal/storage/vectorindex"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "semantic-search"

// Searcher is satisfied by *semanticindex.Service.
type Searcher interface {
	Query(ctx context.Context, text string, limit int) ([]vectorindex.Hit, error)
}

type Handler struct {
	config   *Config
	searcher Searcher
	errors   *errors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(cfg *Config, searcher Searcher, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   cfg,
		searcher: searcher,
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

// Execute returns the nearest inventory items to the query, best first.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	limit := input.Limit
	if limit > h.config.MaxLimit {
		limit = h.config.MaxLimit
	}

	hits, err := h.searcher.Query(ctx, input.Query, limit)
	if err != nil {
		return nil, err
	}

	output := &Output{
		Matches: semanticindex.Matches(hits),
		Items:   make([]map[string]interface{}, 0, len(hits)),
	}
	for _, hit := range hits {
		item := map[string]interface{}{"id": hit.ID}
		for k, v := range hit.Fields {
			item[k] = v
		}
		output.Items = append(output.Items, item)
	}

	h.logger.Info("semantic search completed", map[string]interface{}{
		"limit": limit,
		"hits":  len(hits),
	})
	return output, nil
}

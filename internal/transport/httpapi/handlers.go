package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"sales-orchestrator/internal/common/errors"
	"sales-orchestrator/internal/common/logger"
	"sales-orchestrator/internal/models"
	orchestrateresponse "sales-orchestrator/internal/workers/conversation/orchestrate-response"
	scorelead "sales-orchestrator/internal/workers/crm/score-lead"
	simulateloan "sales-orchestrator/internal/workers/finance/simulate-loan"
	semanticsearch "sales-orchestrator/internal/workers/inventory/semantic-search"

	"github.com/gin-gonic/gin"
)

// The HTTP surface runs the same Execute paths as the job workers.
type (
	Responder interface {
		Execute(ctx context.Context, input *orchestrateresponse.Input) (*orchestrateresponse.Output, error)
	}
	LeadScorer interface {
		Execute(ctx context.Context, input *scorelead.Input) (*scorelead.Output, error)
	}
	LoanSimulator interface {
		Execute(ctx context.Context, input *simulateloan.Input) (*simulateloan.Output, error)
	}
	InventorySearcher interface {
		Execute(ctx context.Context, input *semanticsearch.Input) (*semanticsearch.Output, error)
	}
)

// ReplyRecorder is satisfied by *observability.Observability.
type ReplyRecorder interface {
	RecordReply(ctx context.Context, channel, outcome string)
}

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

type respondRequest struct {
	Message    string               `json:"message" binding:"required,max=4000"`
	History    []models.ChatMessage `json:"history"`
	LeadID     string               `json:"leadId"`
	Lead       *models.LeadContext  `json:"lead"`
	VehicleID  string               `json:"vehicleId"`
	Vehicle    *models.Vehicle      `json:"vehicle"`
	CustomerID string               `json:"customerId"`
}

type scoreRequest struct {
	LeadID string `json:"leadId" binding:"required"`
	models.LeadScoreInput
}

type simulateRequest struct {
	Price       float64 `json:"price" binding:"required,gt=0"`
	DownPayment float64 `json:"downPayment" binding:"gte=0"`
	TermMonths  int     `json:"termMonths" binding:"gte=0,lte=120"`
	CreditScore *int    `json:"creditScore"`
	CreditBand  string  `json:"creditBand"`
}

type Handlers struct {
	responder Responder
	scorer    LeadScorer
	simulator LoanSimulator
	searcher  InventorySearcher
	recorder  ReplyRecorder
	checks    map[string]Check
	timeout   time.Duration
	logger    logger.Logger
}

func (h *Handlers) Respond(c *gin.Context) {
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, string(errors.ErrCodeInvalidInput), err)
		return
	}

	input := &orchestrateresponse.Input{
		Message:    req.Message,
		History:    req.History,
		LeadID:     req.LeadID,
		Lead:       req.Lead,
		VehicleID:  req.VehicleID,
		Vehicle:    req.Vehicle,
		CustomerID: req.CustomerID,
	}
	if err := input.Validate(); err != nil {
		RespondFailure(c, err)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	out, err := h.responder.Execute(ctx, input)
	if err != nil {
		h.recordReply(ctx, "unavailable")
		h.logger.WithError(err).Warn("respond failed", map[string]interface{}{"leadId": req.LeadID})
		RespondFailure(c, err)
		return
	}

	outcome := "ok"
	if !out.Metadata.ValidationAudit.Passed {
		outcome = "corrected"
	}
	h.recordReply(ctx, outcome)
	RespondOK(c, out)
}

func (h *Handlers) ScoreLead(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, string(errors.ErrCodeInvalidInput), err)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	out, err := h.scorer.Execute(ctx, &scorelead.Input{LeadID: req.LeadID, LeadScoreInput: req.LeadScoreInput})
	if err != nil {
		RespondFailure(c, err)
		return
	}
	RespondOK(c, out)
}

func (h *Handlers) SimulateLoan(c *gin.Context) {
	var req simulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, string(errors.ErrCodeInvalidInput), err)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	out, err := h.simulator.Execute(ctx, &simulateloan.Input{
		Price:       req.Price,
		DownPayment: req.DownPayment,
		TermMonths:  req.TermMonths,
		CreditScore: req.CreditScore,
		CreditBand:  req.CreditBand,
	})
	if err != nil {
		RespondFailure(c, err)
		return
	}
	RespondOK(c, out)
}

func (h *Handlers) SearchInventory(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		RespondError(c, http.StatusBadRequest, string(errors.ErrCodeInvalidInput), fmt.Errorf("q is required"))
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			RespondError(c, http.StatusBadRequest, string(errors.ErrCodeInvalidInput), fmt.Errorf("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	out, err := h.searcher.Execute(ctx, &semanticsearch.Input{Query: query, Limit: limit})
	if err != nil {
		RespondFailure(c, err)
		return
	}
	RespondOK(c, out)
}

func HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Ready runs every dependency check and reports 503 when any of them fails.
func (h *Handlers) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	c.JSON(status, gin.H{"checks": results})
}

func (h *Handlers) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

func (h *Handlers) recordReply(ctx context.Context, outcome string) {
	if h.recorder != nil {
		h.recorder.RecordReply(ctx, "http", outcome)
	}
}

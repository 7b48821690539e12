// Package orchestrator turns an inbound customer message into a vetted sales reply.
//
// Research, synthesis and validation run strictly in order, each grounded on the previous
// stage's text. Classification runs alongside them. Only a synthesis failure is fatal; every
// other stage degrades to a documented default. Customer memory updates and event publication
// are detached from the caller and drained with Wait.
package orchestrator

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"sales-orchestrator/internal/common/config"
	"sales-orchestrator/internal/common/errors"
	"sales-orchestrator/internal/common/events"
	"sales-orchestrator/internal/common/llm"
	"sales-orchestrator/internal/common/logger"
	"sales-orchestrator/internal/common/metrics"
	"sales-orchestrator/internal/common/observability"
	"sales-orchestrator/internal/common/validation"
	"sales-orchestrator/internal/models"
	"sales-orchestrator/internal/sales/memory"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	StageMemory         = "memory"
	StageResearch       = "research"
	StageSynthesis      = "synthesis"
	StageValidation     = "validation"
	StageNegotiation    = "negotiation"
	StageClassification = "classification"

	stageOngoing = "ongoing"
	stageInitial = "initial"

	auditUnavailable = "audit unavailable"
	noteRunes        = 50
)

// MemoryStore reads and updates customer memory. *memory.Service satisfies it.
type MemoryStore interface {
	GetMemory(ctx context.Context, customerID string) (*models.CustomerMemory, error)
	UpdateMemory(ctx context.Context, customerID string, u memory.Update) error
}

// LoanSimulator produces financing offers. *finance.Simulator satisfies it.
type LoanSimulator interface {
	Simulate(price, downPayment float64, termMonths, creditScore int) []models.LoanSimulation
}

// Classifier labels the original customer message. *classifier.Classifier satisfies it.
type Classifier interface {
	Classify(ctx context.Context, message string) models.Classification
}

// Request is one inbound customer message.
type Request struct {
	Message    string
	History    []models.ChatMessage
	Lead       models.LeadContext
	Vehicle    *models.Vehicle
	CustomerID string
}

// MemoryKey identifies the customer memory document. Lead-only triggers are keyed by lead id.
func (r Request) MemoryKey() string {
	if r.CustomerID != "" {
		return r.CustomerID
	}
	return r.Lead.ID
}

// Dependencies wires the collaborators. Memory and Publisher are optional.
type Dependencies struct {
	Generator  llm.Generator
	Classifier Classifier
	Simulator  LoanSimulator
	Memory     MemoryStore
	Publisher  events.Publisher
	EventTopic string
}

type Service struct {
	generator  llm.Generator
	classifier Classifier
	simulator  LoanSimulator
	memory     MemoryStore
	publisher  events.Publisher
	eventTopic string

	cfg         config.OrchestratorConfig
	salesStages []string
	now         func() time.Time
	tasks       *tracker
	logger      logger.Logger
}

type Option func(*Service)

// WithClock replaces time.Now for memory notes.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSalesStages replaces the sales stage taxonomy given to synthesis.
func WithSalesStages(stages []string) Option {
	return func(s *Service) { s.salesStages = stages }
}

func NewService(deps Dependencies, cfg config.OrchestratorConfig, log logger.Logger, opts ...Option) *Service {
	log = log.WithFields(map[string]interface{}{"component": "orchestrator"})
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 3
	}
	s := &Service{
		generator:   deps.Generator,
		classifier:  deps.Classifier,
		simulator:   deps.Simulator,
		memory:      deps.Memory,
		publisher:   deps.Publisher,
		eventTopic:  deps.EventTopic,
		cfg:         cfg,
		salesStages: models.SalesStages,
		now:         time.Now,
		tasks:       &tracker{logger: log},
		logger:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Wait blocks until every detached memory update and event publication has finished.
func (s *Service) Wait() {
	s.tasks.Wait()
}

var auditSchema = validation.MustCompile(map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"passed"},
	"properties": map[string]interface{}{
		"passed":            map[string]interface{}{"type": "boolean"},
		"feedback":          map[string]interface{}{"type": []interface{}{"string", "null"}},
		"correctedResponse": map[string]interface{}{"type": []interface{}{"string", "null"}},
	},
})

type auditOutput struct {
	Passed            bool   `json:"passed"`
	Feedback          string `json:"feedback"`
	CorrectedResponse string `json:"correctedResponse"`
}

// Orchestrate produces the reply for req. The only error it returns is an
// *errors.OrchestrationUnavailableError, raised when synthesis cannot produce a draft.
func (s *Service) Orchestrate(ctx context.Context, req Request) (result *models.OrchestrationResult, err error) {
	ctx, span := observability.StartSpan(ctx, "orchestrator.Orchestrate",
		attribute.String("customer.id", req.CustomerID),
		attribute.String("lead.id", req.Lead.ID),
		attribute.Int("history.length", len(req.History)),
	)
	defer func() { observability.EndSpan(span, err) }()

	log := s.logger.WithFields(map[string]interface{}{"customerId": req.CustomerID, "leadId": req.Lead.ID})
	log.Info("orchestrating reply", map[string]interface{}{"messageLength": len(req.Message)})

	var (
		classification models.Classification
		metadata       models.OrchestrationMetadata
		response       string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		classification = s.classify(gctx, req.Message)
		return nil
	})
	g.Go(func() error {
		var chainErr error
		response, metadata, chainErr = s.runChain(gctx, req, log)
		return chainErr
	})
	if err := g.Wait(); err != nil {
		metrics.OrchestratorRequests.WithLabelValues("unavailable").Inc()
		log.Error("orchestration unavailable", map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	metadata.Stage = stageInitial
	if len(req.History) > 0 {
		metadata.Stage = stageOngoing
	}
	metadata.Sentiment = classification.Sentiment
	metadata.Intent = classification.Intent
	metadata.Urgency = classification.Urgency
	metadata.BuyerStage = classification.BuyerStage

	result = &models.OrchestrationResult{Response: response, Metadata: metadata}

	outcome := "ok"
	if !metadata.ValidationAudit.Passed {
		outcome = "corrected"
	}
	metrics.OrchestratorRequests.WithLabelValues(outcome).Inc()

	s.detach(ctx, req, result)
	return result, nil
}

// runChain executes memory, research, synthesis, validation and the correction branch in order.
func (s *Service) runChain(ctx context.Context, req Request, log logger.Logger) (string, models.OrchestrationMetadata, error) {
	var meta models.OrchestrationMetadata

	mem := s.fetchMemory(ctx, req.MemoryKey(), log)
	brief := s.research(ctx, req, mem, log)

	draft, err := s.synthesize(ctx, req, brief)
	if err != nil {
		return "", meta, err
	}

	audit := s.validate(ctx, draft, brief, log)
	meta.ValidationAudit = models.ValidationAudit{Passed: audit.Passed, Feedback: audit.Feedback}

	response := draft
	corrected := strings.TrimSpace(audit.CorrectedResponse)
	if !audit.Passed && corrected != "" {
		log.Warn("validation failed, using corrected response", map[string]interface{}{"feedback": audit.Feedback})
		response = corrected

		if HasPaymentMarker(req.Message, s.cfg.PaymentMarkers) {
			meta.LoanSimulations = s.simulate(req, log)
		}
		meta.NegotiationStrategy = s.negotiate(ctx, req.Message, meta.LoanSimulations, log)
	}

	return response, meta, nil
}

func (s *Service) fetchMemory(ctx context.Context, customerID string, log logger.Logger) *models.CustomerMemory {
	if customerID == "" || s.memory == nil {
		return nil
	}
	started := time.Now()
	defer metrics.ObserveStage(StageMemory, started)

	ctx, cancel := withTimeout(ctx, s.cfg.MemoryTimeout)
	defer cancel()

	mem, err := s.memory.GetMemory(ctx, customerID)
	if err != nil {
		metrics.RecordFallback(StageMemory, "fetch_error")
		log.Warn("customer memory unavailable, continuing without it", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return mem
}

func (s *Service) research(ctx context.Context, req Request, mem *models.CustomerMemory, log logger.Logger) string {
	started := time.Now()
	defer metrics.ObserveStage(StageResearch, started)

	prompt := researchPrompt(req.Message, lastN(req.History, s.cfg.HistoryWindow), req.Lead, mem)
	brief, err := s.generate(ctx, StageResearch, prompt, llm.WithTemperature(0.1), s.cfg.ResearchTimeout)
	if err != nil {
		metrics.RecordFallback(StageResearch, fallbackReason(err))
		log.Warn("research failed, continuing with an empty brief", map[string]interface{}{"error": err.Error()})
		return ""
	}
	return brief
}

func (s *Service) synthesize(ctx context.Context, req Request, brief string) (string, error) {
	started := time.Now()
	defer metrics.ObserveStage(StageSynthesis, started)

	draft, err := s.generate(ctx, StageSynthesis, synthesisPrompt(s.salesStages, req.Message, brief, req.Vehicle), llm.GenerateOptions{}, s.cfg.SynthesisTimeout)
	if err != nil {
		return "", errors.NewOrchestrationUnavailable(StageSynthesis, errors.NewSynthesisFailedError(err))
	}
	draft = strings.TrimSpace(draft)
	if draft == "" {
		return "", errors.NewOrchestrationUnavailable(StageSynthesis, errors.NewSynthesisFailedError(fmt.Errorf("empty draft")))
	}
	return draft, nil
}

func (s *Service) validate(ctx context.Context, draft, brief string, log logger.Logger) auditOutput {
	started := time.Now()
	defer metrics.ObserveStage(StageValidation, started)

	fallback := auditOutput{Passed: true}
	if s.cfg.FailClosedAudit {
		fallback = auditOutput{Passed: false, Feedback: auditUnavailable}
	}

	raw, err := s.generate(ctx, StageValidation, validationPrompt(draft, brief), llm.WithTemperature(0), s.cfg.ValidationTimeout)
	if err != nil {
		metrics.RecordFallback(StageValidation, fallbackReason(err))
		log.Warn("validation unavailable, applying audit policy", map[string]interface{}{
			"error":      err.Error(),
			"failClosed": s.cfg.FailClosedAudit,
		})
		return fallback
	}

	parsed := llm.ParseJSON[auditOutput](raw, auditSchema)
	if !parsed.Ok() {
		metrics.RecordFallback(StageValidation, "parse_error")
		log.Warn("unparsable validation output, applying audit policy", map[string]interface{}{
			"error":      parsed.Err().Error(),
			"raw":        llm.Truncate(parsed.Raw(), 1000),
			"failClosed": s.cfg.FailClosedAudit,
		})
	}
	return parsed.OrElse(fallback)
}

func (s *Service) simulate(req Request, log logger.Logger) []models.LoanSimulation {
	if s.simulator == nil || req.Vehicle == nil || req.Vehicle.Price <= 0 {
		log.Debug("no priced vehicle in context, skipping loan simulation", nil)
		return nil
	}
	down := DownPayment(req.Message, req.Lead)
	credit := CreditScore(req.Lead, s.cfg.DefaultCreditScore)
	sims := s.simulator.Simulate(req.Vehicle.Price, down, s.cfg.DefaultTermMonths, credit)
	log.Info("loan simulation grounded negotiation", map[string]interface{}{
		"vehicleId":   req.Vehicle.ID,
		"price":       req.Vehicle.Price,
		"downPayment": down,
		"creditScore": credit,
		"offers":      len(sims),
	})
	return sims
}

func (s *Service) negotiate(ctx context.Context, message string, sims []models.LoanSimulation, log logger.Logger) *string {
	started := time.Now()
	defer metrics.ObserveStage(StageNegotiation, started)

	raw, err := s.generate(ctx, StageNegotiation, negotiationPrompt(message, sims), llm.WithTemperature(0.1), s.cfg.NegotiationTimeout)
	if err != nil {
		metrics.RecordFallback(StageNegotiation, fallbackReason(err))
		log.Warn("negotiation lookup failed", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return strategyFrom(raw)
}

func (s *Service) classify(ctx context.Context, message string) models.Classification {
	if s.classifier == nil {
		return models.DefaultClassification()
	}
	started := time.Now()
	defer metrics.ObserveStage(StageClassification, started)

	ctx, cancel := withTimeout(ctx, s.cfg.ClassificationTimeout)
	defer cancel()
	return s.classifier.Classify(ctx, message)
}

func (s *Service) generate(ctx context.Context, stage, prompt string, opts llm.GenerateOptions, timeoutMs int) (string, error) {
	ctx, span := observability.StartSpan(ctx, "orchestrator."+stage)
	ctx, cancel := withTimeout(ctx, timeoutMs)
	defer cancel()

	text, err := s.generator.Generate(ctx, prompt, opts)
	observability.EndSpan(span, err)
	return text, err
}

// detach schedules the memory update and event publication without blocking the caller.
func (s *Service) detach(ctx context.Context, req Request, result *models.OrchestrationResult) {
	if key := req.MemoryKey(); key != "" && s.memory != nil {
		update := memory.Update{
			ItemID:  itemID(req),
			Note:    s.note(req.Message),
			Vehicle: req.Vehicle,
		}
		s.tasks.Go(ctx, "memory-update", config.GetDuration(s.cfg.MemoryTimeout), func(ctx context.Context) error {
			return s.memory.UpdateMemory(ctx, key, update)
		})
	}

	if s.publisher != nil && s.eventTopic != "" {
		key := req.MemoryKey()
		payload := map[string]interface{}{
			"customerId": req.CustomerID,
			"leadId":     req.Lead.ID,
			"response":   result.Response,
			"metadata":   result.Metadata,
		}
		s.tasks.Go(ctx, "publish-orchestration", 0, func(ctx context.Context) error {
			return s.publisher.Publish(ctx, s.eventTopic, key, events.TypeOrchestrationCompleted, payload)
		})
	}
}

func (s *Service) note(message string) string {
	return fmt.Sprintf("Interaction on %s: %s...", s.now().UTC().Format(time.RFC3339), truncateRunes(message, noteRunes))
}

// itemID is the vehicle the interaction was about, if any.
func itemID(req Request) string {
	if req.Vehicle != nil && req.Vehicle.ID != "" {
		return req.Vehicle.ID
	}
	return req.Lead.VehicleID
}

func strategyFrom(raw string) *string {
	s := strings.Trim(strings.TrimSpace(raw), `"'`)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	return &s
}

func lastN(history []models.ChatMessage, n int) []models.ChatMessage {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func withTimeout(ctx context.Context, ms int) (context.Context, context.CancelFunc) {
	if ms <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, config.GetDuration(ms))
}

func fallbackReason(err error) string {
	if stderrors.Is(err, llm.ErrGenerationTimeout) || stderrors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "generation_error"
}

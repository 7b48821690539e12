package orchestrator

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"sales-orchestrator/internal/common/config"
	"sales-orchestrator/internal/common/errors"
	"sales-orchestrator/internal/common/events"
	"sales-orchestrator/internal/common/llm"
	"sales-orchestrator/internal/common/llm/llmtest"
	"sales-orchestrator/internal/common/logger"
	"sales-orchestrator/internal/models"
	"sales-orchestrator/internal/sales/finance"
	"sales-orchestrator/internal/sales/memory"
	"sales-orchestrator/internal/storage/docstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	researchMarker    = "agente de investigación"
	synthesisMarker   = "vendedor estrella"
	validationMarker  = "agente de validación"
	negotiationMarker = "negotiation strategy name"
)

// script answers each stage prompt with a fixed reply or error.
type script struct {
	research, synthesis, validation, negotiation string
	researchErr, synthesisErr, validationErr     error
}

func (s script) generator() *llmtest.Generator {
	return &llmtest.Generator{Respond: func(prompt string, _ llm.GenerateOptions) (string, error) {
		switch {
		case strings.Contains(prompt, researchMarker):
			return s.research, s.researchErr
		case strings.Contains(prompt, synthesisMarker):
			return s.synthesis, s.synthesisErr
		case strings.Contains(prompt, validationMarker):
			return s.validation, s.validationErr
		case strings.Contains(prompt, negotiationMarker):
			return s.negotiation, nil
		}
		return "", stderrors.New("unexpected prompt")
	}}
}

type stubClassifier struct {
	result models.Classification
}

func (c stubClassifier) Classify(context.Context, string) models.Classification {
	return c.result
}

type simCall struct {
	price, down  float64
	term, credit int
}

type recordingSimulator struct {
	mu    sync.Mutex
	calls []simCall
	sim   *finance.Simulator
}

func (r *recordingSimulator) Simulate(price, down float64, term, credit int) []models.LoanSimulation {
	r.mu.Lock()
	r.calls = append(r.calls, simCall{price, down, term, credit})
	r.mu.Unlock()
	return r.sim.Simulate(price, down, term, credit)
}

type failingMemory struct{}

func (failingMemory) GetMemory(context.Context, string) (*models.CustomerMemory, error) {
	return nil, stderrors.New("redis down")
}

func (failingMemory) UpdateMemory(context.Context, string, memory.Update) error {
	return stderrors.New("redis down")
}

func testConfig() config.OrchestratorConfig {
	return config.OrchestratorConfig{
		PaymentMarkers:     []string{"pago", "mensual", "pronto", "inicial", "financ", "payment", "monthly", "down payment"},
		DefaultTermMonths:  72,
		DefaultCreditScore: 720,
		HistoryWindow:      3,
	}
}

var car1 = &models.Vehicle{ID: "car-1", Name: "Toyota RAV4", Type: "suv", Price: 38500}

var excited = models.Classification{Sentiment: "excited", Intent: "financing", Urgency: "high", BuyerStage: "decision"}

type fixture struct {
	svc       *Service
	gen       *llmtest.Generator
	sim       *recordingSimulator
	memory    *memory.Service
	publisher *events.MemoryPublisher
}

func newFixture(t *testing.T, s script, cfg config.OrchestratorConfig) *fixture {
	t.Helper()
	f := &fixture{
		gen:       s.generator(),
		sim:       &recordingSimulator{sim: finance.NewSimulator(finance.DefaultTables())},
		memory:    memory.NewService(docstore.NewMemoryStore(), "", 0, logger.NewNoOpLogger()),
		publisher: events.NewMemoryPublisher(),
	}
	f.svc = NewService(Dependencies{
		Generator:  f.gen,
		Classifier: stubClassifier{result: excited},
		Simulator:  f.sim,
		Memory:     f.memory,
		Publisher:  f.publisher,
		EventTopic: "sales.orchestration.completed",
	}, cfg, logger.NewNoOpLogger(), WithClock(func() time.Time {
		return time.Date(2025, 3, 1, 15, 4, 5, 0, time.UTC)
	}))
	t.Cleanup(f.svc.Wait)
	return f
}

func TestOrchestrate_PassedAuditReturnsDraft(t *testing.T) {
	f := newFixture(t, script{
		research:   `{"queryExpansion":"SUV familiar","needsInventory":true,"needsPolicy":false}`,
		synthesis:  "¡Saludos! La RAV4 es perfecta para tu familia.",
		validation: `{"passed": true, "feedback": "ok"}`,
	}, testConfig())

	result, err := f.svc.Orchestrate(context.Background(), Request{Message: "Busco una SUV", Lead: models.LeadContext{ID: "lead-1"}})
	require.NoError(t, err)

	assert.Equal(t, "¡Saludos! La RAV4 es perfecta para tu familia.", result.Response)
	assert.True(t, result.Metadata.ValidationAudit.Passed)
	assert.Equal(t, "ok", result.Metadata.ValidationAudit.Feedback)
	assert.Equal(t, "initial", result.Metadata.Stage)
	assert.Equal(t, "excited", result.Metadata.Sentiment)
	assert.Equal(t, "financing", result.Metadata.Intent)
	assert.Equal(t, "high", result.Metadata.Urgency)
	assert.Equal(t, "decision", result.Metadata.BuyerStage)
	assert.Nil(t, result.Metadata.NegotiationStrategy)
	assert.Empty(t, f.gen.CallsContaining(negotiationMarker))
}

func TestOrchestrate_StageTemperaturesAndGrounding(t *testing.T) {
	f := newFixture(t, script{
		research:   "BRIEF-123",
		synthesis:  "DRAFT-456",
		validation: `{"passed": true}`,
	}, testConfig())

	_, err := f.svc.Orchestrate(context.Background(), Request{Message: "hola", Vehicle: car1})
	require.NoError(t, err)

	research := f.gen.CallsContaining(researchMarker)
	require.Len(t, research, 1)
	require.NotNil(t, research[0].Temperature)
	assert.InDelta(t, 0.1, *research[0].Temperature, 1e-6)

	synthesis := f.gen.CallsContaining(synthesisMarker)
	require.Len(t, synthesis, 1)
	assert.Nil(t, synthesis[0].Temperature)
	assert.Contains(t, synthesis[0].Prompt, "BRIEF-123")
	assert.Contains(t, synthesis[0].Prompt, "Objection Handling")
	assert.Contains(t, synthesis[0].Prompt, `"car-1"`)

	validation := f.gen.CallsContaining(validationMarker)
	require.Len(t, validation, 1)
	require.NotNil(t, validation[0].Temperature)
	assert.Equal(t, float32(0), *validation[0].Temperature)
	assert.Contains(t, validation[0].Prompt, "DRAFT-456")
	assert.Contains(t, validation[0].Prompt, "BRIEF-123")
}

func TestOrchestrate_ResearchSeesOnlyRecentHistory(t *testing.T) {
	f := newFixture(t, script{synthesis: "draft", validation: `{"passed":true}`}, testConfig())

	history := []models.ChatMessage{
		{Role: models.RoleUser, Text: "msg-1"},
		{Role: models.RoleModel, Text: "msg-2"},
		{Role: models.RoleUser, Text: "msg-3"},
		{Role: models.RoleModel, Text: "msg-4"},
	}
	result, err := f.svc.Orchestrate(context.Background(), Request{Message: "y el precio?", History: history})
	require.NoError(t, err)
	assert.Equal(t, "ongoing", result.Metadata.Stage)

	prompt := f.gen.CallsContaining(researchMarker)[0].Prompt
	assert.NotContains(t, prompt, "msg-1")
	assert.Contains(t, prompt, "msg-2")
	assert.Contains(t, prompt, "msg-4")
}

func TestOrchestrate_CorrectedResponseReplacesDraft(t *testing.T) {
	f := newFixture(t, script{
		research:    "brief",
		synthesis:   "Tu APR será 4.5% garantizado.",
		validation:  "```json\n{\"passed\": false, \"feedback\": \"APR exacto\", \"correctedResponse\": \"Tenemos tasas competitivas sujetas a aprobación.\"}\n```",
		negotiation: "AIDA",
	}, testConfig())

	result, err := f.svc.Orchestrate(context.Background(), Request{Message: "¿Qué tasa me dan?"})
	require.NoError(t, err)

	assert.Equal(t, "Tenemos tasas competitivas sujetas a aprobación.", result.Response)
	assert.False(t, result.Metadata.ValidationAudit.Passed)
	assert.Equal(t, "APR exacto", result.Metadata.ValidationAudit.Feedback)
	require.NotNil(t, result.Metadata.NegotiationStrategy)
	assert.Equal(t, "AIDA", *result.Metadata.NegotiationStrategy)
	assert.Empty(t, f.sim.calls, "no payment markers in the message")
}

func TestOrchestrate_FailedAuditWithoutCorrectionKeepsDraft(t *testing.T) {
	f := newFixture(t, script{
		synthesis:  "draft reply",
		validation: `{"passed": false, "feedback": "tono"}`,
	}, testConfig())

	result, err := f.svc.Orchestrate(context.Background(), Request{Message: "hola"})
	require.NoError(t, err)
	assert.Equal(t, "draft reply", result.Response)
	assert.False(t, result.Metadata.ValidationAudit.Passed)
	assert.Empty(t, f.gen.CallsContaining(negotiationMarker))
}

func TestOrchestrate_UnparsableAuditFailsOpen(t *testing.T) {
	for _, raw := range []string{"Todo se ve bien.", `{"passed": "yes"}`, `{"passed": true`} {
		t.Run(raw, func(t *testing.T) {
			f := newFixture(t, script{synthesis: "draft reply", validation: raw}, testConfig())

			result, err := f.svc.Orchestrate(context.Background(), Request{Message: "hola"})
			require.NoError(t, err)
			assert.Equal(t, "draft reply", result.Response)
			assert.True(t, result.Metadata.ValidationAudit.Passed)
		})
	}
}

func TestOrchestrate_UnparsableAuditFailClosed(t *testing.T) {
	cfg := testConfig()
	cfg.FailClosedAudit = true
	f := newFixture(t, script{synthesis: "draft reply", validation: "not json"}, cfg)

	result, err := f.svc.Orchestrate(context.Background(), Request{Message: "hola"})
	require.NoError(t, err)
	assert.Equal(t, "draft reply", result.Response)
	assert.False(t, result.Metadata.ValidationAudit.Passed)
	assert.Equal(t, "audit unavailable", result.Metadata.ValidationAudit.Feedback)
}

func TestOrchestrate_ValidationErrorFailsOpen(t *testing.T) {
	f := newFixture(t, script{synthesis: "draft reply", validationErr: llm.ErrGenerationTimeout}, testConfig())

	result, err := f.svc.Orchestrate(context.Background(), Request{Message: "hola"})
	require.NoError(t, err)
	assert.Equal(t, "draft reply", result.Response)
	assert.True(t, result.Metadata.ValidationAudit.Passed)
}

func TestOrchestrate_ResearchFailureDegradesToEmptyBrief(t *testing.T) {
	f := newFixture(t, script{
		researchErr: stderrors.New("quota exceeded"),
		synthesis:   "draft reply",
		validation:  `{"passed": true}`,
	}, testConfig())

	result, err := f.svc.Orchestrate(context.Background(), Request{Message: "hola"})
	require.NoError(t, err)
	assert.Equal(t, "draft reply", result.Response)
	assert.Contains(t, f.gen.CallsContaining(synthesisMarker)[0].Prompt, "CONTEXTO INVESTIGACIÓN: \n")
}

func TestOrchestrate_FailedAuditWithNullFieldsIsNotAParseFailure(t *testing.T) {
	f := newFixture(t, script{
		synthesis:  "El pago exacto será $612 al 5.9% APR.",
		validation: `{"passed": false, "feedback": "Prometió APR exacto sin aclarar aprobación", "correctedResponse": null}`,
	}, testConfig())

	result, err := f.svc.Orchestrate(context.Background(), Request{Message: "hola"})
	require.NoError(t, err)
	assert.False(t, result.Metadata.ValidationAudit.Passed)
	assert.Equal(t, "Prometió APR exacto sin aclarar aprobación", result.Metadata.ValidationAudit.Feedback)
	assert.Equal(t, "El pago exacto será $612 al 5.9% APR.", result.Response)
	assert.Nil(t, result.Metadata.NegotiationStrategy)
}

func TestOrchestrate_NullFeedbackOnPassedAudit(t *testing.T) {
	f := newFixture(t, script{synthesis: "draft", validation: `{"passed": true, "feedback": null}`}, testConfig())

	result, err := f.svc.Orchestrate(context.Background(), Request{Message: "hola"})
	require.NoError(t, err)
	assert.True(t, result.Metadata.ValidationAudit.Passed)
	assert.Empty(t, result.Metadata.ValidationAudit.Feedback)
}

func TestOrchestrate_SynthesisFailureIsFatal(t *testing.T) {
	tests := []struct {
		name string
		s    script
	}{
		{"provider error", script{synthesisErr: stderrors.New("503 unavailable")}},
		{"timeout", script{synthesisErr: llm.ErrGenerationTimeout}},
		{"empty draft", script{synthesis: "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.s, testConfig())

			result, err := f.svc.Orchestrate(context.Background(), Request{Message: "hola", CustomerID: "cust-1"})
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, errors.IsOrchestrationUnavailable(err))

			var unavailable *errors.OrchestrationUnavailableError
			require.True(t, stderrors.As(err, &unavailable))
			assert.Equal(t, StageSynthesis, unavailable.Stage)
			assert.Empty(t, f.gen.CallsContaining(validationMarker))

			f.svc.Wait()
			mem, err := f.memory.GetMemory(context.Background(), "cust-1")
			require.NoError(t, err)
			assert.Nil(t, mem, "no memory update without a reply")
			assert.Empty(t, f.publisher.Events("sales.orchestration.completed"))
		})
	}
}

func TestOrchestrate_FinanceScenario(t *testing.T) {
	f := newFixture(t, script{
		research:    "brief",
		synthesis:   "Con $2,000 pagarías $612 al mes.",
		validation:  `{"passed": false, "feedback": "pago exacto sin disclaimer", "correctedResponse": "Los pagos dependen de la aprobación del banco."}`,
		negotiation: "PAS - Problem Agitate Solve",
	}, testConfig())

	result, err := f.svc.Orchestrate(context.Background(), Request{
		Message: "¿cuánto sería el pago mensual con $2,000 de inicial?",
		Lead:    models.LeadContext{ID: "lead-1", VehicleID: "car-1", CreditBand: "fair"},
		Vehicle: car1,
	})
	require.NoError(t, err)

	require.Len(t, f.sim.calls, 1)
	assert.Equal(t, simCall{price: 38500, down: 2000, term: 72, credit: 670}, f.sim.calls[0])
	assert.Len(t, result.Metadata.LoanSimulations, len(finance.DefaultTables().Lenders))

	require.NotNil(t, result.Metadata.NegotiationStrategy)
	assert.Equal(t, "PAS - Problem Agitate Solve", *result.Metadata.NegotiationStrategy)

	negotiation := f.gen.CallsContaining(negotiationMarker)
	require.Len(t, negotiation, 1)
	assert.Contains(t, negotiation[0].Prompt, "Popular")
}

func TestOrchestrate_FinanceScenarioWithPassedAuditSkipsNegotiation(t *testing.T) {
	f := newFixture(t, script{
		synthesis:  "Los pagos dependen de la aprobación.",
		validation: `{"passed": true}`,
	}, testConfig())

	result, err := f.svc.Orchestrate(context.Background(), Request{
		Message: "¿cuánto sería el pago mensual con $2,000 de inicial?",
		Vehicle: car1,
	})
	require.NoError(t, err)
	assert.Nil(t, result.Metadata.NegotiationStrategy)
	assert.Empty(t, f.sim.calls)
}

func TestOrchestrate_NullNegotiationIsAbsent(t *testing.T) {
	for _, raw := range []string{"null", " NULL \n", ""} {
		f := newFixture(t, script{
			synthesis:   "draft",
			validation:  `{"passed": false, "correctedResponse": "fixed"}`,
			negotiation: raw,
		}, testConfig())

		result, err := f.svc.Orchestrate(context.Background(), Request{Message: "hola"})
		require.NoError(t, err)
		assert.Equal(t, "fixed", result.Response)
		assert.Nil(t, result.Metadata.NegotiationStrategy, "raw %q", raw)
	}
}

func TestOrchestrate_MemoryHistoryStaysUniqueAcrossMessages(t *testing.T) {
	f := newFixture(t, script{synthesis: "draft", validation: `{"passed": true}`}, testConfig())
	ctx := context.Background()

	for _, msg := range []string{"Me interesa la RAV4", "¿La RAV4 viene en rojo?"} {
		_, err := f.svc.Orchestrate(ctx, Request{Message: msg, Vehicle: car1, CustomerID: "cust-1"})
		require.NoError(t, err)
		f.svc.Wait()

		mem, err := f.memory.GetMemory(ctx, "cust-1")
		require.NoError(t, err)
		require.NotNil(t, mem)
		assert.Equal(t, []string{"car-1"}, mem.History)
	}

	mem, err := f.memory.GetMemory(ctx, "cust-1")
	require.NoError(t, err)
	require.Len(t, mem.Notes, 2)
	assert.Equal(t, "Interaction on 2025-03-01T15:04:05Z: Me interesa la RAV4...", mem.Notes[0])
	assert.Equal(t, []string{"Toyota"}, mem.Preferences.Brands)
	assert.Equal(t, []string{"suv"}, mem.Preferences.CarTypes)
}

func TestOrchestrate_LeadOnlyTriggerKeysMemoryByLead(t *testing.T) {
	f := newFixture(t, script{synthesis: "draft", validation: `{"passed": true}`}, testConfig())
	ctx := context.Background()
	lead := models.LeadContext{ID: "lead-1", VehicleID: "car-1"}

	for _, msg := range []string{"Me interesa la RAV4", "¿Tienen la RAV4 en gris?"} {
		_, err := f.svc.Orchestrate(ctx, Request{Message: msg, Lead: lead, Vehicle: car1})
		require.NoError(t, err)
		f.svc.Wait()
	}

	mem, err := f.memory.GetMemory(ctx, "lead-1")
	require.NoError(t, err)
	require.NotNil(t, mem)
	assert.Equal(t, []string{"car-1"}, mem.History)
	assert.Len(t, mem.Notes, 2)

	research := f.gen.CallsContaining(researchMarker)
	require.Len(t, research, 2)
	assert.Contains(t, research[0].Prompt, "Memoria del cliente: {}")
	assert.Contains(t, research[1].Prompt, `"history":["car-1"]`)
}

func TestRequest_MemoryKey(t *testing.T) {
	assert.Equal(t, "cust-1", Request{CustomerID: "cust-1", Lead: models.LeadContext{ID: "lead-1"}}.MemoryKey())
	assert.Equal(t, "lead-1", Request{Lead: models.LeadContext{ID: "lead-1"}}.MemoryKey())
	assert.Empty(t, Request{}.MemoryKey())
}

func TestOrchestrate_MemoryGroundsResearch(t *testing.T) {
	f := newFixture(t, script{synthesis: "draft", validation: `{"passed": true}`}, testConfig())
	ctx := context.Background()
	require.NoError(t, f.memory.UpdateMemory(ctx, "cust-9", memory.Update{ItemID: "car-77"}))

	_, err := f.svc.Orchestrate(ctx, Request{Message: "hola", CustomerID: "cust-9"})
	require.NoError(t, err)
	assert.Contains(t, f.gen.CallsContaining(researchMarker)[0].Prompt, "car-77")
}

func TestOrchestrate_MemoryFailuresAreDegradable(t *testing.T) {
	svc := NewService(Dependencies{
		Generator:  script{synthesis: "draft", validation: `{"passed": true}`}.generator(),
		Classifier: stubClassifier{result: models.DefaultClassification()},
		Memory:     failingMemory{},
	}, testConfig(), logger.NewNoOpLogger())

	result, err := svc.Orchestrate(context.Background(), Request{Message: "hola", CustomerID: "cust-1", Vehicle: car1})
	require.NoError(t, err)
	assert.Equal(t, "draft", result.Response)
	svc.Wait()
}

func TestOrchestrate_LongMessageNoteIsTruncated(t *testing.T) {
	f := newFixture(t, script{synthesis: "draft", validation: `{"passed": true}`}, testConfig())
	msg := strings.Repeat("ñ", 80)

	_, err := f.svc.Orchestrate(context.Background(), Request{Message: msg, CustomerID: "cust-2"})
	require.NoError(t, err)
	f.svc.Wait()

	mem, err := f.memory.GetMemory(context.Background(), "cust-2")
	require.NoError(t, err)
	require.Len(t, mem.Notes, 1)
	assert.Equal(t, "Interaction on 2025-03-01T15:04:05Z: "+strings.Repeat("ñ", 50)+"...", mem.Notes[0])
	assert.Empty(t, mem.History)
}

func TestOrchestrate_PublishesCompletionEvent(t *testing.T) {
	f := newFixture(t, script{synthesis: "draft", validation: `{"passed": true}`}, testConfig())

	_, err := f.svc.Orchestrate(context.Background(), Request{Message: "hola", CustomerID: "cust-3", Lead: models.LeadContext{ID: "lead-3"}})
	require.NoError(t, err)
	f.svc.Wait()

	evts := f.publisher.Events("sales.orchestration.completed")
	require.Len(t, evts, 1)
	assert.Equal(t, events.TypeOrchestrationCompleted, evts[0].Type)
	assert.Equal(t, "cust-3", evts[0].Key)
}

func TestOrchestrate_WithoutClassifierUsesDefaults(t *testing.T) {
	svc := NewService(Dependencies{
		Generator: script{synthesis: "draft", validation: `{"passed": true}`}.generator(),
	}, testConfig(), logger.NewNoOpLogger())

	result, err := svc.Orchestrate(context.Background(), Request{Message: "hola"})
	require.NoError(t, err)
	assert.Equal(t, "neutral", result.Metadata.Sentiment)
	assert.Equal(t, "consultation", result.Metadata.Intent)
}

package classifier

import (
	"context"
	stderrors "errors"
	"testing"

	"sales-orchestrator/internal/common/llm"
	"sales-orchestrator/internal/common/llm/llmtest"
	"sales-orchestrator/internal/common/logger"
	"sales-orchestrator/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generatorReturning(text string, err error) *llmtest.Generator {
	return &llmtest.Generator{Respond: func(string, llm.GenerateOptions) (string, error) {
		return text, err
	}}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		err  error
		want models.Classification
	}{
		{
			name: "valid json",
			raw:  `{"sentiment":"excited","intent":"test_drive","urgency":"high","buyerStage":"decision"}`,
			want: models.Classification{Sentiment: "excited", Intent: "test_drive", Urgency: "high", BuyerStage: "decision"},
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"sentiment\":\"negative\",\"intent\":\"objection\",\"urgency\":\"low\",\"buyerStage\":\"consideration\"}\n```",
			want: models.Classification{Sentiment: "negative", Intent: "objection", Urgency: "low", BuyerStage: "consideration"},
		},
		{name: "prose", raw: "El cliente parece contento.", want: models.DefaultClassification()},
		{
			name: "label outside vocabulary",
			raw:  `{"sentiment":"angry","intent":"inquiry","urgency":"low","buyerStage":"awareness"}`,
			want: models.DefaultClassification(),
		},
		{name: "missing field", raw: `{"sentiment":"positive"}`, want: models.DefaultClassification()},
		{name: "provider error", err: stderrors.New("503"), want: models.DefaultClassification()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(generatorReturning(tt.raw, tt.err), logger.NewTestLogger(t))
			assert.Equal(t, tt.want, c.Classify(context.Background(), "¿Tienen la RAV4 disponible?"))
		})
	}
}

func TestClassify_UsesZeroTemperatureAndOriginalMessage(t *testing.T) {
	gen := generatorReturning(`{}`, nil)
	New(gen, logger.NewNoOpLogger()).Classify(context.Background(), "quiero hacer un test drive")

	calls := gen.Calls()
	require.Len(t, calls, 1)
	require.NotNil(t, calls[0].Temperature)
	assert.Equal(t, float32(0), *calls[0].Temperature)
	assert.Contains(t, calls[0].Prompt, `"quiero hacer un test drive"`)
	assert.Contains(t, calls[0].Prompt, "purchase_ready")
}

func TestDefaultClassification(t *testing.T) {
	assert.Equal(t, models.Classification{
		Sentiment:  "neutral",
		Intent:     "consultation",
		Urgency:    "medium",
		BuyerStage: "consideration",
	}, models.DefaultClassification())
}

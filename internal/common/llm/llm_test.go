package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"sales-orchestrator/internal/common/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// WithTimeout
// ==========================

func TestWithTimeout_MapsDeadlineToGenerationTimeout(t *testing.T) {
	slow := GeneratorFunc(func(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	_, err := WithTimeout(slow, 10*time.Millisecond).Generate(context.Background(), "hola", GenerateOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGenerationTimeout))
}

func TestWithTimeout_PassesThroughResultsAndOptions(t *testing.T) {
	var seen *float32
	g := GeneratorFunc(func(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
		seen = opts.Temperature
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return "respuesta", nil
	})

	text, err := WithTimeout(g, time.Second).Generate(context.Background(), "hola", WithTemperature(0.1))
	require.NoError(t, err)
	assert.Equal(t, "respuesta", text)
	require.NotNil(t, seen)
	assert.InDelta(t, 0.1, *seen, 1e-6)
}

func TestWithTimeout_OtherErrorsUnchanged(t *testing.T) {
	boom := errors.New("quota exceeded")
	g := GeneratorFunc(func(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
		return "", boom
	})

	_, err := WithTimeout(g, time.Second).Generate(context.Background(), "x", GenerateOptions{})
	assert.Same(t, boom, err)
}

func TestWithTimeout_ZeroDurationReturnsSameGenerator(t *testing.T) {
	g := GeneratorFunc(func(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
		return "", nil
	})
	_, wrapped := WithTimeout(g, 0).(*timeoutGenerator)
	assert.False(t, wrapped)
}

// ==========================
// ParseJSON
// ==========================

type audit struct {
	Passed            bool   `json:"passed"`
	Feedback          string `json:"feedback"`
	CorrectedResponse string `json:"correctedResponse"`
}

var auditSchema = validation.MustCompile(map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"passed"},
	"properties": map[string]interface{}{
		"passed":   map[string]interface{}{"type": "boolean"},
		"feedback": map[string]interface{}{"type": "string"},
	},
})

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantOk     bool
		wantPassed bool
	}{
		{"plain object", `{"passed": false, "feedback": "falta aviso"}`, true, false},
		{"fenced block", "```json\n{\"passed\": true, \"feedback\": \"ok\"}\n```", true, true},
		{"prose around object", `Aquí está: {"passed": true, "feedback": "bien {x}"} fin`, true, true},
		{"not json", "La respuesta es correcta.", false, false},
		{"truncated json", `{"passed": tr`, false, false},
		{"schema violation", `{"feedback": "sin passed"}`, false, false},
		{"wrong type", `{"passed": "yes"}`, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseJSON[audit](tt.raw, auditSchema)
			assert.Equal(t, tt.wantOk, result.Ok())
			assert.Equal(t, tt.raw, result.Raw())
			if tt.wantOk {
				assert.NoError(t, result.Err())
				assert.Equal(t, tt.wantPassed, result.Value().Passed)
			} else {
				assert.Error(t, result.Err())
			}
		})
	}
}

func TestResult_OrElse(t *testing.T) {
	def := audit{Passed: true}

	bad := ParseJSON[audit]("nope", auditSchema)
	assert.Equal(t, def, bad.OrElse(def))

	good := ParseJSON[audit](`{"passed": false, "correctedResponse": "nuevo"}`, auditSchema)
	assert.Equal(t, "nuevo", good.OrElse(def).CorrectedResponse)
}

func TestParseJSON_WithoutSchema(t *testing.T) {
	result := ParseJSON[map[string]interface{}](`{"a": 1}`, nil)
	require.True(t, result.Ok())
	assert.Equal(t, float64(1), result.Value()["a"])
}

func TestExtractJSONObject_SkipsInvalidLeadingBraces(t *testing.T) {
	got, ok := ExtractJSONObject(`{not json} then {"passed": true}`)
	require.True(t, ok)
	assert.Equal(t, `{"passed": true}`, got)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hola", Truncate("hola", 10))
	assert.Equal(t, "ñañ...", Truncate("ñañañaña", 3))
}

// Package classifier labels a customer message with sentiment, intent, urgency and buyer stage.
package classifier

import (
	"context"
	"fmt"
	"strings"

	"sales-orchestrator/internal/common/llm"
	"sales-orchestrator/internal/common/logger"
	"sales-orchestrator/internal/common/metrics"
	"sales-orchestrator/internal/common/validation"
	"sales-orchestrator/internal/models"
)

const stage = "classification"

var schema = validation.MustCompile(map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"sentiment", "intent", "urgency", "buyerStage"},
	"properties": map[string]interface{}{
		"sentiment":  map[string]interface{}{"type": "string", "enum": toInterfaces(models.Sentiments)},
		"intent":     map[string]interface{}{"type": "string", "enum": toInterfaces(models.Intents)},
		"urgency":    map[string]interface{}{"type": "string", "enum": toInterfaces(models.Urgencies)},
		"buyerStage": map[string]interface{}{"type": "string", "enum": toInterfaces(models.BuyerStages)},
	},
})

type Classifier struct {
	generator llm.Generator
	logger    logger.Logger
}

func New(generator llm.Generator, log logger.Logger) *Classifier {
	return &Classifier{
		generator: generator,
		logger:    log.WithFields(map[string]interface{}{"stage": stage}),
	}
}

// Classify never fails. Provider errors and unusable output both yield DefaultClassification.
func (c *Classifier) Classify(ctx context.Context, message string) models.Classification {
	def := models.DefaultClassification()

	raw, err := c.generator.Generate(ctx, Prompt(message), llm.WithTemperature(0))
	if err != nil {
		metrics.RecordFallback(stage, "generation_error")
		c.logger.Warn("classification unavailable, using defaults", map[string]interface{}{"error": err})
		return def
	}

	result := llm.ParseJSON[models.Classification](raw, schema)
	if !result.Ok() {
		metrics.RecordFallback(stage, "parse_error")
		c.logger.Warn("unparsable classification, using defaults", map[string]interface{}{
			"error": result.Err(),
			"raw":   llm.Truncate(result.Raw(), 500),
		})
	}
	return result.OrElse(def)
}

// Prompt builds the classification prompt for message.
func Prompt(message string) string {
	return fmt.Sprintf(`Eres el clasificador de conversaciones de ventas de un concesionario.
Clasifica el siguiente mensaje del cliente: "%s"

RETORNA SOLO UN OBJETO JSON con:
- sentiment: uno de [%s]
- intent: uno de [%s]
- urgency: uno de [%s]
- buyerStage: uno de [%s]`,
		message,
		strings.Join(models.Sentiments, ", "),
		strings.Join(models.Intents, ", "),
		strings.Join(models.Urgencies, ", "),
		strings.Join(models.BuyerStages, ", "),
	)
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

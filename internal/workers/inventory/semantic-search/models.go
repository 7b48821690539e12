package semanticsearch

import (
	"sales-orchestrator/internal/common/validation"
	"sales-orchestrator/internal/models"
)

type Input struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type Output struct {
	Matches []models.MatchResult     `json:"matches"`
	Items   []map[string]interface{} `json:"items"`
}

var inputSchema = validation.MustCompile(map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"query"},
	"properties": map[string]interface{}{
		"query": map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 1000},
		"limit": map[string]interface{}{"type": "integer", "minimum": 0},
	},
})

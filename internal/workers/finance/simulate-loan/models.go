package simulateloan

import (
	"sales-orchestrator/internal/common/validation"
	"sales-orchestrator/internal/models"
)

type Input struct {
	Price       float64 `json:"price"`
	DownPayment float64 `json:"downPayment"`
	TermMonths  int     `json:"termMonths,omitempty"`
	CreditScore *int    `json:"creditScore,omitempty"`
	CreditBand  string  `json:"creditBand,omitempty"`
}

type Output struct {
	Simulations []models.LoanSimulation `json:"loanSimulations"`
	Best        *models.LoanSimulation  `json:"bestOffer,omitempty"`
	CreditScore int                     `json:"creditScore"`
	CreditTier  string                  `json:"creditTier"`
}

var inputSchema = validation.MustCompile(map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"price"},
	"properties": map[string]interface{}{
		"price":       map[string]interface{}{"type": "number", "minimum": 0},
		"downPayment": map[string]interface{}{"type": "number", "minimum": 0},
		"termMonths":  map[string]interface{}{"type": "integer", "minimum": 0, "maximum": 120},
		"creditScore": map[string]interface{}{"type": "integer"},
		"creditBand":  map[string]interface{}{"type": "string"},
	},
})

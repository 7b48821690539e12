package scorelead

import (
	"sales-orchestrator/internal/common/validation"
	"sales-orchestrator/internal/models"
)

// Input carries the lead id and its buying signals at the top level of the job variables.
type Input struct {
	LeadID string `json:"leadId"`
	models.LeadScoreInput
}

type Output struct {
	LeadID string `json:"leadId"`
	models.LeadScore
}

var inputSchema = validation.MustCompile(map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"leadId"},
	"properties": map[string]interface{}{
		"leadId":                       map[string]interface{}{"type": "string", "minLength": 1},
		"vehicleId":                    map[string]interface{}{"type": "string"},
		"requestedConsultation":        map[string]interface{}{"type": "boolean"},
		"monthlyIncome":                map[string]interface{}{"type": "number", "minimum": 0},
		"hasPronto":                    map[string]interface{}{"type": "boolean"},
		"chatInteractions":             map[string]interface{}{"type": "integer", "minimum": 0},
		"viewedInventoryMultipleTimes": map[string]interface{}{"type": "boolean"},
		"timeAtJob":                    map[string]interface{}{"type": "string"},
		"location":                     map[string]interface{}{"type": "string"},
	},
})

package orchestrateresponse

import (
	"encoding/json"

	"sales-orchestrator/internal/common/errors"
	"sales-orchestrator/internal/common/validation"
	"sales-orchestrator/internal/models"
)

type Input struct {
	Message    string               `json:"message"`
	History    []models.ChatMessage `json:"history,omitempty"`
	LeadID     string               `json:"leadId,omitempty"`
	Lead       *models.LeadContext  `json:"lead,omitempty"`
	VehicleID  string               `json:"vehicleId,omitempty"`
	Vehicle    *models.Vehicle      `json:"vehicle,omitempty"`
	CustomerID string               `json:"customerId,omitempty"`
}

type Output struct {
	Response string                       `json:"response"`
	Metadata models.OrchestrationMetadata `json:"metadata"`
}

var inputSchema = validation.MustCompile(map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"message"},
	"properties": map[string]interface{}{
		"message": map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 4000},
		"history": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type":     "object",
				"required": []interface{}{"role", "text"},
				"properties": map[string]interface{}{
					"role": map[string]interface{}{"type": "string", "enum": []interface{}{models.RoleUser, models.RoleModel}},
					"text": map[string]interface{}{"type": "string"},
				},
			},
		},
		"leadId":     map[string]interface{}{"type": "string"},
		"lead":       map[string]interface{}{"type": "object"},
		"vehicleId":  map[string]interface{}{"type": "string"},
		"vehicle":    map[string]interface{}{"type": "object"},
		"customerId": map[string]interface{}{"type": "string"},
	},
})

// Validate applies the job variable schema to input built outside a zeebe job.
func (in *Input) Validate() error {
	raw, err := json.Marshal(in)
	if err != nil {
		return errors.NewValidationError(err.Error())
	}
	if result := inputSchema.ValidateJSON(raw); !result.Valid {
		return errors.NewValidationError(validation.FormatErrors(result.Errors))
	}
	return nil
}

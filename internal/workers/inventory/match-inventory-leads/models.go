package matchinventoryleads

import (
	"sales-orchestrator/internal/common/validation"
	"sales-orchestrator/internal/models"
)

type Input struct {
	VehicleID string          `json:"vehicleId"`
	Vehicle   *models.Vehicle `json:"vehicle,omitempty"`
}

type Output struct {
	VehicleID  string             `json:"vehicleId"`
	Matches    []models.LeadMatch `json:"leadMatches"`
	MatchCount int                `json:"matchCount"`
}

var inputSchema = validation.MustCompile(map[string]interface{}{
	"type": "object",
	"anyOf": []interface{}{
		map[string]interface{}{"required": []interface{}{"vehicleId"}},
		map[string]interface{}{"required": []interface{}{"vehicle"}},
	},
	"properties": map[string]interface{}{
		"vehicleId": map[string]interface{}{"type": "string", "minLength": 1},
		"vehicle":   map[string]interface{}{"type": "object"},
	},
})

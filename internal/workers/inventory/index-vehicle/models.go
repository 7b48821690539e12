package indexvehicle

import (
	"sales-orchestrator/internal/common/validation"
	"sales-orchestrator/internal/models"
)

// Input describes a write to the cars collection. Before is absent for newly created vehicles.
// After may be omitted, in which case the vehicle is loaded by id.
type Input struct {
	VehicleID string          `json:"vehicleId"`
	Before    *models.Vehicle `json:"before,omitempty"`
	After     *models.Vehicle `json:"after,omitempty"`
}

type Output struct {
	VehicleID string             `json:"vehicleId"`
	Reindexed bool               `json:"reindexed"`
	Created   bool               `json:"created"`
	Matches   []models.LeadMatch `json:"leadMatches"`
}

var inputSchema = validation.MustCompile(map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"vehicleId"},
	"properties": map[string]interface{}{
		"vehicleId": map[string]interface{}{"type": "string", "minLength": 1},
		"before":    map[string]interface{}{"type": []interface{}{"object", "null"}},
		"after":     map[string]interface{}{"type": []interface{}{"object", "null"}},
	},
})

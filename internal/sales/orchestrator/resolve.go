package orchestrator

import (
	"context"

	"sales-orchestrator/internal/common/logger"
	"sales-orchestrator/internal/models"
)

// LeadSource loads CRM leads. *leads.Repository satisfies it.
type LeadSource interface {
	GetLead(ctx context.Context, id string) (*models.LeadContext, error)
}

// VehicleSource loads inventory vehicles. *inventory.Repository satisfies it.
type VehicleSource interface {
	GetVehicle(ctx context.Context, id string) (*models.Vehicle, error)
}

// ContextRef is what a transport knows about the lead and vehicle: inline records, ids, or nothing.
type ContextRef struct {
	LeadID    string
	Lead      *models.LeadContext
	VehicleID string
	Vehicle   *models.Vehicle
}

// Resolver turns a ContextRef into the lead and vehicle context of a Request.
type Resolver struct {
	leads    LeadSource
	vehicles VehicleSource
	logger   logger.Logger
}

func NewResolver(leads LeadSource, vehicles VehicleSource, log logger.Logger) *Resolver {
	return &Resolver{leads: leads, vehicles: vehicles, logger: log}
}

// Resolve prefers inline records over lookups. A lead lookup failure is returned to the caller.
// A vehicle that cannot be loaded only removes the vehicle context.
func (r *Resolver) Resolve(ctx context.Context, ref ContextRef) (models.LeadContext, *models.Vehicle, error) {
	var lead models.LeadContext
	switch {
	case ref.Lead != nil:
		lead = *ref.Lead
	case ref.LeadID != "" && r.leads != nil:
		found, err := r.leads.GetLead(ctx, ref.LeadID)
		if err != nil {
			return lead, nil, err
		}
		lead = *found
	default:
		lead.ID = ref.LeadID
	}

	if ref.Vehicle != nil {
		return lead, ref.Vehicle, nil
	}

	vehicleID := ref.VehicleID
	if vehicleID == "" {
		vehicleID = lead.VehicleID
	}
	if vehicleID == "" || r.vehicles == nil {
		return lead, nil, nil
	}

	vehicle, err := r.vehicles.GetVehicle(ctx, vehicleID)
	if err != nil {
		r.logger.Warn("vehicle context unavailable, continuing without it", map[string]interface{}{
			"vehicleId": vehicleID,
			"error":     err.Error(),
		})
		return lead, nil, nil
	}
	return lead, vehicle, nil
}

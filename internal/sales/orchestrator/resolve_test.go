package orchestrator

import (
	"context"
	"testing"

	"sales-orchestrator/internal/common/errors"
	"sales-orchestrator/internal/common/logger"
	"sales-orchestrator/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type leadMap map[string]models.LeadContext

func (m leadMap) GetLead(_ context.Context, id string) (*models.LeadContext, error) {
	l, ok := m[id]
	if !ok {
		return nil, errors.NewLeadNotFoundError(id)
	}
	return &l, nil
}

type vehicleMap map[string]models.Vehicle

func (m vehicleMap) GetVehicle(_ context.Context, id string) (*models.Vehicle, error) {
	v, ok := m[id]
	if !ok {
		return nil, errors.NewVehicleNotFoundError(id)
	}
	return &v, nil
}

func newResolver() *Resolver {
	return NewResolver(
		leadMap{"lead-1": {ID: "lead-1", FirstName: "Ana", VehicleID: "car-1"}},
		vehicleMap{"car-1": *car1},
		logger.NewNoOpLogger(),
	)
}

func TestResolve_LooksUpLeadAndItsVehicle(t *testing.T) {
	lead, vehicle, err := newResolver().Resolve(context.Background(), ContextRef{LeadID: "lead-1"})
	require.NoError(t, err)
	assert.Equal(t, "Ana", lead.FirstName)
	require.NotNil(t, vehicle)
	assert.Equal(t, 38500.0, vehicle.Price)
}

func TestResolve_InlineRecordsWin(t *testing.T) {
	inlineLead := &models.LeadContext{ID: "lead-x", FirstName: "Luis"}
	inlineCar := &models.Vehicle{ID: "car-x", Price: 1000}

	lead, vehicle, err := newResolver().Resolve(context.Background(), ContextRef{
		LeadID: "lead-1", Lead: inlineLead, VehicleID: "car-1", Vehicle: inlineCar,
	})
	require.NoError(t, err)
	assert.Equal(t, "Luis", lead.FirstName)
	assert.Same(t, inlineCar, vehicle)
}

func TestResolve_MissingVehicleIsNotFatal(t *testing.T) {
	lead, vehicle, err := newResolver().Resolve(context.Background(), ContextRef{LeadID: "lead-1", VehicleID: "car-404"})
	require.NoError(t, err)
	assert.Equal(t, "lead-1", lead.ID)
	assert.Nil(t, vehicle)
}

func TestResolve_MissingLeadIsReturned(t *testing.T) {
	_, _, err := newResolver().Resolve(context.Background(), ContextRef{LeadID: "lead-404"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeLeadNotFound, errors.AsStandardError(err).Code)
}

func TestResolve_NothingKnown(t *testing.T) {
	lead, vehicle, err := NewResolver(nil, nil, logger.NewNoOpLogger()).Resolve(context.Background(), ContextRef{LeadID: "lead-9", VehicleID: "car-1"})
	require.NoError(t, err)
	assert.Equal(t, "lead-9", lead.ID)
	assert.Nil(t, vehicle)
}

// Package matching proactively pairs new inventory with hot leads.
package matching

import (
	"context"
	"fmt"
	"strings"

	"sales-orchestrator/internal/common/logger"
	"sales-orchestrator/internal/models"
)

// LeadSource lists leads by category. *leads.Repository satisfies it.
type LeadSource interface {
	ListByCategory(ctx context.Context, category models.LeadCategory, limit int) ([]models.LeadContext, error)
}

type Rules struct {
	CandidateLimit  int
	TypeMatch       int
	BudgetMatch     int
	BudgetTolerance float64
	MinScore        int
}

func DefaultRules() Rules {
	return Rules{
		CandidateLimit:  10,
		TypeMatch:       40,
		BudgetMatch:     30,
		BudgetTolerance: 0.9,
		MinScore:        40,
	}
}

const anonymousLead = "Cliente Anónimo"

type Matcher struct {
	leads  LeadSource
	rules  Rules
	logger logger.Logger
}

func NewMatcher(leads LeadSource, rules Rules, log logger.Logger) *Matcher {
	return &Matcher{
		leads:  leads,
		rules:  rules,
		logger: log.WithFields(map[string]interface{}{"component": "proactive-matching"}),
	}
}

// MatchVehicleToLeads scores the hot leads against v and keeps those at or above MinScore.
func (m *Matcher) MatchVehicleToLeads(ctx context.Context, v models.Vehicle) ([]models.LeadMatch, error) {
	candidates, err := m.leads.ListByCategory(ctx, models.LeadCategoryHot, m.rules.CandidateLimit)
	if err != nil {
		return nil, err
	}

	matches := []models.LeadMatch{}
	for _, lead := range candidates {
		if match, ok := m.Score(lead, v); ok {
			matches = append(matches, match)
		}
	}

	m.logger.Info("proactive matching finished", map[string]interface{}{
		"vehicleId":    v.ID,
		"candidates":   len(candidates),
		"matchesFound": len(matches),
	})
	return matches, nil
}

// Score rates one lead against v.
func (m *Matcher) Score(lead models.LeadContext, v models.Vehicle) (models.LeadMatch, bool) {
	score := 0
	var reasons []string

	if lead.PreferredType != "" && strings.EqualFold(lead.PreferredType, v.Type) {
		score += m.rules.TypeMatch
		reasons = append(reasons, fmt.Sprintf("Busca un %s.", v.Type))
	}
	if v.Price > 0 && lead.Budget >= v.Price*m.rules.BudgetTolerance {
		score += m.rules.BudgetMatch
		reasons = append(reasons, "Presupuesto compatible.")
	}

	if score < m.rules.MinScore {
		return models.LeadMatch{}, false
	}
	return models.LeadMatch{
		LeadID:    lead.ID,
		LeadName:  lead.DisplayName(anonymousLead),
		VehicleID: v.ID,
		Score:     score,
		Reasons:   reasons,
		Reason:    strings.Join(reasons, " "),
	}, true
}

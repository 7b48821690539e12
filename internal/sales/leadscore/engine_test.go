package leadscore

import (
	"testing"

	"sales-orchestrator/internal/models"

	"github.com/stretchr/testify/assert"
)

func fullInput() models.LeadScoreInput {
	return models.LeadScoreInput{
		VehicleID:                    "car-1",
		RequestedConsultation:        true,
		MonthlyIncome:                4500,
		HasPronto:                    true,
		ChatInteractions:             8,
		ViewedInventoryMultipleTimes: true,
		TimeAtJob:                    "2+ years",
		Location:                     "Puerto Rico",
	}
}

func TestScore_Categories(t *testing.T) {
	engine := NewEngine(DefaultRules())

	tests := []struct {
		name         string
		input        models.LeadScoreInput
		wantScore    int
		wantCategory models.LeadCategory
		wantAction   string
	}{
		{"empty lead", models.LeadScoreInput{}, 0, models.LeadCategoryCold, "Email sequence + Seguimiento 24h"},
		{"every signal", fullInput(), 100, models.LeadCategoryHot, "Llamar INMEDIATAMENTE (<5 min)"},
		{
			"warm boundary",
			models.LeadScoreInput{VehicleID: "car-1", RequestedConsultation: true},
			40, models.LeadCategoryWarm, "Email sequence + Seguimiento 24h",
		},
		{
			"hot boundary",
			models.LeadScoreInput{VehicleID: "car-1", RequestedConsultation: true, ChatInteractions: 6, MonthlyIncome: 3001, TimeAtJob: "1 year", Location: "Florida", HasPronto: false, ViewedInventoryMultipleTimes: true},
			75, models.LeadCategoryHot, "Llamar INMEDIATAMENTE (<5 min)",
		},
		{
			"thresholds are strict",
			models.LeadScoreInput{MonthlyIncome: 3000, ChatInteractions: 5},
			0, models.LeadCategoryCold, "Email sequence + Seguimiento 24h",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Score(tt.input)
			assert.Equal(t, tt.wantScore, got.Score)
			assert.Equal(t, tt.wantCategory, got.Category)
			assert.Equal(t, tt.wantAction, got.NextAction)
		})
	}
}

func TestScore_InsightsAndReasoning(t *testing.T) {
	got := NewEngine(DefaultRules()).Score(models.LeadScoreInput{
		VehicleID:     "car-1",
		MonthlyIncome: 3500,
		Location:      "Puerto Rico",
	})

	assert.Equal(t, 35, got.Score)
	assert.Equal(t, []string{"Interés específico en unidad", "Ingreso sólido (>3k)", "Local (PR)"}, got.Insights)
	assert.Equal(t, "Score basado en 3 señales de compra identificadas.", got.Reasoning)
}

func TestScore_Monotonic(t *testing.T) {
	engine := NewEngine(DefaultRules())

	setters := map[string]func(*models.LeadScoreInput){
		"vehicle":      func(in *models.LeadScoreInput) { in.VehicleID = "car-9" },
		"consultation": func(in *models.LeadScoreInput) { in.RequestedConsultation = true },
		"income":       func(in *models.LeadScoreInput) { in.MonthlyIncome = 5000 },
		"pronto":       func(in *models.LeadScoreInput) { in.HasPronto = true },
		"chat":         func(in *models.LeadScoreInput) { in.ChatInteractions = 12 },
		"views":        func(in *models.LeadScoreInput) { in.ViewedInventoryMultipleTimes = true },
		"tenure":       func(in *models.LeadScoreInput) { in.TimeAtJob = "2+ years" },
		"location":     func(in *models.LeadScoreInput) { in.Location = "Puerto Rico" },
	}

	// every subset of signals as a base, each setter applied on top
	names := []string{"vehicle", "consultation", "income", "pronto", "chat", "views", "tenure", "location"}
	for mask := 0; mask < 1<<len(names); mask++ {
		var base models.LeadScoreInput
		for i, name := range names {
			if mask&(1<<i) != 0 {
				setters[name](&base)
			}
		}
		baseScore := engine.Score(base).Score
		assert.GreaterOrEqual(t, baseScore, 0)
		assert.LessOrEqual(t, baseScore, 100)

		for _, name := range names {
			with := base
			setters[name](&with)
			assert.GreaterOrEqual(t, engine.Score(with).Score, baseScore, "adding %s to mask %b", name, mask)
		}
	}
}

func TestScore_ClampedWhenWeightsExceedHundred(t *testing.T) {
	rules := DefaultRules()
	rules.VehicleInterest = 90
	rules.RequestedConsultation = 90

	got := NewEngine(rules).Score(fullInput())
	assert.Equal(t, 100, got.Score)
	assert.Equal(t, models.LeadCategoryHot, got.Category)
}

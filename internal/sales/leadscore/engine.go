// Package leadscore turns raw buying signals into a 0-100 lead score.
package leadscore

import (
	"fmt"

	"sales-orchestrator/internal/models"
)

// Rules is the weight table. Every weight must be non-negative so that adding a signal
// can never lower the score.
type Rules struct {
	VehicleInterest       int
	RequestedConsultation int
	SolidIncome           int
	HasDownPayment        int
	HighChatEngagement    int
	RepeatInventoryViews  int
	JobStability          int
	TargetLocation        int

	IncomeThreshold       float64
	ChatInteractionsAbove int
	StableTenure          string
	Location              string

	HotThreshold  int
	WarmThreshold int

	HotAction   string
	OtherAction string
}

func DefaultRules() Rules {
	return Rules{
		VehicleInterest:       20,
		RequestedConsultation: 20,
		SolidIncome:           10,
		HasDownPayment:        10,
		HighChatEngagement:    15,
		RepeatInventoryViews:  10,
		JobStability:          10,
		TargetLocation:        5,

		IncomeThreshold:       3000,
		ChatInteractionsAbove: 5,
		StableTenure:          "2+ years",
		Location:              "Puerto Rico",

		HotThreshold:  70,
		WarmThreshold: 40,

		HotAction:   "Llamar INMEDIATAMENTE (<5 min)",
		OtherAction: "Email sequence + Seguimiento 24h",
	}
}

type Engine struct {
	rules Rules
}

func NewEngine(rules Rules) *Engine {
	return &Engine{rules: rules}
}

type signal struct {
	present bool
	weight  int
	insight string
}

// Score is pure and deterministic.
func (e *Engine) Score(in models.LeadScoreInput) models.LeadScore {
	r := e.rules
	signals := []signal{
		{in.VehicleID != "", r.VehicleInterest, "Interés específico en unidad"},
		{in.RequestedConsultation, r.RequestedConsultation, "Solicitó consulta"},
		{in.MonthlyIncome > r.IncomeThreshold, r.SolidIncome, fmt.Sprintf("Ingreso sólido (>%s)", thousands(r.IncomeThreshold))},
		{in.HasPronto, r.HasDownPayment, "Cuenta con pronto"},
		{in.ChatInteractions > r.ChatInteractionsAbove, r.HighChatEngagement, "Alta interacción en chat"},
		{in.ViewedInventoryMultipleTimes, r.RepeatInventoryViews, "Vuelve al inventario"},
		{in.TimeAtJob == r.StableTenure, r.JobStability, "Estabilidad laboral"},
		{in.Location == r.Location, r.TargetLocation, "Local (PR)"},
	}

	score := 0
	insights := []string{}
	for _, s := range signals {
		if !s.present {
			continue
		}
		if s.weight > 0 {
			score += s.weight
		}
		insights = append(insights, s.insight)
	}
	score = clamp(score, 0, 100)

	category := e.Category(score)
	nextAction := r.OtherAction
	if category == models.LeadCategoryHot {
		nextAction = r.HotAction
	}

	return models.LeadScore{
		Score:      score,
		Category:   category,
		Insights:   insights,
		NextAction: nextAction,
		Reasoning:  fmt.Sprintf("Score basado en %d señales de compra identificadas.", len(insights)),
	}
}

func (e *Engine) Category(score int) models.LeadCategory {
	switch {
	case score >= e.rules.HotThreshold:
		return models.LeadCategoryHot
	case score >= e.rules.WarmThreshold:
		return models.LeadCategoryWarm
	default:
		return models.LeadCategoryCold
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// thousands renders 3000 as "3k".
func thousands(v float64) string {
	if v >= 1000 && int(v)%1000 == 0 {
		return fmt.Sprintf("%dk", int(v)/1000)
	}
	return fmt.Sprintf("%.0f", v)
}

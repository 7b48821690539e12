// internal/models/lead.go
package models

import "strings"

type LeadCategory string

const (
	LeadCategoryHot  LeadCategory = "HOT"
	LeadCategoryWarm LeadCategory = "WARM"
	LeadCategoryCold LeadCategory = "COLD"
)

// LeadContext is the CRM snapshot of a prospective customer. Read-only for this service.
type LeadContext struct {
	ID                string   `json:"id"`
	Type              string   `json:"type,omitempty"`
	Status            string   `json:"status,omitempty"`
	Category          string   `json:"category,omitempty"`
	FirstName         string   `json:"firstName,omitempty"`
	LastName          string   `json:"lastName,omitempty"`
	Email             string   `json:"email,omitempty"`
	Phone             string   `json:"phone,omitempty"`
	VehicleOfInterest string   `json:"vehicleOfInterest,omitempty"`
	VehicleID         string   `json:"vehicleId,omitempty"`
	Message           string   `json:"message,omitempty"`
	AIScore           *int     `json:"aiScore,omitempty"`
	AISummary         string   `json:"aiSummary,omitempty"`
	CreditScore       *int     `json:"creditScore,omitempty"`
	CreditBand        string   `json:"creditBand,omitempty"`
	DownPayment       *float64 `json:"downPayment,omitempty"`
	MonthlyIncome     float64  `json:"monthlyIncome,omitempty"`
	PreferredType     string   `json:"preferredType,omitempty"`
	Budget            float64  `json:"budget,omitempty"`
}

// DisplayName returns "First Last", or fallback when no name is known.
func (l LeadContext) DisplayName(fallback string) string {
	name := strings.TrimSpace(l.FirstName + " " + l.LastName)
	if name == "" {
		return fallback
	}
	return name
}

// LeadScoreInput carries the raw buying signals used for scoring.
type LeadScoreInput struct {
	VehicleID                    string  `json:"vehicleId,omitempty"`
	RequestedConsultation        bool    `json:"requestedConsultation,omitempty"`
	MonthlyIncome                float64 `json:"monthlyIncome,omitempty"`
	HasPronto                    bool    `json:"hasPronto,omitempty"`
	ChatInteractions             int     `json:"chatInteractions,omitempty"`
	ViewedInventoryMultipleTimes bool    `json:"viewedInventoryMultipleTimes,omitempty"`
	TimeAtJob                    string  `json:"timeAtJob,omitempty"`
	Location                     string  `json:"location,omitempty"`
}

type LeadScore struct {
	Score      int          `json:"score"`
	Category   LeadCategory `json:"category"`
	Insights   []string     `json:"insights"`
	NextAction string       `json:"nextAction"`
	Reasoning  string       `json:"reasoning"`
}

// LeadMatch pairs a lead with a vehicle it is likely to want.
type LeadMatch struct {
	LeadID    string   `json:"leadId"`
	LeadName  string   `json:"leadName"`
	VehicleID string   `json:"vehicleId"`
	Score     int      `json:"matchScore"`
	Reasons   []string `json:"reasons"`
	Reason    string   `json:"reason"`
}

// Package finance simulates auto loan offers across the dealership's partner lenders.
package finance

import (
	"math"
	"sort"

	"sales-orchestrator/internal/models"
)

const DefaultTermMonths = 72

type Lender struct {
	Name    string
	BaseAPR float64
	MaxTerm int
}

// CreditTier applies Surcharge APR points to scores at or above MinScore.
type CreditTier struct {
	Name      string
	MinScore  int
	Surcharge float64
}

// Tables is the lender registry and the credit tiers ordered from best to worst.
// The last tier catches every score below the others.
type Tables struct {
	Lenders []Lender
	Tiers   []CreditTier
}

func DefaultTables() Tables {
	return Tables{
		Lenders: []Lender{
			{Name: "Popular", BaseAPR: 6.95, MaxTerm: 84},
			{Name: "BPPR", BaseAPR: 7.25, MaxTerm: 72},
			{Name: "Oriental", BaseAPR: 7.50, MaxTerm: 84},
			{Name: "COOP", BaseAPR: 5.95, MaxTerm: 72},
		},
		Tiers: []CreditTier{
			{Name: "excellent", MinScore: 750, Surcharge: 0},
			{Name: "good", MinScore: 700, Surcharge: 1.5},
			{Name: "fair", MinScore: 650, Surcharge: 3.5},
			{Name: "poor", MinScore: 0, Surcharge: 8.0},
		},
	}
}

type Simulator struct {
	tables Tables
}

func NewSimulator(tables Tables) *Simulator {
	return &Simulator{tables: tables}
}

// Tier maps a credit score onto the tier table. Scores below every threshold land in the last tier.
func (s *Simulator) Tier(creditScore int) CreditTier {
	for _, tier := range s.tables.Tiers {
		if creditScore >= tier.MinScore {
			return tier
		}
	}
	if n := len(s.tables.Tiers); n > 0 {
		return s.tables.Tiers[n-1]
	}
	return CreditTier{Name: "unrated"}
}

// Simulate returns one offer per lender, in registry order. A term longer than a lender's
// maximum is capped to that maximum; a non-positive term uses DefaultTermMonths.
func (s *Simulator) Simulate(price, downPayment float64, termMonths, creditScore int) []models.LoanSimulation {
	if termMonths <= 0 {
		termMonths = DefaultTermMonths
	}

	tier := s.Tier(creditScore)
	loanAmount := price - downPayment

	out := make([]models.LoanSimulation, 0, len(s.tables.Lenders))
	for _, lender := range s.tables.Lenders {
		term := termMonths
		if lender.MaxTerm > 0 && term > lender.MaxTerm {
			term = lender.MaxTerm
		}

		apr := lender.BaseAPR + tier.Surcharge
		payment := MonthlyPayment(loanAmount, apr, term)

		interest := 0.0
		if loanAmount > 0 {
			interest = roundCents(math.Max(payment*float64(term)-loanAmount, 0))
		}

		out = append(out, models.LoanSimulation{
			LenderName:     lender.Name,
			TotalPrice:     price,
			DownPayment:    downPayment,
			LoanAmount:     loanAmount,
			TermMonths:     term,
			APR:            roundCents(apr),
			MonthlyPayment: payment,
			TotalInterest:  interest,
			CreditTier:     tier.Name,
		})
	}
	return out
}

// MonthlyPayment is the amortized payment P = L*r*(1+r)^n / ((1+r)^n - 1), rounded to cents.
func MonthlyPayment(loanAmount, apr float64, termMonths int) float64 {
	if loanAmount <= 0 || termMonths <= 0 {
		return 0
	}

	r := apr / 100 / 12
	n := float64(termMonths)
	if r <= 0 {
		return roundCents(loanAmount / n)
	}

	growth := math.Pow(1+r, n)
	return roundCents(loanAmount * r * growth / (growth - 1))
}

// Rank returns a copy of sims ordered by monthly payment, cheapest first.
func Rank(sims []models.LoanSimulation) []models.LoanSimulation {
	ranked := make([]models.LoanSimulation, len(sims))
	copy(ranked, sims)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].MonthlyPayment < ranked[j].MonthlyPayment
	})
	return ranked
}

// Best returns the offer with the lowest monthly payment.
func Best(sims []models.LoanSimulation) (models.LoanSimulation, bool) {
	if len(sims) == 0 {
		return models.LoanSimulation{}, false
	}
	return Rank(sims)[0], true
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

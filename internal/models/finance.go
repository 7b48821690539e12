// internal/models/finance.go
package models

type LoanSimulation struct {
	LenderName     string  `json:"lenderName"`
	TotalPrice     float64 `json:"totalPrice"`
	DownPayment    float64 `json:"downPayment"`
	LoanAmount     float64 `json:"loanAmount"`
	TermMonths     int     `json:"termMonths"`
	APR            float64 `json:"apr"`
	MonthlyPayment float64 `json:"monthlyPayment"`
	TotalInterest  float64 `json:"totalInterest"`
	CreditTier     string  `json:"creditTier"`
}

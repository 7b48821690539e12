package orchestrator

import (
	"regexp"
	"strconv"
	"strings"

	"sales-orchestrator/internal/models"
)

// creditBandScores maps CRM credit bands to a representative score.
var creditBandScores = map[string]int{
	"excellent": 760,
	"good":      720,
	"fair":      670,
	"poor":      600,
}

var dollarAmount = regexp.MustCompile(`\$\s?(\d{1,3}(?:,\d{3})+|\d+)(\.\d+)?`)

// HasPaymentMarker reports whether message mentions any of markers, case-insensitively.
func HasPaymentMarker(message string, markers []string) bool {
	lower := strings.ToLower(message)
	for _, m := range markers {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// DownPayment returns the first dollar amount in message, then the lead's recorded down payment, then 0.
func DownPayment(message string, lead models.LeadContext) float64 {
	if m := dollarAmount.FindStringSubmatch(message); m != nil {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "")+m[2], 64); err == nil {
			return v
		}
	}
	if lead.DownPayment != nil && *lead.DownPayment > 0 {
		return *lead.DownPayment
	}
	return 0
}

// CreditScore prefers the lead's numeric score, then its band, then def.
func CreditScore(lead models.LeadContext, def int) int {
	if lead.CreditScore != nil && *lead.CreditScore > 0 {
		return *lead.CreditScore
	}
	if s, ok := creditBandScores[strings.ToLower(strings.TrimSpace(lead.CreditBand))]; ok {
		return s
	}
	return def
}

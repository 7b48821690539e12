// internal/models/conversation.go
package models

const (
	RoleUser  = "user"
	RoleModel = "model"
)

type ChatMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

var (
	Sentiments  = []string{"positive", "neutral", "negative", "frustrated", "excited"}
	Intents     = []string{"inquiry", "consultation", "purchase_ready", "objection", "trade_in", "financing", "test_drive", "exit"}
	Urgencies   = []string{"low", "medium", "high"}
	BuyerStages = []string{"awareness", "consideration", "decision", "post_sale"}
)

// SalesStages is the ordered taxonomy given to the synthesis stage.
var SalesStages = []string{
	"Introduction",
	"Qualification",
	"Value Proposition",
	"Needs Analysis",
	"Solution Presentation",
	"Objection Handling",
	"Close",
	"End",
}

type Classification struct {
	Sentiment  string `json:"sentiment"`
	Intent     string `json:"intent"`
	Urgency    string `json:"urgency"`
	BuyerStage string `json:"buyerStage"`
}

// DefaultClassification is used whenever the classifier output cannot be trusted.
func DefaultClassification() Classification {
	return Classification{
		Sentiment:  "neutral",
		Intent:     "consultation",
		Urgency:    "medium",
		BuyerStage: "consideration",
	}
}

type ValidationAudit struct {
	Passed   bool   `json:"passed"`
	Feedback string `json:"feedback"`
}

type OrchestrationMetadata struct {
	Stage               string           `json:"stage"`
	Sentiment           string           `json:"sentiment"`
	Intent              string           `json:"intent"`
	Urgency             string           `json:"urgency"`
	BuyerStage          string           `json:"buyerStage"`
	NegotiationStrategy *string          `json:"negotiationStrategy,omitempty"`
	ValidationAudit     ValidationAudit  `json:"validationAudit"`
	LoanSimulations     []LoanSimulation `json:"loanSimulations,omitempty"`
}

type OrchestrationResult struct {
	Response string                `json:"response"`
	Metadata OrchestrationMetadata `json:"metadata"`
}

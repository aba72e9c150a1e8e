package tagging

// Support-nature categories the classification collaborator may assign.
var Categories = []string{
	"Technical Issue (Simple / Minor)",
	"Account or Login Issues",
	"Billing or Refund Request",
	"Escalated Complaint",
	"Product Feedback",
	"Urgent Service Disruption",
	"Customer Grievance",
	"Order or Delivery Problem",
	"Other",
}

// Sentiment labels.
const (
	SentimentPositive = "Positive"
	SentimentNegative = "Negative"
	SentimentNeutral  = "Neutral"
)

// Resolution states.
const (
	StateResolved           = "resolved"
	StateWaitingForCustomer = "waiting_for_customer"
	StateWaitingForCompany  = "waiting_for_company"
)

// Defaults applied when the collaborator is unavailable or fails for a
// single conversation.
const (
	DefaultCategory  = "Technical Issue (Simple / Minor)"
	DefaultSentiment = SentimentNeutral
)

// IsKnownCategory reports whether the label matches one of the nine
// enumerated categories.
func IsKnownCategory(label string) bool {
	for _, c := range Categories {
		if c == label {
			return true
		}
	}
	return false
}

// IsKnownSentiment reports whether the label is a valid sentiment.
func IsKnownSentiment(label string) bool {
	switch label {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}

// IsKnownResolutionState reports whether the label is a valid resolution
// state.
func IsKnownResolutionState(label string) bool {
	switch label {
	case StateResolved, StateWaitingForCustomer, StateWaitingForCompany:
		return true
	}
	return false
}

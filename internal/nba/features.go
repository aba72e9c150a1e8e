package nba

import (
	"github.com/supportloop/supportloop/internal/conversation"
)

// Features is the flattened view of a conversation that the recommendation
// prompt is built from.
type Features struct {
	CustomerID        string
	RootText          string
	Category          string
	Sentiment         string
	FrequentSentiment string
	FrequentCategory  string
	Length            int
	History           []conversation.HistoryEntry
	Resolved          bool
	ResolutionState   string
	CompanyHasReplied bool
}

// ExtractFeatures flattens the conversation fields the recommendation stage
// cares about.
func ExtractFeatures(conv *conversation.Conversation) Features {
	companyReplies := 0
	for _, entry := range conv.ChatHistory {
		if entry.ResponseType == conversation.DirectionCompany {
			companyReplies++
		}
	}

	return Features{
		CustomerID:        conv.CustomerID,
		RootText:          conv.RootText,
		Category:          conv.Category,
		Sentiment:         conv.Sentiment,
		FrequentSentiment: conv.FrequentSentiment,
		FrequentCategory:  conv.FrequentCategory,
		Length:            conv.Length(),
		History:           conv.ChatHistory,
		Resolved:          conv.Resolved,
		ResolutionState:   conv.ResolutionState,
		CompanyHasReplied: companyReplies > 0,
	}
}

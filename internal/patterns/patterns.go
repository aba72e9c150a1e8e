// Package patterns derives per-customer behavioral statistics from tagged
// conversations: the sentiment and support category a customer exhibits
// most often.
package patterns

import (
	"github.com/rs/zerolog/log"

	"github.com/supportloop/supportloop/internal/conversation"
	"github.com/supportloop/supportloop/internal/tagging"
)

// Pattern is a customer's dominant behavior across their tagged
// conversations.
type Pattern struct {
	DominantSentiment string `json:"most_frequent_sentiment"`
	DominantCategory  string `json:"most_frequent_category"`
}

// Aggregate groups conversations by customer id and computes each group's
// most frequent sentiment and category. Conversations without a customer id
// are excluded; conversations missing a tag count under the defaults. Ties
// break toward the value encountered first in iteration order, which makes
// the result deterministic for a fixed input order.
func Aggregate(convs []*conversation.Conversation) map[string]Pattern {
	grouped := make(map[string][]*conversation.Conversation)
	var customerOrder []string
	for _, conv := range convs {
		if conv.CustomerID == "" {
			continue
		}
		if _, ok := grouped[conv.CustomerID]; !ok {
			customerOrder = append(customerOrder, conv.CustomerID)
		}
		grouped[conv.CustomerID] = append(grouped[conv.CustomerID], conv)
	}

	result := make(map[string]Pattern, len(grouped))
	for _, customerID := range customerOrder {
		group := grouped[customerID]

		sentiments := make([]string, 0, len(group))
		categories := make([]string, 0, len(group))
		for _, conv := range group {
			sentiment := conv.Sentiment
			if sentiment == "" {
				sentiment = tagging.DefaultSentiment
			}
			category := conv.Category
			if category == "" {
				category = tagging.DefaultCategory
			}
			sentiments = append(sentiments, sentiment)
			categories = append(categories, category)
		}

		result[customerID] = Pattern{
			DominantSentiment: mostFrequent(sentiments),
			DominantCategory:  mostFrequent(categories),
		}
	}

	log.Info().Int("customers", len(result)).Msg("calculated customer patterns")
	return result
}

// Apply writes pattern snapshots onto the given conversations. A customer
// with no aggregate falls back to the conversation's own tags.
func Apply(convs []*conversation.Conversation, byCustomer map[string]Pattern) {
	for _, conv := range convs {
		if p, ok := byCustomer[conv.CustomerID]; ok && conv.CustomerID != "" {
			conv.FrequentSentiment = p.DominantSentiment
			conv.FrequentCategory = p.DominantCategory
			continue
		}
		conv.FrequentSentiment = conv.Sentiment
		if conv.FrequentSentiment == "" {
			conv.FrequentSentiment = tagging.DefaultSentiment
		}
		conv.FrequentCategory = conv.Category
		if conv.FrequentCategory == "" {
			conv.FrequentCategory = tagging.DefaultCategory
		}
	}
}

// mostFrequent returns the value with the highest count, breaking ties by
// first encounter.
func mostFrequent(values []string) string {
	counts := make(map[string]int, len(values))
	var order []string
	for _, v := range values {
		if _, ok := counts[v]; !ok {
			order = append(order, v)
		}
		counts[v]++
	}

	best := ""
	bestCount := 0
	for _, v := range order {
		if counts[v] > bestCount {
			best = v
			bestCount = counts[v]
		}
	}
	return best
}

package nba

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/supportloop/supportloop/internal/conversation"
	"github.com/supportloop/supportloop/internal/llm"
	"github.com/supportloop/supportloop/internal/logging"
)

// Evaluation scores one recommended response from the customer's point of
// view.
type Evaluation struct {
	CustomerID      string `json:"customer_id"`
	UsefulnessScore int    `json:"usefulness_score"`
	Evaluation      string `json:"evaluation"`
}

// Evaluator scores recommendations against their conversation context.
type Evaluator struct {
	client llm.Client
	runLog *logging.RunLogger
}

// NewEvaluator creates the evaluator. With a nil client every evaluation is
// skipped.
func NewEvaluator(client llm.Client, runLog *logging.RunLogger) *Evaluator {
	return &Evaluator{client: client, runLog: runLog}
}

// EvaluateAll scores each recommendation. Recommendations whose evaluation
// call fails are skipped, not defaulted: a fabricated score would be worse
// than a missing one.
func (e *Evaluator) EvaluateAll(ctx context.Context, recs []Recommendation, byCustomer map[string]*conversation.Conversation) []Evaluation {
	if e.client == nil {
		log.Info().Msg("no collaborator configured, skipping recommendation evaluation")
		return nil
	}

	evals := make([]Evaluation, 0, len(recs))
	for _, rec := range recs {
		conv := byCustomer[rec.CustomerID]
		if conv == nil {
			log.Warn().Str("customer", rec.CustomerID).Msg("no conversation found for recommendation")
		}

		eval, err := e.evaluateOne(ctx, rec, conv)
		if err != nil {
			e.runLog.LogError("evaluation", err)
			log.Warn().Err(err).Str("customer", rec.CustomerID).Msg("evaluation failed, skipping")
			continue
		}
		evals = append(evals, eval)
	}
	return evals
}

func (e *Evaluator) evaluateOne(ctx context.Context, rec Recommendation, conv *conversation.Conversation) (Evaluation, error) {
	prompt := evaluationPrompt(rec, conv)
	e.runLog.LogPrompt("evaluation", rec.CustomerID, prompt)

	raw, err := e.client.Complete(ctx, prompt)
	if err != nil {
		return Evaluation{}, fmt.Errorf("evaluation call failed: %w", err)
	}
	e.runLog.LogResponse("evaluation", rec.CustomerID, raw)

	var eval Evaluation
	if err := llm.DecodeObject(raw, &eval); err != nil {
		return Evaluation{}, fmt.Errorf("unparseable evaluation response: %w", err)
	}
	if eval.CustomerID == "" {
		eval.CustomerID = rec.CustomerID
	}
	if eval.UsefulnessScore < 1 || eval.UsefulnessScore > 5 {
		return Evaluation{}, fmt.Errorf("usefulness score %d outside 1-5", eval.UsefulnessScore)
	}
	return eval, nil
}

func evaluationPrompt(rec Recommendation, conv *conversation.Conversation) string {
	var b strings.Builder

	b.WriteString("Customer Service Interaction Analysis:\n\n")
	fmt.Fprintf(&b, "Customer ID: %s\n", rec.CustomerID)
	fmt.Fprintf(&b, "Channel: %s\n", rec.Channel)
	fmt.Fprintf(&b, "Issue Status: %s\n", rec.IssueStatus)
	if conv != nil {
		fmt.Fprintf(&b, "Nature of Support: %s\n", conv.Category)
		fmt.Fprintf(&b, "Customer Sentiment: %s\n", conv.Sentiment)
		fmt.Fprintf(&b, "Opening Message: %s\n", conv.RootText)
		b.WriteString("\nFull Conversation History:\n")
		b.WriteString(formatHistory(conv.ChatHistory))
	} else {
		b.WriteString("\nFull Conversation History:\nNo chat history available.\n")
	}

	fmt.Fprintf(&b, "\nCompany's Final Response:\n%s\n", rec.Message)
	fmt.Fprintf(&b, "\nCompany's Reasoning for Response:\n%s\n", rec.Reasoning)
	fmt.Fprintf(&b, "\nResponse Timestamp: %s\n\n", rec.SendTime)

	b.WriteString("Task: Evaluate the usefulness of the company's response from a customer perspective, considering the full conversation context.\n\n")
	b.WriteString("Evaluation Criteria:\n")
	b.WriteString("1. Relevance: does the response directly address the customer's issue?\n")
	b.WriteString("2. Actionability: does it provide clear next steps or solutions?\n")
	b.WriteString("3. Empathy: does it show understanding of the customer's situation?\n")
	b.WriteString("4. Timeliness: is the response appropriate for the urgency and length of the conversation?\n")
	b.WriteString("5. Completeness: does it provide enough information to resolve the issue or move it forward?\n")
	b.WriteString("6. Context awareness: does the response acknowledge the conversation history?\n\n")

	b.WriteString("Scoring System:\n")
	b.WriteString("- 5: Excellent - fully addresses the issue with clear next steps and empathy for the history\n")
	b.WriteString("- 4: Good - addresses most aspects of the issue, acknowledges the context\n")
	b.WriteString("- 3: Adequate - partially addresses the issue, some awareness of context\n")
	b.WriteString("- 2: Poor - minimal or unclear response, ignores the conversation history\n")
	b.WriteString("- 1: Very Poor - does not address the issue or makes it worse\n\n")

	b.WriteString("Respond in this exact JSON format:\n")
	b.WriteString("{\n")
	fmt.Fprintf(&b, "    \"customer_id\": %q,\n", rec.CustomerID)
	b.WriteString("    \"usefulness_score\": 1-5,\n")
	b.WriteString("    \"evaluation\": \"brief summary of evaluation\"\n")
	b.WriteString("}\n")
	return b.String()
}

package nba

import (
	"fmt"
	"strings"

	"github.com/supportloop/supportloop/internal/conversation"
)

func recommendationPrompt(f Features) string {
	var b strings.Builder

	b.WriteString("Customer Support Analysis:\n")
	fmt.Fprintf(&b, "- Customer ID: %s\n", f.CustomerID)
	fmt.Fprintf(&b, "- Opening Message: %s\n", f.RootText)
	fmt.Fprintf(&b, "- Nature of Support: %s\n", f.Category)
	fmt.Fprintf(&b, "- Sentiment: %s\n", f.Sentiment)
	fmt.Fprintf(&b, "- Most Frequent Sentiment: %s\n", f.FrequentSentiment)
	fmt.Fprintf(&b, "- Most Frequent Support Type: %s\n", f.FrequentCategory)
	fmt.Fprintf(&b, "- Conversation Length: %d messages\n\n", f.Length)

	b.WriteString("Chat History:\n")
	b.WriteString(formatHistory(f.History))

	b.WriteString("\nAvailable Channels:\n")
	b.WriteString("1. twitter_dm_reply - Direct message on Twitter\n")
	b.WriteString("2. scheduling_phone_call - Schedule a phone call\n")
	b.WriteString("3. email_reply - Send an email response\n\n")
	b.WriteString("Task: Recommend the best next action for this customer who is waiting for a company reply.\n\n")

	b.WriteString("Based on the customer's issue, sentiment, conversation context, and historical behavior patterns, recommend the best next action with the objective of maximizing issue resolution.\n\n")
	b.WriteString("Consider:\n")
	b.WriteString("- Customer sentiment (lead with empathy, acknowledge frustration)\n")
	b.WriteString("- Nature of support (technical issues often need detailed explanations)\n")
	b.WriteString("- Conversation length (apologize for extended interaction, escalate proactively)\n")
	b.WriteString("- Customer behavior patterns:\n")
	fmt.Fprintf(&b, "  * Most frequent sentiment: %s - indicates their typical emotional state\n", f.FrequentSentiment)
	fmt.Fprintf(&b, "  * Most frequent support type: %s - shows their typical issue patterns\n", f.FrequentCategory)
	b.WriteString("  * If the customer has consistently negative sentiment, prioritize empathy and escalation\n")
	b.WriteString("  * If the customer frequently has the same support type, consider proactive solutions and extra patience\n\n")

	b.WriteString("Channel selection rules:\n")
	b.WriteString("- email_reply: conversation of 6 or fewer messages for account issues, billing issues, security issues, detailed explanations, or private issues\n")
	b.WriteString("- twitter_dm_reply: conversation of 6 or fewer messages for quick issues, non-technical problems, product feedback, and grievances needing empathy\n")
	b.WriteString("- scheduling_phone_call: complex issues, urgent disruptions, escalated complaints, conversations of 7 or more messages, or customers with consistently negative sentiment patterns\n\n")

	b.WriteString("send_time guidance:\n")
	b.WriteString("- 1-2 hours: urgent issues, escalated complaints, conversations of 7 or more messages, consistently negative customers\n")
	b.WriteString("- 4-6 hours: standard negative sentiment cases, technical issues\n")
	b.WriteString("- 6-8 hours: simple issues, neutral sentiment\n\n")

	b.WriteString("The message should be empathetic, specific to their issue, and provide clear next steps.\n\n")

	b.WriteString("After the message is sent the issue status becomes one of:\n")
	b.WriteString("- \"resolved\": the issue is completely resolved after this action\n")
	b.WriteString("- \"pending_customer_reply\": the customer needs to provide more information or take action\n")
	b.WriteString("- \"escalated\": the issue requires escalation to a specialist team\n")
	b.WriteString("- \"scheduled_followup\": there is a scheduled follow-up call or meeting\n")
	b.WriteString("- \"waiting_for_third_party\": the issue depends on an external party\n\n")

	b.WriteString("Respond in this exact JSON format:\n")
	b.WriteString("{\n")
	fmt.Fprintf(&b, "    \"customer_id\": %q,\n", f.CustomerID)
	b.WriteString("    \"channel\": \"twitter_dm_reply|scheduling_phone_call|email_reply\",\n")
	b.WriteString("    \"send_time\": \"2025-01-XXTXX:XX:00Z\",\n")
	b.WriteString("    \"message\": \"string\",\n")
	b.WriteString("    \"reasoning\": \"string explaining why this channel/time/message is best considering customer patterns\",\n")
	b.WriteString("    \"issue_status\": \"resolved|pending_customer_reply|escalated|in_progress|scheduled_followup|waiting_for_third_party|pending_verification\"\n")
	b.WriteString("}\n")
	return b.String()
}

// formatHistory renders the chat history as numbered, timestamped lines.
func formatHistory(history []conversation.HistoryEntry) string {
	if len(history) == 0 {
		return "No chat history available.\n"
	}
	var b strings.Builder
	for i, entry := range history {
		fmt.Fprintf(&b, "%d. [%s] %s: %s\n", i+1, entry.ResponseType, entry.Response.CreatedAt, entry.Response.Text)
	}
	return b.String()
}

package tagging

import (
	"fmt"
	"strings"

	"github.com/supportloop/supportloop/internal/conversation"
)

// customerContext joins the root text with every customer-authored message,
// which is the context both the category and sentiment prompts work from.
func customerContext(conv *conversation.Conversation) string {
	parts := []string{conv.RootText}
	parts = append(parts, conv.CustomerMessages()...)
	return strings.Join(parts, "\n")
}

func categoryPrompt(conv *conversation.Conversation) string {
	var b strings.Builder

	b.WriteString("Analyze this customer service conversation and classify the nature of support request into ONE of these categories:\n\n")
	b.WriteString("1. Technical Issue (Simple / Minor)\n")
	b.WriteString("Minor bugs, product/app glitches, or usage questions that don't block overall functionality.\n\n")
	b.WriteString("2. Account or Login Issues\n")
	b.WriteString("Problems related to account access, login failures, verification, or password resets.\n\n")
	b.WriteString("3. Billing or Refund Request\n")
	b.WriteString("Payment problems, unauthorized charges, refund demands, or subscription issues.\n\n")
	b.WriteString("4. Escalated Complaint\n")
	b.WriteString("Highly dissatisfied tone, demand for escalation or manager, repeated failure, or public outrage.\n\n")
	b.WriteString("5. Product Feedback\n")
	b.WriteString("General praise, feature requests, or improvement suggestions - not necessarily a support issue.\n\n")
	b.WriteString("6. Urgent Service Disruption\n")
	b.WriteString("Critical service failure or outage (e.g. no internet, website down, flight canceled).\n\n")
	b.WriteString("7. Customer Grievance\n")
	b.WriteString("Expression of dissatisfaction, sarcasm, or emotional frustration - without a clear technical or billing issue.\n\n")
	b.WriteString("8. Order or Delivery Problem\n")
	b.WriteString("The customer is complaining about a wrong, missing, or incomplete order, or delivery issues.\n\n")
	b.WriteString("9. Other\n")
	b.WriteString("Anything unrelated to the above - jokes, off-topic, marketing comments, or ambiguous sarcasm.\n\n")

	fmt.Fprintf(&b, "Customer conversation:\n%s\n\n", customerContext(conv))
	b.WriteString("Respond with ONLY the category name (e.g., \"Technical Issue (Simple / Minor)\").\n")
	return b.String()
}

func sentimentPrompt(conv *conversation.Conversation) string {
	var b strings.Builder

	b.WriteString("Analyze the overall sentiment of this customer in their conversation with customer service.\n\n")
	b.WriteString("Consider the customer's tone, language, satisfaction level, and emotional state throughout the conversation.\n\n")
	fmt.Fprintf(&b, "Customer messages:\n%s\n\n", customerContext(conv))
	b.WriteString("Classify the overall customer sentiment as ONE of these categories:\n")
	b.WriteString("- Positive: Customer is satisfied, pleased, grateful, or positive\n")
	b.WriteString("- Negative: Customer is frustrated, angry, disappointed, upset, or negative\n")
	b.WriteString("- Neutral: Customer is matter-of-fact, professional, or shows mixed/unclear emotions\n\n")
	b.WriteString("Respond with ONLY one word: \"Positive\", \"Negative\", or \"Neutral\".\n")
	return b.String()
}

func resolutionPrompt(conv *conversation.Conversation) string {
	var b strings.Builder

	b.WriteString("Analyze this customer service conversation and determine its current status.\n\n")
	b.WriteString("Conversation:\n")
	for _, entry := range conv.ChatHistory {
		fmt.Fprintf(&b, "%s: %s\n", entry.ResponseType, entry.Response.Text)
	}
	b.WriteString("\nClassify the conversation status into ONE of these categories:\n\n")
	b.WriteString("1. \"resolved\" - The issue has been successfully resolved: the customer confirms the problem is fixed, thanks the company, or both parties agree on closure.\n\n")
	b.WriteString("2. \"waiting_for_customer\" - The company sent the LAST message and is waiting for the customer: it asked questions, gave instructions, or offered help the customer has not answered.\n\n")
	b.WriteString("3. \"waiting_for_company\" - The customer sent the LAST message and is waiting for the company: open questions, unaddressed requests, or unresolved frustration.\n\n")
	b.WriteString("Respond with ONLY one word: \"resolved\", \"waiting_for_customer\", or \"waiting_for_company\"\n")
	return b.String()
}

// Package nba produces next-best-action recommendations for customers who
// are waiting on a company reply, and can score how useful a recommended
// reply would be from the customer's perspective.
package nba

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/supportloop/supportloop/internal/conversation"
	"github.com/supportloop/supportloop/internal/llm"
	"github.com/supportloop/supportloop/internal/logging"
	"github.com/supportloop/supportloop/internal/tagging"
)

// Outreach channels a recommendation may select.
const (
	ChannelTwitterDM = "twitter_dm_reply"
	ChannelPhoneCall = "scheduling_phone_call"
	ChannelEmail     = "email_reply"
)

// Issue states a recommendation may predict for after the message is sent.
const (
	StatusResolved             = "resolved"
	StatusPendingCustomerReply = "pending_customer_reply"
	StatusEscalated            = "escalated"
	StatusInProgress           = "in_progress"
	StatusScheduledFollowup    = "scheduled_followup"
	StatusWaitingForThirdParty = "waiting_for_third_party"
	StatusPendingVerification  = "pending_verification"
)

// DefaultMessage is the outreach text used when no collaborator is
// available or a recommendation call fails.
const DefaultMessage = "Thank you for reaching out. We're here to help resolve your issue."

// Recommendation is the concrete next action for one waiting customer.
type Recommendation struct {
	CustomerID  string `json:"customer_id"`
	Channel     string `json:"channel"`
	SendTime    string `json:"send_time"`
	Message     string `json:"message"`
	Reasoning   string `json:"reasoning"`
	IssueStatus string `json:"issue_status"`
}

// DefaultRecommendation is the deterministic fallback for a customer.
func DefaultRecommendation(customerID string, now time.Time) Recommendation {
	return Recommendation{
		CustomerID:  customerID,
		Channel:     ChannelTwitterDM,
		SendTime:    now.UTC().Format("2006-01-02T15:04:05Z"),
		Message:     DefaultMessage,
		Reasoning:   "Default recommendation - collaborator not available",
		IssueStatus: StatusPendingCustomerReply,
	}
}

// Recommender dispatches recommendation calls for eligible conversations.
type Recommender struct {
	client llm.Client // nil means degraded mode: defaults only
	runLog *logging.RunLogger
	now    func() time.Time
}

// NewRecommender creates the dispatcher. client may be nil.
func NewRecommender(client llm.Client, runLog *logging.RunLogger) *Recommender {
	return &Recommender{client: client, runLog: runLog, now: time.Now}
}

// Recommend produces one recommendation per eligible conversation, in input
// order. Eligible means the enrichment stage left the conversation in the
// waiting_for_company state. Per-conversation failures degrade to the
// default recommendation; the batch always completes.
func (r *Recommender) Recommend(ctx context.Context, convs []*conversation.Conversation) []Recommendation {
	var eligible []*conversation.Conversation
	for _, conv := range convs {
		if conv.ResolutionState == tagging.StateWaitingForCompany {
			eligible = append(eligible, conv)
		}
	}
	log.Info().Int("eligible", len(eligible)).Int("total", len(convs)).
		Msg("customers waiting for company replies")

	recs := make([]Recommendation, 0, len(eligible))
	for _, conv := range eligible {
		recs = append(recs, r.recommendOne(ctx, ExtractFeatures(conv)))
	}
	return recs
}

func (r *Recommender) recommendOne(ctx context.Context, f Features) Recommendation {
	fallback := DefaultRecommendation(f.CustomerID, r.now())
	if r.client == nil {
		return fallback
	}

	prompt := recommendationPrompt(f)
	r.runLog.LogPrompt("recommendation", f.CustomerID, prompt)

	raw, err := r.client.Complete(ctx, prompt)
	if err != nil {
		r.runLog.LogError("recommendation", err)
		log.Warn().Err(err).Str("customer", f.CustomerID).Msg("recommendation failed, using default")
		return fallback
	}
	r.runLog.LogResponse("recommendation", f.CustomerID, raw)

	var rec Recommendation
	if err := llm.DecodeObject(raw, &rec); err != nil {
		r.runLog.LogError("recommendation", err)
		log.Warn().Err(err).Str("customer", f.CustomerID).Msg("unparseable recommendation, using default")
		return fallback
	}

	// Partial objects keep whatever fields parsed; holes fall back to the
	// deterministic defaults.
	if rec.CustomerID == "" {
		rec.CustomerID = f.CustomerID
	}
	if rec.Channel == "" {
		rec.Channel = fallback.Channel
	}
	if rec.SendTime == "" {
		rec.SendTime = fallback.SendTime
	}
	if rec.Message == "" {
		rec.Message = fallback.Message
	}
	if rec.IssueStatus == "" {
		rec.IssueStatus = fallback.IssueStatus
	}
	return rec
}

// Package tagging is the enrichment dispatcher: it consults the
// classification collaborator for each unsettled conversation and writes
// the category, sentiment and resolution-state tags back onto it.
//
// Collaborator failures are recovered per conversation with deterministic
// defaults; a missing collaborator entirely (nil client) is the designed
// degraded mode, not an error. One bad conversation never aborts a batch.
package tagging

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/supportloop/supportloop/internal/conversation"
	"github.com/supportloop/supportloop/internal/llm"
	"github.com/supportloop/supportloop/internal/logging"
)

// Enricher dispatches classification calls for unprocessed conversations.
type Enricher struct {
	client llm.Client // nil means degraded mode: defaults only
	runLog *logging.RunLogger
}

// NewEnricher creates the dispatcher. client may be nil.
func NewEnricher(client llm.Client, runLog *logging.RunLogger) *Enricher {
	return &Enricher{client: client, runLog: runLog}
}

// Enrich tags every conversation in place. It never returns an error:
// per-conversation failures degrade to defaults and the run continues.
func (e *Enricher) Enrich(ctx context.Context, convs []*conversation.Conversation) {
	for _, conv := range convs {
		conv.Category = e.classifyCategory(ctx, conv)
		conv.Sentiment = e.classifySentiment(ctx, conv)

		state := e.classifyResolution(ctx, conv)
		conv.ResolutionState = state
		conv.Resolved = state == StateResolved
	}
	log.Info().Int("conversations", len(convs)).Msg("enrichment complete")
}

func (e *Enricher) classifyCategory(ctx context.Context, conv *conversation.Conversation) string {
	if e.client == nil {
		return DefaultCategory
	}

	prompt := categoryPrompt(conv)
	e.runLog.LogPrompt("category", conv.RootID, prompt)

	raw, err := e.client.Complete(ctx, prompt)
	if err != nil {
		e.runLog.LogError("category", err)
		log.Warn().Err(err).Str("conversation", conv.RootID).Msg("category classification failed, using default")
		return DefaultCategory
	}
	e.runLog.LogResponse("category", conv.RootID, raw)

	label := llm.NormalizeLabel(raw)
	if !IsKnownCategory(label) {
		// Unrecognized labels are surfaced but kept; the enumerated set is a
		// guide for the collaborator, not a hard schema.
		log.Warn().Str("conversation", conv.RootID).Str("label", label).Msg("unexpected category label from collaborator")
	}
	return label
}

func (e *Enricher) classifySentiment(ctx context.Context, conv *conversation.Conversation) string {
	if e.client == nil {
		return DefaultSentiment
	}

	prompt := sentimentPrompt(conv)
	e.runLog.LogPrompt("sentiment", conv.RootID, prompt)

	raw, err := e.client.Complete(ctx, prompt)
	if err != nil {
		e.runLog.LogError("sentiment", err)
		log.Warn().Err(err).Str("conversation", conv.RootID).Msg("sentiment analysis failed, using default")
		return DefaultSentiment
	}
	e.runLog.LogResponse("sentiment", conv.RootID, raw)

	label := llm.NormalizeLabel(raw)
	if !IsKnownSentiment(label) {
		log.Warn().Str("conversation", conv.RootID).Str("label", label).Msg("unexpected sentiment label from collaborator")
	}
	return label
}

// classifyResolution returns the resolution state, or empty when it cannot
// be determined; an empty state is left unresolved rather than defaulted.
func (e *Enricher) classifyResolution(ctx context.Context, conv *conversation.Conversation) string {
	if len(conv.ChatHistory) == 0 {
		return StateWaitingForCompany
	}
	if e.client == nil {
		return ""
	}

	prompt := resolutionPrompt(conv)
	e.runLog.LogPrompt("resolution", conv.RootID, prompt)

	raw, err := e.client.Complete(ctx, prompt)
	if err != nil {
		e.runLog.LogError("resolution", err)
		log.Warn().Err(err).Str("conversation", conv.RootID).Msg("resolution analysis failed, leaving unresolved")
		return ""
	}
	e.runLog.LogResponse("resolution", conv.RootID, raw)

	label := llm.NormalizeLabel(raw)
	if !IsKnownResolutionState(label) {
		log.Warn().Str("conversation", conv.RootID).Str("label", label).Msg("unexpected resolution label from collaborator")
	}
	return label
}

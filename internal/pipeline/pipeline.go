// Package pipeline wires the run: ingest the message table, reconstruct
// and merge conversations, enrich the unsettled ones, refresh customer
// patterns, dispatch recommendations, persist the store and export the
// results.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/supportloop/supportloop/internal/conversation"
	"github.com/supportloop/supportloop/internal/export"
	"github.com/supportloop/supportloop/internal/ingest"
	"github.com/supportloop/supportloop/internal/llm"
	"github.com/supportloop/supportloop/internal/logging"
	"github.com/supportloop/supportloop/internal/nba"
	"github.com/supportloop/supportloop/internal/patterns"
	"github.com/supportloop/supportloop/internal/store"
	"github.com/supportloop/supportloop/internal/tagging"
)

// Options configures a single pipeline run.
type Options struct {
	InputCSV  string
	StorePath string
	ExportCSV string
	RunLogDir string

	// Evaluate runs the usefulness scorer over this run's recommendations
	// and writes the scores next to the export as JSON.
	Evaluate bool
	EvalJSON string

	// Client may be nil; the pipeline then runs in degraded mode with
	// deterministic default tags and recommendations.
	Client llm.Client
}

// Report summarizes what one run did.
type Report struct {
	RunID           string                  `json:"run_id"`
	MessagesLoaded  int                     `json:"messages_loaded"`
	Merge           conversation.MergeStats `json:"merge"`
	Tagged          int                     `json:"tagged"`
	Customers       int                     `json:"customers"`
	Recommendations int                     `json:"recommendations"`
	Evaluations     int                     `json:"evaluations"`
}

// Run executes the full batch. Record-level failures are recovered inside
// the stages; only ingestion, store and export I/O failures abort the run.
func Run(ctx context.Context, opts Options) (*Report, error) {
	runID := uuid.NewString()[:8]
	report := &Report{RunID: runID}

	runLog, err := logging.StartRun(opts.RunLogDir, runID)
	if err != nil {
		// File tracing is a convenience, not a requirement.
		log.Warn().Err(err).Msg("run log disabled")
	}
	defer runLog.Close()

	runLog.Section("ingest")
	messages, err := ingest.ReadMessages(opts.InputCSV)
	if err != nil {
		return nil, err
	}
	report.MessagesLoaded = len(messages)
	runLog.Logf("loaded %d messages from %s", len(messages), opts.InputCSV)

	st := store.New(opts.StorePath)
	state, err := st.Load()
	if err != nil {
		return nil, err
	}

	runLog.Section("reconstruct")
	seen := state.SeenSet()
	reconstructor := conversation.NewReconstructor(messages)
	merged, stats := reconstructor.Merge(state.Conversations, seen)
	report.Merge = stats
	runLog.Logf("merge: %d new, %d extended, %d appended, %d previously seen, %d duplicates dropped",
		stats.NewConversations, stats.ExtendedConversations, stats.MessagesAppended, stats.PreviouslySeen, stats.DuplicatesDropped)
	log.Info().
		Int("new", stats.NewConversations).
		Int("extended", stats.ExtendedConversations).
		Int("appended", stats.MessagesAppended).
		Int("previously_seen", stats.PreviouslySeen).
		Int("duplicates", stats.DuplicatesDropped).
		Msg("reconstructed conversations")

	var unsettled []*conversation.Conversation
	for _, conv := range merged {
		if !conv.Settled {
			unsettled = append(unsettled, conv)
		}
	}
	report.Tagged = len(unsettled)

	runLog.Section("enrich")
	enricher := tagging.NewEnricher(opts.Client, runLog)
	enricher.Enrich(ctx, unsettled)

	runLog.Section("patterns")
	// Patterns are computed over the full known history, not just this
	// run's batch; the snapshot lands only on the conversations tagged now.
	byCustomerPattern := patterns.Aggregate(merged)
	patterns.Apply(unsettled, byCustomerPattern)
	report.Customers = len(byCustomerPattern)

	runLog.Section("recommend")
	recommender := nba.NewRecommender(opts.Client, runLog)
	recs := recommender.Recommend(ctx, unsettled)
	report.Recommendations = len(recs)
	runLog.Logf("generated %d recommendations", len(recs))

	byCustomer := indexByCustomer(merged)

	if opts.Evaluate {
		runLog.Section("evaluate")
		evaluator := nba.NewEvaluator(opts.Client, runLog)
		evals := evaluator.EvaluateAll(ctx, recs, byCustomer)
		report.Evaluations = len(evals)
		if opts.EvalJSON != "" && len(evals) > 0 {
			if err := writeEvaluations(opts.EvalJSON, evals); err != nil {
				return nil, err
			}
		}
	}

	// Export before the settled flip is persisted: if the export cannot be
	// written, the batch stays unsettled and the next run regenerates it.
	runLog.Section("export")
	if err := export.WriteRecommendations(opts.ExportCSV, recs, byCustomer); err != nil {
		return nil, err
	}

	for _, conv := range unsettled {
		conv.Settled = true
	}

	runLog.Section("persist")
	state.Conversations = merged
	state.SetSeen(seen)
	if err := st.Save(state); err != nil {
		return nil, err
	}

	return report, nil
}

// Ingest runs only the reconstruction half of the pipeline: load the
// message table, merge it into the store and persist. Merged conversations
// stay unsettled, so the next full run picks them up for enrichment.
func Ingest(opts Options) (*Report, error) {
	report := &Report{}

	messages, err := ingest.ReadMessages(opts.InputCSV)
	if err != nil {
		return nil, err
	}
	report.MessagesLoaded = len(messages)

	st := store.New(opts.StorePath)
	state, err := st.Load()
	if err != nil {
		return nil, err
	}

	seen := state.SeenSet()
	reconstructor := conversation.NewReconstructor(messages)
	merged, stats := reconstructor.Merge(state.Conversations, seen)
	report.Merge = stats

	state.Conversations = merged
	state.SetSeen(seen)
	if err := st.Save(state); err != nil {
		return nil, err
	}
	return report, nil
}

// indexByCustomer maps customer id to that customer's conversation. When a
// customer has several conversations the most recently merged one wins,
// matching the export join semantics.
func indexByCustomer(convs []*conversation.Conversation) map[string]*conversation.Conversation {
	byCustomer := make(map[string]*conversation.Conversation)
	for _, conv := range convs {
		if conv.CustomerID != "" {
			byCustomer[conv.CustomerID] = conv
		}
	}
	return byCustomer
}

func writeEvaluations(path string, evals []nba.Evaluation) error {
	data, err := json.MarshalIndent(evals, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode evaluations: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write evaluations: %w", err)
	}
	log.Info().Int("evaluations", len(evals)).Str("path", path).Msg("saved recommendation evaluations")
	return nil
}

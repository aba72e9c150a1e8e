// Package export writes the run's recommendations to CSV, joining each
// recommendation with its conversation's chat log.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/supportloop/supportloop/internal/conversation"
	"github.com/supportloop/supportloop/internal/nba"
)

var header = []string{"customer_id", "channel", "send_time", "message", "reasoning", "issue_status", "chat_log"}

// WriteRecommendations writes recs to a CSV file at path, creating parent
// directories as needed. The file is replaced wholesale on every run.
func WriteRecommendations(path string, recs []nba.Recommendation, byCustomer map[string]*conversation.Conversation) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	if err := Write(f, recs, byCustomer); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Info().Int("records", len(recs)).Str("path", path).Msg("exported recommendations")
	return nil
}

// Write renders recs as CSV rows on w. The chat_log column holds the full
// conversation transcript with the recommended message appended as a
// trailing "[Company - RECOMMENDED]" line.
func Write(w io.Writer, recs []nba.Recommendation, byCustomer map[string]*conversation.Conversation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, rec := range recs {
		conv := byCustomer[rec.CustomerID]
		if conv == nil {
			log.Warn().Str("customer", rec.CustomerID).Msg("no conversation found for exported recommendation")
		}

		row := []string{
			rec.CustomerID,
			rec.Channel,
			rec.SendTime,
			rec.Message,
			rec.Reasoning,
			rec.IssueStatus,
			chatLog(conv, rec.Message),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row for customer %s: %w", rec.CustomerID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// chatLog renders the conversation transcript plus the recommended outreach
// message. A missing conversation yields an empty log.
func chatLog(conv *conversation.Conversation, recommended string) string {
	if conv == nil || len(conv.ChatHistory) == 0 {
		return ""
	}

	lines := make([]string, 0, len(conv.ChatHistory)+1)
	for _, entry := range conv.ChatHistory {
		lines = append(lines, fmt.Sprintf("[%s]: %s", entry.ResponseType, entry.Response.Text))
	}
	lines = append(lines, fmt.Sprintf("[Company - RECOMMENDED]: %s", recommended))
	return strings.Join(lines, "\n")
}

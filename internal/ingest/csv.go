// Package ingest reads the flat message table from CSV. The source is a
// twcs-style export: one row per post with an id, an optional parent
// reference, the author handle, an inbound flag and a raw timestamp.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/supportloop/supportloop/internal/conversation"
)

// Column aliases accepted in the header row. The twcs dataset uses the
// tweet_* names; re-exports of the store commonly use the message_* names.
var columnAliases = map[string][]string{
	"id":         {"tweet_id", "message_id", "id"},
	"parent_id":  {"in_response_to_tweet_id", "parent_id", "parent_message_id"},
	"author_id":  {"author_id", "author"},
	"inbound":    {"inbound"},
	"text":       {"text", "message"},
	"created_at": {"created_at", "timestamp"},
}

// ReadMessages loads the message table from path.
func ReadMessages(path string) ([]conversation.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open message table: %w", err)
	}
	defer f.Close()

	msgs, err := ParseMessages(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return msgs, nil
}

// ParseMessages reads the CSV message table from r. Rows missing an id are
// dropped with a warning; a malformed row never aborts the run. Everything
// outside the header is treated as opaque strings, including timestamps.
func ParseMessages(r io.Reader) ([]conversation.Message, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	idx, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	var msgs []conversation.Message
	row := 1
	dropped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			log.Warn().Err(err).Int("row", row).Msg("skipping malformed row")
			dropped++
			continue
		}

		msg := conversation.Message{
			ID:        field(record, idx["id"]),
			ParentID:  field(record, idx["parent_id"]),
			AuthorID:  field(record, idx["author_id"]),
			Text:      field(record, idx["text"]),
			CreatedAt: field(record, idx["created_at"]),
		}
		if msg.ID == "" {
			log.Warn().Int("row", row).Msg("skipping row without a message id")
			dropped++
			continue
		}

		msg.Direction = conversation.DirectionCompany
		if parseInbound(field(record, idx["inbound"])) {
			msg.Direction = conversation.DirectionCustomer
		}
		msgs = append(msgs, msg)
	}

	log.Info().Int("messages", len(msgs)).Int("dropped", dropped).Msg("loaded message table")
	return msgs, nil
}

// indexColumns maps each logical column to its position in the header,
// trying the aliases in order. A UTF-8 BOM on the first header cell is
// stripped before matching.
func indexColumns(header []string) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		positions[strings.ToLower(strings.TrimSpace(name))] = i
	}

	idx := make(map[string]int, len(columnAliases))
	for logical, aliases := range columnAliases {
		idx[logical] = -1
		for _, alias := range aliases {
			if pos, ok := positions[alias]; ok {
				idx[logical] = pos
				break
			}
		}
	}

	for _, required := range []string{"id", "text"} {
		if idx[required] == -1 {
			return nil, fmt.Errorf("missing required column %q (accepted: %s)",
				required, strings.Join(columnAliases[required], ", "))
		}
	}
	return idx, nil
}

func field(record []string, pos int) string {
	if pos < 0 || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}

// parseInbound interprets the inbound flag; the twcs export uses
// True/False strings. Unparseable or absent values default to inbound,
// which keeps an ambiguous post on the customer side.
func parseInbound(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "false", "f", "0", "no":
		return false
	}
	return true
}

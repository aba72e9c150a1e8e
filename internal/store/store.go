// Package store persists the conversation set and the global seen-message
// index as a single flat JSON file. The file is read fully at run start and
// written fully at run end; there are no partial writes.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/supportloop/supportloop/internal/conversation"
)

// State is everything the pipeline needs to resume incrementally: the known
// conversations and the cross-run set of all message ids ever attached to a
// conversation. Persisting the seen set makes restart safety explicit
// instead of accidental.
type State struct {
	Conversations  []*conversation.Conversation `json:"conversations"`
	SeenMessageIDs []string                     `json:"seen_message_ids"`
}

// SeenSet converts the persisted id list into a lookup set.
func (s *State) SeenSet() map[string]struct{} {
	seen := make(map[string]struct{}, len(s.SeenMessageIDs))
	for _, id := range s.SeenMessageIDs {
		seen[id] = struct{}{}
	}
	return seen
}

// SetSeen replaces the persisted id list from a lookup set, sorted for a
// stable file representation.
func (s *State) SetSeen(seen map[string]struct{}) {
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	s.SeenMessageIDs = ids
}

// Unsettled returns the conversations that still need processing this run.
func (s *State) Unsettled() []*conversation.Conversation {
	var out []*conversation.Conversation
	for _, conv := range s.Conversations {
		if !conv.Settled {
			out = append(out, conv)
		}
	}
	return out
}

// Upsert merges conversations into the state by root id. Existing entries
// are replaced in place, new roots are appended; rerunning a pipeline must
// never duplicate a conversation.
func (s *State) Upsert(convs []*conversation.Conversation) {
	index := make(map[string]int, len(s.Conversations))
	for i, conv := range s.Conversations {
		index[conv.RootID] = i
	}
	for _, conv := range convs {
		if i, ok := index[conv.RootID]; ok {
			s.Conversations[i] = conv
			continue
		}
		index[conv.RootID] = len(s.Conversations)
		s.Conversations = append(s.Conversations, conv)
	}
}

// Store reads and writes pipeline state at a fixed path.
type Store struct {
	path string
}

// New creates a store for the given file path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the full state. A missing file yields an empty state with a
// warning (first run); any other read or decode failure is fatal for the
// run, since continuing could corrupt previously settled data.
func (s *Store) Load() (*State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("path", s.path).Msg("no existing conversation store, starting fresh")
			return &State{}, nil
		}
		return nil, fmt.Errorf("failed to read conversation store: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode conversation store %s: %w", s.path, err)
	}

	log.Info().Int("conversations", len(state.Conversations)).
		Int("seen_messages", len(state.SeenMessageIDs)).
		Msg("loaded conversation store")
	return &state, nil
}

// Save writes the full state atomically: the JSON is written to a temp file
// in the same directory and renamed over the target, so a failed write
// leaves the previous store intact.
func (s *Store) Save(state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode conversation store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp store file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write conversation store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp store file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace conversation store: %w", err)
	}

	log.Info().Int("conversations", len(state.Conversations)).
		Str("path", s.path).
		Msg("saved conversation store")
	return nil
}

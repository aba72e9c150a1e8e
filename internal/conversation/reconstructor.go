package conversation

import (
	"sort"

	"github.com/rs/zerolog/log"
)

// MergeStats summarizes what a reconstruction pass did. PreviouslySeen
// counts messages skipped because an earlier run already attached them;
// DuplicatesDropped counts genuine duplicates within this pass.
type MergeStats struct {
	NewConversations      int `json:"new_conversations"`
	ExtendedConversations int `json:"extended_conversations"`
	MessagesAppended      int `json:"messages_appended"`
	PreviouslySeen        int `json:"previously_seen"`
	DuplicatesDropped     int `json:"duplicates_dropped"`
}

// Reconstructor rebuilds conversation threads from a flat message table and
// merges them into previously known conversations. The table passed to
// NewReconstructor is used both as the batch of candidate messages and as
// the lookup set for parent-chain walks, so it should contain the full
// current snapshot of the message source.
type Reconstructor struct {
	index map[string]Message
	order []Message
}

// NewReconstructor indexes the message table by id. Later duplicates of the
// same id are dropped, keeping the first occurrence.
func NewReconstructor(table []Message) *Reconstructor {
	r := &Reconstructor{
		index: make(map[string]Message, len(table)),
		order: make([]Message, 0, len(table)),
	}
	for _, m := range table {
		if m.ID == "" {
			continue
		}
		if _, dup := r.index[m.ID]; dup {
			continue
		}
		r.index[m.ID] = m
		r.order = append(r.order, m)
	}
	return r
}

// ResolveRoot walks parent references from the given message id until it
// finds the thread root. The walk is iterative with a visited set: a cycle
// fails closed by returning the starting id (the message becomes its own
// root), and a reference to a message outside the table terminates the walk
// at that reference — which is what lets a continuation message resolve to
// a previous run's tail id.
func (r *Reconstructor) ResolveRoot(id string) string {
	visited := make(map[string]struct{})
	current := id
	for {
		if _, seen := visited[current]; seen {
			log.Warn().Str("message_id", id).Msg("parent chain cycle detected, treating message as its own root")
			return id
		}
		visited[current] = struct{}{}

		msg, ok := r.index[current]
		if !ok {
			// Reference points outside the table; the walk cannot continue.
			return current
		}
		if msg.ParentID == "" {
			return current
		}
		current = msg.ParentID
	}
}

// Merge applies the message table to the known conversation set. Untouched
// conversations pass through unchanged; conversations that were created or
// extended come back with Settled=false and a freshly finalized history.
// Both the returned slice order (known order, then new conversations in
// creation order) and the seen set mutation are deterministic.
func (r *Reconstructor) Merge(known []*Conversation, seen map[string]struct{}) ([]*Conversation, MergeStats) {
	var stats MergeStats

	byRoot := make(map[string]*Conversation, len(known))
	byTail := make(map[string]*Conversation, len(known))
	for _, conv := range known {
		byRoot[conv.RootID] = conv
		if conv.TailID != "" {
			byTail[conv.TailID] = conv
		}
	}

	opened := make(map[string]*Conversation)
	var openedOrder []*Conversation
	touched := make(map[string]*Conversation)

	for _, msg := range r.order {
		if _, already := seen[msg.ID]; already {
			stats.PreviouslySeen++
			continue
		}

		root := r.ResolveRoot(msg.ID)

		var target *Conversation
		switch {
		case byTail[root] != nil:
			// Continuation of an existing conversation: the new message's
			// chain bottoms out at that conversation's tail.
			target = byTail[root]
		case byRoot[root] != nil:
			target = byRoot[root]
		case opened[root] != nil:
			target = opened[root]
		default:
			target = r.openConversation(root, msg)
			// Register under both the resolved root id and the conversation's
			// own root id: when a dangling root degrades the conversation to
			// the message's id, later messages of the same chain still resolve
			// to the original unresolved reference and must find it.
			opened[root] = target
			opened[target.RootID] = target
			openedOrder = append(openedOrder, target)
			stats.NewConversations++
		}

		if target.HasMessage(msg.ID) {
			stats.DuplicatesDropped++
			seen[msg.ID] = struct{}{}
			continue
		}

		entry := HistoryEntry{
			ResponseType: msg.Direction,
			Response: MessageBody{
				MessageID: msg.ID,
				Text:      msg.Text,
				CreatedAt: msg.CreatedAt,
			},
		}
		if msg.Direction == DirectionCustomer {
			entry.CustomerID = msg.AuthorID
		}

		target.ChatHistory = append(target.ChatHistory, entry)
		seen[msg.ID] = struct{}{}
		stats.MessagesAppended++

		if opened[target.RootID] == nil {
			if _, was := touched[target.RootID]; !was {
				stats.ExtendedConversations++
			}
		}
		touched[target.RootID] = target
		target.Settled = false
	}

	for _, conv := range touched {
		r.finalize(conv)
	}

	merged := make([]*Conversation, 0, len(known)+len(openedOrder))
	merged = append(merged, known...)
	merged = append(merged, openedOrder...)
	return merged, stats
}

// openConversation creates a conversation for a root observed for the first
// time. When the root id has no record in the table (dangling parent
// reference with no tail match), the message itself degrades to the root
// rather than failing reconstruction.
func (r *Reconstructor) openConversation(root string, msg Message) *Conversation {
	rootMsg, ok := r.index[root]
	if !ok {
		log.Debug().Str("root_id", root).Str("message_id", msg.ID).
			Msg("root record not in table, degrading message to root")
		rootMsg = msg
		root = msg.ID
	}
	return &Conversation{
		RootID:   root,
		RootText: rootMsg.Text,
		TailID:   root,
		Settled:  false,
	}
}

// finalize re-derives the mutable parts of a touched conversation: it sorts
// the history chronologically (best effort), recomputes the tail pointer,
// resolves the conversation-level customer and company ids, and strips the
// transient per-entry customer annotation.
func (r *Reconstructor) finalize(conv *Conversation) {
	sortHistory(conv.ChatHistory)

	if len(conv.ChatHistory) > 0 {
		conv.TailID = conv.ChatHistory[len(conv.ChatHistory)-1].Response.MessageID
	} else {
		conv.TailID = conv.RootID
	}

	for _, entry := range conv.ChatHistory {
		switch entry.ResponseType {
		case DirectionCustomer:
			if conv.CustomerID == "" && entry.CustomerID != "" {
				conv.CustomerID = entry.CustomerID
			}
		case DirectionCompany:
			if conv.CompanyID == "" {
				if msg, ok := r.index[entry.Response.MessageID]; ok && msg.AuthorID != "" {
					conv.CompanyID = msg.AuthorID
				}
			}
		}
	}

	for i := range conv.ChatHistory {
		conv.ChatHistory[i].CustomerID = ""
	}
}

// sortHistory orders entries by created_at ascending. If any entry carries
// an unparseable timestamp the whole history keeps its arrival order; the
// sort never raises.
func sortHistory(history []HistoryEntry) {
	for _, entry := range history {
		if _, ok := parseCreatedAt(entry.Response.CreatedAt); !ok {
			return
		}
	}
	sort.SliceStable(history, func(i, j int) bool {
		ti, _ := parseCreatedAt(history[i].Response.CreatedAt)
		tj, _ := parseCreatedAt(history[j].Response.CreatedAt)
		return ti.Before(tj)
	})
}

package conversation

import "time"

// Direction identifies which side of the support exchange authored a message.
type Direction string

const (
	DirectionCustomer Direction = "Customer"
	DirectionCompany  Direction = "Company"
)

// CreatedAtLayout is the timestamp format used by the message source,
// e.g. "Tue Oct 31 22:10:47 +0000 2017".
const CreatedAtLayout = "Mon Jan 02 15:04:05 -0700 2006"

// Message is a single inbound/outbound post from the raw message table.
// Messages are immutable once ingested and globally deduplicated by ID.
type Message struct {
	ID        string
	ParentID  string // empty means the message is a thread root
	AuthorID  string
	Direction Direction
	Text      string
	CreatedAt string // raw timestamp string, may be empty or malformed
}

// ParsedCreatedAt parses the raw timestamp. The bool reports whether the
// value was parseable; callers must tolerate false and fall back to
// arrival order.
func (m Message) ParsedCreatedAt() (time.Time, bool) {
	return parseCreatedAt(m.CreatedAt)
}

func parseCreatedAt(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(CreatedAtLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// MessageBody is the payload of a history entry as persisted in the store.
type MessageBody struct {
	MessageID string `json:"message_id"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

// HistoryEntry is one message of a conversation's ordered history.
// CustomerID is a transient annotation carried only until the conversation
// level customer_id is resolved, then stripped (it must not be duplicated
// per entry in the persisted store).
type HistoryEntry struct {
	ResponseType Direction   `json:"response_type"`
	Response     MessageBody `json:"response"`
	CustomerID   string      `json:"customer_id,omitempty"`
}

// Conversation is a reconstructed thread. RootID is its stable identity.
// Only Settled, the tag fields, ChatHistory and TailID mutate after
// creation; a conversation is never deleted.
type Conversation struct {
	RootID     string `json:"root_message_id"`
	RootText   string `json:"root_text"`
	TailID     string `json:"tail_message_id"`
	CustomerID string `json:"customer_id"`
	CompanyID  string `json:"company_id"`

	ChatHistory []HistoryEntry `json:"chat_history"`

	// Settled is false whenever the conversation was created or extended in
	// the current run; downstream stages only touch unsettled conversations.
	Settled bool `json:"settled"`

	// Tag bag, written by the enrichment and pattern stages.
	Category          string `json:"category,omitempty"`
	Sentiment         string `json:"sentiment,omitempty"`
	Resolved          bool   `json:"resolved"`
	ResolutionState   string `json:"resolution_state,omitempty"`
	FrequentSentiment string `json:"most_frequent_sentiment,omitempty"`
	FrequentCategory  string `json:"most_frequent_category,omitempty"`
}

// Length returns the number of messages in the conversation history.
func (c *Conversation) Length() int {
	return len(c.ChatHistory)
}

// HasMessage reports whether the given message id is already part of this
// conversation's history.
func (c *Conversation) HasMessage(id string) bool {
	for _, entry := range c.ChatHistory {
		if entry.Response.MessageID == id {
			return true
		}
	}
	return false
}

// CustomerMessages returns the texts of all customer-authored entries in
// history order.
func (c *Conversation) CustomerMessages() []string {
	var texts []string
	for _, entry := range c.ChatHistory {
		if entry.ResponseType == DirectionCustomer {
			texts = append(texts, entry.Response.Text)
		}
	}
	return texts
}

// LastDirection returns the direction of the most recent history entry, or
// empty if the history is empty.
func (c *Conversation) LastDirection() Direction {
	if len(c.ChatHistory) == 0 {
		return ""
	}
	return c.ChatHistory[len(c.ChatHistory)-1].ResponseType
}

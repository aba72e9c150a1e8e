package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportloop/supportloop/internal/conversation"
	"github.com/supportloop/supportloop/internal/nba"
)

func sampleData() ([]nba.Recommendation, map[string]*conversation.Conversation) {
	recs := []nba.Recommendation{
		{
			CustomerID:  "cust1",
			Channel:     nba.ChannelEmail,
			SendTime:    "2017-11-01T12:00:00Z",
			Message:     "We have reshipped your order.",
			Reasoning:   "delivery problem, written follow-up preferred",
			IssueStatus: nba.StatusPendingCustomerReply,
		},
	}
	convs := map[string]*conversation.Conversation{
		"cust1": {
			RootID:     "r1",
			CustomerID: "cust1",
			ChatHistory: []conversation.HistoryEntry{
				{
					ResponseType: conversation.DirectionCustomer,
					Response:     conversation.MessageBody{MessageID: "m1", Text: "my order never arrived"},
				},
				{
					ResponseType: conversation.DirectionCompany,
					Response:     conversation.MessageBody{MessageID: "m2", Text: "checking with the courier"},
				},
			},
		},
	}
	return recs, convs
}

func TestWriteRows(t *testing.T) {
	recs, convs := sampleData()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, recs, convs))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, []string{"customer_id", "channel", "send_time", "message", "reasoning", "issue_status", "chat_log"}, rows[0])

	row := rows[1]
	assert.Equal(t, "cust1", row[0])
	assert.Equal(t, nba.ChannelEmail, row[1])
	assert.Equal(t, "We have reshipped your order.", row[3])

	wantLog := "[Customer]: my order never arrived\n" +
		"[Company]: checking with the courier\n" +
		"[Company - RECOMMENDED]: We have reshipped your order."
	assert.Equal(t, wantLog, row[6])
}

func TestWriteMissingConversationLeavesEmptyLog(t *testing.T) {
	recs, _ := sampleData()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, recs, nil))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Empty(t, rows[1][6])
}

func TestWriteRecommendationsCreatesFile(t *testing.T) {
	recs, convs := sampleData()
	path := filepath.Join(t.TempDir(), "out", "recommendations.csv")

	require.NoError(t, WriteRecommendations(path, recs, convs))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "cust1")

	// Reruns replace the file wholesale.
	require.NoError(t, WriteRecommendations(path, nil, nil))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "cust1")
}

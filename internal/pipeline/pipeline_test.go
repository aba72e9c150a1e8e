package pipeline

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportloop/supportloop/internal/store"
	"github.com/supportloop/supportloop/internal/tagging"
)

// scriptedClient routes each prompt kind to a canned answer so a full run
// exercises every collaborator call without a live model.
type scriptedClient struct {
	calls int
}

func (c *scriptedClient) Complete(_ context.Context, prompt string) (string, error) {
	c.calls++
	switch {
	case strings.Contains(prompt, "classify the nature of support"):
		return "Urgent Service Disruption", nil
	case strings.Contains(prompt, "overall sentiment"):
		return "Negative", nil
	case strings.Contains(prompt, "determine its current status"):
		if strings.Contains(prompt, "restart your router") {
			// First thread ends with a company reply.
			return "waiting_for_customer", nil
		}
		return "waiting_for_company", nil
	case strings.Contains(prompt, "Recommend the best next action"):
		return `{"customer_id": "cust2", "channel": "email_reply", "send_time": "2017-11-01T12:00:00Z", "message": "We are checking your billing records.", "reasoning": "billing issue, short thread", "issue_status": "pending_customer_reply"}`, nil
	}
	return "", nil
}

const messagesCSV = `tweet_id,author_id,inbound,created_at,text,in_response_to_tweet_id
1,cust1,True,Tue Oct 31 22:10:47 +0000 2017,my internet is down,
2,support,False,Tue Oct 31 22:12:00 +0000 2017,sorry to hear that,1
3,cust1,True,Tue Oct 31 22:15:30 +0000 2017,still down,2
4,support,False,Tue Oct 31 22:20:10 +0000 2017,restart your router,3
5,cust2,True,Tue Oct 31 23:00:00 +0000 2017,I was double charged,
`

func writeInput(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "messages.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testOptions(t *testing.T, dir string) Options {
	return Options{
		InputCSV:  writeInput(t, dir, messagesCSV),
		StorePath: filepath.Join(dir, "conversations.json"),
		ExportCSV: filepath.Join(dir, "recommendations.csv"),
		RunLogDir: filepath.Join(dir, "run_logs"),
	}
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions(t, dir)
	opts.Client = &scriptedClient{}

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 5, report.MessagesLoaded)
	assert.Equal(t, 2, report.Merge.NewConversations)
	assert.Equal(t, 2, report.Tagged)
	assert.Equal(t, 2, report.Customers)
	assert.Equal(t, 1, report.Recommendations)

	state, err := store.New(opts.StorePath).Load()
	require.NoError(t, err)
	require.Len(t, state.Conversations, 2)
	assert.Len(t, state.SeenMessageIDs, 5)

	for _, conv := range state.Conversations {
		assert.True(t, conv.Settled)
		assert.Equal(t, "Urgent Service Disruption", conv.Category)
		assert.Equal(t, "Negative", conv.Sentiment)
		assert.Equal(t, "Negative", conv.FrequentSentiment)
	}
	assert.Equal(t, tagging.StateWaitingForCustomer, state.Conversations[0].ResolutionState)
	assert.Equal(t, tagging.StateWaitingForCompany, state.Conversations[1].ResolutionState)

	f, err := os.Open(opts.ExportCSV)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "cust2", rows[1][0])
	assert.Equal(t, "email_reply", rows[1][1])
	assert.Contains(t, rows[1][6], "[Company - RECOMMENDED]: We are checking your billing records.")
}

func TestRunDegradedModeWithoutClient(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions(t, dir)

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)

	// Without the collaborator nothing resolves a state, so no conversation
	// is eligible for recommendation, but tagging still defaults.
	assert.Equal(t, 2, report.Tagged)
	assert.Equal(t, 0, report.Recommendations)

	state, err := store.New(opts.StorePath).Load()
	require.NoError(t, err)
	for _, conv := range state.Conversations {
		assert.Equal(t, tagging.DefaultCategory, conv.Category)
		assert.Equal(t, tagging.DefaultSentiment, conv.Sentiment)
		assert.True(t, conv.Settled)
	}
}

func TestRunIsIdempotentAcrossReruns(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions(t, dir)
	opts.Client = &scriptedClient{}

	_, err := Run(context.Background(), opts)
	require.NoError(t, err)

	second, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Merge.NewConversations)
	assert.Equal(t, 0, second.Merge.MessagesAppended)
	assert.Equal(t, 5, second.Merge.PreviouslySeen)
	assert.Equal(t, 0, second.Merge.DuplicatesDropped)
	assert.Equal(t, 0, second.Tagged)

	state, err := store.New(opts.StorePath).Load()
	require.NoError(t, err)
	require.Len(t, state.Conversations, 2)
	assert.Len(t, state.Conversations[0].ChatHistory, 4)
}

func TestRunPicksUpContinuationNextRun(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions(t, dir)
	opts.Client = &scriptedClient{}

	_, err := Run(context.Background(), opts)
	require.NoError(t, err)

	// The next snapshot only contains the continuation, replying to the
	// previous tail of the first thread.
	continuation := `tweet_id,author_id,inbound,created_at,text,in_response_to_tweet_id
6,cust1,True,Wed Nov 01 09:00:00 +0000 2017,restarted and still down,4
`
	opts.InputCSV = writeInput(t, dir, continuation)

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Merge.NewConversations)
	assert.Equal(t, 1, report.Merge.ExtendedConversations)
	assert.Equal(t, 1, report.Tagged)

	state, err := store.New(opts.StorePath).Load()
	require.NoError(t, err)
	require.Len(t, state.Conversations, 2)
	first := state.Conversations[0]
	assert.Len(t, first.ChatHistory, 5)
	assert.Equal(t, "6", first.TailID)
	assert.True(t, first.Settled)
}

func TestRunFailedExportKeepsBatchUnsettled(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions(t, dir)
	opts.Client = &scriptedClient{}

	// Block the export by putting a regular file where its directory
	// should go.
	blocker := filepath.Join(dir, "blocked")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	opts.ExportCSV = filepath.Join(blocker, "recommendations.csv")

	_, err := Run(context.Background(), opts)
	require.Error(t, err)

	// The settled flip must not have been persisted, so a rerun with a
	// working export path regenerates the recommendations.
	opts.ExportCSV = filepath.Join(dir, "recommendations.csv")
	report, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Tagged)
	assert.Equal(t, 1, report.Recommendations)

	data, err := os.ReadFile(opts.ExportCSV)
	require.NoError(t, err)
	assert.Contains(t, string(data), "cust2")
}

func TestIngestOnlyLeavesConversationsUnsettled(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions(t, dir)

	report, err := Ingest(opts)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Merge.NewConversations)

	state, err := store.New(opts.StorePath).Load()
	require.NoError(t, err)
	require.Len(t, state.Conversations, 2)
	for _, conv := range state.Conversations {
		assert.False(t, conv.Settled)
		assert.Empty(t, conv.Category)
	}
}

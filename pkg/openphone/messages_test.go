package openphone

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/Sternrassler/openphone-client/internal/testutil"
	"github.com/Sternrassler/openphone-client/pkg/client"
	"github.com/Sternrassler/openphone-client/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessages_List(t *testing.T) {
	c, mock := newTestClient(t)
	mock.SetCollection("messages", testutil.Records("msg_", 5), 2)

	it, err := c.Messages.List(ListMessagesParams{
		PhoneNumberID: "PN1",
		Participants:  []string{"+15550001111", "+15550002222"},
		UserID:        "US1",
		CreatedAfter:  "2024-01-01T00:00:00Z",
		PageOptions:   PageOptions{MaxResults: 2},
	})
	require.NoError(t, err)
	assert.Zero(t, mock.GetRequestCount(), "listing must be lazy")

	msgs, err := it.Collect(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, msgs, 5)
	assert.Equal(t, "msg_1", msgs[0].ID)
	assert.Equal(t, "msg_5", msgs[4].ID)

	total, ok := it.TotalItems()
	assert.True(t, ok)
	assert.Equal(t, 5, total)

	reqs := mock.Requests()
	require.Len(t, reqs, 3)
	q := reqs[0].Query
	assert.Equal(t, "PN1", q.Get("phoneNumberId"))
	assert.Equal(t, []string{"+15550001111", "+15550002222"}, q["participants"])
	assert.Equal(t, "US1", q.Get("userId"))
	assert.Equal(t, "2024-01-01T00:00:00Z", q.Get("createdAfter"))
	assert.False(t, q.Has("createdBefore"))
	assert.Equal(t, "2", q.Get("maxResults"))
	assert.False(t, q.Has("pageToken"))
	assert.Equal(t, "cur_2", reqs[1].Query.Get("pageToken"))
	assert.Equal(t, "cur_4", reqs[2].Query.Get("pageToken"))
}

func TestMessages_ListStartsAtPageToken(t *testing.T) {
	c, mock := newTestClient(t)
	mock.SetCollection("messages", testutil.Records("msg_", 4), 2)

	it, err := c.Messages.List(ListMessagesParams{
		PhoneNumberID: "PN1",
		Participants:  []string{"+1555"},
		PageOptions:   PageOptions{PageToken: "cur_2"},
	})
	require.NoError(t, err)

	first, err := it.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "msg_3", first.ID)
	assert.Equal(t, "cur_2", mock.LastRequest().Query.Get("pageToken"))
}

func TestMessages_ListValidation(t *testing.T) {
	c, mock := newTestClient(t)

	tests := []struct {
		name   string
		params ListMessagesParams
	}{
		{name: "missing phone number", params: ListMessagesParams{Participants: []string{"+1"}}},
		{name: "missing participants", params: ListMessagesParams{PhoneNumberID: "PN1"}},
		{name: "maxResults too large", params: ListMessagesParams{PhoneNumberID: "PN1", Participants: []string{"+1"}, PageOptions: PageOptions{MaxResults: 101}}},
		{name: "maxResults negative", params: ListMessagesParams{PhoneNumberID: "PN1", Participants: []string{"+1"}, PageOptions: PageOptions{MaxResults: -1}}},
		{name: "blank page token", params: ListMessagesParams{PhoneNumberID: "PN1", Participants: []string{"+1"}, PageOptions: PageOptions{PageToken: "   "}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, err := c.Messages.List(tt.params)
			require.Error(t, err)
			assert.Nil(t, it)
			assert.True(t, client.IsValidation(err), "got %v", err)
		})
	}
	assert.Zero(t, mock.GetRequestCount())
}

func TestMessages_ListEndsWithDone(t *testing.T) {
	c, mock := newTestClient(t)
	mock.SetPages("messages", map[string]string{
		"": `{"data":[],"nextPageToken":null}`,
	})

	it, err := c.Messages.List(ListMessagesParams{PhoneNumberID: "PN1", Participants: []string{"+1"}})
	require.NoError(t, err)

	_, err = it.Next(context.Background())
	assert.ErrorIs(t, err, pagination.Done)
	_, err = it.Next(context.Background())
	assert.ErrorIs(t, err, pagination.Done)
	assert.Equal(t, 1, mock.GetRequestCount())
}

func TestMessages_ListRangeStopsOnError(t *testing.T) {
	c, mock := newTestClient(t)
	mock.SetPages("messages", map[string]string{
		"": `{"data":[{"id":"msg_1"}],"nextPageToken":"missing"}`,
	})

	it, err := c.Messages.List(ListMessagesParams{PhoneNumberID: "PN1", Participants: []string{"+1"}})
	require.NoError(t, err)

	var ids []string
	var iterErr error
	for msg, err := range it.All(context.Background()) {
		if err != nil {
			iterErr = err
			break
		}
		ids = append(ids, msg.ID)
	}
	assert.Equal(t, []string{"msg_1"}, ids)
	assert.True(t, client.IsBadRequest(iterErr), "got %v", iterErr)
}

func TestMessages_Send(t *testing.T) {
	c, mock := newTestClient(t)
	mock.SetHandler("POST messages", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(w, http.StatusAccepted, map[string]any{
			"data": map[string]any{"id": "msg_9", "text": "hello", "status": "queued", "to": []string{"+1555"}},
		})
	})

	msg, err := c.Messages.Send(context.Background(), SendMessageParams{
		Content: "hello",
		From:    "PN1",
		To:      []string{"+1555"},
	})
	require.NoError(t, err)
	assert.Equal(t, "msg_9", msg.ID)
	assert.Equal(t, "queued", msg.Status)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(mock.LastRequest().Body, &sent))
	assert.Equal(t, "hello", sent["content"])
	assert.Equal(t, "PN1", sent["from"])
	assert.Equal(t, []any{"+1555"}, sent["to"])
	assert.NotContains(t, sent, "userId")
}

func TestMessages_SendValidation(t *testing.T) {
	c, mock := newTestClient(t)

	_, err := c.Messages.Send(context.Background(), SendMessageParams{From: "PN1", To: []string{"+1"}})
	assert.True(t, client.IsValidation(err))
	_, err = c.Messages.Send(context.Background(), SendMessageParams{Content: "x", To: []string{"+1"}})
	assert.True(t, client.IsValidation(err))
	_, err = c.Messages.Send(context.Background(), SendMessageParams{Content: "x", From: "PN1"})
	assert.True(t, client.IsValidation(err))
	assert.Zero(t, mock.GetRequestCount())
}

func TestMessages_Get(t *testing.T) {
	c, mock := newTestClient(t)
	mock.SetResponse("messages/msg_1", testutil.NewDataResponse(http.StatusOK,
		`{"id":"msg_1","text":"hi","createdAt":"2024-05-01T12:00:00.000Z"}`))

	msg, err := c.Messages.Get(context.Background(), "msg_1")
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Text)
	assert.Equal(t, 2024, msg.CreatedAt.Year())

	_, err = c.Messages.Get(context.Background(), "msg_missing")
	require.Error(t, err)
	assert.True(t, client.IsNotFound(err))

	var apiErr *client.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

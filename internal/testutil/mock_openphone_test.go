package testutil

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getJSON(t *testing.T, rawURL string, header map[string]string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp.StatusCode, body
}

func TestMockOpenPhone_Collection(t *testing.T) {
	mock := NewMockOpenPhone()
	defer mock.Close()
	mock.SetCollection("contacts", Records("ct_", 5), 2)

	status, page := getJSON(t, mock.BaseURL()+"/contacts", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, page["data"], 2)
	assert.Equal(t, "cur_2", page["nextPageToken"])
	assert.EqualValues(t, 5, page["totalItems"])

	_, last := getJSON(t, mock.BaseURL()+"/contacts?pageToken=cur_4", nil)
	assert.Len(t, last["data"], 1)
	assert.Nil(t, last["nextPageToken"])

	status, _ = getJSON(t, mock.BaseURL()+"/contacts?pageToken=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 3, mock.GetRequestCount())
}

func TestMockOpenPhone_RequireAPIKey(t *testing.T) {
	mock := NewMockOpenPhone()
	defer mock.Close()
	mock.RequireAPIKey("secret")
	mock.SetJSON("phone-numbers", http.StatusOK, map[string]any{"data": []any{}})

	status, body := getJSON(t, mock.BaseURL()+"/phone-numbers", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid API key", body["error"].(map[string]any)["message"])

	status, _ = getJSON(t, mock.BaseURL()+"/phone-numbers", map[string]string{"Authorization": "secret"})
	assert.Equal(t, http.StatusOK, status)
}

func TestMockOpenPhone_MethodSpecificHandler(t *testing.T) {
	mock := NewMockOpenPhone()
	defer mock.Close()
	mock.SetJSON("POST messages", http.StatusAccepted, map[string]any{"data": map[string]any{"id": "m1"}})

	status, _ := getJSON(t, mock.BaseURL()+"/messages", nil)
	assert.Equal(t, http.StatusNotFound, status)

	resp, err := http.Post(mock.BaseURL()+"/messages", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "messages", mock.LastRequest().Path)
}

func TestMockOpenPhone_Conditional(t *testing.T) {
	mock := NewMockOpenPhone()
	defer mock.Close()
	mock.SetHandler("contacts/ct_1", NewConditionalHandler(`"v1"`, `{"data":{"id":"ct_1"}}`))

	status, _ := getJSON(t, mock.BaseURL()+"/contacts/ct_1", map[string]string{"If-None-Match": `"v1"`})
	assert.Equal(t, http.StatusNotModified, status)
	assert.Equal(t, 1, mock.GetConditionalCount())

	mock.Reset()
	assert.Zero(t, mock.GetRequestCount())
	assert.Zero(t, mock.GetConditionalCount())
}

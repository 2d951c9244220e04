// Package testutil provides a mock OpenPhone API server for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// APIPrefix is the path prefix the mock serves under; BaseURL includes it.
const APIPrefix = "/v1"

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is a request as seen by the mock server.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// MockOpenPhone is a configurable mock OpenPhone server.
//
// Handlers are registered by path relative to APIPrefix ("contacts",
// "contacts/ct_1"). A "METHOD path" key takes precedence over a bare path.
type MockOpenPhone struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	apiKey   string

	requests         []RecordedRequest
	conditionalCount int
}

// NewMockOpenPhone starts a new mock server.
func NewMockOpenPhone() *MockOpenPhone {
	mock := &MockOpenPhone{
		handlers: make(map[string]http.HandlerFunc),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.serve))
	return mock
}

func (m *MockOpenPhone) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	rel := strings.Trim(strings.TrimPrefix(r.URL.Path, APIPrefix), "/")

	m.mu.Lock()
	m.requests = append(m.requests, RecordedRequest{
		Method: r.Method,
		Path:   rel,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
		m.conditionalCount++
	}
	apiKey := m.apiKey
	handler, ok := m.handlers[r.Method+" "+rel]
	if !ok {
		handler, ok = m.handlers[rel]
	}
	m.mu.Unlock()

	if apiKey != "" && r.Header.Get("Authorization") != apiKey {
		WriteError(w, http.StatusUnauthorized, "Invalid API key", "0100401")
		return
	}
	if !strings.HasPrefix(r.URL.Path, APIPrefix+"/") {
		WriteError(w, http.StatusNotFound, "Unknown API version", "")
		return
	}
	if !ok {
		WriteError(w, http.StatusNotFound, "Resource not found", "0100404")
		return
	}
	handler(w, r)
}

// URL returns the server root.
func (m *MockOpenPhone) URL() string {
	return m.server.URL
}

// BaseURL returns the API base URL to configure clients with.
func (m *MockOpenPhone) BaseURL() string {
	return m.server.URL + APIPrefix
}

// Close shuts down the mock server.
func (m *MockOpenPhone) Close() {
	m.server.Close()
}

// Reset clears recorded requests and counters.
func (m *MockOpenPhone) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.conditionalCount = 0
}

// RequireAPIKey makes every request without this exact Authorization value fail with 401.
func (m *MockOpenPhone) RequireAPIKey(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apiKey = key
}

// SetHandler sets a custom handler for a path, optionally prefixed with a method ("POST messages").
func (m *MockOpenPhone) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[normalizeKey(path)] = handler
}

func normalizeKey(path string) string {
	if method, rest, ok := strings.Cut(path, " "); ok {
		return method + " " + strings.Trim(rest, "/")
	}
	return strings.Trim(path, "/")
}

// SetResponse configures a fixed response for a path.
func (m *MockOpenPhone) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetJSON serves v encoded as JSON with the given status.
func (m *MockOpenPhone) SetJSON(path string, status int, v any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, status, v)
	})
}

// SetCollection serves records as a cursor-paginated collection. Pages hold
// pageSize records, or maxResults when the request asks for fewer.
// Continuation tokens are opaque offsets ("cur_<n>").
func (m *MockOpenPhone) SetCollection(path string, records []map[string]any, pageSize int) {
	if pageSize <= 0 {
		pageSize = 10
	}
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		size := pageSize
		if raw := q.Get("maxResults"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				WriteError(w, http.StatusBadRequest, "maxResults must be a positive integer", "0100400")
				return
			}
			size = min(size, n)
		}

		offset := 0
		if token := q.Get("pageToken"); token != "" {
			n, err := strconv.Atoi(strings.TrimPrefix(token, "cur_"))
			if err != nil || !strings.HasPrefix(token, "cur_") || n > len(records) {
				WriteError(w, http.StatusBadRequest, "Invalid page token", "0100400")
				return
			}
			offset = n
		}

		end := min(offset+size, len(records))
		page := map[string]any{
			"data":          records[offset:end],
			"totalItems":    len(records),
			"nextPageToken": nil,
		}
		if end < len(records) {
			page["nextPageToken"] = fmt.Sprintf("cur_%d", end)
		}
		WriteJSON(w, http.StatusOK, page)
	})
}

// SetPages serves a fixed script of raw page bodies keyed by pageToken ("" is the first page).
func (m *MockOpenPhone) SetPages(path string, pages map[string]string) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Query().Get("pageToken")]
		if !ok {
			WriteError(w, http.StatusBadRequest, "Invalid page token", "0100400")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	})
}

// Requests returns a copy of every request received.
func (m *MockOpenPhone) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RecordedRequest(nil), m.requests...)
}

// LastRequest returns the most recent request, or the zero value.
func (m *MockOpenPhone) LastRequest() RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.requests) == 0 {
		return RecordedRequest{}
	}
	return m.requests[len(m.requests)-1]
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockOpenPhone) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockOpenPhone) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conditionalCount
}

// WriteJSON writes v as a JSON response.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an OpenPhone-style error body.
func WriteError(w http.ResponseWriter, status int, message, code string) {
	body := map[string]any{"message": message}
	if code != "" {
		body["code"] = code
	}
	WriteJSON(w, status, map[string]any{"error": body})
}

// NewDataResponse wraps a JSON object in {"data": ...}.
func NewDataResponse(status int, data string) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body:       `{"data":` + data + `}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewErrorResponse creates an OpenPhone-style error response.
func NewErrorResponse(status int, message, code string) MockResponse {
	b, _ := json.Marshal(map[string]any{"error": map[string]any{"message": message, "code": code}})
	return MockResponse{
		StatusCode: status,
		Body:       string(b),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewRateLimitResponse creates a 429 with a Retry-After header (omitted when retryAfter < 0).
func NewRateLimitResponse(retryAfter int) MockResponse {
	resp := NewErrorResponse(http.StatusTooManyRequests, "Too many requests", "0100429")
	if retryAfter >= 0 {
		resp.Headers["Retry-After"] = strconv.Itoa(retryAfter)
	}
	return resp
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return NewErrorResponse(http.StatusInternalServerError, "Internal server error", "0100500")
}

// NewConditionalHandler serves data with etag and answers 304 to a matching If-None-Match.
func NewConditionalHandler(etag string, data string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("If-None-Match") == etag {
			w.Header().Set("Cache-Control", "max-age=300")
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", "max-age=0")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(data))
	}
}

// Records builds n records with ids prefix1..prefixN.
func Records(prefix string, n int) []map[string]any {
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = map[string]any{"id": fmt.Sprintf("%s%d", prefix, i+1)}
	}
	return out
}

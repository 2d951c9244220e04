package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Default messages used when the error body carries no "error.message".
const (
	msgAuthentication = "Invalid API key or authentication failed"
	msgForbidden      = "Access forbidden - check your permissions"
	msgNotFound       = "Resource not found"
	msgRateLimited    = "Rate limit exceeded"
)

// Classify maps an HTTP status and body to either the parsed body or an
// *Error. It is pure: it never sleeps, retries, or performs I/O.
//
// Rules are evaluated in order: 401, 403, 404, 429, >=500, other 4xx,
// then success. A body that is not a JSON object parses to an empty map and
// never masks the status-derived error.
func Classify(status int, header http.Header, body []byte) (map[string]any, error) {
	parsed := ParseBody(body)

	if status < 400 {
		return parsed, nil
	}

	e := &Error{StatusCode: status, Body: parsed}
	e.fillDetails(parsed)

	var fallback string
	switch {
	case status == http.StatusUnauthorized:
		e.Kind, fallback = KindAuthentication, msgAuthentication
	case status == http.StatusForbidden:
		e.Kind, fallback = KindForbidden, msgForbidden
	case status == http.StatusNotFound:
		e.Kind, fallback = KindNotFound, msgNotFound
	case status == http.StatusTooManyRequests:
		e.Kind, fallback = KindRateLimited, msgRateLimited
		e.RetryAfter = parseRetryAfter(header)
	case status >= 500:
		e.Kind, fallback = KindServer, fmt.Sprintf("Server error: %d", status)
	default:
		e.Kind, fallback = KindAPI, fmt.Sprintf("API error: %d", status)
	}

	if e.Message == "" {
		e.Message = fallback
	}
	return nil, e
}

// ParseBody decodes a JSON object, keeping numbers as json.Number.
// Anything else (empty, invalid, array, scalar) yields an empty map.
func ParseBody(body []byte) map[string]any {
	out := map[string]any{}
	if len(bytes.TrimSpace(body)) == 0 {
		return out
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return out
	}
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return out
}

// fillDetails copies the conventional nested "error" object into e.
func (e *Error) fillDetails(body map[string]any) {
	obj, ok := body["error"].(map[string]any)
	if !ok {
		return
	}

	e.Message = stringField(obj, "message")
	e.Code = stringField(obj, "code")
	e.Title = stringField(obj, "title")
	e.Docs = stringField(obj, "docs")
	e.Trace = stringField(obj, "trace")

	if list, ok := obj["errors"].([]any); ok {
		e.Errors = list
	}
}

// stringField renders string and numeric values; anything else is "".
func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// parseRetryAfter accepts only a non-negative integer number of seconds.
func parseRetryAfter(header http.Header) *int {
	if header == nil {
		return nil
	}
	raw := strings.TrimSpace(header.Get("Retry-After"))
	if raw == "" {
		return nil
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return nil
		}
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 0 {
		return nil
	}
	return &secs
}

package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAPIKey_Validation(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{name: "valid key", secret: "op_live_1234567890"},
		{name: "empty", secret: "", wantErr: true},
		{name: "spaces only", secret: "   ", wantErr: true},
		{name: "tabs and newlines", secret: "\t\n", wantErr: true},
		{name: "short but non-empty", secret: "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := NewAPIKey(tt.secret)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrEmptyCredential))
				assert.Nil(t, key)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, key)
		})
	}
}

func TestAPIKey_Headers(t *testing.T) {
	key, err := NewAPIKey("secret-key-9876")
	require.NoError(t, err)

	h := key.Headers()
	assert.Len(t, h, 1)
	assert.Equal(t, "secret-key-9876", h.Get("Authorization"))

	// Mutating the returned header must not affect later calls.
	h.Set("Authorization", "tampered")
	assert.Equal(t, "secret-key-9876", key.Headers().Get("Authorization"))
}

func TestAPIKey_Masking(t *testing.T) {
	key, err := NewAPIKey("secret-key-9876")
	require.NoError(t, err)

	assert.Equal(t, "***9876", key.Masked())
	assert.Equal(t, "APIKey(***9876)", key.String())
	assert.Equal(t, "APIKey(***9876)", fmt.Sprintf("%#v", key))
	assert.NotContains(t, fmt.Sprintf("%v %+v %s", key, key, key), "secret-key")

	raw, err := json.Marshal(struct {
		Key *APIKey `json:"key"`
	}{key})
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"***9876"}`, string(raw))

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	logger.Info().Object("api_key", key).Msg("configured")
	assert.NotContains(t, buf.String(), "secret-key")
	assert.Contains(t, buf.String(), "***9876")
}

func TestAPIKey_MaskingShortKey(t *testing.T) {
	key, err := NewAPIKey("abc")
	require.NoError(t, err)
	assert.Equal(t, "***", key.Masked())
}

func TestAPIKey_MaskingMultibyte(t *testing.T) {
	key, err := NewAPIKey("key-ünïcødé€")
	require.NoError(t, err)

	masked := key.Masked()
	assert.Equal(t, "***ødé€", masked)
	assert.True(t, utf8.ValidString(masked))

	raw, err := json.Marshal(key)
	require.NoError(t, err)
	assert.JSONEq(t, `"***ødé€"`, string(raw))
}

func TestAPIKey_MarshalJSONEscapes(t *testing.T) {
	key, err := NewAPIKey(`secret-ab"\`)
	require.NoError(t, err)

	raw, err := json.Marshal(key)
	require.NoError(t, err)
	assert.True(t, json.Valid(raw), "invalid JSON: %s", raw)

	var got string
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, key.Masked(), got)
	assert.Equal(t, `***ab"\`, got)
}

func TestAPIKey_Fingerprint(t *testing.T) {
	a, _ := NewAPIKey("key-a")
	a2, _ := NewAPIKey("key-a")
	b, _ := NewAPIKey("key-b")

	assert.Equal(t, a.Fingerprint(), a2.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
	assert.Len(t, a.Fingerprint(), 12)
	assert.False(t, strings.Contains(a.Fingerprint(), "key-a"))
}

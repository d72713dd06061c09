package validator

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgmesh/signedmsg/common/audit"
	"github.com/orgmesh/signedmsg/common/models"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "signed.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestValidate_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind Kind // zero means success
		wantCode int
		wantMsg  string
	}{
		{
			name:     "inmemory discord adapter",
			input:    `{"event":{"kind":"adapters.inmemory-discord.posted"},"signature":"x"}`,
			wantCode: 0,
			wantMsg:  "Payload checks passed, kind= adapters.inmemory-discord.posted",
		},
		{
			name:     "discord adapter",
			input:    `{"event":{"id":"e1","kind":"adapters.discord.edited","payload":{}},"public_key":"","signature":[1,2]}`,
			wantCode: 0,
			wantMsg:  "Payload checks passed, kind= adapters.discord.edited",
		},
		{
			name:     "wrong kind prefix",
			input:    `{"event":{"kind":"other.kind"},"signature":"x"}`,
			wantKind: KindUnexpectedKind,
			wantCode: 4,
			wantMsg:  "Unexpected event.kind: other.kind",
		},
		{
			name:     "missing event",
			input:    `{"signature":"x"}`,
			wantKind: KindNotSignedEvent,
			wantCode: 2,
			wantMsg:  "Not a SignedEvent",
		},
		{
			name:     "missing signature",
			input:    `{"event":{"kind":"adapters.discord.posted"}}`,
			wantKind: KindNotSignedEvent,
			wantCode: 2,
			wantMsg:  "Not a SignedEvent",
		},
		{
			name:     "null values still count as present",
			input:    `{"event":null,"signature":null}`,
			wantKind: KindUnexpectedKind,
			wantCode: 4,
			wantMsg:  "Unexpected event.kind: ",
		},
		{
			name:     "top level array",
			input:    `["event","signature"]`,
			wantKind: KindNotSignedEvent,
			wantCode: 2,
			wantMsg:  "Not a SignedEvent",
		},
		{
			name:     "invalid json",
			input:    `{"event":`,
			wantKind: KindMalformedInput,
			wantCode: 3,
		},
		{
			name:     "invalid utf-8 inside a string",
			input:    "{\"event\":{\"kind\":\"adapters.discord\xff\"},\"signature\":\"x\"}",
			wantKind: KindMalformedInput,
			wantCode: 3,
			wantMsg:  "Failed to load JSON: invalid UTF-8 byte 0xff at offset 34",
		},
		{
			name:     "empty document",
			input:    ``,
			wantKind: KindMalformedInput,
			wantCode: 3,
		},
		{
			name:     "missing kind defaults to empty",
			input:    `{"event":{},"signature":"x"}`,
			wantKind: KindUnexpectedKind,
			wantCode: 4,
			wantMsg:  "Unexpected event.kind: ",
		},
		{
			name:     "non-string kind treated as empty",
			input:    `{"event":{"kind":42},"signature":"x"}`,
			wantKind: KindUnexpectedKind,
			wantCode: 4,
		},
		{
			name:     "adapter kind without discord",
			input:    `{"event":{"kind":"adapters.slack.posted"},"signature":"x"}`,
			wantKind: KindMissingAdapter,
			wantCode: 5,
			wantMsg:  "Event.kind does not include expected adapter identifier: adapters.slack.posted",
		},
		{
			name:     "prefix is case sensitive",
			input:    `{"event":{"kind":"Adapters.discord.posted"},"signature":"x"}`,
			wantKind: KindUnexpectedKind,
			wantCode: 4,
		},
		{
			name:     "discord outside the prefix is not enough",
			input:    `{"event":{"kind":"discord.adapters.posted"},"signature":"x"}`,
			wantKind: KindUnexpectedKind,
			wantCode: 4,
		},
	}

	v := New(DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := v.ValidateFile(writeFile(t, tt.input))

			if tt.wantKind == 0 {
				require.NoError(t, err)
				require.NotNil(t, res)
				assert.Equal(t, tt.wantMsg, res.Message)
				return
			}

			var ve *Error
			require.ErrorAs(t, err, &ve)
			assert.Nil(t, res)
			assert.Equal(t, tt.wantKind, ve.Kind)
			assert.Equal(t, tt.wantCode, ve.ExitCode())
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, ve.Error())
			}
		})
	}
}

func TestValidate_Result(t *testing.T) {
	v := New(DefaultConfig())
	res, err := v.Validate([]byte(`{"event":{"id":"evt-9","kind":"adapters.inmemory-discord.posted"},"signature":"x"}`))
	require.NoError(t, err)

	assert.Equal(t, "adapters.inmemory-discord.posted", res.Kind)
	assert.Equal(t, "evt-9", res.EventID)
	assert.Equal(t, "inmemory-discord", res.Adapter)
	assert.False(t, res.Signature)
}

func TestValidate_MalformedMessage(t *testing.T) {
	_, err := New(DefaultConfig()).Validate([]byte(`not json`))

	var ve *Error
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Error(), "Failed to load JSON: ")
	var syntaxErr *json.SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)
}

func TestValidateFile_Missing(t *testing.T) {
	_, err := New(DefaultConfig()).ValidateFile(filepath.Join(t.TempDir(), "absent.json"))

	var ve *Error
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, KindMalformedInput, ve.Kind)
	assert.Equal(t, 3, ve.ExitCode())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate_CustomConfig(t *testing.T) {
	v := New(Config{KindPrefix: "plugins.", AdapterIdentifiers: []string{"slack"}})

	_, err := v.Validate([]byte(`{"event":{"kind":"plugins.slack.posted"},"signature":"x"}`))
	assert.NoError(t, err)

	_, err = v.Validate([]byte(`{"event":{"kind":"adapters.discord.posted"},"signature":"x"}`))
	var ve *Error
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, KindUnexpectedKind, ve.Kind)
}

// coreDomainEvent was signed by core-domain with the 0x01 test seed; key and
// signature are byte arrays.
const coreDomainEvent = `{"event":{"id":"e1","kind":"adapters.inmemory-discord.posted","payload":{}},"public_key":[138,136,227,221,116,9,241,149,253,82,219,45,60,186,93,114,202,103,9,191,29,148,18,27,243,116,136,1,180,15,111,92],"signature":[216,182,21,183,150,70,179,132,64,183,46,106,26,40,175,216,177,80,70,159,119,80,21,252,155,68,167,157,160,17,173,15,157,67,255,149,156,69,104,171,62,190,221,163,147,89,104,47,150,155,25,61,246,10,40,62,244,130,188,50,38,76,166,0]}`

func signedJSON(t *testing.T, kind string) []byte {
	t.Helper()
	signed, err := audit.TestSigner().Sign(models.DomainEvent{
		ID:      "evt-1",
		Kind:    kind,
		Payload: json.RawMessage(`{"content":"hello"}`),
	})
	require.NoError(t, err)
	data, err := json.Marshal(signed)
	require.NoError(t, err)
	return data
}

func TestValidate_VerifySignature(t *testing.T) {
	cfg := DefaultConfig()
	cfg.VerifySignature = true
	v := New(cfg)

	t.Run("valid signature", func(t *testing.T) {
		res, err := v.Validate(signedJSON(t, "adapters.inmemory-discord.posted"))
		require.NoError(t, err)
		assert.True(t, res.Signature)
	})

	t.Run("tampered kind", func(t *testing.T) {
		var doc map[string]interface{}
		require.NoError(t, json.Unmarshal(signedJSON(t, "adapters.inmemory-discord.posted"), &doc))
		doc["event"].(map[string]interface{})["kind"] = "adapters.discord.posted"
		data, err := json.Marshal(doc)
		require.NoError(t, err)

		_, err = v.Validate(data)
		var ve *Error
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, KindBadSignature, ve.Kind)
		assert.Equal(t, 6, ve.ExitCode())
	})

	t.Run("opaque signature", func(t *testing.T) {
		_, err := v.Validate([]byte(`{"event":{"kind":"adapters.discord.posted"},"signature":"x"}`))
		var ve *Error
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, KindBadSignature, ve.Kind)
	})

	t.Run("wrong key", func(t *testing.T) {
		var doc map[string]interface{}
		require.NoError(t, json.Unmarshal(signedJSON(t, "adapters.discord.posted"), &doc))
		doc["public_key"] = base64.StdEncoding.EncodeToString(make([]byte, 32))
		data, err := json.Marshal(doc)
		require.NoError(t, err)

		_, err = v.Validate(data)
		var ve *Error
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, KindBadSignature, ve.Kind)
	})

	t.Run("core-domain event", func(t *testing.T) {
		res, err := v.Validate([]byte(coreDomainEvent))
		require.NoError(t, err)
		assert.True(t, res.Signature)
		assert.Equal(t, "e1", res.EventID)
	})

	t.Run("core-domain event with changed payload", func(t *testing.T) {
		tampered := strings.Replace(coreDomainEvent, `"payload":{}`, `"payload":{"a":1}`, 1)
		_, err := v.Validate([]byte(tampered))
		var ve *Error
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, KindBadSignature, ve.Kind)
		assert.Equal(t, "Signature verification failed for kind: adapters.inmemory-discord.posted", ve.Error())
	})

	t.Run("kind checks run first", func(t *testing.T) {
		_, err := v.Validate([]byte(`{"event":{"kind":"other.kind"},"signature":"x"}`))
		var ve *Error
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, KindUnexpectedKind, ve.Kind)
	})
}

func TestKind_String(t *testing.T) {
	tests := map[Kind]string{
		KindMalformedInput: "malformed_input",
		KindNotSignedEvent: "not_signed_event",
		KindUnexpectedKind: "unexpected_kind",
		KindMissingAdapter: "missing_adapter",
		KindBadSignature:   "bad_signature",
		Kind(0):            "unknown",
	}
	for k, want := range tests {
		assert.Equal(t, want, k.String())
	}
}

func TestError_UnknownKindExitCode(t *testing.T) {
	assert.Equal(t, 1, (&Error{Kind: Kind(99)}).ExitCode())
}

package models

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// DomainEvent is the event body emitted by core-domain and the adapters.
type DomainEvent struct {
	ID      string          `json:"id"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// SignedEvent is the envelope carried on the domain.events subject.
// PublicKey and Signature are raw ed25519 bytes.
type SignedEvent struct {
	Event     DomainEvent `json:"event"`
	PublicKey Bytes       `json:"public_key"`
	Signature Bytes       `json:"signature"`
}

// Bytes is key material as core-domain writes it: a JSON array of byte
// values. Base64 strings are accepted on input as well.
type Bytes []byte

func (b Bytes) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("null"), nil
	}
	ints := make([]int, len(b))
	for i, v := range b {
		ints[i] = int(v)
	}
	return json.Marshal(ints)
}

func (b *Bytes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*b = nil
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return fmt.Errorf("decode base64 bytes: %w", err)
		}
		*b = decoded
		return nil
	}

	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return fmt.Errorf("expected byte array or base64 string: %w", err)
	}
	out := make(Bytes, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return fmt.Errorf("byte value %d out of range at index %d", v, i)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}

// DiscordMessagePosted is the payload of adapters.*discord*.posted events.
type DiscordMessagePosted struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	Author    string `json:"author"`
	Content   string `json:"content"`
	PostedAt  string `json:"posted_at"`
}

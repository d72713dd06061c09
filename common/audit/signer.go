package audit

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/orgmesh/signedmsg/common/models"
)

// testSeed is the fixed seed of the deterministic CI key.
var testSeed = bytes.Repeat([]byte{1}, ed25519.SeedSize)

type EventSigner struct {
	key ed25519.PrivateKey
}

func NewEventSigner(seed []byte) (*EventSigner, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid key length: %d", len(seed))
	}
	return &EventSigner{key: ed25519.NewKeyFromSeed(seed)}, nil
}

// NewEventSignerFromHex decodes a hex seed. An empty string returns TestSigner.
func NewEventSignerFromHex(seedHex string) (*EventSigner, error) {
	if seedHex == "" {
		return TestSigner(), nil
	}
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("decode signing seed: %w", err)
	}
	return NewEventSigner(seed)
}

// TestSigner returns the deterministic signer used in CI and local harness runs.
// Never use it outside tests.
func TestSigner() *EventSigner {
	s, _ := NewEventSigner(testSeed)
	return s
}

func (s *EventSigner) PublicKey() ed25519.PublicKey {
	return s.key.Public().(ed25519.PublicKey)
}

// KeyID is a short display identifier derived from the public key.
func (s *EventSigner) KeyID() string {
	pk := base64.StdEncoding.EncodeToString(s.PublicKey())
	return "node-" + pk[:8]
}

func (s *EventSigner) Sign(event models.DomainEvent) (*models.SignedEvent, error) {
	payload, err := CanonicalBytes(event)
	if err != nil {
		return nil, err
	}
	return &models.SignedEvent{
		Event:     event,
		PublicKey: models.Bytes(s.PublicKey()),
		Signature: ed25519.Sign(s.key, payload),
	}, nil
}

// Verify checks signed.Signature against the embedded public key.
func Verify(signed *models.SignedEvent) bool {
	if signed == nil || len(signed.PublicKey) != ed25519.PublicKeySize || len(signed.Signature) != ed25519.SignatureSize {
		return false
	}
	payload, err := CanonicalBytes(signed.Event)
	if err != nil {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(signed.PublicKey), payload, signed.Signature)
}

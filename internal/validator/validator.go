// Package validator checks that a captured bus message is a SignedEvent
// emitted by a discord adapter.
package validator

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/orgmesh/signedmsg/common/audit"
	"github.com/orgmesh/signedmsg/common/messaging"
	"github.com/orgmesh/signedmsg/common/models"
)

// Kind classifies a validation failure. Checks run in the order below and
// the first failing one decides the outcome.
type Kind int

const (
	KindMalformedInput Kind = iota + 1
	KindNotSignedEvent
	KindUnexpectedKind
	KindMissingAdapter
	KindBadSignature
)

// Exit codes expected by the e2e harness. 2 is shared with the CLI usage
// error on purpose: existing harness scripts match on it.
var exitCodes = map[Kind]int{
	KindMalformedInput: 3,
	KindNotSignedEvent: 2,
	KindUnexpectedKind: 4,
	KindMissingAdapter: 5,
	KindBadSignature:   6,
}

func (k Kind) String() string {
	switch k {
	case KindMalformedInput:
		return "malformed_input"
	case KindNotSignedEvent:
		return "not_signed_event"
	case KindUnexpectedKind:
		return "unexpected_kind"
	case KindMissingAdapter:
		return "missing_adapter"
	case KindBadSignature:
		return "bad_signature"
	default:
		return "unknown"
	}
}

// Error is a terminal validation failure.
type Error struct {
	Kind      Kind
	EventKind string
	Msg       string
	Err       error
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) ExitCode() int {
	if code, ok := exitCodes[e.Kind]; ok {
		return code
	}
	return 1
}

// Config holds the expectations on event.kind.
type Config struct {
	KindPrefix         string
	AdapterIdentifiers []string
	VerifySignature    bool
}

func DefaultConfig() Config {
	return Config{
		KindPrefix:         messaging.AdapterKindPrefix,
		AdapterIdentifiers: []string{"inmemory-discord", "discord"},
	}
}

// Result describes a payload that passed every check.
type Result struct {
	Kind      string
	EventID   string
	Adapter   string
	Signature bool // true when the signature was verified
	Message   string
}

type Validator struct {
	cfg Config
}

func New(cfg Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateFile reads path and validates its contents. An unreadable file is
// reported like unparseable JSON.
func (v *Validator) ValidateFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Kind: KindMalformedInput, Msg: fmt.Sprintf("Failed to load JSON: %v", err), Err: err}
	}
	return v.Validate(data)
}

// Validate runs the checks against a raw JSON document.
func (v *Validator) Validate(data []byte) (*Result, error) {
	if off := invalidUTF8Offset(data); off >= 0 {
		err := fmt.Errorf("invalid UTF-8 byte 0x%02x at offset %d", data[off], off)
		return nil, &Error{Kind: KindMalformedInput, Msg: fmt.Sprintf("Failed to load JSON: %v", err), Err: err}
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &Error{Kind: KindMalformedInput, Msg: fmt.Sprintf("Failed to load JSON: %v", err), Err: err}
	}

	obj, ok := doc.(map[string]interface{})
	if !ok {
		return nil, &Error{Kind: KindNotSignedEvent, Msg: "Not a SignedEvent"}
	}
	_, hasEvent := obj["event"]
	_, hasSignature := obj["signature"]
	if !hasEvent || !hasSignature {
		return nil, &Error{Kind: KindNotSignedEvent, Msg: "Not a SignedEvent"}
	}

	kind, id := eventFields(obj["event"])

	if !strings.HasPrefix(kind, v.cfg.KindPrefix) {
		return nil, &Error{Kind: KindUnexpectedKind, EventKind: kind, Msg: "Unexpected event.kind: " + kind}
	}

	adapter, ok := matchAdapter(kind, v.cfg.AdapterIdentifiers)
	if !ok {
		return nil, &Error{
			Kind:      KindMissingAdapter,
			EventKind: kind,
			Msg:       "Event.kind does not include expected adapter identifier: " + kind,
		}
	}

	res := &Result{
		Kind:    kind,
		EventID: id,
		Adapter: adapter,
		Message: "Payload checks passed, kind= " + kind,
	}

	if v.cfg.VerifySignature {
		if err := verifySignature(data, kind); err != nil {
			return nil, err
		}
		res.Signature = true
	}

	return res, nil
}

// invalidUTF8Offset returns the offset of the first byte that is not part of
// a valid UTF-8 sequence, or -1.
func invalidUTF8Offset(data []byte) int {
	if utf8.Valid(data) {
		return -1
	}
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}

// eventFields pulls kind and id out of the event object. Anything that is
// not an object or not a string counts as empty.
func eventFields(event interface{}) (kind, id string) {
	m, ok := event.(map[string]interface{})
	if !ok {
		return "", ""
	}
	kind, _ = m["kind"].(string)
	id, _ = m["id"].(string)
	return kind, id
}

// matchAdapter returns the first identifier contained in kind.
func matchAdapter(kind string, identifiers []string) (string, bool) {
	for _, id := range identifiers {
		if strings.Contains(kind, id) {
			return id, true
		}
	}
	return "", false
}

func verifySignature(data []byte, kind string) error {
	var signed models.SignedEvent
	if err := json.Unmarshal(data, &signed); err != nil {
		return &Error{
			Kind:      KindBadSignature,
			EventKind: kind,
			Msg:       fmt.Sprintf("Cannot decode signed envelope: %v", err),
			Err:       err,
		}
	}
	if !audit.Verify(&signed) {
		return &Error{
			Kind:      KindBadSignature,
			EventKind: kind,
			Msg:       "Signature verification failed for kind: " + kind,
		}
	}
	return nil
}

package logging

import (
	"log/slog"
	"time"
)

// Common field names for consistent logging across the tools.
const (
	FieldInvocation = "invocation_id"
	FieldCommand    = "command"
	FieldURL        = "url"
	FieldSubject    = "subject"
	FieldAttempt    = "attempt"
	FieldPath       = "path"
	FieldKind       = "kind"
	FieldEventID    = "event_id"
	FieldBytes      = "bytes"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
)

// Command returns a slog attribute for the CLI command name.
func Command(name string) slog.Attr {
	return slog.String(FieldCommand, name)
}

// URL returns a slog attribute for a broker URL.
func URL(url string) slog.Attr {
	return slog.String(FieldURL, url)
}

// Subject returns a slog attribute for a message subject.
func Subject(subject string) slog.Attr {
	return slog.String(FieldSubject, subject)
}

// Attempt returns a slog attribute for a 1-based attempt number.
func Attempt(n int) slog.Attr {
	return slog.Int(FieldAttempt, n)
}

// Path returns a slog attribute for a file path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// Kind returns a slog attribute for an event kind.
func Kind(kind string) slog.Attr {
	return slog.String(FieldKind, kind)
}

// EventID returns a slog attribute for an event ID.
func EventID(id string) slog.Attr {
	return slog.String(FieldEventID, id)
}

// Bytes returns a slog attribute for a payload size.
func Bytes(n int) slog.Attr {
	return slog.Int(FieldBytes, n)
}

// Duration returns a slog attribute for a duration in milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Int64(FieldDuration, d.Milliseconds())
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}

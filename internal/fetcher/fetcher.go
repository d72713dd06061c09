// Package fetcher waits for one domain event on the bus and persists it.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
	"unicode/utf8"

	"github.com/orgmesh/signedmsg/common/logging"
	"github.com/orgmesh/signedmsg/common/messaging"
	natsclient "github.com/orgmesh/signedmsg/common/messaging/nats"
)

// Kind classifies why a fetch failed.
type Kind int

const (
	KindConnectExhausted Kind = iota + 1
	KindSubscribeFailed
	KindNoMessage
	KindUndecodablePayload
	KindWriteFailed
)

func (k Kind) String() string {
	switch k {
	case KindConnectExhausted:
		return "connect_exhausted"
	case KindSubscribeFailed:
		return "subscribe_failed"
	case KindNoMessage:
		return "no_message"
	case KindUndecodablePayload:
		return "undecodable_payload"
	case KindWriteFailed:
		return "write_failed"
	default:
		return "unknown"
	}
}

// Error is a terminal fetch failure. Msg is the line printed for the harness.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Err }

// ExitCode reports the process status for this failure. Every fetch failure
// exits 1; usage errors are handled by the CLI layer.
func (e *Error) ExitCode() int { return 1 }

// Dialer makes one connection attempt to the broker.
type Dialer func(ctx context.Context) (messaging.Subscriber, error)

// NATSDialer returns a Dialer that connects with the given NATS settings.
func NATSDialer(cfg natsclient.Config) Dialer {
	return func(ctx context.Context) (messaging.Subscriber, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := natsclient.NewClient(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Config controls the connect and wait policy.
type Config struct {
	Subject         string
	ConnectAttempts int
	RetryDelay      time.Duration
	WaitTimeout     time.Duration
}

// DefaultConfig mirrors the harness expectations: 8 attempts one second
// apart, then up to 30 seconds for a message on domain.events.
func DefaultConfig() Config {
	return Config{
		Subject:         messaging.SubjectDomainEvents,
		ConnectAttempts: 8,
		RetryDelay:      time.Second,
		WaitTimeout:     30 * time.Second,
	}
}

// Fetcher connects, takes the first message on a subject and writes it out.
type Fetcher struct {
	cfg     Config
	dial    Dialer
	logger  *logging.Logger
	metrics *Metrics
	out     io.Writer
}

// New creates a Fetcher. The received payload is echoed to out.
func New(cfg Config, dial Dialer, logger *logging.Logger, out io.Writer) *Fetcher {
	if logger == nil {
		logger = logging.Default()
	}
	if out == nil {
		out = os.Stdout
	}
	return &Fetcher{
		cfg:     cfg,
		dial:    dial,
		logger:  logger.With(logging.Subject(cfg.Subject)),
		metrics: NewMetrics(),
		out:     out,
	}
}

// Metrics exposes the counters collected by this fetcher.
func (f *Fetcher) Metrics() *Metrics {
	return f.metrics
}

// Fetch waits for one message, prints it and writes it verbatim to outPath,
// replacing any existing file.
func (f *Fetcher) Fetch(ctx context.Context, outPath string) error {
	data, err := f.Receive(ctx)
	if err != nil {
		f.metrics.Success.Set(0)
		return err
	}

	if !utf8.Valid(data) {
		f.metrics.Success.Set(0)
		return &Error{Kind: KindUndecodablePayload, Msg: "Received payload is not valid UTF-8"}
	}

	fmt.Fprintln(f.out, string(data))

	if err := os.WriteFile(outPath, data, 0644); err != nil {
		f.metrics.Success.Set(0)
		return &Error{Kind: KindWriteFailed, Msg: fmt.Sprintf("Failed to write %s: %v", outPath, err), Err: err}
	}

	f.metrics.Success.Set(1)
	f.logger.InfoContext(ctx, "message written", logging.Path(outPath), logging.Bytes(len(data)))
	return nil
}

// Receive connects and returns the payload of the first message seen on the
// subject within the wait timeout.
func (f *Fetcher) Receive(ctx context.Context) ([]byte, error) {
	client, err := f.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	// Single slot: the first payload wins, later ones are dropped.
	msgs := make(chan []byte, 1)
	_, err = client.Subscribe(f.cfg.Subject, f.captureFirst(msgs))
	if err != nil {
		return nil, &Error{
			Kind: KindSubscribeFailed,
			Msg:  fmt.Sprintf("Cannot subscribe to %s: %v", f.cfg.Subject, err),
			Err:  err,
		}
	}

	f.logger.DebugContext(ctx, "waiting for message", logging.Duration(f.cfg.WaitTimeout))
	start := time.Now()
	data, ok := f.wait(ctx, msgs)
	f.metrics.WaitSeconds.Set(time.Since(start).Seconds())

	if !ok {
		return nil, &Error{
			Kind: KindNoMessage,
			Msg:  fmt.Sprintf("No %s messages received within %s", f.cfg.Subject, f.cfg.WaitTimeout),
		}
	}
	return data, nil
}

// captureFirst returns a handler that parks the first payload in slot and
// drops the rest without blocking the delivery goroutine.
func (f *Fetcher) captureFirst(slot chan<- []byte) messaging.MessageHandler {
	return func(_ context.Context, msg *messaging.Message) error {
		f.metrics.MessagesReceived.Inc()
		select {
		case slot <- msg.Data:
		default:
			f.metrics.MessagesDropped.Inc()
		}
		return nil
	}
}

// wait blocks until a message arrives, the timeout elapses or ctx ends.
// Running out of time is not an error by itself: a message that landed at
// the deadline is still taken.
func (f *Fetcher) wait(ctx context.Context, msgs <-chan []byte) ([]byte, bool) {
	timer := time.NewTimer(f.cfg.WaitTimeout)
	defer timer.Stop()

	select {
	case data := <-msgs:
		return data, true
	case <-timer.C:
	case <-ctx.Done():
	}

	select {
	case data := <-msgs:
		return data, true
	default:
		return nil, false
	}
}

func (f *Fetcher) connect(ctx context.Context) (messaging.Subscriber, error) {
	attempts := f.cfg.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		f.metrics.ConnectAttempts.Inc()
		client, err := f.dial(ctx)
		if err == nil {
			f.logger.DebugContext(ctx, "connected", logging.Attempt(attempt))
			return client, nil
		}

		lastErr = err
		f.metrics.ConnectFailures.Inc()
		f.logger.WarnContext(ctx, "connect attempt failed",
			logging.Attempt(attempt),
			slog.Int("max_attempts", attempts),
			logging.Error(err))

		if attempt == attempts {
			break
		}
		if err := sleep(ctx, f.cfg.RetryDelay); err != nil {
			lastErr = errors.Join(lastErr, err)
			break
		}
	}

	return nil, &Error{
		Kind: KindConnectExhausted,
		Msg:  fmt.Sprintf("Cannot connect to NATS: %v", lastErr),
		Err:  lastErr,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

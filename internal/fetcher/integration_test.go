package fetcher

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgmesh/signedmsg/common/messaging"
	natsclient "github.com/orgmesh/signedmsg/common/messaging/nats"
)

func TestFetch_AgainstBroker(t *testing.T) {
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	srv := natsserver.RunServer(&opts)
	t.Cleanup(srv.Shutdown)

	natsCfg := natsclient.DefaultConfig()
	natsCfg.URL = srv.ClientURL()

	pub, err := natsclient.NewClient(natsCfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })

	payload := `{"event":{"id":"1","kind":"adapters.inmemory-discord.posted","payload":{}},"signature":"x"}`

	// Keep publishing until the fetcher is done; the subscription may not
	// exist yet when the first publish goes out.
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = pub.Publish(context.Background(), messaging.SubjectDomainEvents, []byte(payload))
			}
		}
	}()

	cfg := testConfig()
	cfg.WaitTimeout = 5 * time.Second
	var out bytes.Buffer
	f := New(cfg, NATSDialer(natsCfg), nil, &out)
	outPath := filepath.Join(t.TempDir(), "signed.json")

	err = f.Fetch(context.Background(), outPath)
	close(done)
	require.NoError(t, err)

	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, payload, string(written))
	assert.Equal(t, payload+"\n", out.String())
}

func TestFetch_BrokerUnreachable(t *testing.T) {
	natsCfg := natsclient.DefaultConfig()
	natsCfg.URL = "nats://127.0.0.1:1"
	natsCfg.Timeout = 100 * time.Millisecond

	cfg := testConfig()
	cfg.ConnectAttempts = 3
	cfg.RetryDelay = 10 * time.Millisecond

	f := New(cfg, NATSDialer(natsCfg), nil, &bytes.Buffer{})
	err := f.Fetch(context.Background(), filepath.Join(t.TempDir(), "out"))

	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindConnectExhausted, fe.Kind)
	assert.True(t, strings.HasPrefix(fe.Error(), "Cannot connect to NATS: nats: "), fe.Error())
	assert.Equal(t, 1, fe.ExitCode())
}

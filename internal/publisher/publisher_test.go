package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgmesh/signedmsg/common/audit"
	"github.com/orgmesh/signedmsg/common/messaging"
	"github.com/orgmesh/signedmsg/common/models"
	"github.com/orgmesh/signedmsg/internal/validator"
)

type published struct {
	subject string
	data    []byte
	headers map[string]string
}

type fakeClient struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (c *fakeClient) Publish(_ context.Context, subject string, data []byte, opts ...messaging.PublishOption) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, published{subject: subject, data: data, headers: messaging.PublishHeaders(opts...)})
	return nil
}

func (c *fakeClient) Close() error { return nil }

func TestDefaultKind(t *testing.T) {
	assert.Equal(t, "adapters.inmemory-discord.posted", DefaultKind)
}

func TestNewEvent(t *testing.T) {
	p := New(&fakeClient{}, audit.TestSigner(), messaging.SubjectDomainEvents, nil)
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	event, err := p.NewEvent(DefaultKind)
	require.NoError(t, err)

	_, err = uuid.Parse(event.ID)
	assert.NoError(t, err, "event id should be a uuid")
	assert.Equal(t, DefaultKind, event.Kind)

	var body models.DiscordMessagePosted
	require.NoError(t, json.Unmarshal(event.Payload, &body))
	assert.Len(t, body.ChannelID, 18)
	assert.Len(t, body.MessageID, 18)
	assert.NotEmpty(t, body.Author)
	assert.NotEmpty(t, body.Content)
	assert.Equal(t, "2025-03-01T12:00:00Z", body.PostedAt)

	other, err := p.NewEvent(DefaultKind)
	require.NoError(t, err)
	assert.NotEqual(t, event.ID, other.ID)
}

func TestPublish(t *testing.T) {
	client := &fakeClient{}
	p := New(client, audit.TestSigner(), messaging.SubjectDomainEvents, nil)

	signed, err := p.Publish(context.Background(), DefaultKind)
	require.NoError(t, err)
	assert.True(t, audit.Verify(signed))

	require.Len(t, client.msgs, 1)
	msg := client.msgs[0]
	assert.Equal(t, messaging.SubjectDomainEvents, msg.subject)
	assert.Equal(t, signed.Event.ID, msg.headers[messaging.HeaderEventID])
	assert.Equal(t, DefaultKind, msg.headers[messaging.HeaderEventKind])

	var onWire models.SignedEvent
	require.NoError(t, json.Unmarshal(msg.data, &onWire))
	assert.True(t, audit.Verify(&onWire))
}

func TestPublish_OutputPassesValidator(t *testing.T) {
	client := &fakeClient{}
	p := New(client, audit.TestSigner(), messaging.SubjectDomainEvents, nil)

	_, err := p.Publish(context.Background(), DefaultKind)
	require.NoError(t, err)

	cfg := validator.DefaultConfig()
	cfg.VerifySignature = true
	res, err := validator.New(cfg).Validate(client.msgs[0].data)
	require.NoError(t, err)
	assert.Equal(t, DefaultKind, res.Kind)
	assert.True(t, res.Signature)
}

func TestPublish_ClientError(t *testing.T) {
	client := &fakeClient{err: errors.New("nats: connection closed")}
	p := New(client, audit.TestSigner(), "domain.events", nil)

	_, err := p.Publish(context.Background(), DefaultKind)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish to domain.events")
	assert.Contains(t, err.Error(), "connection closed")
}

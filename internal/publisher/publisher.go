// Package publisher emits signed adapter events onto the domain event bus.
// The e2e harness uses it to stand in for an adapter when none is running.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"github.com/orgmesh/signedmsg/common/audit"
	"github.com/orgmesh/signedmsg/common/logging"
	"github.com/orgmesh/signedmsg/common/messaging"
	"github.com/orgmesh/signedmsg/common/models"
)

// DefaultKind is the event kind the in-memory discord adapter emits.
var DefaultKind = messaging.AdapterKind("inmemory-discord", "posted")

type Publisher struct {
	client  messaging.Publisher
	signer  *audit.EventSigner
	subject string
	logger  *logging.Logger
	faker   *gofakeit.Faker
	now     func() time.Time
}

func New(client messaging.Publisher, signer *audit.EventSigner, subject string, logger *logging.Logger) *Publisher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{
		client:  client,
		signer:  signer,
		subject: subject,
		logger:  logger,
		faker:   gofakeit.New(0),
		now:     time.Now,
	}
}

// NewEvent builds a DomainEvent of the given kind with a fake discord
// message as payload.
func (p *Publisher) NewEvent(kind string) (models.DomainEvent, error) {
	body := models.DiscordMessagePosted{
		ChannelID: p.faker.Numerify("##################"),
		MessageID: p.faker.Numerify("##################"),
		Author:    p.faker.Username(),
		Content:   p.faker.Sentence(8),
		PostedAt:  p.now().UTC().Format(time.RFC3339),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return models.DomainEvent{}, fmt.Errorf("marshal payload: %w", err)
	}

	return models.DomainEvent{
		ID:      uuid.NewString(),
		Kind:    kind,
		Payload: payload,
	}, nil
}

// Publish signs a fresh event of the given kind and publishes it.
func (p *Publisher) Publish(ctx context.Context, kind string) (*models.SignedEvent, error) {
	event, err := p.NewEvent(kind)
	if err != nil {
		return nil, err
	}

	signed, err := p.signer.Sign(event)
	if err != nil {
		return nil, fmt.Errorf("sign event: %w", err)
	}

	data, err := json.Marshal(signed)
	if err != nil {
		return nil, fmt.Errorf("marshal signed event: %w", err)
	}

	err = p.client.Publish(ctx, p.subject, data,
		messaging.WithHeader(messaging.HeaderEventID, event.ID),
		messaging.WithHeader(messaging.HeaderEventKind, event.Kind))
	if err != nil {
		return nil, fmt.Errorf("publish to %s: %w", p.subject, err)
	}

	p.logger.InfoContext(ctx, "event published",
		logging.Subject(p.subject),
		logging.EventID(event.ID),
		logging.Kind(event.Kind),
		logging.Bytes(len(data)))

	return signed, nil
}

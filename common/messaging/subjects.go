package messaging

// Subjects used on the domain event bus.
// Follow the pattern: {domain}.{resource}
const (
	// SubjectDomainEvents carries every SignedEvent emitted by core-domain.
	SubjectDomainEvents = "domain.events"
)

// Header keys set by publishers on domain events.
const (
	HeaderEventID   = "Event-Id"
	HeaderEventKind = "Event-Kind"
)

// AdapterKindPrefix prefixes every event kind emitted by an adapter,
// e.g. adapters.inmemory-discord.posted.
const AdapterKindPrefix = "adapters."

// AdapterKind builds an adapter event kind from the adapter name and action.
// Example: AdapterKind("discord", "posted") == "adapters.discord.posted"
func AdapterKind(adapter, action string) string {
	return AdapterKindPrefix + adapter + "." + action
}

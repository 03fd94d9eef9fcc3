package events

import (
	"context"
	"log/slog"

	platformevents "leadledger_backend/platform/events"
	"leadledger_backend/platform/logger"
)

type InMemoryBus = platformevents.InMemoryBus

func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}

// Names lists every event the lead and wallet services publish.
var Names = []string{
	LeadIngested{}.EventName(),
	LeadApproved{}.EventName(),
	LeadPosted{}.EventName(),
	LeadDeclined{}.EventName(),
	LeadUnlocked{}.EventName(),
	AddOnRedeemed{}.EventName(),
	TrialExpired{}.EventName(),
	WalletFrozen{}.EventName(),
}

// SubscribeAudit writes one structured log line per published domain event.
func SubscribeAudit(bus Bus, log *logger.Logger) {
	audit := HandlerFunc(func(ctx context.Context, event Event) error {
		log.WithContext(ctx).Info("domain_event",
			slog.String("event", event.EventName()),
			slog.Time("occurred_at", event.OccurredAt()),
			slog.Any("payload", event),
		)
		return nil
	})
	for _, name := range Names {
		bus.Subscribe(name, audit)
	}
}

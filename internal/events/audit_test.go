package events

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"leadledger_backend/platform/logger"

	"github.com/google/uuid"
)

func TestNamesAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, name := range Names {
		if seen[name] {
			t.Fatalf("duplicate event name %q", name)
		}
		seen[name] = true
	}
}

func TestSubscribeAuditLogsEvent(t *testing.T) {
	var buf bytes.Buffer
	log := &logger.Logger{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}
	bus := NewInMemoryBus(log)
	SubscribeAudit(bus, log)

	leadID := uuid.New()
	err := bus.PublishSync(context.Background(), LeadPosted{
		BaseEvent:      NewBaseEventAt(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)),
		LeadID:         leadID,
		RelevanceScore: 17,
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	out := buf.String()
	for _, want := range []string{`"event":"leads.lead.posted"`, leadID.String(), `"relevanceScore":17`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
}

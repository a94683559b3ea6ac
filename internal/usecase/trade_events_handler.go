package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"TradeSense/internal/domain/models"
	drepo "TradeSense/internal/domain/repository"
	pkgkafka "TradeSense/pkg/kafka"

	"github.com/google/uuid"
)

// TradeEventsHandler consumes domain events from Kafka and appends them to the journal.
type TradeEventsHandler struct {
	topic   string
	journal drepo.EventJournal
	metrics drepo.Metrics
}

func NewTradeEventsHandler(topic string, journal drepo.EventJournal, metrics drepo.Metrics) *TradeEventsHandler {
	return &TradeEventsHandler{topic: topic, journal: journal, metrics: metrics}
}

func (h *TradeEventsHandler) Topic() string { return h.topic }

func (h *TradeEventsHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.Event
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode event: %w", err)
	}
	if ev.ID == uuid.Nil || ev.Type == "" {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("decode event: missing id or type")
	}
	h.metrics.RecordLatency("event_e2e_seconds", time.Since(ev.OccurredAt).Seconds())

	start := time.Now()
	err := h.journal.Append(ctx, &ev)
	h.metrics.RecordLatency("journal_append_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordEventsPublished("journal", 1)
	return nil
}

var _ pkgkafka.MessageHandler = (*TradeEventsHandler)(nil)

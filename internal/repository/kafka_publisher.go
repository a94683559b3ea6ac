package repository

import (
	"context"

	"TradeSense/internal/domain/models"
	"TradeSense/internal/domain/repository"
	pkgkafka "TradeSense/pkg/kafka"
)

// EventProducer is the part of pkg/kafka.Producer the publisher needs.
type EventProducer interface {
	Publish(ctx context.Context, messages ...pkgkafka.Message) error
	Close() error
}

// KafkaEventPublisher writes domain events keyed by challenge id, so one challenge's
// events stay ordered on one partition.
type KafkaEventPublisher struct {
	producer EventProducer
}

func NewKafkaEventPublisher(producer EventProducer) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer}
}

var _ repository.EventPublisher = (*KafkaEventPublisher)(nil)

func (p *KafkaEventPublisher) Publish(ctx context.Context, events ...*models.Event) error {
	msgs := make([]pkgkafka.Message, 0, len(events))
	for _, ev := range events {
		if ev == nil {
			continue
		}
		msgs = append(msgs, pkgkafka.Message{Key: []byte(ev.ChallengeID.String()), Value: ev})
	}
	return p.producer.Publish(ctx, msgs...)
}

func (p *KafkaEventPublisher) Close() error { return p.producer.Close() }

// JournalPublisher writes events straight into a journal. Used when no broker is configured.
type JournalPublisher struct {
	journal repository.EventJournal
}

func NewJournalPublisher(journal repository.EventJournal) *JournalPublisher {
	return &JournalPublisher{journal: journal}
}

func (p *JournalPublisher) Publish(ctx context.Context, events ...*models.Event) error {
	return p.journal.Append(ctx, events...)
}

func (p *JournalPublisher) Close() error { return p.journal.Close() }

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...*models.Event) error { return nil }
func (NopPublisher) Close() error                                    { return nil }

package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

// OutboxTopicPublisher публикует outbox-сообщения в заданный Kafka topic.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
func NewOutboxPublisher(producer *Producer, topic string) domain.OutboxPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OutboxTopicPublisher{
		producer: producer,
		topic:    topic,
	}
}

// Publish кладёт сообщение в topic с ключом партиционирования по заказу:
// события одного заказа сохраняют порядок внутри партиции.
func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	key := event.AggregateID
	if key == "" {
		key = event.ID
	}

	envelope := struct {
		ID            string          `json:"id"`
		AggregateType string          `json:"aggregate_type"`
		AggregateID   string          `json:"aggregate_id"`
		EventType     string          `json:"event_type"`
		Payload       json.RawMessage `json:"payload"`
		PublishedAt   time.Time       `json:"published_at"`
	}{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       json.RawMessage(event.Payload),
		PublishedAt:   time.Now().UTC(),
	}

	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal outbox envelope: %w", err)
	}

	return p.producer.Publish(p.topic, key, value)
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)

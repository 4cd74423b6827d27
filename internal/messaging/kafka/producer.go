package kafka

import (
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

const defaultClientID = "orderhub-order-service"

// Producer — синхронный Kafka-продьюсер для событий заказов.
// Relay из transactional outbox может доставить одно сообщение дважды,
// поэтому продьюсер настроен идемпотентным: дубль на ретрае брокер
// дедуплицирует сам.
type Producer struct {
	sync   sarama.SyncProducer
	logger *log.Entry
}

// NewProducer подключается к брокерам и возвращает готовый продьюсер.
func NewProducer(brokers []string) (*Producer, error) {
	config := sarama.NewConfig()
	config.ClientID = defaultClientID
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1 // требование идемпотентного продьюсера
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy

	sync, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return &Producer{
		sync:   sync,
		logger: log.WithField("component", "kafka-producer"),
	}, nil
}

// Publish отправляет уже сериализованное сообщение в topic.
// Ключ задаёт партицию: события с одним ключом сохраняют порядок.
func (p *Producer) Publish(topic, key string, value []byte) error {
	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(value),
		Timestamp: time.Now().UTC(),
	}

	partition, offset, err := p.sync.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"topic": topic,
			"key":   key,
		}).Error("kafka send failed")
		return fmt.Errorf("send to %s: %w", topic, err)
	}

	p.logger.WithFields(log.Fields{
		"topic":     topic,
		"key":       key,
		"partition": partition,
		"offset":    offset,
	}).Debug("event published")

	return nil
}

// Close останавливает продьюсер.
func (p *Producer) Close() error {
	if err := p.sync.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}
